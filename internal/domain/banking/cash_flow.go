package banking

import (
	"sort"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryUncategorized labels statement lines nobody categorized yet in
// cash flow reports. It cannot be assigned.
const CategoryUncategorized Category = "uncategorized"

// CashFlowFilter narrows a cash flow report. Nil bounds are open.
type CashFlowFilter struct {
	BankAccountID *uuid.UUID
	From          *time.Time
	To            *time.Time
}

// Validate rejects an inverted date range
func (f CashFlowFilter) Validate() error {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return shared.NewValidationError("end_date", "end date is before start date")
	}
	return nil
}

// CategoryFlow is the money that entered and left the bank through one category
type CategoryFlow struct {
	Category Category        `json:"category"`
	Inflow   decimal.Decimal `json:"inflow"`
	Outflow  decimal.Decimal `json:"outflow"`
	NetFlow  decimal.Decimal `json:"net_flow"`
	Count    int64           `json:"count"`
}

// CashFlow groups statement lines by category. Credits are inflows and
// debits outflows.
type CashFlow struct {
	Categories   []CategoryFlow  `json:"categories"`
	TotalInflow  decimal.Decimal `json:"total_inflow"`
	TotalOutflow decimal.Decimal `json:"total_outflow"`
	NetFlow      decimal.Decimal `json:"net_flow"`
	Count        int64           `json:"count"`
}

// NewCashFlow totals per-category rows. Uncategorized lines are reported
// under CategoryUncategorized, and categories come out in name order.
func NewCashFlow(rows []CategoryFlow) *CashFlow {
	cf := &CashFlow{
		Categories:   make([]CategoryFlow, 0, len(rows)),
		TotalInflow:  decimal.Zero,
		TotalOutflow: decimal.Zero,
	}
	for _, r := range rows {
		if r.Category == CategoryNone {
			r.Category = CategoryUncategorized
		}
		r.NetFlow = r.Inflow.Sub(r.Outflow)
		cf.Categories = append(cf.Categories, r)
		cf.TotalInflow = cf.TotalInflow.Add(r.Inflow)
		cf.TotalOutflow = cf.TotalOutflow.Add(r.Outflow)
		cf.Count += r.Count
	}
	sort.Slice(cf.Categories, func(i, j int) bool {
		return cf.Categories[i].Category < cf.Categories[j].Category
	})
	cf.NetFlow = cf.TotalInflow.Sub(cf.TotalOutflow)
	return cf
}
