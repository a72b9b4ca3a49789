package persistence

import (
	"slices"
	"strings"

	"github.com/clutch/ledger/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sortSpec whitelists the columns a list endpoint may order by. Requested
// columns outside the list fall back to the default, so user input never
// reaches the ORDER BY clause.
type sortSpec struct {
	columns  []string
	fallback string
	// tiebreak keeps pages stable when many rows share the sort value
	tiebreak string
}

var (
	accountSort = sortSpec{
		columns:  []string{"number", "name", "type", "balance", "last_entry_date", "created_at", "updated_at"},
		fallback: "number",
		tiebreak: "id",
	}
	journalEntrySort = sortSpec{
		columns:  []string{"entry_date", "entry_number", "sequence", "status", "posted_at", "created_at"},
		fallback: "entry_date",
		tiebreak: "entry_number",
	}
	bankTransactionSort = sortSpec{
		columns:  []string{"date", "amount", "category", "imported_at", "created_at"},
		fallback: "date",
		tiebreak: "id",
	}
	reconciliationSort = sortSpec{
		columns:  []string{"number", "statement_date", "status", "completed_at", "created_at"},
		fallback: "statement_date",
		tiebreak: "id",
	}
	commissionSort = sortSpec{
		columns:  []string{"order_date", "order_amount", "commission_amount", "partner_net", "status", "created_at"},
		fallback: "order_date",
		tiebreak: "id",
	}
	payoutSort = sortSpec{
		columns:  []string{"number", "period_end", "gross_commission", "net_payout", "status", "created_at"},
		fallback: "created_at",
		tiebreak: "id",
	}
)

// column returns the requested column when allowed, else the fallback
func (s sortSpec) column(requested string) string {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if slices.Contains(s.columns, requested) {
		return requested
	}
	return s.fallback
}

// descending is true unless the caller asked for ascending order
func descending(dir string) bool {
	return !strings.EqualFold(strings.TrimSpace(dir), "asc")
}

// page orders and limits a list query according to f
func (s sortSpec) page(f shared.Filter) func(*gorm.DB) *gorm.DB {
	col := s.column(f.OrderBy)
	desc := descending(f.OrderDir)
	return func(db *gorm.DB) *gorm.DB {
		order := []clause.OrderByColumn{{Column: clause.Column{Name: col}, Desc: desc}}
		if s.tiebreak != "" && s.tiebreak != col {
			order = append(order, clause.OrderByColumn{Column: clause.Column{Name: s.tiebreak}, Desc: desc})
		}
		return db.Clauses(clause.OrderBy{Columns: order}).
			Offset(f.Offset()).
			Limit(f.Limit())
	}
}
