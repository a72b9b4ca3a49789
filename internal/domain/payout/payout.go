package payout

import (
	"slices"
	"strings"
	"time"

	"github.com/clutch/ledger/internal/domain/settlement"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a payout
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusApproved   Status = "APPROVED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// IsValid reports whether the status is known
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// HoldsClaims reports whether a payout in this status keeps its commissions
func (s Status) HoldsClaims() bool {
	return s != StatusCancelled
}

// transitions lists the allowed next states. A failed payout can be retried
// or cancelled; cancelling releases its commissions.
var transitions = map[Status][]Status{
	StatusPending:    {StatusApproved, StatusFailed, StatusCancelled},
	StatusApproved:   {StatusProcessing, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusFailed:     {StatusProcessing, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransitionTo reports whether the move is allowed
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}

// DeductionType classifies an amount withheld from a payout
type DeductionType string

const (
	// DeductionCashPaid is cash the partner collected on the platform's behalf
	DeductionCashPaid   DeductionType = "CASH_PAID"
	DeductionReturn     DeductionType = "RETURN"
	DeductionAdjustment DeductionType = "ADJUSTMENT"
	DeductionPenalty    DeductionType = "PENALTY"
)

// IsValid reports whether the deduction type is known
func (t DeductionType) IsValid() bool {
	switch t {
	case DeductionCashPaid, DeductionReturn, DeductionAdjustment, DeductionPenalty:
		return true
	}
	return false
}

// DeductionInput is a requested deduction
type DeductionInput struct {
	Type        DeductionType   `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	OrderRef    string          `json:"order_ref,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Deduction is an itemized amount withheld from the gross commission
type Deduction struct {
	ID          uuid.UUID       `json:"id"`
	Type        DeductionType   `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	OrderRef    string          `json:"order_ref,omitempty"`
	Description string          `json:"description,omitempty"`
	// Recovery marks the deduction recovering refunds already paid out
	Recovery bool `json:"recovery,omitempty"`
}

// Item is one commission claimed by the payout
type Item struct {
	CommissionID     uuid.UUID       `json:"commission_id"`
	OrderID          string          `json:"order_id"`
	OrderDate        time.Time       `json:"order_date"`
	OrderAmount      decimal.Decimal `json:"order_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	PartnerNet       decimal.Decimal `json:"partner_net"`
}

// AuditRecord is one status transition
type AuditRecord struct {
	ID         uuid.UUID `json:"id"`
	Actor      string    `json:"actor"`
	At         time.Time `json:"at"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	Reason     string    `json:"reason,omitempty"`
}

// Payout batches the commissions of one partner over one period.
// NetPayout == GrossCommission - TotalDeductions at all times.
type Payout struct {
	shared.TenantAggregateRoot
	Number           string          `json:"number"`
	PartnerID        uuid.UUID       `json:"partner_id"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	Items            []Item          `json:"items"`
	TotalOrders      int             `json:"total_orders"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	PlatformShare    decimal.Decimal `json:"platform_share"`
	GrossCommission  decimal.Decimal `json:"gross_commission"`
	Deductions       []Deduction     `json:"deductions"`
	TotalDeductions  decimal.Decimal `json:"total_deductions"`
	NetPayout        decimal.Decimal `json:"net_payout"`
	Status           Status          `json:"status"`
	AuditLog         []AuditRecord   `json:"audit_log"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	FailureReason    string          `json:"failure_reason,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	JournalEntryID   *uuid.UUID      `json:"journal_entry_id,omitempty"`
}

// BatchRequest selects what goes into a payout
type BatchRequest struct {
	PartnerID   uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	Deductions  []DeductionInput
	// PendingReturns is partner net of refunded orders already paid out. It
	// is recovered as a RETURN deduction, capped at what the payout can bear.
	PendingReturns decimal.Decimal
	Actor          string
}

// Batch builds a pending payout from the partner's pending commissions.
// claimed maps commission ids to the non-cancelled payout already holding
// them; any overlap fails the whole batch with a DoubleClaimError.
func Batch(tenantID uuid.UUID, number string, req BatchRequest, commissions []*settlement.Commission, claimed map[uuid.UUID]uuid.UUID, rounding valueobject.Rounding) (*Payout, error) {
	if req.PartnerID == uuid.Nil {
		return nil, shared.NewValidationError("partner_id", "partner is required")
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() || req.PeriodEnd.Before(req.PeriodStart) {
		return nil, shared.NewValidationError("period", "period end must not be before period start")
	}
	if len(commissions) == 0 {
		return nil, shared.NewValidationError("commissions", "no pending commissions in the period")
	}

	contested := make(map[uuid.UUID]uuid.UUID)
	for _, c := range commissions {
		if c.PartnerID != req.PartnerID {
			return nil, shared.NewValidationError("commissions", "commission "+c.ID.String()+" belongs to another partner")
		}
		if c.Status != settlement.CommissionStatusPending {
			return nil, shared.NewDomainError(shared.CodeInvalidState,
				"commission of order "+c.OrderID+" is "+string(c.Status)+", not pending")
		}
		if c.OrderDate.Before(req.PeriodStart) || c.OrderDate.After(req.PeriodEnd) {
			return nil, shared.NewValidationError("commissions", "order "+c.OrderID+" is outside the period")
		}
		if holder, ok := claimed[c.ID]; ok {
			contested[c.ID] = holder
		}
	}
	if len(contested) > 0 {
		return nil, &DoubleClaimError{PartnerID: req.PartnerID, Claims: contested}
	}

	p := &Payout{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		PartnerID:           req.PartnerID,
		PeriodStart:         req.PeriodStart,
		PeriodEnd:           req.PeriodEnd,
		Items:               make([]Item, 0, len(commissions)),
		TotalRevenue:        decimal.Zero,
		PlatformShare:       decimal.Zero,
		GrossCommission:     decimal.Zero,
		Deductions:          make([]Deduction, 0, len(req.Deductions)+1),
		Status:              StatusPending,
		AuditLog:            make([]AuditRecord, 0, 4),
	}
	sorted := slices.Clone(commissions)
	slices.SortStableFunc(sorted, func(a, b *settlement.Commission) int { return a.OrderDate.Compare(b.OrderDate) })
	for _, c := range sorted {
		p.Items = append(p.Items, Item{
			CommissionID:     c.ID,
			OrderID:          c.OrderID,
			OrderDate:        c.OrderDate,
			OrderAmount:      c.OrderAmount,
			CommissionAmount: c.CommissionAmount,
			PartnerNet:       c.PartnerNet,
		})
		p.TotalRevenue = p.TotalRevenue.Add(c.OrderAmount)
		p.PlatformShare = p.PlatformShare.Add(c.CommissionAmount)
		p.GrossCommission = p.GrossCommission.Add(c.PartnerNet)
	}
	p.TotalOrders = len(p.Items)
	p.GrossCommission = rounding.Round(p.GrossCommission)

	for i, in := range req.Deductions {
		if !in.Type.IsValid() {
			return nil, shared.NewValidationError("deductions", "unknown deduction type "+string(in.Type)).WithDetail("index", i)
		}
		amount := rounding.Round(in.Amount)
		if !amount.IsPositive() {
			return nil, shared.NewValidationError("deductions", "deduction amount must be positive").WithDetail("index", i)
		}
		p.Deductions = append(p.Deductions, Deduction{
			ID:          shared.NextID(),
			Type:        in.Type,
			Amount:      amount,
			OrderRef:    strings.TrimSpace(in.OrderRef),
			Description: strings.TrimSpace(in.Description),
		})
	}
	p.recompute()
	if p.NetPayout.IsNegative() {
		return nil, shared.NewValidationError("deductions",
			"deductions "+p.TotalDeductions.StringFixed(2)+" exceed gross commission "+p.GrossCommission.StringFixed(2))
	}
	if req.PendingReturns.IsPositive() && p.NetPayout.IsPositive() {
		recovered := decimal.Min(rounding.Round(req.PendingReturns), p.NetPayout)
		p.Deductions = append(p.Deductions, Deduction{
			ID:          shared.NextID(),
			Type:        DeductionReturn,
			Amount:      recovered,
			Description: "refunds of orders already paid out",
			Recovery:    true,
		})
		p.recompute()
	}

	p.audit(req.Actor, "", StatusPending, "batched")
	p.AddDomainEvent(NewPayoutCreatedEvent(p))
	return p, nil
}

// recompute derives the deduction total and the net amount
func (p *Payout) recompute() {
	total := decimal.Zero
	for _, d := range p.Deductions {
		total = total.Add(d.Amount)
	}
	p.TotalDeductions = total
	p.NetPayout = p.GrossCommission.Sub(total)
}

// RecoveredReturns is the part of the deductions recovering refunds
func (p *Payout) RecoveredReturns() decimal.Decimal {
	total := decimal.Zero
	for _, d := range p.Deductions {
		if d.Recovery {
			total = total.Add(d.Amount)
		}
	}
	return total
}

// CommissionIDs returns the claimed commissions
func (p *Payout) CommissionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Items))
	for i, it := range p.Items {
		ids[i] = it.CommissionID
	}
	return ids
}

// VerifyNet checks netPayout == gross - sum(deductions)
func (p *Payout) VerifyNet() error {
	total := decimal.Zero
	for _, d := range p.Deductions {
		total = total.Add(d.Amount)
	}
	if !p.TotalDeductions.Equal(total) || !p.NetPayout.Equal(p.GrossCommission.Sub(total)) {
		return shared.NewDomainError(shared.CodeInvalidState, "payout "+p.Number+" net amount does not match its deductions").
			WithDetail("gross_commission", p.GrossCommission.StringFixed(2)).
			WithDetail("total_deductions", total.StringFixed(2)).
			WithDetail("net_payout", p.NetPayout.StringFixed(2))
	}
	return nil
}

func (p *Payout) audit(actor string, from, to Status, reason string) {
	p.AuditLog = append(p.AuditLog, AuditRecord{
		ID:         shared.NextID(),
		Actor:      actor,
		At:         time.Now(),
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
	})
}

func (p *Payout) transition(to Status, actor, reason string) error {
	if !p.Status.CanTransitionTo(to) {
		return shared.NewDomainError(shared.CodeInvalidState,
			"payout "+p.Number+" cannot move from "+string(p.Status)+" to "+string(to))
	}
	from := p.Status
	p.Status = to
	p.audit(actor, from, to, reason)
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewPayoutStatusChangedEvent(p, from, reason))
	return nil
}

// Approve moves a pending payout to approved
func (p *Payout) Approve(actor string) error {
	return p.transition(StatusApproved, actor, "")
}

// StartProcessing hands the payout to the payment rail
func (p *Payout) StartProcessing(actor string) error {
	if p.Status == StatusFailed {
		p.FailureReason = ""
	}
	return p.transition(StatusProcessing, actor, "")
}

// Fail records a failed transfer
func (p *Payout) Fail(actor, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("reason", "a failure requires a reason")
	}
	if err := p.transition(StatusFailed, actor, reason); err != nil {
		return err
	}
	p.FailureReason = reason
	return nil
}

// Cancel abandons the payout and releases its commissions
func (p *Payout) Cancel(actor, reason string) error {
	return p.transition(StatusCancelled, actor, strings.TrimSpace(reason))
}

// Complete confirms the transfer and finalizes every claimed commission as
// paid. commissions must be exactly the claimed set; nothing is changed when
// any of them cannot be paid.
func (p *Payout) Complete(actor, paymentReference string, commissions []*settlement.Commission) error {
	if !p.Status.CanTransitionTo(StatusCompleted) {
		return shared.NewDomainError(shared.CodeInvalidState,
			"payout "+p.Number+" cannot move from "+string(p.Status)+" to "+string(StatusCompleted))
	}
	if err := p.VerifyNet(); err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*settlement.Commission, len(commissions))
	for _, c := range commissions {
		byID[c.ID] = c
	}
	if len(byID) != len(p.Items) {
		return shared.NewDomainError(shared.CodeInvalidState, "payout "+p.Number+" commission set does not match its items")
	}
	for _, it := range p.Items {
		c, ok := byID[it.CommissionID]
		if !ok {
			return shared.ErrNotFound.WithDetail("commission_id", it.CommissionID.String())
		}
		if c.Status != settlement.CommissionStatusPending {
			return shared.NewDomainError(shared.CodeInvalidState,
				"commission of order "+c.OrderID+" is "+string(c.Status)+", not pending")
		}
	}

	now := time.Now()
	for _, it := range p.Items {
		if err := byID[it.CommissionID].MarkPaid(p.ID, now); err != nil {
			return err
		}
	}
	p.PaymentReference = strings.TrimSpace(paymentReference)
	p.CompletedAt = &now
	return p.transition(StatusCompleted, actor, "")
}

// AttachJournalEntry links the entry that posted the payout
func (p *Payout) AttachJournalEntry(id uuid.UUID) {
	p.JournalEntryID = &id
}
