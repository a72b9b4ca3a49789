package router

import (
	"github.com/clutch/ledger/internal/interfaces/http/handler"
)

// Handlers are the HTTP handlers of the API, one per bounded context
type Handlers struct {
	Ledger     *handler.LedgerHandler
	Banking    *handler.BankingHandler
	Settlement *handler.SettlementHandler
	Payout     *handler.PayoutHandler
}

// LedgerRoutes builds the chart of accounts, journal and reporting routes
func LedgerRoutes(h *handler.LedgerHandler) *DomainGroup {
	g := NewDomainGroup("ledger", "/ledger")

	accounts := g.Group("accounts", "/accounts")
	accounts.POST("", h.CreateAccount).
		GET("", h.ListAccounts).
		POST("/seed", h.SeedChart).
		GET("/:id", h.GetAccount).
		PUT("/:id", h.UpdateAccount).
		GET("/:id/children", h.Children).
		GET("/:id/path", h.ResolvePath).
		POST("/:id/deactivate", h.Deactivate).
		POST("/:id/activate", h.Activate).
		GET("/:id/statement", h.Statement).
		GET("/:id/statement/export", h.ExportStatement).
		GET("/:id/replay-check", h.ReplayCheck)

	entries := g.Group("journal", "/journal-entries")
	entries.POST("", h.CreateEntry).
		GET("", h.ListEntries).
		GET("/:id", h.GetEntry).
		PUT("/:id", h.UpdateDraft).
		POST("/:id/post", h.PostDraft).
		POST("/:id/reverse", h.Reverse).
		POST("/:id/cancel", h.CancelDraft)

	g.GET("/trial-balance", h.TrialBalance)
	return g
}

// BankingRoutes builds the bank account, import and reconciliation routes
func BankingRoutes(h *handler.BankingHandler) *DomainGroup {
	g := NewDomainGroup("banking", "/banking")

	g.Group("accounts", "/accounts").
		POST("", h.CreateBankAccount).
		GET("", h.ListBankAccounts).
		GET("/:id", h.GetBankAccount).
		POST("/:id/transactions", h.ImportTransactions).
		POST("/:id/feed-import", h.ImportFromFeed)

	g.Group("transactions", "/transactions").
		GET("", h.ListTransactions).
		POST("/categorize", h.Categorize)

	g.GET("/cash-flow", h.CashFlow)

	g.Group("reconciliations", "/reconciliations").
		POST("", h.StartReconciliation).
		GET("", h.ListReconciliations).
		GET("/:id", h.GetReconciliation).
		POST("/:id/match", h.Match).
		POST("/:id/auto-match", h.AutoMatch).
		GET("/:id/suggestions/:transaction_id", h.SuggestMatch).
		POST("/:id/adjustments", h.AddAdjustment).
		DELETE("/:id/adjustments/:adjustment_id", h.RemoveAdjustment).
		GET("/:id/unmatched", h.Unmatched).
		POST("/:id/complete", h.Complete).
		POST("/:id/dispute", h.Dispute).
		POST("/:id/reopen", h.Reopen).
		POST("/:id/cancel", h.Cancel)
	return g
}

// SettlementRoutes builds the partner financial and commission routes
func SettlementRoutes(h *handler.SettlementHandler) *DomainGroup {
	g := NewDomainGroup("settlement", "/settlement")

	g.Group("partners", "/partners").
		PUT("/:id/financial", h.ConfigurePartner).
		GET("/:id/financial", h.GetPartner).
		GET("/:id/commissions/summary", h.Summary).
		GET("/:id/commissions/breakdown", h.Breakdown)

	g.Group("commissions", "/commissions").
		POST("/calculate", h.Calculate).
		POST("", h.RecordCommission).
		GET("", h.ListCommissions).
		GET("/:id", h.GetCommission).
		POST("/:id/cancel", h.CancelCommission).
		POST("/:id/refund", h.RefundCommission)
	return g
}

// PayoutRoutes builds the payout routes
func PayoutRoutes(h *handler.PayoutHandler) *DomainGroup {
	return NewDomainGroup("payouts", "/payouts").
		POST("", h.Batch).
		GET("", h.List).
		GET("/weekly-summary", h.WeeklySummary).
		POST("/generate", h.Generate).
		GET("/:id", h.Get).
		POST("/:id/approve", h.Approve).
		POST("/:id/process", h.Process).
		POST("/:id/complete", h.Complete).
		POST("/:id/fail", h.Fail).
		POST("/:id/cancel", h.Cancel)
}

// RegisterAll queues the route groups of every non-nil handler
func (r *Router) RegisterAll(h Handlers) *Router {
	if h.Ledger != nil {
		r.Register(LedgerRoutes(h.Ledger))
	}
	if h.Banking != nil {
		r.Register(BankingRoutes(h.Banking))
	}
	if h.Settlement != nil {
		r.Register(SettlementRoutes(h.Settlement))
	}
	if h.Payout != nil {
		r.Register(PayoutRoutes(h.Payout))
	}
	return r
}
