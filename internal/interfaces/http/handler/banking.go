package handler

import (
	"strings"

	bankingapp "github.com/clutch/ledger/internal/application/banking"
	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/clutch/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// BankingHandler serves bank accounts, statement imports and reconciliation runs
type BankingHandler struct {
	BaseHandler
	feed            *bankingapp.BankFeedService
	reconciliations *bankingapp.ReconciliationService
}

// NewBankingHandler creates a new BankingHandler
func NewBankingHandler(feed *bankingapp.BankFeedService, reconciliations *bankingapp.ReconciliationService) *BankingHandler {
	return &BankingHandler{feed: feed, reconciliations: reconciliations}
}

// CreateBankAccount godoc
//
//	@Summary	Create a bank account
//	@Tags		banking
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CreateBankAccountRequest	true	"Bank account"
//	@Success	201		{object}	dto.Response
//	@Failure	422		{object}	dto.Response	"Ledger account is not a cash or bank account"
//	@Router		/banking/accounts [post]
func (h *BankingHandler) CreateBankAccount(c *gin.Context) {
	var req CreateBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	account, err := h.feed.CreateBankAccount(c.Request.Context(), middleware.GetTenantID(c), bankingapp.CreateBankAccountRequest{
		Name:            req.Name,
		BankName:        req.BankName,
		AccountNumber:   req.AccountNumber,
		Currency:        req.Currency,
		LedgerAccountID: req.LedgerAccountID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// ListBankAccounts godoc
//
//	@Summary	List bank accounts
//	@Tags		banking
//	@Success	200	{object}	dto.Response
//	@Router		/banking/accounts [get]
func (h *BankingHandler) ListBankAccounts(c *gin.Context) {
	accounts, err := h.feed.ListBankAccounts(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// GetBankAccount godoc
//
//	@Summary	Get a bank account
//	@Tags		banking
//	@Param		id	path		string	true	"Bank account ID"
//	@Success	200	{object}	dto.Response
//	@Router		/banking/accounts/{id} [get]
func (h *BankingHandler) GetBankAccount(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	account, err := h.feed.GetBankAccount(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// ImportTransactions godoc
//
//	@Summary		Import statement lines
//	@Description	Lines already imported (same external id) are skipped
//	@Tags			banking
//	@Param			id		path		string						true	"Bank account ID"
//	@Param			request	body		ImportTransactionsRequest	true	"Lines"
//	@Success		201		{object}	dto.Response
//	@Router			/banking/accounts/{id}/transactions [post]
func (h *BankingHandler) ImportTransactions(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req ImportTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	rows, err := req.toInputs()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	result, err := h.feed.ImportTransactions(c.Request.Context(), middleware.GetTenantID(c), id, rows)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ImportFromFeed godoc
//
//	@Summary	Import a CSV statement from the bank-feed bucket
//	@Tags		banking
//	@Param		id		path		string				true	"Bank account ID"
//	@Param		request	body		FeedImportRequest	true	"Object key"
//	@Success	201		{object}	dto.Response
//	@Router		/banking/accounts/{id}/feed-import [post]
func (h *BankingHandler) ImportFromFeed(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req FeedImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	result, err := h.feed.ImportFromFeed(c.Request.Context(), middleware.GetTenantID(c), id, req.ObjectKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ListTransactions godoc
//
//	@Summary	List bank transactions
//	@Tags		banking
//	@Param		bank_account_id	query		string	false	"Bank account"
//	@Param		reconciled		query		bool	false	"Reconciled flag"
//	@Success	200				{object}	dto.Response
//	@Router		/banking/transactions [get]
func (h *BankingHandler) ListTransactions(c *gin.Context) {
	var ok bool
	var filter bankingapp.TransactionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.BankAccountID, ok = h.queryUUID(c, "bank_account_id"); !ok {
		return
	}
	page, err := h.feed.ListTransactions(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// CashFlow godoc
//
//	@Summary	Cash flow by category
//	@Tags		banking
//	@Param		start_date		query		string	false	"First day, YYYY-MM-DD"
//	@Param		end_date		query		string	false	"Last day, YYYY-MM-DD"
//	@Param		bank_account_id	query		string	false	"Bank account"
//	@Success	200				{object}	dto.Response
//	@Router		/banking/cash-flow [get]
func (h *BankingHandler) CashFlow(c *gin.Context) {
	var ok bool
	var filter banking.CashFlowFilter
	if filter.From, ok = h.queryDate(c, "start_date"); !ok {
		return
	}
	if filter.To, ok = h.queryDate(c, "end_date"); !ok {
		return
	}
	if filter.BankAccountID, ok = h.queryUUID(c, "bank_account_id"); !ok {
		return
	}
	report, err := h.feed.CashFlow(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Categorize godoc
//
//	@Summary	Categorize bank transactions
//	@Tags		banking
//	@Param		request	body		CategorizeRequest	true	"Transactions and category"
//	@Success	200		{object}	dto.Response
//	@Router		/banking/transactions/categorize [post]
func (h *BankingHandler) Categorize(c *gin.Context) {
	var req CategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	updated, err := h.feed.Categorize(c.Request.Context(), middleware.GetTenantID(c), bankingapp.CategorizeRequest{
		TransactionIDs: req.TransactionIDs,
		Category:       req.Category,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"updated": updated})
}

// StartReconciliation godoc
//
//	@Summary	Start a reconciliation run
//	@Tags		banking
//	@Param		request	body		StartReconciliationRequest	true	"Statement"
//	@Success	201		{object}	dto.Response
//	@Failure	409		{object}	dto.Response	"A run is already open for the bank account"
//	@Router		/banking/reconciliations [post]
func (h *BankingHandler) StartReconciliation(c *gin.Context) {
	var req StartReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	appReq, err := req.toApp()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	rec, err := h.reconciliations.Start(c.Request.Context(), middleware.GetTenantID(c), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rec)
}

// ListReconciliations godoc
//
//	@Summary	List reconciliation runs
//	@Tags		banking
//	@Param		bank_account_id	query		string	false	"Bank account"
//	@Param		status			query		string	false	"Status"
//	@Success	200				{object}	dto.Response
//	@Router		/banking/reconciliations [get]
func (h *BankingHandler) ListReconciliations(c *gin.Context) {
	var ok bool
	var filter bankingapp.ReconciliationListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.BankAccountID, ok = h.queryUUID(c, "bank_account_id"); !ok {
		return
	}
	filter.Status = strings.ToUpper(filter.Status)
	page, err := h.reconciliations.List(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// GetReconciliation godoc
//
//	@Summary	Get a reconciliation run with its adjusted balance and difference
//	@Tags		banking
//	@Param		id	path		string	true	"Reconciliation ID"
//	@Success	200	{object}	dto.Response
//	@Router		/banking/reconciliations/{id} [get]
func (h *BankingHandler) GetReconciliation(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	rec, err := h.reconciliations.Get(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// Match godoc
//
//	@Summary		Match a bank transaction
//	@Description	Pairs the transaction with the given ledger row, or with the best candidate in the match window
//	@Tags			banking
//	@Param			id		path		string			true	"Reconciliation ID"
//	@Param			request	body		MatchRequest	true	"Pairing"
//	@Success		200		{object}	dto.Response
//	@Failure		409		{object}	dto.Response	"Already matched"
//	@Router			/banking/reconciliations/{id}/match [post]
func (h *BankingHandler) Match(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	match, err := h.reconciliations.Match(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetUserID(c), bankingapp.MatchRequest{
		BankTransactionID: req.BankTransactionID,
		LedgerEntryID:     req.LedgerEntryID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, match)
}

// AutoMatch godoc
//
//	@Summary	Match every open transaction with its best candidate
//	@Tags		banking
//	@Param		id	path		string	true	"Reconciliation ID"
//	@Success	200	{object}	dto.Response
//	@Router		/banking/reconciliations/{id}/auto-match [post]
func (h *BankingHandler) AutoMatch(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.reconciliations.AutoMatch(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SuggestMatch godoc
//
//	@Summary	Rank ledger candidates for a bank transaction without matching
//	@Tags		banking
//	@Param		id				path		string	true	"Reconciliation ID"
//	@Param		transaction_id	path		string	true	"Bank transaction ID"
//	@Success	200				{object}	dto.Response
//	@Router		/banking/reconciliations/{id}/suggestions/{transaction_id} [get]
func (h *BankingHandler) SuggestMatch(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	txID, ok := h.pathUUID(c, "transaction_id")
	if !ok {
		return
	}
	candidates, err := h.reconciliations.SuggestMatch(c.Request.Context(), middleware.GetTenantID(c), id, txID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, candidates)
}

// AddAdjustment godoc
//
//	@Summary	Record a reconciling item
//	@Tags		banking
//	@Param		id		path		string				true	"Reconciliation ID"
//	@Param		request	body		AdjustmentRequest	true	"Adjustment"
//	@Success	201		{object}	dto.Response
//	@Router		/banking/reconciliations/{id}/adjustments [post]
func (h *BankingHandler) AddAdjustment(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	rec, err := h.reconciliations.AddAdjustment(c.Request.Context(), middleware.GetTenantID(c), id, bankingapp.AdjustmentRequest{
		Type:        strings.ToUpper(req.Type),
		Amount:      req.Amount,
		Date:        dateOrZero(date),
		Description: req.Description,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rec)
}

// RemoveAdjustment godoc
//
//	@Summary	Remove a reconciling item
//	@Tags		banking
//	@Param		id				path		string	true	"Reconciliation ID"
//	@Param		adjustment_id	path		string	true	"Adjustment ID"
//	@Success	200				{object}	dto.Response
//	@Router		/banking/reconciliations/{id}/adjustments/{adjustment_id} [delete]
func (h *BankingHandler) RemoveAdjustment(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	adjustmentID, ok := h.pathUUID(c, "adjustment_id")
	if !ok {
		return
	}
	rec, err := h.reconciliations.RemoveAdjustment(c.Request.Context(), middleware.GetTenantID(c), id, adjustmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// Unmatched godoc
//
//	@Summary	List statement lines the run has not matched
//	@Tags		banking
//	@Param		id	path		string	true	"Reconciliation ID"
//	@Success	200	{object}	dto.Response
//	@Router		/banking/reconciliations/{id}/unmatched [get]
func (h *BankingHandler) Unmatched(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	txs, err := h.reconciliations.Unmatched(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, txs)
}

// Complete godoc
//
//	@Summary	Complete a reconciliation run
//	@Tags		banking
//	@Param		id		path		string							true	"Reconciliation ID"
//	@Param		request	body		CompleteReconciliationRequest	false	"Override"
//	@Success	200		{object}	dto.Response
//	@Failure	422		{object}	dto.Response	"Difference is not zero"
//	@Router		/banking/reconciliations/{id}/complete [post]
func (h *BankingHandler) Complete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req CompleteReconciliationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	rec, err := h.reconciliations.Complete(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetUserID(c), bankingapp.CompleteRequest{
		Override: req.Override,
		Reason:   req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// Dispute godoc
//
//	@Summary	Dispute a reconciliation run
//	@Tags		banking
//	@Param		id		path		string			true	"Reconciliation ID"
//	@Param		request	body		ReasonRequest	true	"Reason"
//	@Success	200		{object}	dto.Response
//	@Router		/banking/reconciliations/{id}/dispute [post]
func (h *BankingHandler) Dispute(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	rec, err := h.reconciliations.Dispute(c.Request.Context(), middleware.GetTenantID(c), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// Reopen godoc
//
//	@Summary	Reopen a disputed reconciliation run
//	@Tags		banking
//	@Param		id	path		string	true	"Reconciliation ID"
//	@Success	200	{object}	dto.Response
//	@Router		/banking/reconciliations/{id}/reopen [post]
func (h *BankingHandler) Reopen(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	rec, err := h.reconciliations.Reopen(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// Cancel godoc
//
//	@Summary	Cancel a reconciliation run and release its matches
//	@Tags		banking
//	@Param		id		path		string					true	"Reconciliation ID"
//	@Param		request	body		OptionalReasonRequest	false	"Reason"
//	@Success	200		{object}	dto.Response
//	@Router		/banking/reconciliations/{id}/cancel [post]
func (h *BankingHandler) Cancel(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req OptionalReasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	rec, err := h.reconciliations.Cancel(c.Request.Context(), middleware.GetTenantID(c), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}
