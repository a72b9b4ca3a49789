package handler

import (
	"fmt"
	"net/http"
	"strings"

	ledgerapp "github.com/clutch/ledger/internal/application/ledger"
	"github.com/clutch/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// LedgerHandler serves the chart of accounts, journal posting, statements
// and the trial balance
type LedgerHandler struct {
	BaseHandler
	accounts   *ledgerapp.AccountService
	posting    *ledgerapp.PostingService
	statements *ledgerapp.StatementService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(accounts *ledgerapp.AccountService, posting *ledgerapp.PostingService, statements *ledgerapp.StatementService) *LedgerHandler {
	return &LedgerHandler{
		accounts:   accounts,
		posting:    posting,
		statements: statements,
	}
}

// CreateAccount godoc
// @ID           createLedgerAccount
//
//	@Summary		Open a ledger account
//	@Tags			ledger
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID"
//	@Param			request		body		CreateAccountRequest	true	"Account"
//	@Success		201			{object}	dto.Response
//	@Failure		400			{object}	dto.Response
//	@Failure		409			{object}	dto.Response
//	@Router			/ledger/accounts [post]
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	account, err := h.accounts.CreateAccount(c.Request.Context(), middleware.GetTenantID(c), req.toApp())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// SeedChart creates the default chart of accounts for the tenant
//
//	@Summary	Seed the default chart of accounts
//	@Tags		ledger
//	@Produce	json
//	@Success	200	{object}	dto.Response
//	@Router		/ledger/accounts/seed [post]
func (h *LedgerHandler) SeedChart(c *gin.Context) {
	result, err := h.accounts.SeedDefaultChart(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListAccounts godoc
//
//	@Summary	List ledger accounts
//	@Tags		ledger
//	@Produce	json
//	@Param		type		query		string	false	"Account type"
//	@Param		is_active	query		bool	false	"Active flag"
//	@Success	200			{object}	dto.Response
//	@Router		/ledger/accounts [get]
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	var ok bool
	var filter ledgerapp.AccountListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.ParentID, ok = h.queryUUID(c, "parent_id"); !ok {
		return
	}
	filter.Type = strings.ToUpper(filter.Type)
	page, err := h.accounts.ListAccounts(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// GetAccount godoc
//
//	@Summary	Get a ledger account
//	@Tags		ledger
//	@Produce	json
//	@Param		id	path		string	true	"Account ID"
//	@Success	200	{object}	dto.Response
//	@Failure	404	{object}	dto.Response
//	@Router		/ledger/accounts/{id} [get]
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	account, err := h.accounts.GetAccount(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// UpdateAccount renames or moves an account
//
//	@Summary	Update a ledger account
//	@Tags		ledger
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"Account ID"
//	@Param		request	body		UpdateAccountRequest	true	"Changes"
//	@Success	200		{object}	dto.Response
//	@Router		/ledger/accounts/{id} [put]
func (h *LedgerHandler) UpdateAccount(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	account, err := h.accounts.UpdateAccount(c.Request.Context(), middleware.GetTenantID(c), id, ledgerapp.UpdateAccountRequest{
		Name:        req.Name,
		Description: req.Description,
		MoveParent:  req.MoveParent,
		ParentID:    req.ParentID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Children lists the direct children of an account
//
//	@Summary	List child accounts
//	@Tags		ledger
//	@Param		id	path		string	true	"Account ID"
//	@Success	200	{object}	dto.Response
//	@Router		/ledger/accounts/{id}/children [get]
func (h *LedgerHandler) Children(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	children, err := h.accounts.Children(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, children)
}

// ResolvePath returns the ancestors of an account from the root down
//
//	@Summary	Resolve the path of an account
//	@Tags		ledger
//	@Param		id	path		string	true	"Account ID"
//	@Success	200	{object}	dto.Response
//	@Router		/ledger/accounts/{id}/path [get]
func (h *LedgerHandler) ResolvePath(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	path, err := h.accounts.ResolvePath(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, path)
}

// Deactivate godoc
//
//	@Summary	Deactivate a ledger account
//	@Tags		ledger
//	@Param		id	path		string	true	"Account ID"
//	@Success	200	{object}	dto.Response
//	@Failure	422	{object}	dto.Response	"Balance is not zero"
//	@Router		/ledger/accounts/{id}/deactivate [post]
func (h *LedgerHandler) Deactivate(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	account, err := h.accounts.Deactivate(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Activate godoc
//
//	@Summary	Reactivate a ledger account
//	@Tags		ledger
//	@Param		id	path		string	true	"Account ID"
//	@Success	200	{object}	dto.Response
//	@Router		/ledger/accounts/{id}/activate [post]
func (h *LedgerHandler) Activate(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	account, err := h.accounts.Activate(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// CreateEntry godoc
// @ID           createJournalEntry
//
//	@Summary		Create a journal entry
//	@Description	Stores a draft, or validates and posts it in one call when post is true
//	@Tags			ledger
//	@Accept			json
//	@Produce		json
//	@Param			X-User-ID	header		string						false	"Acting user"
//	@Param			request		body		CreateJournalEntryRequest	true	"Entry"
//	@Success		201			{object}	dto.Response
//	@Failure		422			{object}	dto.Response	"Unbalanced entry or inactive account"
//	@Router			/ledger/journal-entries [post]
func (h *LedgerHandler) CreateEntry(c *gin.Context) {
	var req CreateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	entryDate, err := parseDate("entry_date", req.EntryDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	entry, err := h.posting.CreateEntry(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), ledgerapp.CreateJournalEntryRequest{
		EntryDate:   dateOrZero(entryDate),
		Type:        strings.ToUpper(req.Type),
		Description: req.Description,
		Reference:   req.Reference,
		Lines:       toLineRequests(req.Lines),
		Post:        req.Post,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// GetEntry godoc
//
//	@Summary	Get a journal entry
//	@Tags		ledger
//	@Param		id	path		string	true	"Entry ID"
//	@Success	200	{object}	dto.Response
//	@Router		/ledger/journal-entries/{id} [get]
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.posting.GetEntry(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// ListEntries godoc
//
//	@Summary	List journal entries
//	@Tags		ledger
//	@Param		status		query		string	false	"DRAFT, POSTED, REVERSED or CANCELLED"
//	@Param		account_id	query		string	false	"Entries touching this account"
//	@Param		from		query		string	false	"From date (YYYY-MM-DD)"
//	@Param		to			query		string	false	"To date (YYYY-MM-DD)"
//	@Success	200			{object}	dto.Response
//	@Router		/ledger/journal-entries [get]
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	var ok bool
	var filter ledgerapp.JournalEntryListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.AccountID, ok = h.queryUUID(c, "account_id"); !ok {
		return
	}
	filter.Status = strings.ToUpper(filter.Status)
	filter.Type = strings.ToUpper(filter.Type)
	page, err := h.posting.ListEntries(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// UpdateDraft replaces the lines of a draft entry
//
//	@Summary	Update a draft entry
//	@Tags		ledger
//	@Param		id		path		string				true	"Entry ID"
//	@Param		request	body		UpdateDraftRequest	true	"Lines"
//	@Success	200		{object}	dto.Response
//	@Router		/ledger/journal-entries/{id} [put]
func (h *LedgerHandler) UpdateDraft(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	entry, err := h.posting.UpdateDraft(c.Request.Context(), middleware.GetTenantID(c), id, toLineRequests(req.Lines))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// PostDraft godoc
//
//	@Summary	Post a draft entry
//	@Tags		ledger
//	@Param		id	path		string	true	"Entry ID"
//	@Success	200	{object}	dto.Response
//	@Failure	422	{object}	dto.Response
//	@Router		/ledger/journal-entries/{id}/post [post]
func (h *LedgerHandler) PostDraft(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.posting.PostDraft(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Reverse godoc
//
//	@Summary	Reverse a posted entry
//	@Tags		ledger
//	@Param		id		path		string				true	"Entry ID"
//	@Param		request	body		ReverseEntryRequest	true	"Reason"
//	@Success	201		{object}	dto.Response
//	@Failure	422		{object}	dto.Response	"Entry is not posted"
//	@Router		/ledger/journal-entries/{id}/reverse [post]
func (h *LedgerHandler) Reverse(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req ReverseEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	entryDate, err := parseDate("entry_date", req.EntryDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	result, err := h.posting.Reverse(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetUserID(c), ledgerapp.ReverseEntryRequest{
		Reason:    req.Reason,
		EntryDate: entryDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// CancelDraft discards a draft entry
//
//	@Summary	Cancel a draft entry
//	@Tags		ledger
//	@Param		id		path		string				true	"Entry ID"
//	@Param		request	body		CancelDraftRequest	false	"Reason"
//	@Success	200		{object}	dto.Response
//	@Router		/ledger/journal-entries/{id}/cancel [post]
func (h *LedgerHandler) CancelDraft(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req CancelDraftRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	entry, err := h.posting.CancelDraft(c.Request.Context(), middleware.GetTenantID(c), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Statement godoc
//
//	@Summary	Account statement with running balance
//	@Tags		ledger
//	@Param		id		path		string	true	"Account ID"
//	@Param		from	query		string	false	"From date (YYYY-MM-DD)"
//	@Param		to		query		string	false	"To date (YYYY-MM-DD)"
//	@Success	200		{object}	dto.Response
//	@Router		/ledger/accounts/{id}/statement [get]
func (h *LedgerHandler) Statement(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	from, ok := h.queryDate(c, "from")
	if !ok {
		return
	}
	to, ok := h.queryDate(c, "to")
	if !ok {
		return
	}
	statement, err := h.statements.Statement(c.Request.Context(), middleware.GetTenantID(c), id, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, statement)
}

// ExportStatement godoc
//
//	@Summary	Download an account statement as a workbook
//	@Tags		ledger
//	@Produce	application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Param		id		path	string	true	"Account ID"
//	@Param		from	query	string	false	"From date (YYYY-MM-DD)"
//	@Param		to		query	string	false	"To date (YYYY-MM-DD)"
//	@Success	200		{file}	file
//	@Router		/ledger/accounts/{id}/statement/export [get]
func (h *LedgerHandler) ExportStatement(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	from, ok := h.queryDate(c, "from")
	if !ok {
		return
	}
	to, ok := h.queryDate(c, "to")
	if !ok {
		return
	}
	data, contentType, err := h.statements.ExportStatement(c.Request.Context(), middleware.GetTenantID(c), id, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.xlsx"`, id))
	c.Data(http.StatusOK, contentType, data)
}

// ReplayCheck re-derives an account balance from its ledger rows
//
//	@Summary	Check an account balance against its history
//	@Tags		ledger
//	@Param		id	path		string	true	"Account ID"
//	@Success	200	{object}	dto.Response
//	@Router		/ledger/accounts/{id}/replay-check [get]
func (h *LedgerHandler) ReplayCheck(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	drift, err := h.statements.ReplayCheck(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, drift)
}

// TrialBalance godoc
//
//	@Summary	Trial balance
//	@Tags		ledger
//	@Param		as_of	query		string	false	"Balances at the end of this day (YYYY-MM-DD)"
//	@Param		replay	query		bool	false	"Re-derive every account from its history"
//	@Success	200		{object}	dto.Response
//	@Router		/ledger/trial-balance [get]
func (h *LedgerHandler) TrialBalance(c *gin.Context) {
	var query ledgerapp.TrialBalanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	tb, err := h.statements.TrialBalance(c.Request.Context(), middleware.GetTenantID(c), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tb)
}
