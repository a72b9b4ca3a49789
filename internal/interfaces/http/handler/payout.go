package handler

import (
	"strings"
	"time"

	payoutapp "github.com/clutch/ledger/internal/application/payout"
	"github.com/clutch/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// PayoutHandler serves partner payouts
type PayoutHandler struct {
	BaseHandler
	payouts *payoutapp.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler
func NewPayoutHandler(payouts *payoutapp.PayoutService) *PayoutHandler {
	return &PayoutHandler{payouts: payouts}
}

// Batch godoc
//
//	@Summary		Create a payout
//	@Description	Batches the partner's unpaid commissions of the period, recovers pending returns and applies deductions
//	@Tags			payouts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		BatchPayoutRequest	true	"Period and deductions"
//	@Success		201		{object}	dto.Response
//	@Failure		422		{object}	dto.Response	"Nothing to pay out"
//	@Router			/payouts [post]
func (h *PayoutHandler) Batch(c *gin.Context) {
	var req BatchPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	appReq, err := req.toApp()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	p, err := h.payouts.Batch(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// List godoc
//
//	@Summary	List payouts
//	@Tags		payouts
//	@Param		partner_id	query		string	false	"Partner"
//	@Param		status		query		string	false	"Status"
//	@Success	200			{object}	dto.Response
//	@Router		/payouts [get]
func (h *PayoutHandler) List(c *gin.Context) {
	var ok bool
	var filter payoutapp.PayoutListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.PartnerID, ok = h.queryUUID(c, "partner_id"); !ok {
		return
	}
	filter.Status = strings.ToUpper(filter.Status)
	page, err := h.payouts.List(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Get godoc
//
//	@Summary	Get a payout with its items and audit log
//	@Tags		payouts
//	@Param		id	path		string	true	"Payout ID"
//	@Success	200	{object}	dto.Response
//	@Router		/payouts/{id} [get]
func (h *PayoutHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.payouts.Get(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Approve godoc
//
//	@Summary	Approve a pending payout
//	@Tags		payouts
//	@Param		id	path		string	true	"Payout ID"
//	@Success	200	{object}	dto.Response
//	@Failure	422	{object}	dto.Response	"Invalid transition"
//	@Router		/payouts/{id}/approve [post]
func (h *PayoutHandler) Approve(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.payouts.Approve(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Process godoc
//
//	@Summary	Mark an approved payout as processing
//	@Tags		payouts
//	@Param		id	path		string	true	"Payout ID"
//	@Success	200	{object}	dto.Response
//	@Router		/payouts/{id}/process [post]
func (h *PayoutHandler) Process(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.payouts.StartProcessing(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Complete godoc
//
//	@Summary		Complete a payout
//	@Description	Records the payment reference, posts the transfer and marks the batched commissions paid
//	@Tags			payouts
//	@Param			id		path		string					true	"Payout ID"
//	@Param			request	body		CompletePayoutRequest	true	"Payment"
//	@Success		200		{object}	dto.Response
//	@Router			/payouts/{id}/complete [post]
func (h *PayoutHandler) Complete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req CompletePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	entryDate, err := parseDate("entry_date", req.EntryDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	p, err := h.payouts.Complete(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetUserID(c), payoutapp.CompletePayoutRequest{
		PaymentReference: req.PaymentReference,
		EntryDate:        entryDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Fail godoc
//
//	@Summary	Mark a processing payout as failed
//	@Tags		payouts
//	@Param		id		path		string			true	"Payout ID"
//	@Param		request	body		ReasonRequest	true	"Reason"
//	@Success	200		{object}	dto.Response
//	@Router		/payouts/{id}/fail [post]
func (h *PayoutHandler) Fail(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	p, err := h.payouts.Fail(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetUserID(c), payoutapp.TransitionRequest{Reason: req.Reason})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Cancel godoc
//
//	@Summary	Cancel a payout and release its commissions
//	@Tags		payouts
//	@Param		id		path		string					true	"Payout ID"
//	@Param		request	body		OptionalReasonRequest	false	"Reason"
//	@Success	200		{object}	dto.Response
//	@Router		/payouts/{id}/cancel [post]
func (h *PayoutHandler) Cancel(c *gin.Context) {
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
	p, err := h.payouts.Cancel(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetUserID(c), payoutapp.TransitionRequest{Reason: req.Reason})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// WeeklySummary godoc
//
//	@Summary		Unpaid commissions per partner
//	@Description	Defaults to the current ISO week
//	@Tags			payouts
//	@Param			from	query		string	false	"From (YYYY-MM-DD)"
//	@Param			to		query		string	false	"To (YYYY-MM-DD)"
//	@Success		200		{object}	dto.Response
//	@Router			/payouts/weekly-summary [get]
func (h *PayoutHandler) WeeklySummary(c *gin.Context) {
	from, ok := h.queryDate(c, "from")
	if !ok {
		return
	}
	to, ok := h.queryDate(c, "to")
	if !ok {
		return
	}
	weekStart, weekEnd := currentWeek(time.Now().UTC())
	if from == nil {
		from = &weekStart
	}
	if to == nil {
		to = &weekEnd
	}
	summary, err := h.payouts.WeeklySummary(c.Request.Context(), middleware.GetTenantID(c), *from, *to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Generate godoc
//
//	@Summary		Generate payouts for every partner whose schedule is due
//	@Description	Runs the scheduled generation pass on demand
//	@Tags			payouts
//	@Param			request	body		GeneratePayoutsRequest	false	"Reference date"
//	@Success		200		{object}	dto.Response
//	@Router			/payouts/generate [post]
func (h *PayoutHandler) Generate(c *gin.Context) {
	var req GeneratePayoutsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	asOf, err := parseDate("as_of", req.AsOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if asOf == nil {
		now := time.Now().UTC().Truncate(24 * time.Hour)
		asOf = &now
	}
	result, err := h.payouts.GeneratePayouts(c.Request.Context(), middleware.GetTenantID(c), *asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// currentWeek returns Monday 00:00 and Sunday 00:00 of the week containing t
func currentWeek(t time.Time) (time.Time, time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}
