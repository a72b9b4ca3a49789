package handler

import (
	"context"

	settlementapp "github.com/clutch/ledger/internal/application/settlement"
	"github.com/clutch/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettlementHandler serves partner financial configuration and commissions
type SettlementHandler struct {
	BaseHandler
	commissions *settlementapp.CommissionService
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(commissions *settlementapp.CommissionService) *SettlementHandler {
	return &SettlementHandler{commissions: commissions}
}

// ConfigurePartner godoc
//
//	@Summary		Configure partner financials
//	@Description	Creates or replaces the commission structure, markup, VAT and payout schedule of a partner
//	@Tags			settlement
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Partner ID"
//	@Param			request	body		ConfigurePartnerRequest	true	"Configuration"
//	@Success		200		{object}	dto.Response
//	@Router			/settlement/partners/{id}/financial [put]
func (h *SettlementHandler) ConfigurePartner(c *gin.Context) {
	partnerID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req ConfigurePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	appReq, err := req.toApp()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	pf, err := h.commissions.ConfigurePartner(c.Request.Context(), middleware.GetTenantID(c), partnerID, appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pf)
}

// GetPartner godoc
//
//	@Summary	Get partner financials
//	@Tags		settlement
//	@Param		id	path		string	true	"Partner ID"
//	@Success	200	{object}	dto.Response
//	@Failure	404	{object}	dto.Response
//	@Router		/settlement/partners/{id}/financial [get]
func (h *SettlementHandler) GetPartner(c *gin.Context) {
	partnerID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	pf, err := h.commissions.GetPartner(c.Request.Context(), middleware.GetTenantID(c), partnerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pf)
}

// Calculate godoc
//
//	@Summary	Preview the split of an order
//	@Tags		settlement
//	@Param		request	body		OrderRequest	true	"Order"
//	@Success	200		{object}	dto.Response
//	@Router		/settlement/commissions/calculate [post]
func (h *SettlementHandler) Calculate(c *gin.Context) {
	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	appReq, err := req.toApp()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	split, err := h.commissions.Calculate(c.Request.Context(), middleware.GetTenantID(c), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, split)
}

// RecordCommission godoc
//
//	@Summary		Record the commission of an order
//	@Description	Posts the split to the ledger. An order is recorded once.
//	@Tags			settlement
//	@Param			request	body		OrderRequest	true	"Order"
//	@Success		201		{object}	dto.Response
//	@Failure		409		{object}	dto.Response	"Order already recorded"
//	@Router			/settlement/commissions [post]
func (h *SettlementHandler) RecordCommission(c *gin.Context) {
	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	appReq, err := req.toApp()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	commission, err := h.commissions.RecordCommission(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, commission)
}

// ListCommissions godoc
//
//	@Summary	List commissions
//	@Tags		settlement
//	@Param		partner_id	query		string	false	"Partner"
//	@Param		status		query		string	false	"Status"
//	@Param		from		query		string	false	"Order date from (YYYY-MM-DD)"
//	@Param		to			query		string	false	"Order date to (YYYY-MM-DD)"
//	@Success	200			{object}	dto.Response
//	@Router		/settlement/commissions [get]
func (h *SettlementHandler) ListCommissions(c *gin.Context) {
	var ok bool
	var filter settlementapp.CommissionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.PartnerID, ok = h.queryUUID(c, "partner_id"); !ok {
		return
	}
	page, err := h.commissions.ListCommissions(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// GetCommission godoc
//
//	@Summary	Get a commission with its calculation detail
//	@Tags		settlement
//	@Param		id	path		string	true	"Commission ID"
//	@Success	200	{object}	dto.Response
//	@Router		/settlement/commissions/{id} [get]
func (h *SettlementHandler) GetCommission(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	commission, err := h.commissions.GetCommission(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, commission)
}

// CancelCommission godoc
//
//	@Summary	Cancel an unpaid commission and reverse its posting
//	@Tags		settlement
//	@Param		id		path		string					true	"Commission ID"
//	@Param		request	body		VoidCommissionRequest	true	"Reason"
//	@Success	200		{object}	dto.Response
//	@Router		/settlement/commissions/{id}/cancel [post]
func (h *SettlementHandler) CancelCommission(c *gin.Context) {
	h.void(c, h.commissions.CancelCommission)
}

// RefundCommission godoc
//
//	@Summary		Refund a commission
//	@Description	Unpaid commissions are reversed; paid ones become a pending return deducted from the next payout
//	@Tags			settlement
//	@Param			id		path		string					true	"Commission ID"
//	@Param			request	body		VoidCommissionRequest	true	"Reason"
//	@Success		200		{object}	dto.Response
//	@Router			/settlement/commissions/{id}/refund [post]
func (h *SettlementHandler) RefundCommission(c *gin.Context) {
	h.void(c, h.commissions.RefundCommission)
}

type voidFunc func(ctx context.Context, tenantID, id uuid.UUID, actor *uuid.UUID, req settlementapp.VoidRequest) (*settlementapp.CommissionResponse, error)

func (h *SettlementHandler) void(c *gin.Context, op voidFunc) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req VoidCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	appReq, err := req.toApp()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	commission, err := op(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetUserID(c), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, commission)
}

// Summary godoc
//
//	@Summary	Commission totals of a partner grouped by status
//	@Tags		settlement
//	@Param		id	path		string	true	"Partner ID"
//	@Success	200	{object}	dto.Response
//	@Router		/settlement/partners/{id}/commissions/summary [get]
func (h *SettlementHandler) Summary(c *gin.Context) {
	partnerID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	summary, err := h.commissions.Summary(c.Request.Context(), middleware.GetTenantID(c), partnerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Breakdown godoc
//
//	@Summary	Commission trends of a partner over a trailing window
//	@Tags		settlement
//	@Param		id		path		string	true	"Partner ID"
//	@Param		period	query		string	false	"7d, 30d, 90d or 1y"	default(30d)
//	@Param		as_of	query		string	false	"Last day of the window, YYYY-MM-DD"
//	@Success	200		{object}	dto.Response
//	@Router		/settlement/partners/{id}/commissions/breakdown [get]
func (h *SettlementHandler) Breakdown(c *gin.Context) {
	partnerID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	req := settlementapp.BreakdownRequest{Period: c.Query("period")}
	if req.AsOf, ok = h.queryDate(c, "as_of"); !ok {
		return
	}
	breakdown, err := h.commissions.Breakdown(c.Request.Context(), middleware.GetTenantID(c), partnerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, breakdown)
}
