package handler_test

import (
	"net/http"
	"testing"

	"github.com/clutch/ledger/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payoutView struct {
	ID               uuid.UUID `json:"id"`
	Number           string    `json:"number"`
	Status           string    `json:"status"`
	TotalOrders      int       `json:"total_orders"`
	GrossCommission  string    `json:"gross_commission"`
	TotalDeductions  string    `json:"total_deductions"`
	NetPayout        string    `json:"net_payout"`
	PaymentReference string    `json:"payment_reference"`
	AuditLog         []any     `json:"audit_log"`
}

func TestPayoutAPI_Lifecycle(t *testing.T) {
	api := newAPI(t)
	partnerID := testutil.NewTestUUID("partner-1")
	api.configurePartner(t, partnerID)
	api.recordOrder(t, partnerID, "ORD-1", 2, "500")
	api.recordOrder(t, partnerID, "ORD-2", 3, "3000")

	var summary struct {
		TotalCount int64  `json:"total_count"`
		TotalNet   string `json:"total_net"`
		Partners   []struct {
			PartnerName string `json:"partner_name"`
		} `json:"partners"`
	}
	decode(t, api.do(t, http.MethodGet, "/payouts/weekly-summary?from="+day(1)+"&to="+day(7), nil), http.StatusOK, &summary)
	assert.Equal(t, int64(2), summary.TotalCount)
	assert.True(t, amount(summary.TotalNet).Equal(amount("3197.9")))
	require.Len(t, summary.Partners, 1)
	assert.Equal(t, "Garage One", summary.Partners[0].PartnerName)

	var p payoutView
	decode(t, api.do(t, http.MethodPost, "/payouts", gin.H{
		"partner_id":   partnerID,
		"period_start": day(1),
		"period_end":   day(7),
		"deductions": []gin.H{
			{"type": "cash_paid", "amount": "100", "order_ref": "ORD-1"},
		},
	}), http.StatusCreated, &p)
	assert.Equal(t, "PENDING", p.Status)
	assert.Equal(t, 2, p.TotalOrders)
	assert.True(t, amount(p.GrossCommission).Equal(amount("3197.9")))
	assert.True(t, amount(p.NetPayout).Equal(amount("3097.9")))
	base := "/payouts/" + p.ID.String()

	failure(t, api.do(t, http.MethodPost, base+"/complete", gin.H{"payment_reference": "TRX-1"}),
		http.StatusUnprocessableEntity, "INVALID_STATE")

	decode(t, api.do(t, http.MethodPost, base+"/approve", nil), http.StatusOK, &p)
	assert.Equal(t, "APPROVED", p.Status)
	decode(t, api.do(t, http.MethodPost, base+"/process", nil), http.StatusOK, &p)
	assert.Equal(t, "PROCESSING", p.Status)

	failure(t, api.do(t, http.MethodPost, base+"/complete", gin.H{}), http.StatusBadRequest, "VALIDATION_ERROR")

	decode(t, api.do(t, http.MethodPost, base+"/complete", gin.H{
		"payment_reference": "TRX-1",
		"entry_date":        day(8),
	}), http.StatusOK, &p)
	assert.Equal(t, "COMPLETED", p.Status)
	assert.Equal(t, "TRX-1", p.PaymentReference)
	assert.Len(t, p.AuditLog, 4)

	env := decode(t, api.do(t, http.MethodGet, "/payouts?status=completed&partner_id="+partnerID.String(), nil), http.StatusOK, nil)
	assert.Equal(t, int64(1), env.Meta.Total)
}

func TestPayoutAPI_CancelReleasesCommissions(t *testing.T) {
	api := newAPI(t)
	partnerID := testutil.NewTestUUID("partner-1")
	api.configurePartner(t, partnerID)
	api.recordOrder(t, partnerID, "ORD-1", 2, "500")

	batch := gin.H{"partner_id": partnerID, "period_start": day(1), "period_end": day(7)}
	var p payoutView
	decode(t, api.do(t, http.MethodPost, "/payouts", batch), http.StatusCreated, &p)

	failure(t, api.do(t, http.MethodPost, "/payouts", batch), http.StatusConflict, "DOUBLE_CLAIM")

	decode(t, api.do(t, http.MethodPost, "/payouts/"+p.ID.String()+"/cancel", nil), http.StatusOK, &p)
	assert.Equal(t, "CANCELLED", p.Status)

	var again payoutView
	decode(t, api.do(t, http.MethodPost, "/payouts", batch), http.StatusCreated, &again)
	assert.Equal(t, 1, again.TotalOrders)
}

func TestPayoutAPI_Validation(t *testing.T) {
	api := newAPI(t)

	failure(t, api.do(t, http.MethodPost, "/payouts", gin.H{
		"partner_id": uuid.New(), "period_start": day(7), "period_end": day(1),
	}), http.StatusBadRequest, "INVALID_INPUT")

	failure(t, api.do(t, http.MethodGet, "/payouts/weekly-summary?from=yesterday", nil), http.StatusBadRequest, "BAD_REQUEST")
	failure(t, api.do(t, http.MethodGet, "/payouts/"+uuid.NewString(), nil), http.StatusNotFound, "NOT_FOUND")
}
