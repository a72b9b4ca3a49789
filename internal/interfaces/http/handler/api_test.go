package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	bankingapp "github.com/clutch/ledger/internal/application/banking"
	payoutapp "github.com/clutch/ledger/internal/application/payout"
	settlementapp "github.com/clutch/ledger/internal/application/settlement"
	"github.com/clutch/ledger/internal/interfaces/http/handler"
	"github.com/clutch/ledger/internal/interfaces/http/middleware"
	"github.com/clutch/ledger/internal/interfaces/http/router"
	"github.com/clutch/ledger/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// envelope mirrors dto.Response with the payload left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

type apiFixture struct {
	*testutil.LedgerFixture
	Engine *gin.Engine
}

// newAPI serves every route over a seeded in-memory ledger
func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	f := testutil.NewLedgerFixture(t)
	repos := f.Repos

	feed := bankingapp.NewBankFeedService(repos.BankAccounts(), repos.BankTransactions(), repos.Accounts(), f.Locker, nil, nil)
	recon := bankingapp.NewReconciliationService(repos.Reconciliations(), repos.BankAccounts(), repos.BankTransactions(),
		f.Scope, f.Locker, f.Numbers, bankingapp.ReconciliationOptions{})
	commissions := settlementapp.NewCommissionService(repos.PartnerFinancials(), repos.Commissions(), repos.Accounts(),
		f.Scope, f.Locker, f.Journal, nil, nil)
	payouts := payoutapp.NewPayoutService(repos.Payouts(), repos.Commissions(), repos.PartnerFinancials(), repos.Accounts(),
		f.Scope, f.Locker, f.Numbers, f.Journal, payoutapp.Options{})

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Identity(middleware.DefaultTenantID))
	engine.GET("/health", handler.NewHealthHandler(pingFunc(func() error { return nil })).Check)
	router.NewRouter(engine).RegisterAll(router.Handlers{
		Ledger:     handler.NewLedgerHandler(f.Accounts, f.Posting, f.Statement),
		Banking:    handler.NewBankingHandler(feed, recon),
		Settlement: handler.NewSettlementHandler(commissions),
		Payout:     handler.NewPayoutHandler(payouts),
	}).Setup()

	return &apiFixture{LedgerFixture: f, Engine: engine}
}

type pingFunc func() error

func (p pingFunc) Ping() error { return p() }

// do sends body as JSON on behalf of the fixture tenant
func (a *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return a.doAs(t, a.TenantID, method, path, body)
}

func (a *apiFixture) doAs(t *testing.T, tenant uuid.UUID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.TenantHeaderKey, tenant.String())
	req.Header.Set(middleware.UserHeaderKey, testutil.TestUserID().String())

	w := httptest.NewRecorder()
	a.Engine.ServeHTTP(w, req)
	return w
}

// decode checks the status and unpacks the data of a response into out
func decode(t *testing.T, w *httptest.ResponseRecorder, status int, out any) envelope {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

// failure checks the status and error code of a rejected request
func failure(t *testing.T, w *httptest.ResponseRecorder, status int, code string) envelope {
	t.Helper()
	env := decode(t, w, status, nil)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code, w.Body.String())
	return env
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(d int) string {
	return testutil.Day(d).Format(handler.DateLayout)
}

type idOnly struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// postEntry posts Dr debit / Cr credit through the API
func (a *apiFixture) postEntry(t *testing.T, d int, value, debit, credit string) idOnly {
	t.Helper()
	var entry idOnly
	decode(t, a.do(t, http.MethodPost, "/ledger/journal-entries", gin.H{
		"entry_date":  day(d),
		"description": "movement",
		"post":        true,
		"lines": []gin.H{
			{"account_id": a.Account(t, debit).ID, "debit": value},
			{"account_id": a.Account(t, credit).ID, "credit": value},
		},
	}), http.StatusCreated, &entry)
	return entry
}
