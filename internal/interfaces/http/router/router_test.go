package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clutch/ledger/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.groups)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouter_MiddlewareScopedToAPI(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	r := NewRouter(engine).Use(func(c *gin.Context) {
		c.Header("X-Api", "1")
		c.Next()
	})
	r.Register(NewDomainGroup("ping", "/ping").GET("", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	}))
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Api"))

	w = serve(engine, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Api"))
}

func TestDomainGroup(t *testing.T) {
	ok := func(body string) gin.HandlerFunc {
		return func(c *gin.Context) { c.String(http.StatusOK, body) }
	}

	engine := gin.New()
	g := NewDomainGroup("books", "/books").
		Use(func(c *gin.Context) {
			c.Header("X-Group", "books")
			c.Next()
		}).
		GET("/:id", ok("get")).
		POST("", ok("post")).
		PUT("/:id", ok("put")).
		DELETE("/:id", ok("delete"))
	g.Group("entries", "/entries").GET("", ok("entries"))
	g.RegisterRoutes(engine.Group("/api/v1"))

	assert.Equal(t, "books", g.Name())
	assert.ElementsMatch(t, []Route{
		{http.MethodGet, "/books/:id"},
		{http.MethodPost, "/books"},
		{http.MethodPut, "/books/:id"},
		{http.MethodDelete, "/books/:id"},
		{http.MethodGet, "/books/entries"},
	}, g.Routes())

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/v1/books/1", "get"},
		{http.MethodPost, "/api/v1/books", "post"},
		{http.MethodPut, "/api/v1/books/1", "put"},
		{http.MethodDelete, "/api/v1/books/1", "delete"},
		{http.MethodGet, "/api/v1/books/entries", "entries"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(engine, tt.method, tt.path)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
			assert.Equal(t, "books", w.Header().Get("X-Group"))
		})
	}
}

func TestRegisterAll_Routes(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).RegisterAll(Handlers{
		Ledger:     handler.NewLedgerHandler(nil, nil, nil),
		Banking:    handler.NewBankingHandler(nil, nil),
		Settlement: handler.NewSettlementHandler(nil),
		Payout:     handler.NewPayoutHandler(nil),
	}).Setup()

	registered := make(map[string]bool)
	for _, rt := range engine.Routes() {
		registered[rt.Method+" "+rt.Path] = true
	}

	expected := []string{
		"POST /api/v1/ledger/accounts",
		"GET /api/v1/ledger/accounts",
		"GET /api/v1/ledger/accounts/:id",
		"GET /api/v1/ledger/accounts/:id/path",
		"POST /api/v1/ledger/accounts/:id/deactivate",
		"POST /api/v1/ledger/accounts/:id/activate",
		"GET /api/v1/ledger/accounts/:id/statement",
		"GET /api/v1/ledger/accounts/:id/statement/export",
		"POST /api/v1/ledger/journal-entries",
		"GET /api/v1/ledger/journal-entries",
		"GET /api/v1/ledger/journal-entries/:id",
		"POST /api/v1/ledger/journal-entries/:id/post",
		"POST /api/v1/ledger/journal-entries/:id/reverse",
		"GET /api/v1/ledger/trial-balance",
		"POST /api/v1/banking/accounts",
		"POST /api/v1/banking/accounts/:id/transactions",
		"POST /api/v1/banking/accounts/:id/feed-import",
		"POST /api/v1/banking/transactions/categorize",
		"GET /api/v1/banking/cash-flow",
		"POST /api/v1/banking/reconciliations",
		"GET /api/v1/banking/reconciliations/:id",
		"POST /api/v1/banking/reconciliations/:id/match",
		"POST /api/v1/banking/reconciliations/:id/adjustments",
		"GET /api/v1/banking/reconciliations/:id/unmatched",
		"POST /api/v1/banking/reconciliations/:id/complete",
		"POST /api/v1/banking/reconciliations/:id/dispute",
		"POST /api/v1/banking/reconciliations/:id/cancel",
		"PUT /api/v1/settlement/partners/:id/financial",
		"GET /api/v1/settlement/partners/:id/financial",
		"GET /api/v1/settlement/partners/:id/commissions/summary",
		"GET /api/v1/settlement/partners/:id/commissions/breakdown",
		"POST /api/v1/settlement/commissions/calculate",
		"POST /api/v1/settlement/commissions",
		"POST /api/v1/settlement/commissions/:id/cancel",
		"POST /api/v1/settlement/commissions/:id/refund",
		"POST /api/v1/payouts",
		"GET /api/v1/payouts",
		"GET /api/v1/payouts/:id",
		"GET /api/v1/payouts/weekly-summary",
		"POST /api/v1/payouts/:id/approve",
		"POST /api/v1/payouts/:id/process",
		"POST /api/v1/payouts/:id/complete",
		"POST /api/v1/payouts/:id/fail",
		"POST /api/v1/payouts/:id/cancel",
	}
	for _, route := range expected {
		assert.True(t, registered[route], "missing route %s", route)
	}
}

func TestRouter_SetupCountsAndListsRoutes(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2")).
		Register(NewDomainGroup("a", "/a").GET("", ok).POST("/:id/run", ok)).
		Register(NewDomainGroup("b", "/b").GET("/x", ok))

	counts := r.Setup()
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, counts)
	assert.Equal(t, []string{"GET /api/v2/a", "GET /api/v2/b/x", "POST /api/v2/a/:id/run"}, r.Routes())
	assert.Len(t, engine.Routes(), 3)
}

func TestRegisterAll_SkipsNilHandlers(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).RegisterAll(Handlers{Payout: handler.NewPayoutHandler(nil)}).Setup()

	for _, rt := range engine.Routes() {
		require.Contains(t, rt.Path, "/api/v1/payouts")
	}
}
