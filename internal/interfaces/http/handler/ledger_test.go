package handler_test

import (
	"net/http"
	"testing"

	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerAPI_PostAndReport(t *testing.T) {
	api := newAPI(t)
	bank := api.Account(t, ledger.AccountNumberBank)

	entry := api.postEntry(t, 2, "1000.00", ledger.AccountNumberBank, ledger.AccountNumberCapital)
	assert.Equal(t, "POSTED", entry.Status)

	var got struct {
		EntryNumber string `json:"entry_number"`
		Lines       []any  `json:"lines"`
	}
	decode(t, api.do(t, http.MethodGet, "/ledger/journal-entries/"+entry.ID.String(), nil), http.StatusOK, &got)
	assert.Len(t, got.Lines, 2)
	assert.NotEmpty(t, got.EntryNumber)

	t.Run("statement", func(t *testing.T) {
		var statement struct {
			ClosingBalance string `json:"closing_balance"`
			Lines          []any  `json:"lines"`
		}
		path := "/ledger/accounts/" + bank.ID.String() + "/statement?from=2026-03-01&to=2026-03-31"
		decode(t, api.do(t, http.MethodGet, path, nil), http.StatusOK, &statement)
		assert.True(t, amount(statement.ClosingBalance).Equal(amount("1000")))
		assert.Len(t, statement.Lines, 1)
	})

	t.Run("statement export", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/ledger/accounts/"+bank.ID.String()+"/statement/export", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "statement-"+bank.ID.String()+".xlsx")
		assert.NotEmpty(t, w.Body.Bytes())
	})

	t.Run("trial balance", func(t *testing.T) {
		var tb struct {
			Status      string `json:"status"`
			TotalDebit  string `json:"total_debit"`
			TotalCredit string `json:"total_credit"`
		}
		decode(t, api.do(t, http.MethodGet, "/ledger/trial-balance?replay=true", nil), http.StatusOK, &tb)
		assert.Equal(t, "BALANCED", tb.Status)
		assert.True(t, amount(tb.TotalDebit).Equal(amount(tb.TotalCredit)))
	})

	t.Run("list filtered by account", func(t *testing.T) {
		env := decode(t, api.do(t, http.MethodGet, "/ledger/journal-entries?account_id="+bank.ID.String(), nil), http.StatusOK, nil)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(1), env.Meta.Total)
	})

	t.Run("reverse", func(t *testing.T) {
		var reversal idOnly
		decode(t, api.do(t, http.MethodPost, "/ledger/journal-entries/"+entry.ID.String()+"/reverse", gin.H{
			"reason":     "wrong account",
			"entry_date": day(3),
		}), http.StatusCreated, &reversal)
		assert.NotEqual(t, entry.ID, reversal.ID)

		failure(t, api.do(t, http.MethodPost, "/ledger/journal-entries/"+entry.ID.String()+"/reverse", gin.H{
			"reason": "again",
		}), http.StatusUnprocessableEntity, "INVALID_STATE")
	})
}

func TestLedgerAPI_Unbalanced(t *testing.T) {
	api := newAPI(t)

	env := failure(t, api.do(t, http.MethodPost, "/ledger/journal-entries", gin.H{
		"entry_date":  day(2),
		"description": "off by ten",
		"post":        true,
		"lines": []gin.H{
			{"account_id": api.Account(t, ledger.AccountNumberBank).ID, "debit": "100"},
			{"account_id": api.Account(t, ledger.AccountNumberCapital).ID, "credit": "90"},
		},
	}), http.StatusUnprocessableEntity, "UNBALANCED_ENTRY")
	assert.Equal(t, "10.00", env.Error.Details["difference"])
}

func TestLedgerAPI_RejectsBadInput(t *testing.T) {
	api := newAPI(t)
	bank := api.Account(t, ledger.AccountNumberBank).ID
	capital := api.Account(t, ledger.AccountNumberCapital).ID

	tests := []struct {
		name   string
		body   gin.H
		status int
		code   string
	}{
		{
			name: "single line",
			body: gin.H{"entry_date": day(2), "description": "x", "lines": []gin.H{
				{"account_id": bank, "debit": "1"},
			}},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name: "negative amount",
			body: gin.H{"entry_date": day(2), "description": "x", "lines": []gin.H{
				{"account_id": bank, "debit": "-1"},
				{"account_id": capital, "credit": "-1"},
			}},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name: "malformed date",
			body: gin.H{"entry_date": "02/03/2026", "description": "x", "lines": []gin.H{
				{"account_id": bank, "debit": "1"},
				{"account_id": capital, "credit": "1"},
			}},
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
		},
		{
			name: "unknown account",
			body: gin.H{"entry_date": day(2), "description": "x", "post": true, "lines": []gin.H{
				{"account_id": uuid.New(), "debit": "1"},
				{"account_id": capital, "credit": "1"},
			}},
			status: http.StatusUnprocessableEntity,
			code:   "INVALID_ACCOUNT_STATE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failure(t, api.do(t, http.MethodPost, "/ledger/journal-entries", tt.body), tt.status, tt.code)
		})
	}

	t.Run("malformed path id", func(t *testing.T) {
		failure(t, api.do(t, http.MethodGet, "/ledger/accounts/not-a-uuid", nil), http.StatusBadRequest, "BAD_REQUEST")
	})
}

func TestLedgerAPI_TenantIsolation(t *testing.T) {
	api := newAPI(t)
	entry := api.postEntry(t, 2, "50", ledger.AccountNumberBank, ledger.AccountNumberCapital)

	w := api.doAs(t, uuid.New(), http.MethodGet, "/ledger/journal-entries/"+entry.ID.String(), nil)
	failure(t, w, http.StatusNotFound, "NOT_FOUND")
}

func TestLedgerAPI_Accounts(t *testing.T) {
	api := newAPI(t)
	assets := api.Account(t, "1000")

	var created struct {
		ID       uuid.UUID `json:"id"`
		Type     string    `json:"type"`
		IsActive bool      `json:"is_active"`
	}
	decode(t, api.do(t, http.MethodPost, "/ledger/accounts", gin.H{
		"number":    "1030",
		"name":      "Savings",
		"type":      "asset",
		"subtype":   "bank",
		"parent_id": assets.ID,
	}), http.StatusCreated, &created)
	assert.Equal(t, "ASSET", created.Type)

	failure(t, api.do(t, http.MethodPost, "/ledger/accounts", gin.H{
		"number": "1030", "name": "Duplicate", "type": "ASSET",
	}), http.StatusConflict, "ALREADY_EXISTS")

	var path []struct {
		Number string `json:"number"`
	}
	decode(t, api.do(t, http.MethodGet, "/ledger/accounts/"+created.ID.String()+"/path", nil), http.StatusOK, &path)
	require.Len(t, path, 2)
	assert.Equal(t, "1000", path[0].Number)

	decode(t, api.do(t, http.MethodPost, "/ledger/accounts/"+created.ID.String()+"/deactivate", nil), http.StatusOK, nil)
	env := decode(t, api.do(t, http.MethodGet, "/ledger/accounts?type=asset&is_active=false", nil), http.StatusOK, nil)
	require.NotNil(t, env.Meta)
	assert.GreaterOrEqual(t, env.Meta.Total, int64(1))
}
