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

type reconciliationView struct {
	ID                  uuid.UUID `json:"id"`
	Status              string    `json:"status"`
	Difference          string    `json:"difference"`
	AdjustedBookBalance string    `json:"adjusted_book_balance"`
	Matches             []any     `json:"matches"`
	Adjustments         []struct {
		ID uuid.UUID `json:"id"`
	} `json:"adjustments"`
}

func (a *apiFixture) createBankAccount(t *testing.T) uuid.UUID {
	t.Helper()
	var bank idOnly
	decode(t, a.do(t, http.MethodPost, "/banking/accounts", gin.H{
		"name":              "Operating",
		"bank_name":         "First Bank",
		"account_number":    "001234567890",
		"ledger_account_id": a.Account(t, ledger.AccountNumberBank).ID,
	}), http.StatusCreated, &bank)
	return bank.ID
}

func TestBankingAPI_ReconcileWithBankFee(t *testing.T) {
	api := newAPI(t)
	bankID := api.createBankAccount(t)
	api.postEntry(t, 2, "1040", ledger.AccountNumberBank, ledger.AccountNumberCapital)

	var imported struct {
		Imported     int `json:"imported"`
		Skipped      int `json:"skipped"`
		Transactions []struct {
			ID uuid.UUID `json:"id"`
		} `json:"transactions"`
	}
	lines := gin.H{"transactions": []gin.H{
		{"external_id": "B-1", "date": day(2), "amount": "1040", "description": "owner deposit"},
	}}
	decode(t, api.do(t, http.MethodPost, "/banking/accounts/"+bankID.String()+"/transactions", lines), http.StatusCreated, &imported)
	require.Equal(t, 1, imported.Imported)
	require.Len(t, imported.Transactions, 1)
	txID := imported.Transactions[0].ID

	decode(t, api.do(t, http.MethodPost, "/banking/accounts/"+bankID.String()+"/transactions", lines), http.StatusCreated, &imported)
	assert.Equal(t, 0, imported.Imported)
	assert.Equal(t, 1, imported.Skipped)

	var rec reconciliationView
	decode(t, api.do(t, http.MethodPost, "/banking/reconciliations", gin.H{
		"bank_account_id":   bankID,
		"statement_date":    day(10),
		"statement_balance": "1000",
	}), http.StatusCreated, &rec)
	assert.True(t, amount(rec.Difference).Equal(amount("-40")))
	base := "/banking/reconciliations/" + rec.ID.String()

	failure(t, api.do(t, http.MethodPost, "/banking/reconciliations", gin.H{
		"bank_account_id":   bankID,
		"statement_date":    day(11),
		"statement_balance": "1000",
	}), http.StatusUnprocessableEntity, "INVALID_STATE")

	t.Run("match the deposit", func(t *testing.T) {
		decode(t, api.do(t, http.MethodPost, base+"/match", gin.H{"bank_transaction_id": txID}), http.StatusOK, nil)

		var unmatched []any
		decode(t, api.do(t, http.MethodGet, base+"/unmatched", nil), http.StatusOK, &unmatched)
		assert.Empty(t, unmatched)

		failure(t, api.do(t, http.MethodPost, base+"/match", gin.H{"bank_transaction_id": txID}), http.StatusUnprocessableEntity, "INVALID_STATE")
	})

	t.Run("difference blocks completion", func(t *testing.T) {
		env := failure(t, api.do(t, http.MethodPost, base+"/complete", nil), http.StatusUnprocessableEntity, "UNRECONCILED_DIFFERENCE")
		assert.Equal(t, "-40.00", env.Error.Details["difference"])
	})

	t.Run("fee sign is enforced", func(t *testing.T) {
		failure(t, api.do(t, http.MethodPost, base+"/adjustments", gin.H{
			"type": "BANK_FEE", "amount": "40",
		}), http.StatusBadRequest, "INVALID_INPUT")
	})

	decode(t, api.do(t, http.MethodPost, base+"/adjustments", gin.H{
		"type": "bank_fee", "amount": "-40", "description": "monthly fee",
	}), http.StatusCreated, &rec)
	assert.True(t, amount(rec.Difference).IsZero())
	assert.True(t, amount(rec.AdjustedBookBalance).Equal(amount("1000")))

	decode(t, api.do(t, http.MethodPost, base+"/complete", nil), http.StatusOK, &rec)
	assert.Equal(t, "COMPLETED", rec.Status)

	decode(t, api.do(t, http.MethodGet, base, nil), http.StatusOK, &rec)
	assert.Len(t, rec.Matches, 1)
}

func TestBankingAPI_OverrideNeedsReason(t *testing.T) {
	api := newAPI(t)
	bankID := api.createBankAccount(t)
	api.postEntry(t, 2, "300", ledger.AccountNumberBank, ledger.AccountNumberCapital)

	var rec reconciliationView
	decode(t, api.do(t, http.MethodPost, "/banking/reconciliations", gin.H{
		"bank_account_id":   bankID,
		"statement_date":    day(5),
		"statement_balance": "310",
	}), http.StatusCreated, &rec)
	base := "/banking/reconciliations/" + rec.ID.String()

	failure(t, api.do(t, http.MethodPost, base+"/complete", gin.H{"override": true}), http.StatusBadRequest, "VALIDATION_ERROR")

	decode(t, api.do(t, http.MethodPost, base+"/complete", gin.H{
		"override": true, "reason": "bank error, ticket raised",
	}), http.StatusOK, &rec)
	assert.Equal(t, "COMPLETED", rec.Status)
}

func TestBankingAPI_Validation(t *testing.T) {
	api := newAPI(t)
	bankID := api.createBankAccount(t)

	t.Run("bank account must bind a bank ledger account", func(t *testing.T) {
		failure(t, api.do(t, http.MethodPost, "/banking/accounts", gin.H{
			"name":              "Wrong",
			"bank_name":         "First Bank",
			"account_number":    "1111",
			"ledger_account_id": api.Account(t, ledger.AccountNumberCapital).ID,
		}), http.StatusBadRequest, "INVALID_INPUT")
	})

	t.Run("empty import", func(t *testing.T) {
		failure(t, api.do(t, http.MethodPost, "/banking/accounts/"+bankID.String()+"/transactions",
			gin.H{"transactions": []gin.H{}}), http.StatusBadRequest, "VALIDATION_ERROR")
	})

	t.Run("unknown category", func(t *testing.T) {
		failure(t, api.do(t, http.MethodPost, "/banking/transactions/categorize", gin.H{
			"transaction_ids": []uuid.UUID{uuid.New()},
			"category":        "groceries",
		}), http.StatusBadRequest, "VALIDATION_ERROR")
	})

	t.Run("feed import without a configured feed", func(t *testing.T) {
		failure(t, api.do(t, http.MethodPost, "/banking/accounts/"+bankID.String()+"/feed-import",
			gin.H{"object_key": "2026-03.csv"}), http.StatusUnprocessableEntity, "INVALID_STATE")
	})

	t.Run("malformed bank account filter", func(t *testing.T) {
		failure(t, api.do(t, http.MethodGet, "/banking/transactions?bank_account_id=nope", nil), http.StatusBadRequest, "BAD_REQUEST")
	})
}

func TestBankingAPI_CashFlow(t *testing.T) {
	api := newAPI(t)
	bankID := api.createBankAccount(t)
	decode(t, api.do(t, http.MethodPost, "/banking/accounts/"+bankID.String()+"/transactions", gin.H{"transactions": []gin.H{
		{"external_id": "CF-1", "date": day(2), "amount": "1200", "category": "income"},
		{"external_id": "CF-2", "date": day(3), "amount": "-200", "category": "expense"},
		{"external_id": "CF-3", "date": day(4), "amount": "-15", "category": "fee"},
		{"external_id": "CF-4", "date": day(5), "amount": "-300", "category": "expense"},
		{"external_id": "CF-5", "date": day(9), "amount": "50"},
	}}), http.StatusCreated, nil)

	type flowView struct {
		Category string `json:"category"`
		Inflow   string `json:"inflow"`
		Outflow  string `json:"outflow"`
		NetFlow  string `json:"net_flow"`
		Count    int64  `json:"count"`
	}
	var report struct {
		Categories   []flowView `json:"categories"`
		TotalInflow  string     `json:"total_inflow"`
		TotalOutflow string     `json:"total_outflow"`
		NetFlow      string     `json:"net_flow"`
		Count        int64      `json:"count"`
	}

	t.Run("whole history", func(t *testing.T) {
		decode(t, api.do(t, http.MethodGet, "/banking/cash-flow", nil), http.StatusOK, &report)
		assert.True(t, amount(report.TotalInflow).Equal(amount("1250")))
		assert.True(t, amount(report.TotalOutflow).Equal(amount("515")))
		assert.True(t, amount(report.NetFlow).Equal(amount("735")))
		assert.Equal(t, int64(5), report.Count)

		byCategory := make(map[string]flowView, len(report.Categories))
		for _, f := range report.Categories {
			byCategory[f.Category] = f
		}
		require.Len(t, byCategory, 4)
		expense := byCategory["expense"]
		assert.True(t, amount(expense.Outflow).Equal(amount("500")))
		assert.True(t, amount(expense.NetFlow).Equal(amount("-500")))
		assert.Equal(t, int64(2), expense.Count)
		assert.True(t, amount(byCategory["uncategorized"].Inflow).Equal(amount("50")))
	})

	t.Run("date range and bank account", func(t *testing.T) {
		decode(t, api.do(t, http.MethodGet, "/banking/cash-flow?start_date="+day(3)+"&end_date="+day(5)+
			"&bank_account_id="+bankID.String(), nil), http.StatusOK, &report)
		assert.True(t, amount(report.TotalInflow).IsZero())
		assert.True(t, amount(report.TotalOutflow).Equal(amount("515")))
		assert.Equal(t, int64(3), report.Count)
	})

	t.Run("other bank account is empty", func(t *testing.T) {
		decode(t, api.do(t, http.MethodGet, "/banking/cash-flow?bank_account_id="+uuid.NewString(), nil), http.StatusOK, &report)
		assert.Empty(t, report.Categories)
		assert.True(t, amount(report.NetFlow).IsZero())
	})

	t.Run("inverted range", func(t *testing.T) {
		failure(t, api.do(t, http.MethodGet, "/banking/cash-flow?start_date="+day(9)+"&end_date="+day(2), nil),
			http.StatusBadRequest, "INVALID_INPUT")
	})

	t.Run("malformed date", func(t *testing.T) {
		failure(t, api.do(t, http.MethodGet, "/banking/cash-flow?start_date=March", nil), http.StatusBadRequest, "BAD_REQUEST")
	})
}

func TestBankingAPI_StartWithBookBalance(t *testing.T) {
	api := newAPI(t)
	bankID := api.createBankAccount(t)
	api.postEntry(t, 2, "300", ledger.AccountNumberBank, ledger.AccountNumberCapital)

	var rec struct {
		BookBalance string `json:"book_balance"`
		Difference  string `json:"difference"`
	}
	decode(t, api.do(t, http.MethodPost, "/banking/reconciliations", gin.H{
		"bank_account_id":   bankID,
		"statement_date":    day(5),
		"statement_balance": "310",
		"book_balance":      "310",
	}), http.StatusCreated, &rec)
	assert.True(t, amount(rec.BookBalance).Equal(amount("310")))
	assert.True(t, amount(rec.Difference).IsZero())
}
