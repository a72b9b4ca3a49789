package bankfeed

import (
	"strings"
	"testing"
	"time"

	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementParser_Parse(t *testing.T) {
	t.Run("reads rows with aliases and a BOM", func(t *testing.T) {
		csv := "\xEF\xBB\xBFTransaction_ID, Value_Date ,Amount,Narrative,Category\n" +
			"B-1,2026-03-03,\"1,250.00\",customer transfer,income\n" +
			",,,,\n" +
			"B-2,04/03/2026,-40,card fee,FEE\n"

		rows, err := NewStatementParser().Parse(strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, "B-1", rows[0].ExternalID)
		assert.Equal(t, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC), rows[0].Date)
		assert.True(t, rows[0].Amount.Equal(decimal.RequireFromString("1250")))
		assert.Equal(t, "customer transfer", rows[0].Description)
		assert.Equal(t, banking.CategoryIncome, rows[0].Category)

		assert.Equal(t, time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC), rows[1].Date)
		assert.True(t, rows[1].Amount.IsNegative())
		assert.Equal(t, banking.CategoryFee, rows[1].Category)
		assert.Equal(t, banking.Direction(""), rows[1].Direction)
	})

	t.Run("explicit direction column", func(t *testing.T) {
		csv := "id;date;amount;direction\nX;2026-03-01;10;debit\n"
		rows, err := NewStatementParser(WithDelimiter(';')).Parse(strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, banking.DirectionDebit, rows[0].Direction)
	})

	tests := []struct {
		name    string
		input   string
		wantErr error
		line    any
	}{
		{name: "empty file", input: "", wantErr: ErrEmptyFile},
		{name: "invalid encoding", input: "id,date,amount\n\xff\xfe,2026-03-01,1\n", wantErr: ErrInvalidEncoding},
		{name: "missing columns", input: "id,description\nB-1,x\n", wantErr: shared.ErrInvalidInput},
		{name: "bad amount", input: "id,date,amount\nB-1,2026-03-01,ten\n", wantErr: shared.ErrInvalidInput, line: 2},
		{name: "bad date", input: "id,date,amount\nB-1,2026-03-01,1\nB-2,yesterday,1\n", wantErr: shared.ErrInvalidInput, line: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStatementParser().Parse(strings.NewReader(tt.input))
			require.ErrorIs(t, err, tt.wantErr)
			if tt.line != nil {
				de, ok := shared.AsDomainError(err)
				require.True(t, ok)
				assert.Equal(t, tt.line, de.Details["line"])
			}
		})
	}
}
