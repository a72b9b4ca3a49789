package persistence

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestSortSpec_Column(t *testing.T) {
	tests := []struct {
		requested string
		want      string
	}{
		{"", "order_date"},
		{"partner_net", "partner_net"},
		{"  PARTNER_NET ", "partner_net"},
		{"tenant_id", "order_date"},
		{"order_date; DROP TABLE commissions;--", "order_date"},
	}
	for _, tt := range tests {
		t.Run(tt.requested, func(t *testing.T) {
			assert.Equal(t, tt.want, commissionSort.column(tt.requested))
		})
	}
}

func TestDescending(t *testing.T) {
	assert.True(t, descending(""))
	assert.True(t, descending("DESC"))
	assert.True(t, descending("asc; --"))
	assert.False(t, descending("asc"))
	assert.False(t, descending(" ASC "))
}

func TestSortSpec_Page(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	type row struct{ ID int }
	t.Run("tiebreak follows the sort direction", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "rows" ORDER BY "entry_date","entry_number" LIMIT \$1 OFFSET \$2`).
			WithArgs(50, 50).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		var rows []row
		err := db.Table("rows").
			Scopes(journalEntrySort.page(shared.Filter{Page: 2, PageSize: 50, OrderDir: "asc"})).
			Find(&rows).Error
		require.NoError(t, err)
	})

	t.Run("unknown column falls back, no duplicate tiebreak", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "rows" ORDER BY "entry_number" DESC LIMIT \$1`).
			WithArgs(20).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		var rows []row
		err := db.Table("rows").
			Scopes(journalEntrySort.page(shared.Filter{OrderBy: "entry_number"})).
			Find(&rows).Error
		require.NoError(t, err)
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
