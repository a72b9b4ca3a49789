package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestGormSequenceGenerator_Next(t *testing.T) {
	t.Run("bumps an existing counter", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		tenantID := uuid.New()

		mock.ExpectExec(`UPDATE "journal_sequences" SET "last_value"=last_value \+ 1,"updated_at"=\$1 WHERE tenant_id = \$2`).
			WithArgs(sqlmock.AnyArg(), tenantID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT \* FROM "journal_sequences" WHERE tenant_id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "last_value", "updated_at"}).
				AddRow(tenantID, int64(42), time.Now()))

		got, err := NewGormSequenceGenerator(db).Next(context.Background(), tenantID)

		require.NoError(t, err)
		assert.Equal(t, int64(42), got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("creates the counter on first use", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		tenantID := uuid.New()

		mock.ExpectExec(`UPDATE "journal_sequences"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO "journal_sequences" .* ON CONFLICT DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "journal_sequences"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT \* FROM "journal_sequences"`).
			WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "last_value", "updated_at"}).
				AddRow(tenantID, int64(1), time.Now()))

		got, err := NewGormSequenceGenerator(db).Next(context.Background(), tenantID)

		require.NoError(t, err)
		assert.Equal(t, int64(1), got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates database errors", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "journal_sequences"`).
			WillReturnError(errors.New("connection reset"))

		_, err := NewGormSequenceGenerator(db).Next(context.Background(), uuid.New())

		assert.EqualError(t, err, "connection reset")
	})
}

func TestUpdateVersioned_NoRowsIsConflict(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()

	account, err := ledger.NewAccount(uuid.New(), ledger.AccountSpec{
		Number:  "1010",
		Name:    "Cash",
		Type:    ledger.AccountTypeAsset,
		Subtype: ledger.SubtypeCash,
	})
	require.NoError(t, err)
	require.NoError(t, account.Rename("Cash on hand", ""))

	mock.ExpectExec(`UPDATE "accounts" SET .* WHERE .*version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewGormAccountRepository(db).SaveWithLock(context.Background(), account)

	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, account.ID.String(), de.Details["account_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
