package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)
	return &Database{DB: gormDB}, mock
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		mock.ExpectPing()

		assert.NoError(t, db.Ping())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unreachable", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		err := db.PingContext(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to ping database")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("hung database times out", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		mock.ExpectPing().WillDelayFor(time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.Error(t, db.PingContext(ctx))
	})
}

func TestDatabase_Close(t *testing.T) {
	db, mock := newMockDatabase(t)
	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Stats(t *testing.T) {
	db, _ := newMockDatabase(t)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(7)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 7, stats.MaxOpen)
	assert.Equal(t, stats.Open, stats.InUse+stats.Idle)
	assert.False(t, stats.Saturated())
}

func TestPoolStats_Saturated(t *testing.T) {
	tests := []struct {
		name  string
		stats PoolStats
		want  bool
	}{
		{"idle pool", PoolStats{MaxOpen: 10, Open: 2, InUse: 1, Idle: 1}, false},
		{"busy without waiters", PoolStats{MaxOpen: 10, Open: 10, InUse: 10}, false},
		{"busy with waiters", PoolStats{MaxOpen: 10, Open: 10, InUse: 10, WaitCount: 3}, true},
		{"unbounded pool", PoolStats{InUse: 50, WaitCount: 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stats.Saturated())
		})
	}
}
