package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "clutch-ledger", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "ledger", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "USD", cfg.Ledger.Currency)
	assert.Equal(t, int32(2), cfg.Ledger.Precision)
	assert.InDelta(t, 0.01, cfg.Ledger.Tolerance, 1e-9)
	assert.Equal(t, 3, cfg.Ledger.MatchWindowDays)
	assert.False(t, cfg.Ledger.AllowBackdating)
	assert.Equal(t, "memory", cfg.Lock.Backend)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
	assert.False(t, cfg.Idempotency.Enabled)
	assert.Equal(t, "memory", cfg.Idempotency.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	assert.Equal(t, time.Hour, cfg.Scheduler.PayoutInterval)
	assert.Equal(t, "ledger-events", cfg.Notification.Topic)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LEDGER_APP_NAME", "ledger-test")
	t.Setenv("LEDGER_DATABASE_HOST", "db.internal")
	t.Setenv("LEDGER_DATABASE_PORT", "5433")
	t.Setenv("LEDGER_LEDGER_PRECISION", "3")
	t.Setenv("LEDGER_LEDGER_MATCH_WINDOW_DAYS", "5")
	t.Setenv("LEDGER_LOCK_BACKEND", "redis")
	t.Setenv("LEDGER_LOCK_TTL", "10s")
	t.Setenv("LEDGER_REDIS_HOST", "cache.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ledger-test", cfg.App.Name)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, int32(3), cfg.Ledger.Precision)
	assert.Equal(t, 5, cfg.Ledger.MatchWindowDays)
	assert.Equal(t, "redis", cfg.Lock.Backend)
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
	assert.Equal(t, "cache.internal:6379", cfg.Redis.Addr())
	assert.Equal(t, "redis", cfg.Idempotency.Backend, "idempotency follows the lock backend")
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "idle connections exceed open connections",
			env:     map[string]string{"LEDGER_DATABASE_MAX_OPEN_CONNS": "10", "LEDGER_DATABASE_MAX_IDLE_CONNS": "20"},
			wantErr: "cannot exceed",
		},
		{
			name:    "negative idle connections",
			env:     map[string]string{"LEDGER_DATABASE_MAX_IDLE_CONNS": "-1"},
			wantErr: "cannot be negative",
		},
		{
			name:    "unknown lock backend",
			env:     map[string]string{"LEDGER_LOCK_BACKEND": "etcd"},
			wantErr: "lock.backend",
		},
		{
			name:    "unknown idempotency backend",
			env:     map[string]string{"LEDGER_IDEMPOTENCY_BACKEND": "memcached"},
			wantErr: "idempotency.backend",
		},
		{
			name:    "precision out of range",
			env:     map[string]string{"LEDGER_LEDGER_PRECISION": "6"},
			wantErr: "ledger.precision",
		},
		{
			name:    "tolerance of a whole unit",
			env:     map[string]string{"LEDGER_LEDGER_TOLERANCE": "1"},
			wantErr: "ledger.tolerance",
		},
		{
			name:    "bank feed without bucket",
			env:     map[string]string{"LEDGER_BANKFEED_ENABLED": "true"},
			wantErr: "bankfeed.bucket",
		},
		{
			name:    "pubsub without project",
			env:     map[string]string{"LEDGER_NOTIFICATION_PUBSUB_ENABLED": "true"},
			wantErr: "notification.project_id",
		},
		{
			name: "production with in-memory locks",
			env: map[string]string{
				"LEDGER_APP_ENV":           "production",
				"LEDGER_DATABASE_PASSWORD": "secret",
				"LEDGER_DATABASE_SSLMODE":  "require",
			},
			wantErr: "lock.backend must be redis",
		},
		{
			name:    "sampling ratio above one",
			env:     map[string]string{"LEDGER_TELEMETRY_SAMPLING_RATIO": "1.5"},
			wantErr: "sampling_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDSN_EscapesCredentials(t *testing.T) {
	d := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "ledger",
		Password: "p@ss:word",
		DBName:   "ledger",
		SSLMode:  "disable",
	}
	dsn := d.DSN()
	assert.Contains(t, dsn, "p%40ss")
	assert.Contains(t, dsn, "@localhost:5432/ledger")
	assert.Contains(t, dsn, "sslmode=disable")
}
