// Package integration runs the ledger services against PostgreSQL started
// with testcontainers and migrated with the compiled-in schema.
package integration

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	bankingapp "github.com/clutch/ledger/internal/application/banking"
	ledgerapp "github.com/clutch/ledger/internal/application/ledger"
	payoutapp "github.com/clutch/ledger/internal/application/payout"
	settlementapp "github.com/clutch/ledger/internal/application/settlement"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/clutch/ledger/internal/infrastructure/export"
	"github.com/clutch/ledger/internal/infrastructure/lock"
	"github.com/clutch/ledger/internal/infrastructure/migration"
	"github.com/clutch/ledger/internal/infrastructure/persistence"
	"github.com/clutch/ledger/tests/testutil"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	sharedOnce sync.Once
	sharedDSN  string
	sharedErr  error
)

// TestDB is a migrated PostgreSQL database
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	DSN   string
}

// NewTestDB connects to a PostgreSQL container shared by the package. The
// container is started and migrated on first use; tests isolate their data
// by tenant instead of truncating.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration tests need docker; skipped in -short mode")
	}

	sharedOnce.Do(func() {
		sharedDSN, sharedErr = startPostgres(context.Background())
	})
	require.NoError(t, sharedErr, "Failed to start PostgreSQL container")

	db, sqlDB := connect(t, sharedDSN)
	return &TestDB{DB: db, SqlDB: sqlDB, DSN: sharedDSN}
}

func startPostgres(ctx context.Context) (string, error) {
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return "", err
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", err
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return "", err
	}
	defer sqlDB.Close()
	m, err := migration.New(sqlDB, "", nil)
	if err != nil {
		return "", err
	}
	if err := m.Up(); err != nil {
		return "", err
	}
	return dsn, nil
}

func connect(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()
	cfg := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), cfg)
	require.NoError(t, err, "Failed to connect to database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db, sqlDB
}

// Stack wires every application service over one database, for a fresh
// tenant with the default chart seeded
type Stack struct {
	DB          *gorm.DB
	TenantID    uuid.UUID
	Repos       *persistence.GormRepositories
	Scope       *persistence.GormTransactionScope
	Locker      *lock.MemoryLocker
	Numbers     *testutil.SequentialNumbers
	Publisher   *testutil.RecordingPublisher
	Accounts    *ledgerapp.AccountService
	Posting     *ledgerapp.PostingService
	Statement   *ledgerapp.StatementService
	BankFeed    *bankingapp.BankFeedService
	Reconcile   *bankingapp.ReconciliationService
	Commissions *settlementapp.CommissionService
	Payouts     *payoutapp.PayoutService
}

// NewStack builds a Stack on tdb
func NewStack(t *testing.T, tdb *TestDB) *Stack {
	t.Helper()
	rounding := valueobject.DefaultRounding
	repos := persistence.NewGormRepositories(tdb.DB)
	s := &Stack{
		DB:        tdb.DB,
		TenantID:  uuid.New(),
		Repos:     repos,
		Scope:     persistence.NewGormTransactionScope(tdb.DB),
		Locker:    lock.NewMemoryLocker(),
		Numbers:   testutil.NewSequentialNumbers(),
		Publisher: &testutil.RecordingPublisher{},
	}
	journal := ledgerapp.NewJournal(s.Numbers, ledgerapp.JournalOptions{Rounding: rounding, AllowBackdating: true})
	s.Accounts = ledgerapp.NewAccountService(repos.Accounts(), s.Locker, valueobject.DefaultCurrency, nil)
	s.Posting = ledgerapp.NewPostingService(repos.JournalEntries(), s.Scope, s.Locker, journal, nil)
	s.Statement = ledgerapp.NewStatementService(repos.Accounts(), repos.LedgerEntries(), rounding, export.NewStatementWorkbook(), nil)
	s.BankFeed = bankingapp.NewBankFeedService(repos.BankAccounts(), repos.BankTransactions(), repos.Accounts(), s.Locker, nil, nil)
	s.Reconcile = bankingapp.NewReconciliationService(repos.Reconciliations(), repos.BankAccounts(), repos.BankTransactions(),
		s.Scope, s.Locker, s.Numbers, bankingapp.ReconciliationOptions{Rounding: rounding, MatchWindowDays: 3})
	s.Commissions = settlementapp.NewCommissionService(repos.PartnerFinancials(), repos.Commissions(), repos.Accounts(),
		s.Scope, s.Locker, journal, nil, nil)
	s.Payouts = payoutapp.NewPayoutService(repos.Payouts(), repos.Commissions(), repos.PartnerFinancials(), repos.Accounts(),
		s.Scope, s.Locker, s.Numbers, journal, payoutapp.Options{})
	s.Accounts.SetEventPublisher(s.Publisher)
	s.Posting.SetEventPublisher(s.Publisher)
	s.Reconcile.SetEventPublisher(s.Publisher)
	s.Commissions.SetEventPublisher(s.Publisher)
	s.Payouts.SetEventPublisher(s.Publisher)

	_, err := s.Accounts.SeedDefaultChart(context.Background(), s.TenantID)
	require.NoError(t, err)
	return s
}

// Account loads a seeded account of the stack's tenant by number
func (s *Stack) Account(t *testing.T, number string) *ledger.Account {
	t.Helper()
	a, err := s.Repos.Accounts().FindByNumber(context.Background(), s.TenantID, number)
	require.NoError(t, err)
	return a
}
