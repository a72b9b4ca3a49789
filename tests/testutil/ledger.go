package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	ledgerapp "github.com/clutch/ledger/internal/application/ledger"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/clutch/ledger/internal/infrastructure/export"
	"github.com/clutch/ledger/internal/infrastructure/lock"
	"github.com/clutch/ledger/internal/infrastructure/persistence"
	"github.com/clutch/ledger/internal/infrastructure/persistence/persistencetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SequentialNumbers issues predictable document numbers: JE-000001, PO-000001, ...
// with an independent counter per prefix.
type SequentialNumbers struct {
	mu       sync.Mutex
	counters map[string]*atomic.Int64
}

// NewSequentialNumbers creates a SequentialNumbers generator.
func NewSequentialNumbers() *SequentialNumbers {
	return &SequentialNumbers{counters: make(map[string]*atomic.Int64)}
}

// Next implements shared.NumberGenerator.
func (n *SequentialNumbers) Next(prefix string) string {
	n.mu.Lock()
	c, ok := n.counters[prefix]
	if !ok {
		c = &atomic.Int64{}
		n.counters[prefix] = c
	}
	n.mu.Unlock()
	return fmt.Sprintf("%s-%06d", prefix, c.Add(1))
}

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

// Publish implements shared.EventPublisher.
func (p *RecordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

// Events returns a copy of the published events.
func (p *RecordingPublisher) Events() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventTypes returns the types of the published events in order.
func (p *RecordingPublisher) EventTypes() []string {
	events := p.Events()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}

// LedgerFixture wires the ledger stack against an in-memory database with
// the default chart seeded for TenantID.
type LedgerFixture struct {
	DB        *gorm.DB
	TenantID  uuid.UUID
	Scope     *persistence.GormTransactionScope
	Repos     *persistence.GormRepositories
	Locker    *lock.MemoryLocker
	Numbers   *SequentialNumbers
	Journal   *ledgerapp.Journal
	Accounts  *ledgerapp.AccountService
	Posting   *ledgerapp.PostingService
	Statement *ledgerapp.StatementService
	Publisher *RecordingPublisher
}

// NewLedgerFixture builds a LedgerFixture.
func NewLedgerFixture(t *testing.T) *LedgerFixture {
	t.Helper()

	db := persistencetest.NewSQLiteDB(t)
	repos := persistence.NewGormRepositories(db)
	f := &LedgerFixture{
		DB:        db,
		TenantID:  TestTenantID(),
		Scope:     persistence.NewGormTransactionScope(db),
		Repos:     repos,
		Locker:    lock.NewMemoryLocker(),
		Numbers:   NewSequentialNumbers(),
		Publisher: &RecordingPublisher{},
	}
	f.Journal = ledgerapp.NewJournal(f.Numbers, ledgerapp.JournalOptions{Rounding: valueobject.DefaultRounding})
	f.Accounts = ledgerapp.NewAccountService(repos.Accounts(), f.Locker, valueobject.DefaultCurrency, nil)
	f.Accounts.SetEventPublisher(f.Publisher)
	f.Posting = ledgerapp.NewPostingService(repos.JournalEntries(), f.Scope, f.Locker, f.Journal, nil)
	f.Posting.SetEventPublisher(f.Publisher)
	f.Statement = ledgerapp.NewStatementService(repos.Accounts(), repos.LedgerEntries(), valueobject.DefaultRounding, export.NewStatementWorkbook(), nil)

	_, err := f.Accounts.SeedDefaultChart(context.Background(), f.TenantID)
	require.NoError(t, err)
	return f
}

// Account loads a seeded account by number.
func (f *LedgerFixture) Account(t *testing.T, number string) *ledger.Account {
	t.Helper()
	a, err := f.Repos.Accounts().FindByNumber(context.Background(), f.TenantID, number)
	require.NoError(t, err)
	return a
}
