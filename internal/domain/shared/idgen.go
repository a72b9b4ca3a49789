package shared

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces identifiers for new entities and events
type IDGenerator interface {
	NewID() uuid.UUID
}

// UUIDGenerator generates random (version 4) UUIDs
type UUIDGenerator struct{}

// NewID implements IDGenerator
func (UUIDGenerator) NewID() uuid.UUID {
	return uuid.New()
}

// TimeOrderedUUIDGenerator generates version 7 UUIDs, which sort by creation time
type TimeOrderedUUIDGenerator struct{}

// NewID implements IDGenerator
func (TimeOrderedUUIDGenerator) NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// SequentialIDGenerator yields predictable UUIDs (…0001, …0002, …) for tests
type SequentialIDGenerator struct {
	next atomic.Uint64
}

// NewID implements IDGenerator
func (g *SequentialIDGenerator) NewID() uuid.UUID {
	n := g.next.Add(1)
	var id uuid.UUID
	for i := 15; i >= 8 && n > 0; i-- {
		id[i] = byte(n)
		n >>= 8
	}
	return id
}

var (
	idMu  sync.RWMutex
	idGen IDGenerator = UUIDGenerator{}
)

// SetIDGenerator replaces the process-wide generator and returns a function
// restoring the previous one.
func SetIDGenerator(g IDGenerator) (restore func()) {
	idMu.Lock()
	prev := idGen
	idGen = g
	idMu.Unlock()
	return func() {
		idMu.Lock()
		idGen = prev
		idMu.Unlock()
	}
}

// NextID returns an identifier from the active generator
func NextID() uuid.UUID {
	idMu.RLock()
	g := idGen
	idMu.RUnlock()
	return g.NewID()
}

// Document number prefixes
const (
	NumberPrefixJournalEntry   = "JE"
	NumberPrefixPayout         = "PO"
	NumberPrefixReconciliation = "BR"
)

// NumberGenerator produces human-readable document numbers such as JE-1745...
type NumberGenerator interface {
	Next(prefix string) string
}
