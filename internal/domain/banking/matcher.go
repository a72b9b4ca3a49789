package banking

import (
	"slices"
	"strings"
	"time"

	"github.com/clutch/ledger/internal/domain/ledger"
)

// DefaultMatchWindowDays is how far apart a bank date and a ledger date may be
const DefaultMatchWindowDays = 3

// MatchWindow returns the inclusive date range searched for a transaction
func MatchWindow(tx *BankTransaction, windowDays int) (from, to time.Time) {
	if windowDays < 0 {
		windowDays = 0
	}
	d := truncateDay(tx.Date)
	return d.AddDate(0, 0, -windowDays), d.AddDate(0, 0, windowDays)
}

// Candidate is a ledger row that could pair with a bank transaction
type Candidate struct {
	Entry        *ledger.LedgerEntry `json:"ledger_entry"`
	DayDistance  int                 `json:"day_distance"`
	ExactDateHit bool                `json:"exact_date"`
}

// RankCandidates keeps the unreconciled rows with the exact amount on the
// mirrored side within the window and orders them: same date first, then the
// nearest date, then the lowest posting sequence. The order is total, so the
// same inputs always give the same first choice.
func RankCandidates(tx *BankTransaction, entries []*ledger.LedgerEntry, windowDays int) []Candidate {
	if windowDays < 0 {
		windowDays = 0
	}
	txDay := truncateDay(tx.Date)
	wantDebit := tx.Direction.LedgerSideIsDebit()

	out := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		if e.Reconciled || e.IsDebit() != wantDebit || !e.Amount().Equal(tx.Amount) {
			continue
		}
		dist := dayDistance(txDay, truncateDay(e.EntryDate))
		if dist > windowDays {
			continue
		}
		out = append(out, Candidate{Entry: e, DayDistance: dist, ExactDateHit: dist == 0})
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		if a.DayDistance != b.DayDistance {
			return a.DayDistance - b.DayDistance
		}
		if a.Entry.Sequence != b.Entry.Sequence {
			if a.Entry.Sequence < b.Entry.Sequence {
				return -1
			}
			return 1
		}
		if a.Entry.LineNo != b.Entry.LineNo {
			return a.Entry.LineNo - b.Entry.LineNo
		}
		return strings.Compare(a.Entry.ID.String(), b.Entry.ID.String())
	})
	return out
}

// SelectMatch returns the preferred candidate, if any
func SelectMatch(tx *BankTransaction, entries []*ledger.LedgerEntry, windowDays int) (*ledger.LedgerEntry, bool) {
	ranked := RankCandidates(tx, entries, windowDays)
	if len(ranked) == 0 {
		return nil, false
	}
	return ranked[0].Entry, true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayDistance(a, b time.Time) int {
	days := int(a.Sub(b).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}
