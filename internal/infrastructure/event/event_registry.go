package event

import (
	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/payout"
	"github.com/clutch/ledger/internal/domain/settlement"
)

// RegisterLedgerEvents registers every event the ledger core raises
func RegisterLedgerEvents(serializer *EventSerializer) {
	// Chart of accounts and journal
	serializer.Register(ledger.EventTypeAccountCreated, &ledger.AccountCreatedEvent{})
	serializer.Register(ledger.EventTypeAccountDeactivated, &ledger.AccountDeactivatedEvent{})
	serializer.Register(ledger.EventTypeJournalEntryPosted, &ledger.JournalEntryPostedEvent{})
	serializer.Register(ledger.EventTypeJournalEntryReverse, &ledger.JournalEntryReversedEvent{})

	// Bank reconciliation
	serializer.Register(banking.EventTypeReconciliationStarted, &banking.ReconciliationStartedEvent{})
	serializer.Register(banking.EventTypeTransactionMatched, &banking.TransactionMatchedEvent{})
	serializer.Register(banking.EventTypeReconciliationCompleted, &banking.ReconciliationCompletedEvent{})
	serializer.Register(banking.EventTypeReconciliationDisputed, &banking.ReconciliationDisputedEvent{})
	serializer.Register(banking.EventTypeReconciliationCancelled, &banking.ReconciliationCancelledEvent{})

	// Settlement
	serializer.Register(settlement.EventTypePartnerFinancialConfigured, &settlement.PartnerFinancialConfiguredEvent{})
	serializer.Register(settlement.EventTypeCommissionRecorded, &settlement.CommissionRecordedEvent{})
	serializer.Register(settlement.EventTypeCommissionCancelled, &settlement.CommissionVoidedEvent{})
	serializer.Register(settlement.EventTypeCommissionRefunded, &settlement.CommissionVoidedEvent{})

	// Payouts
	serializer.Register(payout.EventTypePayoutCreated, &payout.PayoutCreatedEvent{})
	serializer.Register(payout.EventTypePayoutStatusChanged, &payout.PayoutStatusChangedEvent{})
}
