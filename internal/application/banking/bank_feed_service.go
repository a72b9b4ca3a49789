// Package banking holds the bank account, statement import and
// reconciliation use cases.
package banking

import (
	"context"
	"fmt"

	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/clutch/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FeedReader loads a statement file from the bank feed
type FeedReader interface {
	ReadStatement(ctx context.Context, key string) ([]banking.TransactionInput, error)
}

// BankFeedService manages bank accounts and brings statement lines in
type BankFeedService struct {
	bankAccounts   banking.BankAccountRepository
	transactions   banking.BankTransactionRepository
	ledgerAccounts ledger.AccountRepository
	locker         shared.KeyedLocker
	feed           FeedReader
	logger         *zap.Logger
}

// NewBankFeedService creates a new BankFeedService. feed may be nil when no
// bank feed bucket is configured.
func NewBankFeedService(
	bankAccounts banking.BankAccountRepository,
	transactions banking.BankTransactionRepository,
	ledgerAccounts ledger.AccountRepository,
	locker shared.KeyedLocker,
	feed FeedReader,
	logger *zap.Logger,
) *BankFeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BankFeedService{
		bankAccounts:   bankAccounts,
		transactions:   transactions,
		ledgerAccounts: ledgerAccounts,
		locker:         locker,
		feed:           feed,
		logger:         logger,
	}
}

// CreateBankAccount registers a bank account bound to an active cash or bank
// ledger account
func (s *BankFeedService) CreateBankAccount(ctx context.Context, tenantID uuid.UUID, req CreateBankAccountRequest) (*BankAccountResponse, error) {
	bound, err := s.ledgerAccounts.FindByID(ctx, tenantID, req.LedgerAccountID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewValidationError("ledger_account_id", "ledger account does not exist")
		}
		return nil, err
	}
	if bound.Type != ledger.AccountTypeAsset ||
		(bound.Subtype != ledger.SubtypeCash && bound.Subtype != ledger.SubtypeBank) {
		return nil, shared.NewValidationError("ledger_account_id", "ledger account "+bound.Number+" is not a cash or bank account")
	}
	if !bound.IsActive {
		return nil, &ledger.InvalidAccountStateError{AccountID: bound.ID, AccountNumber: bound.Number, Reason: "account is inactive"}
	}

	currency := valueobject.Currency(req.Currency)
	if currency == "" {
		currency = bound.Currency
	}
	if currency != bound.Currency {
		return nil, shared.NewValidationError("currency", "bank currency must match the ledger account currency "+string(bound.Currency))
	}

	account, err := banking.NewBankAccount(tenantID, req.Name, req.BankName, req.AccountNumber, currency, bound.ID)
	if err != nil {
		return nil, err
	}
	if err := s.bankAccounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save bank account: %w", err)
	}
	s.logger.Info("Bank account created",
		zap.String("bank_account_id", account.ID.String()),
		zap.String("ledger_account", bound.Number),
	)
	response := ToBankAccountResponse(account)
	return &response, nil
}

// GetBankAccount retrieves a bank account by ID
func (s *BankFeedService) GetBankAccount(ctx context.Context, tenantID, id uuid.UUID) (*BankAccountResponse, error) {
	account, err := s.bankAccounts.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	response := ToBankAccountResponse(account)
	return &response, nil
}

// ListBankAccounts returns every bank account of the tenant
func (s *BankFeedService) ListBankAccounts(ctx context.Context, tenantID uuid.UUID) ([]BankAccountResponse, error) {
	accounts, err := s.bankAccounts.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	out := make([]BankAccountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = ToBankAccountResponse(a)
	}
	return out, nil
}

// ImportTransactions stores statement lines. Lines whose bank transaction id
// is already known for the account are skipped, so re-importing the same
// statement is harmless. Any invalid line rejects the whole import.
func (s *BankFeedService) ImportTransactions(ctx context.Context, tenantID, bankAccountID uuid.UUID, rows []banking.TransactionInput) (*ImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bank_feed", "import")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrBankAccountID, bankAccountID.String(),
	)

	account, err := s.bankAccounts.FindByID(ctx, tenantID, bankAccountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !account.IsActive {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "bank account "+account.Name+" is inactive")
	}
	if len(rows) == 0 {
		return &ImportResult{Transactions: []*banking.BankTransaction{}}, nil
	}

	release, err := s.locker.Acquire(ctx, shared.BankAccountLockKey(bankAccountID))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ExternalID
	}
	known, err := s.transactions.ExistingExternalIDs(ctx, tenantID, bankAccountID, ids)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check known transactions: %w", err)
	}

	txs, skipped, err := banking.NewTransactions(tenantID, bankAccountID, rows, known)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(txs) > 0 {
		if err := s.transactions.CreateBatch(ctx, txs); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to store transactions: %w", err)
		}
	}

	s.logger.Info("Bank transactions imported",
		zap.String("bank_account_id", bankAccountID.String()),
		zap.Int("imported", len(txs)),
		zap.Int("skipped", skipped),
	)
	return &ImportResult{Imported: len(txs), Skipped: skipped, Transactions: txs}, nil
}

// ImportFromFeed reads a statement object from the bank feed and imports it
func (s *BankFeedService) ImportFromFeed(ctx context.Context, tenantID, bankAccountID uuid.UUID, objectKey string) (*ImportResult, error) {
	if s.feed == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "bank feed is not configured")
	}
	rows, err := s.feed.ReadStatement(ctx, objectKey)
	if err != nil {
		return nil, err
	}
	return s.ImportTransactions(ctx, tenantID, bankAccountID, rows)
}

// Categorize assigns a reporting category to the given transactions
func (s *BankFeedService) Categorize(ctx context.Context, tenantID uuid.UUID, req CategorizeRequest) (int64, error) {
	category := banking.Category(req.Category)
	if !category.IsValid() {
		return 0, shared.NewValidationError("category", "unknown category "+req.Category)
	}
	if len(req.TransactionIDs) == 0 {
		return 0, shared.NewValidationError("transaction_ids", "at least one transaction is required")
	}
	updated, err := s.transactions.UpdateCategory(ctx, tenantID, req.TransactionIDs, category)
	if err != nil {
		return 0, fmt.Errorf("failed to categorize transactions: %w", err)
	}
	return updated, nil
}

// ListTransactions returns a page of imported transactions
func (s *BankFeedService) ListTransactions(ctx context.Context, tenantID uuid.UUID, filter TransactionListFilter) (shared.Paginated[*banking.BankTransaction], error) {
	domainFilter := filter.toDomain()
	txs, total, err := s.transactions.List(ctx, tenantID, domainFilter)
	if err != nil {
		return shared.Paginated[*banking.BankTransaction]{}, fmt.Errorf("failed to list transactions: %w", err)
	}
	return shared.NewPaginated(txs, total, domainFilter.Page, domainFilter.Limit()), nil
}

// CashFlow reports inflow and outflow per category over the imported
// statement lines
func (s *BankFeedService) CashFlow(ctx context.Context, tenantID uuid.UUID, filter banking.CashFlowFilter) (*banking.CashFlow, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.transactions.CashFlowByCategory(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load cash flow: %w", err)
	}
	return banking.NewCashFlow(rows), nil
}
