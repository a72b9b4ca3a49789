package ledger

import (
	"context"
	"fmt"

	"github.com/clutch/ledger/internal/application/uow"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/clutch/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService manages the chart of accounts
type AccountService struct {
	accounts        ledger.AccountRepository
	locker          shared.KeyedLocker
	defaultCurrency valueobject.Currency
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(
	accounts ledger.AccountRepository,
	locker shared.KeyedLocker,
	defaultCurrency valueobject.Currency,
	logger *zap.Logger,
) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultCurrency == "" {
		defaultCurrency = valueobject.DefaultCurrency
	}
	return &AccountService{
		accounts:        accounts,
		locker:          locker,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *AccountService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *AccountService) loadChart(ctx context.Context, tenantID uuid.UUID) (*ledger.Chart, error) {
	accounts, err := s.accounts.FindAll(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart of accounts: %w", err)
	}
	return ledger.NewChart(accounts), nil
}

// CreateAccount validates a new account against the chart and stores it
func (s *AccountService) CreateAccount(ctx context.Context, tenantID uuid.UUID, req CreateAccountRequest) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		"account_number", req.Number,
	)

	currency := valueobject.Currency(req.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}
	account, err := ledger.NewAccount(tenantID, ledger.AccountSpec{
		Number:      req.Number,
		Name:        req.Name,
		Type:        ledger.AccountType(req.Type),
		Subtype:     ledger.AccountSubtype(req.Subtype),
		ParentID:    req.ParentID,
		Currency:    currency,
		Description: req.Description,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, shared.ChartLockKey(tenantID))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	chart, err := s.loadChart(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := chart.Add(account); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	uow.PublishCommitted(ctx, s.eventPublisher, s.logger, account)
	s.logger.Info("Account created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("number", account.Number),
		zap.String("type", string(account.Type)),
	)
	response := ToAccountResponse(account)
	return &response, nil
}

// GetAccount retrieves an account by ID
func (s *AccountService) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*AccountResponse, error) {
	account, err := s.accounts.FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	response := ToAccountResponse(account)
	return &response, nil
}

// ListAccounts returns a page of accounts
func (s *AccountService) ListAccounts(ctx context.Context, tenantID uuid.UUID, filter AccountListFilter) (shared.Paginated[AccountResponse], error) {
	domainFilter := filter.toDomain()
	accounts, total, err := s.accounts.List(ctx, tenantID, domainFilter)
	if err != nil {
		return shared.Paginated[AccountResponse]{}, fmt.Errorf("failed to list accounts: %w", err)
	}
	return shared.NewPaginated(ToAccountResponses(accounts), total, domainFilter.Page, domainFilter.Limit()), nil
}

// Children returns the direct children of an account
func (s *AccountService) Children(ctx context.Context, tenantID, accountID uuid.UUID) ([]AccountResponse, error) {
	chart, err := s.loadChart(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if _, ok := chart.Get(accountID); !ok {
		return nil, shared.ErrNotFound.WithDetail("account_id", accountID.String())
	}
	return ToAccountResponses(chart.Children(accountID)), nil
}

// ResolvePath returns the chain of accounts from the root to the account
func (s *AccountService) ResolvePath(ctx context.Context, tenantID, accountID uuid.UUID) ([]AccountResponse, error) {
	chart, err := s.loadChart(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	path, err := chart.Path(accountID)
	if err != nil {
		return nil, err
	}
	return ToAccountResponses(path), nil
}

// UpdateAccount renames an account and, when requested, moves it under a
// new parent. Moves are validated against the whole chart.
func (s *AccountService) UpdateAccount(ctx context.Context, tenantID, accountID uuid.UUID, req UpdateAccountRequest) (*AccountResponse, error) {
	release, err := s.locker.Acquire(ctx, shared.ChartLockKey(tenantID))
	if err != nil {
		return nil, err
	}
	defer release()

	chart, err := s.loadChart(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	account, ok := chart.Get(accountID)
	if !ok {
		return nil, shared.ErrNotFound.WithDetail("account_id", accountID.String())
	}

	// Each mutation bumps the version once, so each is saved on its own.
	if req.Name != "" && (req.Name != account.Name || req.Description != account.Description) {
		if err := account.Rename(req.Name, req.Description); err != nil {
			return nil, err
		}
		if err := s.accounts.SaveWithLock(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to save account: %w", err)
		}
	}
	if req.MoveParent {
		if err := chart.Move(accountID, req.ParentID); err != nil {
			return nil, err
		}
		if err := s.accounts.SaveWithLock(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to save account: %w", err)
		}
	}

	response := ToAccountResponse(account)
	return &response, nil
}

// Deactivate closes an account. It fails while the balance is non-zero or a
// child account is still active.
func (s *AccountService) Deactivate(ctx context.Context, tenantID, accountID uuid.UUID) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "deactivate")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrAccountID, accountID.String(),
	)

	// The account key keeps a concurrent posting from moving the balance
	// between the check and the save.
	release, err := shared.AcquireAll(ctx, s.locker, shared.ChartLockKey(tenantID), shared.AccountLockKey(accountID))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	chart, err := s.loadChart(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := chart.CheckDeactivate(accountID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	account, _ := chart.Get(accountID)
	if err := account.Deactivate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.accounts.SaveWithLock(ctx, account); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	uow.PublishCommitted(ctx, s.eventPublisher, s.logger, account)
	s.logger.Info("Account deactivated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("number", account.Number),
	)
	response := ToAccountResponse(account)
	return &response, nil
}

// Activate reopens a deactivated account
func (s *AccountService) Activate(ctx context.Context, tenantID, accountID uuid.UUID) (*AccountResponse, error) {
	release, err := s.locker.Acquire(ctx, shared.AccountLockKey(accountID))
	if err != nil {
		return nil, err
	}
	defer release()

	account, err := s.accounts.FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if err := account.Activate(); err != nil {
		return nil, err
	}
	if err := s.accounts.SaveWithLock(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}
	response := ToAccountResponse(account)
	return &response, nil
}

// SeedDefaultChart creates the system accounts the settlement and payout
// postings rely on. Accounts whose number already exists are left alone, so
// seeding twice is harmless.
func (s *AccountService) SeedDefaultChart(ctx context.Context, tenantID uuid.UUID) (*SeedResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "seed_default_chart")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tenantID.String())

	release, err := s.locker.Acquire(ctx, shared.ChartLockKey(tenantID))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	chart, err := s.loadChart(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &SeedResult{Created: []AccountResponse{}, Skipped: []string{}}
	created := make([]shared.AggregateRoot, 0, len(ledger.DefaultChart))
	for _, def := range ledger.DefaultChart {
		if _, exists := chart.GetByNumber(def.Spec.Number); exists {
			result.Skipped = append(result.Skipped, def.Spec.Number)
			continue
		}
		spec := def.Spec
		if spec.Currency == "" {
			spec.Currency = s.defaultCurrency
		}
		if def.ParentNumber != "" {
			parent, ok := chart.GetByNumber(def.ParentNumber)
			if !ok {
				return nil, shared.NewDomainError(shared.CodeInvalidState,
					"parent account "+def.ParentNumber+" is missing from the chart")
			}
			parentID := parent.ID
			spec.ParentID = &parentID
		}
		account, err := ledger.NewAccount(tenantID, spec)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := chart.Add(account); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to save account %s: %w", account.Number, err)
		}
		created = append(created, account)
		result.Created = append(result.Created, ToAccountResponse(account))
	}

	uow.PublishCommitted(ctx, s.eventPublisher, s.logger, created...)
	s.logger.Info("Default chart seeded",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}
