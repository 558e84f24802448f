package services

import (
	"context"
	"creditline/contract"
	"creditline/domain/credit"
	liberrors "creditline/errors"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxSubmitAttempts = 2

type ILedgerService interface {
	AddTransaction(ctx context.Context, userID string, amount decimal.Decimal) (credit.Transaction, error)
	CreateUser(ctx context.Context, request CreateUserRequest) (credit.User, error)
	Balance(ctx context.Context, userID string) (credit.Balance, error)
	Statement(ctx context.Context, userID string) (credit.Statement, error)
	SearchUsers(ctx context.Context, query string) ([]credit.User, error)
}

type CreateUserRequest struct {
	FullName    string          `validate:"required,max=128"`
	CreditLimit decimal.Decimal `validate:"-"`
}

// LedgerService is the stateless entry point of the core. It holds no
// balances itself: every charge is delegated to the account's serial
// processor, and every read goes straight to the store.
type LedgerService struct {
	log      *slog.Logger
	registry contract.Registry
	store    contract.LedgerStore
	index    contract.UserIndex
	validate *validator.Validate
}

func NewLedgerService(log *slog.Logger, registry contract.Registry, store contract.LedgerStore, index contract.UserIndex) *LedgerService {
	return &LedgerService{
		log:      log,
		registry: registry,
		store:    store,
		index:    index,
		validate: validator.New(),
	}
}

// AddTransaction records one charge against the user's credit line.
// Resolve-then-submit can race a processor death (crash reap or idle
// eviction), so a stopped-processor outcome triggers one re-resolve; the
// fresh processor re-reads usage, so the retry can never double-count.
func (s *LedgerService) AddTransaction(ctx context.Context, userID string, amount decimal.Decimal) (credit.Transaction, error) {
	if userID == "" {
		return credit.Transaction{}, fmt.Errorf("%w: empty user id", liberrors.ErrUserNotFound)
	}
	if !amount.IsPositive() {
		return credit.Transaction{}, fmt.Errorf("%w: got %s", liberrors.ErrBadAmount, amount.String())
	}

	var lastErr error
	for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
		processor, err := s.registry.Resolve(userID)
		if err != nil {
			return credit.Transaction{}, err
		}

		tx, err := processor.Submit(ctx, amount)
		if errors.Is(err, liberrors.ErrProcessorStopped) && ctx.Err() == nil {
			s.log.Debug("Processor stopped mid-flight, re-resolving", "user_id", userID)
			lastErr = err
			continue
		}
		return tx, err
	}
	return credit.Transaction{}, lastErr
}

// CreateUser registers a new credit line holder and indexes the name for
// directory search.
func (s *LedgerService) CreateUser(ctx context.Context, request CreateUserRequest) (credit.User, error) {
	if err := s.validate.Struct(request); err != nil {
		return credit.User{}, err
	}
	if request.CreditLimit.IsNegative() {
		return credit.User{}, fmt.Errorf("%w: credit limit %s", liberrors.ErrBadAmount, request.CreditLimit.String())
	}

	user := credit.User{
		ID:          uuid.NewString(),
		FullName:    request.FullName,
		CreditLimit: request.CreditLimit,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return credit.User{}, err
	}

	if s.index != nil {
		if err := s.index.Index(user); err != nil {
			// The ledger is the source of truth; a missing index entry only
			// degrades directory search.
			s.log.Warn("User indexing failed", "user_id", user.ID, "err", err)
		}
	}

	s.log.Info("User created", "user_id", user.ID, "credit_limit", user.CreditLimit.String())
	return user, nil
}

// Balance reads a point-in-time snapshot of the credit line. Snapshot only:
// concurrent commits may move the usage right after this returns, the
// authoritative check always happens inside the processor.
func (s *LedgerService) Balance(ctx context.Context, userID string) (credit.Balance, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return credit.Balance{}, err
	}
	usage, err := s.store.SumTransactions(ctx, userID)
	if err != nil {
		return credit.Balance{}, fmt.Errorf("%w: summing usage for %s: %v", liberrors.ErrStoreFailure, userID, err)
	}
	return credit.Balance{
		UserID:    userID,
		Limit:     user.CreditLimit,
		Usage:     usage,
		Available: user.CreditLimit.Sub(usage),
	}, nil
}

// Statement returns the user and their committed transactions, newest first.
func (s *LedgerService) Statement(ctx context.Context, userID string) (credit.Statement, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return credit.Statement{}, err
	}
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return credit.Statement{}, fmt.Errorf("%w: listing transactions for %s: %v", liberrors.ErrStoreFailure, userID, err)
	}
	return credit.Statement{User: user, Transactions: txs}, nil
}

// SearchUsers resolves a free-text name query against the directory index
// and hydrates the matches from the store.
func (s *LedgerService) SearchUsers(ctx context.Context, query string) ([]credit.User, error) {
	if s.index == nil {
		return nil, nil
	}
	ids, err := s.index.Search(ctx, query, 10)
	if err != nil {
		return nil, err
	}

	var users []credit.User
	for _, id := range ids {
		user, err := s.store.GetUser(ctx, id)
		if errors.Is(err, liberrors.ErrUserNotFound) {
			// Index lag: the entry outlived the record.
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
