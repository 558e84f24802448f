package services

import (
	"context"
	"creditline/domain/credit"
	liberrors "creditline/errors"
	"creditline/mocks"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLedgerService_AddTransaction_Delegates_To_Processor(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockRegistry(ctrl)
	processor := mocks.NewMockProcessor(ctrl)
	store := mocks.NewMockLedgerStore(ctrl)

	wantTx := credit.Transaction{ID: uuid.New(), UserID: "alice", Amount: dec("25"), CreatedAt: time.Now().UTC()}
	registry.EXPECT().Resolve("alice").Return(processor, nil)
	processor.EXPECT().Submit(ctx, dec("25")).Return(wantTx, nil)

	service := NewLedgerService(slog.Default(), registry, store, nil)
	tx, err := service.AddTransaction(ctx, "alice", dec("25"))

	req.NoError(err)
	req.Equal(wantTx, tx)
}

func TestLedgerService_AddTransaction_Validation(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	service := NewLedgerService(slog.Default(), mocks.NewMockRegistry(ctrl), mocks.NewMockLedgerStore(ctrl), nil)

	tests := []struct {
		description string
		userID      string
		amount      string
		wantErr     error
	}{
		{"Should reject empty user id", "", "10", liberrors.ErrUserNotFound},
		{"Should reject zero amount", "alice", "0", liberrors.ErrBadAmount},
		{"Should reject negative amount", "alice", "-5", liberrors.ErrBadAmount},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, err := service.AddTransaction(context.Background(), tt.userID, dec(tt.amount))
			req.ErrorIs(err, tt.wantErr)
		})
	}
}

func TestLedgerService_AddTransaction_Retries_Once_On_Stopped_Processor(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockRegistry(ctrl)
	stale := mocks.NewMockProcessor(ctrl)
	fresh := mocks.NewMockProcessor(ctrl)

	// Given a handle that was evicted between resolve and submit
	wantTx := credit.Transaction{ID: uuid.New(), UserID: "alice", Amount: dec("10")}
	gomock.InOrder(
		registry.EXPECT().Resolve("alice").Return(stale, nil),
		stale.EXPECT().Submit(ctx, dec("10")).Return(credit.Transaction{}, liberrors.ErrProcessorStopped),
		registry.EXPECT().Resolve("alice").Return(fresh, nil),
		fresh.EXPECT().Submit(ctx, dec("10")).Return(wantTx, nil),
	)

	service := NewLedgerService(slog.Default(), registry, mocks.NewMockLedgerStore(ctrl), nil)
	tx, err := service.AddTransaction(ctx, "alice", dec("10"))

	req.NoError(err)
	req.Equal(wantTx, tx)
}

func TestLedgerService_AddTransaction_Surfaces_Business_Outcomes(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockRegistry(ctrl)
	processor := mocks.NewMockProcessor(ctrl)
	registry.EXPECT().Resolve("alice").Return(processor, nil)
	processor.EXPECT().Submit(ctx, dec("500")).Return(credit.Transaction{}, liberrors.ErrOverLimit)

	service := NewLedgerService(slog.Default(), registry, mocks.NewMockLedgerStore(ctrl), nil)
	_, err := service.AddTransaction(ctx, "alice", dec("500"))

	// A rejection is surfaced as-is, no retry: re-submitting cannot help.
	req.ErrorIs(err, liberrors.ErrOverLimit)
}

func TestLedgerService_CreateUser(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockLedgerStore(ctrl)
	index := mocks.NewMockUserIndex(ctrl)
	store.EXPECT().CreateUser(ctx, gomock.Any()).Return(nil)
	index.EXPECT().Index(gomock.Any()).Return(nil)

	service := NewLedgerService(slog.Default(), mocks.NewMockRegistry(ctrl), store, index)
	user, err := service.CreateUser(ctx, CreateUserRequest{FullName: "Alice Doe", CreditLimit: dec("100")})

	req.NoError(err)
	req.NotEmpty(user.ID)
	req.Equal("Alice Doe", user.FullName)
	req.True(user.CreditLimit.Equal(dec("100")))
}

func TestLedgerService_CreateUser_Validation(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	service := NewLedgerService(slog.Default(), mocks.NewMockRegistry(ctrl), mocks.NewMockLedgerStore(ctrl), nil)

	// Empty name fails struct validation
	_, err := service.CreateUser(context.Background(), CreateUserRequest{FullName: "", CreditLimit: dec("100")})
	req.Error(err)

	// Negative limit is a domain rule, not a struct tag
	_, err = service.CreateUser(context.Background(), CreateUserRequest{FullName: "Alice Doe", CreditLimit: dec("-1")})
	req.ErrorIs(err, liberrors.ErrBadAmount)
}

func TestLedgerService_Balance(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockLedgerStore(ctrl)
	store.EXPECT().GetUser(ctx, "alice").Return(credit.User{ID: "alice", CreditLimit: dec("100")}, nil)
	store.EXPECT().SumTransactions(ctx, "alice").Return(dec("37.50"), nil)

	service := NewLedgerService(slog.Default(), mocks.NewMockRegistry(ctrl), store, nil)
	balance, err := service.Balance(ctx, "alice")

	req.NoError(err)
	req.True(balance.Usage.Equal(dec("37.50")))
	req.True(balance.Available.Equal(dec("62.50")))
}

func TestLedgerService_SearchUsers_Skips_Stale_Index_Entries(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockLedgerStore(ctrl)
	index := mocks.NewMockUserIndex(ctrl)
	index.EXPECT().Search(ctx, "doe", 10).Return([]string{"gone", "alice"}, nil)
	store.EXPECT().GetUser(ctx, "gone").Return(credit.User{}, liberrors.ErrUserNotFound)
	store.EXPECT().GetUser(ctx, "alice").Return(credit.User{ID: "alice", FullName: "Alice Doe"}, nil)

	service := NewLedgerService(slog.Default(), mocks.NewMockRegistry(ctrl), store, index)
	users, err := service.SearchUsers(ctx, "doe")

	req.NoError(err)
	req.Len(users, 1)
	req.Equal("alice", users[0].ID)
}
