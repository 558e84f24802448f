package runtime

import (
	"context"
	"creditline/domain/credit"
	liberrors "creditline/errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory LedgerStore for runtime tests. Reads and writes
// are guarded by one mutex; hooks let individual tests inject latency,
// failures or panics on specific users.
type fakeStore struct {
	mu    sync.Mutex
	users map[string]credit.User
	txs   map[string][]credit.Transaction

	// gate, when set for a user, blocks GetUser until the channel is closed.
	gate map[string]chan struct{}
	// panicOnInsert triggers a panic inside InsertTransaction for a user.
	panicOnInsert map[string]bool
	// failInsert makes InsertTransaction return this error for a user.
	failInsert map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[string]credit.User),
		txs:           make(map[string][]credit.Transaction),
		gate:          make(map[string]chan struct{}),
		panicOnInsert: make(map[string]bool),
		failInsert:    make(map[string]error),
	}
}

func (f *fakeStore) addUser(id, fullName, limit string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = credit.User{
		ID:          id,
		FullName:    fullName,
		CreditLimit: decimal.RequireFromString(limit),
		CreatedAt:   time.Now().UTC(),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, user credit.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; ok {
		return liberrors.ErrUserExists
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, userID string) (credit.User, error) {
	f.mu.Lock()
	gate := f.gate[userID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return credit.User{}, liberrors.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeStore) SumTransactions(_ context.Context, userID string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := decimal.Zero
	for _, tx := range f.txs[userID] {
		sum = sum.Add(tx.Amount)
	}
	return sum, nil
}

func (f *fakeStore) InsertTransaction(_ context.Context, userID string, amount decimal.Decimal) (credit.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnInsert[userID] {
		panic("fake store: forced insert panic")
	}
	if err := f.failInsert[userID]; err != nil {
		return credit.Transaction{}, err
	}
	tx := credit.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	f.txs[userID] = append(f.txs[userID], tx)
	return tx, nil
}

func (f *fakeStore) ListTransactions(_ context.Context, userID string) ([]credit.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]credit.Transaction, len(f.txs[userID]))
	copy(out, f.txs[userID])
	return out, nil
}

func (f *fakeStore) committed(userID string) []credit.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]credit.Transaction, len(f.txs[userID]))
	copy(out, f.txs[userID])
	return out
}
