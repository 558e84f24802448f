package storage

import (
	"context"
	"creditline/domain/credit"
	liberrors "creditline/errors"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// diskUser is the persisted shape of a user. Kept separate from the domain
// type so the storage layout can evolve without touching callers.
type diskUser struct {
	ID          string          `json:"id"`
	FullName    string          `json:"full_name"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	CreatedAt   time.Time       `json:"created_at"`
}

type diskTransaction struct {
	ID        uuid.UUID       `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// LedgerRepository persists users and transactions in BadgerDB.
// Transaction keys are "tx:{user_id}:{timestamp_padded}:{uuid}" so that:
//  1. A prefix scan on "tx:{user_id}:" covers exactly one account.
//  2. The 19-digit zero-padded nanosecond timestamp makes lexicographic
//     order chronological order.
//  3. The trailing UUID disambiguates two commits in the same nanosecond.
type LedgerRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewLedgerRepository(db *badger.DB, log *slog.Logger) *LedgerRepository {
	return &LedgerRepository{db: db, log: log}
}

func userKey(userID string) []byte {
	return []byte(fmt.Sprintf("user:%s", userID))
}

func txPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("tx:%s:", userID))
}

func txKey(tx credit.Transaction) []byte {
	return []byte(fmt.Sprintf("tx:%s:%019d:%s", tx.UserID, tx.CreatedAt.UnixNano(), tx.ID))
}

// CreateUser persists a new user; the existence check and the write share
// one badger transaction, so two racing creations cannot both win.
func (r *LedgerRepository) CreateUser(_ context.Context, user credit.User) error {
	key := userKey(user.ID)
	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return fmt.Errorf("%w: %s", liberrors.ErrUserExists, user.ID)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

func (r *LedgerRepository) GetUser(_ context.Context, userID string) (credit.User, error) {
	var disk diskUser
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &disk)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return credit.User{}, fmt.Errorf("%w: %s", liberrors.ErrUserNotFound, userID)
	}
	if err != nil {
		return credit.User{}, err
	}
	return toUser(disk), nil
}

// SumTransactions recomputes the account's usage with a full prefix scan.
// No cached total exists anywhere: the processor depends on this read
// being fresh for every authorization.
func (r *LedgerRepository) SumTransactions(_ context.Context, userID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := txPrefix(userID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var disk diskTransaction
				if err := json.Unmarshal(val, &disk); err != nil {
					return err
				}
				sum = sum.Add(disk.Amount)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// InsertTransaction commits one charge. The id and timestamp are generated
// here, at commit time; the write either fully lands or the transaction
// does not exist.
func (r *LedgerRepository) InsertTransaction(_ context.Context, userID string, amount decimal.Decimal) (credit.Transaction, error) {
	tx := credit.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(fromTransaction(tx))
	if err != nil {
		return credit.Transaction{}, err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(txKey(tx), data)
	})
	if err != nil {
		return credit.Transaction{}, err
	}
	r.log.Debug("Transaction committed", "user_id", userID, "tx_id", tx.ID, "amount", amount.String())
	return tx, nil
}

// ListTransactions returns the account's transactions newest first, walking
// the time-sorted keys in reverse.
func (r *LedgerRepository) ListTransactions(_ context.Context, userID string) ([]credit.Transaction, error) {
	var disks []diskTransaction
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := txPrefix(userID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key for this prefix, then walk back.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var disk diskTransaction
				if err := json.Unmarshal(val, &disk); err != nil {
					return err
				}
				disks = append(disks, disk)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(disks, func(disk diskTransaction, _ int) credit.Transaction {
		return toTransaction(disk)
	}), nil
}

// ListUsers returns every registered user; inspection tooling only.
func (r *LedgerRepository) ListUsers(_ context.Context) ([]credit.User, error) {
	var disks []diskUser
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var disk diskUser
				if err := json.Unmarshal(val, &disk); err != nil {
					return err
				}
				disks = append(disks, disk)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(disks, func(disk diskUser, _ int) credit.User {
		return toUser(disk)
	}), nil
}

func fromUser(user credit.User) diskUser {
	return diskUser{ID: user.ID, FullName: user.FullName, CreditLimit: user.CreditLimit, CreatedAt: user.CreatedAt}
}

func toUser(disk diskUser) credit.User {
	return credit.User{ID: disk.ID, FullName: disk.FullName, CreditLimit: disk.CreditLimit, CreatedAt: disk.CreatedAt}
}

func fromTransaction(tx credit.Transaction) diskTransaction {
	return diskTransaction{ID: tx.ID, UserID: tx.UserID, Amount: tx.Amount, CreatedAt: tx.CreatedAt}
}

func toTransaction(disk diskTransaction) credit.Transaction {
	return credit.Transaction{ID: disk.ID, UserID: disk.UserID, Amount: disk.Amount, CreatedAt: disk.CreatedAt}
}
