//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"creditline/domain/credit"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerStore is the durable collaborator holding users and transactions.
// Its insert either fully succeeds or the transaction does not exist; the
// core never re-implements the store's own consistency.
type LedgerStore interface {
	CreateUser(ctx context.Context, user credit.User) error
	GetUser(ctx context.Context, userID string) (credit.User, error)
	// SumTransactions returns zero for a user with no transactions.
	SumTransactions(ctx context.Context, userID string) (decimal.Decimal, error)
	InsertTransaction(ctx context.Context, userID string, amount decimal.Decimal) (credit.Transaction, error)
	// ListTransactions returns the user's committed transactions, newest first.
	ListTransactions(ctx context.Context, userID string) ([]credit.Transaction, error)
}

// Processor is the serialized execution context owning every authorization
// decision for exactly one account.
type Processor interface {
	Submit(ctx context.Context, amount decimal.Decimal) (credit.Transaction, error)
}

// Registry maps account ids to live processors with lookup-or-create
// semantics. Resolve returns the same handle for the same id across all
// callers, including concurrent first access.
type Registry interface {
	Resolve(userID string) (Processor, error)
	// EvictIdle stops and removes processors idle longer than olderThan and
	// reports how many were evicted.
	EvictIdle(olderThan time.Duration) int
	// Reset tears down every processor and leaves the registry empty.
	// Test-isolation hook; not used on the serving path.
	Reset()
	Shutdown()
}

// UserIndex is the full-name search collaborator.
type UserIndex interface {
	Index(user credit.User) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
