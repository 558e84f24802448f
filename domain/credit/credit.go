package credit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is a credit line holder. Immutable once created: there is no update
// path for the limit, so a User read at authorization time stays valid for
// the whole decision.
type User struct {
	ID          string
	FullName    string
	CreditLimit decimal.Decimal
	CreatedAt   time.Time
}

// Transaction is a committed charge against a user's credit line.
// Never updated or deleted after commit.
type Transaction struct {
	ID        uuid.UUID
	UserID    string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Balance is a point-in-time snapshot of one credit line.
type Balance struct {
	UserID    string
	Limit     decimal.Decimal
	Usage     decimal.Decimal
	Available decimal.Decimal
}

// Statement bundles a user with their committed transactions, newest first.
type Statement struct {
	User         User
	Transactions []Transaction
}
