package credit

import "github.com/shopspring/decimal"

// Submission is one charge request travelling through a processor mailbox.
// Reply must have capacity 1 so the processor can always deliver the receipt
// without blocking, even when the submitting caller already gave up waiting.
type Submission struct {
	Amount decimal.Decimal
	Reply  chan Receipt
}

// Receipt is the definite outcome of one submission: either a persisted
// transaction or the error that settled it.
type Receipt struct {
	Tx  Transaction
	Err error
}

func NewSubmission(amount decimal.Decimal) Submission {
	return Submission{Amount: amount, Reply: make(chan Receipt, 1)}
}
