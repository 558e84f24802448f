package errors

import "fmt"

var (
	// ErrUserNotFound The referenced account does not exist. Surfaced to the
	// caller, never retried internally.
	ErrUserNotFound = fmt.Errorf("user not found")

	// ErrUserExists A user with the same id is already registered.
	ErrUserExists = fmt.Errorf("user already exists")

	// ErrBadAmount The submitted amount is zero, negative or malformed.
	ErrBadAmount = fmt.Errorf("amount must be positive")

	// ErrOverLimit The authorization was rejected. This is a business
	// outcome, not a fault: the ledger is healthy, the account is full.
	ErrOverLimit = fmt.Errorf("credit limit exceeded")

	// ErrStoreFailure The ledger store failed a read or a write. The caller
	// may retry the whole call; a retry re-reads current usage.
	ErrStoreFailure = fmt.Errorf("ledger store failure")

	// ErrProcessorCreation The registry could not establish a processor.
	ErrProcessorCreation = fmt.Errorf("account processor creation failed")

	// ErrProcessorStopped The resolved processor terminated before or while
	// handling the submission. Resolving again yields a fresh processor.
	ErrProcessorStopped = fmt.Errorf("account processor stopped")

	ErrWorkerPanic = fmt.Errorf("worker panic")
)
