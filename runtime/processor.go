package runtime

import (
	"context"
	"creditline/contract"
	"creditline/domain/credit"
	liberrors "creditline/errors"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// AccountProcessor owns every authorization decision for one account.
// A single goroutine drains the mailbox strictly in admission order, so no
// two decisions for the same account can ever be computed against the same
// usage snapshot. That serialization, not any cached balance, is what
// closes the check-then-act race.
type AccountProcessor struct {
	userID     string
	store      contract.LedgerStore
	log        *slog.Logger
	mailbox    chan credit.Submission
	terminated chan struct{}
	stop       context.CancelFunc
	lastActive atomic.Int64
}

func newAccountProcessor(userID string, store contract.LedgerStore, mailboxSize int, log *slog.Logger) *AccountProcessor {
	p := &AccountProcessor{
		userID:     userID,
		store:      store,
		log:        log,
		mailbox:    make(chan credit.Submission, mailboxSize),
		terminated: make(chan struct{}),
	}
	p.touch()
	return p
}

// Submit queues one charge and waits for its receipt. A caller whose ctx
// expires while waiting abandons the receipt only: the processor still
// drives the in-flight request to a definite outcome, since the buffered
// reply channel lets it answer without anyone listening.
func (p *AccountProcessor) Submit(ctx context.Context, amount decimal.Decimal) (credit.Transaction, error) {
	sub := credit.NewSubmission(amount)

	select {
	case p.mailbox <- sub:
	case <-p.terminated:
		return credit.Transaction{}, liberrors.ErrProcessorStopped
	case <-ctx.Done():
		return credit.Transaction{}, ctx.Err()
	}

	select {
	case r := <-sub.Reply:
		return r.Tx, r.Err
	case <-p.terminated:
		// The receipt may already be buffered; prefer it over the stop signal.
		select {
		case r := <-sub.Reply:
			return r.Tx, r.Err
		default:
			return credit.Transaction{}, liberrors.ErrProcessorStopped
		}
	case <-ctx.Done():
		return credit.Transaction{}, ctx.Err()
	}
}

// Terminated reports whether the processor stopped serving. A terminated
// handle never recovers; callers resolve a fresh one through the registry.
func (p *AccountProcessor) Terminated() bool {
	select {
	case <-p.terminated:
		return true
	default:
		return false
	}
}

func (p *AccountProcessor) touch() {
	p.lastActive.Store(time.Now().UnixNano())
}

func (p *AccountProcessor) idleSince() time.Time {
	return time.Unix(0, p.lastActive.Load())
}

// run drains the mailbox until the context is canceled or a request panics.
// Closing terminated is the very last step so observers never see a "half
// dead" processor that still accepts submissions.
func (p *AccountProcessor) run(ctx context.Context) {
	defer close(p.terminated)

	for {
		select {
		case <-ctx.Done():
			p.log.Debug("Stopping account processor", "user_id", p.userID)
			return
		case sub := <-p.mailbox:
			if ctx.Err() != nil {
				// Stopped between the submission landing and this read.
				// Answer definitively so the caller re-resolves.
				sub.Reply <- credit.Receipt{Err: liberrors.ErrProcessorStopped}
				return
			}
			p.touch()
			receipt, fault := p.safeHandle(ctx, sub)
			sub.Reply <- receipt
			if fault != nil {
				p.log.Error("Account processor crashed", "user_id", p.userID, "error", fault)
				return
			}
		}
	}
}

// safeHandle converts a panic while servicing a request into a fault: the
// in-flight caller gets an error receipt and the processor terminates so
// the registry can reap it. Skipping the request or replaying it are both
// forbidden, either would corrupt the per-account serialization.
func (p *AccountProcessor) safeHandle(ctx context.Context, sub credit.Submission) (receipt credit.Receipt, fault error) {
	defer func() {
		if r := recover(); r != nil {
			fault = fmt.Errorf("%w: %v", liberrors.ErrWorkerPanic, r)
			receipt = credit.Receipt{Err: fault}
		}
	}()
	return p.handle(ctx, sub), nil
}

// handle runs the authorization protocol for one submission:
// fetch user, recompute usage from the store (never from a cache),
// decide, and commit only on approval.
func (p *AccountProcessor) handle(ctx context.Context, sub credit.Submission) credit.Receipt {
	user, err := p.store.GetUser(ctx, p.userID)
	if errors.Is(err, liberrors.ErrUserNotFound) {
		return credit.Receipt{Err: err}
	}
	if err != nil {
		return credit.Receipt{Err: fmt.Errorf("%w: fetching user %s: %v", liberrors.ErrStoreFailure, p.userID, err)}
	}

	usage, err := p.store.SumTransactions(ctx, p.userID)
	if err != nil {
		return credit.Receipt{Err: fmt.Errorf("%w: summing usage for %s: %v", liberrors.ErrStoreFailure, p.userID, err)}
	}

	if decision := credit.Authorize(user.CreditLimit, usage, sub.Amount); decision == credit.Rejected {
		p.log.Debug("Charge rejected",
			"user_id", p.userID,
			"usage", usage.String(),
			"amount", sub.Amount.String(),
			"limit", user.CreditLimit.String())
		return credit.Receipt{Err: fmt.Errorf("%w: usage %s + amount %s > limit %s",
			liberrors.ErrOverLimit, usage.String(), sub.Amount.String(), user.CreditLimit.String())}
	}

	tx, err := p.store.InsertTransaction(ctx, p.userID, sub.Amount)
	if err != nil {
		return credit.Receipt{Err: fmt.Errorf("%w: inserting transaction for %s: %v", liberrors.ErrStoreFailure, p.userID, err)}
	}
	return credit.Receipt{Tx: tx}
}
