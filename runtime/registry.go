package runtime

import (
	"context"
	"creditline/contract"
	liberrors "creditline/errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultMailboxSize = 64

// Registry is the process-wide map from account id to its processor.
// The lookup-or-create step is the only cross-account contention point, and
// it holds the mutex just long enough to install the entry; submissions
// themselves run outside the lock, so distinct accounts never wait on each
// other.
type Registry struct {
	mu          sync.Mutex
	procs       map[string]*AccountProcessor
	store       contract.LedgerStore
	log         *slog.Logger
	mailboxSize int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	closed      bool
}

func NewRegistry(store contract.LedgerStore, mailboxSize int, log *slog.Logger) *Registry {
	if mailboxSize <= 0 {
		mailboxSize = defaultMailboxSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		procs:       make(map[string]*AccountProcessor),
		store:       store,
		log:         log,
		mailboxSize: mailboxSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Resolve returns the live processor for userID, creating it on first
// reference. Every caller racing on a brand-new id gets the same handle:
// check and create happen under one mutex, and the entry is fully
// constructed before it becomes visible. A terminated entry found here is
// replaced on the spot, so a crashed account heals on its next request
// instead of hanging forever.
func (r *Registry) Resolve(userID string) (contract.Processor, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", liberrors.ErrProcessorCreation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("%w: registry is shut down", liberrors.ErrProcessorCreation)
	}

	if p, ok := r.procs[userID]; ok && !p.Terminated() {
		return p, nil
	}

	p := newAccountProcessor(userID, r.store, r.mailboxSize, r.log)
	pctx, pcancel := context.WithCancel(r.ctx)
	p.stop = pcancel
	r.procs[userID] = p

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer pcancel()
		p.run(pctx)
		// Reap: whatever ended the run loop, a dead entry must not shadow
		// the id, or every future request for this account would hang.
		r.remove(userID, p)
	}()

	r.log.Debug("Account processor created", "user_id", userID)
	return p, nil
}

// remove deletes the entry only if it still points at this processor;
// a replacement installed by a later Resolve stays untouched.
func (r *Registry) remove(userID string, p *AccountProcessor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.procs[userID]; ok && current == p {
		delete(r.procs, userID)
	}
}

// EvictIdle stops processors whose last activity is older than olderThan
// and whose mailbox is drained. A submission racing an eviction observes
// ErrProcessorStopped and re-resolves; it never blocks on a dead handle.
func (r *Registry) EvictIdle(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for userID, p := range r.procs {
		if p.idleSince().After(cutoff) || len(p.mailbox) > 0 {
			continue
		}
		p.stop()
		delete(r.procs, userID)
		evicted++
		r.log.Debug("Idle account processor evicted", "user_id", userID)
	}
	return evicted
}

// Len reports how many processors are currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// Reset tears every processor down and leaves the registry empty but
// usable. Tests rely on this to start from a clean slate without
// rebuilding the whole service.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs = make(map[string]*AccountProcessor)
	r.ctx, r.cancel = context.WithCancel(context.Background())
}

// Shutdown stops all processors and waits for their goroutines. The
// registry rejects Resolve afterwards.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()
	r.log.Info("Account registry stopped")
}
