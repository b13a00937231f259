// Package runner contains the poll loop that executes approved operation
// groups. It is the "muscle" half of schemaplane: the controller decides
// which batches may run, the runner picks them up and applies them to the
// tenant databases.
package runner

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"schemaplane/internal/executor"
	"schemaplane/internal/store"
)

// Config holds configuration for the runner.
type Config struct {
	ID           string
	Concurrency  int
	PollInterval time.Duration
	BatchLimit   int
	MaxBackoff   time.Duration // Maximum backoff when no groups are ready (default: 30s)
}

// Store is the subset of the control plane store the runner needs.
type Store interface {
	ListApprovedGroups(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// Executor applies an approved group to its tenant database.
type Executor interface {
	ExecuteBatch(ctx context.Context, groupID uuid.UUID) (*store.BatchResult, error)
}

// Runner polls for approved groups and dispatches batch executions.
type Runner struct {
	store  Store
	exec   Executor
	config Config
	done   chan struct{}
}

// New creates a new runner.
func New(s Store, exec Executor, config Config) *Runner {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}

	if config.PollInterval <= 0 {
		config.PollInterval = 1 * time.Second
	}

	if config.BatchLimit <= 0 {
		config.BatchLimit = 10
	}

	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}

	return &Runner{
		store:  s,
		exec:   exec,
		config: config,
		done:   make(chan struct{}),
	}
}

// Run starts the main poll loop. It blocks until the context is cancelled.
// On SIGTERM, it stops claiming new groups and allows in-flight batches to
// finish.
func (r *Runner) Run(ctx context.Context) error {
	log.Printf("Runner %s starting with concurrency %d", r.config.ID, r.config.Concurrency)

	// Semaphore to limit concurrency
	sem := make(chan struct{}, r.config.Concurrency)
	var wg sync.WaitGroup

	// Channel to signal when a slot becomes available (adaptive polling)
	pollNow := make(chan struct{}, 1)

	// Current backoff duration (increases when nothing is ready, resets on work found)
	currentBackoff := r.config.PollInterval

	// Helper to trigger immediate non-blocking re-poll
	triggerPoll := func() {
		select {
		case pollNow <- struct{}{}:
		default:
			// Already a poll pending
		}
	}

	// Groups currently being executed by this runner. ListApprovedGroups
	// returns a group until MarkGroupRunning flips it, so without this a
	// slow batch would be dispatched twice.
	var inFlightMu sync.Mutex
	inFlight := make(map[uuid.UUID]struct{})

	// Initial poll
	triggerPoll()

	for {
		select {
		case <-ctx.Done():
			log.Println("Context cancelled, waiting for running batches to finish...")
			wg.Wait()
			close(r.done)
			return ctx.Err()

		case <-time.After(currentBackoff):
			// Timer-based poll (with backoff)
			triggerPoll()

		case <-pollNow:
			// Count available slots
			availableSlots := r.config.Concurrency - len(sem)
			if availableSlots <= 0 {
				continue
			}

			limit := r.config.BatchLimit
			if availableSlots < limit {
				limit = availableSlots
			}

			ids, err := r.store.ListApprovedGroups(ctx, limit)
			if err != nil {
				log.Printf("ListApprovedGroups error: %v", err)
				continue
			}

			dispatched := 0
			for _, id := range ids {
				inFlightMu.Lock()
				if _, busy := inFlight[id]; busy {
					inFlightMu.Unlock()
					continue
				}
				inFlight[id] = struct{}{}
				inFlightMu.Unlock()

				// Acquire semaphore slot
				sem <- struct{}{}
				dispatched++

				wg.Add(1)
				go func(groupID uuid.UUID) {
					defer wg.Done()
					defer func() {
						inFlightMu.Lock()
						delete(inFlight, groupID)
						inFlightMu.Unlock()
						<-sem
						// Signal that a slot is now available - trigger immediate re-poll
						triggerPoll()
					}()
					r.processGroup(ctx, groupID)
				}(id)
			}

			if dispatched == 0 {
				// Nothing ready - increase backoff (exponential, capped at MaxBackoff)
				currentBackoff = currentBackoff * 2
				if currentBackoff > r.config.MaxBackoff {
					currentBackoff = r.config.MaxBackoff
				}
				continue
			}

			// Found work - reset backoff to minimum
			currentBackoff = r.config.PollInterval
			log.Printf("Claimed %d groups", dispatched)

			// If there are still slots available, poll again immediately
			if dispatched < availableSlots {
				triggerPoll()
			}
		}
	}
}

// Done returns a channel that is closed when the runner has fully stopped.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// processGroup executes a single approved group. Races with other runners
// and with the admin execute endpoint are expected and not errors: the
// status row lock in the store picks exactly one winner.
func (r *Runner) processGroup(ctx context.Context, groupID uuid.UUID) {
	log.Printf("Executing group %s", groupID)

	result, err := r.exec.ExecuteBatch(ctx, groupID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExecuting):
			log.Printf("Group %s claimed by another executor", groupID)
		case errors.Is(err, executor.ErrGroupNotApproved):
			// Approval was revoked between listing and claiming.
			log.Printf("Group %s no longer approved", groupID)
		case errors.Is(err, store.ErrGroupNotFound):
			log.Printf("Group %s disappeared before execution", groupID)
		default:
			log.Printf("Group %s execution error: %v", groupID, err)
		}
		return
	}

	log.Printf("Group %s finished: %d total, %d succeeded, %d failed",
		groupID, result.TotalOperations, result.SuccessfulOperations, result.FailedOperations)
}
