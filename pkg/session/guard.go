package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// DefaultGuardTimeout bounds how long an invocation waits for its session
// guard before failing with a TimeoutError.
const DefaultGuardTimeout = 30 * time.Second

// GuardSet holds one mutual-exclusion guard per distinct session ID.
// Invocations addressed to different sessions proceed in parallel; same-
// session invocations acquire in arrival order (the underlying semaphore is
// FIFO).
type GuardSet struct {
	mu      sync.Mutex
	guards  map[string]*semaphore.Weighted
	timeout time.Duration
}

// NewGuardSet creates a guard set with the given acquisition timeout. A
// non-positive timeout selects DefaultGuardTimeout.
func NewGuardSet(timeout time.Duration) *GuardSet {
	if timeout <= 0 {
		timeout = DefaultGuardTimeout
	}
	return &GuardSet{
		guards:  make(map[string]*semaphore.Weighted),
		timeout: timeout,
	}
}

// Acquire blocks until the guard for the session is held, the configured
// timeout elapses, or ctx is done. On success it returns the release
// function; on timeout it returns a TimeoutError rather than deadlocking.
func (g *GuardSet) Acquire(ctx context.Context, sessionID string) (func(), error) {
	g.mu.Lock()
	sem, ok := g.guards[sessionID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		g.guards[sessionID] = sem
	}
	g.mu.Unlock()

	acquireCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := sem.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() == nil {
			return nil, &types.TimeoutError{
				Op:      "session guard acquisition",
				Session: sessionID,
				Timeout: g.timeout,
			}
		}
		return nil, ctx.Err()
	}
	return func() { sem.Release(1) }, nil
}
