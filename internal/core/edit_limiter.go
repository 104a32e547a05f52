package core

// edit_limiter.go serializes access to the shared database session.
//
// The engine is single-threaded and every edit may issue several dependent
// statements, so only one edit runs at a time. The limiter is a semaphore;
// callers that cannot get a slot within maxWait fail with ErrSessionBusy.
// WaitForDrain lets shutdown finish an in-flight edit before the session
// is saved.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSessionBusy is returned when another edit holds the session for longer
// than the configured wait time.
var ErrSessionBusy = errors.New("editing session is busy, please try again later")

// DefaultMaxWaitTime is how long to wait for the session before rejecting.
const DefaultMaxWaitTime = 10 * time.Second

// EditLimiter controls access to the database session.
type EditLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewEditLimiter creates a limiter admitting one edit at a time.
func NewEditLimiter(maxWait time.Duration) *EditLimiter {
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &EditLimiter{
		semaphore: make(chan struct{}, 1),
		maxWait:   maxWait,
	}
}

// Acquire waits for the session.
// The caller MUST call Release() when the edit completes (use defer).
func (l *EditLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Caller cancellation wins over our own timeout.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrSessionBusy
	}
}

// TryAcquire takes the session without blocking.
func (l *EditLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release gives the session back.
// Must be called exactly once for each successful Acquire/TryAcquire.
func (l *EditLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// Busy reports whether an edit currently holds the session.
func (l *EditLimiter) Busy() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active > 0
}

// WaitForDrain blocks until no edit is running or ctx is done.
func (l *EditLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !l.Busy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
