package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestEditLimiter_AcquireRelease(t *testing.T) {
	limiter := NewEditLimiter(time.Second)
	ctx := context.Background()

	if limiter.Busy() {
		t.Error("new limiter should not be busy")
	}

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !limiter.Busy() {
		t.Error("limiter should be busy after Acquire")
	}
	if limiter.TryAcquire() {
		t.Error("TryAcquire should fail while the session is held")
	}

	limiter.Release()
	if limiter.Busy() {
		t.Error("limiter should be idle after Release")
	}
	if !limiter.TryAcquire() {
		t.Error("TryAcquire should succeed on an idle limiter")
	}
	limiter.Release()
}

func TestEditLimiter_BusyTimeout(t *testing.T) {
	limiter := NewEditLimiter(50 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	start := time.Now()
	err := limiter.Acquire(ctx)
	if !errors.Is(err, ErrSessionBusy) {
		t.Errorf("expected ErrSessionBusy, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("timeout too fast: %v", elapsed)
	}
}

func TestEditLimiter_ContextCancelled(t *testing.T) {
	limiter := NewEditLimiter(time.Second)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEditLimiter_Serializes(t *testing.T) {
	limiter := NewEditLimiter(5 * time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	inside, maxInside := 0, 0

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer limiter.Release()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("observed %d concurrent holders, want 1", maxInside)
	}
}

func TestEditLimiter_WaitForDrain(t *testing.T) {
	limiter := NewEditLimiter(time.Second)

	if err := limiter.WaitForDrain(context.Background()); err != nil {
		t.Fatalf("WaitForDrain on idle limiter: %v", err)
	}

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		limiter.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := limiter.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain: %v", err)
	}
}
