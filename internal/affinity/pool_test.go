package affinity_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"docmill/internal/affinity"
	"docmill/internal/logging"
)

func TestSingleWorkerRunsSequentiallyWithStableToken(t *testing.T) {
	pool := affinity.NewPool(affinity.Config{Workers: 1, Logger: logging.NewNop()})
	defer pool.Shutdown(time.Second)

	if err := pool.Verify(context.Background()); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	ctx := context.Background()
	var mu sync.Mutex
	tokens := make(map[string]struct{})
	inFlight := 0
	maxInFlight := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := affinity.Do(ctx, pool, func(w *affinity.Worker) (struct{}, error) {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				tokens[w.Token()] = struct{}{}
				mu.Unlock()

				mu.Lock()
				inFlight--
				mu.Unlock()
				return struct{}{}, nil
			})
			if err != nil {
				t.Errorf("Do failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(tokens) != 1 {
		t.Fatalf("expected one affinity token across 100 closures, saw %d", len(tokens))
	}
	if maxInFlight != 1 {
		t.Fatalf("expected strictly sequential execution, saw %d concurrent closures", maxInFlight)
	}
}

func TestSubmitReturnsResult(t *testing.T) {
	pool := affinity.NewPool(affinity.Config{Workers: 2, Logger: logging.NewNop()})
	defer pool.Shutdown(time.Second)

	future, err := affinity.Submit(pool, func(*affinity.Worker) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	value, err := future.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if value != 42 {
		t.Fatalf("unexpected value %d", value)
	}
}

func TestClosureErrorPropagates(t *testing.T) {
	pool := affinity.NewPool(affinity.Config{Workers: 1, Logger: logging.NewNop()})
	defer pool.Shutdown(time.Second)

	wantErr := errors.New("host refused")
	_, err := affinity.Do(context.Background(), pool, func(*affinity.Worker) (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected closure error, got %v", err)
	}
}

func TestClosurePanicIsContained(t *testing.T) {
	pool := affinity.NewPool(affinity.Config{Workers: 1, Logger: logging.NewNop()})
	defer pool.Shutdown(time.Second)

	_, err := affinity.Do(context.Background(), pool, func(*affinity.Worker) (int, error) {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected panic to surface as an error")
	}

	// The worker must survive the panic and keep serving.
	value, err := affinity.Do(context.Background(), pool, func(*affinity.Worker) (int, error) {
		return 7, nil
	})
	if err != nil || value != 7 {
		t.Fatalf("worker unusable after panic: value=%d err=%v", value, err)
	}
}

func TestPinFailureSurfacesInVerify(t *testing.T) {
	pool := affinity.NewPool(affinity.Config{
		Workers: 1,
		Pin:     func() error { return errors.New("apartment init failed") },
		Logger:  logging.NewNop(),
	})
	defer pool.Shutdown(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.Verify(ctx); err == nil {
		t.Fatal("expected Verify to fail when pinning failed")
	}
}

func TestShutdownRejectsNewWork(t *testing.T) {
	pool := affinity.NewPool(affinity.Config{Workers: 1, Logger: logging.NewNop()})
	if err := pool.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if _, err := affinity.Submit(pool, func(*affinity.Worker) (int, error) { return 0, nil }); !errors.Is(err, affinity.ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestShutdownDrainsQueuedWork(t *testing.T) {
	pool := affinity.NewPool(affinity.Config{Workers: 1, QueueDepth: 8, Logger: logging.NewNop()})

	var mu sync.Mutex
	completed := 0
	futures := make([]*affinity.Future[struct{}], 0, 5)
	for i := 0; i < 5; i++ {
		f, err := affinity.Submit(pool, func(*affinity.Worker) (struct{}, error) {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			completed++
			mu.Unlock()
			return struct{}{}, nil
		})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		futures = append(futures, f)
	}

	if err := pool.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	for _, f := range futures {
		if _, err := f.Wait(context.Background()); err != nil {
			t.Fatalf("queued work lost during drain: %v", err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if completed != 5 {
		t.Fatalf("expected all queued closures to run, got %d", completed)
	}
}

// TestVerifyDuringShutdownDoesNotPanic races Verify against Shutdown.
// Verify must either pass or report a closed pool; it must never send on a
// queue shutdown already closed.
func TestVerifyDuringShutdownDoesNotPanic(t *testing.T) {
	for i := 0; i < 50; i++ {
		pool := affinity.NewPool(affinity.Config{Workers: 2, Logger: logging.NewNop()})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := pool.Verify(context.Background()); err != nil && !errors.Is(err, affinity.ErrPoolClosed) {
				t.Errorf("Verify = %v, want nil or ErrPoolClosed", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := pool.Shutdown(time.Second); err != nil {
				t.Errorf("Shutdown = %v", err)
			}
		}()
		wg.Wait()
	}
}
