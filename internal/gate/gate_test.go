package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMemoryGateSingleFlight(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()

	ok, err := g.Acquire(ctx, 1, 2)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, err = g.Acquire(ctx, 1, 2)
	if err != nil || ok {
		t.Fatalf("second acquire should be refused: ok=%v err=%v", ok, err)
	}

	// A different conversation is independent.
	ok, err = g.Acquire(ctx, 1, 3)
	if err != nil || !ok {
		t.Fatalf("other channel acquire: ok=%v err=%v", ok, err)
	}

	if err := g.Release(ctx, 1, 2); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = g.Acquire(ctx, 1, 2)
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestMemoryGateConcurrentAcquire(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()

	var acquired int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := g.Acquire(ctx, 7, 7)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			if ok {
				atomic.AddInt64(&acquired, 1)
			}
		}()
	}
	wg.Wait()

	if acquired != 1 {
		t.Fatalf("%d goroutines got the gate, want exactly 1", acquired)
	}
}
