package idgen

import (
	"sync"
	"testing"
	"time"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestGenerator_MonotonicAndDecodable(t *testing.T) {
	start := time.UnixMilli(Epoch + 1000).UTC()
	clock := &fixedClock{now: start}
	g, err := New(7, clock.Now)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	prev := int64(-1)
	for i := 0; i < 100; i++ {
		id, err := g.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}

	if got := Time(prev); !got.Equal(start) {
		t.Fatalf("Time() = %v, want %v", got, start)
	}
	if got := Node(prev); got != 7 {
		t.Fatalf("Node() = %d, want 7", got)
	}
}

func TestGenerator_NodeIDTooLarge(t *testing.T) {
	if _, err := New(1024, nil); err != ErrNodeIDTooLarge {
		t.Fatalf("expected ErrNodeIDTooLarge, got %v", err)
	}
}

func TestGenerator_ClockSkew(t *testing.T) {
	clock := &fixedClock{now: time.UnixMilli(Epoch + 2000)}
	g, _ := New(1, clock.Now)

	first, _ := g.Next()

	clock.Set(time.UnixMilli(Epoch + 1998))
	second, err := g.Next()
	if err != nil {
		t.Fatalf("small skew should be absorbed, got %v", err)
	}
	if second <= first {
		t.Fatalf("expected increasing ids across small skew")
	}

	clock.Set(time.UnixMilli(Epoch + 1000))
	if _, err := g.Next(); err != ErrClockMovedBack {
		t.Fatalf("expected ErrClockMovedBack, got %v", err)
	}
}

func TestGenerator_ConcurrentUnique(t *testing.T) {
	g, _ := New(3, nil)
	const workers, perWorker = 8, 500

	ids := make(chan int64, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := g.Next()
				if err != nil {
					t.Errorf("Next() error = %v", err)
					return
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]struct{}, workers*perWorker)
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = struct{}{}
	}
}
