package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/lodging-aggregator/internal/models"
	"github.com/example/lodging-aggregator/internal/obs"
)

func TestCoalescerCollapsesConcurrentCalls(t *testing.T) {
	c := NewCoalescer(50*time.Millisecond, obs.NewMetrics(prometheus.NewRegistry()))

	var calls int32
	fn := func(ctx context.Context) (models.AggregatedResult, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return models.AggregatedResult{TotalCount: 3}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Do(context.Background(), "sig", fn)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if res.TotalCount != 3 {
				t.Errorf("got %d", res.TotalCount)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected single computation, got %d", n)
	}
}

func TestCoalescerGraceWindowAbsorbsStragglers(t *testing.T) {
	c := NewCoalescer(200*time.Millisecond, obs.NewMetrics(prometheus.NewRegistry()))

	var calls int32
	fn := func(ctx context.Context) (models.AggregatedResult, error) {
		atomic.AddInt32(&calls, 1)
		return models.AggregatedResult{TotalCount: 1}, nil
	}

	if _, err := c.Do(context.Background(), "sig", fn); err != nil {
		t.Fatal(err)
	}
	// straggler arriving within the grace window joins the settled result
	res, err := c.Do(context.Background(), "sig", fn)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount != 1 {
		t.Fatalf("got %d", res.TotalCount)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("straggler should not recompute, calls = %d", n)
	}

	// after the grace window the entry is gone and a new call recomputes
	deadline := time.After(time.Second)
	for c.InFlight() != 0 {
		select {
		case <-deadline:
			t.Fatal("entry never removed after grace window")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if _, err := c.Do(context.Background(), "sig", fn); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected recompute after removal, calls = %d", n)
	}
}

func TestCoalescerPropagatesFailureToWaiters(t *testing.T) {
	c := NewCoalescer(10*time.Millisecond, obs.NewMetrics(prometheus.NewRegistry()))

	boom := errors.New("boom")
	started := make(chan struct{})
	fn := func(ctx context.Context) (models.AggregatedResult, error) {
		close(started)
		time.Sleep(30 * time.Millisecond)
		return models.AggregatedResult{}, boom
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Do(context.Background(), "sig", fn)
		errCh <- err
	}()
	<-started

	_, err := c.Do(context.Background(), "sig", func(ctx context.Context) (models.AggregatedResult, error) {
		t.Error("waiter must not start its own computation")
		return models.AggregatedResult{}, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("waiter should see the leader's error, got %v", err)
	}
	if err := <-errCh; !errors.Is(err, boom) {
		t.Fatalf("leader error = %v", err)
	}
}

func TestCoalescerWaiterHonorsContext(t *testing.T) {
	c := NewCoalescer(10*time.Millisecond, obs.NewMetrics(prometheus.NewRegistry()))

	started := make(chan struct{})
	release := make(chan struct{})
	go c.Do(context.Background(), "sig", func(ctx context.Context) (models.AggregatedResult, error) {
		close(started)
		<-release
		return models.AggregatedResult{}, nil
	})
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Do(ctx, "sig", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
