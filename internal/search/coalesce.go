package search

import (
	"context"
	"sync"
	"time"

	"github.com/example/lodging-aggregator/internal/models"
	"github.com/example/lodging-aggregator/internal/obs"
)

type settled struct {
	res models.AggregatedResult
	err error
}

type pendingComputation struct {
	done    bool
	result  settled
	waiters []chan settled
}

// Coalescer is the pending-computation registry: at most one aggregation runs
// per query signature, and concurrent identical requests wait on the same
// computation. This is a thundering-herd guard only; a coalesced computation
// still writes the result cache so later requests hit the cache instead.
type Coalescer struct {
	mu      sync.Mutex
	pending map[string]*pendingComputation
	// grace keeps a settled entry around briefly so a burst of
	// near-simultaneous duplicates joins it instead of re-fanning-out.
	grace   time.Duration
	metrics *obs.Metrics
}

func NewCoalescer(grace time.Duration, m *obs.Metrics) *Coalescer {
	return &Coalescer{pending: make(map[string]*pendingComputation), grace: grace, metrics: m}
}

// Do runs fn for key, unless a computation for key is already in flight, in
// which case the caller awaits that one. The get-or-create of the pending
// entry is atomic under the registry mutex.
func (c *Coalescer) Do(ctx context.Context, key string, fn func(ctx context.Context) (models.AggregatedResult, error)) (models.AggregatedResult, error) {
	c.mu.Lock()
	if p, inFlight := c.pending[key]; inFlight {
		if p.done {
			result := p.result
			c.mu.Unlock()
			if c.metrics != nil {
				c.metrics.IncCoalescedJoins()
			}
			return result.res, result.err
		}
		ch := make(chan settled, 1)
		p.waiters = append(p.waiters, ch)
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.IncCoalescedJoins()
		}
		select {
		case <-ctx.Done():
			return models.AggregatedResult{}, ctx.Err()
		case r := <-ch:
			return r.res, r.err
		}
	}

	p := &pendingComputation{}
	c.pending[key] = p
	c.mu.Unlock()

	res, err := fn(ctx)
	result := settled{res: res, err: err}

	c.mu.Lock()
	p.done = true
	p.result = result
	waiters := p.waiters
	p.waiters = nil
	c.mu.Unlock()

	for _, w := range waiters {
		w <- result
		close(w)
	}

	// Removal is deferred by the grace window; late duplicates that raced the
	// settle still get this result rather than a second fan-out.
	time.AfterFunc(c.grace, func() {
		c.mu.Lock()
		if cur, ok := c.pending[key]; ok && cur == p {
			delete(c.pending, key)
		}
		c.mu.Unlock()
	})

	return res, err
}

// InFlight reports how many computations are currently registered.
func (c *Coalescer) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
