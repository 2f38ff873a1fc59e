package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/lodging-aggregator/internal/obs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryStoreLazyExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	if err := s.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}

	// 1ms before expiry: still a hit
	now = now.Add(time.Minute - time.Millisecond)
	if _, found, _ := s.Get(context.Background(), "k"); !found {
		t.Fatal("expected hit just before expiry")
	}

	// expiresAt + 1ms: must read as a miss
	now = now.Add(2 * time.Millisecond)
	if _, found, _ := s.Get(context.Background(), "k"); found {
		t.Fatal("expected miss after expiry")
	}
	if s.Len() != 0 {
		t.Fatalf("expired entry should be dropped on read, have %d", s.Len())
	}
}

func TestResultCacheRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	c := NewResultCache(store, TTLs{Search: time.Minute, Detail: time.Minute, Availability: time.Minute},
		obs.NewMetrics(prometheus.NewRegistry()), testLogger())

	type payload struct {
		N int `json:"n"`
	}
	c.Put(ClassSearch, "sig", payload{N: 7})

	// writes are detached from the response path; poll for it to land
	deadline := time.After(time.Second)
	for store.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("write never landed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	var got payload
	if !c.Get(context.Background(), ClassSearch, "sig", &got) || got.N != 7 {
		t.Fatalf("got %+v", got)
	}

	// classes namespace their keys
	var other payload
	if c.Get(context.Background(), ClassDetail, "sig", &other) {
		t.Fatal("detail class must not see search class entries")
	}

	c.Invalidate(context.Background(), ClassSearch, "sig")
	if c.Get(context.Background(), ClassSearch, "sig", &got) {
		t.Fatal("expected miss after invalidate")
	}
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}
func (failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("backend down")
}
func (failingStore) Delete(ctx context.Context, key string) error {
	return errors.New("backend down")
}

func TestResultCacheFailsOpen(t *testing.T) {
	c := NewResultCache(failingStore{}, TTLs{Search: time.Minute},
		obs.NewMetrics(prometheus.NewRegistry()), testLogger())

	var out struct{}
	if c.Get(context.Background(), ClassSearch, "sig", &out) {
		t.Fatal("backend errors must read as misses")
	}
	// writes must not panic or block the caller
	c.Put(ClassSearch, "sig", struct{}{})
}

func TestResultCacheUndecodableEntryIsMiss(t *testing.T) {
	store := NewMemoryStore()
	c := NewResultCache(store, TTLs{Search: time.Minute},
		obs.NewMetrics(prometheus.NewRegistry()), testLogger())

	_ = store.Set(context.Background(), "search:sig", []byte("{not json"), time.Minute)

	var out struct{ N int }
	if c.Get(context.Background(), ClassSearch, "sig", &out) {
		t.Fatal("undecodable entry must read as a miss")
	}
}
