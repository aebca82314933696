package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeTime struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type fakeNet struct {
	online    bool
	listeners []func(bool)
}

func (n *fakeNet) Online() bool           { return n.online }
func (n *fakeNet) OnChange(fn func(bool)) { n.listeners = append(n.listeners, fn) }

func (n *fakeNet) set(online bool) {
	n.online = online
	for _, fn := range n.listeners {
		fn(online)
	}
}

func newCache(clock *fakeTime) *Cache {
	return New(Options{
		StaleTime:  30 * time.Second,
		CacheTime:  time.Hour,
		Retry:      2,
		RetryDelay: time.Millisecond,
		Now:        clock.Now,
	})
}

func counter(v string) (func(context.Context) (string, error), *int) {
	calls := 0
	return func(context.Context) (string, error) {
		calls++
		return v, nil
	}, &calls
}

func TestFreshResultIsServedFromCache(t *testing.T) {
	clock := &fakeTime{now: time.Unix(0, 0)}
	c := newCache(clock)
	fetch, calls := counter("gates")

	for i := 0; i < 3; i++ {
		v, err := Get(context.Background(), c, "gates", fetch)
		if err != nil || v != "gates" {
			t.Fatalf("Get = %q, %v", v, err)
		}
	}
	if *calls != 1 {
		t.Fatalf("fetch called %d times", *calls)
	}

	clock.Advance(30 * time.Second)
	Get(context.Background(), c, "gates", fetch)
	if *calls != 2 {
		t.Fatalf("stale entry not refetched, calls=%d", *calls)
	}
}

func TestRetriesThenFails(t *testing.T) {
	c := newCache(&fakeTime{now: time.Unix(0, 0)})
	boom := errors.New("boom")
	calls := 0
	_, err := Get(context.Background(), c, "k", func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 1 attempt + 2 retries, got %d", calls)
	}
}

func TestRetrySucceeds(t *testing.T) {
	c := newCache(&fakeTime{now: time.Unix(0, 0)})
	calls := 0
	v, err := Get(context.Background(), c, "k", func(context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("flaky")
		}
		return 7, nil
	})
	if err != nil || v != 7 || calls != 2 {
		t.Fatalf("Get = %d, %v after %d calls", v, err, calls)
	}
}

func TestShouldRetryStopsEarly(t *testing.T) {
	clock := &fakeTime{now: time.Unix(0, 0)}
	c := New(Options{Retry: 5, RetryDelay: time.Millisecond, Now: clock.Now, ShouldRetry: func(error) bool { return false }})
	calls := 0
	Get(context.Background(), c, "k", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("404")
	})
	if calls != 1 {
		t.Fatalf("non-retryable error retried, calls=%d", calls)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	c := New(Options{Retry: 3, RetryDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	_, err := Get(ctx, c, "k", func(context.Context) (int, error) {
		cancel()
		return 0, errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestOfflineServesStaleOrErrOffline(t *testing.T) {
	clock := &fakeTime{now: time.Unix(0, 0)}
	c := newCache(clock)
	net := &fakeNet{online: true}
	c.Watch(net)
	fetch, calls := counter("v1")

	Get(context.Background(), c, "a", fetch)
	net.set(false)
	clock.Advance(time.Minute)

	v, err := Get(context.Background(), c, "a", fetch)
	if err != nil || v != "v1" || *calls != 1 {
		t.Fatalf("offline Get = %q, %v, calls=%d", v, err, *calls)
	}
	if _, err := Get(context.Background(), c, "b", fetch); !errors.Is(err, ErrOffline) {
		t.Fatalf("expected ErrOffline, got %v", err)
	}
}

func TestReconnectMarksEntriesStale(t *testing.T) {
	clock := &fakeTime{now: time.Unix(0, 0)}
	c := newCache(clock)
	net := &fakeNet{online: true}
	c.Watch(net)
	fetch, calls := counter("v")

	Get(context.Background(), c, "a", fetch)
	net.set(false)
	net.set(true)
	Get(context.Background(), c, "a", fetch)
	if *calls != 2 {
		t.Fatalf("reconnect did not force refetch, calls=%d", *calls)
	}
}

func TestInvalidateAndSet(t *testing.T) {
	c := newCache(&fakeTime{now: time.Unix(0, 0)})
	c.Set("a", "seeded")
	fetch, calls := counter("fetched")

	if v, _ := Get(context.Background(), c, "a", fetch); v != "seeded" || *calls != 0 {
		t.Fatalf("Set value not served: %q", v)
	}
	c.Invalidate("a")
	if v, _ := Get(context.Background(), c, "a", fetch); v != "fetched" || *calls != 1 {
		t.Fatalf("Invalidate did not refetch: %q", v)
	}
}

func TestCollectDropsUnusedEntries(t *testing.T) {
	clock := &fakeTime{now: time.Unix(0, 0)}
	c := newCache(clock)
	c.Set("old", 1)
	clock.Advance(40 * time.Minute)
	c.Set("new", 2)
	clock.Advance(30 * time.Minute)

	if n := c.Collect(); n != 1 {
		t.Fatalf("collected %d", n)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestRunCollector(t *testing.T) {
	c := New(Options{CacheTime: time.Nanosecond})
	c.Set("a", 1)
	stop := make(chan struct{})
	defer close(stop)
	go c.RunCollector(5*time.Millisecond, stop)

	deadline := time.Now().Add(time.Second)
	for c.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("entry never collected")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
