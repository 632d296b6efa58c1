package session

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a controllable time source for deadline tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(ttl, WithClock(clock.Now)), clock
}

func mustCreate(t *testing.T, store *Store, id string) Session {
	t.Helper()
	s, err := store.Create(id)
	if err != nil {
		t.Fatalf("Create(%q) error: %v", id, err)
	}
	return s
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(30 * time.Minute)
	created := mustCreate(t, store, "")
	if created.ID == "" {
		t.Fatal("Create() returned empty ID")
	}
	if got := created.ExpiresAt.Sub(created.CreatedAt); got != 30*time.Minute {
		t.Errorf("TTL = %v, want 30m", got)
	}

	fetched, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if fetched.ID != created.ID {
		t.Errorf("Get() ID = %q, want %q", fetched.ID, created.ID)
	}
}

func TestCreate_RequestedID(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(30 * time.Minute)

	s := mustCreate(t, store, "client-chosen-id")
	if s.ID != "client-chosen-id" {
		t.Errorf("ID = %q, want client-chosen-id", s.ID)
	}

	// A live session holds its id.
	if _, err := store.Create("client-chosen-id"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Create() on a live id error = %v, want ErrAlreadyExists", err)
	}

	// Once expired, the id is free again and the old turns are gone.
	if err := store.AppendTurn(s.ID, "user", "hello"); err != nil {
		t.Fatalf("AppendTurn() error: %v", err)
	}
	clock.Advance(31 * time.Minute)
	replaced := mustCreate(t, store, "client-chosen-id")
	if replaced.TurnCount != 0 {
		t.Errorf("replaced session TurnCount = %d, want 0", replaced.TurnCount)
	}
}

func TestGetOrCreate(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(30 * time.Minute)

	s1, created := store.GetOrCreate("")
	if !created {
		t.Fatal("expected creation for empty ID")
	}

	s2, created := store.GetOrCreate(s1.ID)
	if created {
		t.Fatal("expected existing session to be returned")
	}
	if s2.ID != s1.ID {
		t.Errorf("ID = %q, want %q", s2.ID, s1.ID)
	}

	// Unknown ID is adopted for the fresh session.
	s3, created := store.GetOrCreate("client-chosen-id")
	if !created {
		t.Fatal("expected creation for unknown ID")
	}
	if s3.ID != "client-chosen-id" {
		t.Errorf("ID = %q, want client-chosen-id", s3.ID)
	}

	// An expired session under the same ID is replaced, losing its turns.
	if err := store.AppendTurn(s3.ID, "user", "hello"); err != nil {
		t.Fatalf("AppendTurn() error: %v", err)
	}
	clock.Advance(31 * time.Minute)
	s4, created := store.GetOrCreate(s3.ID)
	if !created {
		t.Fatal("expected expired session to be replaced")
	}
	if s4.TurnCount != 0 {
		t.Errorf("replaced session TurnCount = %d, want 0", s4.TurnCount)
	}
}

func TestExpiryIsFixedNotSliding(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(30 * time.Minute)
	s := mustCreate(t, store, "")

	// Activity at minute 29 must not extend the deadline.
	clock.Advance(29 * time.Minute)
	if err := store.AppendTurn(s.ID, "user", "still here"); err != nil {
		t.Fatalf("AppendTurn() error: %v", err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := store.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after deadline error = %v, want ErrNotFound", err)
	}
	if err := store.AppendTurn(s.ID, "user", "too late"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendTurn() after deadline error = %v, want ErrNotFound", err)
	}
	if _, err := store.History(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("History() after deadline error = %v, want ErrNotFound", err)
	}
}

func TestHistoryOrderAndIsolation(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(30 * time.Minute)
	s := mustCreate(t, store, "")

	for _, turn := range []struct{ role, content string }{
		{"user", "what's the weather?"},
		{"assistant", "sunny with a chance of tea"},
		{"user", "thanks"},
	} {
		if err := store.AppendTurn(s.ID, turn.role, turn.content); err != nil {
			t.Fatalf("AppendTurn() error: %v", err)
		}
	}

	history, err := store.History(s.ID)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("History() len = %d, want 3", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Errorf("unexpected roles: %q, %q", history[0].Role, history[1].Role)
	}
	if history[1].Content != "sunny with a chance of tea" {
		t.Errorf("unexpected content: %q", history[1].Content)
	}

	// The returned slice is a copy; mutating it must not affect the store.
	history[0].Content = "mutated"
	again, _ := store.History(s.ID)
	if again[0].Content != "what's the weather?" {
		t.Error("History() returned shared backing storage")
	}
}

func TestSweepAndLen(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(30 * time.Minute)
	old := mustCreate(t, store, "")
	clock.Advance(20 * time.Minute)
	fresh := mustCreate(t, store, "")

	clock.Advance(15 * time.Minute) // old is 35m, fresh is 15m

	if got := store.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1 before sweep", got)
	}
	if removed := store.Sweep(); removed != 1 {
		t.Errorf("Sweep() = %d, want 1", removed)
	}
	if _, err := store.Get(old.ID); !errors.Is(err, ErrNotFound) {
		t.Error("expected swept session to be gone")
	}
	if _, err := store.Get(fresh.ID); err != nil {
		t.Errorf("fresh session should survive sweep: %v", err)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(30 * time.Minute)
	s := mustCreate(t, store, "")
	store.Delete(s.ID)
	if _, err := store.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Error("expected deleted session to be gone")
	}
	store.Delete("never-existed") // no-op
}

func TestGetOrCreate_ConcurrentFreshID(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(30 * time.Minute)

	const goroutines = 32
	var (
		start   = make(chan struct{})
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = make(map[string]struct{})
		created int
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s, fresh := store.GetOrCreate("race-id")
			mu.Lock()
			defer mu.Unlock()
			ids[s.ID] = struct{}{}
			if fresh {
				created++
			}
		}()
	}
	close(start)
	wg.Wait()

	if created != 1 {
		t.Errorf("got %d creations for one id, want exactly 1", created)
	}
	if len(ids) != 1 {
		t.Errorf("got %d distinct session ids, want 1: %v", len(ids), ids)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(30 * time.Minute)
	s := mustCreate(t, store, "")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = store.AppendTurn(s.ID, "user", "x")
				_, _ = store.History(s.ID)
				_, _ = store.GetOrCreate(s.ID)
				_ = store.Len()
			}
		}()
	}
	wg.Wait()

	history, err := store.History(s.ID)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 16*50 {
		t.Errorf("History() len = %d, want %d", len(history), 16*50)
	}
}
