// Package session implements the ephemeral in-memory conversation store.
//
// Every session lives for a fixed TTL from its creation; the deadline does
// not slide on activity. Expired sessions are invisible to all lookups the
// moment their deadline passes, and a background reaper (see [Store.Run])
// reclaims their memory periodically. Nothing is ever persisted: process
// restart loses all conversation state by design.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the session lifetime applied when no explicit TTL is configured.
const DefaultTTL = 30 * time.Minute

// DefaultSweepInterval is how often the background reaper runs by default.
const DefaultSweepInterval = 5 * time.Minute

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session: not found")

// ErrAlreadyExists is returned by Create when the requested ID belongs to a
// live session.
var ErrAlreadyExists = errors.New("session: already exists")

// Turn is a single conversation exchange entry.
type Turn struct {
	// Role is "user" or "assistant".
	Role string

	// Content is the turn's text (transcript or reply).
	Content string

	// At is when the turn was appended.
	At time.Time
}

// Session is a snapshot of one conversation's metadata. Turns are retrieved
// separately via [Store.History].
type Session struct {
	// ID is the session's unique identifier.
	ID string

	// CreatedAt is when the session was created.
	CreatedAt time.Time

	// ExpiresAt is the fixed deadline after which the session is gone.
	// It never moves, regardless of activity.
	ExpiresAt time.Time

	// TurnCount is the number of turns appended so far.
	TurnCount int
}

// entry is the mutable per-session record guarded by the store mutex.
type entry struct {
	createdAt time.Time
	expiresAt time.Time
	turns     []Turn
}

// Store is the mutex-guarded session map. All exported methods are safe for
// concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry

	ttl time.Duration
	now func() time.Time
}

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithClock overrides the store's time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store whose sessions live for ttl from creation.
// A non-positive ttl falls back to DefaultTTL.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create creates a new session under the requested id, or under a generated
// UUID when id is empty. Requesting an id held by a live session fails with
// ErrAlreadyExists; an expired session under the same id is replaced.
func (s *Store) Create(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	} else if e, ok := s.sessions[id]; ok && s.now().Before(e.expiresAt) {
		return Session{}, ErrAlreadyExists
	}
	return s.createLocked(id), nil
}

// GetOrCreate returns the live session with the given ID, or atomically
// creates a fresh one when id is empty, unknown, or expired. The second
// return value reports whether a new session was created. An expired session
// under the same ID is replaced, not resurrected: its turns are gone.
func (s *Store) GetOrCreate(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if e, ok := s.sessions[id]; ok && s.now().Before(e.expiresAt) {
			return snapshot(id, e), false
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	return s.createLocked(id), true
}

// Get returns a snapshot of the live session with the given ID.
// Expired sessions are indistinguishable from absent ones.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || !s.now().Before(e.expiresAt) {
		return Session{}, ErrNotFound
	}
	return snapshot(id, e), nil
}

// AppendTurn appends a conversation turn to the live session with the given
// ID. Appending does not extend the session's deadline.
func (s *Store) AppendTurn(id, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || !s.now().Before(e.expiresAt) {
		return ErrNotFound
	}
	e.turns = append(e.turns, Turn{Role: role, Content: content, At: s.now()})
	return nil
}

// History returns a copy of the session's turns in append order.
func (s *Store) History(id string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, ErrNotFound
	}
	turns := make([]Turn, len(e.turns))
	copy(turns, e.turns)
	return turns, nil
}

// Delete removes a session regardless of its deadline. Deleting an unknown
// session is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sweep removes all expired sessions and returns how many were reclaimed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live (unexpired) sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, e := range s.sessions {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is cancelled. A
// non-positive interval falls back to DefaultSweepInterval. Run blocks; start
// it on its own goroutine.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				slog.Debug("session reaper swept expired sessions",
					"removed", removed,
					"remaining", s.Len(),
				)
			}
		}
	}
}

// createLocked inserts a fresh session under id. Caller holds s.mu.
func (s *Store) createLocked(id string) Session {
	now := s.now()
	e := &entry{
		createdAt: now,
		expiresAt: now.Add(s.ttl),
	}
	s.sessions[id] = e
	return snapshot(id, e)
}

// snapshot builds an immutable view of an entry.
func snapshot(id string, e *entry) Session {
	return Session{
		ID:        id,
		CreatedAt: e.createdAt,
		ExpiresAt: e.expiresAt,
		TurnCount: len(e.turns),
	}
}
