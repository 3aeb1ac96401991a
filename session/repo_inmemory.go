package session

import (
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
)

// pruneEvery controls how many writes happen between sweeps of expired
// records. There is no background goroutine.
const pruneEvery = 128

// InMemoryRepo is an in-memory implementation of Repo
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Record
	writes   int
	now      func() time.Time
}

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Record),
		now:      time.Now,
	}
}

// WithClock replaces the time source, used by tests.
func (r *InMemoryRepo) WithClock(now func() time.Time) *InMemoryRepo {
	r.now = now
	return r
}

// Upsert creates or replaces a session record
func (r *InMemoryRepo) Upsert(sessionID string, record Record) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy the state so callers cannot mutate what is stored
	record.State = record.State.clone()
	r.sessions[sessionID] = record

	r.writes++
	if r.writes%pruneEvery == 0 {
		r.pruneLocked()
	}
	return nil
}

// Get retrieves a session record by id. Expired records are reported as
// ErrSessionExpired and removed.
func (r *InMemoryRepo) Get(sessionID string) (Record, error) {
	if sessionID == "" {
		return Record{}, fmt.Errorf("sessionID is required")
	}

	r.mu.RLock()
	record, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return Record{}, apperrors.ErrSessionNotFound
	}

	if record.Expired(r.now()) {
		_ = r.Delete(sessionID)
		return Record{}, apperrors.ErrSessionExpired
	}

	record.State = record.State.clone()
	return record, nil
}

// Delete removes a session record
func (r *InMemoryRepo) Delete(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}

// Len returns the number of stored records.
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *InMemoryRepo) pruneLocked() {
	now := r.now()
	for id, record := range r.sessions {
		if record.Expired(now) {
			delete(r.sessions, id)
		}
	}
}
