package auth

import (
	"errors"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
)

// PendingState is what the gateway remembers between redirecting the browser
// to the provider and receiving the callback.
type PendingState struct {
	// SessionID is the session that started the login. Only that session
	// may complete it.
	SessionID    string
	CodeVerifier string
	Nonce        string
	ReturnURL    string
	CreatedAt    time.Time
}

// StateRepo stores pending authorization states keyed by the state parameter.
type StateRepo interface {
	Upsert(state string, pending *PendingState) error
	// Take returns the pending state and removes it, so a state can only be
	// completed once.
	Take(state string) (*PendingState, error)
	Delete(state string) error
}

// InMemoryStateRepo is a thread-safe StateRepo. Entries older than ttl are
// dropped on write.
type InMemoryStateRepo struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	states map[string]PendingState
}

func NewInMemoryStateRepo(ttl time.Duration) *InMemoryStateRepo {
	return &InMemoryStateRepo{
		ttl:    ttl,
		now:    time.Now,
		states: make(map[string]PendingState),
	}
}

func (r *InMemoryStateRepo) WithClock(now func() time.Time) *InMemoryStateRepo {
	r.now = now
	return r
}

func (r *InMemoryStateRepo) Upsert(state string, pending *PendingState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if pending == nil {
		return errors.New("pending state cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	r.states[state] = *pending
	return nil
}

func (r *InMemoryStateRepo) Take(state string) (*PendingState, error) {
	if state == "" {
		return nil, apperrors.ErrInvalidState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pending, ok := r.states[state]
	if !ok {
		return nil, apperrors.ErrInvalidState
	}
	delete(r.states, state)

	if r.ttl > 0 && r.now().Sub(pending.CreatedAt) > r.ttl {
		return nil, apperrors.ErrStateExpired
	}
	return &pending, nil
}

func (r *InMemoryStateRepo) Delete(state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}

// Len returns the number of pending states, expired ones included.
func (r *InMemoryStateRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *InMemoryStateRepo) pruneLocked() {
	if r.ttl <= 0 {
		return
	}
	now := r.now()
	for k, v := range r.states {
		if now.Sub(v.CreatedAt) > r.ttl {
			delete(r.states, k)
		}
	}
}
