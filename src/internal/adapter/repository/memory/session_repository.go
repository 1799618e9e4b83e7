package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/api-sage/atm-simulator/src/internal/domain"
)

// SessionRepository keeps sessions in process memory. Expiry is sliding: every
// successful read or update pushes ExpiresAt forward by ttl. Expired sessions are
// dropped lazily when they are next touched or when a new session is created.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionRepository(ttl time.Duration, now func() time.Time) *SessionRepository {
	if now == nil {
		now = time.Now
	}

	return &SessionRepository{
		sessions: make(map[string]domain.Session),
		ttl:      ttl,
		now:      now,
	}
}

func (r *SessionRepository) Create(_ context.Context, session domain.Session) (domain.Session, error) {
	if session.ID == "" {
		return domain.Session{}, fmt.Errorf("create session: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.purgeExpired(now)

	if _, exists := r.sessions[session.ID]; exists {
		return domain.Session{}, fmt.Errorf("create session %q: already exists", session.ID)
	}

	session.CreatedAt = now
	session.ExpiresAt = now.Add(r.ttl)
	r.sessions[session.ID] = session

	return session, nil
}

func (r *SessionRepository) Get(_ context.Context, id string) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := r.live(id)
	if err != nil {
		return domain.Session{}, err
	}

	session.ExpiresAt = r.now().Add(r.ttl)
	r.sessions[id] = session
	return session, nil
}

func (r *SessionRepository) Update(_ context.Context, id string, fn func(*domain.Session) error) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := r.live(id)
	if err != nil {
		return domain.Session{}, err
	}

	working := session
	if err := fn(&working); err != nil {
		return session, err
	}

	working.ID = id
	working.CreatedAt = session.CreatedAt
	working.ExpiresAt = r.now().Add(r.ttl)
	r.sessions[id] = working

	return working, nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *SessionRepository) live(id string) (domain.Session, error) {
	session, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	if session.Expired(r.now()) {
		delete(r.sessions, id)
		return domain.Session{}, domain.ErrSessionNotFound
	}

	return session, nil
}

func (r *SessionRepository) purgeExpired(now time.Time) {
	for id, session := range r.sessions {
		if session.Expired(now) {
			delete(r.sessions, id)
		}
	}
}
