package domain

import "context"

type SessionRepository interface {
	Create(ctx context.Context, session Session) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	// Update applies fn to the stored session while holding the repository lock.
	// When fn returns an error the stored session is left untouched.
	Update(ctx context.Context, id string, fn func(*Session) error) (Session, error)
	Delete(ctx context.Context, id string) error
}
