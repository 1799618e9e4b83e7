package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/api-sage/atm-simulator/src/internal/domain"
	"github.com/api-sage/atm-simulator/src/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionService owns session lifecycle: every client gets a fresh session with
// the default PIN and starting balance on first contact and again after logout.
type SessionService struct {
	sessions        domain.SessionRepository
	defaultPinHash  string
	startingBalance decimal.Decimal
}

func NewSessionService(sessions domain.SessionRepository, hasher domain.PinHasher, defaultPin string, startingBalance decimal.Decimal) (*SessionService, error) {
	if !domain.IsValidPin(defaultPin) {
		return nil, fmt.Errorf("default pin must be exactly 4 digits")
	}

	hash, err := hasher.Hash(defaultPin)
	if err != nil {
		return nil, fmt.Errorf("hash default pin: %w", err)
	}

	return &SessionService{
		sessions:        sessions,
		defaultPinHash:  hash,
		startingBalance: startingBalance.Round(2),
	}, nil
}

// Resolve returns the live session for id, or starts a new one when id is empty,
// unknown or expired. The boolean reports whether a session was started.
func (s *SessionService) Resolve(ctx context.Context, id string) (domain.Session, bool, error) {
	if id != "" {
		session, err := s.sessions.Get(ctx, id)
		if err == nil {
			return session, false, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Session{}, false, fmt.Errorf("resolve session: %w", err)
		}
	}

	session, err := s.Start(ctx)
	if err != nil {
		return domain.Session{}, false, err
	}
	return session, true, nil
}

func (s *SessionService) Start(ctx context.Context) (domain.Session, error) {
	session, err := s.sessions.Create(ctx, domain.Session{
		ID:      uuid.NewString(),
		PinHash: s.defaultPinHash,
		Balance: s.startingBalance,
	})
	if err != nil {
		logger.Error("session service start failed", err, nil)
		return domain.Session{}, fmt.Errorf("start session: %w", err)
	}

	logger.Info("session service start success", logger.Fields{"sessionId": session.ID})
	return session, nil
}

// Logout discards the whole session. The ledger is not touched.
func (s *SessionService) Logout(ctx context.Context, id string) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		logger.Error("session service logout failed", err, logger.Fields{"sessionId": id})
		return fmt.Errorf("logout: %w", err)
	}

	logger.Info("session service logout success", logger.Fields{"sessionId": id})
	return nil
}
