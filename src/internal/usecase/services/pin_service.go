package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/api-sage/atm-simulator/src/internal/adapter/http/models"
	"github.com/api-sage/atm-simulator/src/internal/domain"
	"github.com/api-sage/atm-simulator/src/internal/logger"
)

type PinService struct {
	sessions domain.SessionRepository
	hasher   domain.PinHasher
}

func NewPinService(sessions domain.SessionRepository, hasher domain.PinHasher) *PinService {
	return &PinService{sessions: sessions, hasher: hasher}
}

// errSessionMoved means the session changed while a PIN step was being computed.
var errSessionMoved = errors.New("session changed during pin change")

const maxPinChangeAttempts = 3

// ChangePin advances the flow on a snapshot, so hashing happens outside the
// session lock, and stores the result only if the session is still unchanged.
func (s *PinService) ChangePin(ctx context.Context, sessionID string, input string) (models.ChangePinResponse, error) {
	logger.Info("pin service change pin request", logger.Fields{
		"sessionId": sessionID,
		"pin":       input,
	})

	var outcome domain.PinChangeOutcome
	var err error
	for attempt := 0; attempt < maxPinChangeAttempts; attempt++ {
		outcome, err = s.advance(ctx, sessionID, input)
		if !errors.Is(err, errSessionMoved) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotAuthorized) || errors.Is(err, domain.ErrSessionNotFound) {
			return models.ChangePinResponse{}, domain.ErrNotAuthorized
		}

		logger.Error("pin service change pin failed", err, logger.Fields{"sessionId": sessionID})
		return models.ChangePinResponse{Message: "Unable to change PIN right now"}, fmt.Errorf("change pin: %w", err)
	}

	logger.Info("pin service change pin step", logger.Fields{
		"sessionId": sessionID,
		"success":   outcome.Success,
		"step":      int(outcome.Step),
		"complete":  outcome.Complete,
	})

	return models.ChangePinResponse{
		Success:  outcome.Success,
		Step:     int(outcome.Step),
		Message:  outcome.Message,
		Complete: outcome.Complete,
	}, nil
}

func (s *PinService) advance(ctx context.Context, sessionID string, input string) (domain.PinChangeOutcome, error) {
	snapshot, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.PinChangeOutcome{}, err
	}

	next, outcome, err := snapshot.ChangePin(input, s.hasher)
	if err != nil {
		return domain.PinChangeOutcome{}, err
	}

	if _, err := s.sessions.Update(ctx, sessionID, func(session *domain.Session) error {
		if !session.CanTransact() {
			return domain.ErrNotAuthorized
		}
		if session.PinHash != snapshot.PinHash || session.PinChange != snapshot.PinChange {
			return errSessionMoved
		}
		session.PinHash = next.PinHash
		session.PinChange = next.PinChange
		return nil
	}); err != nil {
		return domain.PinChangeOutcome{}, err
	}

	return outcome, nil
}

// ResetPinChange abandons any PIN change in progress. It needs no login.
func (s *PinService) ResetPinChange(ctx context.Context, sessionID string) (models.ResetPinChangeResponse, error) {
	if _, err := s.sessions.Update(ctx, sessionID, func(session *domain.Session) error {
		session.PinChange = session.PinChange.Reset()
		return nil
	}); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		logger.Error("pin service reset pin change failed", err, logger.Fields{"sessionId": sessionID})
		return models.ResetPinChangeResponse{}, fmt.Errorf("reset pin change: %w", err)
	}

	return models.ResetPinChangeResponse{Success: true}, nil
}
