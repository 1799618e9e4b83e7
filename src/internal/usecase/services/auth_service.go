package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/api-sage/atm-simulator/src/internal/adapter/http/models"
	"github.com/api-sage/atm-simulator/src/internal/domain"
	"github.com/api-sage/atm-simulator/src/internal/logger"
	"github.com/shopspring/decimal"
)

type AuthService struct {
	sessions  domain.SessionRepository
	ledger    domain.LedgerRepository
	hasher    domain.PinHasher
	adminHash string
}

func NewAuthService(sessions domain.SessionRepository, ledger domain.LedgerRepository, hasher domain.PinHasher, adminPassword string) (*AuthService, error) {
	if adminPassword == "" {
		return nil, fmt.Errorf("admin password is required")
	}

	adminHash, err := hasher.Hash(adminPassword)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	return &AuthService{
		sessions:  sessions,
		ledger:    ledger,
		hasher:    hasher,
		adminHash: adminHash,
	}, nil
}

type loginKind int

const (
	loginRejected loginKind = iota
	loginCustomer
	loginAdmin
)

// errPinChangedDuringLogin rejects a PIN match when the session PIN was replaced
// between the snapshot and the update.
var errPinChangedDuringLogin = errors.New("pin changed during login")

// Login checks the admin credential first, then the session PIN. A rejected
// attempt leaves the login flags untouched and does not say which check failed.
// Hash comparisons run on a snapshot so the session lock only covers the flag change.
func (s *AuthService) Login(ctx context.Context, sessionID string, credential string) (models.LoginResponse, error) {
	logger.Info("auth service login request", logger.Fields{
		"sessionId":  sessionID,
		"credential": credential,
	})

	snapshot, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		logger.Error("auth service login session lookup failed", err, logger.Fields{"sessionId": sessionID})
		return models.LoginResponse{Message: "Unable to log in right now"}, fmt.Errorf("login: %w", err)
	}

	kind := loginRejected
	switch {
	case s.hasher.Matches(s.adminHash, credential):
		kind = loginAdmin
	case s.hasher.Matches(snapshot.PinHash, credential):
		kind = loginCustomer
	}

	var balance decimal.Decimal
	if kind != loginRejected {
		_, err := s.sessions.Update(ctx, sessionID, func(session *domain.Session) error {
			if kind == loginCustomer && session.PinHash != snapshot.PinHash {
				return errPinChangedDuringLogin
			}
			session.LoggedIn = true
			session.IsAdmin = kind == loginAdmin
			balance = session.Balance
			return nil
		})
		switch {
		case errors.Is(err, errPinChangedDuringLogin):
			kind = loginRejected
		case err != nil:
			logger.Error("auth service login session update failed", err, logger.Fields{"sessionId": sessionID})
			return models.LoginResponse{Message: "Unable to log in right now"}, fmt.Errorf("login: %w", err)
		}
	}

	switch kind {
	case loginAdmin:
		logger.Info("auth service admin login success", logger.Fields{"sessionId": sessionID})
		return models.LoginResponse{
			Success: true,
			IsAdmin: true,
			Message: "Admin login successful!",
		}, nil

	case loginCustomer:
		count, err := s.ledger.Count(ctx)
		if err != nil {
			logger.Error("auth service login ledger count failed", err, logger.Fields{"sessionId": sessionID})
			return models.LoginResponse{Message: "Unable to log in right now"}, fmt.Errorf("login: %w", err)
		}

		logger.Info("auth service customer login success", logger.Fields{"sessionId": sessionID})
		return models.LoginResponse{
			Success:          true,
			IsAdmin:          false,
			Message:          "Login successful!",
			TransactionCount: &count,
			Balance:          models.Money(balance),
		}, nil

	default:
		logger.Warn("auth service login rejected", logger.Fields{"sessionId": sessionID})
		return models.LoginResponse{
			Success: false,
			Message: "Incorrect PIN or password. Please try again.",
		}, nil
	}
}
