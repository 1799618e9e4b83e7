package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/atm-simulator/src/internal/adapter/http/models"
	"github.com/api-sage/atm-simulator/src/internal/domain"
	"github.com/api-sage/atm-simulator/src/internal/logger"
	"github.com/shopspring/decimal"
)

type AccountService struct {
	sessions domain.SessionRepository
	ledger   domain.LedgerRepository
	now      func() time.Time
}

func NewAccountService(sessions domain.SessionRepository, ledger domain.LedgerRepository) *AccountService {
	return &AccountService{
		sessions: sessions,
		ledger:   ledger,
		now:      time.Now,
	}
}

func (s *AccountService) GetBalance(ctx context.Context, sessionID string) (models.BalanceResponse, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return models.BalanceResponse{}, domain.ErrNotAuthorized
		}
		return models.BalanceResponse{}, fmt.Errorf("get balance: %w", err)
	}

	if !session.CanTransact() {
		return models.BalanceResponse{}, domain.ErrNotAuthorized
	}

	return models.BalanceResponse{Balance: models.Money(session.Balance)}, nil
}

// Withdraw debits the session and appends the ledger record under the session
// lock. If the append fails the session keeps its previous balance. Parsing the
// amount needs no session state and happens before the lock is taken.
func (s *AccountService) Withdraw(ctx context.Context, sessionID string, rawAmount string) (models.WithdrawResponse, error) {
	logger.Info("account service withdraw request", logger.Fields{
		"sessionId": sessionID,
		"amount":    rawAmount,
	})

	snapshot, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return models.WithdrawResponse{}, domain.ErrNotAuthorized
		}
		return models.WithdrawResponse{}, fmt.Errorf("withdraw: %w", err)
	}
	if !snapshot.CanTransact() {
		return models.WithdrawResponse{}, domain.ErrNotAuthorized
	}

	amount, err := domain.ParseWithdrawal(rawAmount)
	if err != nil {
		return withdrawRejected(sessionID, err)
	}

	var record domain.TransactionRecord
	updated, err := s.sessions.Update(ctx, sessionID, func(session *domain.Session) error {
		next, rec, err := session.Withdraw(amount, s.now())
		if err != nil {
			return err
		}

		if err := s.ledger.Append(ctx, rec); err != nil {
			return fmt.Errorf("record withdrawal: %w", err)
		}

		*session = next
		record = rec
		return nil
	})
	if err != nil {
		if _, ok := domain.IsValidationError(err); ok {
			return withdrawRejected(sessionID, err)
		}
		if errors.Is(err, domain.ErrNotAuthorized) || errors.Is(err, domain.ErrSessionNotFound) {
			return models.WithdrawResponse{}, domain.ErrNotAuthorized
		}

		logger.Error("account service withdraw failed", err, logger.Fields{"sessionId": sessionID})
		return models.WithdrawResponse{Message: "Unable to process withdrawal right now"}, fmt.Errorf("withdraw: %w", err)
	}

	transaction := models.NewTransactionResponse(record)
	logger.Info("account service withdraw success", logger.Fields{
		"sessionId":    sessionID,
		"amount":       record.Amount,
		"balanceAfter": record.BalanceAfter.StringFixed(2),
	})

	return models.WithdrawResponse{
		Success:     true,
		Message:     fmt.Sprintf("Success! £%s withdrawn.", decimal.NewFromInt(record.Amount).StringFixed(2)),
		Balance:     models.Money(updated.Balance),
		Transaction: &transaction,
	}, nil
}

func withdrawRejected(sessionID string, err error) (models.WithdrawResponse, error) {
	message, ok := domain.IsValidationError(err)
	if !ok {
		return models.WithdrawResponse{}, fmt.Errorf("withdraw: %w", err)
	}

	logger.Info("account service withdraw rejected", logger.Fields{
		"sessionId": sessionID,
		"reason":    message,
	})
	return models.WithdrawResponse{Success: false, Message: message}, nil
}
