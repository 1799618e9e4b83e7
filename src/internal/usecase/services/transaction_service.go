package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/atm-simulator/src/internal/adapter/http/models"
	"github.com/api-sage/atm-simulator/src/internal/domain"
	"github.com/api-sage/atm-simulator/src/internal/logger"
)

type TransactionService struct {
	sessions domain.SessionRepository
	ledger   domain.LedgerRepository
}

func NewTransactionService(sessions domain.SessionRepository, ledger domain.LedgerRepository) *TransactionService {
	return &TransactionService{sessions: sessions, ledger: ledger}
}

// GetTransactions returns the whole ledger. Admins and customers currently see
// the same list.
func (s *TransactionService) GetTransactions(ctx context.Context, sessionID string) (models.TransactionsResponse, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return models.TransactionsResponse{}, domain.ErrNotAuthorized
		}
		return models.TransactionsResponse{}, fmt.Errorf("get transactions: %w", err)
	}
	if !session.LoggedIn {
		return models.TransactionsResponse{}, domain.ErrNotAuthorized
	}

	records, err := s.ledger.ReadAll(ctx)
	if err != nil {
		logger.Error("transaction service read ledger failed", err, logger.Fields{"sessionId": sessionID})
		return models.TransactionsResponse{}, fmt.Errorf("get transactions: %w", err)
	}

	lines := make([]string, 0, len(records))
	for _, record := range records {
		lines = append(lines, record.Formatted())
	}

	logger.Info("transaction service get transactions success", logger.Fields{
		"sessionId": sessionID,
		"isAdmin":   session.IsAdmin,
		"count":     len(lines),
	})

	return models.TransactionsResponse{Transactions: lines, Count: len(lines)}, nil
}

// Debug exposes the caller's session flags and the raw ledger. PIN hashes are never included.
func (s *TransactionService) Debug(ctx context.Context, sessionID string) (models.DebugResponse, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.DebugResponse{}, fmt.Errorf("debug session: %w", err)
	}

	records, err := s.ledger.ReadAll(ctx)
	if err != nil {
		return models.DebugResponse{}, fmt.Errorf("debug ledger: %w", err)
	}

	transactions := make([]models.TransactionResponse, 0, len(records))
	for _, record := range records {
		transactions = append(transactions, models.NewTransactionResponse(record))
	}

	_, pending := session.PinChange.Pending()
	return models.DebugResponse{
		Session: models.DebugSession{
			ID:            session.ID,
			LoggedIn:      session.LoggedIn,
			IsAdmin:       session.IsAdmin,
			Balance:       models.Money(session.Balance),
			PinChangeStep: int(session.PinChange.Step()),
			HasPendingPin: pending,
			CreatedAt:     session.CreatedAt.Format(time.RFC3339),
			ExpiresAt:     session.ExpiresAt.Format(time.RFC3339),
		},
		Transactions: transactions,
	}, nil
}

// ResetData wipes the ledger and the caller's session.
func (s *TransactionService) ResetData(ctx context.Context, sessionID string) (models.ResetDataResponse, error) {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return models.ResetDataResponse{}, fmt.Errorf("reset data: %w", err)
	}

	if err := s.ledger.Reset(ctx); err != nil {
		logger.Error("transaction service reset ledger failed", err, nil)
		return models.ResetDataResponse{}, fmt.Errorf("reset data: %w", err)
	}

	logger.Info("transaction service reset data success", logger.Fields{"sessionId": sessionID})
	return models.ResetDataResponse{Success: true, Message: "All data reset"}, nil
}
