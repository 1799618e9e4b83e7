package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/api-sage/atm-simulator/src/internal/domain"
	"github.com/api-sage/atm-simulator/src/internal/logger"
)

type LedgerRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Append(ctx context.Context, record domain.TransactionRecord) error {
	logger.Info("ledger repository append", logger.Fields{
		"type":   record.Type,
		"amount": record.Amount,
	})

	const query = `
INSERT INTO transactions (
	occurred_at,
	type,
	amount,
	balance_after,
	formatted
) VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		record.Timestamp.Format(domain.TimestampLayout),
		string(record.Type),
		record.Amount,
		record.BalanceAfter,
		record.Formatted(),
	); err != nil {
		logger.Error("ledger repository append failed", err, nil)
		return fmt.Errorf("append transaction: %w", err)
	}

	return nil
}

func (r *LedgerRepository) ReadAll(ctx context.Context) ([]domain.TransactionRecord, error) {
	const query = `
SELECT occurred_at, type, amount, balance_after
FROM transactions
ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	defer rows.Close()

	records := make([]domain.TransactionRecord, 0)
	for rows.Next() {
		var record domain.TransactionRecord
		if err := scanRecord(rows, &record); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return records, nil
}

func (r *LedgerRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}

	return count, nil
}

func (r *LedgerRepository) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `TRUNCATE TABLE transactions RESTART IDENTITY`); err != nil {
		logger.Error("ledger repository reset failed", err, nil)
		return fmt.Errorf("reset transactions: %w", err)
	}

	logger.Info("ledger repository reset success", nil)
	return nil
}

func scanRecord(row rowScanner, record *domain.TransactionRecord) error {
	var occurredAt time.Time
	var recordType string
	if err := row.Scan(
		&occurredAt,
		&recordType,
		&record.Amount,
		&record.BalanceAfter,
	); err != nil {
		return err
	}

	// occurred_at has no zone; keep the stored wall clock in local time.
	record.Timestamp = time.Date(
		occurredAt.Year(), occurredAt.Month(), occurredAt.Day(),
		occurredAt.Hour(), occurredAt.Minute(), occurredAt.Second(), 0,
		time.Local,
	)
	record.Type = domain.TransactionType(recordType)
	record.BalanceAfter = record.BalanceAfter.Round(2)
	return nil
}
