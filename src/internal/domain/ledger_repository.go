package domain

import "context"

// LedgerRepository is the append-only transaction log. Records are returned in
// insertion order.
type LedgerRepository interface {
	Append(ctx context.Context, record TransactionRecord) error
	ReadAll(ctx context.Context) ([]TransactionRecord, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}
