package memory

import (
	"context"
	"sync"

	"github.com/api-sage/atm-simulator/src/internal/domain"
)

// LedgerRepository is a non-persistent ledger, used when LEDGER_DRIVER=memory and in tests.
type LedgerRepository struct {
	mu      sync.RWMutex
	records []domain.TransactionRecord
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

func (r *LedgerRepository) Append(_ context.Context, record domain.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, record)
	return nil
}

func (r *LedgerRepository) ReadAll(_ context.Context) ([]domain.TransactionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.TransactionRecord, len(r.records))
	copy(out, r.records)
	return out, nil
}

func (r *LedgerRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.records), nil
}

func (r *LedgerRepository) Reset(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = nil
	return nil
}
