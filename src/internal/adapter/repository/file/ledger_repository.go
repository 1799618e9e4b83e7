package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/api-sage/atm-simulator/src/internal/domain"
	"github.com/api-sage/atm-simulator/src/internal/logger"
	"github.com/shopspring/decimal"
)

// LedgerRepository stores the ledger as a JSON array in a single file. Every
// append rewrites the whole file, so the mutex is the single writer.
type LedgerRepository struct {
	mu   sync.Mutex
	path string
}

type storedRecord struct {
	Timestamp    string      `json:"timestamp"`
	Type         string      `json:"type"`
	Amount       json.Number `json:"amount"`
	BalanceAfter json.Number `json:"balance_after"`
	Formatted    string      `json:"formatted"`
}

func NewLedgerRepository(path string) *LedgerRepository {
	return &LedgerRepository{path: path}
}

func (r *LedgerRepository) Append(_ context.Context, record domain.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.load()
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}

	stored = append(stored, toStored(record))
	if err := r.save(stored); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}

	logger.Info("file ledger append success", logger.Fields{
		"path":  r.path,
		"count": len(stored),
	})
	return nil
}

func (r *LedgerRepository) ReadAll(_ context.Context) ([]domain.TransactionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.load()
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}

	records := make([]domain.TransactionRecord, 0, len(stored))
	for i, item := range stored {
		record, err := fromStored(item)
		if err != nil {
			return nil, fmt.Errorf("read transaction %d: %w", i, err)
		}
		records = append(records, record)
	}

	return records, nil
}

func (r *LedgerRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.load()
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}

	return len(stored), nil
}

func (r *LedgerRepository) Reset(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reset transactions: %w", err)
	}

	logger.Info("file ledger reset", logger.Fields{"path": r.path})
	return nil
}

func (r *LedgerRepository) load() ([]storedRecord, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger file %q: %w", r.path, err)
	}

	if len(raw) == 0 {
		return nil, nil
	}

	var stored []storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode ledger file %q: %w", r.path, err)
	}

	return stored, nil
}

// save writes to a sibling temp file and renames it over the ledger so readers
// never observe a half-written file.
func (r *LedgerRepository) save(stored []storedRecord) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory %q: %w", dir, err)
	}

	raw, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp ledger file: %w", err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace ledger file %q: %w", r.path, err)
	}

	return nil
}

func toStored(record domain.TransactionRecord) storedRecord {
	return storedRecord{
		Timestamp:    record.FormattedTimestamp(),
		Type:         string(record.Type),
		Amount:       json.Number(decimal.NewFromInt(record.Amount).String()),
		BalanceAfter: json.Number(record.BalanceAfter.StringFixed(2)),
		Formatted:    record.Formatted(),
	}
}

func fromStored(item storedRecord) (domain.TransactionRecord, error) {
	at, err := time.ParseInLocation(domain.TimestampLayout, item.Timestamp, time.Local)
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("parse timestamp %q: %w", item.Timestamp, err)
	}

	amount, err := decimal.NewFromString(item.Amount.String())
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("parse amount %q: %w", item.Amount, err)
	}

	balanceAfter, err := decimal.NewFromString(item.BalanceAfter.String())
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("parse balance_after %q: %w", item.BalanceAfter, err)
	}

	return domain.TransactionRecord{
		Timestamp:    at,
		Type:         domain.TransactionType(item.Type),
		Amount:       amount.IntPart(),
		BalanceAfter: balanceAfter.Round(2),
	}, nil
}
