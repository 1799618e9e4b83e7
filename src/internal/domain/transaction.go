package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type TransactionType string

const (
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

// TimestampLayout is the layout used for persisted and displayed transaction times.
const TimestampLayout = "2006-01-02 15:04:05"

type TransactionRecord struct {
	Timestamp    time.Time
	Type         TransactionType
	Amount       int64
	BalanceAfter decimal.Decimal
}

func NewWithdrawalRecord(at time.Time, amount int64, balanceAfter decimal.Decimal) TransactionRecord {
	return TransactionRecord{
		Timestamp:    at.Truncate(time.Second),
		Type:         TransactionTypeWithdrawal,
		Amount:       amount,
		BalanceAfter: balanceAfter.Round(2),
	}
}

func (t TransactionRecord) FormattedTimestamp() string {
	return t.Timestamp.Format(TimestampLayout)
}

// Formatted renders the record as a single history line, e.g.
// "2024-01-02 15:04:05 | Withdrawal £50.00 | Balance £73.45".
func (t TransactionRecord) Formatted() string {
	return fmt.Sprintf(
		"%s | %s £%s | Balance £%s",
		t.FormattedTimestamp(),
		cases.Title(language.English).String(string(t.Type)),
		decimal.NewFromInt(t.Amount).StringFixed(2),
		t.BalanceAfter.StringFixed(2),
	)
}
