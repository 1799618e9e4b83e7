package models

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/api-sage/atm-simulator/src/internal/domain"
	"github.com/shopspring/decimal"
)

// FlexibleString accepts either a JSON string or a JSON number and keeps the
// raw text, so "50", 50 and 50.0 all reach amount validation unchanged.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return errors.New("amount must be a string or a number")
	}
	*f = FlexibleString(n.String())
	return nil
}

// CredentialString accepts any JSON value for a PIN or password field. Only a
// JSON string carries a credential; numbers, booleans, objects and null decode
// to "", which never matches a stored PIN and is never a valid new PIN.
type CredentialString string

func (c *CredentialString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = CredentialString(s)
		return nil
	}

	if !json.Valid(trimmed) {
		return errors.New("credential must be a JSON value")
	}
	*c = ""
	return nil
}

type LoginRequest struct {
	Pin CredentialString `json:"pin"`
}

type LoginResponse struct {
	Success          bool        `json:"success"`
	IsAdmin          bool        `json:"is_admin"`
	Message          string      `json:"message"`
	TransactionCount *int        `json:"transaction_count,omitempty"`
	Balance          json.Number `json:"balance,omitempty"`
}

type BalanceResponse struct {
	Balance json.Number `json:"balance"`
}

type WithdrawRequest struct {
	Amount FlexibleString `json:"amount"`
}

type WithdrawResponse struct {
	Success     bool                 `json:"success"`
	Message     string               `json:"message"`
	Balance     json.Number          `json:"balance,omitempty"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

type TransactionResponse struct {
	Timestamp    string      `json:"timestamp"`
	Type         string      `json:"type"`
	Amount       json.Number `json:"amount"`
	BalanceAfter json.Number `json:"balance_after"`
	Formatted    string      `json:"formatted"`
}

type ChangePinRequest struct {
	Pin CredentialString `json:"pin"`
}

type ChangePinResponse struct {
	Success  bool   `json:"success"`
	Step     int    `json:"step"`
	Message  string `json:"message"`
	Complete bool   `json:"complete,omitempty"`
}

type TransactionsResponse struct {
	Transactions []string `json:"transactions"`
	Count        int      `json:"count"`
}

type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ResetPinChangeResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// FailureResponse is returned for requests the server could not read.
type FailureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type DebugSession struct {
	ID            string      `json:"id"`
	LoggedIn      bool        `json:"logged_in"`
	IsAdmin       bool        `json:"is_admin"`
	Balance       json.Number `json:"balance"`
	PinChangeStep int         `json:"pin_change_step"`
	HasPendingPin bool        `json:"has_pending_pin"`
	CreatedAt     string      `json:"created_at"`
	ExpiresAt     string      `json:"expires_at"`
}

type DebugResponse struct {
	Session      DebugSession          `json:"session"`
	Transactions []TransactionResponse `json:"transactions"`
}

type ResetDataResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func Money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func NewTransactionResponse(record domain.TransactionRecord) TransactionResponse {
	return TransactionResponse{
		Timestamp:    record.FormattedTimestamp(),
		Type:         string(record.Type),
		Amount:       json.Number(decimal.NewFromInt(record.Amount).String()),
		BalanceAfter: Money(record.BalanceAfter),
		Formatted:    record.Formatted(),
	}
}
