package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/api-sage/atm-simulator/src/internal/adapter/http/middleware"
	"github.com/api-sage/atm-simulator/src/internal/adapter/http/models"
	"github.com/api-sage/atm-simulator/src/internal/domain"
	"github.com/api-sage/atm-simulator/src/internal/logger"
	"github.com/gorilla/mux"
)

type AuthService interface {
	Login(ctx context.Context, sessionID string, credential string) (models.LoginResponse, error)
}

type AccountService interface {
	GetBalance(ctx context.Context, sessionID string) (models.BalanceResponse, error)
	Withdraw(ctx context.Context, sessionID string, rawAmount string) (models.WithdrawResponse, error)
}

type PinService interface {
	ChangePin(ctx context.Context, sessionID string, input string) (models.ChangePinResponse, error)
	ResetPinChange(ctx context.Context, sessionID string) (models.ResetPinChangeResponse, error)
}

type TransactionService interface {
	GetTransactions(ctx context.Context, sessionID string) (models.TransactionsResponse, error)
}

type SessionService interface {
	Logout(ctx context.Context, sessionID string) error
}

type ATMController struct {
	auth         AuthService
	accounts     AccountService
	pins         PinService
	transactions TransactionService
	sessions     SessionService
}

func NewATMController(auth AuthService, accounts AccountService, pins PinService, transactions TransactionService, sessions SessionService) *ATMController {
	return &ATMController{
		auth:         auth,
		accounts:     accounts,
		pins:         pins,
		transactions: transactions,
		sessions:     sessions,
	}
}

func (c *ATMController) RegisterRoutes(router *mux.Router, sessionMiddleware func(http.Handler) http.Handler) {
	wrap := func(h http.HandlerFunc) http.Handler {
		if sessionMiddleware == nil {
			return h
		}
		return sessionMiddleware(h)
	}

	router.Handle("/api/login", wrap(c.login)).Methods(http.MethodPost)
	router.Handle("/api/balance", wrap(c.balance)).Methods(http.MethodGet)
	router.Handle("/api/withdraw", wrap(c.withdraw)).Methods(http.MethodPost)
	router.Handle("/api/change-pin", wrap(c.changePin)).Methods(http.MethodPost)
	router.Handle("/api/transactions", wrap(c.listTransactions)).Methods(http.MethodGet)
	router.Handle("/api/logout", wrap(c.logout)).Methods(http.MethodPost)
	router.Handle("/api/reset-pin-change", wrap(c.resetPinChange)).Methods(http.MethodPost)
}

func (c *ATMController) login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.LoginRequest
	if !decodeBody(w, r, &req, start) {
		return
	}
	logRequest(r, req)

	response, err := c.auth.Login(r.Context(), sessionID(r), string(req.Pin))
	if err != nil {
		writeServiceError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *ATMController) balance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.accounts.GetBalance(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *ATMController) withdraw(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.WithdrawRequest
	if !decodeBody(w, r, &req, start) {
		return
	}
	logRequest(r, req)

	response, err := c.accounts.Withdraw(r.Context(), sessionID(r), string(req.Amount))
	if err != nil {
		writeServiceError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *ATMController) changePin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.ChangePinRequest
	if !decodeBody(w, r, &req, start) {
		return
	}
	logRequest(r, req)

	response, err := c.pins.ChangePin(r.Context(), sessionID(r), string(req.Pin))
	if err != nil {
		writeServiceError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *ATMController) listTransactions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.transactions.GetTransactions(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *ATMController) logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if err := c.sessions.Logout(r.Context(), sessionID(r)); err != nil {
		writeServiceError(w, r, err, start)
		return
	}

	response := models.LogoutResponse{
		Success: true,
		Message: "Thank you for using Secure Bank ATM!",
	}
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *ATMController) resetPinChange(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.pins.ResetPinChange(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func sessionID(r *http.Request) string {
	return middleware.SessionIDFromContext(r.Context())
}

const maxBodyBytes = 64 << 10

// decodeBody writes a 400 and returns false when the body is not the expected
// JSON object or is larger than maxBodyBytes.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, start time.Time) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		logError(r, err, nil)
		response := models.FailureResponse{Success: false, Message: "invalid request body"}
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error, start time.Time) {
	if errors.Is(err, domain.ErrNotAuthorized) {
		response := models.ErrorResponse{Error: "Not authorized"}
		writeJSON(w, http.StatusUnauthorized, response)
		logResponse(r, http.StatusUnauthorized, response, start)
		return
	}

	logError(r, err, logger.Fields{"session": sessionID(r)})
	response := models.ErrorResponse{Error: "Internal server error"}
	writeJSON(w, http.StatusInternalServerError, response)
	logResponse(r, http.StatusInternalServerError, response, start)
}
