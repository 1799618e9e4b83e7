package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/api-sage/atm-simulator/src/internal/adapter/http/models"
	"github.com/api-sage/atm-simulator/src/internal/adapter/repository/memory"
	"github.com/api-sage/atm-simulator/src/internal/domain"
	"github.com/api-sage/atm-simulator/src/internal/usecase/services"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type ledgerRepoStub struct {
	appendFn  func(ctx context.Context, record domain.TransactionRecord) error
	readAllFn func(ctx context.Context) ([]domain.TransactionRecord, error)
	countFn   func(ctx context.Context) (int, error)
	resetFn   func(ctx context.Context) error
}

func (s ledgerRepoStub) Append(ctx context.Context, record domain.TransactionRecord) error {
	if s.appendFn != nil {
		return s.appendFn(ctx, record)
	}
	return nil
}

func (s ledgerRepoStub) ReadAll(ctx context.Context) ([]domain.TransactionRecord, error) {
	if s.readAllFn != nil {
		return s.readAllFn(ctx)
	}
	return nil, nil
}

func (s ledgerRepoStub) Count(ctx context.Context) (int, error) {
	if s.countFn != nil {
		return s.countFn(ctx)
	}
	return 0, nil
}

func (s ledgerRepoStub) Reset(ctx context.Context) error {
	if s.resetFn != nil {
		return s.resetFn(ctx)
	}
	return nil
}

type fixture struct {
	sessions   *memory.SessionRepository
	ledger     domain.LedgerRepository
	sessionSvc *services.SessionService
	authSvc    *services.AuthService
	accountSvc *services.AccountService
	pinSvc     *services.PinService
	txSvc      *services.TransactionService
	sessionID  string
}

func newFixture(t *testing.T, balance string, ledger domain.LedgerRepository) fixture {
	t.Helper()

	if ledger == nil {
		ledger = memory.NewLedgerRepository()
	}
	hasher := services.NewBcryptPinHasher(bcrypt.MinCost)
	sessions := memory.NewSessionRepository(time.Hour, nil)

	sessionSvc, err := services.NewSessionService(sessions, hasher, "1234", decimal.RequireFromString(balance))
	if err != nil {
		t.Fatalf("new session service: %v", err)
	}
	authSvc, err := services.NewAuthService(sessions, ledger, hasher, "4321")
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	session, err := sessionSvc.Start(context.Background())
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	return fixture{
		sessions:   sessions,
		ledger:     ledger,
		sessionSvc: sessionSvc,
		authSvc:    authSvc,
		accountSvc: services.NewAccountService(sessions, ledger),
		pinSvc:     services.NewPinService(sessions, hasher),
		txSvc:      services.NewTransactionService(sessions, ledger),
		sessionID:  session.ID,
	}
}

func (f fixture) login(t *testing.T, credential string) {
	t.Helper()
	resp, err := f.authSvc.Login(context.Background(), f.sessionID, credential)
	if err != nil || !resp.Success {
		t.Fatalf("expected login with %q to succeed, got %+v err=%v", credential, resp, err)
	}
}

func TestAuthServiceCustomerLogin(t *testing.T) {
	f := newFixture(t, "123.45", nil)

	resp, err := f.authSvc.Login(context.Background(), f.sessionID, "1234")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !resp.Success || resp.IsAdmin {
		t.Fatalf("expected customer login, got %+v", resp)
	}
	if resp.TransactionCount == nil || *resp.TransactionCount != 0 {
		t.Fatalf("expected transaction count 0, got %v", resp.TransactionCount)
	}
	if resp.Balance.String() != "123.45" {
		t.Fatalf("expected balance 123.45, got %s", resp.Balance)
	}
}

func TestAuthServiceAdminLoginHasNoBalanceAccess(t *testing.T) {
	f := newFixture(t, "120", nil)
	ctx := context.Background()

	resp, err := f.authSvc.Login(ctx, f.sessionID, "4321")
	if err != nil || !resp.Success || !resp.IsAdmin {
		t.Fatalf("expected admin login, got %+v err=%v", resp, err)
	}
	if resp.Balance != "" || resp.TransactionCount != nil {
		t.Fatalf("expected no customer data for admin, got %+v", resp)
	}

	if _, err := f.accountSvc.GetBalance(ctx, f.sessionID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for admin balance, got %v", err)
	}
	if _, err := f.accountSvc.Withdraw(ctx, f.sessionID, "10"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for admin withdraw, got %v", err)
	}
	if _, err := f.pinSvc.ChangePin(ctx, f.sessionID, "1234"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for admin pin change, got %v", err)
	}

	count, _ := f.ledger.Count(ctx)
	if count != 0 {
		t.Fatalf("expected admin to leave ledger untouched, got %d", count)
	}
}

func TestAuthServiceRejectedLoginKeepsFlags(t *testing.T) {
	f := newFixture(t, "120", nil)
	ctx := context.Background()

	resp, err := f.authSvc.Login(ctx, f.sessionID, "0000")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if resp.Success || resp.Message != "Incorrect PIN or password. Please try again." {
		t.Fatalf("unexpected response %+v", resp)
	}

	session, err := f.sessions.Get(ctx, f.sessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.LoggedIn || session.IsAdmin {
		t.Fatalf("expected flags unchanged, got %+v", session)
	}

	f.login(t, "1234")
	if resp, _ := f.authSvc.Login(ctx, f.sessionID, "9999"); resp.Success {
		t.Fatal("expected rejected login")
	}
	session, _ = f.sessions.Get(ctx, f.sessionID)
	if !session.LoggedIn {
		t.Fatal("expected failed attempt not to log the customer out")
	}
}

func TestAccountServiceWithdrawSuccess(t *testing.T) {
	f := newFixture(t, "120", nil)
	ctx := context.Background()
	f.login(t, "1234")

	resp, err := f.accountSvc.Withdraw(ctx, f.sessionID, "50")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !resp.Success || resp.Balance.String() != "70.00" || resp.Message != "Success! £50.00 withdrawn." {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Transaction == nil || resp.Transaction.BalanceAfter.String() != "70.00" || resp.Transaction.Amount.String() != "50" {
		t.Fatalf("unexpected transaction %+v", resp.Transaction)
	}

	count, _ := f.ledger.Count(ctx)
	if count != 1 {
		t.Fatalf("expected one ledger record, got %d", count)
	}

	balance, err := f.accountSvc.GetBalance(ctx, f.sessionID)
	if err != nil || balance.Balance.String() != "70.00" {
		t.Fatalf("expected balance 70.00, got %+v err=%v", balance, err)
	}
}

func TestAccountServiceWithdrawValidationLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, "123.45", nil)
	ctx := context.Background()
	f.login(t, "1234")

	for _, raw := range []string{"abc", "-10", "0", "10.5", "25", "130"} {
		resp, err := f.accountSvc.Withdraw(ctx, f.sessionID, raw)
		if err != nil {
			t.Fatalf("%q: expected nil error, got %v", raw, err)
		}
		if resp.Success || resp.Message == "" || resp.Transaction != nil {
			t.Fatalf("%q: expected validation failure, got %+v", raw, resp)
		}
	}

	balance, _ := f.accountSvc.GetBalance(ctx, f.sessionID)
	if balance.Balance.String() != "123.45" {
		t.Fatalf("expected balance unchanged, got %s", balance.Balance)
	}
	count, _ := f.ledger.Count(ctx)
	if count != 0 {
		t.Fatalf("expected empty ledger, got %d", count)
	}
}

func TestAccountServiceWithdrawLedgerFailureIsAtomic(t *testing.T) {
	ledger := ledgerRepoStub{
		appendFn: func(context.Context, domain.TransactionRecord) error {
			return errors.New("disk full")
		},
	}
	f := newFixture(t, "120", ledger)
	ctx := context.Background()
	f.login(t, "1234")

	if _, err := f.accountSvc.Withdraw(ctx, f.sessionID, "50"); err == nil {
		t.Fatal("expected error when ledger append fails")
	}

	balance, _ := f.accountSvc.GetBalance(ctx, f.sessionID)
	if balance.Balance.String() != "120.00" {
		t.Fatalf("expected balance to stay 120.00, got %s", balance.Balance)
	}
}

func TestAccountServiceRequiresLogin(t *testing.T) {
	f := newFixture(t, "120", nil)
	ctx := context.Background()

	if _, err := f.accountSvc.GetBalance(ctx, f.sessionID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if _, err := f.accountSvc.Withdraw(ctx, "unknown", "10"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for unknown session, got %v", err)
	}
}

func TestPinServiceFullChange(t *testing.T) {
	f := newFixture(t, "120", nil)
	ctx := context.Background()
	f.login(t, "1234")

	steps := []struct {
		input    string
		success  bool
		step     int
		complete bool
	}{
		{"1234", true, 1, false},
		{"567", false, 1, false},
		{"5678", true, 2, false},
		{"5679", false, 1, false},
		{"5678", true, 2, false},
		{"5678", true, 0, true},
	}
	for i, s := range steps {
		resp, err := f.pinSvc.ChangePin(ctx, f.sessionID, s.input)
		if err != nil {
			t.Fatalf("step %d: expected nil error, got %v", i, err)
		}
		if resp.Success != s.success || resp.Step != s.step || resp.Complete != s.complete {
			t.Fatalf("step %d: unexpected response %+v", i, resp)
		}
	}

	session, _ := f.sessions.Get(ctx, f.sessionID)
	if session.PinChange.Step() != domain.PinChangeIdle {
		t.Fatalf("expected idle flow, got %d", session.PinChange.Step())
	}
	if _, ok := session.PinChange.Pending(); ok {
		t.Fatal("expected no pending pin")
	}

	if resp, _ := f.authSvc.Login(ctx, f.sessionID, "1234"); resp.Success {
		t.Fatal("expected old pin to be rejected")
	}
	f.login(t, "5678")
}

func TestPinServiceResetMidFlow(t *testing.T) {
	f := newFixture(t, "120", nil)
	ctx := context.Background()
	f.login(t, "1234")

	_, _ = f.pinSvc.ChangePin(ctx, f.sessionID, "1234")
	_, _ = f.pinSvc.ChangePin(ctx, f.sessionID, "5678")

	resp, err := f.pinSvc.ResetPinChange(ctx, f.sessionID)
	if err != nil || !resp.Success {
		t.Fatalf("expected reset success, got %+v err=%v", resp, err)
	}

	session, _ := f.sessions.Get(ctx, f.sessionID)
	if session.PinChange.Step() != domain.PinChangeIdle {
		t.Fatalf("expected idle flow, got %d", session.PinChange.Step())
	}
	if _, ok := session.PinChange.Pending(); ok {
		t.Fatal("expected pending pin to be cleared")
	}

	next, _ := f.pinSvc.ChangePin(ctx, f.sessionID, "5678")
	if next.Success {
		t.Fatal("expected flow to restart at current pin verification")
	}

	if resp, err := f.pinSvc.ResetPinChange(ctx, "unknown"); err != nil || !resp.Success {
		t.Fatalf("expected reset to succeed for unknown session, got %+v err=%v", resp, err)
	}
}

func TestTransactionServiceHistory(t *testing.T) {
	f := newFixture(t, "120", nil)
	ctx := context.Background()

	if _, err := f.txSvc.GetTransactions(ctx, f.sessionID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized before login, got %v", err)
	}

	f.login(t, "1234")
	_, _ = f.accountSvc.Withdraw(ctx, f.sessionID, "50")
	_, _ = f.accountSvc.Withdraw(ctx, f.sessionID, "20")

	customer, err := f.txSvc.GetTransactions(ctx, f.sessionID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if customer.Count != 2 || len(customer.Transactions) != 2 {
		t.Fatalf("expected two transactions, got %+v", customer)
	}

	f.login(t, "4321")
	admin, err := f.txSvc.GetTransactions(ctx, f.sessionID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	for i := range customer.Transactions {
		if admin.Transactions[i] != customer.Transactions[i] {
			t.Fatalf("expected identical history for admin, got %v vs %v", admin.Transactions, customer.Transactions)
		}
	}
}

func TestSessionServiceLogoutStartsFresh(t *testing.T) {
	f := newFixture(t, "120", nil)
	ctx := context.Background()
	f.login(t, "1234")
	_, _ = f.accountSvc.Withdraw(ctx, f.sessionID, "50")

	if err := f.sessionSvc.Logout(ctx, f.sessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	session, created, err := f.sessionSvc.Resolve(ctx, f.sessionID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !created || session.ID == f.sessionID {
		t.Fatal("expected a new session after logout")
	}
	if session.LoggedIn || !session.Balance.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected default session, got %+v", session)
	}

	count, _ := f.ledger.Count(ctx)
	if count != 1 {
		t.Fatalf("expected logout to keep ledger, got %d", count)
	}
}

func TestTransactionServiceResetData(t *testing.T) {
	f := newFixture(t, "120", nil)
	ctx := context.Background()
	f.login(t, "1234")
	_, _ = f.accountSvc.Withdraw(ctx, f.sessionID, "50")

	resp, err := f.txSvc.ResetData(ctx, f.sessionID)
	if err != nil || !resp.Success {
		t.Fatalf("expected reset success, got %+v err=%v", resp, err)
	}

	count, _ := f.ledger.Count(ctx)
	if count != 0 {
		t.Fatalf("expected empty ledger, got %d", count)
	}
	if _, err := f.sessions.Get(ctx, f.sessionID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session to be removed, got %v", err)
	}
}

func TestNewSessionServiceRejectsInvalidDefaultPin(t *testing.T) {
	hasher := services.NewBcryptPinHasher(bcrypt.MinCost)
	if _, err := services.NewSessionService(memory.NewSessionRepository(time.Hour, nil), hasher, "12", decimal.Zero); err == nil {
		t.Fatal("expected error for invalid default pin")
	}
}

type updateCountingSessions struct {
	*memory.SessionRepository
	updates int
}

func (s *updateCountingSessions) Update(ctx context.Context, id string, fn func(*domain.Session) error) (domain.Session, error) {
	s.updates++
	return s.SessionRepository.Update(ctx, id, fn)
}

// lockCheckingHasher looks up another session on every comparison. Done while
// the session store lock is held, the lookup would never return.
type lockCheckingHasher struct {
	services.BcryptPinHasher
	sessions  domain.SessionRepository
	otherID   string
	lookupErr error
}

func (h *lockCheckingHasher) Matches(hash, pin string) bool {
	if _, err := h.sessions.Get(context.Background(), h.otherID); err != nil {
		h.lookupErr = err
	}
	return h.BcryptPinHasher.Matches(hash, pin)
}

func TestAccountServiceWithdrawRejectsHugeAmountOutsideLock(t *testing.T) {
	ctx := context.Background()
	hasher := services.NewBcryptPinHasher(bcrypt.MinCost)
	sessions := &updateCountingSessions{SessionRepository: memory.NewSessionRepository(time.Hour, nil)}
	ledger := memory.NewLedgerRepository()

	sessionSvc, err := services.NewSessionService(sessions, hasher, "1234", decimal.NewFromInt(120))
	if err != nil {
		t.Fatalf("new session service: %v", err)
	}
	authSvc, err := services.NewAuthService(sessions, ledger, hasher, "4321")
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	accountSvc := services.NewAccountService(sessions, ledger)

	customer, _ := sessionSvc.Start(ctx)
	other, _ := sessionSvc.Start(ctx)
	if resp, _ := authSvc.Login(ctx, customer.ID, "1234"); !resp.Success {
		t.Fatalf("expected login, got %+v", resp)
	}
	if resp, _ := authSvc.Login(ctx, other.ID, "1234"); !resp.Success {
		t.Fatalf("expected login, got %+v", resp)
	}
	updatesBefore := sessions.updates

	done := make(chan struct{})
	var resp models.WithdrawResponse
	var withdrawErr error
	go func() {
		defer close(done)
		resp, withdrawErr = accountSvc.Withdraw(ctx, customer.ID, "1e2000000000")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected huge amount to be rejected within 2s")
	}

	if withdrawErr != nil {
		t.Fatalf("expected nil error, got %v", withdrawErr)
	}
	if resp.Success || resp.Message != "Please enter a whole number (e.g., 10, 20, 30)." {
		t.Fatalf("unexpected response %+v", resp)
	}
	if sessions.updates != updatesBefore {
		t.Fatalf("expected no session update for a rejected amount, got %d", sessions.updates-updatesBefore)
	}

	balance, err := accountSvc.GetBalance(ctx, other.ID)
	if err != nil || balance.Balance.String() != "120.00" {
		t.Fatalf("expected other session to be served, got %+v err=%v", balance, err)
	}
}

func TestCredentialChecksRunOutsideSessionLock(t *testing.T) {
	ctx := context.Background()
	sessions := memory.NewSessionRepository(time.Hour, nil)
	ledger := memory.NewLedgerRepository()
	hasher := &lockCheckingHasher{BcryptPinHasher: services.NewBcryptPinHasher(bcrypt.MinCost), sessions: sessions}

	sessionSvc, err := services.NewSessionService(sessions, hasher, "1234", decimal.NewFromInt(120))
	if err != nil {
		t.Fatalf("new session service: %v", err)
	}
	authSvc, err := services.NewAuthService(sessions, ledger, hasher, "4321")
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	pinSvc := services.NewPinService(sessions, hasher)

	customer, _ := sessionSvc.Start(ctx)
	other, _ := sessionSvc.Start(ctx)
	hasher.otherID = other.ID

	steps := []struct {
		name string
		call func() bool
	}{
		{"rejected login", func() bool {
			resp, _ := authSvc.Login(ctx, customer.ID, "0000")
			return !resp.Success
		}},
		{"customer login", func() bool {
			resp, _ := authSvc.Login(ctx, customer.ID, "1234")
			return resp.Success
		}},
		{"verify current pin", func() bool {
			resp, _ := pinSvc.ChangePin(ctx, customer.ID, "1234")
			return resp.Success && resp.Step == 1
		}},
		{"enter new pin", func() bool {
			resp, _ := pinSvc.ChangePin(ctx, customer.ID, "5678")
			return resp.Success && resp.Step == 2
		}},
		{"confirm new pin", func() bool {
			resp, _ := pinSvc.ChangePin(ctx, customer.ID, "5678")
			return resp.Complete
		}},
		{"admin login", func() bool {
			resp, _ := authSvc.Login(ctx, customer.ID, "4321")
			return resp.IsAdmin
		}},
	}

	for _, step := range steps {
		done := make(chan bool, 1)
		go func(call func() bool) {
			done <- call()
		}(step.call)

		select {
		case ok := <-done:
			if !ok {
				t.Fatalf("%s: unexpected outcome", step.name)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s: blocked while comparing credentials", step.name)
		}
	}

	if hasher.lookupErr != nil {
		t.Fatalf("expected lookups to succeed, got %v", hasher.lookupErr)
	}
}
