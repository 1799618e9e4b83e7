package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/atm-simulator/src/internal/adapter/http/controller"
	"github.com/api-sage/atm-simulator/src/internal/adapter/http/middleware"
	"github.com/api-sage/atm-simulator/src/internal/adapter/http/router"
	"github.com/api-sage/atm-simulator/src/internal/adapter/repository/file"
	"github.com/api-sage/atm-simulator/src/internal/adapter/repository/memory"
	"github.com/api-sage/atm-simulator/src/internal/adapter/repository/postgres"
	"github.com/api-sage/atm-simulator/src/internal/config"
	"github.com/api-sage/atm-simulator/src/internal/domain"
	"github.com/api-sage/atm-simulator/src/internal/logger"
	"github.com/api-sage/atm-simulator/src/internal/usecase/services"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("atm server: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	ledger, closeLedger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	handler, err := newHandler(cfg, ledger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", logger.Fields{
			"addr":         cfg.HTTPAddr,
			"ledgerDriver": cfg.LedgerDriver,
			"debug":        cfg.Debug,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("http server shutting down", nil)
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func newHandler(cfg config.Config, ledger domain.LedgerRepository) (http.Handler, error) {
	hasher := services.NewBcryptPinHasher(cfg.PinHashCost)
	sessions := memory.NewSessionRepository(cfg.SessionTTL, time.Now)

	sessionService, err := services.NewSessionService(sessions, hasher, cfg.DefaultPin, cfg.StartingBalance)
	if err != nil {
		return nil, err
	}
	authService, err := services.NewAuthService(sessions, ledger, hasher, cfg.AdminPassword)
	if err != nil {
		return nil, err
	}
	accountService := services.NewAccountService(sessions, ledger)
	pinService := services.NewPinService(sessions, hasher)
	transactionService := services.NewTransactionService(sessions, ledger)

	pages, err := controller.NewPageController()
	if err != nil {
		return nil, err
	}

	tokens := middleware.NewSessionTokens(cfg.SessionSecret, cfg.SessionTTL)
	return router.New(
		controller.NewATMController(authService, accountService, pinService, transactionService, sessionService),
		controller.NewDebugController(transactionService, cfg.Debug),
		pages,
		router.Options{
			SessionMiddleware:   middleware.Session(sessionService, tokens),
			DebugAuthMiddleware: middleware.BasicAuth(cfg.DebugUser, cfg.DebugKey),
		},
	), nil
}

// openLedger builds the configured ledger store. The returned func releases it.
func openLedger(ctx context.Context, cfg config.Config) (domain.LedgerRepository, func(), error) {
	switch cfg.LedgerDriver {
	case config.LedgerDriverMemory:
		return memory.NewLedgerRepository(), func() {}, nil

	case config.LedgerDriverPostgres:
		migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		db, err := postgres.Open(migrateCtx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrations(migrateCtx, db, cfg.MigrationsDir); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("ledger migrations completed", logger.Fields{"dir": cfg.MigrationsDir})

		return postgres.NewLedgerRepository(db), func() { _ = db.Close() }, nil

	default:
		return file.NewLedgerRepository(cfg.TransactionFile), func() {}, nil
	}
}
