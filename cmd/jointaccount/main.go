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

	"github.com/KretovDmitry/joint-account-service/internal/application/interfaces"
	"github.com/KretovDmitry/joint-account-service/internal/application/services"
	"github.com/KretovDmitry/joint-account-service/internal/config"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/domain/repositories"
	"github.com/KretovDmitry/joint-account-service/internal/infrastructure/db/memory"
	"github.com/KretovDmitry/joint-account-service/internal/infrastructure/db/postgres"
	"github.com/KretovDmitry/joint-account-service/internal/infrastructure/notify"
	"github.com/KretovDmitry/joint-account-service/internal/infrastructure/payout"
	rest "github.com/KretovDmitry/joint-account-service/internal/interface/api/rest/chi"
	"github.com/KretovDmitry/joint-account-service/internal/interface/api/rest/middleware"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	trmcontext "github.com/avito-tech/go-transaction-manager/trm/v2/context"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
)

// Version indicates the current version of the application.
var Version = "1.0.0"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// storage bundles the repositories and the transaction manager of one backend.
type storage struct {
	accounts    repositories.AccountRepository
	withdrawals repositories.WithdrawalRepository
	events      repositories.EventRepository
	users       repositories.UserRepository
	trManager   trm.Manager
	close       func() error
}

func run() error {
	// Server run context.
	serverCtx, serverStopCtx := context.WithCancel(context.Background())
	defer serverStopCtx()

	// Load application configurations.
	cfg := config.MustLoad()

	// Create root logger tagged with server version.
	logger := logger.New(cfg).With(serverCtx, "version", Version)

	store, err := openStorage(serverCtx, cfg, logger)
	if err != nil {
		return err
	}

	// Close connection.
	defer func() {
		if err = store.close(); err != nil {
			logger.Error(err)
		}
		_ = logger.Sync()
	}()

	guard, err := services.NewOwnershipGuard(store.accounts)
	if err != nil {
		return fmt.Errorf("failed to init ownership guard: %w", err)
	}

	accountService, err := services.NewAccountService(store.accounts, store.events, guard, store.trManager, logger)
	if err != nil {
		return fmt.Errorf("failed to init account service: %w", err)
	}

	ledgerService, err := services.NewLedgerService(store.accounts, store.events, guard, store.trManager, logger)
	if err != nil {
		return fmt.Errorf("failed to init ledger service: %w", err)
	}

	transferer, err := newTransferer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init payout client: %w", err)
	}

	policy := entities.WithdrawalPolicy{
		RequireApproval: cfg.Workflow.RequireApproval,
		SingleExecution: cfg.Workflow.SingleExecution,
	}

	withdrawalService, err := services.NewWithdrawalService(store.accounts, store.withdrawals, store.events,
		guard, transferer, policy, store.trManager, logger)
	if err != nil {
		return fmt.Errorf("failed to init withdrawal service: %w", err)
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init publisher: %w", err)
	}

	notificationService, err := services.NewNotificationService(store.events, guard, publisher, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init notification service: %w", err)
	}

	// Relay notifications in background and deliver the last batch on exit.
	notificationService.Run()
	defer notificationService.Stop()

	authService, err := services.NewAuthService(store.users, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init auth service: %w", err)
	}

	// Create root router.
	router := rest.InitChi(logger)

	currency := entities.Currency{Exponent: cfg.Currency.Exponent}
	authMiddleware := []rest.MiddlewareFunc{middleware.Middleware(authService)}

	rest.NewAuthController(authService, cfg.JWT.Expiration, logger, rest.ChiServerOptions{
		BaseRouter: router,
		BaseURL:    "/api/user",
	})

	rest.NewAccountController(accountService, ledgerService, currency, logger, rest.ChiServerOptions{
		BaseRouter:  router,
		BaseURL:     "/api/accounts",
		Middlewares: authMiddleware,
	})

	rest.NewWithdrawalController(withdrawalService, currency, logger, rest.ChiServerOptions{
		BaseRouter:  router,
		BaseURL:     "/api/accounts/{id}",
		Middlewares: authMiddleware,
	})

	rest.NewEventController(notificationService, logger, rest.ChiServerOptions{
		BaseRouter:  router,
		BaseURL:     "/api/accounts/{id}",
		Middlewares: authMiddleware,
	})

	// Build HTTP server.
	hs := &http.Server{
		Addr:              cfg.HTTPServer.Address,
		ReadHeaderTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:       cfg.HTTPServer.IdleTimeout,
		Handler:           router,
	}

	// Graceful shutdown.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT,
			syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)

		signal := <-sig

		logger.With(serverCtx, "signal", signal.String()).
			Infof("Shutting down server with %s timeout",
				cfg.HTTPServer.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(serverCtx, cfg.HTTPServer.ShutdownTimeout)
		defer cancel()

		if err := hs.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("graceful shutdown failed: %s", err)
		}
		serverStopCtx()
	}()

	// Start the HTTP server with graceful shutdown.
	logger.Infof("Server %v is running at %v", Version, cfg.HTTPServer.Address)
	if err = hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("run server failed: %w", err)
	}

	// Wait for server context to be stopped or force exit if timeout exceeded.
	select {
	case <-serverCtx.Done():
	case <-time.After(cfg.HTTPServer.ShutdownTimeout):
		return errors.New("graceful shutdown timed out.. forcing exit")
	}

	return nil
}

// openStorage connects to PostgreSQL when a DSN is configured
// and falls back to the in-memory store otherwise.
func openStorage(ctx context.Context, cfg *config.Config, logger logger.Logger) (*storage, error) {
	if cfg.DSN == "" {
		logger.Warn("no database configured, state is kept in memory")

		store := memory.NewStore()
		accounts, err := memory.NewAccountRepository(store)
		if err != nil {
			return nil, err
		}
		withdrawals, err := memory.NewWithdrawalRepository(store)
		if err != nil {
			return nil, err
		}
		events, err := memory.NewEventRepository(store)
		if err != nil {
			return nil, err
		}
		users, err := memory.NewUserRepository(store)
		if err != nil {
			return nil, err
		}

		return &storage{
			accounts:    accounts,
			withdrawals: withdrawals,
			events:      events,
			users:       users,
			trManager:   memory.NewManager(store),
			close:       func() error { return nil },
		}, nil
	}

	db, err := postgres.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err = postgres.Migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate the database: %w", err)
	}

	// Create default transaction manager for database/sql package.
	trManager := manager.Must(
		trmsql.NewDefaultFactory(db),
		manager.WithCtxManager(trmcontext.DefaultManager),
	)

	s := &storage{trManager: trManager, close: db.Close}

	if s.accounts, err = postgres.NewAccountRepository(db, trmsql.DefaultCtxGetter, logger); err != nil {
		return nil, fmt.Errorf("failed to init account repository: %w", err)
	}
	if s.withdrawals, err = postgres.NewWithdrawalRepository(db, trmsql.DefaultCtxGetter, logger); err != nil {
		return nil, fmt.Errorf("failed to init withdrawal repository: %w", err)
	}
	if s.events, err = postgres.NewEventRepository(db, trmsql.DefaultCtxGetter, logger); err != nil {
		return nil, fmt.Errorf("failed to init event repository: %w", err)
	}
	if s.users, err = postgres.NewUserRepository(db, trmsql.DefaultCtxGetter, logger); err != nil {
		return nil, fmt.Errorf("failed to init user repository: %w", err)
	}

	return s, nil
}

func newTransferer(cfg *config.Config, logger logger.Logger) (interfaces.Transferer, error) {
	if cfg.Payout.Address == "" {
		return payout.NewNoop(logger), nil
	}
	return payout.NewClient(cfg, logger)
}

func newPublisher(cfg *config.Config, logger logger.Logger) (interfaces.Publisher, error) {
	if cfg.Notifications.WebhookURL == "" {
		return notify.NewLogPublisher(logger), nil
	}
	return notify.NewWebhookPublisher(cfg.Notifications.WebhookURL, cfg.Notifications.Timeout)
}
