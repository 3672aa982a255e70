package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/skillforge/api/internal/handlers"
	"github.com/skillforge/api/internal/payments"
	"github.com/skillforge/api/internal/platform/auth"
	"github.com/skillforge/api/internal/platform/config"
	kvstore "github.com/skillforge/api/internal/platform/localstore"
	"github.com/skillforge/api/internal/platform/observability"
	localstoreRepo "github.com/skillforge/api/internal/repositories/localstore"
	"github.com/skillforge/api/internal/repositories/memory"
	"github.com/skillforge/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	store, err := kvstore.Open(cfg.Store.Dir)
	if err != nil {
		logger.Fatal("failed to open local store", zap.Error(err))
	}

	cartRepo, err := localstoreRepo.NewCartRepository(store)
	if err != nil {
		logger.Fatal("failed to initialise cart repository", zap.Error(err))
	}
	orderRepo, err := localstoreRepo.NewOrderRepository(store)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	draftRepo, err := localstoreRepo.NewDraftRepository(store)
	if err != nil {
		logger.Fatal("failed to initialise draft repository", zap.Error(err))
	}
	playerRepo, err := localstoreRepo.NewPlayerStateRepository(store)
	if err != nil {
		logger.Fatal("failed to initialise player state repository", zap.Error(err))
	}
	courseRepo := memory.NewCourseRepository(nil)
	couponRepo := memory.NewCouponRepository(nil)

	sessions, err := auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL, time.Now)
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(sessions)

	authService, err := services.NewAuthService(services.AuthServiceDeps{
		Sessions:   sessions,
		Delay:      cfg.Simulation.APIDelay,
		SessionTTL: cfg.Auth.SessionTTL,
		Clock:      time.Now,
		Logger:     observability.EventLogger(logger.Named("auth")),
	})
	if err != nil {
		logger.Fatal("failed to initialise auth service", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Repository: courseRepo,
		Logger:     observability.EventLogger(logger.Named("catalog")),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}
	searchCoordinator, err := services.NewSearchCoordinator(services.SearchCoordinatorDeps{
		Catalog: catalogService,
		Delay:   cfg.Simulation.SearchDelay,
		Clock:   time.Now,
		Logger:  observability.EventLogger(logger.Named("catalog")),
	})
	if err != nil {
		logger.Fatal("failed to initialise search coordinator", zap.Error(err))
	}

	simulatedProvider := payments.NewSimulatedProvider(payments.SimulatedProviderConfig{
		Delay: cfg.Simulation.APIDelay,
		Clock: time.Now,
	})
	paymentManager, err := payments.NewManager(map[string]payments.Provider{
		"simulated": simulatedProvider,
	})
	if err != nil {
		logger.Fatal("failed to initialise payment manager", zap.Error(err))
	}

	cartService, err := services.NewCartService(services.CartServiceDeps{
		Repository: cartRepo,
		Courses:    courseRepo,
		Coupons:    couponRepo,
		Orders:     orderRepo,
		Payments:   paymentManager,
		Clock:      time.Now,
		Currency:   cfg.Catalog.Currency,
		Logger:     observability.EventLogger(logger.Named("cart")),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}

	wizardService, err := services.NewWizardService(services.WizardServiceDeps{
		Drafts: draftRepo,
		Clock:  time.Now,
		Logger: observability.EventLogger(logger.Named("wizard")),
	})
	if err != nil {
		logger.Fatal("failed to initialise wizard service", zap.Error(err))
	}

	playerService, err := services.NewPlayerService(services.PlayerServiceDeps{
		Repository: playerRepo,
		Clock:      time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise player service", zap.Error(err))
	}

	// Autosave: flush dirty wizard sessions to the draft store on a ticker, the
	// way the storefront autosaves while an author is typing.
	autosaveCtx, autosaveCancel := context.WithCancel(context.Background())
	var autosaveWG sync.WaitGroup
	var autosaveTicker *time.Ticker
	if cfg.Wizard.AutosaveInterval > 0 {
		autosaveTicker = time.NewTicker(cfg.Wizard.AutosaveInterval)
		autosaveWG.Add(1)
		go func() {
			defer autosaveWG.Done()
			autosaveLogger := logger.Named("wizard")
			for {
				select {
				case <-autosaveTicker.C:
					runCtx, cancel := context.WithTimeout(autosaveCtx, 10*time.Second)
					flushed := wizardService.FlushDirty(runCtx)
					cancel()
					if flushed > 0 {
						autosaveLogger.Info("autosaved wizard drafts", zap.Int("count", flushed))
					}
				case <-autosaveCtx.Done():
					return
				}
			}
		}()
	}

	cartHandlers := handlers.NewCartHandlers(authenticator, cartService)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(store.Ping, handlers.WithHealthBuildInfo(handlers.BuildInfo{
			Version:   os.Getenv("API_BUILD_VERSION"),
			Commit:    os.Getenv("API_BUILD_COMMIT"),
			StartedAt: time.Now().UTC().Format(time.RFC3339),
		}))),
		handlers.WithAuthRoutes(handlers.NewAuthHandlers(authService).Routes),
		handlers.WithCatalogRoutes(handlers.NewCatalogHandlers(catalogService, searchCoordinator).Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithOrderRoutes(cartHandlers.OrderRoutes),
		handlers.WithWizardRoutes(handlers.NewWizardHandlers(authenticator, wizardService).Routes),
		handlers.WithPlayerRoutes(handlers.NewPlayerHandlers(authenticator, playerService).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("skillforge api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if autosaveTicker != nil {
		autosaveTicker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	// One final flush so edits made in the last autosave window survive restart.
	if flushed := wizardService.FlushDirty(context.Background()); flushed > 0 {
		logger.Info("flushed wizard drafts on shutdown", zap.Int("count", flushed))
	}
	autosaveCancel()
	autosaveWG.Wait()
}
