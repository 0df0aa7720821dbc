package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mealdesk/config"
	"mealdesk/cron"
	sessionRepo "mealdesk/database/repository/session"
	"mealdesk/handlers"
	"mealdesk/middleware"
	"mealdesk/models"
	"mealdesk/routes"
	"mealdesk/services/customer"
	"mealdesk/services/entitlement"
	"mealdesk/services/remote"
	"mealdesk/services/session"
	"mealdesk/services/store"
	"mealdesk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	cfg := config.AppConfig

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// session persistence.
	var repo sessionRepo.SessionRepository
	switch cfg.SessionStore {
	case "memory":
		repo = sessionRepo.NewMemorySessionRepo()
	default:
		client, err := utils.GetSessionCacheClient()
		if err != nil {
			logger.Sugar().Fatalf("main: failed to connect session cache: %v", err)
		}
		repo = sessionRepo.NewRedisSessionRepo(client, cfg.DeviceID, 30*24*time.Hour)
		utils.StartHealthMonitor(ctx, client, time.Minute)
	}

	// store and its writers.
	st := store.New()
	sessionWriter, err := st.ClaimSessionWriter()
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}
	customerWriter, err := st.ClaimCustomerWriter()
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}

	// provider backend.
	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL:           cfg.APIBaseURL,
		Timeout:           cfg.APITimeout(),
		RequestsPerSecond: cfg.APIMaxRequestsPerSec,
		Token:             func() string { return st.Session().AuthToken },
		Logger:            logger,
	})
	if err != nil {
		logger.Sugar().Fatalf("main: failed to create backend client: %v", err)
	}
	defer client.Close()

	// services.
	sessionService := &session.DefaultSessionService{
		Repo:   repo,
		Store:  st,
		Writer: sessionWriter,
		Logger: logger,
	}
	customerService := customer.NewCustomerService(client, st, customerWriter, customer.Config{
		PageSize:         cfg.CustomerPageSize,
		LoadMoreCooldown: cfg.LoadMoreCooldown(),
		Totals:           sessionService,
		Logger:           logger,
	})
	trialSync := entitlement.NewTrialSync(client, st, sessionWriter, entitlement.SyncConfig{
		Timeout:         cfg.EntitlementSyncTimeout(),
		FailClosedAfter: cfg.EntitlementFailClosedAfter(),
		RefreshInterval: cfg.EntitlementRefreshInterval(),
		Logger:          logger,
	})
	navigator := entitlement.NewDebouncer(entitlement.NavigatorFunc(func(d models.Decision) {
		logger.Info("navigate", zap.String("target", string(d.Target)), zap.String("returnTo", string(d.ReturnTo)))
	}), cfg.NavigationDebounce())
	gate := entitlement.NewGate(st, trialSync, sessionService, navigator, entitlement.GateConfig{Logger: logger})

	persisted, err := sessionService.Hydrate(ctx)
	if err != nil {
		logger.Warn("main: starting without a persisted session", zap.Error(err))
	}
	if persisted != nil && st.Session().Authenticated() {
		customerService.RestoreTotals(persisted.CustomerTotal)
	}
	gate.Start(ctx)
	defer gate.Stop()

	worker, err := cron.NewEntitlementWorker(cfg.EntitlementRefreshCron, gate, cfg.EntitlementSyncTimeout(), logger)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid entitlement refresh schedule: %v", err)
	}
	worker.Start()
	defer worker.Stop()

	// handlers.
	stateHandler := handlers.NewStateHandler(st)
	navigationHandler := handlers.NewNavigationHandler(gate)
	sessionHandler := handlers.NewSessionHandler(sessionService, st, customerService.Reset)
	customerHandler := handlers.NewCustomerHandler(customerService, st)

	handlerBundle := &handlers.HandlerBundle{
		Store:         st,
		HealthHandler: handlers.HealthHandler,

		// State and navigation.
		GetStateHandler:     stateHandler.GetStateHandler,
		ScreenChangeHandler: navigationHandler.ScreenChangeHandler,
		GetDecisionHandler:  navigationHandler.GetDecisionHandler,

		// Session endpoints.
		LoginHandler:           sessionHandler.LoginHandler,
		LogoutHandler:          sessionHandler.LogoutHandler,
		CompleteOnboarding:     sessionHandler.CompleteOnboardingHandler,
		SavePreferencesHandler: sessionHandler.SavePreferencesHandler,

		// Customer endpoints.
		InitialLoadHandler:    customerHandler.InitialLoadHandler,
		RefreshHandler:        customerHandler.RefreshHandler,
		LoadMoreHandler:       customerHandler.LoadMoreHandler,
		CreateCustomerHandler: customerHandler.CreateCustomerHandler,
		UpdateCustomerHandler: customerHandler.UpdateCustomerHandler,
		DeleteCustomerHandler: customerHandler.DeleteCustomerHandler,
		ToggleActiveHandler:   customerHandler.ToggleActiveHandler,
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))
	routes.RegisterRoutes(router, handlerBundle)

	srv := &http.Server{
		Addr:    "127.0.0.1:" + cfg.AppPort,
		Handler: router,
	}

	logger.Sugar().Infof("Starting view bridge on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: bridge is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	stop()
	trialSync.Wait()
	customerService.Wait()

	logger.Sugar().Info("main: stopped gracefully")
}
