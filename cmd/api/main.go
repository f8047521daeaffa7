package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/tillpoint/tillpoint-backend/api/routes"
	authsvc "github.com/tillpoint/tillpoint-backend/internal/auth"
	"github.com/tillpoint/tillpoint-backend/internal/catalog"
	checkoutsvc "github.com/tillpoint/tillpoint-backend/internal/checkout"
	"github.com/tillpoint/tillpoint-backend/internal/customers"
	"github.com/tillpoint/tillpoint-backend/internal/invoicing"
	"github.com/tillpoint/tillpoint-backend/internal/profile"
	"github.com/tillpoint/tillpoint-backend/internal/reports"
	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/pkg/auth/session"
	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/db"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	"github.com/tillpoint/tillpoint-backend/pkg/metrics"
	"github.com/tillpoint/tillpoint-backend/pkg/migrate"
	pkgredis "github.com/tillpoint/tillpoint-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() (err error) {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if loadErr := godotenv.Load(); loadErr != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		return err
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		return err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			logg.Error(ctx, "error closing database", closeErr)
			err = multierr.Append(err, closeErr)
		}
	}()

	if err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		return err
	}

	redisClient, err := pkgredis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		return err
	}
	defer func() {
		if closeErr := redisClient.Close(); closeErr != nil {
			logg.Error(ctx, "error closing redis", closeErr)
			err = multierr.Append(err, closeErr)
		}
	}()

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	deps, err := buildServices(ctx, cfg, logg, dbClient, sessions, checkoutMetrics)
	if err != nil {
		return err
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.DB = dbClient
	deps.Redis = redisClient
	deps.Sessions = sessions
	deps.Registry = registry

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return serve(runCtx, logg, server)
}

// buildServices wires the repository and service graph on top of one gorm
// handle. Ensure runs first so the single shop profile row exists before any
// request needs the default tax rate or invoice prefix.
func buildServices(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	sessions *session.Manager,
	checkoutMetrics *metrics.CheckoutMetrics,
) (routes.Deps, error) {
	gdb := dbClient.DB()

	profileSvc, err := profile.NewService(profile.NewRepository(gdb), cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to create profile service", err)
		return routes.Deps{}, err
	}
	if _, err = profileSvc.Ensure(ctx); err != nil {
		logg.Error(ctx, "failed to ensure shop profile", err)
		return routes.Deps{}, err
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(gdb), dbClient, profileSvc)
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		return routes.Deps{}, err
	}

	checkoutSvc, err := checkoutsvc.NewService(dbClient, logg, checkoutMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		return routes.Deps{}, err
	}

	invoicingSvc, err := invoicing.NewService(invoicing.NewRepository(gdb), dbClient)
	if err != nil {
		logg.Error(ctx, "failed to create invoicing service", err)
		return routes.Deps{}, err
	}

	customersSvc, err := customers.NewService(customers.NewRepository(gdb))
	if err != nil {
		logg.Error(ctx, "failed to create customers service", err)
		return routes.Deps{}, err
	}

	stockSvc, err := stock.NewService(stock.NewRepository(gdb), dbClient)
	if err != nil {
		logg.Error(ctx, "failed to create stock service", err)
		return routes.Deps{}, err
	}

	reportsSvc, err := reports.NewService(reports.NewRepository(gdb), stock.NewRepository(gdb))
	if err != nil {
		logg.Error(ctx, "failed to create reports service", err)
		return routes.Deps{}, err
	}

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		Profile:        profileSvc,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		return routes.Deps{}, err
	}

	return routes.Deps{
		Auth:      authService,
		Catalog:   catalogSvc,
		Checkout:  checkoutSvc,
		Invoicing: invoicingSvc,
		Customers: customersSvc,
		Stock:     stockSvc,
		Profile:   profileSvc,
		Reports:   reportsSvc,
	}, nil
}

func serve(ctx context.Context, logg *logger.Logger, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
			return
		}
		errCh <- nil
	}()

	stopCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
		return err
	case <-stopCtx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "graceful shutdown failed", err)
		return err
	}
	return <-errCh
}
