package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/adapters/memory"
	"github.com/kevin07696/openbanking-service/internal/adapters/openbanking"
	"github.com/kevin07696/openbanking-service/internal/adapters/postgres"
	"github.com/kevin07696/openbanking-service/internal/bootstrap"
	"github.com/kevin07696/openbanking-service/internal/config"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	paymentHandler "github.com/kevin07696/openbanking-service/internal/handlers/payment"
	"github.com/kevin07696/openbanking-service/internal/services/authorization"
	consentService "github.com/kevin07696/openbanking-service/internal/services/consent"
	"github.com/kevin07696/openbanking-service/internal/services/notification"
	paymentService "github.com/kevin07696/openbanking-service/internal/services/payment"
	pkghttp "github.com/kevin07696/openbanking-service/pkg/http"
	"github.com/kevin07696/openbanking-service/pkg/middleware"
	"github.com/kevin07696/openbanking-service/pkg/observability"
	"github.com/kevin07696/openbanking-service/pkg/resilience"
	"github.com/kevin07696/openbanking-service/pkg/security"
	"github.com/kevin07696/openbanking-service/pkg/shutdown"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := security.NewLoggerForEnvironment(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Open Banking payment service",
		zap.String("environment", cfg.Environment),
		zap.String("mode", cfg.OpenBanking.Mode),
		zap.String("flow", string(cfg.OpenBanking.Flow)),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !cfg.OpenBanking.IsWellDefined() {
		return errors.New("open banking configuration is incomplete: client credentials and the service account (IBAN, name, BIC) are required")
	}

	store := config.NewStore(cfg, config.Load)
	clock := timeutil.SystemClock{}
	shutdownMgr := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	checks := map[string]observability.Pinger{}

	// Components register in start order and shut down in reverse

	secretStore, err := bootstrap.SecretStore(ctx, cfg.Secrets, logger)
	if err != nil {
		return fmt.Errorf("init secret store: %w", err)
	}

	client, err := bootstrap.OpenBankingClient(ctx, cfg.OpenBanking, secretStore, clock, logger)
	if err != nil {
		return err
	}
	checks["bank_api"] = observability.PingFunc(func(ctx context.Context) error {
		_, err := client.Token(ctx, openbanking.FamilyASPSPInformation)
		return err
	})

	directory := openbanking.NewCachedDirectory(client, cfg.OpenBanking.DirectoryCacheTTL, security.NewZapLogger(logger))
	if cfg.OpenBanking.DirectoryCacheTTL > 0 {
		warmer := shutdown.NewPeriodicWorker("aspsp-directory", cfg.OpenBanking.DirectoryCacheTTL/2, logger)
		warmer.Start(ctx, directory.Warm)
		shutdownMgr.Register("aspsp-directory", warmer.Shutdown)
	}

	repo, err := initRepository(ctx, cfg.Database, clock, shutdownMgr, checks, logger)
	if err != nil {
		return err
	}

	notifier, err := initNotifier(ctx, cfg, secretStore, clock, shutdownMgr, checks, logger)
	if err != nil {
		return err
	}

	var shuttingDown atomic.Bool
	metricsServer := observability.StartMetricsServer(
		strconv.Itoa(cfg.Server.MetricsPort),
		observability.NewHealthChecker(checks),
		func() bool { return !shuttingDown.Load() },
		logger,
	)
	shutdownMgr.Register("metrics-server", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(ctx, metricsServer)
	})

	if cfg.Server.GRPCHealthPort > 0 {
		health, err := startHealthServer(cfg.Server.GRPCHealthPort, logger)
		if err != nil {
			return err
		}
		shutdownMgr.RegisterNoErr("grpc-health", health.Stop)
	}

	authorizer := authorization.NewAuthorizer(notifier, clock, logger)

	ob := cfg.OpenBanking
	paymentTracker := shutdown.NewInFlightTracker("payments", logger)
	factory := paymentService.NewFactory(client, repo, paymentService.ServiceAccount{
		IBAN: ob.AccountIBAN,
		Name: ob.AccountName,
		BIC:  ob.AccountBIC,
	}, cfg.Payments.Concurrency, logger)
	payments := paymentService.NewService(client, repo, notifier, factory, authorizer, paymentTracker, clock, paymentService.Config{
		Flow:           ob.Flow,
		OrganizationID: ob.OrganizationID,
		Sandbox:        ob.Sandbox(),
		PollInterval:   ob.PollInterval,
		Timeout:        ob.Timeout,
		Callbacks: paymentService.Callbacks{
			OkURL:  cfg.Payments.OkURL,
			NokURL: cfg.Payments.NokURL,
		},
	}, logger)
	shutdownMgr.Register("payment-flows", paymentTracker.Shutdown)

	consentTracker := shutdown.NewInFlightTracker("consents", logger)
	consents := consentService.NewService(client, authorizer, notifier, consentTracker, clock, consentService.Config{
		Flow:         ob.Flow,
		Sandbox:      ob.Sandbox(),
		PollInterval: ob.PollInterval,
		Timeout:      ob.Timeout,
		OkURL:        cfg.Payments.OkURL,
	}, logger)
	shutdownMgr.Register("consent-flows", consentTracker.Shutdown)

	limiter := middleware.NewRateLimiter(cfg.Server.RequestsPerSecond, cfg.Server.Burst, cfg.Server.TrustProxy, logger)
	shutdownMgr.RegisterNoErr("rate-limiter", limiter.Shutdown)

	handler := paymentHandler.NewHandler(payments, consents, directory, cfg.Server.TrustProxy, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           handler.Router(store.APIKeys, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		logger.Info("HTTP API listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()
	// Stop accepting requests before waiting for the flows they started
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		shuttingDown.Store(true)
		return httpServer.Shutdown(ctx)
	})

	go reloadOnHangup(ctx, store, logger)

	errs := shutdownMgr.WaitForShutdown(ctx)
	if len(errs) > 0 {
		return fmt.Errorf("%d components failed to shut down", len(errs))
	}
	return nil
}

// initRepository connects to PostgreSQL, or keeps records in memory when no database is configured
func initRepository(ctx context.Context, cfg config.DatabaseConfig, clock timeutil.Clock, mgr *shutdown.Manager, checks map[string]observability.Pinger, logger *zap.Logger) (ports.OutboundPaymentRepository, error) {
	if cfg.URL == "" {
		logger.Warn("DATABASE_URL is not set; outbound payments are kept in memory and lost on restart")
		return memory.NewOutboundPaymentRepository(clock), nil
	}

	dbCfg := postgres.DefaultConfig(cfg.URL)
	if cfg.MaxConns > 0 {
		dbCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		dbCfg.MinConns = cfg.MinConns
	}
	if cfg.QueryTimeout > 0 {
		dbCfg.QueryTimeout = cfg.QueryTimeout
	}

	db, err := postgres.Open(ctx, dbCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	mgr.Register("database", db.Close)
	checks["database"] = observability.PingFunc(db.HealthCheck)

	if cfg.AutoMigrate {
		result, err := db.Migrate(ctx)
		if err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("Database migrated",
			zap.Int("applied", len(result.Applied)),
			zap.Int("skipped", len(result.Skipped)),
		)
	}

	db.StartPoolMonitoring(ctx, 30*time.Second)
	return postgres.NewOutboundPaymentRepository(db.Pool(), clock, dbCfg.QueryTimeout), nil
}

// initNotifier fans events out to every configured channel. Without any, events are dropped.
func initNotifier(ctx context.Context, cfg *config.Config, secretStore ports.SecretStore, clock timeutil.Clock, mgr *shutdown.Manager, checks map[string]observability.Pinger, logger *zap.Logger) (ports.Notifier, error) {
	var notifiers []ports.Notifier

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		mgr.RegisterCloser("redis", rdb)
		checks["redis"] = observability.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		notifiers = append(notifiers, notification.NewRedisNotifier(rdb, cfg.Redis.ChannelPrefix, clock, logger))
		logger.Info("Redis notifier enabled", zap.String("addr", cfg.Redis.Addr))
	}

	if cfg.Webhook.URL != "" {
		secret, err := bootstrap.Resolve(ctx, secretStore, cfg.Webhook.Secret, cfg.Webhook.SecretPath)
		if err != nil {
			return nil, fmt.Errorf("load webhook secret: %w", err)
		}
		httpClient := pkghttp.NewHTTPClient(pkghttp.NotificationClientConfig(), 10*time.Second)
		notifiers = append(notifiers, notification.NewWebhookNotifier(notification.WebhookConfig{
			URL:      cfg.Webhook.URL,
			Secret:   secret,
			Attempts: cfg.Webhook.Attempts,
			Backoff:  resilience.NotificationBackoff(),
		}, httpClient, clock, logger))
		logger.Info("Webhook notifier enabled", zap.String("url", cfg.Webhook.URL))
	}

	switch len(notifiers) {
	case 0:
		logger.Warn("No notifier configured; SCA challenges and payment events are not delivered")
		return notification.Discard{}, nil
	case 1:
		return notifiers[0], nil
	default:
		return notification.NewFanout(notifiers...), nil
	}
}

// reloadOnHangup re-reads configuration on SIGHUP. Only settings read per request,
// such as the API keys, take effect without a restart.
func reloadOnHangup(ctx context.Context, store *config.Store, logger *zap.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := store.Reload()
			if err != nil {
				logger.Error("Configuration reload failed, keeping current configuration", zap.Error(err))
				continue
			}
			logger.Info("Configuration reloaded", zap.Int("api_keys", len(cfg.Server.APIKeys)))
		}
	}
}
