package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bankingapp "github.com/clutch/ledger/internal/application/banking"
	ledgerapp "github.com/clutch/ledger/internal/application/ledger"
	payoutapp "github.com/clutch/ledger/internal/application/payout"
	settlementapp "github.com/clutch/ledger/internal/application/settlement"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/clutch/ledger/internal/infrastructure/bankfeed"
	"github.com/clutch/ledger/internal/infrastructure/cache"
	"github.com/clutch/ledger/internal/infrastructure/config"
	"github.com/clutch/ledger/internal/infrastructure/event"
	"github.com/clutch/ledger/internal/infrastructure/export"
	"github.com/clutch/ledger/internal/infrastructure/idgen"
	"github.com/clutch/ledger/internal/infrastructure/lock"
	"github.com/clutch/ledger/internal/infrastructure/logger"
	"github.com/clutch/ledger/internal/infrastructure/notification"
	"github.com/clutch/ledger/internal/infrastructure/persistence"
	"github.com/clutch/ledger/internal/infrastructure/scheduler"
	"github.com/clutch/ledger/internal/infrastructure/telemetry"
	"github.com/clutch/ledger/internal/interfaces/http/handler"
	"github.com/clutch/ledger/internal/interfaces/http/middleware"
	"github.com/clutch/ledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.ISO8601Millis,
		Service:    cfg.App.Name,
		Env:        cfg.App.Env,
		Sample:     cfg.App.Env == "production" && cfg.Log.Format == "json",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	// Telemetry: traces, metrics and logs go to the same collector
	otel, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	if level, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
		log = otel.BridgeLogger(log, level)
	}
	defer func() {
		if err := otel.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
		_ = log.Sync()
	}()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.Running() {
		otel.EnableSpanProfiles()
	}

	log.Info("Starting ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	defaultTenant, err := uuid.Parse(cfg.App.DefaultTenantID)
	if err != nil {
		log.Fatal("Invalid default tenant id", zap.String("value", cfg.App.DefaultTenantID), zap.Error(err))
	}

	// Database, logged through zap and instrumented with otelgorm
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.Open(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.InstrumentGorm(db.DB, telemetry.GormConfig{
		Tracing:   cfg.Telemetry.DBTraceEnabled,
		FullSQL:   cfg.Telemetry.DBLogFullSQL,
		SlowQuery: cfg.Telemetry.DBSlowQueryThresh,
	}, otel.Meter("db.client"), log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Per-key locks serialize postings per account and batching per partner
	locker, closeLocker, err := lock.New(cfg.Lock, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to initialize locks", zap.Error(err))
	}
	defer func() {
		if err := closeLocker(); err != nil {
			log.Error("Error closing lock backend", zap.Error(err))
		}
	}()

	numbers, err := idgen.NewSnowflakeNumbers(cfg.Ledger.NodeID)
	if err != nil {
		log.Fatal("Failed to initialize document numbers", zap.Error(err))
	}

	tenants := telemetry.NewGormTenantProvider(db.DB)
	ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:    otel.Meter("ledger"),
		Logger:   log,
		Provider: telemetry.NewGormSettlementMetricsProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}
	if otel.Enabled() {
		ledgerMetrics.StartPeriodicCollection(ctx, tenants, 5*time.Minute)
		defer ledgerMetrics.Stop()
	}

	rounding := valueobject.NewRounding(cfg.Ledger.Precision, decimal.NewFromFloat(cfg.Ledger.Tolerance))

	// Repositories and application services
	repos := persistence.NewGormRepositories(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	journal := ledgerapp.NewJournal(numbers, ledgerapp.JournalOptions{
		Rounding:        rounding,
		AllowBackdating: cfg.Ledger.AllowBackdating,
		Metrics:         ledgerMetrics,
		Logger:          log,
	})
	accountService := ledgerapp.NewAccountService(repos.Accounts(), locker, valueobject.Currency(cfg.Ledger.Currency), log)
	postingService := ledgerapp.NewPostingService(repos.JournalEntries(), scope, locker, journal, log)
	statementService := ledgerapp.NewStatementService(repos.Accounts(), repos.LedgerEntries(), rounding, export.NewStatementWorkbook(), log)

	var feed bankingapp.FeedReader
	if cfg.BankFeed.Enabled {
		source, err := bankfeed.NewS3Source(&cfg.BankFeed, bankfeed.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize bank feed", zap.Error(err))
		}
		feed = source
		log.Info("Bank feed enabled", zap.String("bucket", cfg.BankFeed.Bucket))
	}
	bankFeedService := bankingapp.NewBankFeedService(repos.BankAccounts(), repos.BankTransactions(), repos.Accounts(), locker, feed, log)
	reconciliationService := bankingapp.NewReconciliationService(repos.Reconciliations(), repos.BankAccounts(), repos.BankTransactions(),
		scope, locker, numbers, bankingapp.ReconciliationOptions{
			Rounding:        rounding,
			MatchWindowDays: cfg.Ledger.MatchWindowDays,
			Metrics:         ledgerMetrics,
			Logger:          log,
		})
	commissionService := settlementapp.NewCommissionService(repos.PartnerFinancials(), repos.Commissions(), repos.Accounts(),
		scope, locker, journal, ledgerMetrics, log)
	payoutService := payoutapp.NewPayoutService(repos.Payouts(), repos.Commissions(), repos.PartnerFinancials(), repos.Accounts(),
		scope, locker, numbers, journal, payoutapp.Options{Metrics: ledgerMetrics, Logger: log})

	// Domain events: audit log always, Pub/Sub when configured
	eventSerializer := event.NewEventSerializer()
	event.RegisterLedgerEvents(eventSerializer)
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	if cfg.Notification.PubSubEnabled {
		forwarder, closeForwarder, err := notification.Connect(ctx, cfg.Notification, eventSerializer, log)
		if err != nil {
			log.Fatal("Failed to connect to Pub/Sub", zap.Error(err))
		}
		defer func() {
			if err := closeForwarder(); err != nil {
				log.Error("Error closing Pub/Sub client", zap.Error(err))
			}
		}()
		eventBus.Subscribe(forwarder)
		log.Info("Forwarding events to Pub/Sub", zap.String("topic", cfg.Notification.Topic))
	}
	accountService.SetEventPublisher(eventBus)
	postingService.SetEventPublisher(eventBus)
	reconciliationService.SetEventPublisher(eventBus)
	commissionService.SetEventPublisher(eventBus)
	payoutService.SetEventPublisher(eventBus)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Scheduled payout generation
	if cfg.Scheduler.Enabled {
		executor := scheduler.NewPayoutJobExecutor(func(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (int, int, error) {
			result, err := payoutService.GeneratePayouts(ctx, tenantID, asOf)
			if err != nil {
				return 0, 0, err
			}
			return len(result.Created), len(result.Skipped), nil
		}, log)
		jobs := scheduler.NewScheduler(scheduler.Config{
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}, executor, log)
		if err := jobs.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		trigger := scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
			CheckInterval: cfg.Scheduler.PayoutInterval,
			Location:      time.UTC,
		}, jobs, tenants, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start payout trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := trigger.Stop(stopCtx); err != nil {
				log.Error("Error stopping payout trigger", zap.Error(err))
			}
			if err := jobs.Stop(stopCtx); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	// Recovery first so panics in later middleware are caught; the request
	// id must exist before the access log and the span read it
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.Tracing(cfg.Telemetry.ServiceName),
		middleware.HTTPMetrics(otel.Meter("http.server")),
		middleware.CORS(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	engine.GET("/health", handler.NewHealthHandler(db).Check)

	apiMiddleware := []gin.HandlerFunc{middleware.Identity(defaultTenant), middleware.SpanIdentity(), middleware.Profiling()}
	if cfg.Idempotency.Enabled {
		store, err := cache.NewIdempotencyStore(cfg.Idempotency, cfg.Redis,
			cache.WithLogger(log), cache.WithInMemoryFallback(cfg.App.Env != "production"))
		if err != nil {
			log.Fatal("Failed to initialize idempotency store", zap.Error(err))
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()
		apiMiddleware = append(apiMiddleware, middleware.Idempotency(store, cfg.Idempotency.TTL, log))
	}

	routes := router.NewRouter(engine).
		Use(apiMiddleware...).
		RegisterAll(router.Handlers{
			Ledger:     handler.NewLedgerHandler(accountService, postingService, statementService),
			Banking:    handler.NewBankingHandler(bankFeedService, reconciliationService),
			Settlement: handler.NewSettlementHandler(commissionService),
			Payout:     handler.NewPayoutHandler(payoutService),
		}).
		Setup()
	log.Info("API routes registered", zap.Any("routes", routes))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	cancelBackground()

	log.Info("Server exited gracefully")
}
