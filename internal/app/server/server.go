package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrpay/internal/domain/audit"
	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/notifications"
	"hrpay/internal/domain/overtime"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/domain/reports"
	"hrpay/internal/platform/config"
	"hrpay/internal/platform/db"
	"hrpay/internal/platform/jobs"
	"hrpay/internal/platform/metrics"
	"hrpay/internal/transport/http/api"
	audithandler "hrpay/internal/transport/http/handlers/audit"
	notificationshandler "hrpay/internal/transport/http/handlers/notifications"
	overtimehandler "hrpay/internal/transport/http/handlers/overtime"
	payrollhandler "hrpay/internal/transport/http/handlers/payroll"
	reportshandler "hrpay/internal/transport/http/handlers/reports"
	"hrpay/internal/transport/http/middleware"
)

const jobQueueSize = 16

type App struct {
	Config  config.Config
	Logger  *zap.Logger
	DB      *db.Pool
	Jobs    *jobs.Service
	Metrics *metrics.Collector
	Router  http.Handler
}

// RouteHandler is implemented by every feature handler package.
type RouteHandler interface {
	RegisterRoutes(r chi.Router)
}

type RouterDeps struct {
	Config   config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Collector
	Ready    func(ctx context.Context) error
	Handlers []RouteHandler
}

// New connects to the database, applies migrations when enabled and wires the
// feature services behind the HTTP router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	calc, err := payroll.LoadCalculator(cfg.PayrollPolicyFile)
	if err != nil {
		return nil, fmt.Errorf("pay policy: %w", err)
	}
	perms, err := auth.NewDefaultAuthorizer()
	if err != nil {
		return nil, fmt.Errorf("authorizer: %w", err)
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	collector := metrics.New()
	jobService := jobs.New(pool, logger, jobQueueSize)
	auditLog := audit.New(pool, logger)

	notifier := notifications.New(notifications.NewStore(pool), logger)
	overtimeService := overtime.NewService(overtime.NewStore(pool), logger)
	payrollService := payroll.NewService(payroll.NewStore(pool), calc, overtimeService, cfg.PayrollWorkers, logger)

	payrollHandler := payrollhandler.NewHandler(payrollService, jobService, auditLog, middleware.NewIdempotencyStore(pool, cfg.IdempotencyTTL), collector, perms)
	payrollHandler.Notify = notifier
	overtimeHandler := overtimehandler.NewHandler(overtimeService, payrollService, auditLog, perms)
	overtimeHandler.Notify = notifier

	router := NewRouter(RouterDeps{
		Config:  cfg,
		Logger:  logger,
		Metrics: collector,
		Ready:   pool.Ping,
		Handlers: []RouteHandler{
			payrollHandler,
			overtimeHandler,
			audithandler.NewHandler(auditLog, perms),
			notificationshandler.NewHandler(notifier),
			reportshandler.NewHandler(reports.NewService(reports.NewStore(pool), overtimeService), jobService, payrollService, perms),
		},
	})

	return &App{
		Config:  cfg,
		Logger:  logger,
		DB:      pool,
		Jobs:    jobService,
		Metrics: collector,
		Router:  router,
	}, nil
}

func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.New()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger, collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(deps.Config.IsProduction()))
	router.Use(middleware.BodyLimit(deps.Config.MaxBodyBytes))
	router.Use(middleware.Auth(deps.Config.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if deps.Config.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.Config.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(deps.Config.RateLimitPerMinute, time.Minute))
		for _, h := range deps.Handlers {
			h.RegisterRoutes(r)
		}
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Fail(w, http.StatusNotFound, "not_found", "route not found", middleware.GetRequestID(r.Context()))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Fail(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", middleware.GetRequestID(r.Context()))
	})
	return router
}

// Run serves HTTP and the job worker until ctx is cancelled, then drains both
// within the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	a.Jobs.Start(workerCtx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info("hrpay server listening", zap.String("addr", a.Config.Addr), zap.String("env", a.Config.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down", zap.Duration("timeout", a.Config.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	stopWorker()
	a.Jobs.Wait()
	return nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	_ = a.Logger.Sync()
}
