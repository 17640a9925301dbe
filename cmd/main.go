package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/castle/internal/adapters/http/api"
	"github.com/okian/castle/internal/adapters/http/site"
	"github.com/okian/castle/internal/adapters/http/swagger"
	"github.com/okian/castle/internal/adapters/http/ws"
	"github.com/okian/castle/internal/adapters/render"
	"github.com/okian/castle/internal/adapters/source"
	app "github.com/okian/castle/internal/app"
	"github.com/okian/castle/internal/config"
	"github.com/okian/castle/internal/domain/aggregate"
	"github.com/okian/castle/internal/domain/schema"
	"github.com/okian/castle/pkg/logger"
	"github.com/okian/castle/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(ctx context.Context) error {
	log := logger.Get()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		return err
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		var dsErr *schema.DataSourceError
		if errors.As(err, &dsErr) {
			log.Error(ctx, "no usable data source", logger.Strings("paths", dsErr.Paths()), logger.Error(err))
		} else {
			log.Error(ctx, "failed to start service", logger.Error(err))
		}
		return err
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	// Start system metrics updater
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})

	// Start the HTTP server
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(gctx, "HTTP server failed", logger.Error(err))
			return err
		}
		return nil
	})

	// Wait for shutdown signal or a server failure
	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
			return err
		}
		return nil
	})

	err = g.Wait()
	log.Info(ctx, "server stopped")
	return err
}

// newService builds the service from configuration.
func newService(cfg *config.Config, log logger.Logger) *app.Service {
	files := source.Files{
		Dir:      cfg.DataDir,
		Primary:  cfg.PrimaryFile,
		Summary:  cfg.SummaryFile,
		Workbook: cfg.WorkbookFile,
		Sheet:    cfg.WorkbookSheet,
	}
	return app.New(
		app.WithLogger(log),
		app.WithLoader(source.NewLoader(files.Candidates(), source.WithLogger(log.Named("source")))),
		app.WithAggregateConfig(aggregateConfig(cfg)),
		app.WithRenderer(render.New(render.WithSize(cfg.ChartWidth, cfg.ChartHeight))),
		app.WithMaxRows(cfg.MaxRows),
	)
}

func aggregateConfig(cfg *config.Config) aggregate.Config {
	return aggregate.Config{
		Highlight:         cfg.HighlightCompany,
		TopRating:         cfg.TopRating,
		SeniorTenure:      cfg.SeniorTenure,
		ExperiencedTenure: cfg.ExperiencedTenure,
		FitPoints:         cfg.FitPoints,
	}
}

// newMux registers every route.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	api.NewServer(svc, svc).Register(ctx, mux)

	// Websocket sessions are not wrapped: the metrics middleware cannot hijack.
	mux.Handle("/ws", ws.NewHandler(svc,
		ws.WithLogger(logger.Named("ws")),
		ws.WithReadLimit(cfg.WSReadLimit),
	))

	// Dashboard page at /
	site.Register(ctx, mux)

	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval) // Update every 10 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	// Update memory usage
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	// Update goroutine count
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	// Update GC pause time
	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
