package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/captionboard/internal/adapters/http/api"
	"github.com/okian/captionboard/internal/adapters/http/swagger"
	"github.com/okian/captionboard/internal/adapters/repository"
	"github.com/okian/captionboard/internal/adapters/stories"
	service "github.com/okian/captionboard/internal/app"
	"github.com/okian/captionboard/internal/config"
	"github.com/okian/captionboard/internal/domain/scoring"
	"github.com/okian/captionboard/pkg/logger"
	"github.com/okian/captionboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		// logger may not be initialized yet
		os.Stderr.WriteString("captionboard: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> dotenv -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := buildService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("data_dir", cfg.DataDir),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx, metrics.RefreshInterval())
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(srv.Shutdown(shutdownCtx), svc.Stop(shutdownCtx))
	})

	err = g.Wait()
	log.Info(ctx, "server stopped")
	return err
}

// buildService wires storage, the scoring collaborator and the stories feed
// from configuration.
func buildService(cfg *config.Config, log logger.Logger) *service.Service {
	records := repository.NewCSVStore(cfg.DataDir, repository.WithLogger(log.Named("records")))
	flags := repository.NewMarkerStore(cfg.DataDir, repository.WithLogger(log.Named("flags")))

	feed := stories.NewHTTPFetcher(cfg.StoriesURL)
	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithStories(stories.NewCache(feed.Fetch,
			stories.WithName("community"),
			stories.WithTTL(cfg.StoriesTTL()),
			stories.WithLogger(log.Named("stories")),
		)),
		service.WithDefaultLimit(cfg.DefaultLimit),
		service.WithMaxLimit(cfg.MaxLeaderboardLimit),
		service.WithWriteRetries(cfg.WriteRetries),
		service.WithAutoCompute(cfg.AutoCompute),
		service.WithComputeOnSubmit(cfg.ComputeOnSubmit),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
	}
	if cfg.ComputeURL != "" {
		opts = append(opts, service.WithScorer(scoring.NewHTTPScorer(cfg.ComputeURL,
			scoring.WithSecret(cfg.ComputeSecretHeader, cfg.ComputeSecret),
			scoring.WithTimeout(cfg.ComputeTimeout()),
			scoring.WithRetries(cfg.ComputeRetries),
			scoring.WithRetryDelay(cfg.ComputeRetryDelay()),
			scoring.WithLogger(log.Named("scoring")),
		)))
	}
	return service.New(records, flags, opts...)
}

// newMux registers the business API and the API reference.
func newMux(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithMaxLimit(cfg.MaxLeaderboardLimit),
		api.WithComputeSecret(cfg.ComputeSecretHeader, cfg.ComputeSecret),
		api.WithLogger(log.Named("http")),
	).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes process gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
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

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
