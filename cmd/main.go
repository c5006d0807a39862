package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/covita/internal/adapters/http/api"
	"github.com/okian/covita/internal/adapters/http/site"
	"github.com/okian/covita/internal/adapters/http/swagger"
	"github.com/okian/covita/internal/adapters/http/ws"
	service "github.com/okian/covita/internal/app"
	"github.com/okian/covita/internal/config"
	"github.com/okian/covita/pkg/logger"
	"github.com/okian/covita/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	writeMargin       = 15 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging with defaults until the config says otherwise.
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("main")

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	broadcaster := ws.NewBroadcaster()
	defer broadcaster.Close()

	svc := service.New(append(serviceOptions(cfg),
		service.WithNotifier(broadcaster),
		service.WithWarmup(true),
	)...)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	go metrics.RunSystemCollector(ctx)

	srv := newHTTPServer(cfg.Addr, newMux(ctx, svc, broadcaster), writeTimeoutFor(cfg))

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Websocket connections are hijacked and not tracked by Shutdown.
	broadcaster.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config) []service.Option {
	return []service.Option{
		service.WithSourceURL(cfg.SourceURL),
		service.WithFetchTimeout(cfg.FetchTimeout()),
		service.WithFetchRetries(cfg.FetchRetries),
		service.WithCacheTTL(cfg.CacheTTL()),
		service.WithRefreshInterval(cfg.RefreshInterval()),
		service.WithDefaultRegions(cfg.DefaultRegions),
		service.WithChartSize(cfg.ChartWidth, cfg.ChartHeight),
	}
}

// newMux registers every route. /ws bypasses the metrics middleware, whose
// response writer cannot be hijacked.
func newMux(ctx context.Context, svc *service.Service, broadcaster *ws.Broadcaster) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	site.Register(ctx, mux)
	mux.Handle("/ws", broadcaster.Handler())
	return mux
}

// writeTimeoutFor leaves room for a cold request that waits on every fetch
// attempt. A disabled fetch timeout disables the write deadline too.
func writeTimeoutFor(cfg *config.Config) time.Duration {
	fetch := cfg.FetchTimeout()
	if fetch == 0 {
		return 0
	}
	return max(writeTimeout, fetch*time.Duration(cfg.FetchRetries+1)+writeMargin)
}

func newHTTPServer(addr string, handler http.Handler, write time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      write,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
