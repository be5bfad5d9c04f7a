package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/sectify/sectify/internal/config"
	"github.com/sectify/sectify/internal/domain/authz"
	"github.com/sectify/sectify/internal/domain/keyalias"
	"github.com/sectify/sectify/internal/interfaces/httpserver"
	"github.com/sectify/sectify/internal/observability"
	"github.com/sectify/sectify/internal/pipeline"
	"github.com/sectify/sectify/internal/worker"
)

// Application owns every long-running loop Sectify starts besides the HTTP
// server itself: the decode worker pool, the HLS packaging pipeline, and
// the periodic sweep of expired access grants and key aliases.
type Application struct {
	cfg        *config.Config
	httpServer *httpserver.HttpServer
	decodePool *worker.Pool
	pipeline   *pipeline.Pipeline
	authzSvc   *authz.Service
	aliases    *keyalias.Store
	log        zerolog.Logger
}

func NewApplication(
	cfg *config.Config,
	log zerolog.Logger,
	httpServer *httpserver.HttpServer,
	decodePool *worker.Pool,
	pl *pipeline.Pipeline,
	authzSvc *authz.Service,
	aliases *keyalias.Store,
) *Application {
	return &Application{
		cfg:        cfg,
		httpServer: httpServer,
		decodePool: decodePool,
		pipeline:   pl,
		authzSvc:   authzSvc,
		aliases:    aliases,
		log:        log,
	}
}

// Start launches the worker pool, the packaging pipeline, and the grant
// sweep loop, then blocks serving HTTP until ctx is cancelled.
func (a *Application) Start(ctx context.Context) error {
	a.decodePool.Start(ctx)
	go a.pipeline.Run(ctx)
	go a.sweepLoop(ctx)

	return a.httpServer.Run(ctx)
}

// sweepLoop periodically evicts expired authz grants and key aliases so
// long-lived maps don't grow unbounded between requests that would
// otherwise trigger eviction lazily.
func (a *Application) sweepLoop(ctx context.Context) {
	interval := a.cfg.AccessGrantTTL
	if a.cfg.KeyAliasTTL < interval {
		interval = a.cfg.KeyAliasTTL
	}
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			grants := a.authzSvc.Sweep()
			aliases := a.aliases.Sweep()
			if grants > 0 || aliases > 0 {
				a.log.Debug().Int("grants_evicted", grants).Int("aliases_evicted", aliases).Msg("swept expired state")
			}
		}
	}
}

func main() {
	loadEnvFiles()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := BuildApplication(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build application: %v\n", err)
		os.Exit(1)
	}

	shutdownTracing, err := observability.Init(ctx, observability.Config{
		ServiceName:  app.cfg.ServiceName,
		Environment:  app.cfg.Environment,
		Enabled:      app.cfg.EnableTracing,
		OTLPEndpoint: app.cfg.OTLPEndpoint,
	})
	if err != nil {
		app.log.Fatal().Err(err).Msg("initialize tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			app.log.Error().Err(err).Msg("shutdown tracing")
		}
	}()

	if err := app.Start(ctx); err != nil {
		app.log.Fatal().Err(err).Msg("application stopped with error")
	}

	app.log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
