// Command galligeo runs the local-first georeferencing work-state service:
// an HTTP API over a SQLite store of per-map work records, with snapshot
// checkpointing, best-effort remote sync, and proxied access to the digital
// library's catalog and compute APIs.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/paristimemachine/galligeo/internal/config"
	"github.com/paristimemachine/galligeo/internal/domain"
	"github.com/paristimemachine/galligeo/internal/gateway"
	httpapi "github.com/paristimemachine/galligeo/internal/http"
	"github.com/paristimemachine/galligeo/internal/observability"
	"github.com/paristimemachine/galligeo/internal/repo"
	"github.com/paristimemachine/galligeo/internal/scheduler"
	"github.com/paristimemachine/galligeo/internal/services"
	"github.com/paristimemachine/galligeo/internal/session"
	"github.com/paristimemachine/galligeo/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open local store")
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			log.Warn().Err(err).Msg("db tracing not enabled")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// Session credential: a static token means an authenticated deployment;
	// otherwise fall back to the anonymous exchange.
	httpClient := &http.Client{Timeout: cfg.Remote.RequestTimeout}
	var sess session.Session
	if cfg.Remote.AuthToken != "" {
		sess = session.NewAuthenticated("", cfg.Remote.AuthToken)
	} else {
		sess = session.NewAnonymous(cfg.Remote.AuthTokenURL, "", httpClient)
	}

	remote := gateway.NewClient(cfg.Remote.GatewayBaseURL, sess, httpClient)
	compute := httpapi.NewComputeClient(cfg, sess)
	iiif := gateway.NewIIIFClient(cfg.Remote.IIIFBaseURL, httpClient)
	tiles := gateway.NewTileClient(cfg.Remote.GatewayBaseURL, httpClient)

	snapSvc := services.NewSnapshotService(db, cfg.Snapshot.MaxPerOwner)
	sched := scheduler.New(snapSvc, scheduler.Options{
		AutoEnabled: cfg.Snapshot.AutoEnabled,
		Interval:    cfg.Snapshot.Interval,
		Settle:      cfg.Snapshot.Settle,
	})
	sched.Start()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	if err := httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:        db,
		Session:   sess,
		Remote:    remote,
		Compute:   compute,
		Sink:      sched,
		Snapshots: snapSvc,
		Backup:    sched,
		IIIF:      iiif,
		Tiles:     tiles,
	}, cfg); err != nil {
		log.Fatal().Err(err).Msg("router setup failed")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("galligeo listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	// Final checkpoint before the timers die, the same capture a browser
	// client takes on page unload.
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	sched.Flush(flushCtx, domain.TriggerUnload)
	cancel()
	sched.Stop()

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}
