package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/Never2333/tfl-status/handlers"
	"github.com/Never2333/tfl-status/internal/app"
	"github.com/Never2333/tfl-status/internal/config"
	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/metrics"
)

func main() {
	// Load base .env first, then .env.local (which overrides for local development)
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	log := logger.Setup()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("configuration rejected", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	// Pick up snapshots written by tubectl without a restart
	if fs, ok := svc.FileStore(); ok && cfg.SnapshotWatch {
		err := fs.Watch(ctx, func() {
			if err := svc.Holder.Reload(ctx); err != nil {
				log.Warn("snapshot reload failed, keeping previous copy", "error", err)
			}
		})
		if err != nil {
			log.Warn("snapshot watcher disabled", "error", err)
		}
	}

	// Build the index in the background so the first searches can use it;
	// until then they fall through to the live tier
	if cfg.WarmIndex {
		go func() {
			if _, err := svc.Directory.Refresh(ctx); err != nil {
				log.Warn("initial index build failed", "error", err)
			}
		}()
	}

	searchHandler := handlers.NewSearchHandler(svc.Resolver, svc.Aliases)
	linesHandler := handlers.NewStationLinesHandler(svc.Client, svc.Catalog, cfg.HierarchyDepth)
	arrivalsHandler := handlers.NewArrivalsHandler(svc.Client, svc.Resolver, svc.Catalog.Mode())
	healthHandler := handlers.NewHealthHandler(svc.Directory, svc.Holder)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))
	r.Use(logger.AccessMiddleware(log))

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Get("/api/search", searchHandler.Search)
	r.Get("/api/stations/quick", searchHandler.QuickPicks)
	r.Get("/api/stations/{id}/lines", linesHandler.GetLines)
	r.Get("/api/arrivals", arrivalsHandler.GetArrivals)
	r.Get("/api/offline-meta", healthHandler.OfflineMeta)

	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("API server starting",
		"port", cfg.Port,
		"snapshot_backend", cfg.SnapshotBackend,
		"tfl_key", cfg.TfLAppKey != "",
	)
	log.Info("endpoints",
		"search", "GET /api/search?q=",
		"quick", "GET /api/stations/quick",
		"lines", "GET /api/stations/{id}/lines",
		"arrivals", "GET /api/arrivals?id=|name=",
		"offline", "GET /api/offline-meta",
		"ops", "GET /health, GET /metrics",
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
