package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/youruser/gemdeck/internal/api"
	"github.com/youruser/gemdeck/internal/auraapi"
	"github.com/youruser/gemdeck/internal/cards"
	"github.com/youruser/gemdeck/internal/companion"
	"github.com/youruser/gemdeck/internal/config"
	imagepkg "github.com/youruser/gemdeck/internal/image"
	"github.com/youruser/gemdeck/internal/logging"
	"github.com/youruser/gemdeck/internal/store"
)

var configPath = flag.String("config", envOr("GEMDECK_CONFIG", "gemdeck.toml"), "path to the TOML config file")

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.Log.Level)
	log := logging.New(os.Stderr, level, cfg.Log.Format)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	db, err := store.Open(store.DefaultConfig(cfg.Storage.Path))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("error closing database", slog.Any("error", err))
		}
	}()

	// Catalog overrides are optional; a bad file only costs the names.
	catalog, err := cards.LoadCatalog(cfg.Assets.DataDir)
	if err != nil {
		log.Warn("failed to load gem catalog", slog.Any("error", err))
	}

	client := auraapi.NewClient(auraapi.Options{
		BaseURL:           cfg.API.BaseURL,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		HTTPClient:        &http.Client{Timeout: cfg.APITimeout()},
		Logger:            log,
	})
	artwork, err := imagepkg.NewArtwork(cfg.Assets.BaseURL, cfg.Assets.CacheSize)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := companion.NewService(client, db, catalog, log)
	go svc.RunSweeper(ctx, time.Minute, cfg.IdleTimeout())

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(logging.Middleware(log), gin.Recovery())
	api.RegisterRoutes(r, api.NewHandlers(svc, artwork, api.Options{
		CookieName:   cfg.Server.CookieName,
		SecureCookie: cfg.Server.SecureCookie,
		CookieTTL:    cfg.IdleTimeout(),
		Logger:       log,
	}))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("starting server", slog.String("addr", "http://localhost:"+cfg.Server.Port), slog.String("api", cfg.API.BaseURL))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
