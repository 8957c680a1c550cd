package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mbolis/santas-scanner/app"
	"github.com/mbolis/santas-scanner/config"
	"github.com/mbolis/santas-scanner/database"
	"github.com/mbolis/santas-scanner/geo"
	"github.com/mbolis/santas-scanner/log"
	"github.com/mbolis/santas-scanner/questions"
	"github.com/mbolis/santas-scanner/routes"
)

func main() {
	// Load .env file if it exists (for local development)
	dotenvErr := godotenv.Load()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	log.Configure(cfg.Debug)
	if dotenvErr != nil {
		log.Debug("main.dotenv: no .env file found")
	}

	qs, err := questions.Load(cfg.QuestionsFile)
	if err != nil {
		log.Fatal("main.questions:", err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	store, err := database.Open(connectCtx, cfg)
	cancel()
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			log.Errorf("main.db.close: %s", err)
		}
	}()

	var geoOpts []geo.Option
	if cfg.RedisAddr != "" {
		cache := geo.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.GeoCacheTTL)
		defer cache.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		if err := cache.Ping(ctx); err != nil {
			log.Warnf("main.redis.ping: %s (country cache degraded)", err)
		}
		cancel()
		geoOpts = append(geoOpts, geo.WithCache(cache))
	}

	app := app.App{
		Results:   store,
		Geo:       geo.NewClient(cfg.GeoURL, cfg.GeoTimeout, geoOpts...),
		Questions: qs,
		Config:    cfg,
	}

	handler := routes.Wire(app)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = runServer(ctx, cfg, handler)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("main.server: %s", err)
	}
}

func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info("Listening on " + cfg.Url())
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
