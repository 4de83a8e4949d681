package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/bookstore/internal/config"
	"github.com/geocoder89/bookstore/internal/db"
	httpx "github.com/geocoder89/bookstore/internal/http"
	"github.com/geocoder89/bookstore/internal/observability"
	"github.com/geocoder89/bookstore/internal/redisclient"
	"github.com/geocoder89/bookstore/internal/repo/postgres"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing is opt-in via OTEL_EXPORTER_OTLP_ENDPOINT
	if cfg.OtelEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), "bookstore-api", cfg.Env, cfg.OtelEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(ctx)
			}()
		}
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connection failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	seedCtx, cancelSeed := config.WithTimeout(5 * time.Second)

	if err := db.EnsureAdminUser(seedCtx, pool, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
	}

	cancelSeed()

	rdb := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancelPing := config.WithTimeout(2 * time.Second)

	if err := rdb.Ping(pingCtx); err != nil {
		// rate limiting fails open without redis, the API still serves
		log.Warn("redis unreachable, rate limiting disabled", "err", err)
		rdb = nil
	}

	cancelPing()

	if rdb != nil {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	// Expired sessions are rejected on access; this janitor only keeps the
	// table from growing without bound.
	go func() {
		sessions := postgres.NewSessionsRepo(pool, prom)

		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			ctx, cancel := config.WithTimeout(30 * time.Second)

			n, err := sessions.DeleteExpired(ctx)

			cancel()

			if err != nil {
				log.Error("session cleanup failed", "err", err)
				continue
			}

			if n > 0 {
				log.Info("expired sessions removed", "count", n)
			}
		}
	}()

	router := httpx.NewRouter(log, pool, rdb, prom, reg, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
