// Command server runs the SIM inventory HTTP API.
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
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OlyRIO/sim-erp-app/internal/billing"
	billinghandler "github.com/OlyRIO/sim-erp-app/internal/billing/handler"
	"github.com/OlyRIO/sim-erp-app/internal/platform/config"
	"github.com/OlyRIO/sim-erp-app/internal/platform/httpserver"
	"github.com/OlyRIO/sim-erp-app/internal/platform/logger"
	"github.com/OlyRIO/sim-erp-app/internal/platform/postgres"
	"github.com/OlyRIO/sim-erp-app/internal/refdata"
	refdatahandler "github.com/OlyRIO/sim-erp-app/internal/refdata/handler"
	simhandler "github.com/OlyRIO/sim-erp-app/internal/sim/handler"
	"github.com/OlyRIO/sim-erp-app/internal/sim/metrics"
	"github.com/OlyRIO/sim-erp-app/internal/sim/service"
	"github.com/OlyRIO/sim-erp-app/internal/sim/store/activationcode"
	"github.com/OlyRIO/sim-erp-app/internal/sim/store/event"
	"github.com/OlyRIO/sim-erp-app/internal/sim/store/simcard"
	"github.com/OlyRIO/sim-erp-app/pkg/tx"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	runner := tx.NewSQL(db, cfg.TxTimeout)
	simService := service.New(
		simcard.NewPostgres(db),
		event.NewPostgres(db),
		activationcode.NewPostgres(db),
		runner,
		service.WithLogger(log),
		service.WithMetrics(metrics.New(registry)),
		service.WithImportWorkers(cfg.ImportWorkers),
	)

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		simhandler.New(simService, log).Register(r)
		refdatahandler.New(refdata.NewPostgres(db), log).Register(r)
		billinghandler.New(billing.NewPostgres(db), log).Register(r)
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting sim-erp server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
