package main

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metrosched/internal/api"
	"metrosched/internal/metrics"
)

func main() {
	srv, err := api.NewServer()
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	// Optimization
	mux.HandleFunc("/v1/optimize", srv.OptimizeHandler)
	mux.HandleFunc("/v1/optimizer/config", srv.OptimizerConfigHandler)

	// Schedules
	mux.HandleFunc("/v1/schedules", srv.SchedulesHandler)
	mux.HandleFunc("/v1/schedules/", srv.ScheduleByIDHandler)

	// Runs: per-method metrics and the event stream
	mux.HandleFunc("/v1/runs/", srv.RunsHandler)

	// Health
	mux.HandleFunc("/healthz", srv.HealthHandler)
	mux.HandleFunc("/readyz", srv.ReadyHandler)

	// Prometheus
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	addr := ":" + srv.Cfg.Port

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           api.Instrument(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API listening on %s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
