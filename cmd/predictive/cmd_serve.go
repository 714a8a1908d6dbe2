package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofemci/predictive/internal/handlers"
	"github.com/sofemci/predictive/internal/jobs"
	"github.com/sofemci/predictive/internal/middleware"
	"github.com/sofemci/predictive/internal/notify"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the live alert feed and the scheduled analysis",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	log.Printf("Starting predictive maintenance service %s...", version)

	a, err := openApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	stop := make(chan struct{})

	// Live alert feed
	hub := notify.NewHub()
	go hub.Run(stop)
	a.addNotifier(hub)

	// Scheduled analysis
	job := jobs.NewAnalysisJob(a.db, a.analysis, a.machines)
	if cfg.AnalysisWorkers > 0 {
		job.SetWorkers(cfg.AnalysisWorkers)
		log.Printf("Analysis workers set to %d from ANALYSIS_WORKERS", cfg.AnalysisWorkers)
	}
	go job.Start(stop)
	log.Println("Analysis job started")

	mux := http.NewServeMux()
	handlers.NewHTTPHandler(a.db, hub).SetupRoutes(mux)
	handlers.NewAPIHandler(a.alerts, a.analysis, a.machines, a.reports).SetupRoutes(mux)

	cors := middleware.NewCORS(cfg.CORSAllowedOrigins...)
	handler := middleware.RequestID(middleware.AccessLog(cors.Wrap(mux)))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)
	log.Printf("Alert feed endpoint: ws://localhost:%d/ws/alerts", cfg.HTTPPort)
	log.Printf("API base URL: http://localhost:%d/api", cfg.HTTPPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		log.Println("Received shutdown signal, cleaning up...")
	case err = <-serverErr:
		log.Printf("HTTP server error: %v", err)
	}

	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Println("Shutting down HTTP server...")
	if shutdownErr := httpServer.Shutdown(ctx); shutdownErr != nil {
		log.Printf("Error shutting down HTTP server: %v", shutdownErr)
	}

	log.Println("Shutdown complete")
	return err
}
