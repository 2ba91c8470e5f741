// Command server exposes the skillweave engine as a JSON API.
//
// Usage:
//
//	go run -tags sqlite_fts5 ./cmd/server -config config.yaml -addr :8080
//
// Configuration comes from the config file plus SKILLWEAVE_* environment
// variables (a .env file is loaded if present). SKILLWEAVE_API_KEY
// enables bearer-token auth; SKILLWEAVE_CORS_ORIGINS enables CORS.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/skillweave/skillweave"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML or JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// Local development convenience; real deployments set env directly.
	_ = godotenv.Load()

	cfg, err := skillweave.LoadConfig(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	apiKey := os.Getenv("SKILLWEAVE_API_KEY")
	corsOrigins := os.Getenv("SKILLWEAVE_CORS_ORIGINS")

	engine, err := skillweave.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	h := newHandler(engine)

	r := chi.NewRouter()

	// Middleware chain: request id -> recovery -> cors -> auth -> logging
	r.Use(chimw.RequestID)
	r.Use(recoveryMiddleware)
	r.Use(corsMiddleware(corsOrigins))
	r.Use(authMiddleware(apiKey))
	r.Use(logMiddleware)

	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", h.handleAnalyze)
		r.Get("/match", h.handleMatch)
		r.Get("/stats", h.handleStats)
		r.Route("/occupations/{code}", func(r chi.Router) {
			r.Get("/", h.handleOccupation)
			r.Get("/transitions", h.handleTransitions)
		})
	})

	srv := &http.Server{
		Addr:         *addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // analyze calls remote embedding APIs
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
