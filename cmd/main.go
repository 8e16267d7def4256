// cmd/main.go is the application entry point.
// It wires together all layers, starts the background sweeps, and runs the
// HTTP server with graceful shutdown.
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

	"github.com/gatherly/eventreg/internal/cache"
	"github.com/gatherly/eventreg/internal/clock"
	"github.com/gatherly/eventreg/internal/config"
	"github.com/gatherly/eventreg/internal/database"
	"github.com/gatherly/eventreg/internal/handler"
	"github.com/gatherly/eventreg/internal/notify"
	"github.com/gatherly/eventreg/internal/repository"
	"github.com/gatherly/eventreg/internal/service"
	"github.com/gatherly/eventreg/migrations"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ── 1. Connect to PostgreSQL and apply migrations ─────────────────────
	pool, err := database.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	log.Println("✓ Connected to PostgreSQL")

	if err := migrations.Apply(ctx, pool); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	log.Println("✓ Schema up to date")

	// ── 2. Wire up layers ────────────────────────────────────────────────
	clk := clock.NewSystem()
	displayCache := cache.NewMemory(cfg.CacheTTL)
	notifier := notify.LogNotifier{}

	eventRepo := repository.NewEventRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)
	eventSvc := service.NewEventService(eventRepo, regRepo, displayCache, clk)
	regSvc := service.NewRegistrationService(regRepo, eventRepo, displayCache, notifier, clk)
	eventHandler := handler.NewEventHandler(eventSvc)
	regHandler := handler.NewRegistrationHandler(regSvc)

	// ── 3. Background sweeps ──────────────────────────────────────────────
	sweepCtx, stopSweeps := context.WithCancel(ctx)
	defer stopSweeps()
	go runSweeps(sweepCtx, cfg.SweepInterval, eventSvc, regSvc)

	// ── 4. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger)          // structured access log
	r.Use(handler.CORS)            // permissive CORS for demo

	// Health
	r.Get("/health", handler.HealthCheck)

	// API routes
	r.Route("/events", func(r chi.Router) {
		r.Post("/", eventHandler.Create)
		r.Get("/", eventHandler.List)
		r.Get("/{id}", eventHandler.Get)
		r.Patch("/{id}", eventHandler.Update)
		r.Delete("/{id}", eventHandler.Delete)
		r.Post("/{id}/publish", eventHandler.Publish)
		r.Post("/{id}/cancel", eventHandler.Cancel)
		r.Get("/{id}/status", eventHandler.Status)
		r.Post("/{id}/register", regHandler.Register)
		r.Get("/{id}/registrations", regHandler.ListByEvent)
	})
	r.Route("/registrations", func(r chi.Router) {
		r.Post("/{id}/cancel", regHandler.Cancel)
		r.Post("/{id}/attendance", regHandler.MarkAttendance)
		r.Post("/{id}/payment", regHandler.RecordPayment)
	})
	r.Get("/users/{id}/registrations", regHandler.ListByUser)

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Printf("✓ Server listening on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server…")
	stopSweeps()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}

// runSweeps periodically marks elapsed events COMPLETED and promotes
// waitlisted registrations into freed slots. Both jobs are idempotent
// compare-and-set updates, so missed or doubled ticks are harmless.
func runSweeps(ctx context.Context, interval time.Duration, events *service.EventService, regs *service.RegistrationService) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := events.CompleteElapsed(ctx); err != nil {
				log.Printf("completion sweep: %v", err)
			}
			if _, err := regs.ReconcileWaitlists(ctx); err != nil {
				log.Printf("waitlist reconciliation: %v", err)
			}
		}
	}
}
