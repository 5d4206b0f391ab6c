// cmd/server is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/Facelessism/Pixel-Phantoms/internal/catalog"
	"github.com/Facelessism/Pixel-Phantoms/internal/config"
	"github.com/Facelessism/Pixel-Phantoms/internal/database"
	"github.com/Facelessism/Pixel-Phantoms/internal/handler"
	"github.com/Facelessism/Pixel-Phantoms/internal/notify"
	"github.com/Facelessism/Pixel-Phantoms/internal/repository"
	"github.com/Facelessism/Pixel-Phantoms/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProduction() && len(cfg.CORSOrigins) == 0 {
		log.Fatal("CORS_ORIGINS must be set in production")
	}

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	log.Println("connected to PostgreSQL")

	// ── 2. Load the event catalog ────────────────────────────────────────
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	log.Printf("catalog loaded: %d events from %s", cat.Len(), cfg.CatalogPath)

	// SIGHUP re-reads the catalog file after the sync job updates it.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := cat.Reload(); err != nil {
				log.Printf("catalog reload failed: %v", err)
				continue
			}
			log.Printf("catalog reloaded: %d events", cat.Len())
		}
	}()

	// ── 3. Wire up layers ────────────────────────────────────────────────
	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTP)
	} else {
		log.Println("EMAIL_HOST not set: confirmations will be logged, not sent")
	}

	store := repository.NewStore(pool)
	regSvc := service.NewRegistrationService(store, cat, notifier)
	regHandler := handler.NewRegistrationHandler(regSvc)

	// ── 4. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger)          // structured access log
	r.Use(cors.Handler(corsOptions(cfg)))

	// Health
	r.Get("/health", handler.HealthCheck)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/events", regHandler.ListEvents)
		r.Get("/events/{title}", regHandler.GetEvent)
		r.Get("/events/{title}/registrations", regHandler.ListRegistrations)

		r.Group(func(r chi.Router) {
			// Same budget as the community site has always enforced.
			r.Use(httprate.LimitByIP(100, 15*time.Minute))
			r.Post("/register", regHandler.Register)
		})
	})

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
		log.Printf("server listening on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}

func corsOptions(cfg config.Config) cors.Options {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		// Non-production convenience only; main refuses to start in
		// production without explicit origins.
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: len(cfg.CORSOrigins) > 0,
		MaxAge:           300,
	}
}
