// AI Prompt Forge server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/prompt-forge/internal/api"
	"github.com/ashureev/prompt-forge/internal/config"
	"github.com/ashureev/prompt-forge/internal/gemini"
	"github.com/ashureev/prompt-forge/internal/identity"
	"github.com/ashureev/prompt-forge/internal/middleware"
	"github.com/ashureev/prompt-forge/internal/notify"
	"github.com/ashureev/prompt-forge/internal/persistence"
	"github.com/ashureev/prompt-forge/internal/state"
	"github.com/ashureev/prompt-forge/internal/store"
	"github.com/ashureev/prompt-forge/internal/views"
	"github.com/ashureev/prompt-forge/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "ai_enabled", cfg.AIEnabled())

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config) error {
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		return err
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	hub := notify.NewHub(cfg.ToastTTL)
	registry := state.NewRegistry(persistence.NewAdapter(repo), hub, state.Options{StarterCredits: cfg.Credits.Starter})

	if !cfg.AIEnabled() {
		slog.Warn("GEMINI_API_KEY not set, AI features will fail")
	}
	gateway := gemini.NewGateway(
		gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.BaseURL),
		gemini.Models{Flash: cfg.Gemini.FlashModel, Pro: cfg.Gemini.ProModel},
	)

	renderer, err := views.NewRenderer(web.Templates())
	if err != nil {
		return err
	}
	viewHandler := views.NewHandler(registry, hub, gateway, renderer, views.Options{
		CodeCost:       cfg.Credits.CodeGenerationCost,
		StarterCredits: cfg.Credits.Starter,
		ToastTTL:       cfg.ToastTTL,
		PreviewGrace:   cfg.PreviewGrace,
		AIEnabled:      cfg.AIEnabled(),
	})
	apiHandler := api.NewHandler(registry, api.Settings{
		AIEnabled:          cfg.AIEnabled(),
		StarterCredits:     cfg.Credits.Starter,
		CodeGenerationCost: cfg.Credits.CodeGenerationCost,
	})
	healthHandler := api.NewHealthHandler(repo, 5*time.Second)
	wsHandler := notify.NewHandler(hub, cfg.FrontendURL, cfg.IsDevelopment())

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	healthHandler.RegisterHealth(r)
	r.Handle("/static/*", http.StripPrefix("/static", web.StaticHandler()))

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(cfg.IsDevelopment()))

		origins := []string{"*"}
		if !cfg.IsDevelopment() {
			origins = []string{cfg.FrontendURL}
		}
		apiHandler.RegisterRoutes(r, middleware.CORS(origins, "Content-Type, "+identity.TabHeaderName))

		r.Get("/ws/notify", wsHandler.ServeHTTP)
		viewHandler.RegisterRoutes(r)
	})

	// No WriteTimeout: /ws/notify connections are long-lived and code
	// generation can take close to the gateway timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state.StartEvictionWorker(ctx, registry, cfg.StateIdleTTL, viewHandler.Forget)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
