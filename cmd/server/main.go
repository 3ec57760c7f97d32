package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/socratic-tutor/backend/internal/api"
	"github.com/socratic-tutor/backend/internal/infrastructure/config"
	"github.com/socratic-tutor/backend/internal/llm"
	"github.com/socratic-tutor/backend/internal/logger"
	"github.com/socratic-tutor/backend/internal/service"
	"github.com/socratic-tutor/backend/internal/store"
	"github.com/socratic-tutor/backend/internal/upload"

	_ "github.com/socratic-tutor/backend/docs" // generated swagger docs
)

// @title           Socratic Tutor API
// @version         1.0
// @description     Tutoring conversations and graded estimations backed by a multimodal language model.

// @host      localhost:8080
// @BasePath  /

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogFormat, cfg.LogLevel, os.Stdout)
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", logger.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	// ── Dependencies ────────────────────────────────────────────────
	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	uploads, err := upload.NewStore(cfg.UploadDir)
	if err != nil {
		return err
	}

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		return err
	}

	if cfg.LLMAPIKey == "" {
		log.Warn("LLM_API_KEY is not set; model calls will fail until it is")
	}
	gateway, err := llm.NewOpenAIClient(llm.Config{
		BaseURL:      cfg.LLMBaseURL,
		APIKey:       cfg.LLMAPIKey,
		DefaultModel: config.DefaultModel,
		Timeout:      cfg.LLMTimeout,
		MaxTokens:    cfg.LLMMaxTokens,
	}, uploads, log)
	if err != nil {
		return err
	}

	handler := api.NewHandler(api.Deps{
		Conversations: service.NewConversationService(st, gateway, uploads, settings, log),
		Estimations:   service.NewEstimationService(st, gateway, uploads, settings, log),
		Exports:       service.NewExportService(st, log),
		Catalog:       llm.NewCatalog(gateway, cfg.ModelsTTL, log),
		Settings:      settings,
		Logger:        log,
	})

	// ── Routes ──────────────────────────────────────────────────────
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	})

	api.RegisterRoutes(mux, handler)

	// Swagger UI served at /swagger/
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// ── Middleware chain: Logging → CORS → mux ──────────────────────
	logged := api.Logging(log)(api.CORS(mux))

	// ── Server ──────────────────────────────────────────────────────
	// WriteTimeout leaves room for a full model round trip.
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           logged,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.LLMTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			"address", cfg.ServerAddress,
			"store", cfg.StoreBackend,
			"data_dir", cfg.DataDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	log.Info("shutting down server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", logger.Err(err))
		return err
	}
	return nil
}

func openStore(cfg *config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.StoreBackend == config.StoreSQLite {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return store.NewSQLite(filepath.Join(cfg.DataDir, "tutor.db"), log)
	}
	return store.NewFileStore(cfg.DataDir, log)
}
