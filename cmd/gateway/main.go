package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/qubiq-ai/edu-gateway/internal/api/openrouter"
	"github.com/qubiq-ai/edu-gateway/internal/auth"
	"github.com/qubiq-ai/edu-gateway/internal/config"
	"github.com/qubiq-ai/edu-gateway/internal/dispatch"
	"github.com/qubiq-ai/edu-gateway/internal/domain"
	"github.com/qubiq-ai/edu-gateway/internal/gateway"
	"github.com/qubiq-ai/edu-gateway/internal/keyring"
	"github.com/qubiq-ai/edu-gateway/internal/server"
	sqlitestore "github.com/qubiq-ai/edu-gateway/internal/storage/sqlite"
	"github.com/qubiq-ai/edu-gateway/internal/telemetry"
	"github.com/qubiq-ai/edu-gateway/internal/vault"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("EDUAI_CONFIG"), "path to config.yaml (optional)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("edu-gateway", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	codec, err := vault.New(cfg.Vault.MasterKey)
	if err != nil {
		log.Fatalf("Failed to initialize vault codec: %v", err)
	}

	store, err := sqlitestore.New(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to open credential store: %v", err)
	}
	defer store.Close()

	var clientOpts []openrouter.ClientOption
	if cfg.Upstream.BaseURL != "" {
		clientOpts = append(clientOpts, openrouter.WithBaseURL(cfg.Upstream.BaseURL))
	}
	client := openrouter.NewClient(clientOpts...)

	models := dispatch.DefaultModelMap()
	for capability, model := range cfg.Models {
		models.Models[domain.Capability(capability)] = model
	}

	dispatcher := dispatch.New(client, models, logger)
	resolver := keyring.NewResolver(keyring.DefaultRules())
	svc := gateway.New(store, codec, resolver, dispatcher, logger)

	verifier := auth.NewStaticVerifier(cfg.Callers)
	guard := auth.NewAdminGuard(cfg.Admin.Secret)

	handler := server.NewHandler(svc, verifier, guard, logger)
	srv := server.New(cfg.Server.Port, logger, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-sigChan:
		logger.Info("Shutdown signal received, stopping gateway...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Gateway shutdown complete")
}
