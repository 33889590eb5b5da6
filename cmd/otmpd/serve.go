package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	cryptopkg "github.com/oxidetalis-go/otmpd/crypto"
	"github.com/oxidetalis-go/otmpd/internal/config"
	"github.com/oxidetalis-go/otmpd/internal/health"
	"github.com/oxidetalis-go/otmpd/internal/logger"
	"github.com/oxidetalis-go/otmpd/internal/metrics"
	"github.com/oxidetalis-go/otmpd/noncecache"
	"github.com/oxidetalis-go/otmpd/orchestrator"
	"github.com/oxidetalis-go/otmpd/registry"
	"github.com/oxidetalis-go/otmpd/storage"
	"github.com/oxidetalis-go/otmpd/storage/memory"
	"github.com/oxidetalis-go/otmpd/storage/postgres"
)

var (
	serveUseMemory bool
	serveWSPath    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the OTMP homeserver",
	Long: `Loads configuration, wires crypto, the nonce cache, the
persistence backend, the connection registry, and the chat-request state
machine into a session orchestrator, then serves the WebSocket endpoint
and the health/metrics HTTP endpoints until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveUseMemory, "memory", false, "use the in-memory persistence backend instead of PostgreSQL (development only)")
	serveCmd.Flags().StringVar(&serveWSPath, "ws-path", "/ws/chat", "HTTP path the WebSocket endpoint is served on")
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.NewDefaultLogger()
	logger.SetDefaultLogger(log)
	log.Info("starting otmpd", logger.String("environment", cfg.Environment))

	server, err := cryptopkg.DecodePrivateKey(cfg.Server.PrivateKey)
	if err != nil {
		return fmt.Errorf("decode server private key: %w", err)
	}
	log.Info("server identity loaded", logger.String("public_key", server.PublicKeyBase58()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rawStore, pool, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build persistence backend: %w", err)
	}
	defer closeStore()
	store := storage.NewInstrumented(rawStore)

	byteBudget, err := config.ParseByteSize(cfg.Server.NonceCacheSize)
	if err != nil {
		return fmt.Errorf("parse nonce_cache_size: %w", err)
	}
	nonces := noncecache.NewCache(byteBudget)
	defer nonces.Close()

	reg := registry.New()
	defer reg.Close()

	orch := orchestrator.New(server, store, nonces, reg)

	mux := http.NewServeMux()
	mux.Handle(serveWSPath, orch)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthServer := health.NewServer(health.NewChecker(pool), log, cfg.Health.Port)
	if err := healthServer.Start(); err != nil {
		return fmt.Errorf("start health server: %w", err)
	}
	defer func() { _ = healthServer.Stop(context.Background()) }()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info("metrics listener starting", logger.String("addr", metricsServer.Addr), logger.String("path", cfg.Metrics.Path))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics listener failed", logger.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	go func() {
		log.Info("websocket listener starting", logger.String("addr", httpServer.Addr), logger.String("path", serveWSPath))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("websocket listener failed", logger.Error(err))
		}
	}()

	waitForShutdown(cancel, httpServer, log)
	return nil
}

func waitForShutdown(cancel context.CancelFunc, httpServer *http.Server, log logger.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	log.Info("shutdown signal received, draining connections")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", logger.Error(err))
	}
}

// buildStore picks the persistence backend per --memory, returning the
// pgxpool.Pool too (nil for the in-memory backend) so the health checker
// can probe the real connection rather than the Persistence facade.
func buildStore(ctx context.Context, cfg *config.Config) (storage.Persistence, *pgxpool.Pool, func(), error) {
	if serveUseMemory {
		store := memory.NewStore()
		return store, nil, func() { _ = store.Close() }, nil
	}

	store, err := postgres.NewStore(ctx, &postgres.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Name,
		SSLMode:  cfg.Postgres.SSLMode,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, nil, fmt.Errorf("apply migrations: %w", err)
	}
	return store, store.Pool(), func() { _ = store.Close() }, nil
}
