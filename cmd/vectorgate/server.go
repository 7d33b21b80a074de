package vectorgate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/vectorgate/pkg/config"
	"github.com/soundprediction/vectorgate/pkg/logger"
	"github.com/soundprediction/vectorgate/pkg/orchestrator"
	"github.com/soundprediction/vectorgate/pkg/registry"
	"github.com/soundprediction/vectorgate/pkg/server"
	"github.com/soundprediction/vectorgate/pkg/telemetry"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Vectorgate HTTP server",
	Long: `Start the Vectorgate HTTP server to provide REST API access to the
embedding backends.

The server provides endpoints for:
- Unified embedding (sparse, dense, multi-vector in one call)
- Legacy single-kind embedding routes
- Backend capability descriptions
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")

	// Sparse backend flags
	serverCmd.Flags().Bool("sparse-enabled", true, "Enable the BM25 sparse backend")
	serverCmd.Flags().Float64("sparse-k1", 1.2, "BM25 k1 parameter")
	serverCmd.Flags().Float64("sparse-b", 0.75, "BM25 b parameter")
	serverCmd.Flags().Float64("sparse-avg-doc-len", 256, "BM25 assumed average document length")

	// Dense backend flags
	serverCmd.Flags().Bool("dense-enabled", true, "Enable the dense backend")
	serverCmd.Flags().String("dense-provider", "embedeverything", "Dense provider (embedeverything, openai)")
	serverCmd.Flags().String("dense-model", "", "Dense embedding model")
	serverCmd.Flags().String("dense-api-key", "", "Dense backend API key")
	serverCmd.Flags().String("dense-base-url", "", "Dense backend base URL")

	// Multi-functional backend flags
	serverCmd.Flags().Bool("multi-enabled", false, "Enable the multi-functional backend")
	serverCmd.Flags().String("multi-endpoint", "", "Multi-functional backend endpoint URL")
	serverCmd.Flags().String("multi-model", "", "Multi-functional backend model")
	serverCmd.Flags().String("multi-api-key", "", "Multi-functional backend API key")

	// Cache flags
	serverCmd.Flags().Bool("cache-enabled", false, "Enable the dense embedding cache")
	serverCmd.Flags().String("cache-path", "", "Path to the embedding cache directory")

	// Telemetry flags
	serverCmd.Flags().String("telemetry-parquet-path", "", "Path to directory for error telemetry")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	overrideConfigWithFlags(cmd, cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, flush, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer flush()

	// Load backends; a missing sparse backend fails startup
	fmt.Println("Loading embedding backends...")
	reg, err := registry.New(context.Background(), cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize backends: %w", err)
	}
	defer reg.Close()

	orch := orchestrator.New(reg, cfg.Embedding, log)

	// Create and setup server
	srv := server.New(cfg, reg, orch)
	srv.Setup()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v\n", sig)

		// Create shutdown context with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Shutdown server
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		fmt.Println("Server stopped gracefully")
		return nil
	}
}

// buildLogger assembles the process logger: colored console output, plus a
// Parquet error-capture layer when a telemetry path is configured. The
// returned flush func drains buffered telemetry on shutdown.
func buildLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	colorHandler := logger.NewColorHandler(os.Stderr, &slog.HandlerOptions{
		Level: logger.ParseLevel(cfg.Log.Level),
	})

	if cfg.Telemetry.ParquetPath == "" {
		return slog.New(colorHandler), func() {}, nil
	}

	parquetHandler, err := telemetry.NewParquetHandler(colorHandler, cfg.Telemetry.ParquetPath)
	if err != nil {
		fmt.Printf("Warning: Failed to initialize error tracking: %v\n", err)
		return slog.New(colorHandler), func() {}, nil
	}
	fmt.Printf("Error tracking enabled at: %s\n", cfg.Telemetry.ParquetPath)
	return slog.New(parquetHandler), func() { _ = parquetHandler.Flush() }, nil
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	// Server flags
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}

	// Sparse backend flags
	if cmd.Flags().Changed("sparse-enabled") {
		cfg.Backends.Sparse.Enabled, _ = cmd.Flags().GetBool("sparse-enabled")
	}
	if cmd.Flags().Changed("sparse-k1") {
		cfg.Backends.Sparse.K1, _ = cmd.Flags().GetFloat64("sparse-k1")
	}
	if cmd.Flags().Changed("sparse-b") {
		cfg.Backends.Sparse.B, _ = cmd.Flags().GetFloat64("sparse-b")
	}
	if cmd.Flags().Changed("sparse-avg-doc-len") {
		cfg.Backends.Sparse.AvgDocLen, _ = cmd.Flags().GetFloat64("sparse-avg-doc-len")
	}

	// Dense backend flags
	if cmd.Flags().Changed("dense-enabled") {
		cfg.Backends.Dense.Enabled, _ = cmd.Flags().GetBool("dense-enabled")
	}
	if cmd.Flags().Changed("dense-provider") {
		cfg.Backends.Dense.Provider, _ = cmd.Flags().GetString("dense-provider")
	}
	if cmd.Flags().Changed("dense-model") {
		cfg.Backends.Dense.Model, _ = cmd.Flags().GetString("dense-model")
	}
	if cmd.Flags().Changed("dense-api-key") {
		cfg.Backends.Dense.APIKey, _ = cmd.Flags().GetString("dense-api-key")
	}
	if cmd.Flags().Changed("dense-base-url") {
		cfg.Backends.Dense.BaseURL, _ = cmd.Flags().GetString("dense-base-url")
	}

	// Multi-functional backend flags
	if cmd.Flags().Changed("multi-enabled") {
		cfg.Backends.Multi.Enabled, _ = cmd.Flags().GetBool("multi-enabled")
	}
	if cmd.Flags().Changed("multi-endpoint") {
		cfg.Backends.Multi.Endpoint, _ = cmd.Flags().GetString("multi-endpoint")
	}
	if cmd.Flags().Changed("multi-model") {
		cfg.Backends.Multi.Model, _ = cmd.Flags().GetString("multi-model")
	}
	if cmd.Flags().Changed("multi-api-key") {
		cfg.Backends.Multi.APIKey, _ = cmd.Flags().GetString("multi-api-key")
	}

	// Cache flags
	if cmd.Flags().Changed("cache-enabled") {
		cfg.Cache.Enabled, _ = cmd.Flags().GetBool("cache-enabled")
	}
	if cmd.Flags().Changed("cache-path") {
		cfg.Cache.Path, _ = cmd.Flags().GetString("cache-path")
	}

	// Telemetry flags
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
	}
}
