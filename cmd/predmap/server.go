package predmap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soundprediction/predmap"
	"github.com/soundprediction/predmap/pkg/config"
	"github.com/soundprediction/predmap/pkg/logger"
	"github.com/soundprediction/predmap/pkg/server"
	"github.com/soundprediction/predmap/pkg/telemetry"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the predicate mapping HTTP server",
	Long: `Start the predicate mapping HTTP server.

The server provides endpoints for:
- Mapping batches of subject/relationship/object triples (POST /query/)
- Health and readiness checks

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

	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "release", "Server mode (debug, release, test)")

	serverCmd.Flags().String("corpus-file", "", "Path to the predicate corpus (.json or .jsonl)")
	serverCmd.Flags().String("vectordb-driver", "ladybug", "Vector index driver (ladybug, neo4j)")
	serverCmd.Flags().String("vectordb-uri", "", "Vector index URI/path")

	serverCmd.Flags().String("llm-model", "", "Chat model for reranking")
	serverCmd.Flags().String("llm-api-key", "", "Chat API key")
	serverCmd.Flags().String("llm-base-url", "", "Chat base URL")

	serverCmd.Flags().String("embedding-provider", "", "Embedding provider (openai, local)")
	serverCmd.Flags().String("embedding-model", "", "Embedding model")
	serverCmd.Flags().String("embedding-api-key", "", "Embedding API key")
	serverCmd.Flags().String("embedding-base-url", "", "Embedding base URL")

	serverCmd.Flags().String("telemetry-parquet-path", "", "Directory for error-record telemetry")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrideConfigWithFlags(cmd, cfg)

	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	parquetHandler, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	if parquetHandler != nil {
		defer parquetHandler.Close()
	}

	fmt.Println("Initializing predicate mapper...")
	client, err := predmap.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize predicate mapper: %w", err)
	}
	defer client.Close()

	srv := server.New(cfg, client, client)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v\n", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		fmt.Println("Server stopped gracefully")
		return nil
	}
}

// setupLogging installs the color handler as the default logger, wrapped with
// parquet error telemetry when a path is configured.
func setupLogging(cfg *config.Config) (*telemetry.ParquetHandler, error) {
	colorHandler := logger.NewColorHandler(os.Stderr, logger.ParseLevel(cfg.Log.Level))

	if cfg.Telemetry.ParquetPath == "" {
		slog.SetDefault(slog.New(colorHandler))
		return nil, nil
	}

	if err := os.MkdirAll(cfg.Telemetry.ParquetPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	parquetHandler, err := telemetry.NewParquetHandler(colorHandler, cfg.Telemetry.ParquetPath)
	if err != nil {
		fmt.Printf("Warning: Failed to initialize error tracking: %v\n", err)
		slog.SetDefault(slog.New(colorHandler))
		return nil, nil
	}
	slog.SetDefault(slog.New(parquetHandler))
	fmt.Printf("Error tracking enabled at: %s\n", cfg.Telemetry.ParquetPath)
	return parquetHandler, nil
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}

	if cmd.Flags().Changed("corpus-file") {
		cfg.Store.CorpusFile, _ = cmd.Flags().GetString("corpus-file")
	}
	if cmd.Flags().Changed("vectordb-driver") {
		cfg.VectorDB.Driver, _ = cmd.Flags().GetString("vectordb-driver")
	}
	if cmd.Flags().Changed("vectordb-uri") {
		cfg.VectorDB.URI, _ = cmd.Flags().GetString("vectordb-uri")
	}

	if cmd.Flags().Changed("llm-model") {
		cfg.LLM.Model, _ = cmd.Flags().GetString("llm-model")
	}
	if cmd.Flags().Changed("llm-api-key") {
		cfg.LLM.APIKey, _ = cmd.Flags().GetString("llm-api-key")
	}
	if cmd.Flags().Changed("llm-base-url") {
		cfg.LLM.BaseURL, _ = cmd.Flags().GetString("llm-base-url")
	}

	if cmd.Flags().Changed("embedding-provider") {
		cfg.Embedding.Provider, _ = cmd.Flags().GetString("embedding-provider")
	}
	if cmd.Flags().Changed("embedding-model") {
		cfg.Embedding.Model, _ = cmd.Flags().GetString("embedding-model")
	}
	if cmd.Flags().Changed("embedding-api-key") {
		cfg.Embedding.APIKey, _ = cmd.Flags().GetString("embedding-api-key")
	}
	if cmd.Flags().Changed("embedding-base-url") {
		cfg.Embedding.BaseURL, _ = cmd.Flags().GetString("embedding-base-url")
	}

	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Store.CorpusFile == "" {
		return fmt.Errorf("corpus file is required")
	}
	return nil
}
