package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/inkform/inkform/internal/config"
	"github.com/inkform/inkform/internal/extract"
	"github.com/inkform/inkform/internal/mcp"
	"github.com/inkform/inkform/internal/session"
	"github.com/inkform/inkform/internal/template"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	// Log output always goes to stderr; in stdio mode stdout carries the
	// MCP protocol and must stay clean.
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	if cfg.IsServerMode() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Keep the stdlib logger out of stdout too; the MCP layer uses it
	// for its own debug lines.
	log.SetOutput(os.Stderr)
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		log.SetOutput(os.NewFile(0, os.DevNull))
	}

	return logger
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server, logger zerolog.Logger) {
	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Start server in a goroutine
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-signalCh:
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		// Wait for server to shutdown
		if err := <-serverErrCh; err != nil {
			logger.Error().Err(err).Msg("server shutdown with error")
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}

	logger.Info().Msg("server stopped")
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, _ context.CancelFunc, server *mcp.Server, logger zerolog.Logger) {
	// In stdio mode, the parent process controls our lifecycle
	// We should exit cleanly when stdin is closed or we get an error
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// Load configuration from flags first
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging based on mode
	logger := setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && cfg.IsServerMode() {
		logger.Debug().Str("config", cfg.String()).Msg("starting")
	}

	// Wire the extraction and template clients
	extractor := extract.NewClient(cfg.ModelEndpoint, cfg.ModelAPIKey, cfg.ExtractionTimeoutDuration(), logger)
	templates := template.NewClient(cfg.TemplateServiceURL, logger)

	// Create the session manager
	sessions := session.NewManager(session.Config{
		WorkDir:         cfg.WorkDir,
		MaxFileSize:     cfg.MaxFileSize,
		PreviewDebounce: cfg.PreviewDebounceDuration(),
	}, extractor, templates, logger)
	defer sessions.CloseAll()

	// Create MCP server
	server, err := mcp.NewServer(cfg, sessions, templates)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create MCP server")
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle different modes
	if cfg.IsServerMode() {
		runServerMode(ctx, cancel, server, logger)
	} else {
		runStdioMode(ctx, cancel, server, logger)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Inkform\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
