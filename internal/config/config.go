package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort              = 8080
	DefaultHost              = "127.0.0.1"
	DefaultLogLevel          = "info"
	DefaultMaxFileSize       = 50 * 1024 * 1024 // 50MB
	DefaultExtractionTimeout = 120              // seconds
	DefaultPreviewDebounce   = 550              // milliseconds

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the form-filling MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Workspace configuration
	WorkDir string

	// Extraction service configuration
	ModelEndpoint     string
	ModelAPIKey       string
	ExtractionTimeout int // seconds

	// Template service configuration
	TemplateServiceURL string

	// Preview configuration
	PreviewDebounce int // milliseconds

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum document size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:              ModeStdio, // Default to stdio mode for MCP compatibility
		Host:              DefaultHost,
		Port:              DefaultPort,
		WorkDir:           currentDir,
		ExtractionTimeout: DefaultExtractionTimeout,
		PreviewDebounce:   DefaultPreviewDebounce,
		Version:           "1.0.0",
		ServerName:        "inkform",
		LogLevel:          DefaultLogLevel,
		MaxFileSize:       DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.WorkDir != "" {
		if expandedPath, err := filepath.Abs(cfg.WorkDir); err == nil {
			cfg.WorkDir = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("INKFORM")
	viper.AutomaticEnv()

	// Define flags with Viper
	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("workdir", cfg.WorkDir)
	viper.SetDefault("model_endpoint", cfg.ModelEndpoint)
	viper.SetDefault("model_api_key", cfg.ModelAPIKey)
	viper.SetDefault("extraction_timeout", cfg.ExtractionTimeout)
	viper.SetDefault("template_service_url", cfg.TemplateServiceURL)
	viper.SetDefault("preview_debounce", cfg.PreviewDebounce)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("workdir", cfg.WorkDir, "Working directory for preview and output files")
	pflag.String("model-endpoint", cfg.ModelEndpoint, "Extraction model endpoint URL")
	pflag.String("model-api-key", cfg.ModelAPIKey, "Extraction model API key")
	pflag.Int("extraction-timeout", cfg.ExtractionTimeout, "Extraction request timeout in seconds")
	pflag.String("template-service-url", cfg.TemplateServiceURL, "Template service base URL (optional)")
	pflag.Int("preview-debounce", cfg.PreviewDebounce, "Preview debounce window in milliseconds")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum document size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("workdir", pflag.Lookup("workdir"))
	_ = viper.BindPFlag("model_endpoint", pflag.Lookup("model-endpoint"))
	_ = viper.BindPFlag("model_api_key", pflag.Lookup("model-api-key"))
	_ = viper.BindPFlag("extraction_timeout", pflag.Lookup("extraction-timeout"))
	_ = viper.BindPFlag("template_service_url", pflag.Lookup("template-service-url"))
	_ = viper.BindPFlag("preview_debounce", pflag.Lookup("preview-debounce"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nInkform - A Model Context Protocol server for AI-assisted form filling\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --workdir=/path/to/workspace            "+
			"# stdio mode with custom workspace\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081               # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  INKFORM_MODE                  Server mode\n")
		fmt.Fprintf(os.Stderr, "  INKFORM_HOST                  Server host\n")
		fmt.Fprintf(os.Stderr, "  INKFORM_PORT                  Server port\n")
		fmt.Fprintf(os.Stderr, "  INKFORM_WORKDIR               Working directory\n")
		fmt.Fprintf(os.Stderr, "  INKFORM_MODEL_ENDPOINT        Extraction model endpoint\n")
		fmt.Fprintf(os.Stderr, "  INKFORM_MODEL_API_KEY         Extraction model API key\n")
		fmt.Fprintf(os.Stderr, "  INKFORM_EXTRACTION_TIMEOUT    Extraction timeout (seconds)\n")
		fmt.Fprintf(os.Stderr, "  INKFORM_TEMPLATE_SERVICE_URL  Template service base URL\n")
		fmt.Fprintf(os.Stderr, "  INKFORM_PREVIEW_DEBOUNCE      Preview debounce (milliseconds)\n")
		fmt.Fprintf(os.Stderr, "  INKFORM_LOGLEVEL              Log level\n")
		fmt.Fprintf(os.Stderr, "  INKFORM_MAXFILESIZE           Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.WorkDir = viper.GetString("workdir")
	cfg.ModelEndpoint = viper.GetString("model_endpoint")
	cfg.ModelAPIKey = viper.GetString("model_api_key")
	cfg.ExtractionTimeout = viper.GetInt("extraction_timeout")
	cfg.TemplateServiceURL = viper.GetString("template_service_url")
	cfg.PreviewDebounce = viper.GetInt("preview_debounce")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate working directory
	if c.WorkDir == "" {
		return errors.New("working directory cannot be empty")
	}

	// Check if working directory exists, create if it doesn't
	if _, err := os.Stat(c.WorkDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.WorkDir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create working directory %s: %w", c.WorkDir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access working directory %s: %w", c.WorkDir, err)
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate timeouts
	if c.ExtractionTimeout <= 0 {
		return errors.New("extraction timeout must be positive")
	}
	if c.PreviewDebounce <= 0 {
		return errors.New("preview debounce must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ExtractionTimeoutDuration returns the extraction timeout as a duration
func (c *Config) ExtractionTimeoutDuration() time.Duration {
	return time.Duration(c.ExtractionTimeout) * time.Second
}

// PreviewDebounceDuration returns the preview debounce window as a duration
func (c *Config) PreviewDebounceDuration() time.Duration {
	return time.Duration(c.PreviewDebounce) * time.Millisecond
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, WorkDir: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.WorkDir, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
