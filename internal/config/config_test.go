package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test default values
	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be '127.0.0.1', got '%s'", cfg.Host)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected default port to be 8080, got %d", cfg.Port)
	}

	if cfg.Version != "1.0.0" {
		t.Errorf("Expected default version to be '1.0.0', got '%s'", cfg.Version)
	}

	if cfg.ServerName != "inkform" {
		t.Errorf("Expected default server name to be 'inkform', got '%s'", cfg.ServerName)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.MaxFileSize != 50*1024*1024 {
		t.Errorf("Expected default max file size to be 50MB, got %d", cfg.MaxFileSize)
	}

	if cfg.ExtractionTimeout != 120 {
		t.Errorf("Expected default extraction timeout to be 120s, got %d", cfg.ExtractionTimeout)
	}

	if cfg.PreviewDebounce != 550 {
		t.Errorf("Expected default preview debounce to be 550ms, got %d", cfg.PreviewDebounce)
	}

	// Test that the working directory is set to the current directory by default
	currentDir, _ := os.Getwd()
	if cfg.WorkDir != currentDir {
		t.Errorf("Expected default working directory to be '%s', got '%s'", currentDir, cfg.WorkDir)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "valid config - stdio mode",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "valid config - server mode",
			config: &Config{
				Mode:              "server",
				Host:              "127.0.0.1",
				Port:              8080,
				WorkDir:           "/tmp/test",
				LogLevel:          "info",
				MaxFileSize:       1024,
				ExtractionTimeout: 120,
				PreviewDebounce:   550,
			},
			wantErr: false,
		},
		{
			name: "invalid mode",
			config: &Config{
				Mode:              "invalid",
				Host:              "127.0.0.1",
				Port:              8080,
				WorkDir:           "/tmp/test",
				LogLevel:          "info",
				MaxFileSize:       1024,
				ExtractionTimeout: 120,
				PreviewDebounce:   550,
			},
			wantErr: true,
		},
		{
			name: "invalid port - too low (server mode)",
			config: &Config{
				Mode:              "server",
				Host:              "127.0.0.1",
				Port:              0,
				WorkDir:           "/tmp/test",
				LogLevel:          "info",
				MaxFileSize:       1024,
				ExtractionTimeout: 120,
				PreviewDebounce:   550,
			},
			wantErr: true,
		},
		{
			name: "invalid port - too high (server mode)",
			config: &Config{
				Mode:              "server",
				Host:              "127.0.0.1",
				Port:              70000,
				WorkDir:           "/tmp/test",
				LogLevel:          "info",
				MaxFileSize:       1024,
				ExtractionTimeout: 120,
				PreviewDebounce:   550,
			},
			wantErr: true,
		},
		{
			name: "invalid port ignored in stdio mode",
			config: &Config{
				Mode:              "stdio",
				Host:              "127.0.0.1",
				Port:              0,
				WorkDir:           "/tmp/test",
				LogLevel:          "info",
				MaxFileSize:       1024,
				ExtractionTimeout: 120,
				PreviewDebounce:   550,
			},
			wantErr: false,
		},
		{
			name: "empty working directory",
			config: &Config{
				Mode:              "stdio",
				Host:              "127.0.0.1",
				Port:              8080,
				WorkDir:           "",
				LogLevel:          "info",
				MaxFileSize:       1024,
				ExtractionTimeout: 120,
				PreviewDebounce:   550,
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			config: &Config{
				Mode:              "stdio",
				Host:              "127.0.0.1",
				Port:              8080,
				WorkDir:           "/tmp/test",
				LogLevel:          "invalid",
				MaxFileSize:       1024,
				ExtractionTimeout: 120,
				PreviewDebounce:   550,
			},
			wantErr: true,
		},
		{
			name: "invalid max file size",
			config: &Config{
				Mode:              "stdio",
				Host:              "127.0.0.1",
				Port:              8080,
				WorkDir:           "/tmp/test",
				LogLevel:          "info",
				MaxFileSize:       0,
				ExtractionTimeout: 120,
				PreviewDebounce:   550,
			},
			wantErr: true,
		},
		{
			name: "invalid extraction timeout",
			config: &Config{
				Mode:              "stdio",
				Host:              "127.0.0.1",
				Port:              8080,
				WorkDir:           "/tmp/test",
				LogLevel:          "info",
				MaxFileSize:       1024,
				ExtractionTimeout: 0,
				PreviewDebounce:   550,
			},
			wantErr: true,
		},
		{
			name: "invalid preview debounce",
			config: &Config{
				Mode:              "stdio",
				Host:              "127.0.0.1",
				Port:              8080,
				WorkDir:           "/tmp/test",
				LogLevel:          "info",
				MaxFileSize:       1024,
				ExtractionTimeout: 120,
				PreviewDebounce:   0,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.config.WorkDir == "/tmp/test" {
				// Create a temporary directory for testing
				tempDir, err := os.MkdirTemp("", "inkform-test-*")
				if err != nil {
					t.Fatalf("Failed to create temp dir: %v", err)
				}
				defer os.RemoveAll(tempDir)
				tt.config.WorkDir = tempDir
			}

			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{
		Host: "192.168.1.1",
		Port: 9090,
	}

	expected := "192.168.1.1:9090"
	if got := cfg.Address(); got != expected {
		t.Errorf("Config.Address() = %v, want %v", got, expected)
	}
}

func TestConfigDurations(t *testing.T) {
	cfg := &Config{
		ExtractionTimeout: 90,
		PreviewDebounce:   550,
	}

	if got := cfg.ExtractionTimeoutDuration(); got != 90*time.Second {
		t.Errorf("Config.ExtractionTimeoutDuration() = %v, want %v", got, 90*time.Second)
	}
	if got := cfg.PreviewDebounceDuration(); got != 550*time.Millisecond {
		t.Errorf("Config.PreviewDebounceDuration() = %v, want %v", got, 550*time.Millisecond)
	}
}

func TestConfigIsDebug(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     bool
	}{
		{
			name:     "debug level",
			logLevel: "debug",
			want:     true,
		},
		{
			name:     "info level",
			logLevel: "info",
			want:     false,
		},
		{
			name:     "warn level",
			logLevel: "warn",
			want:     false,
		},
		{
			name:     "error level",
			logLevel: "error",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			if got := cfg.IsDebug(); got != tt.want {
				t.Errorf("Config.IsDebug() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigString(t *testing.T) {
	cfg := &Config{
		Mode:        "server",
		Host:        "localhost",
		Port:        8080,
		WorkDir:     "/home/user/forms",
		LogLevel:    "debug",
		MaxFileSize: 1024,
	}

	result := cfg.String()

	// Check that the string contains expected components
	expectedSubstrings := []string{
		"Mode: server",
		"Host: localhost",
		"Port: 8080",
		"WorkDir: /home/user/forms",
		"LogLevel: debug",
		"MaxFileSize: 1024",
	}

	for _, substr := range expectedSubstrings {
		if !contains(result, substr) {
			t.Errorf("Config.String() result doesn't contain expected substring: %s\nGot: %s", substr, result)
		}
	}
}

func TestConfigValidateCreatesWorkDir(t *testing.T) {
	// Create a temporary parent directory
	tempParent, err := os.MkdirTemp("", "inkform-parent-*")
	if err != nil {
		t.Fatalf("Failed to create temp parent dir: %v", err)
	}
	defer os.RemoveAll(tempParent)

	// Use a non-existent subdirectory
	nonExistentDir := filepath.Join(tempParent, "workspace", "previews")

	cfg := &Config{
		Mode:              "stdio",
		Host:              "127.0.0.1",
		Port:              8080,
		WorkDir:           nonExistentDir,
		LogLevel:          "info",
		MaxFileSize:       1024,
		ExtractionTimeout: 120,
		PreviewDebounce:   550,
	}

	err = cfg.Validate()
	if err != nil {
		t.Errorf("Config.Validate() should create missing working directory, got error: %v", err)
	}

	if _, err := os.Stat(nonExistentDir); err != nil {
		t.Errorf("Working directory should have been created: %s", nonExistentDir)
	}
}

func TestConfigValidateLogLevels(t *testing.T) {
	validLevels := []string{"debug", "info", "warn", "error"}
	invalidLevels := []string{"DEBUG", "INFO", "trace", "fatal", ""}

	tempDir, err := os.MkdirTemp("", "inkform-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	// Test valid log levels
	for _, level := range validLevels {
		t.Run("valid_"+level, func(t *testing.T) {
			cfg := &Config{
				Mode:              "stdio",
				Host:              "127.0.0.1",
				Port:              8080,
				WorkDir:           tempDir,
				LogLevel:          level,
				MaxFileSize:       1024,
				ExtractionTimeout: 120,
				PreviewDebounce:   550,
			}

			if err := cfg.Validate(); err != nil {
				t.Errorf("Config.Validate() should accept log level '%s', got error: %v", level, err)
			}
		})
	}

	// Test invalid log levels
	for _, level := range invalidLevels {
		t.Run("invalid_"+level, func(t *testing.T) {
			cfg := &Config{
				Mode:              "stdio",
				Host:              "127.0.0.1",
				Port:              8080,
				WorkDir:           tempDir,
				LogLevel:          level,
				MaxFileSize:       1024,
				ExtractionTimeout: 120,
				PreviewDebounce:   550,
			}

			if err := cfg.Validate(); err == nil {
				t.Errorf("Config.Validate() should reject log level '%s'", level)
			}
		})
	}
}

// Helper function to check if a string contains a substring
func contains(s, substr string) bool {
	return len(s) >= len(substr) &&
		(s == substr ||
			s[:len(substr)] == substr ||
			s[len(s)-len(substr):] == substr ||
			containsMiddle(s, substr))
}

func containsMiddle(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestConfigIsServerMode(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want bool
	}{
		{
			name: "server mode",
			mode: "server",
			want: true,
		},
		{
			name: "stdio mode",
			mode: "stdio",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Mode: tt.mode}
			if got := cfg.IsServerMode(); got != tt.want {
				t.Errorf("Config.IsServerMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigIsStdioMode(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want bool
	}{
		{
			name: "stdio mode",
			mode: "stdio",
			want: true,
		},
		{
			name: "server mode",
			mode: "server",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Mode: tt.mode}
			if got := cfg.IsStdioMode(); got != tt.want {
				t.Errorf("Config.IsStdioMode() = %v, want %v", got, tt.want)
			}
		})
	}
}
