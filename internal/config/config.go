// Package config loads and watches codeloop configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all codeloop configuration.
type Config struct {
	// Workspace settings
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Model endpoint configuration
	Model ModelConfig `yaml:"model"`

	// Agent loop settings
	Loop LoopConfig `yaml:"loop"`

	// Command execution settings
	Execution ExecutionConfig `yaml:"execution"`

	// Audit trail
	Audit AuditConfig `yaml:"audit"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// WorkspaceConfig configures the workspace gateway.
type WorkspaceConfig struct {
	// Root is the directory all tool operations are resolved against.
	// Empty means no workspace is configured and file/command tools fail.
	Root string `yaml:"root"`

	// IgnoreDirs are directory names excluded from read/write/list.
	IgnoreDirs []string `yaml:"ignore_dirs"`
}

// ModelConfig configures the model endpoint client.
type ModelConfig struct {
	// Endpoint receives the rendered prompt as a query parameter.
	Endpoint string `yaml:"endpoint"`

	// Timeout for a single completion call.
	Timeout string `yaml:"timeout"`
}

// LoopConfig configures the agent loop.
type LoopConfig struct {
	// MaxLoops caps model/tool iterations per turn.
	MaxLoops int `yaml:"max_loops"`
}

// ExecutionConfig configures shell command execution.
type ExecutionConfig struct {
	// DefaultTimeout for a single command.
	DefaultTimeout string `yaml:"default_timeout"`

	// MaxOutputBytes bounds combined stdout/stderr capture.
	MaxOutputBytes int64 `yaml:"max_output_bytes"`
}

// AuditConfig configures the SQLite audit trail.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string          `yaml:"level"` // debug, info, warn, error
	Development bool            `yaml:"development"`
	Categories  map[string]bool `yaml:"categories"`
}

// DefaultIgnoreDirs is the fixed default exclusion set for the workspace
// gateway. A directory name appearing anywhere in a path blocks access.
func DefaultIgnoreDirs() []string {
	return []string{
		"node_modules", "vendor", ".git", "dist", "build", "out",
		"target", "bin", "obj", "lib", ".idea", ".vscode", ".env",
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			IgnoreDirs: DefaultIgnoreDirs(),
		},
		Model: ModelConfig{
			Endpoint: "http://localhost:11434/api/prompt",
			Timeout:  "120s",
		},
		Loop: LoopConfig{
			MaxLoops: 10,
		},
		Execution: ExecutionConfig{
			DefaultTimeout: "60s",
			MaxOutputBytes: 1 << 20,
		},
		Audit: AuditConfig{
			Enabled: false,
			Path:    "data/codeloop-audit.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, applying defaults for
// anything the file omits. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if len(cfg.Workspace.IgnoreDirs) == 0 {
		cfg.Workspace.IgnoreDirs = DefaultIgnoreDirs()
	}
	if cfg.Loop.MaxLoops <= 0 {
		cfg.Loop.MaxLoops = 10
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("CODELOOP_MODEL_ENDPOINT"); url != "" {
		c.Model.Endpoint = url
	}
	if root := os.Getenv("CODELOOP_WORKSPACE"); root != "" {
		c.Workspace.Root = root
	}
	if path := os.Getenv("CODELOOP_AUDIT_DB"); path != "" {
		c.Audit.Path = path
	}
}

// ModelTimeout returns the model call timeout as a duration.
func (c *Config) ModelTimeout() time.Duration {
	d, err := time.ParseDuration(c.Model.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// CommandTimeout returns the command execution timeout as a duration.
func (c *Config) CommandTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.DefaultTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}
