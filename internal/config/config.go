// Package config loads command configuration from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/parmira/forensic"
	"github.com/parmira/forensic/client"
)

// Config holds the configuration loaded from environment variables.
type Config struct {
	// Server
	Port     string
	LogLevel string // debug, info, warn, error

	// Provider selection
	AuditProvider string
	ImageProvider string
	AuditModel    string
	ImageModel    string
	MCPCommand    string // server command line for the mcp audit provider

	// Audit tuning
	ThinkingBudget int
	AspectRatio    string
	MaxAttempts    int // provider attempts per call, retrying transient failures

	// API Keys
	GoogleKey    string
	AnthropicKey string
	OpenAIKey    string

	// Vertex AI (uses ADC for auth)
	VertexProject  string
	VertexLocation string
}

// Option overrides a loaded value before validation.
type Option func(*Config)

// WithImageProvider overrides FORENSIC_IMAGE_PROVIDER.
func WithImageProvider(provider string) Option {
	return func(c *Config) {
		c.ImageProvider = provider
	}
}

// Load loads configuration from environment variables.
// It loads a .env file if present (silent fail if not found). Options are
// applied before validation.
func Load(opts ...Option) (*Config, error) {
	godotenv.Load() // Load .env file if present

	cfg := &Config{
		Port:           getEnvOrDefault("FORENSIC_PORT", "8000"),
		LogLevel:       getEnvOrDefault("FORENSIC_LOG_LEVEL", "info"),
		AuditProvider:  getEnvOrDefault("FORENSIC_AUDIT_PROVIDER", string(forensic.ProviderGoogle)),
		ImageProvider:  getEnvOrDefault("FORENSIC_IMAGE_PROVIDER", string(forensic.ProviderGoogle)),
		AuditModel:     os.Getenv("FORENSIC_AUDIT_MODEL"),
		ImageModel:     os.Getenv("FORENSIC_IMAGE_MODEL"),
		MCPCommand:     os.Getenv("FORENSIC_MCP_COMMAND"),
		ThinkingBudget: getEnvIntOrDefault("FORENSIC_THINKING_BUDGET", forensic.DefaultThinkingBudget),
		AspectRatio:    getEnvOrDefault("FORENSIC_ASPECT_RATIO", forensic.DefaultAspectRatio),
		MaxAttempts:    getEnvIntOrDefault("FORENSIC_MAX_ATTEMPTS", 1),
		GoogleKey:      getEnvOrDefault("GOOGLE_API_KEY", os.Getenv("API_KEY")),
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		VertexProject:  os.Getenv("VERTEX_PROJECT"),
		VertexLocation: os.Getenv("VERTEX_LOCATION"),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	switch c.AuditProvider {
	case "google":
		if c.GoogleKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required for google audit provider")
		}
	case "anthropic":
		if c.AnthropicKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for anthropic audit provider")
		}
	case "vertex":
		if err := c.validateVertex(); err != nil {
			return err
		}
	case "mcp":
		if strings.TrimSpace(c.MCPCommand) == "" {
			return fmt.Errorf("FORENSIC_MCP_COMMAND is required for mcp audit provider")
		}
	default:
		return fmt.Errorf("unknown audit provider: %s (must be google, vertex, anthropic, or mcp)", c.AuditProvider)
	}

	switch c.ImageProvider {
	case "google":
		if c.GoogleKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required for google image provider")
		}
	case "vertex":
		if err := c.validateVertex(); err != nil {
			return err
		}
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for openai image provider")
		}
	case "none":
	default:
		return fmt.Errorf("unknown image provider: %s (must be google, vertex, openai, or none)", c.ImageProvider)
	}

	if c.ThinkingBudget < 0 {
		return fmt.Errorf("FORENSIC_THINKING_BUDGET must not be negative")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("FORENSIC_MAX_ATTEMPTS must not be negative")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateVertex() error {
	if c.VertexProject == "" || c.VertexLocation == "" {
		return fmt.Errorf("VERTEX_PROJECT and VERTEX_LOCATION are required for vertex provider")
	}
	return nil
}

// Client returns the gateway configuration. events may be nil.
func (c *Config) Client(events chan<- client.Event) client.Config {
	return client.Config{
		APIKeys: client.APIKeys{
			Google:    c.GoogleKey,
			Anthropic: c.AnthropicKey,
			OpenAI:    c.OpenAIKey,
		},
		AuditProvider: forensic.Provider(c.AuditProvider),
		ImageProvider: forensic.Provider(c.ImageProvider),
		AuditModel:    c.AuditModel,
		MCPCommand:    strings.Fields(c.MCPCommand),
		Vertex: client.VertexConfig{
			Project:  c.VertexProject,
			Location: c.VertexLocation,
		},
		ImageModel:     c.ImageModel,
		ThinkingBudget: c.ThinkingBudget,
		AspectRatio:    c.AspectRatio,
		MaxAttempts:    c.MaxAttempts,
		Events:         events,
	}
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s (must be debug, info, warn, or error)", s)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
