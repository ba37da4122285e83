package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"GLOSSA_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"GLOSSA_DB_MAX_CONNS" default:"8"`

	ListenAddr string `envconfig:"GLOSSA_LISTEN_ADDR" default:":8080"`

	TranslateEndpoint string `envconfig:"TRANSLATE_ENDPOINT" default:"http://127.0.0.1:8845/v1"`
	TranslateModel    string `envconfig:"TRANSLATE_MODEL" default:"tencent/HY-MT1.5-7B"`
	TranslateAPIKey   string `envconfig:"TRANSLATE_API_KEY" default:""`

	UILanguage string `envconfig:"GLOSSA_UI_LANGUAGE" default:""`

	AdminPassword      string `envconfig:"ADMIN_PASSWORD" default:""`
	SessionTTLHours    int    `envconfig:"SESSION_TTL_HOURS" default:"168"`
	SessionIdleMinutes int    `envconfig:"GLOSSA_SESSION_IDLE_MINUTES" default:"60"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("GLOSSA_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("GLOSSA_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("GLOSSA_DB_MIN_CONNS (%d) cannot exceed GLOSSA_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("GLOSSA_LISTEN_ADDR is required")
	}
	if strings.TrimSpace(c.TranslateModel) == "" {
		return fmt.Errorf("TRANSLATE_MODEL is required")
	}
	if c.SessionTTLHours < 1 {
		return fmt.Errorf("SESSION_TTL_HOURS must be >= 1")
	}
	if c.SessionIdleMinutes < 1 {
		return fmt.Errorf("GLOSSA_SESSION_IDLE_MINUTES must be >= 1")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}

// AuthEnabled reports whether the API requires an authenticated session.
func (c *Config) AuthEnabled() bool {
	if c == nil {
		return false
	}
	return strings.TrimSpace(c.AdminPassword) != ""
}
