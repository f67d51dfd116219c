package observability

import (
	"os"
	"strings"

	"github.com/urbanease/urbanease/internal/config"
)

// Config holds observability configuration derived from environment variables.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "urbanease"
	}

	return Config{
		ServiceName: serviceName,
		Environment: strings.TrimSpace(getenv("DEPLOYMENT_ENV", cfg.Environment)),
		Version:     strings.TrimSpace(getenv("SERVICE_VERSION", cfg.AppVersion)),
		LogLevel:    strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:   strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
	}
}

func (c Config) Debug() bool {
	return c.LogLevel == "debug"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
