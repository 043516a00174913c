package observability

import (
	"strings"

	"github.com/smallbiznis/subtrack/internal/config"
)

// Config carries the observability settings derived from app config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	return Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
		Version:     cfg.AppVersion,

		LogLevel:  "info",
		LogFormat: "json",

		OtelEnabled:          cfg.OtelEnabled,
		OtelExporterEndpoint: cfg.OTLPEndpoint,
		OtelSamplingRatio:    1.0,
	}
}

func (c Config) Debug() bool {
	return strings.EqualFold(c.Environment, "development")
}
