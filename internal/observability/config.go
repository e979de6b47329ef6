package observability

import (
	"strings"

	"github.com/smallbiznis/masstrack/internal/config"
)

// Config is the telemetry view of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	development bool
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "masstrack"
	}
	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             cfg.Telemetry.LogLevel,
		LogFormat:            cfg.Telemetry.LogFormat,
		OtelEnabled:          cfg.Telemetry.OtelEnabled,
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: cfg.Telemetry.OtelProtocol,
		OtelSamplingRatio:    cfg.Telemetry.SamplingRatio,
		development:          cfg.IsDevelopment(),
	}
}

// Debug enables verbose request and SQL logging.
func (c Config) Debug() bool {
	return c.LogLevel == "debug" || c.development
}
