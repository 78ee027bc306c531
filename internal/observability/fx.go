package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dinehq/dinehq/internal/config"
	"github.com/dinehq/dinehq/internal/observability/logger"
	"github.com/dinehq/dinehq/internal/observability/metrics"
)

var Module = fx.Module("observability",
	fx.Provide(newLoggerConfig),
	fx.Provide(logger.New),
	fx.Provide(newHTTPMetrics),
)

func newLoggerConfig(cfg config.Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.AppName,
		Environment:         cfg.Environment,
		Version:             cfg.AppVersion,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		IncludeCaller:       !cfg.IsProduction(),
		IncludeStackOnError: true,
	}
}

func newHTTPMetrics() *metrics.HTTPMetrics {
	return metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
}
