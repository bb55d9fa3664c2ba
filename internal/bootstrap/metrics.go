package bootstrap

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/target/ghsession/config"
	"github.com/target/ghsession/internal/observability/metrics"
	"github.com/target/ghsession/internal/observability/statsd"
	"github.com/target/ghsession/internal/ports"
)

// Metrics is the wired metrics backend.
type Metrics struct {
	Recorder ports.SessionMetrics
	// Handler serves /metrics for the prometheus backend and is nil otherwise.
	Handler http.Handler
	close   func() error
}

// Close flushes and releases the backend.
func (m *Metrics) Close() error {
	if m == nil || m.close == nil {
		return nil
	}
	return m.close()
}

// BuildMetrics wires the configured metrics backend. A nil Recorder means metrics are off.
func BuildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (*Metrics, error) {
	switch cfg.Backend {
	case config.MetricsStatsd:
		client, err := statsd.NewClient(statsd.Config{
			Address: cfg.StatsdAddress,
			Prefix:  cfg.StatsdPrefix,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return &Metrics{Recorder: metrics.NewStatsdRecorder(client), close: client.Close}, nil

	case config.MetricsPrometheus:
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return &Metrics{
			Recorder: metrics.NewPrometheusRecorder(reg),
			Handler:  metrics.Handler(reg),
		}, nil

	default:
		return &Metrics{}, nil
	}
}
