// Package observability holds the Prometheus registry of an esxtool run and
// dumps it for the node exporter textfile collector.
package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/logger"
	"github.com/esxtool/esxtool/internal/observability/metrics"
)

// Metrics holds all the metric collectors for a run.
type Metrics struct {
	registry *prometheus.Registry
	Run      *metrics.RunMetrics
}

// NewMetrics creates a new instance of Metrics on a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	runMetrics, err := metrics.NewRunMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create run metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Run:      runMetrics,
	}, nil
}

// Gatherer exposes the registry for inspection.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes every metric in the text exposition format to path.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return textfileError(err, path)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return textfileError(err, path)
	}
	logger.Global().Module("metrics").Debug("metrics written", logger.String("path", path))
	return nil
}

func textfileError(err error, path string) error {
	return errors.New(fmt.Errorf("write metrics textfile: %w", err)).
		Component("metrics").
		Category(errors.CategoryFileIO).
		Priority(errors.PriorityLow).
		FileContext(path, 0).
		Build()
}
