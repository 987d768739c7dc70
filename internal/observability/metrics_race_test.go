package observability

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/observability/metrics"
)

// TestNewMetricsConcurrency verifies that NewMetrics can be called concurrently
// without causing race conditions
func TestNewMetricsConcurrency(t *testing.T) {
	const numGoroutines = 50

	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			if !assert.NoError(t, err) {
				return
			}
			assert.NotNil(t, m.registry)
			assert.NotNil(t, m.Run)
			m.Run.RecordOperation(metrics.OpLoad, metrics.StatusSuccess)
		})
	}
	wg.Wait()
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Run.RecordOperation(metrics.OpReport, metrics.StatusSuccess)
	m.Run.AddRows("measurements", 12)

	path := filepath.Join(t.TempDir(), "textfile", "esxtool.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `esxtool_operations_total{operation="report",status="success"} 1`)
	assert.Contains(t, string(data), `esxtool_rows_written_total{table="measurements"} 12`)

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestWriteTextfileError(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	err = m.WriteTextfile(filepath.Join(blocker, "esxtool.prom"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}
