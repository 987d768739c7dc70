package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esxtool/esxtool/internal/archive"
	"github.com/esxtool/esxtool/internal/buildinfo"
	"github.com/esxtool/esxtool/internal/conf"
	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/survey"
	"github.com/esxtool/esxtool/internal/survey/surveytest"
)

// newApp initializes an App from a config file in a temp dir.
func newApp(t *testing.T, config string) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "esxtool.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(config), 0o600))

	a := New(buildinfo.NewContext("1.2.3", "2026-01-01"))
	var out bytes.Buffer
	a.Out = &out
	require.NoError(t, a.Init(viper.New(), cfgPath))
	t.Cleanup(func() { _ = a.Close() })
	return a, dir
}

func writeBundle(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "site.esx")
	require.NoError(t, surveytest.Default().WriteZip(path))
	return path
}

func TestInit(t *testing.T) {
	a, _ := newApp(t, "debug: true\nreport:\n  format: XLSX\n")
	assert.True(t, a.Settings.Debug)
	assert.Equal(t, conf.FormatXLSX, a.Settings.Report.Format)
	assert.Equal(t, "debug", a.Settings.Logging.Console.Level)
	assert.Nil(t, a.Metrics)
}

func TestInitInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "esxtool.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("report:\n  format: pdf\n"), 0o600))

	a := New(nil)
	err := a.Init(viper.New(), cfgPath)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.NoError(t, a.Close())
}

func TestOpenAnonymizeSave(t *testing.T) {
	a, dir := newApp(t, "output:\n  suffix: _anon\n")
	input := writeBundle(t, dir)
	ctx := context.Background()

	s, err := a.Open(ctx, input)
	require.NoError(t, err)
	assert.Len(t, s.Project.AccessPoints, 3)
	assert.Len(t, s.Project.Measurements, 4)

	require.NoError(t, a.Anonymize(ctx, s, conf.AnonymizeSettings{MACs: true, Serials: true}))

	out, err := a.Save(ctx, s, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "site_anon.esx"), out)

	b, err := archive.Open(ctx, out)
	require.NoError(t, err)
	p, err := survey.Load(b)
	require.NoError(t, err)
	for i, m := range p.Measurements {
		assert.Equal(t, s.Project.Measurements[i].MAC, m.MAC)
		assert.NotEqual(t, "AA:BB:CC:DD:EE:01", m.MAC)
	}
	serial, ok := p.AccessPoints[0].TagValue("k2")
	require.True(t, ok)
	assert.NotEqual(t, "CNABCD1234", serial)

	// the source is untouched
	src, err := archive.Open(ctx, input)
	require.NoError(t, err)
	orig, err := survey.Load(src)
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", orig.Measurements[0].MAC)
}

func TestSaveRefusesOverwrite(t *testing.T) {
	a, dir := newApp(t, "output:\n  overwrite: false\n")
	input := writeBundle(t, dir)
	ctx := context.Background()

	s, err := a.Open(ctx, input)
	require.NoError(t, err)

	_, err = a.Save(ctx, s, input)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	out, err := a.Save(ctx, s, filepath.Join(dir, "copy.esx"))
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestOpenMissingFile(t *testing.T) {
	a, dir := newApp(t, "")
	_, err := a.Open(context.Background(), filepath.Join(dir, "absent.esx"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "metrics", "esxtool.prom")
	cfgPath := filepath.Join(dir, "esxtool.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("metrics:\n  textfile_path: "+metricsPath+"\n"), 0o600))

	a := New(nil)
	require.NoError(t, a.Init(viper.New(), cfgPath))
	require.NotNil(t, a.Metrics)

	input := writeBundle(t, dir)
	s, err := a.Open(context.Background(), input)
	require.NoError(t, err)
	require.NoError(t, a.Anonymize(context.Background(), s, conf.AnonymizeSettings{MACs: true}))

	issues := &errors.Issues{}
	issues.Add(errors.Newf("width").Category(errors.CategoryChannelWidth).Build())
	a.ReportIssues("report", issues)
	a.ReportIssues("report", nil)

	require.NoError(t, a.Close())

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `esxtool_operations_total{operation="load",status="success"} 1`)
	assert.Contains(t, text, `esxtool_bundle_records{document="accessPointMeasurements.json"} 4`)
	assert.Contains(t, text, `esxtool_pseudonyms_total{kind="mac"} 5`)
	assert.Contains(t, text, `esxtool_issues_total{category="channel-width"} 1`)
	assert.Contains(t, text, "esxtool_last_run_timestamp_seconds")
}

func TestTablePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("surveys", "site.csv"), TablePath(filepath.Join("surveys", "site.esx"), "", "csv"))
	assert.Equal(t, "site_deploy.xlsx", TablePath("site.esx", "_deploy", "xlsx"))
	assert.Equal(t, "site.db", TablePath("site", "", "sqlite"))
}
