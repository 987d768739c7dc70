// Package app holds the runtime shared by every esxtool command: settings,
// logging, telemetry, metrics and the load/save pipeline around a bundle.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/esxtool/esxtool/internal/anonymize"
	"github.com/esxtool/esxtool/internal/archive"
	"github.com/esxtool/esxtool/internal/buildinfo"
	"github.com/esxtool/esxtool/internal/conf"
	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/index"
	"github.com/esxtool/esxtool/internal/logger"
	"github.com/esxtool/esxtool/internal/observability"
	"github.com/esxtool/esxtool/internal/observability/metrics"
	"github.com/esxtool/esxtool/internal/report"
	"github.com/esxtool/esxtool/internal/survey"
	"github.com/esxtool/esxtool/internal/telemetry"
)

const component = "app"

// App is the per-process command runtime.
type App struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Recorder metrics.Recorder
	Metrics  *observability.Metrics // nil unless a textfile path is configured
	Out      io.Writer

	log         logger.Logger
	central     *logger.CentralLogger
	flushSentry func()
}

// New returns an App with default settings that writes results to stdout.
// Init must be called before running a pipeline.
func New(build *buildinfo.Context) *App {
	if build == nil {
		build = buildinfo.Default()
	}
	return &App{
		Build:       build,
		Recorder:    metrics.NoOpRecorder{},
		Out:         os.Stdout,
		log:         logger.Global().Module(component),
		flushSentry: func() {},
	}
}

// Init loads settings from v and configFile, then sets up logging,
// telemetry and, when configured, run metrics.
func (a *App) Init(v *viper.Viper, configFile string) error {
	settings, err := conf.Load(v, configFile)
	if err != nil {
		return err
	}
	a.Settings = settings

	if settings.Debug && settings.Logging.Console != nil {
		settings.Logging.Console.Level = string(logger.LogLevelDebug)
	}
	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logger").
			Build()
	}
	logger.SetGlobal(central)
	a.central = central
	a.log = central.Module(component)

	flush, err := telemetry.Init(settings.Sentry, a.Build)
	if err != nil {
		a.log.Warn("error reporting disabled", logger.Error(err))
	}
	a.flushSentry = flush

	if settings.Metrics.TextfilePath != "" {
		m, err := observability.NewMetrics()
		if err != nil {
			return errors.New(err).
				Component(component).
				Category(errors.CategoryConfiguration).
				Context("operation", "init_metrics").
				Build()
		}
		a.Metrics = m
		a.Recorder = m.Run
	}

	a.log.Debug("runtime initialized",
		logger.String("version", a.Build.Version()),
		logger.Bool("metrics", a.Metrics != nil),
		logger.Bool("sentry", settings.Sentry.Enabled))
	return nil
}

// Close writes the metrics textfile, flushes telemetry and closes the log
// file. It is safe to call on an App whose Init failed.
func (a *App) Close() error {
	var errs []error
	if a.Metrics != nil && a.Settings != nil {
		a.Metrics.Run.MarkFinished()
		if err := a.Metrics.WriteTextfile(a.Settings.Metrics.TextfilePath); err != nil {
			errs = append(errs, err)
		}
	}
	if a.flushSentry != nil {
		a.flushSentry()
	}
	if a.central != nil {
		if err := a.central.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logger returns a logger for a command module.
func (a *App) Logger(module string) logger.Logger {
	return logger.Global().Module(module)
}

// Session is a loaded bundle with its decoded project and index.
type Session struct {
	Bundle  *archive.Bundle
	Project *survey.Project
	Index   *index.Index
}

// Open reads the bundle at path, decodes its documents and builds the index.
func (a *App) Open(ctx context.Context, path string) (*Session, error) {
	s := &Session{}
	err := metrics.Track(a.Recorder, metrics.OpLoad, func() error {
		b, err := archive.Open(ctx, path)
		if err != nil {
			return err
		}
		p, err := survey.Load(b)
		if err != nil {
			return err
		}
		s.Bundle, s.Project = b, p
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = metrics.Track(a.Recorder, metrics.OpIndex, func() error {
		s.Index = index.Build(s.Project)
		return nil
	})

	if a.Metrics != nil {
		a.Metrics.Run.SetRecordCounts(s.Project.Counts())
		a.Metrics.Run.SetBundleSize(s.Bundle.Size())
	}
	if v := s.Index.Violations(); len(v) > 0 {
		a.log.Warn("bundle has dangling references",
			logger.String("path", path),
			logger.Int("violations", len(v)))
	}
	a.log.Info("bundle opened",
		logger.String("path", path),
		logger.Int("access_points", len(s.Project.AccessPoints)),
		logger.Int("measurements", len(s.Project.Measurements)))
	return s, nil
}

// Anonymize pseudonymizes the session's project in place.
func (a *App) Anonymize(ctx context.Context, s *Session, opts conf.AnonymizeSettings) error {
	engine, err := anonymize.New(anonymize.Options{
		MACs:         opts.MACs,
		Serials:      opts.Serials,
		LAA:          opts.LAA,
		PreserveOUI:  opts.PreserveOUI,
		CountryCodes: opts.CountryCodes,
	})
	if err != nil {
		return err
	}

	var issues *errors.Issues
	err = metrics.Track(a.Recorder, metrics.OpAnonymize, func() error {
		var err error
		issues, err = engine.ApplyToProject(ctx, s.Project)
		return err
	})
	if err != nil {
		return err
	}

	stats := engine.Stats()
	if a.Metrics != nil {
		a.Metrics.Run.AddPseudonyms(metrics.KindMAC, stats.MACs)
		a.Metrics.Run.AddPseudonyms(metrics.KindSerial, stats.Serials)
		a.Metrics.Run.AddRewrites(stats.Rewrites)
	}
	a.ReportIssues(metrics.OpAnonymize, issues)
	a.log.Info("bundle anonymized",
		logger.Int64("macs", stats.MACs),
		logger.Int64("serials", stats.Serials),
		logger.Int64("rewrites", stats.Rewrites))
	return nil
}

// Save writes the session's modified documents into a copy of its bundle
// at output, or at the default output path next to the input when output
// is empty. It returns the path written.
func (a *App) Save(ctx context.Context, s *Session, output string) (string, error) {
	if output == "" {
		output = archive.DefaultOutputPath(s.Bundle.Path, a.Settings.Output.Suffix)
	}
	if !a.Settings.Output.Overwrite {
		if _, err := os.Stat(output); err == nil {
			return "", errors.Newf("output %s already exists", output).
				Component(component).
				Category(errors.CategoryValidation).
				FileContext(output, 0).
				Build()
		}
	}

	err := metrics.Track(a.Recorder, metrics.OpWrite, func() error {
		replacements, err := s.Project.EncodeModified()
		if err != nil {
			return err
		}
		return archive.WriteBundle(ctx, s.Bundle, output, replacements)
	})
	if err != nil {
		return "", err
	}

	a.log.Info("bundle written",
		logger.String("path", output),
		logger.Strings("modified", s.Project.Modified()))
	return output, nil
}

// ReportIssues logs a summary of non-fatal issues and counts them.
func (a *App) ReportIssues(operation string, issues *errors.Issues) {
	if issues == nil || issues.Len() == 0 {
		return
	}
	if a.Metrics != nil {
		a.Metrics.Run.ObserveIssues(issues)
	}

	fields := []logger.Field{
		logger.String("operation", operation),
		logger.Int("issues", issues.Len()),
	}
	for category, n := range issues.Summary() {
		fields = append(fields, logger.Int(string(category), n))
	}
	a.log.Warn("records flagged", fields...)
	for _, issue := range issues.All() {
		a.log.Debug(issue.Error(), logger.String("category", string(issue.Category)))
	}
}

// Printf writes formatted command output.
func (a *App) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.Out, format, args...)
}

// TablePath returns "<input stem><suffix><ext>" for a tabular output in format.
func TablePath(input, suffix, format string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix + report.Extension(format)
}
