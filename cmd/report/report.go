package report

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/esxtool/esxtool/internal/app"
	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/logger"
	"github.com/esxtool/esxtool/internal/observability/metrics"
	tables "github.com/esxtool/esxtool/internal/report"
)

// Command creates the report command, which flattens every measurement of
// a bundle into one table row.
func Command(a *app.App) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a measurement report as CSV, XLSX or SQLite",
		Long: `Write one row per access point measurement with its access point,
band, PHY flags, channel width, placement and tag values. MAC addresses and
serial numbers can be pseudonymized in the report without touching the bundle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), a, input, output)
		},
	}

	setupFlags(cmd, &input, &output)
	return cmd
}

func setupFlags(cmd *cobra.Command, input, output *string) {
	flags := cmd.Flags()
	flags.StringVarP(input, "input", "i", "", "Path to the .esx survey bundle")
	flags.StringVarP(output, "output", "o", "", "Report path (default <input stem> with the format's extension)")
	flags.StringP("format", "f", "", "Report format: csv, xlsx, sqlite")
	flags.Bool("anonymize-macs", false, "Pseudonymize BSSIDs and MAC-like tag values")
	flags.Bool("anonymize-serials", false, "Pseudonymize serial-like tag values")
	flags.Bool("preserve-oui", false, "Keep the first two octets of pseudonymized MACs")
	flags.Bool("laa-macs", false, "Generate locally administered unicast MACs")
	flags.String("hidden-label", "", "ESSID shown for measurements with an empty SSID")
	_ = cmd.MarkFlagRequired("input")

	app.BindFlag(flags, "format", "report.format")
	app.BindFlag(flags, "anonymize-macs", "anonymize.macs")
	app.BindFlag(flags, "anonymize-serials", "anonymize.serials")
	app.BindFlag(flags, "preserve-oui", "anonymize.preserve_oui")
	app.BindFlag(flags, "laa-macs", "anonymize.laa")
	app.BindFlag(flags, "hidden-label", "report.hidden_label")
}

func run(ctx context.Context, a *app.App, input, output string) error {
	log := a.Logger("report")
	settings := a.Settings

	s, err := a.Open(ctx, input)
	if err != nil {
		return err
	}

	if settings.Anonymize.Enabled() {
		if err := a.Anonymize(ctx, s, settings.Anonymize); err != nil {
			return err
		}
	}

	if output == "" {
		output = app.TablePath(input, "", settings.Report.Format)
	}

	var table *tables.Table
	var issues *errors.Issues
	err = metrics.Track(a.Recorder, metrics.OpReport, func() error {
		var err error
		table, issues, err = tables.Project(ctx, s.Project, s.Index, tables.Options{
			HiddenLabel: settings.Report.HiddenLabel,
		})
		if err != nil {
			return err
		}

		sink, err := tables.NewSink(settings.Report.Format, output, tables.SinkOptions{
			SheetName: settings.Report.SheetName,
			TableName: settings.Report.TableName,
			BatchSize: settings.Report.BatchSize,
		})
		if err != nil {
			return err
		}
		return sink.Write(ctx, table)
	})
	a.ReportIssues(metrics.OpReport, issues)
	if err != nil {
		return err
	}

	if a.Metrics != nil {
		a.Metrics.Run.AddRows(settings.Report.TableName, len(table.Rows))
	}
	log.Info("report written",
		logger.String("path", output),
		logger.String("format", settings.Report.Format),
		logger.Int("rows", len(table.Rows)),
		logger.Int("columns", len(table.Columns)))
	a.Printf("%s\n", output)
	return nil
}
