package deploy

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/esxtool/esxtool/internal/app"
	plan "github.com/esxtool/esxtool/internal/deploy"
	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/logger"
	"github.com/esxtool/esxtool/internal/observability/metrics"
	tables "github.com/esxtool/esxtool/internal/report"
)

// Deployment tables get their own sheet and table names so they can sit
// next to a measurement report.
const (
	sheetName  = "Deployment"
	tableName  = "deployment"
	fileSuffix = "_deploy"
)

// Command creates the deploy command.
func Command(a *app.App) *cobra.Command {
	var input, output, format string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Write the planned access point deployment table",
		Long: `Write one row per planned access point with its placement, tags,
up to three Wi-Fi radios and its Bluetooth radio. Requires simulated radios
in the bundle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), a, input, output, format)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Path to the .esx survey bundle")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Table path (default <input stem>_deploy with the format's extension)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Table format: csv, xlsx, sqlite (default report.format)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func run(ctx context.Context, a *app.App, input, output, format string) error {
	log := a.Logger("deploy")
	if format == "" {
		format = a.Settings.Report.Format
	}
	if output == "" {
		output = app.TablePath(input, fileSuffix, format)
	}

	s, err := a.Open(ctx, input)
	if err != nil {
		return err
	}

	var table *tables.Table
	var issues *errors.Issues
	err = metrics.Track(a.Recorder, metrics.OpDeploy, func() error {
		var err error
		table, issues, err = plan.Project(ctx, s.Project, s.Index)
		if err != nil {
			return err
		}
		sink, err := tables.NewSink(format, output, tables.SinkOptions{
			SheetName: sheetName,
			TableName: tableName,
			BatchSize: a.Settings.Report.BatchSize,
		})
		if err != nil {
			return err
		}
		return sink.Write(ctx, table)
	})
	a.ReportIssues(metrics.OpDeploy, issues)
	if err != nil {
		return err
	}

	if a.Metrics != nil {
		a.Metrics.Run.AddRows(tableName, len(table.Rows))
	}
	log.Info("deployment table written",
		logger.String("path", output),
		logger.String("format", format),
		logger.Int("access_points", len(table.Rows)))
	a.Printf("%s\n", output)
	return nil
}
