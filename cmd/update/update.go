package update

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/esxtool/esxtool/internal/app"
	"github.com/esxtool/esxtool/internal/conf"
	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/logger"
	"github.com/esxtool/esxtool/internal/mapping"
	"github.com/esxtool/esxtool/internal/observability/metrics"
	"github.com/esxtool/esxtool/internal/palette"
)

// Command creates the update command, which applies a BSSID mapping file
// to the access points of a bundle.
func Command(a *app.App) *cobra.Command {
	var input, output, mappingFile string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update access points from a BSSID mapping CSV",
		Long: `Match measured BSSIDs against a mapping CSV with the columns
bss, ess, ap_name, group, model, serial, wired-mac and color. Matched access
points are renamed, recolored, retagged and marked as mine; their
measurements take the mapped SSID. Unmatched access points are marked as not
mine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), a, input, output, mappingFile)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&input, "input", "i", "", "Path to the .esx survey bundle")
	flags.StringVarP(&output, "output", "o", "", "Output bundle (default <input stem>_modified.esx)")
	flags.StringVarP(&mappingFile, "mapping", "m", "", "Path to the BSSID mapping CSV")
	flags.String("palette", "", "YAML palette file merged over the built-in color schemes")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("mapping")

	app.BindFlag(flags, "palette", "mapping.palette")

	return cmd
}

func run(ctx context.Context, a *app.App, input, output, mappingFile string) error {
	log := a.Logger("update")
	settings := a.Settings.Mapping

	pal := palette.Default()
	if settings.Palette != "" {
		var err error
		if pal, err = palette.Load(settings.Palette); err != nil {
			return err
		}
	}

	tagColumns := tagColumnsFrom(settings.TagColumns)
	issues := &errors.Issues{}
	defer a.ReportIssues(metrics.OpMapping, issues)

	m, readIssues, err := mapping.ReadFile(mappingFile, mapping.Columns(tagColumns)...)
	issues.Merge(readIssues)
	if err != nil {
		return err
	}

	s, err := a.Open(ctx, input)
	if err != nil {
		return err
	}

	var result *mapping.Result
	err = metrics.Track(a.Recorder, metrics.OpMapping, func() error {
		var err error
		result, err = mapping.Apply(ctx, s.Project, s.Index, m, pal, tagColumns)
		return err
	})
	if err != nil {
		return err
	}
	issues.Merge(result.Issues)

	written, err := a.Save(ctx, s, output)
	if err != nil {
		return err
	}

	log.Info("mapping applied",
		logger.String("mapping", mappingFile),
		logger.Int("rows", m.Len()),
		logger.Int("matched", result.Matched),
		logger.Int("unmatched", result.Unmatched),
		logger.Int("measurements", result.MeasurementsUpdated))
	a.Printf("%s\n", written)
	return nil
}

func tagColumnsFrom(configured []conf.TagColumn) []mapping.TagColumn {
	if len(configured) == 0 {
		return mapping.DefaultTagColumns
	}
	out := make([]mapping.TagColumn, len(configured))
	for i, tc := range configured {
		out[i] = mapping.TagColumn{Tag: tc.Tag, Column: tc.Column}
	}
	return out
}
