package tags

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/esxtool/esxtool/internal/app"
	"github.com/esxtool/esxtool/internal/logger"
	"github.com/esxtool/esxtool/internal/observability/metrics"
	"github.com/esxtool/esxtool/internal/survey"
)

// Command creates the tags command group.
func Command(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage access point tag keys",
	}
	cmd.AddCommand(addCommand(a))
	return cmd
}

func addCommand(a *app.App) *cobra.Command {
	var input, output string
	var names []string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Define new tag keys in a bundle",
		Long: `Add a tag key for every name not already defined. Keys get fresh ids
and the tag key document is created when the bundle has none.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd.Context(), a, input, output, names)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Path to the .esx survey bundle")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output bundle (default <input stem>_modified.esx)")
	cmd.Flags().StringArrayVarP(&names, "tag", "t", nil, "Tag key name, repeatable")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("tag")

	return cmd
}

func runAdd(ctx context.Context, a *app.App, input, output string, names []string) error {
	log := a.Logger("tags")

	s, err := a.Open(ctx, input)
	if err != nil {
		return err
	}

	var added []survey.TagKey
	_ = metrics.Track(a.Recorder, metrics.OpTagKeys, func() error {
		added = s.Project.AddTagKeys(names...)
		return nil
	})
	if len(added) == 0 {
		log.Info("all tag keys already defined", logger.Strings("tags", names))
	}

	written, err := a.Save(ctx, s, output)
	if err != nil {
		return err
	}

	for _, k := range added {
		log.Info("tag key added", logger.String("key", k.Key), logger.String("id", k.ID))
		a.Printf("%s\t%s\n", k.ID, k.Key)
	}
	a.Printf("%s\n", written)
	return nil
}
