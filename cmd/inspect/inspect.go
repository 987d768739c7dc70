package inspect

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/esxtool/esxtool/internal/app"
	"github.com/esxtool/esxtool/internal/channel"
	"github.com/esxtool/esxtool/internal/survey"
)

// Command creates the inspect command.
func Command(a *app.App) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize the contents of a bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.Open(cmd.Context(), input)
			if err != nil {
				return err
			}
			return Write(cmd.Context(), a.Out, s)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Path to the .esx survey bundle")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// bandWidth groups measurements for the channel summary.
type bandWidth struct {
	band  string
	width string
}

// Write prints a summary of the session: archive entries, record counts per
// document, tag keys, dangling references and measurements per band and
// channel width.
func Write(ctx context.Context, out io.Writer, s *app.Session) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	p := s.Project

	fmt.Fprintf(tw, "Bundle:\t%s\n", s.Bundle.Path)
	fmt.Fprintf(tw, "Entries:\t%d\n", len(s.Bundle.Names()))
	fmt.Fprintf(tw, "Size:\t%d bytes\n", s.Bundle.Size())
	if p.Meta != nil && p.Meta.Name != "" {
		fmt.Fprintf(tw, "Project:\t%s\n", p.Meta.Name)
	}

	fmt.Fprintf(tw, "\nDOCUMENT\tRECORDS\n")
	counts := p.Counts()
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(tw, "%s\t%d\n", name, counts[name])
	}
	var missing []string
	for _, name := range survey.OptionalDocuments {
		if !p.Features.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(tw, "absent\t%s\n", strings.Join(missing, ", "))
	}

	if keys := s.Index.TagKeys(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.Key
		}
		fmt.Fprintf(tw, "\nTag keys:\t%s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(tw, "Dangling references:\t%d\n", len(s.Index.Violations()))

	widths := make(map[bandWidth]int)
	for i := range p.Measurements {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		ch := p.Measurements[i].Channel
		d := channel.Decode(ch)
		key := bandWidth{band: d.Band, width: d.WidthString()}
		if len(ch) > 0 && !d.Recognized() {
			key.width = "unrecognized"
		}
		widths[key]++
	}
	if len(widths) > 0 {
		fmt.Fprintf(tw, "\nBAND\tWIDTH\tMEASUREMENTS\n")
		keys := slices.SortedFunc(maps.Keys(widths), func(a, b bandWidth) int {
			return cmp.Or(cmp.Compare(a.band, b.band), cmp.Compare(a.width, b.width))
		})
		for _, k := range keys {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", cmp.Or(k.band, "-"), cmp.Or(k.width, "-"), widths[k])
		}
	}

	return tw.Flush()
}
