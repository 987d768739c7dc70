package anonymize

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/esxtool/esxtool/internal/app"
)

// Command creates the anonymize command.
func Command(a *app.App) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "anonymize",
		Short: "Write a copy of a bundle with pseudonymized MACs and serials",
		Long: `Replace every BSSID and MAC-like or serial-like tag value with a
pseudonym. Equal source values get equal pseudonyms across the whole bundle.
Without --macs or --serials both kinds are replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), a, input, output)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&input, "input", "i", "", "Path to the .esx survey bundle")
	flags.StringVarP(&output, "output", "o", "", "Output bundle (default <input stem>_modified.esx)")
	flags.Bool("macs", false, "Pseudonymize BSSIDs and MAC-like tag values")
	flags.Bool("serials", false, "Pseudonymize serial-like tag values")
	flags.Bool("preserve-oui", false, "Keep the first two octets of pseudonymized MACs")
	flags.Bool("laa", false, "Generate locally administered unicast MACs")
	_ = cmd.MarkFlagRequired("input")

	app.BindFlag(flags, "macs", "anonymize.macs")
	app.BindFlag(flags, "serials", "anonymize.serials")
	app.BindFlag(flags, "preserve-oui", "anonymize.preserve_oui")
	app.BindFlag(flags, "laa", "anonymize.laa")

	return cmd
}

func run(ctx context.Context, a *app.App, input, output string) error {
	opts := a.Settings.Anonymize
	if !opts.Enabled() {
		opts.MACs, opts.Serials = true, true
	}

	s, err := a.Open(ctx, input)
	if err != nil {
		return err
	}
	if err := a.Anonymize(ctx, s, opts); err != nil {
		return err
	}

	written, err := a.Save(ctx, s, output)
	if err != nil {
		return err
	}
	a.Printf("%s\n", written)
	return nil
}
