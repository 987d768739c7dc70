package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/esxtool/esxtool/cmd/anonymize"
	"github.com/esxtool/esxtool/cmd/config"
	"github.com/esxtool/esxtool/cmd/deploy"
	"github.com/esxtool/esxtool/cmd/inspect"
	"github.com/esxtool/esxtool/cmd/report"
	"github.com/esxtool/esxtool/cmd/tags"
	"github.com/esxtool/esxtool/cmd/update"
	"github.com/esxtool/esxtool/internal/app"
	"github.com/esxtool/esxtool/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(a *app.App) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "esxtool",
		Short:        "Ekahau survey bundle toolkit",
		Long:         "Report on, anonymize and update Ekahau .esx survey bundles.",
		SilenceUsage: true,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, &configFile)

	subcommands := []*cobra.Command{
		report.Command(a),
		anonymize.Command(a),
		update.Command(a),
		tags.Command(a),
		deploy.Command(a),
		inspect.Command(a),
		config.Command(a),
		versionCommand(a),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		a.Out = cmd.OutOrStdout()
		if cmd.Annotations[app.SkipInitAnnotation] == "true" {
			return nil
		}

		v := viper.New()
		// flags of the command being run take precedence over file and environment
		if err := app.BindFlags(v, cmd.Flags()); err != nil {
			return err
		}
		if err := a.Init(v, configFile); err != nil {
			return err
		}

		cmd.SetContext(logger.WithRunID(cmd.Context(), uuid.NewString()))
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to esxtool.yaml (default ./esxtool.yaml or ~/.config/esxtool/esxtool.yaml)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.String("log-format", "", "Console log format: text, json")
	flags.String("metrics-file", "", "Write Prometheus metrics of the run to this textfile")

	app.BindFlag(flags, "debug", "debug")
	app.BindFlag(flags, "log-level", "logging.default_level", "logging.console.level")
	app.BindFlag(flags, "log-format", "logging.console.format")
	app.BindFlag(flags, "metrics-file", "metrics.textfile_path")
}

func versionCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the esxtool version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{app.SkipInitAnnotation: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), a.Build.String())
		},
	}
}
