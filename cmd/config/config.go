package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/esxtool/esxtool/internal/app"
	"github.com/esxtool/esxtool/internal/conf"
	"github.com/esxtool/esxtool/internal/errors"
)

// Command creates the config command group.
func Command(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create esxtool configuration",
	}
	cmd.AddCommand(showCommand(a), initCommand(a))
	return cmd
}

func showCommand(a *app.App) *cobra.Command {
	var savePath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after merging defaults, the config file,
ESXTOOL_* environment variables and flags. With --save the result is written
to a file instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if savePath != "" {
				if err := conf.SaveYAMLConfig(savePath, a.Settings); err != nil {
					return err
				}
				a.Printf("%s\n", savePath)
				return nil
			}
			data, err := yaml.Marshal(a.Settings)
			if err != nil {
				return fmt.Errorf("error marshaling settings to YAML: %w", err)
			}
			_, err = a.Out.Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&savePath, "save", "", "Write the effective configuration to this file")
	return cmd
}

func initCommand(a *app.App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write the commented default configuration",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{app.SkipInitAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "esxtool.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf("%s already exists, use --force to replace it", path).
					Component("config").
					Category(errors.CategoryValidation).
					FileContext(path, 0).
					Build()
			}

			data, err := conf.DefaultConfig()
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return errors.FileError(fmt.Errorf("write config: %w", err), path, 0)
			}
			a.Printf("%s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing file")
	return cmd
}
