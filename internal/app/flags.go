package app

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SkipInitAnnotation marks commands that run without loading settings.
const SkipInitAnnotation = "esxtool_skip_init"

// configKeyAnnotation marks a flag with the settings keys it overrides.
const configKeyAnnotation = "esxtool_config_keys"

// BindFlag records that the flag name overrides the given settings keys.
// The binding only takes effect for the command that is actually run, so
// several commands may expose flags for the same key.
func BindFlag(flags *pflag.FlagSet, name string, keys ...string) {
	if err := flags.SetAnnotation(name, configKeyAnnotation, keys); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", name, err))
	}
}

// BindFlags binds every annotated flag of flags into v.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		for _, key := range f.Annotations[configKeyAnnotation] {
			if err := v.BindPFlag(key, f); err != nil {
				bindErr = fmt.Errorf("error binding flag %s: %w", f.Name, err)
				return
			}
		}
	})
	return bindErr
}
