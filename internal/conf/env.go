// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicitly validated environment variables.
// Any other key is still reachable through ESXTOOL_<KEY> via AutomaticEnv.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "ESXTOOL_DEBUG", validateEnvBool},
		{"logging.default_level", "ESXTOOL_LOG_LEVEL", validateEnvLogLevel},
		{"logging.console.format", "ESXTOOL_LOG_FORMAT", validateEnvLogFormat},

		{"anonymize.macs", "ESXTOOL_ANONYMIZE_MACS", validateEnvBool},
		{"anonymize.serials", "ESXTOOL_ANONYMIZE_SERIALS", validateEnvBool},
		{"anonymize.preserve_oui", "ESXTOOL_PRESERVE_OUI", validateEnvBool},
		{"anonymize.laa", "ESXTOOL_LAA", validateEnvBool},

		{"report.format", "ESXTOOL_REPORT_FORMAT", validateEnvReportFormat},
		{"mapping.palette", "ESXTOOL_PALETTE", nil},
		{"metrics.textfile_path", "ESXTOOL_METRICS_FILE", nil},
		{"sentry.dsn", "ESXTOOL_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

var logLevelPattern = regexp.MustCompile(`(?i)^(trace|debug|info|warn|warning|error)$`)

func validateEnvLogLevel(value string) error {
	if !logLevelPattern.MatchString(value) {
		return fmt.Errorf("log level must be one of trace, debug, info, warn, error")
	}
	return nil
}

func validateEnvLogFormat(value string) error {
	switch strings.ToLower(value) {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("log format must be text or json")
}

func validateEnvReportFormat(value string) error {
	switch strings.ToLower(value) {
	case FormatCSV, FormatXLSX, FormatSQLite:
		return nil
	}
	return fmt.Errorf("report format must be %s, %s or %s", FormatCSV, FormatXLSX, FormatSQLite)
}
