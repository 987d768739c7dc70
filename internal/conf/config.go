// config.go: configuration settings for esxtool
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// EnvPrefix is the prefix of every environment variable read by esxtool.
const EnvPrefix = "ESXTOOL"

// Report output formats
const (
	FormatCSV    = "csv"
	FormatXLSX   = "xlsx"
	FormatSQLite = "sqlite"
)

// Settings contains all configuration options for esxtool.
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Logging   logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Anonymize AnonymizeSettings    `yaml:"anonymize" mapstructure:"anonymize"`
	Report    ReportSettings       `yaml:"report" mapstructure:"report"`
	Mapping   MappingSettings      `yaml:"mapping" mapstructure:"mapping"`
	Output    OutputSettings       `yaml:"output" mapstructure:"output"`
	Metrics   MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`
	Sentry    SentrySettings       `yaml:"sentry" mapstructure:"sentry"`
}

// AnonymizeSettings controls MAC address and serial number pseudonymization.
type AnonymizeSettings struct {
	MACs         bool     `yaml:"macs" mapstructure:"macs"`                   // pseudonymize BSSIDs and MAC-like tag values
	Serials      bool     `yaml:"serials" mapstructure:"serials"`             // pseudonymize serial-like tag values
	PreserveOUI  bool     `yaml:"preserve_oui" mapstructure:"preserve_oui"`   // keep the first two source octets
	LAA          bool     `yaml:"laa" mapstructure:"laa"`                     // force locally administered unicast octet 0
	CountryCodes []string `yaml:"country_codes" mapstructure:"country_codes"` // serial prefixes to draw from
}

// Enabled reports whether any pseudonymization is requested.
func (a AnonymizeSettings) Enabled() bool {
	return a.MACs || a.Serials
}

// ReportSettings controls the flattened measurement report.
type ReportSettings struct {
	Format      string `yaml:"format" mapstructure:"format"`             // csv, xlsx or sqlite
	HiddenLabel string `yaml:"hidden_label" mapstructure:"hidden_label"` // essid shown for empty SSIDs
	SheetName   string `yaml:"sheet_name" mapstructure:"sheet_name"`     // XLSX worksheet name
	TableName   string `yaml:"table_name" mapstructure:"table_name"`     // SQLite table name
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`     // SQLite insert batch size
}

// TagColumn pairs a survey tag name with a mapping file column.
type TagColumn struct {
	Tag    string `yaml:"tag" mapstructure:"tag"`
	Column string `yaml:"column" mapstructure:"column"`
}

// MappingSettings controls the mapping file update.
type MappingSettings struct {
	Palette    string      `yaml:"palette" mapstructure:"palette"`         // optional YAML palette file
	TagColumns []TagColumn `yaml:"tag_columns" mapstructure:"tag_columns"` // tags refreshed from mapping columns
}

// OutputSettings controls where rewritten bundles go.
type OutputSettings struct {
	Suffix    string `yaml:"suffix" mapstructure:"suffix"`       // appended to the input stem
	Overwrite bool   `yaml:"overwrite" mapstructure:"overwrite"` // allow replacing an existing output file
}

// MetricsSettings controls the per-run metrics dump.
type MetricsSettings struct {
	TextfilePath string `yaml:"textfile_path" mapstructure:"textfile_path"` // node exporter textfile, empty disables
}

// SentrySettings controls optional error telemetry.
type SentrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// Load reads configuration into v from configFile (or the default search
// paths when empty), environment variables and defaults, then validates it.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if err := initViper(v, configFile); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_viper").
			Build()
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	normalizeSettings(settings)

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	return settings, nil
}

// initViper sets defaults and env bindings, then reads the config file if one exists.
func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvVars(v); err != nil {
		return err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	v.SetConfigName("esxtool")
	v.SetConfigType("yaml")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Defaults and environment are enough to run
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// normalizeSettings canonicalizes case-insensitive values
func normalizeSettings(s *Settings) {
	s.Report.Format = strings.ToLower(strings.TrimSpace(s.Report.Format))
	for i, cc := range s.Anonymize.CountryCodes {
		s.Anonymize.CountryCodes[i] = strings.ToUpper(strings.TrimSpace(cc))
	}
	if s.Debug && s.Logging.DefaultLevel != string(logger.LogLevelTrace) {
		s.Logging.DefaultLevel = string(logger.LogLevelDebug)
	}
}

// GetDefaultConfigPaths returns the directories searched for esxtool.yaml.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	if runtime.GOOS == "windows" {
		return []string{".", filepath.Join(homeDir, "AppData", "Roaming", "esxtool")}, nil
	}
	return []string{".", filepath.Join(homeDir, ".config", "esxtool")}, nil
}

// DefaultConfig returns the embedded, commented sample configuration.
func DefaultConfig() ([]byte, error) {
	return fs.ReadFile(configFiles, "config.yaml")
}

// SaveYAMLConfig writes settings to configPath through a temporary file and rename.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return writeFileAtomic(configPath, yamlData)
}

func writeFileAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), "esxtool-*.yaml")
	if err != nil {
		return errors.FileError(fmt.Errorf("error creating temporary file: %w", err), path, 0)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return errors.FileError(fmt.Errorf("error writing to temporary file: %w", err), path, 0)
	}
	if err := tempFile.Close(); err != nil {
		return errors.FileError(fmt.Errorf("error closing temporary file: %w", err), path, 0)
	}

	if err := os.Rename(tempFileName, path); err != nil {
		return errors.FileError(fmt.Errorf("error replacing %s: %w", path, err), path, 0)
	}
	return nil
}
