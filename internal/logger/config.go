package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel      string            `yaml:"default_level" mapstructure:"default_level"`           // default log level for all modules
	Timezone          string            `yaml:"timezone" mapstructure:"timezone"`                     // "Local", "UTC", or IANA name
	RedactIdentifiers bool              `yaml:"redact_identifiers" mapstructure:"redact_identifiers"` // mask MACs and serials in log values
	Console           *ConsoleOutput    `yaml:"console" mapstructure:"console"`                       // console output configuration
	FileOutput        *FileOutput       `yaml:"file_output" mapstructure:"file_output"`               // file output configuration
	ModuleLevels      map[string]string `yaml:"module_levels" mapstructure:"module_levels"`           // per-module log levels
}

// ConsoleOutput represents console logging configuration.
// Console output goes to stderr so that stdout stays free for report data.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" mapstructure:"level"`
	Format  string `yaml:"format" mapstructure:"format"` // text or json
}

// FileOutput represents file logging configuration. File output is always JSON.
type FileOutput struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
	Level   string `yaml:"level" mapstructure:"level"`
}

// Default values for logging configuration.
const (
	DefaultLogLevel       = "info"
	DefaultLogPath        = "logs/esxtool.log"
	DefaultConsoleFormat  = "text"
	DefaultConsoleEnabled = true
	DefaultFileEnabled    = false
)

// applyConfigDefaults fills nil sections so a zero config still logs to the console.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}

	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}

	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{
			Enabled: DefaultConsoleEnabled,
			Level:   cfg.DefaultLevel,
			Format:  DefaultConsoleFormat,
		}
	}
	if cfg.Console.Format == "" {
		cfg.Console.Format = DefaultConsoleFormat
	}
	if cfg.Console.Level == "" {
		cfg.Console.Level = cfg.DefaultLevel
	}

	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{
			Enabled: DefaultFileEnabled,
			Path:    DefaultLogPath,
			Level:   cfg.DefaultLevel,
		}
	}
	if cfg.FileOutput.Level == "" {
		cfg.FileOutput.Level = cfg.DefaultLevel
	}

	if cfg.ModuleLevels == nil {
		cfg.ModuleLevels = make(map[string]string)
	}
}
