// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"

	"github.com/esxtool/esxtool/internal/anonymize"
)

// DefaultCountryCodes are the serial number prefixes used when none are configured.
var DefaultCountryCodes = anonymize.DefaultCountryCodes

// DefaultTagColumns maps survey tag names to mapping file columns.
var DefaultTagColumns = []TagColumn{
	{Tag: "AP Group", Column: "group"},
	{Tag: "AP Serial", Column: "serial"},
	{Tag: "Wired MAC", Column: "wired-mac"},
}

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.redact_identifiers", false)
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.console.format", "text")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/esxtool.log")
	v.SetDefault("logging.file_output.level", "debug")

	v.SetDefault("anonymize.macs", false)
	v.SetDefault("anonymize.serials", false)
	v.SetDefault("anonymize.preserve_oui", false)
	v.SetDefault("anonymize.laa", false)
	v.SetDefault("anonymize.country_codes", DefaultCountryCodes)

	v.SetDefault("report.format", FormatCSV)
	v.SetDefault("report.hidden_label", "[Hidden]")
	v.SetDefault("report.sheet_name", "Measurements")
	v.SetDefault("report.table_name", "measurements")
	v.SetDefault("report.batch_size", 500)

	v.SetDefault("mapping.palette", "")
	v.SetDefault("mapping.tag_columns", DefaultTagColumns)

	v.SetDefault("output.suffix", "_modified")
	v.SetDefault("output.overwrite", true)

	v.SetDefault("metrics.textfile_path", "")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
}
