// conf/validate.go

package conf

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

var (
	countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)
	tableNamePattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateAnonymizeSettings(&settings.Anonymize); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateReportSettings(&settings.Report); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMappingSettings(&settings.Mapping); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry is enabled but no DSN is configured")
	}

	if settings.Output.Suffix == "" {
		ve.Errors = append(ve.Errors, "output suffix must not be empty")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateAnonymizeSettings(a *AnonymizeSettings) error {
	if len(a.CountryCodes) == 0 {
		return fmt.Errorf("anonymize.country_codes must contain at least one code")
	}
	var bad []string
	for _, cc := range a.CountryCodes {
		if !countryCodePattern.MatchString(cc) {
			bad = append(bad, cc)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("anonymize.country_codes must be two uppercase letters, got %s", strings.Join(bad, ", "))
	}
	return nil
}

func validateReportSettings(r *ReportSettings) error {
	switch r.Format {
	case FormatCSV, FormatXLSX, FormatSQLite:
	default:
		return fmt.Errorf("report.format %q is not one of %s, %s, %s", r.Format, FormatCSV, FormatXLSX, FormatSQLite)
	}
	if !tableNamePattern.MatchString(r.TableName) {
		return fmt.Errorf("report.table_name %q is not a valid SQL identifier", r.TableName)
	}
	if r.SheetName == "" || len(r.SheetName) > 31 {
		return fmt.Errorf("report.sheet_name must be 1-31 characters")
	}
	if r.BatchSize <= 0 {
		return fmt.Errorf("report.batch_size must be positive")
	}
	return nil
}

func validateMappingSettings(m *MappingSettings) error {
	seen := make(map[string]bool, len(m.TagColumns))
	for _, tc := range m.TagColumns {
		if tc.Tag == "" || tc.Column == "" {
			return fmt.Errorf("mapping.tag_columns entries need both tag and column")
		}
		if seen[tc.Tag] {
			return fmt.Errorf("mapping.tag_columns lists tag %q twice", tc.Tag)
		}
		seen[tc.Tag] = true
	}
	return nil
}
