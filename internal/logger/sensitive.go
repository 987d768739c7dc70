// sensitive.go
package logger

import (
	"regexp"
)

// IdentifierPatterns match hardware identifiers that should not appear in logs
// when redaction is enabled: MAC addresses in colon, hyphen and dotted form,
// and vendor serial numbers.
var IdentifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[0-9A-Fa-f]{2}(:[0-9A-Fa-f]{2}){5}\b`),
	regexp.MustCompile(`\b[0-9A-Fa-f]{2}(-[0-9A-Fa-f]{2}){5}\b`),
	regexp.MustCompile(`\b[0-9A-Fa-f]{4}\.[0-9A-Fa-f]{4}\.[0-9A-Fa-f]{4}\b`),
	regexp.MustCompile(`\b[A-Z]{6}[0-9A-Z]{4}\b`),
}

// RedactIdentifiers replaces MAC addresses and serial numbers with "[REDACTED]"
func RedactIdentifiers(input string) string {
	if input == "" {
		return input
	}

	for _, pattern := range IdentifierPatterns {
		input = pattern.ReplaceAllString(input, "[REDACTED]")
	}
	return input
}
