package anonymize

import (
	"encoding/hex"
	"regexp"
	"strings"
)

// MAC address grammars. Only a full-string match is treated as a MAC.
var (
	colonMAC  = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)
	hyphenMAC = regexp.MustCompile(`^([0-9A-Fa-f]{2}-){5}[0-9A-Fa-f]{2}$`)
	dotMAC    = regexp.MustCompile(`^([0-9A-Fa-f]{4}\.){2}[0-9A-Fa-f]{4}$`)
)

// macFormat is the textual style of a MAC address.
type macFormat struct {
	delim byte // ':', '-' or '.'
	upper bool
}

// parseMAC returns the 12 hex digits of s and its textual style.
func parseMAC(s string) (digits string, format macFormat, ok bool) {
	switch {
	case colonMAC.MatchString(s):
		format.delim = ':'
	case hyphenMAC.MatchString(s):
		format.delim = '-'
	case dotMAC.MatchString(s):
		format.delim = '.'
	default:
		return "", macFormat{}, false
	}

	digits = strings.ReplaceAll(s, string(format.delim), "")
	format.upper = strings.ContainsAny(digits, "ABCDEF") && !strings.ContainsAny(digits, "abcdef")
	return digits, format, true
}

// IsMAC reports whether s is a MAC address in colon, hyphen or dotted notation.
func IsMAC(s string) bool {
	_, _, ok := parseMAC(s)
	return ok
}

// recase applies the style's letter case to hex digits.
func (f macFormat) recase(digits string) string {
	if f.upper {
		return strings.ToUpper(digits)
	}
	return strings.ToLower(digits)
}

// join renders 12 hex digits with the style's delimiter.
func (f macFormat) join(digits string) string {
	group := 2
	if f.delim == '.' {
		group = 4
	}

	var b strings.Builder
	b.Grow(len(digits) + len(digits)/group)
	for i := 0; i < len(digits); i += group {
		if i > 0 {
			b.WriteByte(f.delim)
		}
		b.WriteString(digits[i : i+group])
	}
	return b.String()
}

// pseudoMAC renders a pseudonym for the source digits from six random octets.
// With preserveOUI the first two octets are copied verbatim from the source,
// overriding the LAA bits on octet 0.
func pseudoMAC(octets [6]byte, source string, f macFormat, laa, preserveOUI bool) string {
	if laa {
		octets[0] = (octets[0] | 0x02) &^ 0x01
	}
	digits := f.recase(hex.EncodeToString(octets[:]))
	if preserveOUI {
		digits = source[:4] + digits[4:]
	}
	return f.join(digits)
}
