// Package buildinfo contains build-time metadata separate from user configuration
package buildinfo

import "fmt"

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Values injected with -ldflags "-X".
var (
	version   = "dev"
	buildDate = UnknownValue
)

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	version   string
	buildDate string
}

// NewContext creates a Context; empty values are reported as UnknownValue.
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Default returns the metadata linked into the binary.
func Default() *Context {
	return NewContext(version, buildDate)
}

// Version returns the build version string.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build date string.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// Release is the release name reported to error telemetry.
func (c *Context) Release() string {
	return "esxtool@" + c.Version()
}

func (c *Context) String() string {
	return fmt.Sprintf("esxtool %s (built %s)", c.Version(), c.BuildDate())
}
