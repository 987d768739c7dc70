// Package palette resolves "Scheme/Color" references to hex color values.
package palette

import (
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/esxtool/esxtool/internal/errors"
)

// Outcome says what a caller should do with an access point color.
type Outcome int

const (
	// Keep leaves the current color alone: no scheme given, or the color is
	// not part of a known scheme.
	Keep Outcome = iota
	// Set replaces the color with the resolved value.
	Set
	// Remove drops the color: the scheme is unknown.
	Remove
)

func (o Outcome) String() string {
	switch o {
	case Set:
		return "set"
	case Remove:
		return "remove"
	}
	return "keep"
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Palette is a set of named color schemes. It is read-only after construction.
type Palette struct {
	schemes map[string]map[string]string
}

// Default returns the built-in Ekahau and Aruba schemes.
func Default() *Palette {
	return &Palette{schemes: map[string]map[string]string{
		"Ekahau": {
			"Yellow": "#FFE600",
			"Orange": "#FF8500",
			"Red":    "#FF0000",
			"Pink":   "#FF00FF",
			"Violet": "#C297FF",
			"Blue":   "#0068FF",
			"Gray":   "#6D6D6D",
		},
		"Aruba": {
			"Orange":       "#FF8300",
			"White":        "#FFFFFF",
			"Gray":         "#646569",
			"Dark Blue":    "#0F3250",
			"Blood Orange": "#FF5F4B",
			"Light Blue":   "#ADE1F0",
		},
	}}
}

// file is the YAML layout of a palette file.
type file struct {
	Schemes map[string]map[string]string `yaml:"schemes"`
}

// Load reads a YAML palette file and merges it over the built-in schemes.
// Colors of a scheme that already exists are added or overridden individually.
func Load(path string) (*Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("read palette: %w", err)).
			Component("palette").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	return Parse(data)
}

// Parse merges YAML palette data over the built-in schemes.
func Parse(data []byte) (*Palette, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, paletteError(fmt.Errorf("parse palette: %w", err))
	}

	p := Default()
	for scheme, colors := range f.Schemes {
		if strings.Contains(scheme, "/") || strings.TrimSpace(scheme) == "" {
			return nil, paletteError(fmt.Errorf("invalid scheme name %q", scheme))
		}
		target, ok := p.schemes[scheme]
		if !ok {
			target = make(map[string]string, len(colors))
			p.schemes[scheme] = target
		}
		for name, value := range colors {
			if !hexColor.MatchString(value) {
				return nil, paletteError(fmt.Errorf("scheme %s color %s: %q is not a #RRGGBB value", scheme, name, value))
			}
			target[name] = strings.ToUpper(value)
		}
	}
	return p, nil
}

func paletteError(err error) error {
	return errors.New(err).
		Component("palette").
		Category(errors.CategoryPalette).
		Build()
}

// Schemes returns the scheme names in sorted order.
func (p *Palette) Schemes() []string {
	return slices.Sorted(maps.Keys(p.schemes))
}

// Colors returns a copy of a scheme's colors.
func (p *Palette) Colors(scheme string) (map[string]string, bool) {
	key, ok := lookup(p.schemes, scheme)
	if !ok {
		return nil, false
	}
	return maps.Clone(p.schemes[key]), true
}

// Resolve interprets a "Scheme/Color" reference. Names match exactly first
// and then case-insensitively.
func (p *Palette) Resolve(ref string) (string, Outcome) {
	scheme, color, ok := strings.Cut(ref, "/")
	if !ok {
		return "", Keep
	}
	scheme, color = strings.TrimSpace(scheme), strings.TrimSpace(color)

	schemeKey, ok := lookup(p.schemes, scheme)
	if !ok {
		return "", Remove
	}
	colors := p.schemes[schemeKey]
	colorKey, ok := lookup(colors, color)
	if !ok {
		return "", Keep
	}
	return colors[colorKey], Set
}

func lookup[V any](m map[string]V, name string) (string, bool) {
	if _, ok := m[name]; ok {
		return name, true
	}
	fold := cases.Fold()
	want := fold.String(name)
	for key := range m {
		if fold.String(key) == want {
			return key, true
		}
	}
	return "", false
}
