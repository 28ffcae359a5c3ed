package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pjp27/organizacion/internal/schema"
)

// Palette maps subjects to hex colours.
type Palette struct {
	Colors  map[string]string
	Default string
}

// DefaultPalette returns the built-in subject palette.
func DefaultPalette() Palette {
	colors := make(map[string]string, len(schema.DefaultSubjectColors))
	for subject, color := range schema.DefaultSubjectColors {
		colors[subject] = color
	}
	return Palette{Colors: colors, Default: schema.DefaultColor}
}

// Color returns the colour of subject, or the default colour.
func (p Palette) Color(subject string) string {
	if c, ok := p.Colors[subject]; ok && c != "" {
		return c
	}
	if p.Default != "" {
		return p.Default
	}
	return schema.DefaultColor
}

// RGBA converts a #rrggbb colour to an rgba() string with the given alpha.
// Malformed colours are returned unchanged.
func RGBA(hex string, alpha float64) string {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return hex
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return hex
	}
	r, g, b := (v>>16)&0xff, (v>>8)&0xff, v&0xff
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(alpha, 'f', -1, 64))
}
