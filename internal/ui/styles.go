// Package ui renders planner views for the terminal.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "#005fd7", Dark: "#5fafff"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#5fd75f"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#af8700", Dark: "#ffd75f"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#d70000", Dark: "#ff5f5f"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#6c6c6c", Dark: "#8a8a8a"}
)

var renderer = lipgloss.NewRenderer(os.Stdout)

// Setup binds rendering to out. Colour is disabled when noColor is set,
// NO_COLOR is present, or out is not a terminal.
func Setup(out io.Writer, noColor bool) {
	r := lipgloss.NewRenderer(out)
	if noColor || !isTerminal(out) || termenv.EnvNoColor() {
		r.SetColorProfile(termenv.Ascii)
	}
	renderer = r
}

// ColorEnabled reports whether output carries colour codes.
func ColorEnabled() bool {
	return renderer.ColorProfile() != termenv.Ascii
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func style() lipgloss.Style {
	return renderer.NewStyle()
}

// RenderAccent renders s in the accent colour.
func RenderAccent(s string) string {
	return style().Foreground(ColorAccent).Render(s)
}

// RenderPass renders a success marker or message.
func RenderPass(s string) string {
	return style().Foreground(ColorPass).Render(s)
}

// RenderWarn renders a warning.
func RenderWarn(s string) string {
	return style().Foreground(ColorWarn).Render(s)
}

// RenderFail renders an error.
func RenderFail(s string) string {
	return style().Foreground(ColorFail).Bold(true).Render(s)
}

// RenderMuted renders secondary text.
func RenderMuted(s string) string {
	return style().Foreground(ColorMuted).Render(s)
}

// RenderBold renders s in bold.
func RenderBold(s string) string {
	return style().Bold(true).Render(s)
}

// Swatch renders s on a hex background colour, as on the calendar.
func Swatch(s, hex string) string {
	if hex == "" {
		return s
	}
	return style().Background(lipgloss.Color(hex)).Foreground(lipgloss.Color("#ffffff")).Render(s)
}
