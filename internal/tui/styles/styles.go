package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// --- Color Palette ---
var (
	ColorPrimary = lipgloss.Color("#7D56F4") // Indigo
	ColorPass    = lipgloss.Color("#04B575") // Green
	ColorFail    = lipgloss.Color("#FF5F87") // Pink/Red
	ColorWarning = lipgloss.Color("#FFAF00") // Gold
	ColorText    = lipgloss.Color("#FAFAFA")
	ColorSubtle  = lipgloss.Color("#767676")
	ColorBorder  = lipgloss.Color("#3C3C3C")
	ColorBanner  = lipgloss.Color("#FF8700") // Orange
)

var (
	Title = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(ColorSubtle)

	Text   = lipgloss.NewStyle().Foreground(ColorText)
	Subtle = lipgloss.NewStyle().Foreground(ColorSubtle)
	Active = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	Pass = lipgloss.NewStyle().Foreground(ColorPass).Bold(true)
	Fail = lipgloss.NewStyle().Foreground(ColorFail).Bold(true)
	Warn = lipgloss.NewStyle().Foreground(ColorWarning)

	// Box/Card container
	Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1).
		Margin(0, 1)

	Label = lipgloss.NewStyle().Foreground(ColorSubtle).Width(14)
)

// Verdict renders PASS or FAIL in the matching colour.
func Verdict(pass bool) string {
	if pass {
		return Pass.Render("PASS")
	}
	return Fail.Render("FAIL")
}

// Row renders an aligned "label value" line.
func Row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, Label.Render(label), Text.Render(value))
}
