package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7B61FF"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#73F59F"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#959595"))
	logoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7B61FF"))
)

func primaryText(s string) string { return primaryStyle.Render(s) }
func successText(s string) string { return successStyle.Render("✓ " + s) }
func errorText(s string) string   { return errorStyle.Render("✗ " + s) }
func warningText(s string) string { return warningStyle.Render("! " + s) }
func dimText(s string) string     { return dimStyle.Render(s) }

// header renders a title underlined to its width
func header(s string) string {
	return primaryText(s) + "\n" + dimText(strings.Repeat("─", lipgloss.Width(s)))
}

func drawLogo() string {
	logo := `
 _ __   __ _ _ __ ___   _____      _(_)___  ___
| '_ \ / _' | '_ ' _ \ / _ \ \ /\ / / / __|/ _ \
| | | | (_| | | | | | |  __/\ V  V /| \__ \  __/
|_| |_|\__,_|_| |_| |_|\___| \_/\_/ |_|___/\___|`
	return logoStyle.Render(logo)
}
