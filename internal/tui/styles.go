package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	App = lipgloss.NewStyle().
		Padding(1, 2)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4F4FB7")).
			Padding(0, 1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#959595"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#73F59F"))

	// Row under the cursor
	CursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4F4FB7"))

	OldNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	SuggestionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#81A1C1")).
			Bold(true)

	// Names derived locally because analysis failed
	FallbackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D08770")).
			Italic(true)

	ApprovedMark = SuccessStyle.Render("✓")
	RejectedMark = ErrorStyle.Render("✗")
	PendingMark  = StatusStyle.Render("·")
)
