package formatter

import (
	"fmt"
	"os"
	"strings"

	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SetColor switches styled output on or off for the whole process. Output
// piped to a file or another program should be plain text.
func SetColor(enabled bool) {
	if enabled {
		lipgloss.SetColorProfile(termenv.ANSI256)
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

// ColorFor picks the color setting for f, honouring NO_COLOR.
func ColorFor(f *os.File) bool {
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return false
	}
	return IsTerminal(f)
}

// StatusStyle returns the style used for a job status.
func StatusStyle(s domain.JobStatus) lipgloss.Style {
	switch s {
	case domain.JobScheduled:
		return StyleBlue
	case domain.JobInProgress:
		return StyleYellow
	case domain.JobCompleted:
		return StyleGreen
	case domain.JobCancelled:
		return StyleRed
	default:
		return StyleDim
	}
}

// StatusPill returns a colored status indicator such as "● In progress".
func StatusPill(s domain.JobStatus) string {
	switch s {
	case domain.JobScheduled:
		return StatusStyle(s).Render("○ Scheduled")
	case domain.JobInProgress:
		return StatusStyle(s).Render("● In progress")
	case domain.JobCompleted:
		return StatusStyle(s).Render("✔ Completed")
	case domain.JobCancelled:
		return StatusStyle(s).Render("✖ Cancelled")
	default:
		return StyleDim.Render(string(s))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
