package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/evently/evently-web/internal/core/ports"
)

// Theme is the color palette for terminal output.
type Theme struct {
	Title    lipgloss.Style
	Prompt   lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Price    lipgloss.Style
	Info     lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
}

// DefaultTheme is the built-in dark-terminal scheme.
var DefaultTheme = Theme{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
	Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")),
	Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	Price:    lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
	Info:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	Error:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
}

func (t Theme) notice(level ports.NoticeLevel) lipgloss.Style {
	switch level {
	case ports.NoticeError:
		return t.Error
	case ports.NoticeWarning:
		return t.Warning
	default:
		return t.Info
	}
}
