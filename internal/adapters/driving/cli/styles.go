package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// Palette used by command output. Colours are dropped automatically when
// stdout is not a terminal.
var (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#06B6D4")
	colorMuted     = lipgloss.Color("#6C7086")
	colorSuccess   = lipgloss.Color("#A6E3A1")
	colorWarning   = lipgloss.Color("#F9E2AF")
	colorError     = lipgloss.Color("#F38BA8")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	subtitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSecondary)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle  = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError)
	hintStyle     = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(colorMuted).
			PaddingLeft(1)
)

// intentBadge renders an intent with its confidence, green when the
// question goes to retrieval.
func intentBadge(c domain.Classification) string {
	style := warningStyle
	if c.Intent.ShouldUseRAG() {
		style = successStyle
	}
	return style.Bold(true).Render(c.Intent.String()) + mutedStyle.Render(fmt.Sprintf(" (%.2f)", c.Confidence))
}

func modeBadge(m domain.GatingMode) string {
	if m == domain.GatingModeNone {
		return mutedStyle.Render(m.String())
	}
	return subtitleStyle.Render(m.String())
}

// successorLine formats one permitted next step; gateways are marked.
func successorLine(s domain.SuccessorDetail) string {
	marker := "→"
	if s.Kind.IsGateway() {
		marker = "◇"
	}
	line := fmt.Sprintf("  %s %s %s", marker, s.Name, mutedStyle.Render("["+string(s.Kind)+"]"))
	if s.Description != "" && s.Description != s.Name {
		line += "\n      " + mutedStyle.Render(s.Description)
	}
	return line
}
