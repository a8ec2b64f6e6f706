// ABOUTME: Defines lipgloss style constants for the TUI panels, alert variants and graph node roles.
// ABOUTME: Provides StyleForVariant and StyleForRole to map session values to display styles.
package tui

import (
	"github.com/2389-research/neurogems/pipeline"
	"github.com/2389-research/neurogems/session"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))
	FocusedBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("170"))

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	MutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	SelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

	// Alert variants
	AlertSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	AlertErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	AlertInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	TimestampStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Graph node roles
	DatasetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
	ModelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	OutputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("150")).Bold(true)
	EdgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(14)
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

// StyleForVariant returns the style for an alert variant.
func StyleForVariant(v session.Variant) lipgloss.Style {
	switch v {
	case session.VariantSuccess:
		return AlertSuccessStyle
	case session.VariantError:
		return AlertErrorStyle
	default:
		return AlertInfoStyle
	}
}

// StyleForRole returns the style for a graph node role.
func StyleForRole(role string) lipgloss.Style {
	switch role {
	case pipeline.RoleDataset:
		return DatasetStyle
	case pipeline.RoleModel:
		return ModelStyle
	case pipeline.RoleOutput:
		return OutputStyle
	default:
		return ValueStyle
	}
}

func borderFor(focused bool) lipgloss.Style {
	if focused {
		return FocusedBorderStyle
	}
	return BorderStyle
}

// SpinnerFrames are shown while a backend call is in flight.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
