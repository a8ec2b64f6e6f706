// ABOUTME: Single-line status bar for the bottom of the TUI showing the session's position in the flow.
// ABOUTME: Displays strategy name, kind, step, create status, a busy spinner and the latest alert.
package tui

import (
	"fmt"

	"github.com/2389-research/neurogems/session"
	"github.com/charmbracelet/lipgloss"
)

// StatusBarModel displays session status in a single line.
type StatusBarModel struct {
	view    session.View
	busy    string
	spinner int
	width   int
}

func NewStatusBarModel() StatusBarModel {
	return StatusBarModel{}
}

// SetView updates the session snapshot the bar describes.
func (m *StatusBarModel) SetView(v session.View) { m.view = v }

// SetBusy names the in-flight backend call; empty clears it.
func (m *StatusBarModel) SetBusy(action string) { m.busy = action }

func (m *StatusBarModel) AdvanceSpinner() { m.spinner++ }

func (m *StatusBarModel) SetWidth(w int) { m.width = w }

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	name := m.view.Name
	if name == "" {
		name = "-"
	}
	kind := m.view.Kind
	if kind == "" {
		kind = "-"
	}
	content := fmt.Sprintf("Strategy: %s | Kind: %s | Step: %s", name, kind, m.view.Step)
	if m.view.CreateStatus != session.CreateIdle {
		content += fmt.Sprintf(" | Create: %s", m.view.CreateStatus)
	}
	if m.busy != "" {
		content += fmt.Sprintf(" | %s %s", SpinnerFrames[m.spinner%len(SpinnerFrames)], m.busy)
	}
	if n := len(m.view.Alerts); n > 0 {
		latest := m.view.Alerts[n-1]
		content += " | " + StyleForVariant(latest.Variant).Render(latest.Message)
	}

	style := StatusBarStyle.Width(m.width)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(content))
}
