// ABOUTME: Scrollable alert history panel using the bubbles viewport component.
// ABOUTME: Shows every alert the session raised, colour-coded by variant, newest at the bottom.
package tui

import (
	"strings"

	"github.com/2389-research/neurogems/session"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// AlertPanelModel is a scrollable list of session alerts.
type AlertPanelModel struct {
	alerts   []session.Alert
	viewport viewport.Model
	focused  bool
	width    int
	height   int
}

func NewAlertPanelModel() AlertPanelModel {
	return AlertPanelModel{viewport: viewport.New(80, 5)}
}

// SetAlerts replaces the history and scrolls to the newest entry when it grew.
func (m *AlertPanelModel) SetAlerts(alerts []session.Alert) {
	grew := len(alerts) != len(m.alerts)
	m.alerts = alerts
	m.sync(grew)
}

func (m AlertPanelModel) Len() int { return len(m.alerts) }

func (m *AlertPanelModel) SetFocused(focused bool) { m.focused = focused }

// SetSize sets the available dimensions and updates the viewport.
func (m *AlertPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	// Reserve space for the border (2 lines) and title (1 line)
	m.viewport.Width = max(w-2, 1)
	m.viewport.Height = max(h-3, 1)
	m.sync(true)
}

// Update forwards scroll keys to the viewport.
func (m AlertPanelModel) Update(msg tea.Msg) AlertPanelModel {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	_ = cmd
	return m
}

func (m AlertPanelModel) View() string {
	title := "ALERTS"
	if m.focused {
		title = "ALERTS (focused)"
	}
	content := MutedStyle.Render("No alerts yet")
	if len(m.alerts) > 0 {
		content = m.viewport.View()
	}
	return borderFor(m.focused).
		Width(max(m.width-2, 1)).
		Height(max(m.height-2, 1)).
		Render(TitleStyle.Render(title) + "\n" + content)
}

func (m *AlertPanelModel) sync(bottom bool) {
	lines := make([]string, len(m.alerts))
	for i, a := range m.alerts {
		lines[i] = formatAlert(a)
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if bottom {
		m.viewport.GotoBottom()
	}
}

// formatAlert formats one alert as a log line.
func formatAlert(a session.Alert) string {
	ts := TimestampStyle.Render(a.RaisedAt.Format("15:04:05"))
	msg := StyleForVariant(a.Variant).Render(a.Message)
	if a.Dismissed {
		msg = MutedStyle.Render(a.Message)
	}
	return ts + " " + msg
}
