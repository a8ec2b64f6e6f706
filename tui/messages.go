// ABOUTME: Bubble Tea message types used in the TUI message loop.
// ABOUTME: Each type wraps session events or the outcome of a backend call for the tea.Msg interface.
package tui

import (
	"time"

	"github.com/2389-research/neurogems/session"
)

// SessionEventMsg wraps a session.Event for the Bubble Tea message loop.
type SessionEventMsg struct {
	Event session.Event
}

// SessionClosedMsg signals that a session's event stream ended.
type SessionClosedMsg struct {
	SessionID string
}

// ActionDoneMsg carries the outcome of a blocking session call run as a command.
type ActionDoneMsg struct {
	SessionID string
	Action    string
	Err       error
}

// TickMsg is sent periodically to advance the spinner and expire alerts.
type TickMsg struct {
	Time time.Time
}
