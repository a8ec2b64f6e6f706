// ABOUTME: Bridge connecting a configuration session to the Bubble Tea message loop.
// ABOUTME: Provides tea.Cmd factories for session events, blocking session calls and ticks.
package tui

import (
	"context"
	"time"

	"github.com/2389-research/neurogems/session"
	tea "github.com/charmbracelet/bubbletea"
)

// WaitForEventCmd blocks on the session's event channel and delivers the next event.
// A closed channel yields SessionClosedMsg.
func WaitForEventCmd(sessionID string, events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return SessionClosedMsg{SessionID: sessionID}
		}
		return SessionEventMsg{Event: ev}
	}
}

// ActionCmd runs a blocking session call and reports its outcome as ActionDoneMsg.
func ActionCmd(ctx context.Context, sessionID, action string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return ActionDoneMsg{SessionID: sessionID, Action: action, Err: fn(ctx)}
	}
}

// TickCmd returns a tea.Cmd that sends a TickMsg after the given interval.
func TickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
