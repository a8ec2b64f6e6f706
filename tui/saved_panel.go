// ABOUTME: Saved strategies panel with a cursor; the app edits, deletes or refreshes the selected entry.
package tui

import (
	"fmt"
	"strings"

	"github.com/2389-research/neurogems/gateway"
	tea "github.com/charmbracelet/bubbletea"
)

type savedAction int

const (
	savedNone savedAction = iota
	savedEdit
	savedDelete
	savedRefresh
	savedNew
)

// SavedPanelModel lists saved strategies.
type SavedPanelModel struct {
	cursor  int
	focused bool
	width   int
	height  int
}

func NewSavedPanelModel() SavedPanelModel {
	return SavedPanelModel{}
}

func (m *SavedPanelModel) SetFocused(focused bool) { m.focused = focused }

func (m *SavedPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Update moves the cursor or returns the requested action on the selected entry.
func (m SavedPanelModel) Update(msg tea.KeyMsg, saved []gateway.SavedStrategy) (SavedPanelModel, savedAction, gateway.SavedStrategy) {
	if m.cursor >= len(saved) {
		m.cursor = max(len(saved)-1, 0)
	}
	var selected gateway.SavedStrategy
	if len(saved) > 0 {
		selected = saved[m.cursor]
	}
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(saved)-1 {
			m.cursor++
		}
	case "enter", "e":
		if len(saved) > 0 {
			return m, savedEdit, selected
		}
	case "d", "delete":
		if len(saved) > 0 {
			return m, savedDelete, selected
		}
	case "r":
		return m, savedRefresh, selected
	case "n":
		return m, savedNew, selected
	}
	return m, savedNone, selected
}

func (m SavedPanelModel) View(saved []gateway.SavedStrategy, current string) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("SAVED STRATEGIES"))
	b.WriteString("\n")
	if len(saved) == 0 {
		b.WriteString(MutedStyle.Render("No saved strategies"))
	}
	for i, s := range saved {
		line := fmt.Sprintf("%s %s v%d", s.Name, MutedStyle.Render(strings.ReplaceAll(s.Kind, "_", " ")), s.Version)
		switch {
		case m.focused && i == m.cursor:
			line = SelectedStyle.Render("> ") + line
		case s.Name == current:
			line = "* " + line
		default:
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	if m.focused {
		b.WriteString("\n" + MutedStyle.Render("e: edit  d: delete  r: refresh  n: new"))
	}
	return borderFor(m.focused).
		Width(max(m.width-2, 1)).
		Height(max(m.height-2, 1)).
		Render(strings.TrimRight(b.String(), "\n"))
}
