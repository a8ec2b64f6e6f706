// ABOUTME: Top-level Bubble Tea AppModel composing the saved, form, graph, alert and status panels.
// ABOUTME: Implements tea.Model and drives one configuration session, swapping it on edit or new.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2389-research/neurogems/gateway"
	"github.com/2389-research/neurogems/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FocusTarget indicates which panel currently has keyboard focus.
type FocusTarget int

const (
	FocusForm FocusTarget = iota
	FocusSaved
	FocusAlerts
)

const tickInterval = 250 * time.Millisecond

// AppModel is the top-level Bubble Tea model.
type AppModel struct {
	deps        session.Deps
	ctx         context.Context
	sess        *session.Session
	events      <-chan session.Event
	unsubscribe func()

	form      FormPanelModel
	saved     SavedPanelModel
	graph     GraphPanelModel
	alerts    AlertPanelModel
	statusBar StatusBarModel

	focus  FocusTarget
	busy   string
	width  int
	height int
}

// NewAppModel creates an AppModel driving a fresh session.
func NewAppModel(ctx context.Context, deps session.Deps) AppModel {
	m := AppModel{
		deps:      deps,
		ctx:       ctx,
		form:      NewFormPanelModel(),
		saved:     NewSavedPanelModel(),
		graph:     NewGraphPanelModel(),
		alerts:    NewAlertPanelModel(),
		statusBar: NewStatusBarModel(),
		focus:     FocusForm,
	}
	m.bind(session.New(deps))
	m.applyFocus()
	return m
}

// Session returns the session currently shown.
func (m AppModel) Session() *session.Session { return m.sess }

func (m *AppModel) bind(sess *session.Session) {
	m.sess = sess
	m.events, m.unsubscribe = sess.Subscribe()
	m.form.Reset()
	m.refresh()
}

// refresh copies the session snapshot into every panel.
func (m *AppModel) refresh() {
	v := m.sess.View()
	m.form.syncInputs(v)
	m.graph.SetGraph(v.Name, v.Graph)
	m.alerts.SetAlerts(m.sess.Alerts().History())
	m.statusBar.SetView(v)
	m.statusBar.SetBusy(m.busy)
}

func (m *AppModel) applyFocus() {
	m.form.SetFocused(m.focus == FocusForm)
	m.saved.SetFocused(m.focus == FocusSaved)
	m.alerts.SetFocused(m.focus == FocusAlerts)
}

// Init implements tea.Model. Starts the event listener, loads catalogs and begins ticking.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		WaitForEventCmd(m.sess.ID, m.events),
		m.primeCmd(),
		TickCmd(tickInterval),
	)
}

func (m AppModel) primeCmd() tea.Cmd {
	sess := m.sess
	return ActionCmd(m.ctx, sess.ID, "loading", func(ctx context.Context) error {
		return errors.Join(sess.LoadStrategies(ctx), sess.Refresh(ctx))
	})
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SessionEventMsg:
		if msg.Event.SessionID != m.sess.ID {
			return m, nil
		}
		m.refresh()
		return m, WaitForEventCmd(m.sess.ID, m.events)

	case SessionClosedMsg:
		return m, nil

	case ActionDoneMsg:
		return m.handleActionDone(msg)

	case TickMsg:
		m.statusBar.AdvanceSpinner()
		m.refresh()
		return m, TickCmd(tickInterval)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m AppModel) handleActionDone(msg ActionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.SessionID != m.sess.ID {
		return m, nil
	}
	if m.busy == msg.Action {
		m.busy = ""
	}
	// Backend failures are raised by the session itself; local validation is not.
	if isLocalError(msg.Err) {
		m.sess.Alerts().Error(msg.Err.Error())
	}
	m.refresh()
	return m, nil
}

func isLocalError(err error) bool {
	for _, target := range []error{
		session.ErrIncomplete, session.ErrNoForm, session.ErrWrongStep,
		session.ErrUnknownModelType, session.ErrUnknownInput, session.ErrInputNotSupported,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (m AppModel) quit() (tea.Model, tea.Cmd) {
	m.unsubscribe()
	m.sess.Close()
	return m, tea.Quit
}

// handleKeyMsg processes app-level shortcuts, then routes keys to the focused panel.
func (m AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "tab":
		m.focus = (m.focus + 1) % 3
		m.applyFocus()
		m.refresh()
		return m, nil
	case "shift+tab":
		m.focus = (m.focus + 2) % 3
		m.applyFocus()
		m.refresh()
		return m, nil
	case "q":
		if m.focus != FocusForm {
			return m.quit()
		}
	}

	switch m.focus {
	case FocusSaved:
		return m.handleSavedKey(msg)
	case FocusAlerts:
		m.alerts = m.alerts.Update(msg)
		return m, nil
	}
	return m.handleFormKey(msg)
}

func (m AppModel) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.sess.View()
	var edit formEdit
	m.form, edit = m.form.Update(msg, v)
	sess := m.sess

	var err error
	var cmd tea.Cmd
	switch {
	case edit.submit:
		if err = sess.Submit(); err == nil {
			m.form.Reset()
		}
	case edit.attach:
		m.busy = "attaching"
		cmd = ActionCmd(m.ctx, sess.ID, m.busy, func(ctx context.Context) error {
			_, err := sess.AttachModel(ctx)
			return err
		})
	case edit.back:
		if err = sess.Back(); err == nil {
			m.form.Reset()
		}
	case edit.auto:
		_, err = sess.AutoName()
	case edit.text && edit.key == keyName:
		err = sess.SetName(edit.textVal)
	case edit.text && edit.key == keyModelName:
		if f := sess.Form(); f != nil {
			f.SetModelName(strings.TrimSpace(edit.textVal))
		}
	case edit.key == keyKind:
		err = sess.SelectKind(edit.value)
	case edit.key != "":
		m, cmd, err = m.applyFormChoice(edit)
	}
	if err != nil {
		sess.Alerts().Error(err.Error())
	}
	m.refresh()
	return m, cmd
}

// applyFormChoice applies a cycled choice on the attach form.
func (m AppModel) applyFormChoice(edit formEdit) (AppModel, tea.Cmd, error) {
	f := m.sess.Form()
	if f == nil {
		return m, nil, session.ErrNoForm
	}
	switch {
	case edit.key == keyInput:
		if err := f.SetInput(edit.value); err != nil {
			return m, nil, err
		}
		m.busy = "loading"
		return m, ActionCmd(m.ctx, m.sess.ID, m.busy, f.Load), nil
	case edit.key == keyModelType:
		return m, nil, f.SelectModelType(edit.value)
	case edit.param:
		if !f.EditParamToken(edit.key, edit.value) {
			return m, nil, fmt.Errorf("invalid value %q for %s", edit.value, edit.key)
		}
	}
	return m, nil, nil
}

func (m AppModel) handleSavedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var (
		action savedAction
		target gateway.SavedStrategy
	)
	m.saved, action, target = m.saved.Update(msg, m.sess.Saved())
	sess := m.sess

	switch action {
	case savedEdit:
		return m.replace(session.Edit(m.deps, target))
	case savedNew:
		return m.replace(session.New(m.deps))
	case savedDelete:
		m.busy = "deleting"
		return m, ActionCmd(m.ctx, sess.ID, m.busy, func(ctx context.Context) error {
			return sess.Delete(ctx, target.Name)
		})
	case savedRefresh:
		m.busy = "refreshing"
		return m, ActionCmd(m.ctx, sess.ID, m.busy, sess.Refresh)
	}
	return m, nil
}

// replace closes the current session and binds next in its place.
func (m AppModel) replace(next *session.Session) (tea.Model, tea.Cmd) {
	m.unsubscribe()
	m.sess.Close()
	m.busy = ""
	m.bind(next)
	m.focus = FocusForm
	m.applyFocus()
	return m, tea.Batch(WaitForEventCmd(next.ID, m.events), m.primeCmd())
}

// View implements tea.Model. Renders the full TUI layout with all panels.
func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.width < 60 || m.height < 16 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 60x16.", m.width, m.height)
	}

	v := m.sess.View()

	bodyHeight := m.height - 1
	leftWidth := m.width * 45 / 100
	rightWidth := m.width - leftWidth
	savedHeight := bodyHeight * 35 / 100
	formHeight := bodyHeight - savedHeight
	graphHeight := bodyHeight * 60 / 100
	alertHeight := bodyHeight - graphHeight

	m.saved.SetSize(leftWidth, savedHeight)
	m.form.SetSize(leftWidth, formHeight)
	m.graph.SetSize(rightWidth, graphHeight)
	m.alerts.SetSize(rightWidth, alertHeight)
	m.statusBar.SetWidth(m.width)
	m.statusBar.SetBusy(m.busy)

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.saved.View(v.Saved, v.Name),
		m.form.View(v),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.graph.View(),
		m.alerts.View(),
	)

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())
	return b.String()
}

// Run starts the terminal UI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, deps session.Deps) error {
	model := NewAppModel(ctx, deps)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if app, ok := final.(AppModel); ok {
		app.sess.Close()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
