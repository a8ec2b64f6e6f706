// ABOUTME: Step form panel: strategy name and kind at the naming step, the attach form at the pipeline step.
// ABOUTME: Choice fields cycle with left/right; text fields edit through bubbles textinput.
package tui

import (
	"fmt"
	"strings"

	"github.com/2389-research/neurogems/session"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldChoice
)

// Field keys. Parameters use their own name.
const (
	keyName      = "name"
	keyKind      = "kind"
	keyInput     = "input"
	keyModelType = "model_type"
	keyModelName = "model_name"
)

type field struct {
	key     string
	label   string
	kind    fieldKind
	value   string
	options []string
	param   bool
}

// FormPanelModel renders and edits the current step's fields.
type FormPanelModel struct {
	nameInput  textinput.Model
	modelInput textinput.Model
	cursor     int
	focused    bool
	width      int
	height     int
}

func NewFormPanelModel() FormPanelModel {
	name := textinput.New()
	name.Prompt = ""
	name.Placeholder = "strategy name"
	name.CharLimit = 64
	model := textinput.New()
	model.Prompt = ""
	model.Placeholder = "model name"
	model.CharLimit = 64
	return FormPanelModel{nameInput: name, modelInput: model}
}

func (m *FormPanelModel) SetFocused(focused bool) { m.focused = focused }

func (m *FormPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.nameInput.Width = max(w-20, 8)
	m.modelInput.Width = max(w-20, 8)
}

// Reset moves the cursor to the first field, used after a step change.
func (m *FormPanelModel) Reset() { m.cursor = 0 }

// fields lists the editable fields of the view's current step.
func fields(v session.View) []field {
	if v.Step == session.StepNamingAndKind {
		kinds := make([]string, len(v.Strategies))
		for i, s := range v.Strategies {
			kinds[i] = s.Name
		}
		return []field{
			{key: keyName, label: "Name", kind: fieldText, value: v.Name},
			{key: keyKind, label: "Kind", kind: fieldChoice, value: v.Kind, options: kinds},
		}
	}
	if v.Form == nil {
		return nil
	}
	f := v.Form
	var out []field
	if f.InputMode != session.InputNone {
		opts := f.Inputs
		if f.InputMode == session.InputOptional {
			opts = append([]string{""}, opts...)
		}
		out = append(out, field{key: keyInput, label: "Input", kind: fieldChoice, value: f.Input, options: opts})
	}
	types := make([]string, len(f.ModelTypes))
	for i, d := range f.ModelTypes {
		types[i] = d.ID
	}
	out = append(out,
		field{key: keyModelType, label: "Model type", kind: fieldChoice, value: f.ModelType, options: types},
		field{key: keyModelName, label: "Model name", kind: fieldText, value: f.ModelName},
	)
	for _, p := range f.Params {
		out = append(out, field{key: p.Name, label: p.Name, kind: fieldChoice, value: p.Value, options: p.Options, param: true})
	}
	return out
}

// cycle returns the option delta steps away from current.
func cycle(options []string, current string, delta int) (string, bool) {
	if len(options) == 0 {
		return "", false
	}
	idx := -1
	for i, o := range options {
		if o == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		if delta > 0 {
			return options[0], true
		}
		return options[len(options)-1], true
	}
	n := len(options)
	return options[((idx+delta)%n+n)%n], true
}

// syncInputs copies session values into text inputs that are not being edited.
func (m *FormPanelModel) syncInputs(v session.View) {
	fs := fields(v)
	for i, f := range fs {
		editing := m.focused && i == m.cursor
		switch f.key {
		case keyName:
			if !editing && m.nameInput.Value() != f.value {
				m.nameInput.SetValue(f.value)
			}
		case keyModelName:
			if !editing && m.modelInput.Value() != f.value {
				m.modelInput.SetValue(f.value)
			}
		}
	}
	if m.cursor >= len(fs) {
		m.cursor = max(len(fs)-1, 0)
	}
	m.nameInput.Blur()
	m.modelInput.Blur()
	if m.focused && m.cursor < len(fs) {
		switch fs[m.cursor].key {
		case keyName:
			m.nameInput.Focus()
		case keyModelName:
			m.modelInput.Focus()
		}
	}
}

// formEdit describes what the key press asks the app to do.
type formEdit struct {
	submit bool
	attach bool
	back   bool
	auto   bool
	// choice changes
	key   string
	value string
	param bool
	// text changes
	text    bool
	textVal string
}

// Update handles a key press on the focused form and reports the requested edit.
func (m FormPanelModel) Update(msg tea.KeyMsg, v session.View) (FormPanelModel, formEdit) {
	fs := fields(v)
	var edit formEdit
	switch msg.String() {
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		m.syncInputs(v)
		return m, edit
	case "down":
		if m.cursor < len(fs)-1 {
			m.cursor++
		}
		m.syncInputs(v)
		return m, edit
	case "enter":
		if v.Step == session.StepNamingAndKind {
			edit.submit = true
		} else {
			edit.attach = true
		}
		return m, edit
	case "esc":
		edit.back = v.Step == session.StepPipelineDefinition
		return m, edit
	case "ctrl+g":
		edit.auto = v.Step == session.StepNamingAndKind
		return m, edit
	}
	if m.cursor >= len(fs) {
		return m, edit
	}

	f := fs[m.cursor]
	if f.kind == fieldChoice {
		delta := 0
		switch msg.String() {
		case "left":
			delta = -1
		case "right", " ":
			delta = 1
		}
		if delta != 0 {
			if next, ok := cycle(f.options, f.value, delta); ok && next != f.value {
				edit.key, edit.value, edit.param = f.key, next, f.param
			}
		}
		return m, edit
	}

	input := &m.nameInput
	if f.key == keyModelName {
		input = &m.modelInput
	}
	input.Focus()
	*input, _ = input.Update(msg)
	edit.key, edit.text, edit.textVal = f.key, true, input.Value()
	return m, edit
}

// View renders the form panel.
func (m FormPanelModel) View(v session.View) string {
	var b strings.Builder
	if v.Step == session.StepNamingAndKind {
		title := "NEW STRATEGY"
		if v.Origin == session.OriginEdit {
			title = "EDIT STRATEGY"
		}
		b.WriteString(TitleStyle.Render(title))
	} else {
		b.WriteString(TitleStyle.Render(fmt.Sprintf("ADD MODEL TO %s", strings.ToUpper(v.Name))))
	}
	b.WriteString("\n")

	fs := fields(v)
	if len(fs) == 0 {
		b.WriteString(MutedStyle.Render("No model form for this strategy kind"))
	}
	for i, f := range fs {
		cursor := "  "
		if m.focused && i == m.cursor {
			cursor = SelectedStyle.Render("> ")
		}
		var value string
		switch {
		case f.key == keyName:
			value = m.nameInput.View()
		case f.key == keyModelName:
			value = m.modelInput.View()
		case f.value == "" && f.key == keyInput:
			value = MutedStyle.Render("(none)")
		case f.value == "":
			value = MutedStyle.Render("‹ select ›")
		default:
			value = ValueStyle.Render("‹ " + f.value + " ›")
		}
		b.WriteString(cursor + LabelStyle.Render(f.label) + value + "\n")
	}

	if v.Form != nil && v.Form.Loading {
		b.WriteString(MutedStyle.Render("loading catalog…") + "\n")
	}
	b.WriteString("\n")
	if v.Step == session.StepNamingAndKind {
		hint := "enter: continue  ctrl+g: generate name"
		if !v.CanSubmit {
			hint = "name and kind required  ctrl+g: generate name"
		}
		b.WriteString(MutedStyle.Render(hint))
	} else {
		hint := "enter: add model  esc: back  ←/→: change"
		if v.Form != nil && !v.Form.CanAttach {
			hint = "model type and name required  esc: back"
		}
		b.WriteString(MutedStyle.Render(hint))
	}

	return borderFor(m.focused).
		Width(max(m.width-2, 1)).
		Height(max(m.height-2, 1)).
		Render(b.String())
}
