package wizard

import (
	"slices"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/tui/theme"
	core "github.com/agrifair/agriwizard/internal/wizard"
)

// setFunc stores one field in the session.
type setFunc func(field core.Field, value any) error

var locationFields = [3]core.Field{core.FieldLocation, core.FieldRainfall, core.FieldTemperature}

// LocationStep manages the location and weather inputs (step 1).
type LocationStep struct {
	inputs     [3]textinput.Model // location, rainfall, temperature
	focusIndex int
	set        setFunc
	err        string // last rejected edit
	width      int
	height     int
}

func newTextInput(placeholder string) textinput.Model {
	t := theme.Current()
	input := textinput.New()
	input.Placeholder = placeholder
	input.Prompt = "› "

	input.SetStyles(textinput.Styles{
		Focused: textinput.StyleState{
			Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgBase)),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color(t.BgOverlay)),
			Prompt:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.Tertiary)),
		},
		Blurred: textinput.StyleState{
			Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color(t.BgOverlay)),
			Prompt:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.BgOverlay)),
		},
		Cursor: textinput.CursorStyle{
			Color: lipgloss.Color(t.Primary),
			Shape: tea.CursorBar,
			Blink: true,
		},
	})
	input.SetWidth(50)
	return input
}

// NewLocationStep creates the step with its inputs filled from draft.
func NewLocationStep(draft core.Draft, set setFunc) *LocationStep {
	s := &LocationStep{
		inputs: [3]textinput.Model{
			newTextInput("Punjab"),
			newTextInput("800"),
			newTextInput("27"),
		},
		set:    set,
		width:  60,
		height: 10,
	}
	s.Load(draft)
	return s
}

// Load replaces the input values with the draft's.
func (s *LocationStep) Load(draft core.Draft) {
	for i, f := range locationFields {
		s.inputs[i].SetValue(draft.Get(f))
	}
	s.err = ""
}

// Focus gives focus to the first input.
func (s *LocationStep) Focus() tea.Cmd {
	s.focusIndex = 0
	return s.updateFocus()
}

// Blur removes focus from all inputs.
func (s *LocationStep) Blur() {
	for i := range s.inputs {
		s.inputs[i].Blur()
	}
}

// SetSize updates the dimensions for the step.
func (s *LocationStep) SetSize(width, height int) {
	s.width = width
	s.height = height
	for i := range s.inputs {
		s.inputs[i].SetWidth(width - 10)
	}
}

// Update handles messages for the location step.
func (s *LocationStep) Update(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyPressMsg); ok {
		switch keyMsg.String() {
		case "tab", "down":
			s.focusIndex = (s.focusIndex + 1) % len(s.inputs)
			return s.updateFocus()
		case "shift+tab", "up":
			s.focusIndex = (s.focusIndex - 1 + len(s.inputs)) % len(s.inputs)
			return s.updateFocus()
		case "enter":
			// enter walks the inputs, then advances from the last one
			if s.focusIndex < len(s.inputs)-1 {
				s.focusIndex++
				return s.updateFocus()
			}
			return func() tea.Msg { return AdvanceMsg{} }
		}
	}

	before := s.inputs[s.focusIndex].Value()
	var cmd tea.Cmd
	s.inputs[s.focusIndex], cmd = s.inputs[s.focusIndex].Update(msg)

	if after := s.inputs[s.focusIndex].Value(); after != before {
		s.err = ""
		if err := s.set(locationFields[s.focusIndex], after); err != nil {
			s.err = err.Error()
		}
	}
	return cmd
}

func (s *LocationStep) updateFocus() tea.Cmd {
	var cmd tea.Cmd
	for i := range s.inputs {
		if i == s.focusIndex {
			cmd = s.inputs[i].Focus()
		} else {
			s.inputs[i].Blur()
		}
	}
	return cmd
}

// Focused returns the field under the cursor.
func (s *LocationStep) Focused() core.Field {
	return locationFields[s.focusIndex]
}

// View renders the three labelled inputs. Fields listed in missing are
// flagged as required.
func (s *LocationStep) View(labels i18n.Labels, missing []core.Field) string {
	st := styles()
	names := [3]string{labels.Location, labels.Rainfall, labels.Temp}

	var b strings.Builder
	for i, name := range names {
		label := st.Label
		if i == s.focusIndex {
			label = st.LabelFocused
		}
		b.WriteString(label.Render(name))
		if slices.Contains(missing, locationFields[i]) {
			b.WriteString(" " + st.Error.Render("✗"))
		}
		b.WriteString("\n")
		b.WriteString(s.inputs[i].View())
		b.WriteString("\n\n")
	}

	if s.err != "" {
		b.WriteString(st.Error.Render("✗ " + s.err))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
