package wizard

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/tui/theme"
	core "github.com/agrifair/agriwizard/internal/wizard"
)

var nutrientFields = [3]core.Field{core.FieldNitrogen, core.FieldPhosphorus, core.FieldPotassium}

const (
	sliderWidth = 40
	coarseStep  = 10
)

// NutrientStep holds the three NPK sliders (step 3).
type NutrientStep struct {
	values     [3]int
	focusIndex int
	set        setFunc
	err        string
	width      int
}

// NewNutrientStep creates the sliders with the draft's values.
func NewNutrientStep(draft core.Draft, set setFunc) *NutrientStep {
	s := &NutrientStep{set: set, width: 60}
	s.Load(draft)
	return s
}

// Load replaces the slider values with the draft's.
func (s *NutrientStep) Load(draft core.Draft) {
	s.values = [3]int{draft.Nitrogen, draft.Phosphorus, draft.Potassium}
	s.err = ""
}

// SetSize updates the width for the sliders.
func (s *NutrientStep) SetSize(width, _ int) {
	s.width = width
}

// Focus moves the cursor to the nitrogen slider.
func (s *NutrientStep) Focus() {
	s.focusIndex = 0
}

// Value returns the slider value for the i-th nutrient (N, P, K).
func (s *NutrientStep) Value(i int) int {
	return s.values[i]
}

// Update handles messages for the nutrient step.
func (s *NutrientStep) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return nil
	}

	switch keyMsg.String() {
	case "tab", "down", "j":
		s.focusIndex = (s.focusIndex + 1) % len(s.values)
	case "shift+tab", "up", "k":
		s.focusIndex = (s.focusIndex - 1 + len(s.values)) % len(s.values)
	case "left", "h":
		s.nudge(-1)
	case "right", "l":
		s.nudge(1)
	case "shift+left", "pgdown":
		s.nudge(-coarseStep)
	case "shift+right", "pgup":
		s.nudge(coarseStep)
	case "home":
		s.nudge(core.NutrientMin - s.values[s.focusIndex])
	case "end":
		s.nudge(core.NutrientMax - s.values[s.focusIndex])
	case "enter":
		return func() tea.Msg { return AdvanceMsg{} }
	}
	return nil
}

// nudge moves the focused slider by delta, clamped to the slider range.
func (s *NutrientStep) nudge(delta int) {
	v := min(max(s.values[s.focusIndex]+delta, core.NutrientMin), core.NutrientMax)
	if v == s.values[s.focusIndex] {
		return
	}
	s.err = ""
	if err := s.set(nutrientFields[s.focusIndex], v); err != nil {
		s.err = err.Error()
		return
	}
	s.values[s.focusIndex] = v
}

// renderSlider draws a bar whose fill shifts from yellow to green as the
// value rises.
func renderSlider(value int) string {
	t := theme.Current()
	st := t.S()

	filled := value * sliderWidth / core.NutrientMax
	pos := float64(value) / float64(core.NutrientMax)
	fill := st.SliderFill.Foreground(lipgloss.Color(theme.InterpolateColor(t.Warning, t.Success, pos)))

	return fill.Render(strings.Repeat("█", filled)) +
		st.SliderEmpty.Render(strings.Repeat("░", sliderWidth-filled))
}

// View renders the sliders.
func (s *NutrientStep) View(labels i18n.Labels) string {
	st := styles()
	names := [3]string{labels.Nitrogen, labels.Phosphorus, labels.Potassium}

	width := 0
	for _, n := range names {
		width = max(width, lipgloss.Width(n))
	}

	var b strings.Builder
	for i, name := range names {
		label := st.Label
		cursor := "  "
		if i == s.focusIndex {
			label = st.LabelFocused
			cursor = "▸ "
		}
		pad := strings.Repeat(" ", width-lipgloss.Width(name))
		b.WriteString(label.Render(cursor + name + pad))
		b.WriteString("  ")
		b.WriteString(renderSlider(s.values[i]))
		b.WriteString(fmt.Sprintf(" %3d", s.values[i]))
		b.WriteString("\n\n")
	}

	if s.err != "" {
		b.WriteString(st.Error.Render("✗ " + s.err))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
