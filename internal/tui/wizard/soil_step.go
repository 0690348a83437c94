package wizard

import (
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/agrifair/agriwizard/internal/i18n"
	core "github.com/agrifair/agriwizard/internal/wizard"
)

// SoilStep is the soil type selector (step 2).
type SoilStep struct {
	selectedIdx int
	set         setFunc
	err         string
	width       int
}

// NewSoilStep creates the selector positioned on the draft's soil type.
func NewSoilStep(draft core.Draft, set setFunc) *SoilStep {
	s := &SoilStep{set: set, width: 60}
	s.Load(draft)
	return s
}

// Load moves the selection to the draft's soil type.
func (s *SoilStep) Load(draft core.Draft) {
	if i := slices.Index(core.SoilTypes, draft.SoilType); i >= 0 {
		s.selectedIdx = i
	}
	s.err = ""
}

// SetSize updates the width for the selector.
func (s *SoilStep) SetSize(width, _ int) {
	s.width = width
}

// Selected returns the highlighted soil type.
func (s *SoilStep) Selected() core.SoilType {
	return core.SoilTypes[s.selectedIdx]
}

// Update handles messages for the soil step.
func (s *SoilStep) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return nil
	}

	switch key := keyMsg.String(); key {
	case "up", "k":
		s.selectedIdx = (s.selectedIdx - 1 + len(core.SoilTypes)) % len(core.SoilTypes)
		s.store()
	case "down", "j":
		s.selectedIdx = (s.selectedIdx + 1) % len(core.SoilTypes)
		s.store()
	case "1", "2", "3", "4":
		s.selectedIdx = int(key[0] - '1')
		s.store()
	case "enter":
		return func() tea.Msg { return AdvanceMsg{} }
	}
	return nil
}

func (s *SoilStep) store() {
	s.err = ""
	if err := s.set(core.FieldSoilType, s.Selected()); err != nil {
		s.err = err.Error()
	}
}

// View renders the option list.
func (s *SoilStep) View(labels i18n.Labels) string {
	st := styles()

	var b strings.Builder
	b.WriteString(st.Label.Render(labels.Soil))
	b.WriteString("\n\n")
	for i, soil := range core.SoilTypes {
		name := labels.SoilLabel(string(soil))
		if i == s.selectedIdx {
			b.WriteString(st.LabelFocused.Render("▸ ● " + name))
		} else {
			b.WriteString(st.Label.Render("  ○ " + name))
		}
		b.WriteString("\n")
	}

	if s.err != "" {
		b.WriteString("\n")
		b.WriteString(st.Error.Render("✗ " + s.err))
	}
	return strings.TrimRight(b.String(), "\n")
}
