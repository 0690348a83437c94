package wizard

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	core "github.com/agrifair/agriwizard/internal/wizard"
)

// ResultStep shows the recommendation (step 4).
type ResultStep struct {
	width int
}

// NewResultStep creates the result card.
func NewResultStep() *ResultStep {
	return &ResultStep{width: 60}
}

// SetSize updates the width for the card.
func (r *ResultStep) SetSize(width, _ int) {
	r.width = width
}

// Update handles messages for the result step.
func (r *ResultStep) Update(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyPressMsg); ok {
		switch keyMsg.String() {
		case "enter", "r":
			return func() tea.Msg { return RestartMsg{} }
		}
	}
	return nil
}

// View renders the crop and fertilizer.
func (r *ResultStep) View(res core.Result) string {
	st := styles()

	var b strings.Builder
	b.WriteString(st.Label.Render(res.CropLabel))
	b.WriteString("\n")
	b.WriteString(st.Success.Render("🌾 " + res.RecommendedCrop))
	b.WriteString("\n\n")
	b.WriteString(st.Label.Render(res.FertilizerLabel))
	b.WriteString("\n")
	b.WriteString(st.HeaderTitle.Render("🧪 " + res.Fertilizer))
	return b.String()
}
