// Package wizard is the full-screen terminal front end for a crop analysis
// session.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/agrifair/agriwizard/internal/tui/theme"
	core "github.com/agrifair/agriwizard/internal/wizard"
	uv "github.com/charmbracelet/ultraviolet"
)

// ErrCancelled is returned by Run when the user quits before a result.
var ErrCancelled = errors.New("wizard cancelled by user")

// AdvanceMsg is sent by a step when the user confirms it.
type AdvanceMsg struct{}

// RestartMsg is sent by the result step to start a new analysis.
type RestartMsg struct{}

// submitDoneMsg carries the snapshot applied after a submission settles.
type submitDoneMsg struct {
	snap core.Snapshot
}

// Model is the Bubble Tea model for one wizard session. Every state change
// goes through the session; the model only keeps widget state and the latest
// snapshot.
type Model struct {
	ctx       context.Context
	session   *core.Session
	snap      core.Snapshot
	cancelled bool
	width     int
	height    int

	missing []core.Field // required fields flagged by the last rejected advance
	notice  string       // last rejected action

	// Step components
	locationStep *LocationStep
	soilStep     *SoilStep
	nutrientStep *NutrientStep
	resultStep   *ResultStep
	spinner      spinner.Model
}

// New creates a model over session. ctx bounds submissions.
func New(ctx context.Context, session *core.Session) *Model {
	m := &Model{
		ctx:     ctx,
		session: session,
		snap:    session.Snapshot(),
		width:   80,
		height:  24,
	}
	m.locationStep = NewLocationStep(m.snap.Draft, m.set)
	m.soilStep = NewSoilStep(m.snap.Draft, m.set)
	m.nutrientStep = NewNutrientStep(m.snap.Draft, m.set)
	m.resultStep = NewResultStep()
	m.spinner = spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Current().Primary))),
	)
	return m
}

// Run drives session in a full-screen program until the user quits and
// returns the last snapshot. ErrCancelled is returned if no result was shown.
func Run(ctx context.Context, session *core.Session, opts ...tea.ProgramOption) (core.Snapshot, error) {
	m := New(ctx, session)

	p := tea.NewProgram(m, opts...)
	finalModel, err := p.Run()
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("wizard failed: %w", err)
	}

	wizModel, ok := finalModel.(*Model)
	if !ok {
		return core.Snapshot{}, fmt.Errorf("unexpected model type")
	}
	if wizModel.cancelled {
		return wizModel.snap, ErrCancelled
	}
	return wizModel.snap, nil
}

// Snapshot returns the latest snapshot the model has applied.
func (m *Model) Snapshot() core.Snapshot {
	return m.snap
}

// Cancelled reports whether the user quit before a result.
func (m *Model) Cancelled() bool {
	return m.cancelled
}

// Init focuses the current step.
func (m *Model) Init() tea.Cmd {
	return m.focusStep()
}

// set is handed to the step components so their edits land in the session.
func (m *Model) set(field core.Field, value any) error {
	snap, err := m.session.SetField(field, value)
	m.apply(snap)
	if err != nil {
		return err
	}
	m.missing = slices.DeleteFunc(m.missing, func(f core.Field) bool {
		return f == field && strings.TrimSpace(snap.Draft.Get(f)) != ""
	})
	return nil
}

// apply adopts snap if it is not older than the one shown. A closed session
// returns a zero snapshot, which is always older.
func (m *Model) apply(snap core.Snapshot) {
	if snap.Version < m.snap.Version {
		return
	}
	prev := m.snap
	m.snap = snap
	if prev.Step != snap.Step {
		m.missing = nil
		m.notice = ""
	}
}

// Update handles messages for the wizard.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancelled = m.snap.Step != core.StepResults
			return m, tea.Quit
		case "ctrl+l":
			snap, err := m.session.ToggleLanguage()
			m.reject(err)
			m.apply(snap)
			return m, nil
		case "esc":
			if m.snap.Status == core.StatusInFlight {
				return m, nil
			}
			return m, m.back()
		}
		if m.snap.Status == core.StatusInFlight {
			// the draft is locked until the submission settles
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateStepSizes()
		return m, nil

	case spinner.TickMsg:
		if m.snap.Status != core.StatusInFlight {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case submitDoneMsg:
		m.apply(msg.snap)
		return m, m.focusStep()

	case AdvanceMsg:
		return m, m.advance()

	case RestartMsg:
		snap, err := m.session.Restart()
		m.reject(err)
		m.apply(snap)
		m.reload()
		return m, m.focusStep()
	}

	// Forward to current step
	var cmd tea.Cmd
	switch m.snap.Step {
	case core.StepLocation:
		cmd = m.locationStep.Update(msg)
	case core.StepSoil:
		cmd = m.soilStep.Update(msg)
	case core.StepNutrients:
		cmd = m.nutrientStep.Update(msg)
	case core.StepResults:
		cmd = m.resultStep.Update(msg)
	}
	return m, cmd
}

// advance confirms the visible step. On the nutrients step it starts the
// submission and waits for the result on a command.
func (m *Model) advance() tea.Cmd {
	if m.snap.Step == core.StepNutrients {
		snap, done, err := m.session.SubmitAsync(m.ctx)
		m.apply(snap)
		if err != nil {
			m.reject(err)
			return nil
		}
		m.notice = ""
		return tea.Batch(m.spinner.Tick, waitForResult(done))
	}

	snap, err := m.session.Advance(m.ctx)
	m.apply(snap)
	if err != nil {
		m.reject(err)
		return nil
	}
	return m.focusStep()
}

// back handles esc: leave the wizard from step 1 or the result, otherwise
// retreat one step.
func (m *Model) back() tea.Cmd {
	switch m.snap.Step {
	case core.StepLocation:
		m.cancelled = true
		return tea.Quit
	case core.StepResults:
		return tea.Quit
	}

	snap, err := m.session.Retreat()
	m.apply(snap)
	if err != nil {
		m.reject(err)
		return nil
	}
	return m.focusStep()
}

// reject records why an action was refused.
func (m *Model) reject(err error) {
	if err == nil {
		return
	}
	var inc *core.IncompleteError
	if errors.As(err, &inc) {
		m.missing = inc.Fields
		return
	}
	if errors.Is(err, core.ErrClosed) {
		logger.Warn("tui: session closed underneath the wizard")
	}
	m.notice = err.Error()
}

// waitForResult turns the submission's completion into a message.
func waitForResult(done <-chan core.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-done
		if !ok {
			return nil
		}
		return submitDoneMsg{snap: snap}
	}
}

// reload refreshes every step's widgets from the draft.
func (m *Model) reload() {
	m.locationStep.Load(m.snap.Draft)
	m.soilStep.Load(m.snap.Draft)
	m.nutrientStep.Load(m.snap.Draft)
}

// focusStep moves keyboard focus to the visible step.
func (m *Model) focusStep() tea.Cmd {
	m.locationStep.Blur()
	switch m.snap.Step {
	case core.StepLocation:
		return m.locationStep.Focus()
	case core.StepNutrients:
		m.nutrientStep.Focus()
	}
	return nil
}

// updateStepSizes sizes the step components to the modal's content area.
func (m *Model) updateStepSizes() {
	// Reserve space for modal container (padding, borders, title, buttons)
	contentWidth := max(m.width-10, 40)
	contentHeight := max(m.height-10, 10)

	m.locationStep.SetSize(contentWidth, contentHeight)
	m.soilStep.SetSize(contentWidth, contentHeight)
	m.nutrientStep.SetSize(contentWidth, contentHeight)
	m.resultStep.SetSize(contentWidth, contentHeight)
}

// View renders the wizard UI.
func (m *Model) View() tea.View {
	var view tea.View
	view.AltScreen = true
	view.Content = lipgloss.NewLayer(m.render())
	return view
}

// render draws the modal onto a screen-sized canvas.
func (m *Model) render() string {
	content := m.renderModal(m.renderStep())

	canvas := uv.NewScreenBuffer(m.width, m.height)
	uv.NewStyledString(content).Draw(canvas, uv.Rectangle{
		Min: uv.Position{X: 0, Y: 0},
		Max: uv.Position{X: m.width, Y: m.height},
	})
	return canvas.Render()
}

// renderStep renders the visible step with its status line, buttons and hints.
func (m *Model) renderStep() string {
	labels := m.snap.Labels()
	actions := m.snap.Actions()
	st := styles()

	var sections []string
	switch m.snap.Step {
	case core.StepLocation:
		sections = append(sections, m.locationStep.View(labels, m.missing))
	case core.StepSoil:
		sections = append(sections, m.soilStep.View(labels))
	case core.StepNutrients:
		sections = append(sections, m.nutrientStep.View(labels))
	case core.StepResults:
		if res, ok := m.snap.Result(); ok {
			sections = append(sections, m.resultStep.View(res))
		}
	}
	sections = append(sections, "")

	switch {
	case m.snap.Status == core.StatusInFlight:
		sections = append(sections, m.spinner.View()+" "+labels.Analyzing)
	case m.snap.Status == core.StatusFailed:
		sections = append(sections, st.Error.Render("✗ "+labels.SubmitFailed))
	case m.notice != "":
		sections = append(sections, st.Error.Render("✗ "+m.notice))
	}

	var buttons []Button
	if m.snap.Step == core.StepResults {
		buttons = CreateRestartButton(labels.Restart)
	} else {
		buttons = CreateBackNextButtons(labels.Prev, actions.CanRetreat, actions.PrimaryEnabled, m.snap.PrimaryLabel())
	}
	bar := NewButtonBar(buttons)
	bar.SetWidth(m.modalWidth() - 6)
	sections = append(sections, bar.Render(), "")
	sections = append(sections, m.hints(labels))

	return strings.Join(sections, "\n")
}

// hints returns the key help for the visible step.
func (m *Model) hints(labels i18n.Labels) string {
	switch m.snap.Step {
	case core.StepLocation:
		return renderHintBar("tab", "next field", "enter", labels.Next, "ctrl+l", labels.Switch, "esc", "quit")
	case core.StepSoil:
		return renderHintBar("↑↓", "select", "enter", labels.Next, "ctrl+l", labels.Switch, "esc", labels.Prev)
	case core.StepNutrients:
		return renderHintBar("↑↓", "nutrient", "←→", "±1", "shift+←→", "±10", "enter", labels.Analyze, "ctrl+l", labels.Switch, "esc", labels.Prev)
	}
	return renderHintBar("enter", labels.Restart, "ctrl+l", labels.Switch, "esc", "quit")
}

func (m *Model) modalWidth() int {
	// Leave margins for visual spacing; cap for readability
	return min(max(m.width-10, 60), 100)
}

// renderModal wraps the step content in a modal container with title.
func (m *Model) renderModal(stepContent string) string {
	labels := m.snap.Labels()
	st := styles()

	var title string
	if m.snap.Step == core.StepResults {
		title = fmt.Sprintf("%s · %s", labels.Title, labels.Result)
	} else {
		title = fmt.Sprintf("%s · %d/3 %s", labels.Title, int(m.snap.Step), labels.StepTitle(int(m.snap.Step)))
	}

	content := strings.Join([]string{
		st.ModalTitle.Render(title),
		"",
		stepContent,
	}, "\n")

	modalContent := st.ModalContainer.Width(m.modalWidth()).Render(content)

	// Center the modal on screen
	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		modalContent,
	)
}
