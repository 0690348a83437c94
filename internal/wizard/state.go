package wizard

import (
	"github.com/agrifair/agriwizard/internal/i18n"
)

// Step is the visible wizard step. Steps 1-3 collect input, step 4 shows the result.
type Step int

const (
	StepLocation  Step = 1
	StepSoil      Step = 2
	StepNutrients Step = 3
	StepResults   Step = 4
)

// Status tracks the submission lifecycle.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusInFlight  Status = "inFlight"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// FailureMessage is stored in LastError when a submission fails.
const FailureMessage = "Failed to fetch recommendation. Ensure backend is running."

// Snapshot is an immutable copy of a session's state. Version increases by
// one on every transition.
type Snapshot struct {
	SessionID      string          `json:"session_id"`
	Version        uint64          `json:"version"`
	Step           Step            `json:"step"`
	Language       i18n.Language   `json:"language"`
	Status         Status          `json:"status"`
	LastError      string          `json:"last_error,omitempty"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	Draft          Draft           `json:"draft"`
}

// Labels resolves the label table for the snapshot's language.
func (s Snapshot) Labels() i18n.Labels {
	return i18n.For(s.Language)
}

// PrimaryAction names the main button of the visible step.
type PrimaryAction string

const (
	PrimaryNone      PrimaryAction = ""
	PrimaryNext      PrimaryAction = "next"
	PrimaryAnalyze   PrimaryAction = "analyze"
	PrimaryAnalyzing PrimaryAction = "analyzing"
)

// Actions describes what a renderer may offer for a snapshot.
type Actions struct {
	CanRetreat     bool          `json:"can_retreat"`
	Primary        PrimaryAction `json:"primary,omitempty"`
	PrimaryEnabled bool          `json:"primary_enabled"`
	CanRestart     bool          `json:"can_restart"`
}

// Actions derives the offered actions from the step and submission status.
func (s Snapshot) Actions() Actions {
	inFlight := s.Status == StatusInFlight
	a := Actions{
		CanRetreat: s.Step > StepLocation && s.Step < StepResults && !inFlight,
		CanRestart: s.Step == StepResults,
	}
	switch {
	case s.Step == StepResults:
		a.Primary = PrimaryNone
	case inFlight:
		a.Primary = PrimaryAnalyzing
	case s.Step == StepNutrients:
		a.Primary = PrimaryAnalyze
		a.PrimaryEnabled = true
	default:
		a.Primary = PrimaryNext
		a.PrimaryEnabled = true
	}
	return a
}

// PrimaryLabel returns the localized label for the primary action.
func (s Snapshot) PrimaryLabel() string {
	l := s.Labels()
	switch s.Actions().Primary {
	case PrimaryNext:
		return l.Next
	case PrimaryAnalyze:
		return l.Analyze
	case PrimaryAnalyzing:
		return l.Analyzing
	}
	return ""
}

// Result is the projection shown on the results step.
type Result struct {
	Heading         string `json:"heading"`
	CropLabel       string `json:"crop_label"`
	RecommendedCrop string `json:"recommended_crop"`
	FertilizerLabel string `json:"fertilizer_label"`
	Fertilizer      string `json:"fertilizer"`
	RestartLabel    string `json:"restart_label"`
}

// Result projects the recommendation for display. ok is false unless the
// submission succeeded.
func (s Snapshot) Result() (Result, bool) {
	if s.Status != StatusSucceeded || s.Recommendation == nil {
		return Result{}, false
	}
	l := s.Labels()
	return Result{
		Heading:         l.Result,
		CropLabel:       l.BestCrop,
		RecommendedCrop: s.Recommendation.RecommendedCrop,
		FertilizerLabel: l.Fertilizer,
		Fertilizer:      s.Recommendation.Fertilizer,
		RestartLabel:    l.Restart,
	}, true
}

// View is the wire form of a snapshot for the HTTP and MCP front ends: the
// snapshot itself plus everything a client needs to render it.
type View struct {
	Snapshot
	Actions      Actions `json:"actions"`
	PrimaryLabel string  `json:"primary_label,omitempty"`
	Result       *Result `json:"result,omitempty"`
}

// View derives the wire form of s.
func (s Snapshot) View() View {
	v := View{
		Snapshot:     s,
		Actions:      s.Actions(),
		PrimaryLabel: s.PrimaryLabel(),
	}
	if r, ok := s.Result(); ok {
		v.Result = &r
	}
	return v
}
