package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"charm.land/glamour/v2"
	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/agrifair/agriwizard/internal/recommend"
	"github.com/agrifair/agriwizard/internal/template"
	"github.com/agrifair/agriwizard/internal/wizard"
)

// ErrAnalysisFailed is returned when the user gives up after a failed submission.
var ErrAnalysisFailed = errors.New("analysis failed")

var errRequired = errors.New("required")

// errBack is returned by a step's prompts when the user chose to go back.
var errBack = errors.New("back")

// backKeyword retreats from a nutrient prompt, alongside the localized Back label.
const backKeyword = "<"

// PriceSource supplies the market prices appended to the report.
type PriceSource interface {
	MarketPricesOrFallback(ctx context.Context) ([]recommend.MarketPrice, bool)
}

// Config configures a plain run.
type Config struct {
	Driver       Driver
	Out          io.Writer
	Width        int         // word wrap for the rendered report
	Prices       PriceSource // optional
	ReportDir    string      // save the report here when set
	TemplatePath string      // custom report template (optional)
	Styled       bool        // render the report with glamour instead of raw Markdown
}

// Run walks session through the wizard with line prompts until the user
// declines to start another analysis. It returns the last snapshot.
func Run(ctx context.Context, session *wizard.Session, cfg Config) (wizard.Snapshot, error) {
	if cfg.Width <= 0 {
		cfg.Width = 80
	}
	r := &runner{session: session, cfg: cfg}

	for {
		if err := ctx.Err(); err != nil {
			return session.Snapshot(), err
		}
		snap := session.Snapshot()
		labels := snap.Labels()

		var err error
		switch snap.Step {
		case wizard.StepLocation:
			r.heading(snap)
			if err = r.askLocation(ctx, labels); err == nil {
				err = r.advance(ctx)
			}
		case wizard.StepSoil:
			r.heading(snap)
			if err = r.askSoil(ctx, labels, snap.Draft.SoilType); err == nil {
				err = r.advance(ctx)
			}
		case wizard.StepNutrients:
			r.heading(snap)
			if err = r.askNutrients(ctx, labels, snap.Draft); err == nil {
				var again bool
				again, err = r.submit(ctx, labels)
				if err == nil && !again {
					return session.Snapshot(), ErrAnalysisFailed
				}
			}
		case wizard.StepResults:
			var again bool
			again, err = r.showResult(ctx, snap)
			if err == nil && !again {
				return snap, nil
			}
			if err == nil {
				_, err = session.Restart()
			}
		}
		if errors.Is(err, errBack) {
			_, err = session.Retreat()
		}
		if err != nil {
			return session.Snapshot(), err
		}
	}
}

type runner struct {
	session *wizard.Session
	cfg     Config
}

func (r *runner) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.cfg.Out, format, args...)
}

func (r *runner) heading(snap wizard.Snapshot) {
	labels := snap.Labels()
	r.printf("\n%s · %d/3 %s\n", labels.Title, int(snap.Step), labels.StepTitle(int(snap.Step)))
}

// advance moves to the next step. A rejection is reported and the current
// step is asked again.
func (r *runner) advance(ctx context.Context) error {
	_, err := r.session.Advance(ctx)
	var inc *wizard.IncompleteError
	if errors.As(err, &inc) {
		r.printf("✗ %v\n", err)
		return nil
	}
	return err
}

// ask repeats an input prompt until the session accepts the answer. With a
// non-empty back label, answering it (or "<") returns errBack.
func (r *runner) ask(ctx context.Context, field wizard.Field, cfg InputConfig, back string) error {
	if back != "" && cfg.Validator != nil {
		validate := cfg.Validator
		cfg.Validator = func(s string) error {
			if isBack(s, back) {
				return nil
			}
			return validate(s)
		}
	}
	for {
		answer, err := r.cfg.Driver.Input(ctx, cfg)
		if err != nil {
			return err
		}
		if back != "" && isBack(answer, back) {
			return errBack
		}
		_, err = r.session.SetField(field, strings.TrimSpace(answer))
		if err == nil {
			return nil
		}
		if !errors.Is(err, wizard.ErrInvalidValue) {
			return err
		}
		r.printf("✗ %v\n", err)
	}
}

func isBack(answer, label string) bool {
	answer = strings.TrimSpace(answer)
	return answer == backKeyword || strings.EqualFold(answer, label)
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errRequired
	}
	return nil
}

func (r *runner) askLocation(ctx context.Context, labels i18n.Labels) error {
	draft := r.session.Snapshot().Draft
	inputs := []struct {
		field wizard.Field
		label string
	}{
		{wizard.FieldLocation, labels.Location},
		{wizard.FieldRainfall, labels.Rainfall},
		{wizard.FieldTemperature, labels.Temp},
	}
	for _, in := range inputs {
		err := r.ask(ctx, in.field, InputConfig{
			Message:   in.label,
			Default:   draft.Get(in.field),
			Validator: required,
		}, "")
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) askSoil(ctx context.Context, labels i18n.Labels, current wizard.SoilType) error {
	// The last option goes back to step 1.
	options := make([]string, len(wizard.SoilTypes), len(wizard.SoilTypes)+1)
	def := 0
	for i, soil := range wizard.SoilTypes {
		options[i] = labels.SoilLabel(string(soil))
		if soil == current {
			def = i
		}
	}
	options = append(options, "← "+labels.Back)

	idx, err := r.cfg.Driver.Select(ctx, SelectConfig{
		Message:      labels.Soil,
		Options:      options,
		DefaultIndex: def,
	})
	if err != nil {
		return err
	}
	if idx == len(wizard.SoilTypes) {
		return errBack
	}
	if idx < 0 || idx > len(wizard.SoilTypes) {
		return fmt.Errorf("soil selection out of range: %d", idx)
	}
	_, err = r.session.SetField(wizard.FieldSoilType, wizard.SoilTypes[idx])
	return err
}

func nutrientInRange(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter a whole number")
	}
	if n < wizard.NutrientMin || n > wizard.NutrientMax {
		return fmt.Errorf("must be between %d and %d", wizard.NutrientMin, wizard.NutrientMax)
	}
	return nil
}

func (r *runner) askNutrients(ctx context.Context, labels i18n.Labels, draft wizard.Draft) error {
	inputs := []struct {
		field wizard.Field
		label string
	}{
		{wizard.FieldNitrogen, labels.Nitrogen},
		{wizard.FieldPhosphorus, labels.Phosphorus},
		{wizard.FieldPotassium, labels.Potassium},
	}
	for _, in := range inputs {
		err := r.ask(ctx, in.field, InputConfig{
			Message:   in.label,
			Default:   draft.Get(in.field),
			Help:      fmt.Sprintf("%d-%d, %s %s", wizard.NutrientMin, wizard.NutrientMax, backKeyword, labels.Back),
			Validator: nutrientInRange,
		}, labels.Back)
		if err != nil {
			return err
		}
	}
	return nil
}

// submit runs the analysis. again is false when the user declines to retry
// a failed submission.
func (r *runner) submit(ctx context.Context, labels i18n.Labels) (again bool, err error) {
	r.printf("%s\n", labels.Analyzing)
	snap, err := r.session.Submit(ctx)
	if err != nil {
		return false, err
	}
	if snap.Status != wizard.StatusFailed {
		return true, nil
	}

	r.printf("✗ %s\n", snap.Labels().SubmitFailed)
	return r.cfg.Driver.Confirm(ctx, ConfirmConfig{
		Message: snap.Labels().Analyze + "?",
		Default: true,
	})
}

// showResult prints the report and asks whether to start over.
func (r *runner) showResult(ctx context.Context, snap wizard.Snapshot) (again bool, err error) {
	var prices []recommend.MarketPrice
	if r.cfg.Prices != nil {
		prices, _ = r.cfg.Prices.MarketPricesOrFallback(ctx)
	}

	report, err := template.BuildReport(template.BuildConfig{
		Snapshot:     snap,
		Prices:       prices,
		TemplatePath: r.cfg.TemplatePath,
	})
	if err != nil {
		return false, err
	}

	if r.cfg.Styled {
		r.printf("\n%s\n", RenderMarkdown(report, r.cfg.Width))
	} else {
		r.printf("\n%s\n", report)
	}

	if r.cfg.ReportDir != "" {
		path, err := template.Save(r.cfg.ReportDir, snap, report)
		if err != nil {
			logger.Warn("prompt: %v", err)
		} else {
			r.printf("→ %s\n", path)
		}
	}

	return r.cfg.Driver.Confirm(ctx, ConfirmConfig{
		Message: snap.Labels().Restart + "?",
		Default: false,
	})
}

// RenderMarkdown renders markdown content using glamour.
// Falls back to the raw markdown if rendering fails.
func RenderMarkdown(content string, width int) string {
	// Cap width to 120 for readability
	if width > 120 {
		width = 120
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	// Remove trailing newline that glamour adds
	return strings.TrimSuffix(rendered, "\n")
}
