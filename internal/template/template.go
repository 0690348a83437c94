// Package template builds the Markdown report of a finished analysis.
package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/agrifair/agriwizard/internal/recommend"
	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/gosimple/slug"
)

// Variables holds the data to be injected into template placeholders.
type Variables struct {
	Title           string // Wizard title
	Date            string // Report date
	Heading         string // Result heading
	CropLabel       string // "Best Crop" label
	Crop            string // Recommended crop
	FertilizerLabel string // "Fertilizer" label
	Fertilizer      string // Recommended fertilizer
	Inputs          string // Formatted inputs
	Prices          string // Formatted market prices
}

// Render replaces {{variable}} placeholders in template with actual values.
// Supports the following variables:
// - {{title}} - Wizard title
// - {{date}} - Report date
// - {{heading}} - Result heading
// - {{crop_label}}, {{crop}} - Recommended crop and its label
// - {{fertilizer_label}}, {{fertilizer}} - Recommended fertilizer and its label
// - {{inputs}} - Formatted inputs
// - {{prices}} - Formatted market prices (empty if none)
func Render(template string, vars Variables) string {
	return strings.NewReplacer(
		"{{title}}", vars.Title,
		"{{date}}", vars.Date,
		"{{heading}}", vars.Heading,
		"{{crop_label}}", vars.CropLabel,
		"{{crop}}", vars.Crop,
		"{{fertilizer_label}}", vars.FertilizerLabel,
		"{{fertilizer}}", vars.Fertilizer,
		"{{inputs}}", vars.Inputs,
		"{{prices}}", vars.Prices,
	).Replace(template)
}

// LoadFromFile loads a template from a file.
// If the file doesn't exist or can't be read, returns an error.
func LoadFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template file %s: %w", path, err)
	}
	return string(data), nil
}

// GetTemplate returns the template content.
// If customPath is non-empty, loads from that file.
// Otherwise returns the default embedded template.
func GetTemplate(customPath string) (string, error) {
	if customPath == "" {
		return DefaultTemplate, nil
	}
	return LoadFromFile(customPath)
}

// BuildConfig holds configuration for building a report.
type BuildConfig struct {
	Snapshot     wizard.Snapshot         // Finished analysis
	Prices       []recommend.MarketPrice // Market prices to append (optional)
	TemplatePath string                  // Path to custom template (optional)
	Now          time.Time               // Report date; zero means time.Now
}

// ErrNoResult is returned when the snapshot has no successful recommendation.
var ErrNoResult = errors.New("no recommendation to report")

// BuildReport formats a finished analysis into the template.
func BuildReport(cfg BuildConfig) (string, error) {
	res, ok := cfg.Snapshot.Result()
	if !ok {
		return "", ErrNoResult
	}
	logger.Debug("Building report for session: %s", cfg.Snapshot.SessionID)

	templateContent, err := GetTemplate(cfg.TemplatePath)
	if err != nil {
		logger.Error("Failed to get template: %v", err)
		return "", fmt.Errorf("failed to get template: %w", err)
	}

	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}

	labels := cfg.Snapshot.Labels()
	vars := Variables{
		Title:           labels.Title,
		Date:            now.Format("2006-01-02"),
		Heading:         res.Heading,
		CropLabel:       res.CropLabel,
		Crop:            res.RecommendedCrop,
		FertilizerLabel: res.FertilizerLabel,
		Fertilizer:      res.Fertilizer,
		Inputs:          formatInputs(labels, cfg.Snapshot.Draft),
		Prices:          formatPrices(cfg.Prices),
	}

	result := Render(templateContent, vars)
	logger.Debug("Report rendered: %d characters", len(result))
	return result, nil
}

// formatInputs lists the submitted inputs, one section per wizard step.
func formatInputs(labels i18n.Labels, d wizard.Draft) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n", labels.Step1))
	sb.WriteString(fmt.Sprintf("- %s: %s\n", labels.Location, d.Location))
	sb.WriteString(fmt.Sprintf("- %s: %s\n", labels.Rainfall, d.Rainfall))
	sb.WriteString(fmt.Sprintf("- %s: %s\n\n", labels.Temp, d.Temperature))

	sb.WriteString(fmt.Sprintf("## %s\n", labels.Step2))
	sb.WriteString(fmt.Sprintf("- %s: %s\n\n", labels.Soil, labels.SoilLabel(string(d.SoilType))))

	sb.WriteString(fmt.Sprintf("## %s\n", labels.Step3))
	sb.WriteString(fmt.Sprintf("- %s: %d\n", labels.Nitrogen, d.Nitrogen))
	sb.WriteString(fmt.Sprintf("- %s: %d\n", labels.Phosphorus, d.Phosphorus))
	sb.WriteString(fmt.Sprintf("- %s: %d\n", labels.Potassium, d.Potassium))
	return sb.String()
}

// formatPrices renders market prices as a table.
// Returns empty string if there are none (section header will be omitted).
func formatPrices(prices []recommend.MarketPrice) string {
	if len(prices) == 0 {
		return ""
	}
	return "\n## Market Prices\n" + PriceTable(prices)
}

// PriceTable renders prices as a Markdown table.
func PriceTable(prices []recommend.MarketPrice) string {
	var sb strings.Builder
	sb.WriteString("| Crop | Mandi (₹/q) | MSP (₹/q) | Status |\n")
	sb.WriteString("|---|---:|---:|---|\n")
	for _, p := range prices {
		status := p.Status
		if p.BelowMSP() {
			status = "⚠️ " + status
		}
		sb.WriteString(fmt.Sprintf("| %s | %.0f | %.0f | %s |\n", p.Crop, p.MandiPrice, p.MSPPrice, status))
	}
	return sb.String()
}

// FileName returns a file name for the report, such as "punjab-wheat.md".
func FileName(snap wizard.Snapshot) string {
	parts := []string{snap.Draft.Location}
	if snap.Recommendation != nil {
		parts = append(parts, snap.Recommendation.RecommendedCrop)
	}
	name := slug.Make(strings.Join(parts, " "))
	if name == "" {
		name = "analysis"
	}
	return name + ".md"
}

// Save writes report into dir under FileName and returns the path.
func Save(dir string, snap wizard.Snapshot, report string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, FileName(snap))
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	logger.Info("Report saved: %s", path)
	return path, nil
}
