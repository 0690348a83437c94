package template

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/recommend"
	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func punjabSnapshot(lang i18n.Language) wizard.Snapshot {
	return wizard.Snapshot{
		SessionID: "01J0000000000000000000TEST",
		Step:      wizard.StepResults,
		Language:  lang,
		Status:    wizard.StatusSucceeded,
		Recommendation: &wizard.Recommendation{
			RecommendedCrop: "Wheat",
			Fertilizer:      "Urea",
		},
		Draft: wizard.Draft{
			Location:    "Punjab",
			Rainfall:    "800",
			Temperature: "27",
			SoilType:    wizard.SoilBlack,
			Nitrogen:    50,
			Phosphorus:  30,
			Potassium:   40,
		},
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     Variables
		want     string
	}{
		{
			name:     "simple substitution",
			template: "{{crop_label}}: {{crop}}",
			vars:     Variables{CropLabel: "Best Crop", Crop: "Wheat"},
			want:     "Best Crop: Wheat",
		},
		{
			name:     "empty values",
			template: "{{crop}}{{prices}}",
			vars:     Variables{Crop: "Rice"},
			want:     "Rice",
		},
		{
			name:     "placeholder not replaced if variable missing",
			template: "{{crop}} {{unknown}}",
			vars:     Variables{Crop: "Wheat"},
			want:     "Wheat {{unknown}}",
		},
		{
			name:     "values are not expanded again",
			template: "{{crop}}",
			vars:     Variables{Crop: "{{fertilizer}}", Fertilizer: "Urea"},
			want:     "{{fertilizer}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, tt.vars))
		})
	}
}

func TestGetTemplate(t *testing.T) {
	got, err := GetTemplate("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplate, got)

	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, os.WriteFile(path, []byte("crop={{crop}}"), 0o644))
	got, err = GetTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, "crop={{crop}}", got)

	_, err = GetTemplate(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}

func TestBuildReport_English(t *testing.T) {
	report, err := BuildReport(BuildConfig{
		Snapshot: punjabSnapshot(i18n.English),
		Now:      time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Contains(t, report, "# Crop Analysis Wizard\n2026-10-19")
	assert.Contains(t, report, "## Recommended for You")
	assert.Contains(t, report, "| **Best Crop** | Wheat |")
	assert.Contains(t, report, "| **Fertilizer** | Urea |")
	assert.Contains(t, report, "- Farm Location: Punjab")
	assert.Contains(t, report, "- Soil Type: Black Soil (काली मिट्टी)")
	assert.Contains(t, report, "- Nitrogen (N): 50")
	assert.NotContains(t, report, "Market Prices")
	assert.NotContains(t, report, "{{")
}

func TestBuildReport_HindiWithPrices(t *testing.T) {
	report, err := BuildReport(BuildConfig{
		Snapshot: punjabSnapshot(i18n.Hindi),
		Prices:   recommend.FallbackPrices(),
	})
	require.NoError(t, err)

	assert.Contains(t, report, "| **सर्वोत्तम फसल** | Wheat |")
	assert.Contains(t, report, "## Market Prices")
	assert.Contains(t, report, "| Wheat | 2100 | 2275 | ⚠️ Below MSP |")
	assert.Contains(t, report, "| Rice | 3200 | 2183 | Above MSP |")
}

func TestBuildReport_CustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.md")
	require.NoError(t, os.WriteFile(path, []byte("{{crop}} + {{fertilizer}}"), 0o644))

	report, err := BuildReport(BuildConfig{Snapshot: punjabSnapshot(i18n.English), TemplatePath: path})
	require.NoError(t, err)
	assert.Equal(t, "Wheat + Urea", report)
}

func TestBuildReport_NoResult(t *testing.T) {
	snap := punjabSnapshot(i18n.English)
	snap.Status = wizard.StatusFailed
	snap.Recommendation = nil

	_, err := BuildReport(BuildConfig{Snapshot: snap})
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "punjab-wheat.md", FileName(punjabSnapshot(i18n.English)))

	snap := punjabSnapshot(i18n.English)
	snap.Draft.Location = "  "
	snap.Recommendation = nil
	assert.Equal(t, "analysis.md", FileName(snap))
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	snap := punjabSnapshot(i18n.English)

	path, err := Save(dir, snap, "# report")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "punjab-wheat.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# report", string(data))
}
