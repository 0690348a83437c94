package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestServer creates a server over a registry backed by rec.
func setupTestServer(t *testing.T, rec wizard.Recommender) *Server {
	t.Helper()
	reg := wizard.NewRegistry(rec, i18n.English)
	t.Cleanup(reg.Close)
	return New(reg, "test")
}

// extractText extracts text from CallToolResult.Content[0]
func extractText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if textContent, ok := result.Content[0].(mcp.TextContent); ok {
		return textContent.Text
	}
	return ""
}

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, h toolHandler, name string, args map[string]any) string {
	t.Helper()
	result, err := h(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err)
	return extractText(result)
}

func decodeView(t *testing.T, text string) wizard.View {
	t.Helper()
	var v wizard.View
	require.NoError(t, json.Unmarshal([]byte(text), &v), "not a view: %s", text)
	return v
}

func TestHandleStart(t *testing.T) {
	srv := setupTestServer(t, nil)

	v := decodeView(t, call(t, srv.handleStart, "wizard-start", nil))
	assert.NotEmpty(t, v.SessionID)
	assert.Equal(t, wizard.StepLocation, v.Step)
	assert.Equal(t, i18n.English, v.Language)
	assert.Equal(t, wizard.PrimaryNext, v.Actions.Primary)
	assert.Equal(t, "Next Step", v.PrimaryLabel)

	v = decodeView(t, call(t, srv.handleStart, "wizard-start", map[string]any{"language": "hi"}))
	assert.Equal(t, i18n.Hindi, v.Language)

	text := call(t, srv.handleStart, "wizard-start", map[string]any{"language": "fr"})
	assert.Contains(t, text, "error:")
}

func TestHandleState_MissingSession(t *testing.T) {
	srv := setupTestServer(t, nil)

	assert.Equal(t, "error: missing or empty 'session_id' parameter",
		call(t, srv.handleState, "wizard-state", map[string]any{}))
	assert.Equal(t, "error: session nope not found",
		call(t, srv.handleState, "wizard-state", map[string]any{"session_id": "nope"}))
}

func TestWizardFlow_PunjabScenario(t *testing.T) {
	var got wizard.Request
	srv := setupTestServer(t, wizard.RecommenderFunc(func(_ context.Context, req wizard.Request) (wizard.Recommendation, error) {
		got = req
		return wizard.Recommendation{RecommendedCrop: "Wheat", Fertilizer: "Urea"}, nil
	}))

	id := decodeView(t, call(t, srv.handleStart, "wizard-start", nil)).SessionID
	set := func(field string, value any) wizard.View {
		t.Helper()
		text := call(t, srv.handleSetField, "wizard-set-field", map[string]any{
			"session_id": id, "field": field, "value": value,
		})
		return decodeView(t, text)
	}
	advance := func() wizard.View {
		t.Helper()
		return decodeView(t, call(t, srv.handleAdvance, "wizard-advance", map[string]any{"session_id": id}))
	}

	set("location", "Punjab")
	set("rainfall", "800")
	set("temperature", float64(27))
	assert.Equal(t, wizard.StepSoil, advance().Step)

	set("soil_type", "black")
	assert.Equal(t, wizard.StepNutrients, advance().Step)

	set("n", "50")
	set("p", "30")
	v := set("k", "40")
	assert.Equal(t, "Analyze Soil", v.PrimaryLabel)

	v = advance()
	assert.Equal(t, wizard.StepResults, v.Step)
	assert.Equal(t, wizard.StatusSucceeded, v.Status)
	require.NotNil(t, v.Result)
	assert.Equal(t, "Wheat", v.Result.RecommendedCrop)
	assert.Equal(t, "Urea", v.Result.Fertilizer)
	assert.Equal(t, 50, got.N)
	assert.Equal(t, wizard.SoilBlack, got.SoilType)

	v = decodeView(t, call(t, srv.handleRestart, "wizard-restart", map[string]any{"session_id": id}))
	assert.Equal(t, wizard.StepLocation, v.Step)
	assert.Nil(t, v.Result)
}

func TestHandleAdvance_Incomplete(t *testing.T) {
	srv := setupTestServer(t, nil)
	id := decodeView(t, call(t, srv.handleStart, "wizard-start", nil)).SessionID

	text := call(t, srv.handleAdvance, "wizard-advance", map[string]any{"session_id": id})
	assert.Equal(t, "error: required fields are empty: location, rainfall, temperature", text)
}

func TestHandleAdvance_Failure(t *testing.T) {
	srv := setupTestServer(t, wizard.RecommenderFunc(func(context.Context, wizard.Request) (wizard.Recommendation, error) {
		return wizard.Recommendation{}, errors.New("connection refused")
	}))
	id := decodeView(t, call(t, srv.handleStart, "wizard-start", nil)).SessionID

	for field, value := range map[string]any{"location": "Punjab", "rainfall": "800", "temperature": "27"} {
		call(t, srv.handleSetField, "wizard-set-field", map[string]any{"session_id": id, "field": field, "value": value})
	}
	call(t, srv.handleAdvance, "wizard-advance", map[string]any{"session_id": id})
	call(t, srv.handleAdvance, "wizard-advance", map[string]any{"session_id": id})

	v := decodeView(t, call(t, srv.handleAdvance, "wizard-advance", map[string]any{"session_id": id}))
	assert.Equal(t, wizard.StepNutrients, v.Step)
	assert.Equal(t, wizard.StatusFailed, v.Status)
	assert.Equal(t, wizard.FailureMessage, v.LastError)
}

func TestHandleSetField_Errors(t *testing.T) {
	srv := setupTestServer(t, nil)
	id := decodeView(t, call(t, srv.handleStart, "wizard-start", nil)).SessionID

	tests := []struct {
		args map[string]any
		want string
	}{
		{map[string]any{"session_id": id, "value": "x"}, "error: missing or empty 'field' parameter"},
		{map[string]any{"session_id": id, "field": "location"}, "error: missing or invalid 'value' parameter"},
		{map[string]any{"session_id": id, "field": "ph", "value": "7"}, `error: unknown field: "ph"`},
		{map[string]any{"session_id": id, "field": "n", "value": "10"}, "error: field is not editable on the current step: n belongs to step 3"},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			assert.Equal(t, tt.want, call(t, srv.handleSetField, "wizard-set-field", tt.args))
		})
	}
}

func TestHandleRetreat_Step1(t *testing.T) {
	srv := setupTestServer(t, nil)
	id := decodeView(t, call(t, srv.handleStart, "wizard-start", nil)).SessionID

	text := call(t, srv.handleRetreat, "wizard-retreat", map[string]any{"session_id": id})
	assert.Equal(t, "error: transition not available at current step", text)
}

func TestHandleToggleLanguage(t *testing.T) {
	srv := setupTestServer(t, nil)
	id := decodeView(t, call(t, srv.handleStart, "wizard-start", nil)).SessionID

	v := decodeView(t, call(t, srv.handleToggleLanguage, "wizard-toggle-language", map[string]any{"session_id": id}))
	assert.Equal(t, i18n.Hindi, v.Language)
	assert.Equal(t, "अगला कदम", v.PrimaryLabel)
}
