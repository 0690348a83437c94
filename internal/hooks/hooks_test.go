package hooks

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	content := `version: 1
hooks:
  on_result:
    - command: "echo {{crop}}"
      timeout: 5
      pipe_output: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))
	cfg, err = LoadConfig(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)
	require.Len(t, cfg.Hooks.OnResult, 1)
	assert.Equal(t, "echo {{crop}}", cfg.Hooks.OnResult[0].Command)
	assert.Equal(t, 5, cfg.Hooks.OnResult[0].Timeout)
	assert.True(t, cfg.Hooks.OnResult[0].PipeOutput)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("hooks: [oops"), 0644))
	_, err = LoadConfig(dir)
	assert.ErrorContains(t, err, "failed to parse hooks config")
}

func TestExecuteAllPiped(t *testing.T) {
	ctx := context.Background()
	workDir := t.TempDir()
	vars := Variables{Session: "test", Crop: "Wheat"}

	tests := []struct {
		name     string
		hooks    []*HookConfig
		expected string
	}{
		{
			name:     "no hooks",
			hooks:    []*HookConfig{},
			expected: "",
		},
		{
			name: "single hook with pipe_output true",
			hooks: []*HookConfig{
				{Command: "echo 'piped'", Timeout: 5, PipeOutput: true},
			},
			expected: "piped\n",
		},
		{
			name: "single hook with pipe_output false",
			hooks: []*HookConfig{
				{Command: "echo 'not piped'", Timeout: 5, PipeOutput: false},
			},
			expected: "",
		},
		{
			name: "multiple hooks mixed pipe_output",
			hooks: []*HookConfig{
				{Command: "echo 'first piped'", Timeout: 5, PipeOutput: true},
				{Command: "echo 'not piped'", Timeout: 5, PipeOutput: false},
				{Command: "echo 'second piped'", Timeout: 5, PipeOutput: true},
			},
			expected: "first piped\n\nsecond piped\n",
		},
		{
			name: "placeholder expansion",
			hooks: []*HookConfig{
				{Command: "echo grow {{crop}}", Timeout: 5, PipeOutput: true},
			},
			expected: "grow Wheat\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExecuteAllPiped(ctx, tt.hooks, workDir, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExecute_QuotesAndEnv(t *testing.T) {
	vars := Variables{Location: "Punjab", Crop: "Wheat'; rm -rf x; echo '"}
	hook := &HookConfig{Command: `printf '%s|%s' {{crop}} "$AGRIWIZARD_LOCATION"`, Timeout: 5}

	out, err := Execute(context.Background(), hook, t.TempDir(), vars)
	require.NoError(t, err)
	assert.Equal(t, "Wheat'; rm -rf x; echo '|Punjab", out)
}

func TestExecute_Failure(t *testing.T) {
	hook := &HookConfig{Command: "echo partial; echo oops >&2; exit 3", Timeout: 5}

	out, err := Execute(context.Background(), hook, t.TempDir(), Variables{})
	require.NoError(t, err)
	assert.Contains(t, out, "[Hook command failed: exit status 3]")
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "[stderr]\noops")
}

func TestExecute_Timeout(t *testing.T) {
	hook := &HookConfig{Command: "sleep 5", Timeout: 1}

	out, err := Execute(context.Background(), hook, t.TempDir(), Variables{})
	require.NoError(t, err)
	assert.Contains(t, out, "[Hook timed out after 1s]")
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute(ctx, &HookConfig{Command: "echo hi"}, t.TempDir(), Variables{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_Empty(t *testing.T) {
	out, err := Execute(context.Background(), nil, "", Variables{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func fillPunjab(t *testing.T, s *wizard.Session) {
	t.Helper()
	ctx := context.Background()
	for f, v := range map[wizard.Field]any{
		wizard.FieldLocation: "Punjab", wizard.FieldRainfall: "800", wizard.FieldTemperature: "27",
	} {
		_, err := s.SetField(f, v)
		require.NoError(t, err)
	}
	_, err := s.Advance(ctx)
	require.NoError(t, err)
	_, err = s.Advance(ctx)
	require.NoError(t, err)
}

func TestRunner_FiresOncePerResult(t *testing.T) {
	rec := wizard.RecommenderFunc(func(context.Context, wizard.Request) (wizard.Recommendation, error) {
		return wizard.Recommendation{RecommendedCrop: "Wheat", Fertilizer: "Urea"}, nil
	})
	s := wizard.NewSession(rec, wizard.WithID("s1"))
	t.Cleanup(s.Close)

	var mu sync.Mutex
	var outputs []string
	cfg := &Config{Hooks: HooksConfig{OnResult: []*HookConfig{
		{Command: "echo {{session}} {{crop}} {{fertilizer}}", Timeout: 5, PipeOutput: true},
	}}}
	runner := NewRunner(context.Background(), cfg, t.TempDir(), func(out string) {
		mu.Lock()
		defer mu.Unlock()
		outputs = append(outputs, out)
	})
	s.Subscribe(runner.Observer())

	fillPunjab(t, s)
	_, err := s.Submit(context.Background())
	require.NoError(t, err)

	// staying on the result does not fire again
	_, err = s.ToggleLanguage()
	require.NoError(t, err)

	_, err = s.Restart()
	require.NoError(t, err)
	fillPunjab(t, s)
	_, err = s.Submit(context.Background())
	require.NoError(t, err)

	runner.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"s1 Wheat Urea\n", "s1 Wheat Urea\n"}, outputs)
}

func TestRunner_SessionWithoutIDGetsULID(t *testing.T) {
	rec := wizard.RecommenderFunc(func(context.Context, wizard.Request) (wizard.Recommendation, error) {
		return wizard.Recommendation{RecommendedCrop: "Rice", Fertilizer: "DAP"}, nil
	})
	s := wizard.NewSession(rec)
	t.Cleanup(s.Close)

	var mu sync.Mutex
	var outputs []string
	cfg := &Config{Hooks: HooksConfig{OnResult: []*HookConfig{
		{Command: `echo {{session}} "$AGRIWIZARD_SESSION"`, Timeout: 5, PipeOutput: true},
	}}}
	runner := NewRunner(context.Background(), cfg, t.TempDir(), func(out string) {
		mu.Lock()
		defer mu.Unlock()
		outputs = append(outputs, out)
	})
	s.Subscribe(runner.Observer())

	fillPunjab(t, s)
	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	runner.Wait()

	id := s.Snapshot().SessionID
	require.Len(t, id, 26)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{id + " " + id + "\n"}, outputs)
}

func TestRunner_NoConfig(t *testing.T) {
	runner := NewRunner(context.Background(), nil, "", nil)
	runner.Observer()(wizard.Snapshot{SessionID: "x", Status: wizard.StatusSucceeded, Recommendation: &wizard.Recommendation{}})
	runner.Wait()
}
