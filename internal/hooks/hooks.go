// Package hooks runs user commands after an analysis succeeds, for example
// to text the recommendation to a phone or archive it.
package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/agrifair/agriwizard/internal/wizard"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the hooks configuration file.
const ConfigFileName = ".agriwizard.hooks.yml"

// LoadConfig loads the hooks configuration from the working directory.
// Returns nil if the config file doesn't exist (hooks are optional).
// Returns an error only if the file exists but cannot be parsed.
func LoadConfig(workDir string) (*Config, error) {
	configPath := filepath.Join(workDir, ConfigFileName)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("No hooks config found at %s", configPath)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read hooks config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse hooks config: %w", err)
	}

	logger.Debug("Loaded hooks config from %s (version: %d)", configPath, cfg.Version)
	return &cfg, nil
}

// Variables holds the values a hook can reference, as {{name}} placeholders
// in the command or as AGRIWIZARD_* environment variables.
type Variables struct {
	Session    string
	Language   string
	Location   string
	SoilType   string
	Crop       string
	Fertilizer string
}

// VariablesFor extracts the hook variables from a finished analysis.
func VariablesFor(snap wizard.Snapshot) Variables {
	vars := Variables{
		Session:  snap.SessionID,
		Language: string(snap.Language),
		Location: snap.Draft.Location,
		SoilType: string(snap.Draft.SoilType),
	}
	if snap.Recommendation != nil {
		vars.Crop = snap.Recommendation.RecommendedCrop
		vars.Fertilizer = snap.Recommendation.Fertilizer
	}
	return vars
}

func (v Variables) pairs() [][2]string {
	return [][2]string{
		{"session", v.Session},
		{"language", v.Language},
		{"location", v.Location},
		{"soil_type", v.SoilType},
		{"crop", v.Crop},
		{"fertilizer", v.Fertilizer},
	}
}

// Execute runs a hook command and returns its output.
// Placeholders in the command are replaced with shell-quoted values before
// execution. On error, returns an error message as output and nil error
// (graceful degradation). Only returns error for context cancellation.
func Execute(ctx context.Context, hook *HookConfig, workDir string, vars Variables) (string, error) {
	if hook == nil || hook.Command == "" {
		return "", nil
	}

	command := expandVariables(hook.Command, vars)
	logger.Debug("Executing hook command: %s", command)

	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	// Execute command via shell
	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = workDir
	cmd.Env = os.Environ()
	for _, kv := range vars.pairs() {
		cmd.Env = append(cmd.Env, "AGRIWIZARD_"+strings.ToUpper(kv[0])+"="+kv[1])
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	// Check for context cancellation (propagate this)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if execCtx.Err() == context.DeadlineExceeded {
		logger.Warn("Hook command timed out after %ds: %s", timeout, command)
		return fmt.Sprintf("[Hook timed out after %ds]\nPartial output:\n%s", timeout, stdout.String()), nil
	}

	if err != nil {
		logger.Warn("Hook command failed: %v", err)
		output := stdout.String()
		if stderr.Len() > 0 {
			output += "\n[stderr]\n" + stderr.String()
		}
		return fmt.Sprintf("[Hook command failed: %v]\n%s", err, output), nil
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		logger.Debug("Hook stderr: %s", stderr.String())
		output += "\n[stderr]\n" + stderr.String()
	}

	logger.Debug("Hook executed successfully, output length: %d bytes", len(output))
	return output, nil
}

// ExecuteAllPiped runs hooks in order and joins the output of those with
// pipe_output set. Only returns error for context cancellation.
func ExecuteAllPiped(ctx context.Context, hooks []*HookConfig, workDir string, vars Variables) (string, error) {
	var outputs []string
	for _, hook := range hooks {
		out, err := Execute(ctx, hook, workDir, vars)
		if err != nil {
			return "", err
		}
		if hook.PipeOutput && out != "" {
			outputs = append(outputs, out)
		}
	}
	return strings.Join(outputs, "\n"), nil
}

// expandVariables replaces {{variable}} placeholders in the command string.
// Values come from the farmer and the backend, so each one is quoted.
func expandVariables(command string, vars Variables) string {
	result := command
	for _, kv := range vars.pairs() {
		result = strings.ReplaceAll(result, "{{"+kv[0]+"}}", shellQuote(kv[1]))
	}
	return result
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Runner fires the on_result hooks once each time a session reaches a
// successful result. Hooks run in the background so observers never block
// the session.
type Runner struct {
	ctx     context.Context
	hooks   []*HookConfig
	workDir string
	output  func(string)

	mu        sync.Mutex
	succeeded map[string]bool // sessions whose last snapshot was a success
	wg        sync.WaitGroup
}

// NewRunner creates a runner for cfg. output receives piped hook output and
// may be nil. A nil cfg yields a runner that does nothing.
func NewRunner(ctx context.Context, cfg *Config, workDir string, output func(string)) *Runner {
	r := &Runner{
		ctx:       ctx,
		workDir:   workDir,
		output:    output,
		succeeded: make(map[string]bool),
	}
	if cfg != nil {
		r.hooks = cfg.Hooks.OnResult
	}
	return r
}

// Observer returns a wizard.Observer that triggers the hooks.
func (r *Runner) Observer() wizard.Observer {
	return func(snap wizard.Snapshot) {
		if len(r.hooks) == 0 {
			return
		}
		ok := snap.Status == wizard.StatusSucceeded && snap.Recommendation != nil

		r.mu.Lock()
		fire := ok && !r.succeeded[snap.SessionID]
		if ok {
			r.succeeded[snap.SessionID] = true
		} else {
			delete(r.succeeded, snap.SessionID)
		}
		r.mu.Unlock()

		if !fire {
			return
		}
		vars := VariablesFor(snap)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			out, err := ExecuteAllPiped(r.ctx, r.hooks, r.workDir, vars)
			if err != nil {
				logger.Debug("on_result hooks for %s cancelled: %v", vars.Session, err)
				return
			}
			if out != "" && r.output != nil {
				r.output(out)
			}
		}()
	}
}

// Wait blocks until every started hook has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
