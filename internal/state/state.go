// Package state remembers the inputs of the last terminal analysis so the
// next run starts where the farmer left off.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/agrifair/agriwizard/internal/wizard"
)

// FileName is the state file inside the data directory.
const FileName = "last-run.json"

// State holds preferences that carry across runs.
type State struct {
	Language i18n.Language `json:"language,omitempty"`
	Draft    *wizard.Draft `json:"draft,omitempty"`
}

// FromSnapshot captures the language and inputs of snap.
func FromSnapshot(snap wizard.Snapshot) *State {
	draft := snap.Draft
	return &State{Language: snap.Language, Draft: &draft}
}

// Options turns the state into session options. fallback is used when no
// language was remembered.
func (s *State) Options(fallback i18n.Language) []wizard.Option {
	lang := fallback
	if s.Language.Valid() {
		lang = s.Language
	}
	opts := []wizard.Option{wizard.WithLanguage(lang)}
	if s.Draft != nil {
		opts = append(opts, wizard.WithDraft(*s.Draft))
	}
	return opts
}

// Load reads the state from dataDir.
// Returns an empty state if the file doesn't exist or on error.
func Load(dataDir string) *State {
	path := filepath.Join(dataDir, FileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read state file: %v", err)
		}
		return &State{}
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		logger.Warn("Failed to parse state JSON: %v", err)
		return &State{}
	}
	return &st
}

// Save writes the state to dataDir, creating it if needed.
func Save(dataDir string, st *State) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	path := filepath.Join(dataDir, FileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}

	logger.Debug("State saved to %s", path)
	return nil
}
