package main

import (
	"fmt"

	"github.com/agrifair/agriwizard/internal/config"
	"github.com/agrifair/agriwizard/internal/recommend"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and backend connectivity",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if config.Exists() {
		fmt.Fprintf(out, "✓ config: %s\n", configSource())
	} else {
		fmt.Fprintln(out, "• config: none found, using defaults (run 'agriwizard setup')")
	}
	fmt.Fprintf(out, "  api_url=%s language=%s timeout=%s\n", cfg.APIURL, cfg.Language, cfg.Timeout)

	client := recommend.New(cfg.APIURL, cfg.Timeout)
	if err := client.Health(cmd.Context()); err != nil {
		fmt.Fprintf(out, "✗ backend: %v\n", err)
		return fmt.Errorf("backend at %s is not healthy", client.BaseURL())
	}
	fmt.Fprintf(out, "✓ backend: %s\n", client.BaseURL())
	return nil
}

// configSource names the config files that were found, project first.
func configSource() string {
	switch {
	case fileExists(config.ProjectPath()) && fileExists(config.GlobalPath()):
		return config.ProjectPath() + " (over " + config.GlobalPath() + ")"
	case fileExists(config.ProjectPath()):
		return config.ProjectPath()
	default:
		return config.GlobalPath()
	}
}
