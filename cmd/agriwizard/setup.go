package main

import (
	"fmt"
	"os"

	"github.com/agrifair/agriwizard/internal/config"
	"github.com/spf13/cobra"
)

var setupFlags struct {
	project bool
	force   bool
	apiURL  string
	lang    string
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create agriwizard configuration file",
	Long: `Create an agriwizard configuration file with sensible defaults.

By default, creates a global config at ~/.config/agriwizard/agriwizard.yml.
Use --project to create a project-local config in the current directory.`,
	// setup must work even when the existing config is broken
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runSetup,
}

func init() {
	setupCmd.Flags().BoolVarP(&setupFlags.project, "project", "p", false, "Create config in current directory instead of global location")
	setupCmd.Flags().BoolVarP(&setupFlags.force, "force", "f", false, "Overwrite existing config file")
	setupCmd.Flags().StringVar(&setupFlags.apiURL, "api-url", "", "Recommendation backend URL")
	setupCmd.Flags().StringVarP(&setupFlags.lang, "lang", "l", "", "Default language: en or hi")
}

func runSetup(cmd *cobra.Command, args []string) error {
	// Determine target path
	targetPath := config.GlobalPath()
	if setupFlags.project {
		targetPath = config.ProjectPath()
	}

	// Check if config already exists
	if !setupFlags.force && fileExists(targetPath) {
		return fmt.Errorf("config file already exists at %s\n\nUse --force to overwrite", targetPath)
	}

	newCfg := config.Defaults()
	if setupFlags.apiURL != "" {
		newCfg.APIURL = setupFlags.apiURL
	}
	if setupFlags.lang != "" {
		newCfg.Language = setupFlags.lang
	}
	if err := newCfg.Validate(); err != nil {
		return err
	}

	// Write config to target location
	var err error
	if setupFlags.project {
		err = config.WriteProject(newCfg)
	} else {
		err = config.WriteGlobal(newCfg)
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config written to: %s\n\n", targetPath)
	fmt.Fprintln(cmd.OutOrStdout(), "Run 'agriwizard analyze' to get started.")
	return nil
}

// fileExists checks if a file exists (helper for setup and doctor).
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
