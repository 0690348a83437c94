package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/agrifair/agriwizard/internal/config"
	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/agrifair/agriwizard/internal/tui/theme"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

const (
	logoText1 = "▄▀█ █▀▀ █▀█ █ █ █ █ █ ▀█ ▄▀█ █▀█ █▀▄"
	logoText2 = "█▀█ █▄█ █▀▄ █ ▀▄▀▄▀ █ █▄ █▀█ █▀▄ █▄▀"
)

// Version set via ldflags during build
var version = "dev"

// cfg is loaded once in PersistentPreRunE and shared by every subcommand.
var cfg *config.Config

func main() {
	// Ensure logger is closed on exit
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agriwizard",
	Short: "Crop and fertilizer recommendations from a three-step soil wizard",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
			return fmt.Errorf("failed to configure logger: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

// renderLogo creates the logo with gradient colors
func renderLogo() string {
	t := theme.Current()
	line1 := theme.ApplyGradient(logoText1, t.Primary, t.Secondary)
	line2 := theme.ApplyGradient(logoText2, t.Primary, t.Secondary)
	return strings.Join([]string{line1, line2}, "\n")
}

func init() {
	// Set Long description with logo
	rootCmd.Long = renderLogo() + `

agriwizard walks a farmer through a three-step soil analysis (field location
and climate, soil type, N/P/K levels), submits it to the recommendation
backend and shows the crop and fertilizer to use. Every label is available
in English and Hindi.

Run it interactively in the terminal, or serve the same wizard over HTTP and
MCP for web, mobile and assistant front ends.`

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pricesCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(setupCmd)
}
