package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agrifair/agriwizard/internal/hooks"
	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/agrifair/agriwizard/internal/prompt"
	"github.com/agrifair/agriwizard/internal/recommend"
	"github.com/agrifair/agriwizard/internal/state"
	"github.com/agrifair/agriwizard/internal/template"
	tuiwizard "github.com/agrifair/agriwizard/internal/tui/wizard"
	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/spf13/cobra"
)

var analyzeFlags struct {
	plain     bool
	lang      string
	reportDir string
	template  string
	prices    bool
	fresh     bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the soil analysis wizard",
	Long: `Run the three-step soil analysis wizard and show the recommended crop
and fertilizer.

By default the wizard runs full-screen. Use --plain for line-by-line prompts
(screen readers, dumb terminals, piped sessions).

The language and inputs of the last run are remembered in the data directory
and prefilled next time; --fresh starts from empty fields. Commands listed
under on_result in .agriwizard.hooks.yml run after each recommendation.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeFlags.plain, "plain", false, "Use line prompts instead of the full-screen wizard")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.lang, "lang", "l", "", "Start language: en or hi (default: from config)")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.reportDir, "save", "s", "", "Save a Markdown report of the result into this directory")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.template, "template", "t", "", "Custom report template file")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.prices, "prices", false, "Append current market prices to the report")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.fresh, "fresh", false, "Ignore the inputs remembered from the last run")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	lang, err := i18n.ParseLanguage(cfg.Language)
	if err != nil {
		return err
	}

	last := &state.State{}
	if !analyzeFlags.fresh {
		last = state.Load(cfg.DataDir)
	}
	opts := last.Options(lang)
	if analyzeFlags.lang != "" {
		flagLang, err := i18n.ParseLanguage(analyzeFlags.lang)
		if err != nil {
			return err
		}
		opts = append(opts, wizard.WithLanguage(flagLang))
	}

	reportDir := cfg.ReportDir
	if analyzeFlags.reportDir != "" {
		reportDir = analyzeFlags.reportDir
	}
	templatePath := cfg.Template
	if analyzeFlags.template != "" {
		templatePath = analyzeFlags.template
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := recommend.New(cfg.APIURL, cfg.Timeout)
	session := wizard.NewSession(client, opts...)
	defer session.Close()
	logger.Info("Starting analysis %s against %s", session.ID(), client.BaseURL())

	hookCfg, err := hooks.LoadConfig(".")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	hookOutput := func(s string) { logger.Info("on_result hook: %s", s) }
	if analyzeFlags.plain {
		hookOutput = func(s string) { fmt.Fprintln(out, s) }
	}
	runner := hooks.NewRunner(ctx, hookCfg, ".", hookOutput)
	session.Subscribe(runner.Observer())
	defer runner.Wait()

	defer func() {
		if err := state.Save(cfg.DataDir, state.FromSnapshot(session.Snapshot())); err != nil {
			logger.Warn("Failed to remember inputs: %v", err)
		}
	}()

	if analyzeFlags.plain {
		pcfg := prompt.Config{
			Driver:       prompt.NewSurveyDriver(),
			Out:          out,
			ReportDir:    reportDir,
			TemplatePath: templatePath,
			Styled:       true,
		}
		if analyzeFlags.prices {
			pcfg.Prices = client
		}
		_, err := prompt.Run(ctx, session, pcfg)
		if errors.Is(err, prompt.ErrAborted) {
			return nil
		}
		return err
	}

	snap, err := tuiwizard.Run(ctx, session)
	if errors.Is(err, tuiwizard.ErrCancelled) {
		logger.Info("Analysis %s cancelled", session.ID())
		return nil
	}
	if err != nil {
		return err
	}

	if reportDir == "" {
		return nil
	}
	build := template.BuildConfig{Snapshot: snap, TemplatePath: templatePath}
	if analyzeFlags.prices {
		build.Prices, _ = client.MarketPricesOrFallback(ctx)
	}
	report, err := template.BuildReport(build)
	if errors.Is(err, template.ErrNoResult) {
		return nil
	}
	if err != nil {
		return err
	}
	path, err := template.Save(reportDir, snap, report)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Report written to: %s\n", path)
	return nil
}
