package main

import (
	"fmt"
	"strconv"

	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/agrifair/agriwizard/internal/prompt"
	"github.com/agrifair/agriwizard/internal/recommend"
	"github.com/agrifair/agriwizard/internal/template"
	"github.com/spf13/cobra"
)

var pricesFlags struct {
	raw bool
}

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Show mandi prices against the minimum support price",
	Long: `Show the latest mandi prices reported by the backend next to the
minimum support price (MSP). Crops selling below MSP are flagged.

When the backend is unreachable a built-in sample table is shown instead.`,
	RunE: runPrices,
}

var checkPriceCmd = &cobra.Command{
	Use:   "check <crop> <mandi-price> <msp-price>",
	Short: "Ask the backend whether a mandi price is fair",
	Args:  cobra.ExactArgs(3),
	RunE:  runCheckPrice,
}

func init() {
	pricesCmd.PersistentFlags().BoolVar(&pricesFlags.raw, "raw", false, "Print Markdown instead of styled output")
	pricesCmd.AddCommand(checkPriceCmd)
}

func runPrices(cmd *cobra.Command, args []string) error {
	client := recommend.New(cfg.APIURL, cfg.Timeout)
	prices, fromBackend := client.MarketPricesOrFallback(cmd.Context())

	md := "## Market Prices\n\n" + template.PriceTable(prices)
	if !fromBackend {
		md += "\n_Backend unreachable, showing sample prices._\n"
	}
	writeMarkdown(cmd, md)
	return nil
}

func runCheckPrice(cmd *cobra.Command, args []string) error {
	mandi, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid mandi price %q: %w", args[1], err)
	}
	msp, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid msp price %q: %w", args[2], err)
	}

	client := recommend.New(cfg.APIURL, cfg.Timeout)
	check, err := client.CheckPrice(cmd.Context(), recommend.PriceCheckRequest{
		Crop:       args[0],
		MandiPrice: mandi,
		MSPPrice:   msp,
	})
	if err != nil {
		return err
	}
	logger.Debug("Price check for %s: %s", check.Crop, check.Status)

	md := fmt.Sprintf("## %s\n\n| Mandi | MSP | Status |\n|---|---|---|\n| ₹%.0f | ₹%.0f | **%s** |\n",
		check.Crop, check.MandiPrice, check.MSPPrice, check.Status)
	if check.Suggestion != "" {
		md += "\n" + check.Suggestion + "\n"
	}
	writeMarkdown(cmd, md)
	return nil
}

// writeMarkdown writes md to the command's output, styled unless --raw.
func writeMarkdown(cmd *cobra.Command, md string) {
	if !pricesFlags.raw {
		md = prompt.RenderMarkdown(md, 80)
	}
	fmt.Fprint(cmd.OutOrStdout(), md)
}
