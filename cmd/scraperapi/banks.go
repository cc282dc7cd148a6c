package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Raj-Taware/credit-scrape/internal/config"
	"github.com/Raj-Taware/credit-scrape/internal/scraper"
)

// NewBanksCmd creates the banks command.
func NewBanksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "banks",
		Short: "List the configured banks",
		Long: `Banks lists every bank that can be scraped, in scrape order, with the
listing page each one starts from. The built-in banks are merged with any
strategy file found (see 'scraperapi init').

Examples:
  # List banks
  scraperapi banks

  # Show full strategies as JSON
  scraperapi banks --json`,
		Args: cobra.NoArgs,
		RunE: runBanksCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Strategy file path (default: .scraperapi in current or home directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output banks and their strategies in JSON format")

	return cmd
}

// runBanksCmd executes the banks command.
func runBanksCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	return listBanks(cmd.OutOrStdout(), cfg)
}

// listBanks writes the configured banks to w.
func listBanks(w io.Writer, cfg *config.Config) error {
	banks := scraper.New(cfg).Banks()

	if cfg.JSONReport {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(banks)
	}

	fmt.Fprintf(w, "Configured banks (%d):\n\n", len(banks))
	for _, b := range banks {
		fmt.Fprintf(w, "  %-16s %s\n", b.Name, b.Strategy.ListURL)
	}
	return nil
}
