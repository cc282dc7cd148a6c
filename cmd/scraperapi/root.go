package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for scraperapi.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scraperapi",
		Short: "Credit card catalogue scraper and extraction API",
		Long: `scraperapi collects credit card details from Indian bank websites.

It opens each bank's card listing page in headless Chromium, captures the
text of every card's detail page (clicking through fee and benefit tabs),
and asks Gemini to turn that text into structured fields.

Results are served over HTTP by 'scraperapi serve' or printed by
'scraperapi scrape'. Set GEMINI_API_KEY to enable extraction.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewBanksCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewInstallCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
