package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Raj-Taware/credit-scrape/internal/browser"
	"github.com/Raj-Taware/credit-scrape/internal/config"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Download the Playwright driver and Chromium",
		Long: `Install downloads the Playwright driver and the Chromium build it expects.
Run it once on hosts without a preinstalled browser. Set
PLAYWRIGHT_BROWSERS_PATH to choose the install directory.

The static engine (--engine static) does not need a browser.`,
		Args: cobra.NoArgs,
		RunE: runInstallCmd,
	}
}

// runInstallCmd executes the install command.
func runInstallCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	config.LoadEnv(cfg)

	logger := setupLogger(getVerboseFlag(cmd), slog.LevelInfo)

	fmt.Fprintln(cmd.OutOrStdout(), "Installing Playwright driver and Chromium...")
	if err := browser.Install(browser.OptionsFromConfig(cfg, logger)); err != nil {
		return fmt.Errorf("failed to install browser: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Browser installed.")
	return nil
}
