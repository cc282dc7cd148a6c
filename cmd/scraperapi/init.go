package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Raj-Taware/credit-scrape/internal/config"
)

//go:embed templates/strategies.yaml
var strategyTemplate embed.FS

// configFileName is the default strategy file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new strategy file",
		Long: `Initialize creates a new .scraperapi strategy file in the current directory.

The generated file includes:
- The strategies of the four built-in banks, ready to edit
- The default scrape order
- A commented example of an additional bank

Examples:
  # Create .scraperapi in current directory
  scraperapi init

  # Create the strategy file at a specific path
  scraperapi init -o banks.yaml

  # Force overwrite existing file
  scraperapi init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the strategy file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing strategy file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("strategy file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := strategyTemplate.ReadFile("templates/strategies.yaml")
	if err != nil {
		return fmt.Errorf("failed to read strategy template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write strategy file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created strategy file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to adjust bank strategies such as:")
	fmt.Fprintln(out, "  - Listing page URLs and card selectors")
	fmt.Fprintln(out, "  - Tabs and buttons clicked on detail pages")
	fmt.Fprintln(out, "  - Additional banks")

	return nil
}
