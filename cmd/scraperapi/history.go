package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Raj-Taware/credit-scrape/internal/config"
	"github.com/Raj-Taware/credit-scrape/internal/database"
	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// It reads run history and stored cards from the database written by
// 'scrape' and 'serve'.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs and stored cards",
		Long: `History lists earlier scrape runs recorded in the database, newest first.
With --cards it prints the card records stored by those runs instead.

Examples:
  # List the last 20 runs
  scraperapi history

  # List every stored SBI Card record
  scraperapi history --cards --bank "SBI Card"

  # Output run history in JSON format
  scraperapi history --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list")
	cmd.Flags().Bool("cards", false,
		"List stored card records instead of runs")
	cmd.Flags().StringP("bank", "b", "",
		"With --cards, only list records of this bank")
	cmd.Flags().String("db-dir", "",
		"Directory of the SQLite database (default: XDG data directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// historyOptions selects what runHistory prints.
type historyOptions struct {
	limit int
	cards bool
	bank  string
	json  bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	var opts historyOptions
	var err error

	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if opts.cards, err = cmd.Flags().GetBool("cards"); err != nil {
		return err
	}
	if opts.bank, err = cmd.Flags().GetString("bank"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", opts.limit)
	}

	dbDir := config.XDGDataDir()
	if cmd.Flags().Changed("db-dir") {
		if dbDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return err
		}
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), cmd.OutOrStdout(), db, opts)
}

// runHistory writes runs or stored cards to w.
func runHistory(ctx context.Context, w io.Writer, db *database.CardDB, opts historyOptions) error {
	if opts.cards {
		cards, err := db.ListCardDetails(ctx, opts.bank)
		if err != nil {
			return fmt.Errorf("failed to list cards: %w", err)
		}
		if opts.json {
			return writeIndentedJSON(w, cards)
		}
		return listStoredCards(w, cards)
	}

	runs, err := db.ListRuns(ctx, opts.limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if opts.json {
		return writeIndentedJSON(w, runs)
	}
	return listRuns(w, runs)
}

// listRuns prints run history as a table.
func listRuns(w io.Writer, runs []database.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found in the database.")
		fmt.Fprintln(w, "\nUse 'scraperapi scrape' to run a scrape.")
		return nil
	}

	fmt.Fprintf(w, "Run history (%d runs):\n\n", len(runs))
	fmt.Fprintf(w, "  %-6s  %-20s  %-10s  %5s  %6s  %s\n", "ID", "Started", "Status", "Cards", "Failed", "Banks")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 72))

	for _, r := range runs {
		fmt.Fprintf(w, "  %-6d  %-20s  %-10s  %5d  %6d  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			r.CardCount,
			r.FailedCount,
			strings.Join(r.Banks, ", "),
		)
		if r.Error != "" {
			fmt.Fprintf(w, "          ! %s\n", r.Error)
		}
	}
	return nil
}

// listStoredCards prints stored card records grouped by bank.
func listStoredCards(w io.Writer, cards []*model.CardDetails) error {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No stored cards found in the database.")
		return nil
	}

	fmt.Fprintf(w, "Stored cards (%d):\n", len(cards))
	bank := ""
	for _, c := range cards {
		if c.Bank != bank {
			bank = c.Bank
			fmt.Fprintf(w, "\n%s\n", bank)
		}
		name := model.Value(c.CardName)
		if name == "" {
			name = "(unnamed)"
		}
		if c.LLMFailed {
			name += " [LLM FAILED]"
		}
		fee := model.Value(c.AnnualFee)
		if fee == "" {
			fee = "-"
		}
		fmt.Fprintf(w, "  • %s: %s\n", name, fee)
	}
	return nil
}

func writeIndentedJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
