package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"chaosq/internal/config"
	"chaosq/internal/storage"
	"chaosq/internal/tui/styles"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past runs recorded in the output directory",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.List(limit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "no runs recorded in %s\n", store.Path())
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), historyTable(items).Render())
		return nil
	},
}

// historyTable lays out runs newest first; widths are measured without
// colour codes so the verdict column stays aligned.
func historyTable(items []storage.HistoryItem) *table.Table {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			it.ID,
			it.Timestamp.Local().Format("2006-01-02 15:04:05"),
			it.Target,
			fmt.Sprintf("%d", it.Users),
			styles.Verdict(it.Summary.Pass),
			fmt.Sprintf("%.2f%%", it.Summary.FailureRate*100),
			fmt.Sprintf("%d", it.Summary.Counters.ConnectionErrors),
			fmt.Sprintf("%.1f", it.Summary.P99Ms),
		})
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	header := cell.Foreground(styles.ColorPrimary).Bold(true)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.ColorBorder)).
		Headers("ID", "WHEN", "TARGET", "USERS", "VERDICT", "FAIL RATE", "CONN ERR", "P99 MS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the history entry for one run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		item, err := store.Get(args[0])
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no run with id %q", args[0])
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(item)
	},
}

func openHistory() (*storage.Store, error) {
	dir := v.GetString(config.KeyOutDir)
	if dir == "" {
		dir = config.DefaultOutDir
	}
	return storage.NewStore(dir)
}

func init() {
	historyListCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
}
