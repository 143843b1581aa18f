package cmd

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"romforge/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently opened folders and ripped files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if current.cfg.Paths.HistoryDB == "" {
			return errors.New("history is disabled (paths.history_db is empty)")
		}
		store, err := history.Open(current.cfg.Paths.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()

		events, err := store.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, dimStyle.Render("No history yet."))
			return nil
		}

		rows := make([][]string, len(events))
		for i, ev := range events {
			target := ev.Subject
			if ev.Artifact != "" {
				target += " -> " + ev.Artifact
			}
			rows[i] = []string{humanize.Time(ev.CreatedAt), string(ev.Kind), ev.Outcome, ev.Path, target}
		}
		fmt.Fprintln(out, renderTable([]string{"When", "Kind", "Outcome", "Path", "Result"}, rows, nil))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show")
	rootCmd.AddCommand(historyCmd)
}
