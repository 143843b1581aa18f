package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"romforge/internal/ripper"
	"romforge/internal/tui"
)

var ripVerbose bool

var ripCmd = &cobra.Command{
	Use:   "rip <path>",
	Short: "Extract known sub-resources from a file or every file under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		sess, cleanup, err := newSession(current)
		if err != nil {
			return err
		}
		defer cleanup()

		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !info.IsDir() {
			res := sess.OpenFile(path)
			printRipResult(out, res)
			if res.Code == ripper.IOFailure {
				return res.Err
			}
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var (
			updates chan ripper.ProgressUpdate
			uiDone  = make(chan struct{})
		)
		if isTerminal(os.Stdout) {
			updates = make(chan ripper.ProgressUpdate, 64)
			program := tea.NewProgram(tui.NewModel(updates))
			go func() {
				_, _ = program.Run()
				close(uiDone)
			}()
		} else {
			close(uiDone)
		}

		summary, results, err := sess.RipAll(ctx, path, updates)
		if updates != nil {
			close(updates)
		}
		<-uiDone
		if err != nil {
			return err
		}

		for _, res := range results {
			if res.Code == ripper.UnrecognizedFormat && !ripVerbose {
				continue
			}
			printRipResult(out, res)
		}
		fmt.Fprintln(out, tui.RenderSummary([]tui.SummaryRow{
			{Label: "Files", Value: fmt.Sprint(summary.Total)},
			{Label: "Ripped", Value: fmt.Sprint(summary.Ripped)},
			{Label: "Unrecognized", Value: fmt.Sprint(summary.Unrecognized)},
			{Label: "Corrupt", Value: fmt.Sprint(summary.Corrupt)},
			{Label: "Failed", Value: fmt.Sprint(summary.Failed)},
			{Label: "Written", Value: humanize.IBytes(uint64(summary.BytesWritten))},
		}))
		if ctx.Err() != nil {
			return errors.New("interrupted")
		}
		return nil
	},
}

func init() {
	ripCmd.Flags().BoolVarP(&ripVerbose, "verbose", "v", false, "also list files with no recognized format")
	rootCmd.AddCommand(ripCmd)
}
