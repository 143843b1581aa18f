package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"romforge/internal/config"
	"romforge/internal/editor"
	"romforge/internal/session"
	"romforge/internal/tui"
)

var (
	openLang     string
	openBrowse   bool
	openCategory string
)

var openCmd = &cobra.Command{
	Use:   "open [path]",
	Short: "Recognize a game dump folder and list its editors, or rip a single file",
	Long:  "open resolves a dump folder to its game and lists the available editors. A file is ripped instead. Without a path the last opened folder is used.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := current.cfg.Session.LastPath
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return errors.New("no path given and no previously opened folder")
		}

		category, err := editor.ParseCategory(openCategory)
		if err != nil {
			return err
		}

		sess, cleanup, err := newSession(current)
		if err != nil {
			return err
		}
		defer cleanup()

		if openLang != "" {
			lang, err := editor.ParseLanguage(openLang)
			if err != nil {
				return err
			}
			sess.SetLanguage(lang)
		}

		requested := sess.Language()
		out := cmd.OutOrStdout()
		outcome, err := sess.Open(path)
		if err != nil {
			return err
		}
		if outcome.Rip != nil {
			printRipResult(out, *outcome.Rip)
			return nil
		}

		ed := outcome.Editor
		printEditor(out, ed, requested, category)

		if openBrowse && isTerminal(os.Stdout) {
			final, err := tea.NewProgram(tui.NewBrowser(ed, category)).Run()
			if err != nil {
				return err
			}
			if b, ok := final.(tui.Browser); ok {
				if c, ok := b.Chosen(); ok {
					fmt.Fprintf(out, "%s %s (%s)\n", headingStyle.Render("Selected"), c.Label, c.ID)
				}
			}
		}

		return finish(sess)
	},
}

func printEditor(w io.Writer, ed editor.Editor, requested editor.Language, category editor.Category) {
	fmt.Fprintln(w, headingStyle.Render(ed.Game().String()))
	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Location:"), ed.Location())
	lang := ed.Language()
	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Language:"), lang)
	if lang != requested {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%s text is not available for this game; using %s.", requested, lang)))
	}

	controls := ed.Controls(category)
	editor.SortControls(controls)
	if len(controls) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No editors available."))
		return
	}
	rows := make([][]string, len(controls))
	for i, c := range controls {
		rows[i] = []string{c.Category.String(), c.Label, c.ID}
	}
	fmt.Fprintln(w, renderTable([]string{"Category", "Editor", "ID"}, rows, nil))
}

// finish saves and closes the session, then persists its state.
func finish(sess *session.Session) error {
	closeErr := sess.Close()
	st := sess.State()
	if err := config.SaveState(current.configPath, st.Language, st.LastPath); err != nil {
		current.logger.Warn("session state not saved", slog.String("config", current.configPath), slog.Any("error", err))
	}
	return closeErr
}

func init() {
	openCmd.Flags().StringVar(&openLang, "lang", "", "text language as ordinal, code or name (e.g. 2, en, English)")
	openCmd.Flags().BoolVar(&openBrowse, "browse", false, "browse editors by category in an interactive view")
	openCmd.Flags().StringVar(&openCategory, "category", "", "only list editors in this category")
	rootCmd.AddCommand(openCmd)
}
