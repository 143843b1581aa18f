package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"romforge/internal/editor"
	"romforge/internal/games"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the game layouts romforge recognizes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := games.Registry()
		if err != nil {
			return err
		}
		profiles := reg.Profiles()
		rows := make([][]string, 0, len(profiles))
		for _, p := range profiles {
			keys := make([]string, len(p.Markers))
			for i, m := range p.Markers {
				keys[i] = m.Key()
			}
			rows = append(rows, []string{
				p.Game.Name,
				p.Game.Title,
				fmt.Sprint(p.Game.Generation),
				fmt.Sprint(p.Priority),
				editor.MaxLanguage(p.Game.Generation).String(),
				strings.Join(keys, "\n"),
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"Game", "Title", "Gen", "Priority", "Last language", "Markers"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
		))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
