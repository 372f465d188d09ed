package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ChipperFluff/McSquirrel/internal/saves"
)

// NewWorldsCommand creates the worlds command.
func NewWorldsCommand(rootOpts *RootOptions) *cobra.Command {
	var players bool
	cmd := &cobra.Command{
		Use:   "worlds",
		Short: "List worlds and their player records",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			ws, err := saves.ListWorlds(a.cfg.Minecraft.Saves, a.cfg.RecordExt)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WORLD\tMODE\tPLAYERS")
			for _, w := range ws {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", w.Name, w.Mode, len(w.Entities))
				if !players {
					continue
				}
				for _, id := range w.Entities {
					fmt.Fprintf(tw, "\t\t%s\n", id)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&players, "players", "p", false, "list player ids")
	return cmd
}
