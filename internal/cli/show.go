package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChipperFluff/McSquirrel/internal/nbt"
	"github.com/ChipperFluff/McSquirrel/internal/saves"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		worldRecord bool
		keys        []string
	)
	cmd := &cobra.Command{
		Use:   "show <world> <player-uuid>",
		Short: "Print a player's record",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			opts, err := a.cfg.Locate()
			if err != nil {
				return err
			}
			c, err := saves.Resolve(a.cfg.Minecraft.Saves, args[0], args[1], opts)
			if err != nil {
				return err
			}
			path := c.EntityPath
			if worldRecord {
				path = c.WorldPath
			}
			rec, err := a.store.Load(path)
			if err != nil {
				return err
			}
			a.logger.Log(fmt.Sprintf("%s: %s, %d keys", path, rec.Compression, rec.Root.Len()))

			if len(keys) == 0 {
				return nbt.Dump(a.out, rec.Name, rec.Root)
			}
			for _, k := range keys {
				t, err := rec.Root.Get(k)
				if err != nil {
					return err
				}
				if err := nbt.Dump(a.out, k, t); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&worldRecord, "world-record", false, "print the world record instead")
	cmd.Flags().StringSliceVarP(&keys, "key", "k", nil, "only print these top-level keys")
	return cmd
}
