package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ChipperFluff/McSquirrel/internal/persistence/archive"
)

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <op-id>",
		Short: "Put back the records a mutation overwrote",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			if filepath.Base(args[0]) != args[0] {
				return usageError("invalid op id %q", args[0])
			}
			m, err := archive.New(a.cfg.DataDir).Restore(args[0])
			if err != nil {
				return err
			}
			for _, f := range m.Files {
				fmt.Fprintf(a.out, "restored %s\n", f.Source)
			}
			return nil
		},
	}
}
