// Package cli is the mcsquirrel command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	// environ replaces the process environment for config overrides in tests.
	environ map[string]string
}

// NewRootCommand creates the root command for the mcsquirrel CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcsquirrel",
		Short: "McSquirrel - Minecraft save editor",
		Long: `Edit Minecraft Java edition save files.

Player and world records are read and written losslessly; every mutation is
snapshotted with git, backed up and journaled.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "setup file (default <user config dir>/mcsquirrel/setup.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &ExitError{Code: ExitCommandError, Message: c.UseLine(), Err: err}
	})

	cmd.AddCommand(NewSetupCommand(opts))
	cmd.AddCommand(NewWorldsCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewKillCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))

	return cmd
}
