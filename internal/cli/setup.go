package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChipperFluff/McSquirrel/internal/config"
)

type setupOptions struct {
	mcPath  string
	saves   string
	dataDir string
	noGit   bool
	force   bool
}

// NewSetupCommand creates the setup command.
func NewSetupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &setupOptions{}
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write the setup file",
		Long: `Write a setup file pointing at the Minecraft installation.

Without --mc-path the platform's default launcher directory is used.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.mcPath, "mc-path", "", "Minecraft installation directory")
	cmd.Flags().StringVar(&opts.saves, "saves", "", "saves directory (default <mc-path>/saves)")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "where journals and backups go (default next to the setup file)")
	cmd.Flags().BoolVar(&opts.noGit, "no-git", false, "disable git snapshots")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing setup file")
	return cmd
}

func runSetup(rootOpts *RootOptions, opts *setupOptions, cmd *cobra.Command) error {
	path, err := rootOpts.configPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !opts.force {
		return usageError("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	mcPath := opts.mcPath
	if mcPath == "" {
		if mcPath, err = config.DefaultInstallDir(); err != nil {
			return err
		}
	}
	cfg := config.Default(mcPath)
	cfg.Minecraft.Saves = opts.saves
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	cfg.Git.Enabled = !opts.noGit

	if err := config.Write(path, cfg); err != nil {
		return fmt.Errorf("write setup: %w", err)
	}
	// Load back so a broken combination is reported now, not on first use.
	loaded, err := config.Load(path, rootOpts.environ)
	if err != nil {
		return err
	}
	if _, err := os.Stat(loaded.Minecraft.Saves); err != nil {
		rootOpts.newLogger(cmd).Error(fmt.Sprintf("saves directory %s: %v", loaded.Minecraft.Saves, err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\nsaves: %s\ndata: %s\n", path, loaded.Minecraft.Saves, loaded.DataDir)
	return nil
}
