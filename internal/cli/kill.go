package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ChipperFluff/McSquirrel/internal/mutation"
	"github.com/ChipperFluff/McSquirrel/internal/nbt"
	"github.com/ChipperFluff/McSquirrel/internal/persistence/archive"
	"github.com/ChipperFluff/McSquirrel/internal/persistence/indexdb"
	auditlog "github.com/ChipperFluff/McSquirrel/internal/persistence/log"
	"github.com/ChipperFluff/McSquirrel/internal/saves"
	"github.com/ChipperFluff/McSquirrel/internal/vcs"
)

type killOptions struct {
	mode      string
	reconcile string
	noGit     bool
	noBackup  bool
}

// NewKillCommand creates the kill command.
func NewKillCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &killOptions{}
	cmd := &cobra.Command{
		Use:   "kill <world> <player-uuid>",
		Short: "Kill a player and switch them to spectator mode",
		Long: `Kill a player: health 0, death and hurt timers set, spectator game mode.

In a world with a single player record the copy of the player inside
level.dat is updated as well. The game must not be running.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKill(cmd.Context(), rootOpts, opts, cmd, args[0], args[1])
		},
	}
	cmd.Flags().StringVar(&opts.mode, "mode", "", "world mode: auto|single|multi (default from setup)")
	cmd.Flags().StringVar(&opts.reconcile, "reconcile", "", "existing field of another type: reject|coerce (default from setup)")
	cmd.Flags().BoolVar(&opts.noGit, "no-git", false, "skip git snapshots")
	cmd.Flags().BoolVar(&opts.noBackup, "no-backup", false, "skip the backup copy")
	return cmd
}

func runKill(ctx context.Context, rootOpts *RootOptions, opts *killOptions, cmd *cobra.Command, world, entityID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := loadApp(rootOpts, cmd)
	if err != nil {
		return err
	}
	locate, err := a.cfg.Locate()
	if err != nil {
		return err
	}
	if opts.mode != "" {
		if locate.Policy, err = saves.ParseModePolicy(opts.mode); err != nil {
			return usageError("--mode: %v", err)
		}
	}
	reconcile, err := a.cfg.ReconcileStrategy()
	if err != nil {
		return err
	}
	if opts.reconcile != "" {
		if reconcile, err = mutation.ParseReconcile(opts.reconcile); err != nil {
			return usageError("--reconcile: %v", err)
		}
	}

	r := &mutation.Runner{
		SavesDir:  a.cfg.Minecraft.Saves,
		Locate:    locate,
		Store:     a.store,
		Reconcile: reconcile,
		Logger:    a.logger,
		Observer: func(key string, before, after nbt.Tag) {
			a.logger.Log(fmt.Sprintf("set %s: %s -> %s", key, nbt.Format(before), nbt.Format(after)))
		},
	}
	if a.cfg.Git.Enabled && !opts.noGit {
		timeout, err := a.cfg.GitTimeout()
		if err != nil {
			return err
		}
		r.Snapshots = func(dir string) mutation.Snapshotter {
			g := vcs.New(dir)
			g.Name, g.Email = a.cfg.Git.Name, a.cfg.Git.Email
			if timeout > 0 {
				g.Timeout = timeout
			}
			return g
		}
	}
	if a.cfg.Backups && !opts.noBackup {
		r.Backups = archive.New(a.cfg.DataDir)
	}

	var journals mutation.Journals
	if a.cfg.Journal.AuditLog {
		l := auditlog.NewMutationLogger(a.cfg.DataDir)
		defer l.Close()
		journals = append(journals, l)
	}
	if a.cfg.Journal.SQLite {
		idx, err := indexdb.OpenSQLite(filepath.Join(a.cfg.DataDir, indexdb.FileName))
		if err != nil {
			a.logger.Error(fmt.Sprintf("journal: %v", err))
		} else {
			defer func() {
				if err := idx.Close(); err != nil {
					a.logger.Error(fmt.Sprintf("journal: %v", err))
				}
			}()
			journals = append(journals, idx)
		}
	}
	if len(journals) > 0 {
		r.Journal = journals
	}

	res, err := r.Terminate(ctx, world, entityID)
	if err != nil {
		return err
	}
	e := res.Entry
	fmt.Fprintf(a.out, "killed %s in %s (%s)\n", e.EntityID, e.World, e.Mode)
	for _, c := range e.Changes {
		from := c.From
		if from == "" {
			from = "(unset)"
		}
		fmt.Fprintf(a.out, "  %s: %s -> %s\n", c.Key, from, c.To)
	}
	if e.WorldUpdated {
		fmt.Fprintf(a.out, "  updated %s\n", e.WorldPath)
	}
	if e.BackupDir != "" {
		fmt.Fprintf(a.out, "  backup %s\n", e.BackupDir)
	}
	return nil
}
