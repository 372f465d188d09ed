package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ChipperFluff/McSquirrel/internal/mutation"
	"github.com/ChipperFluff/McSquirrel/internal/persistence/indexdb"
	auditlog "github.com/ChipperFluff/McSquirrel/internal/persistence/log"
)

type historyOptions struct {
	world  string
	entity string
	limit  int
	audit  bool
	json   bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past mutations",
		Long: `Show past mutations, newest first.

Reads the SQLite journal, or the compressed audit log with --audit.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.world, "world", "", "only this world")
	cmd.Flags().StringVar(&opts.entity, "player", "", "only this player uuid")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "maximum entries (0 for all)")
	cmd.Flags().BoolVar(&opts.audit, "audit", false, "read the audit log instead of the journal")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print one JSON object per line")
	return cmd
}

func runHistory(rootOpts *RootOptions, opts *historyOptions, cmd *cobra.Command) error {
	if opts.limit < 0 {
		return usageError("--limit must be >= 0")
	}
	a, err := loadApp(rootOpts, cmd)
	if err != nil {
		return err
	}

	var entries []mutation.Entry
	if opts.audit {
		all, err := auditlog.ReadMutations(auditlog.AuditDir(a.cfg.DataDir))
		if err != nil {
			return err
		}
		for i := len(all) - 1; i >= 0; i-- {
			e := all[i]
			if opts.world != "" && e.World != opts.world {
				continue
			}
			if opts.entity != "" && !strings.EqualFold(e.EntityID, opts.entity) {
				continue
			}
			entries = append(entries, e)
			if opts.limit > 0 && len(entries) == opts.limit {
				break
			}
		}
	} else {
		idx, err := indexdb.OpenSQLite(filepath.Join(a.cfg.DataDir, indexdb.FileName))
		if err != nil {
			return err
		}
		defer idx.Close()
		entries, err = idx.RecentMutations(cmd.Context(), indexdb.Filter{World: opts.world, EntityID: opts.entity, Limit: opts.limit})
		if err != nil {
			return err
		}
	}

	if opts.json {
		enc := json.NewEncoder(a.out)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOP\tWORLD\tPLAYER\tSTATUS")
	for _, e := range entries {
		status := e.Status
		if e.Error != "" {
			status += ": " + e.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.StartedAt.Local().Format(time.DateTime), e.Op, e.World, e.EntityID, status)
	}
	return tw.Flush()
}
