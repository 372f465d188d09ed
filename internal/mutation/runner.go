package mutation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ChipperFluff/McSquirrel/internal/nbt"
	"github.com/ChipperFluff/McSquirrel/internal/persistence/record"
	"github.com/ChipperFluff/McSquirrel/internal/saves"
)

// OpTerminate is the journal name of the terminate operation.
const OpTerminate = "terminate"

// Store loads and saves records. *record.Store satisfies it.
type Store interface {
	Load(path string) (*record.Record, error)
	Save(rec *record.Record) error
}

// Snapshotter commits the current state of a directory tree.
type Snapshotter interface {
	Snapshot(message string) error
}

// Backuper copies record files aside before they are overwritten and returns
// where the copies went.
type Backuper interface {
	Backup(opID string, paths ...string) (string, error)
}

// Journal is notified once per operation, whether it succeeded or not.
type Journal interface {
	RecordMutation(e Entry) error
}

type Logger interface {
	Log(msg string)
	Error(msg string)
}

type nopLogger struct{}

func (nopLogger) Log(string)   {}
func (nopLogger) Error(string) {}

// Journals fans an entry out to several journals and joins their errors.
type Journals []Journal

func (js Journals) RecordMutation(e Entry) error {
	var errs []error
	for _, j := range js {
		if j == nil {
			continue
		}
		if err := j.RecordMutation(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// FieldChange is one key write in rendered form. From is empty for inserted keys.
type FieldChange struct {
	Key  string `json:"key"`
	From string `json:"from,omitempty"`
	To   string `json:"to"`
}

// Entry describes one mutation operation for the journals.
type Entry struct {
	OpID         string        `json:"op_id"`
	Op           string        `json:"op"`
	World        string        `json:"world"`
	EntityID     string        `json:"entity_id"`
	Mode         string        `json:"mode,omitempty"`
	ModeForced   bool          `json:"mode_forced,omitempty"`
	EntityPath   string        `json:"entity_path,omitempty"`
	WorldPath    string        `json:"world_path,omitempty"`
	WorldUpdated bool          `json:"world_updated"`
	BackupDir    string        `json:"backup_dir,omitempty"`
	Changes      []FieldChange `json:"changes,omitempty"`
	Status       string        `json:"status"`
	Error        string        `json:"error,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
}

type Result struct {
	Entry   Entry
	Context *saves.Context
}

// Runner executes mutation operations against a saves directory. Only
// SavesDir and Store are required.
type Runner struct {
	SavesDir  string
	Locate    saves.Options
	Store     Store
	Reconcile Reconcile

	// Snapshots returns the snapshotter for a world directory; nil disables
	// snapshots.
	Snapshots func(worldDir string) Snapshotter
	Backups   Backuper
	Journal   Journal
	Logger    Logger
	Observer  Observer

	now func() time.Time
}

func (r *Runner) logger() Logger {
	if r.Logger == nil {
		return nopLogger{}
	}
	return r.Logger
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now().UTC()
	}
	return time.Now().UTC()
}

// Terminate marks entityID in world as dead and switches it to spectator mode.
// In single-record mode the mutated player is copied into the world record
// too. The world record is only saved after the entity record was saved.
func (r *Runner) Terminate(ctx context.Context, world, entityID string) (*Result, error) {
	res := &Result{Entry: Entry{
		OpID:      uuid.NewString(),
		Op:        OpTerminate,
		World:     world,
		EntityID:  entityID,
		StartedAt: r.clock(),
	}}
	err := r.terminate(ctx, res, world, entityID)
	r.finish(res, err)
	return res, err
}

func (r *Runner) terminate(ctx context.Context, res *Result, world, entityID string) error {
	if r.Store == nil {
		return fmt.Errorf("runner has no store")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	log := r.logger()
	e := &res.Entry

	c, err := saves.Resolve(r.SavesDir, world, entityID, r.Locate)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	res.Context = c
	e.EntityID = c.EntityID
	e.Mode = c.Mode.String()
	e.ModeForced = c.Forced
	e.EntityPath = c.EntityPath
	if c.Mode == saves.SingleRecord {
		e.WorldPath = c.WorldPath
	}
	log.Log(fmt.Sprintf("%s: %s is %s (%d player records)", c.World, c.EntityID, c.Mode, c.EntityCount))

	if err := c.Load(r.Store); err != nil {
		return err
	}

	obs := func(key string, before, after nbt.Tag) {
		e.Changes = append(e.Changes, FieldChange{Key: key, From: nbt.Format(before), To: nbt.Format(after)})
		if r.Observer != nil {
			r.Observer(key, before, after)
		}
	}
	if err := Terminate(c.EntityRecord.Root, r.Reconcile, obs); err != nil {
		return fmt.Errorf("terminate %s: %w", c.EntityID, err)
	}
	if c.WorldRecord != nil {
		if err := Propagate(c.WorldRecord.Root, c.EntityRecord.Root, r.Reconcile); err != nil {
			return fmt.Errorf("propagate %s: %w", c.EntityID, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	r.snapshot(c.WorldDir, fmt.Sprintf("mcsquirrel: before terminate %s", c.EntityID))
	if r.Backups != nil {
		paths := []string{c.EntityPath}
		if c.WorldRecord != nil {
			paths = append(paths, c.WorldPath)
		}
		dir, err := r.Backups.Backup(e.OpID, paths...)
		if err != nil {
			log.Error(fmt.Sprintf("backup failed: %v", err))
		} else {
			e.BackupDir = dir
		}
	}

	if err := r.Store.Save(c.EntityRecord); err != nil {
		return fmt.Errorf("save entity record: %w", err)
	}
	if c.WorldRecord != nil {
		if err := r.Store.Save(c.WorldRecord); err != nil {
			return fmt.Errorf("save world record: %w", err)
		}
		e.WorldUpdated = true
	}
	r.snapshot(c.WorldDir, fmt.Sprintf("mcsquirrel: terminated %s", c.EntityID))
	return nil
}

// snapshot is best effort: failures are logged and never abort the operation.
func (r *Runner) snapshot(dir, msg string) {
	if r.Snapshots == nil {
		return
	}
	s := r.Snapshots(dir)
	if s == nil {
		return
	}
	if err := s.Snapshot(msg); err != nil {
		r.logger().Error(fmt.Sprintf("snapshot failed: %v", err))
	}
}

func (r *Runner) finish(res *Result, err error) {
	e := &res.Entry
	e.FinishedAt = r.clock()
	e.Status = StatusOK
	if err != nil {
		e.Status = StatusFailed
		e.Error = err.Error()
		r.logger().Error(fmt.Sprintf("%s %s in %s: %v", e.Op, e.EntityID, e.World, err))
	} else {
		r.logger().Log(fmt.Sprintf("%s %s in %s done (world updated: %t)", e.Op, e.EntityID, e.World, e.WorldUpdated))
	}
	if r.Journal == nil {
		return
	}
	if jerr := r.Journal.RecordMutation(*e); jerr != nil {
		r.logger().Error(fmt.Sprintf("journal: %v", jerr))
	}
}
