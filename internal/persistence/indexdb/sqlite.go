// Package indexdb keeps a queryable SQLite journal of mutation operations.
// The zstd audit log stays the source of truth; the index is a convenience
// for the history command.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ChipperFluff/McSquirrel/internal/mutation"
)

const (
	FileName      = "journal.sqlite"
	schemaVersion = "2"
	queueCapacity = 1024

	// Fixed width so text ordering matches time ordering.
	tsLayout = "2006-01-02T15:04:05.000000000Z"
)

type SQLiteIndex struct {
	db             *sql.DB
	insertMutation *sql.Stmt

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropMutationTotal atomic.Uint64
	failMutationTotal atomic.Uint64

	errMu    sync.Mutex
	writeErr error
}

type reqKind int

const (
	reqMutation reqKind = iota + 1
	reqFlush
)

type req struct {
	kind reqKind

	mutation mutation.Entry
	done     chan error
}

// Stats reports queue pressure and write failures. Mutations are dropped
// rather than blocking the caller when the writer falls behind.
type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropMutationTotal uint64
	// FailMutationTotal counts queued mutations lost to a failed insert or
	// commit. The errors themselves are returned by Flush and Close.
	FailMutationTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	insertMutation, err := db.Prepare(`INSERT OR REPLACE INTO mutations(op_id,op,world,entity_id,mode,mode_forced,entity_path,world_path,world_updated,backup_dir,status,error,started_at,finished_at,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}

	s := &SQLiteIndex{
		db:             db,
		insertMutation: insertMutation,
		ch:             make(chan req, queueCapacity),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS mutations (
			op_id TEXT PRIMARY KEY,
			op TEXT NOT NULL,
			world TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			mode_forced INTEGER NOT NULL,
			entity_path TEXT NOT NULL,
			world_path TEXT NOT NULL,
			world_updated INTEGER NOT NULL,
			backup_dir TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_mutations_entity_started ON mutations(entity_id, started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_mutations_world_started ON mutations(world, started_at);`,
		// Field changes live in raw_json; version 1 kept them in their own table.
		`DROP TABLE IF EXISTS changes;`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','` + schemaVersion + `');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue and closes the database. The error includes any
// write failure not yet reported by Flush.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		_ = s.insertMutation.Close()
		err = errors.Join(s.takeWriteErr(), s.db.Close())
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropMutationTotal: s.dropMutationTotal.Load(),
		FailMutationTotal: s.failMutationTotal.Load(),
	}
}

func (s *SQLiteIndex) fail(n int, err error) {
	s.failMutationTotal.Add(uint64(n))
	s.errMu.Lock()
	s.writeErr = errors.Join(s.writeErr, err)
	s.errMu.Unlock()
}

func (s *SQLiteIndex) takeWriteErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.writeErr
	s.writeErr = nil
	return err
}

// RecordMutation queues e for the writer goroutine. It never blocks; write
// failures surface through Flush, Close and Stats.
func (s *SQLiteIndex) RecordMutation(e mutation.Entry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqMutation, mutation: e}:
	default:
		s.dropMutationTotal.Add(1)
	}
	return nil
}

// Flush waits until everything queued before the call is committed and
// returns the write errors seen since the previous Flush.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan error, 1)
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Filter narrows RecentMutations. Empty fields match everything.
type Filter struct {
	World    string
	EntityID string
	Limit    int
}

// RecentMutations returns committed mutations, newest first.
func (s *SQLiteIndex) RecentMutations(ctx context.Context, f Filter) ([]mutation.Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.World != "" {
		where = append(where, "world = ?")
		args = append(args, f.World)
	}
	if f.EntityID != "" {
		where = append(where, "entity_id = ?")
		args = append(args, strings.ToLower(f.EntityID))
	}
	q := `SELECT raw_json FROM mutations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY started_at DESC, rowid DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []mutation.Entry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e mutation.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		pending       int
		lastCommit    = time.Now()
		commitEvery   = 200
		commitMaxWait = time.Second
	)

	reset := func() {
		tx = nil
		pending = 0
		lastCommit = time.Now()
	}
	begin := func() error {
		if tx != nil {
			return nil
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return fmt.Errorf("begin: %w", err)
		}
		tx = txx
		pending = 0
		lastCommit = time.Now()
		return nil
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.fail(pending, fmt.Errorf("commit: %w", err))
		}
		reset()
	}
	// rollback abandons the open batch; its mutations count as failed.
	rollback := func(cause error) {
		if tx != nil {
			_ = tx.Rollback()
		}
		s.fail(pending, cause)
		reset()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if pending >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			r.done <- s.takeWriteErr()
			continue
		}
		if r.kind != reqMutation {
			continue
		}
		if err := begin(); err != nil {
			s.fail(1, err)
			continue
		}
		e := r.mutation
		raw, err := json.Marshal(e)
		if err != nil {
			s.fail(1, fmt.Errorf("encode %s: %w", e.OpID, err))
			continue
		}
		if _, err := tx.Stmt(s.insertMutation).Exec(
			e.OpID,
			e.Op,
			e.World,
			e.EntityID,
			e.Mode,
			boolInt(e.ModeForced),
			e.EntityPath,
			e.WorldPath,
			boolInt(e.WorldUpdated),
			e.BackupDir,
			e.Status,
			e.Error,
			e.StartedAt.UTC().Format(tsLayout),
			e.FinishedAt.UTC().Format(tsLayout),
			string(raw),
		); err != nil {
			pending++
			rollback(fmt.Errorf("insert %s: %w", e.OpID, err))
			continue
		}
		pending++
		flushIfNeeded()
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
