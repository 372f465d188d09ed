package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ChipperFluff/McSquirrel/internal/mutation"
)

const alex = "0f8c4a2e-8a4c-4d3b-9c62-0a1b2c3d4e5f"

func entry(id, world string, at time.Time) mutation.Entry {
	return mutation.Entry{
		OpID:         id,
		Op:           mutation.OpTerminate,
		World:        world,
		EntityID:     alex,
		Mode:         "single-record",
		WorldUpdated: true,
		Changes: []mutation.FieldChange{
			{Key: "Health", From: "20f", To: "0f"},
			{Key: "Dead", To: "1b"},
		},
		Status:     mutation.StatusOK,
		StartedAt:  at,
		FinishedAt: at.Add(time.Millisecond),
	}
}

func TestSQLiteIndex_RecordMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	idx, err := OpenSQLite(path)
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, idx.RecordMutation(entry("op-1", "w", at)))
	require.NoError(t, idx.Close())
	// Closed indexes ignore writes.
	require.NoError(t, idx.RecordMutation(entry("op-2", "w", at)))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var (
		world, status string
		updated       int
	)
	require.NoError(t, db.QueryRow(`SELECT world,status,world_updated FROM mutations WHERE op_id='op-1'`).Scan(&world, &status, &updated))
	assert.Equal(t, "w", world)
	assert.Equal(t, mutation.StatusOK, status)
	assert.Equal(t, 1, updated)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM mutations`).Scan(&n))
	assert.Equal(t, 1, n)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='changes'`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestSQLiteIndex_RecentMutations(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	defer idx.Close()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, idx.RecordMutation(entry("old", "w", base)))
	require.NoError(t, idx.RecordMutation(entry("other", "creative", base.Add(time.Minute))))
	require.NoError(t, idx.RecordMutation(entry("new", "w", base.Add(2*time.Minute))))
	require.NoError(t, idx.Flush(context.Background()))

	all, err := idx.RecentMutations(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"new", "other", "old"}, []string{all[0].OpID, all[1].OpID, all[2].OpID})
	assert.Equal(t, entry("new", "w", base.Add(2*time.Minute)), all[0])

	w, err := idx.RecentMutations(context.Background(), Filter{World: "w", Limit: 1})
	require.NoError(t, err)
	require.Len(t, w, 1)
	assert.Equal(t, "new", w[0].OpID)

	byID, err := idx.RecentMutations(context.Background(), Filter{EntityID: "0F8C4A2E-8A4C-4D3B-9C62-0A1B2C3D4E5F"})
	require.NoError(t, err)
	assert.Len(t, byID, 3)
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqMutation}

	require.NoError(t, s.RecordMutation(mutation.Entry{OpID: "dropped"}))

	st := s.Stats()
	assert.Equal(t, uint64(1), st.DropMutationTotal)
	assert.Equal(t, 1, st.QueueDepth)
	assert.Equal(t, 1, st.QueueCapacity)
}

func TestSQLiteIndex_WriteFailuresAreReported(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	// Pull the database out from under the writer.
	require.NoError(t, idx.db.Close())

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, idx.RecordMutation(entry("op-1", "w", at)))
	err = idx.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin")
	assert.Equal(t, uint64(1), idx.Stats().FailMutationTotal)

	// Reported errors are not repeated.
	require.NoError(t, idx.Flush(context.Background()))

	require.NoError(t, idx.RecordMutation(entry("op-2", "w", at)))
	assert.Error(t, idx.Close())
	assert.Equal(t, uint64(2), idx.Stats().FailMutationTotal)
	assert.Equal(t, uint64(0), idx.Stats().DropMutationTotal)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}
