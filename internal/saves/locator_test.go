package saves

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChipperFluff/McSquirrel/internal/nbt"
	"github.com/ChipperFluff/McSquirrel/internal/persistence/record"
)

const (
	alex  = "0f8c4a2e-8a4c-4d3b-9c62-0a1b2c3d4e5f"
	steve = "7d1a9e52-1b0f-4c43-8f5e-2f3e4d5c6b7a"
)

func writeRecord(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	root, err := nbt.NewCompound(nbt.Entry{Key: "Health", Tag: nbt.Float(20)})
	require.NoError(t, err)
	s := record.NewStore(record.Gzip, 0)
	require.NoError(t, s.Save(s.New(path, "", root)))
}

// newWorld creates <saves>/<name> with level.dat and one record per id.
func newWorld(t *testing.T, saves, name string, ids ...string) string {
	t.Helper()
	dir := filepath.Join(saves, name)
	writeRecord(t, filepath.Join(dir, "level.dat"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, PlayerDir), 0o755))
	for _, id := range ids {
		writeRecord(t, filepath.Join(dir, PlayerDir, id+".dat"))
	}
	return dir
}

func TestResolve_Paths(t *testing.T) {
	saves := t.TempDir()
	dir := newWorld(t, saves, "New World", alex)

	c, err := Resolve(saves, "New World", alex, Options{})
	require.NoError(t, err)
	assert.Equal(t, alex, c.EntityID)
	assert.Equal(t, filepath.Join(dir, "playerdata", alex+".dat"), c.EntityPath)
	assert.Equal(t, filepath.Join(dir, "level.dat"), c.WorldPath)
	assert.Equal(t, SingleRecord, c.Mode)
	assert.False(t, c.Forced)
	assert.Equal(t, 1, c.EntityCount)
}

func TestResolve_CanonicalisesEntityID(t *testing.T) {
	saves := t.TempDir()
	newWorld(t, saves, "w", alex)

	c, err := Resolve(saves, "w", "  0F8C4A2E-8A4C-4D3B-9C62-0A1B2C3D4E5F ", Options{})
	require.NoError(t, err)
	assert.Equal(t, alex, c.EntityID)
}

func TestResolve_Errors(t *testing.T) {
	saves := t.TempDir()
	dir := newWorld(t, saves, "w", alex)

	_, err := Resolve(saves, "w", "not-a-uuid", Options{})
	var bad *InvalidEntityIDError
	require.ErrorAs(t, err, &bad)

	_, err = Resolve(saves, "w", steve, Options{})
	var enf *EntityRecordNotFoundError
	require.ErrorAs(t, err, &enf)
	assert.Equal(t, steve, enf.EntityID)

	require.NoError(t, os.Remove(filepath.Join(dir, "level.dat")))
	_, err = Resolve(saves, "w", alex, Options{})
	var wnf *WorldRecordNotFoundError
	require.ErrorAs(t, err, &wnf)
	assert.Equal(t, filepath.Join(dir, "level.dat"), wnf.Path)

	_, err = Resolve(saves, "../w", alex, Options{})
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, MultiRecord, Classify(0))
	assert.Equal(t, SingleRecord, Classify(1))
	assert.Equal(t, MultiRecord, Classify(2))
	assert.Equal(t, MultiRecord, Classify(7))
}

func TestCountEntityRecords_OnlyMatchesPattern(t *testing.T) {
	dir := filepath.Join(t.TempDir(), PlayerDir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, steve+".dat"), 0o755)) // a directory, not a record
	for _, name := range []string{alex + ".dat", alex + ".dat_old", "notes.dat", alex + ".json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{0}, 0o644))
	}

	n, err := CountEntityRecords(dir, "dat")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = CountEntityRecords(filepath.Join(dir, "missing"), "dat")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestResolve_ModeFromCount(t *testing.T) {
	saves := t.TempDir()
	newWorld(t, saves, "duo", alex, steve)

	c, err := Resolve(saves, "duo", alex, Options{})
	require.NoError(t, err)
	assert.Equal(t, MultiRecord, c.Mode)
	assert.Equal(t, 2, c.EntityCount)
}

func TestResolve_PolicyOverridesHeuristic(t *testing.T) {
	saves := t.TempDir()
	newWorld(t, saves, "server", alex)
	newWorld(t, saves, "duo", alex, steve)

	c, err := Resolve(saves, "server", alex, Options{Policy: ModeMulti})
	require.NoError(t, err)
	assert.Equal(t, MultiRecord, c.Mode)
	assert.True(t, c.Forced)

	c, err = Resolve(saves, "duo", steve, Options{Policy: ModeSingle})
	require.NoError(t, err)
	assert.Equal(t, SingleRecord, c.Mode)
	assert.True(t, c.Forced)
}

func TestResolve_CustomExtension(t *testing.T) {
	saves := t.TempDir()
	dir := filepath.Join(saves, "w")
	writeRecord(t, filepath.Join(dir, "level.nbt"))
	writeRecord(t, filepath.Join(dir, PlayerDir, alex+".nbt"))

	c, err := Resolve(saves, "w", alex, Options{Ext: ".nbt"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "level.nbt"), c.WorldPath)
	assert.Equal(t, SingleRecord, c.Mode)
}

type countingLoader struct {
	store *record.Store
	paths []string
}

func (l *countingLoader) Load(path string) (*record.Record, error) {
	l.paths = append(l.paths, path)
	return l.store.Load(path)
}

func TestContextLoad_WorldOnlyInSingleMode(t *testing.T) {
	saves := t.TempDir()
	newWorld(t, saves, "solo", alex)
	newWorld(t, saves, "duo", alex, steve)
	store := record.NewStore(record.Gzip, 0)

	c, err := Resolve(saves, "solo", alex, Options{})
	require.NoError(t, err)
	l := &countingLoader{store: store}
	require.NoError(t, c.Load(l))
	assert.NotNil(t, c.EntityRecord)
	assert.NotNil(t, c.WorldRecord)
	assert.Equal(t, []string{c.EntityPath, c.WorldPath}, l.paths)

	c, err = Resolve(saves, "duo", alex, Options{})
	require.NoError(t, err)
	l = &countingLoader{store: store}
	require.NoError(t, c.Load(l))
	assert.NotNil(t, c.EntityRecord)
	assert.Nil(t, c.WorldRecord)
	assert.Equal(t, []string{c.EntityPath}, l.paths)
}

func TestListWorlds(t *testing.T) {
	saves := t.TempDir()
	newWorld(t, saves, "b-duo", steve, alex)
	newWorld(t, saves, "a-solo", alex)
	require.NoError(t, os.MkdirAll(filepath.Join(saves, "not-a-world"), 0o755))

	ws, err := ListWorlds(saves, "")
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.Equal(t, "a-solo", ws[0].Name)
	assert.Equal(t, SingleRecord, ws[0].Mode)
	assert.Equal(t, "b-duo", ws[1].Name)
	assert.Equal(t, []string{alex, steve}, ws[1].Entities)
	assert.Equal(t, MultiRecord, ws[1].Mode)
}

func TestParseModePolicy(t *testing.T) {
	for in, want := range map[string]ModePolicy{"": ModeAuto, "auto": ModeAuto, "Single": ModeSingle, "multi-record": ModeMulti} {
		got, err := ParseModePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseModePolicy("solo")
	assert.Error(t, err)
}
