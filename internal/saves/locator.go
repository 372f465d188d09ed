// Package saves resolves where a world's records live on disk and decides
// whether a world tracks one player or several.
package saves

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ChipperFluff/McSquirrel/internal/persistence/record"
)

const (
	DefaultExt  = "dat"
	PlayerDir   = "playerdata"
	WorldRecord = "level"
)

// Mode classifies a world by how many player records it holds.
type Mode int

const (
	MultiRecord Mode = iota
	SingleRecord
)

func (m Mode) String() string {
	if m == SingleRecord {
		return "single-record"
	}
	return "multi-record"
}

// ModePolicy selects how Resolve decides the Mode. ModeAuto counts player
// records, which is only a heuristic: a multiplayer world that one player has
// ever joined also looks single-record. The other policies skip the count.
type ModePolicy int

const (
	ModeAuto ModePolicy = iota
	ModeSingle
	ModeMulti
)

func (p ModePolicy) String() string {
	switch p {
	case ModeSingle:
		return "single"
	case ModeMulti:
		return "multi"
	default:
		return "auto"
	}
}

func ParseModePolicy(s string) (ModePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "single", "single-record":
		return ModeSingle, nil
	case "multi", "multi-record":
		return ModeMulti, nil
	}
	return ModeAuto, fmt.Errorf("unknown mode %q (want auto|single|multi)", s)
}

// Options tunes Resolve. The zero value means ".dat" files and ModeAuto.
type Options struct {
	Ext    string
	Policy ModePolicy
}

func (o Options) ext() string {
	ext := strings.TrimPrefix(strings.TrimSpace(o.Ext), ".")
	if ext == "" {
		return DefaultExt
	}
	return ext
}

// Context is the working set for one mutation. The records are filled by
// Load; WorldRecord stays nil in multi-record mode.
type Context struct {
	EntityID   string
	World      string
	WorldDir   string
	EntityPath string
	WorldPath  string

	Mode        Mode
	Forced      bool
	EntityCount int

	EntityRecord *record.Record
	WorldRecord  *record.Record
}

// Resolve computes the record paths for entityID in world under savesDir and
// classifies the world. Both records must exist.
func Resolve(savesDir, world, entityID string, opts Options) (*Context, error) {
	id, err := uuid.Parse(strings.TrimSpace(entityID))
	if err != nil {
		return nil, &InvalidEntityIDError{ID: entityID, Err: err}
	}
	if strings.TrimSpace(world) == "" || strings.ContainsAny(world, `/\`) || world == "." || world == ".." {
		return nil, fmt.Errorf("invalid world name %q", world)
	}

	ext := opts.ext()
	worldDir := filepath.Join(savesDir, world)
	c := &Context{
		EntityID:   id.String(),
		World:      world,
		WorldDir:   worldDir,
		EntityPath: filepath.Join(worldDir, PlayerDir, id.String()+"."+ext),
		WorldPath:  filepath.Join(worldDir, WorldRecord+"."+ext),
	}

	ok, err := isFile(c.EntityPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &EntityRecordNotFoundError{EntityID: c.EntityID, Path: c.EntityPath}
	}
	ok, err = isFile(c.WorldPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &WorldRecordNotFoundError{World: world, Path: c.WorldPath}
	}

	n, err := CountEntityRecords(filepath.Join(worldDir, PlayerDir), ext)
	if err != nil {
		return nil, err
	}
	c.EntityCount = n
	switch opts.Policy {
	case ModeSingle:
		c.Mode, c.Forced = SingleRecord, true
	case ModeMulti:
		c.Mode, c.Forced = MultiRecord, true
	default:
		c.Mode = Classify(n)
	}
	return c, nil
}

// Classify maps a player record count to a Mode: exactly one record means
// single-record, anything else multi-record.
func Classify(count int) Mode {
	if count == 1 {
		return SingleRecord
	}
	return MultiRecord
}

// Loader is the part of record.Store that Load needs.
type Loader interface {
	Load(path string) (*record.Record, error)
}

// Load reads the entity record, and the world record in single-record mode.
func (c *Context) Load(l Loader) error {
	ent, err := l.Load(c.EntityPath)
	if err != nil {
		return fmt.Errorf("load entity record: %w", err)
	}
	c.EntityRecord = ent
	if c.Mode != SingleRecord {
		return nil
	}
	w, err := l.Load(c.WorldPath)
	if err != nil {
		return fmt.Errorf("load world record: %w", err)
	}
	c.WorldRecord = w
	return nil
}

// CountEntityRecords counts regular files named <uuid>.<ext> in dir. A
// missing directory counts as zero.
func CountEntityRecords(dir, ext string) (int, error) {
	ids, err := ListEntities(dir, ext)
	return len(ids), err
}

// ListEntities returns the sorted ids of the player records in dir.
func ListEntities(dir, ext string) ([]string, error) {
	ext = (Options{Ext: ext}).ext()
	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range ents {
		if !e.Type().IsRegular() {
			continue
		}
		stem, ok := strings.CutSuffix(e.Name(), "."+ext)
		if !ok {
			continue
		}
		if _, err := uuid.Parse(stem); err != nil {
			continue
		}
		ids = append(ids, stem)
	}
	sort.Strings(ids)
	return ids, nil
}

// WorldInfo summarises one save directory.
type WorldInfo struct {
	Name     string
	Dir      string
	Entities []string
	Mode     Mode
}

// ListWorlds returns every directory under savesDir that holds a world record.
func ListWorlds(savesDir, ext string) ([]WorldInfo, error) {
	ext = (Options{Ext: ext}).ext()
	ents, err := os.ReadDir(savesDir)
	if err != nil {
		return nil, err
	}
	var out []WorldInfo
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(savesDir, e.Name())
		ok, err := isFile(filepath.Join(dir, WorldRecord+"."+ext))
		if err != nil || !ok {
			continue
		}
		ids, err := ListEntities(filepath.Join(dir, PlayerDir), ext)
		if err != nil {
			return nil, err
		}
		out = append(out, WorldInfo{Name: e.Name(), Dir: dir, Entities: ids, Mode: Classify(len(ids))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func isFile(path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return fi.Mode().IsRegular(), nil
}
