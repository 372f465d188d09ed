// Package record loads and saves single NBT record files such as
// playerdata/<uuid>.dat and level.dat.
package record

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ChipperFluff/McSquirrel/internal/nbt"
	"github.com/ChipperFluff/McSquirrel/internal/persistence/atomicfile"
)

// Record is one root compound together with where it came from. Changes to
// Root stay in memory until Store.Save succeeds.
type Record struct {
	Path        string
	Name        string
	Root        *nbt.Compound
	Compression Compression
}

type Store struct {
	// DefaultCompression is used for records created with New.
	DefaultCompression Compression
	// MaxDepth bounds tag nesting on load; zero means nbt.DefaultMaxDepth.
	MaxDepth int
	// MaxPayload bounds the decompressed size of a record; zero means
	// DefaultMaxPayload.
	MaxPayload int64

	// beforeRename runs after the temp file is complete and before it
	// replaces the target. Tests use it to simulate a crash.
	beforeRename atomicfile.Hook
}

// DefaultMaxPayload is far above any real player or level record.
const DefaultMaxPayload int64 = 64 << 20

func NewStore(def Compression, maxDepth int) *Store {
	return &Store{DefaultCompression: def, MaxDepth: maxDepth, MaxPayload: DefaultMaxPayload}
}

// New returns an unsaved record at path using the default compression.
func (s *Store) New(path, name string, root *nbt.Compound) *Record {
	return &Record{Path: path, Name: name, Root: root, Compression: s.DefaultCompression}
}

// Load reads, decompresses and decodes the record at path. The compression
// format is detected from the file's magic bytes, not its extension.
func (s *Store) Load(path string) (*Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &RecordNotFoundError{Path: path}
		}
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	comp := Sniff(raw)
	limit := s.MaxPayload
	if limit <= 0 {
		limit = DefaultMaxPayload
	}
	payload, err := decompress(comp, raw, limit)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, &nbt.MalformedDataError{Reason: comp.String() + " stream", Err: err})
	}

	d := nbt.NewDecoder(bytes.NewReader(payload))
	d.MaxDepth = s.MaxDepth
	name, root, err := d.DecodeRoot()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := d.ExpectEOF(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return &Record{Path: path, Name: name, Root: root, Compression: comp}, nil
}

// Save encodes rec in the format it was loaded in and atomically replaces the
// file at rec.Path. On failure the previous file is left untouched.
func (s *Store) Save(rec *Record) error {
	if rec == nil || rec.Root == nil {
		return fmt.Errorf("save: empty record")
	}
	payload, err := nbt.Marshal(rec.Name, rec.Root)
	if err != nil {
		return fmt.Errorf("save %s: %w", rec.Path, err)
	}
	data, err := compress(rec.Compression, payload)
	if err != nil {
		return &IOError{Op: "compress", Path: rec.Path, Err: err}
	}
	return s.writeAtomic(rec.Path, data)
}

func (s *Store) writeAtomic(path string, data []byte) error {
	err := atomicfile.Write(path, data, s.beforeRename)
	if err == nil {
		return nil
	}
	var oe *atomicfile.OpError
	if errors.As(err, &oe) {
		return &IOError{Op: oe.Op, Path: path, Err: oe.Err}
	}
	return &IOError{Op: "write", Path: path, Err: err}
}
