// Package archive keeps copies of record files taken right before a mutation
// overwrites them.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ChipperFluff/McSquirrel/internal/persistence/atomicfile"
)

const metaFile = "meta.json"

type BackupMeta struct {
	OpID      string       `json:"op_id"`
	CreatedAt string       `json:"created_at"`
	Files     []BackupFile `json:"files"`
}

type BackupFile struct {
	Source string `json:"source"`
	Copy   string `json:"copy"`
	Size   int64  `json:"size"`
}

// Backups copies files into <Dir>/<opID>/.
type Backups struct {
	Dir string
	now func() time.Time

	// beforeRename is handed to every restore write; tests use it to
	// simulate a crash.
	beforeRename atomicfile.Hook
}

func New(dataDir string) *Backups {
	return &Backups{Dir: filepath.Join(dataDir, "backups"), now: time.Now}
}

// Backup copies every path into a fresh directory named after opID and
// writes a meta.json describing the copies. It returns the directory.
func (b *Backups) Backup(opID string, paths ...string) (string, error) {
	if opID == "" || filepath.Base(opID) != opID {
		return "", fmt.Errorf("invalid backup id %q", opID)
	}
	dir := filepath.Join(b.Dir, opID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	now := time.Now
	if b.now != nil {
		now = b.now
	}
	meta := BackupMeta{OpID: opID, CreatedAt: now().UTC().Format(time.RFC3339Nano)}
	for i, src := range paths {
		name := filepath.Base(src)
		if i > 0 {
			name = fmt.Sprintf("%d-%s", i, name)
		}
		dst := filepath.Join(dir, name)
		n, err := copyFile(src, dst)
		if err != nil {
			return dir, err
		}
		meta.Files = append(meta.Files, BackupFile{Source: src, Copy: name, Size: n})
	}
	b2, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return dir, err
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), b2, 0o644); err != nil {
		return dir, err
	}
	return dir, nil
}

// ReadMeta loads the meta.json of a backup directory.
func ReadMeta(dir string) (BackupMeta, error) {
	var m BackupMeta
	b, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

// Restore puts every file of backup opID back at its source path. Each
// source is replaced atomically, so a failed restore leaves it as it was.
func (b *Backups) Restore(opID string) (BackupMeta, error) {
	if opID == "" || filepath.Base(opID) != opID {
		return BackupMeta{}, fmt.Errorf("invalid backup id %q", opID)
	}
	dir := filepath.Join(b.Dir, opID)
	m, err := ReadMeta(dir)
	if err != nil {
		return m, err
	}
	for _, f := range m.Files {
		data, err := os.ReadFile(filepath.Join(dir, f.Copy))
		if err != nil {
			return m, fmt.Errorf("restore %s: %w", f.Source, err)
		}
		if err := atomicfile.Write(f.Source, data, b.beforeRename); err != nil {
			return m, fmt.Errorf("restore %s: %w", f.Source, err)
		}
	}
	return m, nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer func() { _ = out.Close() }()

	n, err := io.Copy(out, in)
	if err != nil {
		return n, err
	}
	return n, out.Close()
}
