// Package config loads the setup file that tells mcsquirrel where the game
// keeps its saves and how mutations should behave.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/ChipperFluff/McSquirrel/internal/mutation"
	"github.com/ChipperFluff/McSquirrel/internal/nbt"
	"github.com/ChipperFluff/McSquirrel/internal/persistence/atomicfile"
	"github.com/ChipperFluff/McSquirrel/internal/persistence/record"
	"github.com/ChipperFluff/McSquirrel/internal/saves"
)

const (
	Version   = "1.0"
	FileName  = "setup.yaml"
	EnvPrefix = "MCSQUIRREL_"
	AppDir    = "mcsquirrel"
)

//go:embed setup.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("setup.schema.json", schemaJSON)

type Config struct {
	Version   string     `yaml:"version"`
	Minecraft Minecraft  `yaml:"minecraft"`
	Legacy    *Minecraft `yaml:".minecraft,omitempty"`

	DataDir     string `yaml:"data_dir"`
	RecordExt   string `yaml:"record_ext"`
	Mode        string `yaml:"mode"`
	Reconcile   string `yaml:"reconcile"`
	MaxDepth    int    `yaml:"max_depth"`
	MaxPayload  int64  `yaml:"max_payload,omitempty"`
	Compression string `yaml:"compression"`
	Backups     bool   `yaml:"backups"`

	Git     Git     `yaml:"git"`
	Journal Journal `yaml:"journal"`
}

// Minecraft locates the game installation. Saves defaults to <mc_path>/saves.
type Minecraft struct {
	MCPath string `yaml:"mc_path"`
	Saves  string `yaml:"saves"`
}

type Git struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name,omitempty"`
	Email   string `yaml:"email,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

type Journal struct {
	SQLite   bool `yaml:"sqlite"`
	AuditLog bool `yaml:"audit_log"`
}

// overrides holds MCSQUIRREL_* environment values. Unset variables leave the
// file's values alone.
type overrides struct {
	MCPath      string `env:"MC_PATH"`
	Saves       string `env:"SAVES"`
	DataDir     string `env:"DATA_DIR"`
	RecordExt   string `env:"RECORD_EXT"`
	Mode        string `env:"MODE"`
	Reconcile   string `env:"RECONCILE"`
	Compression string `env:"COMPRESSION"`
	MaxDepth    int    `env:"MAX_DEPTH"`
	MaxPayload  int64  `env:"MAX_PAYLOAD"`
	Git         *bool  `env:"GIT"`
	Backups     *bool  `env:"BACKUPS"`
}

// Default returns the configuration `mcsquirrel setup` writes for an
// installation at mcPath.
func Default(mcPath string) Config {
	return Config{
		Version:     Version,
		Minecraft:   Minecraft{MCPath: mcPath},
		DataDir:     "data",
		RecordExt:   saves.DefaultExt,
		Mode:        saves.ModeAuto.String(),
		Reconcile:   mutation.Reject.String(),
		MaxDepth:    nbt.DefaultMaxDepth,
		MaxPayload:  record.DefaultMaxPayload,
		Compression: record.Gzip.String(),
		Backups:     true,
		Git:         Git{Enabled: true},
		Journal:     Journal{SQLite: true, AuditLog: true},
	}
}

// DefaultPath is <user config dir>/mcsquirrel/setup.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppDir, FileName), nil
}

// Load reads the setup file at path, validates it against the embedded schema,
// applies environment overrides and resolves relative paths against the
// file's directory. environ is used instead of the process environment when
// non-nil.
func Load(path string, environ map[string]string) (Config, error) {
	cfg := Config{}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := validateSchema(b); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := cfg.applyEnv(environ); err != nil {
		return cfg, err
	}
	cfg.Normalize(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// validateSchema checks the raw document. JSON files from older releases are
// valid YAML and go through the same path.
func validateSchema(b []byte) error {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("empty setup file")
	}
	// The validator wants encoding/json shaped values.
	j, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(j, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}

func (c *Config) applyEnv(environ map[string]string) error {
	var o overrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	set(&c.Minecraft.MCPath, o.MCPath)
	set(&c.Minecraft.Saves, o.Saves)
	set(&c.DataDir, o.DataDir)
	set(&c.RecordExt, o.RecordExt)
	set(&c.Mode, o.Mode)
	set(&c.Reconcile, o.Reconcile)
	set(&c.Compression, o.Compression)
	if o.MaxDepth != 0 {
		c.MaxDepth = o.MaxDepth
	}
	if o.MaxPayload != 0 {
		c.MaxPayload = o.MaxPayload
	}
	if o.Git != nil {
		c.Git.Enabled = *o.Git
	}
	if o.Backups != nil {
		c.Backups = *o.Backups
	}
	return nil
}

// Normalize folds the legacy ".minecraft" section into Minecraft, fills
// defaults and makes relative paths absolute against baseDir.
func (c *Config) Normalize(baseDir string) {
	if c == nil {
		return
	}
	if c.Legacy != nil {
		if c.Minecraft.MCPath == "" {
			c.Minecraft.MCPath = c.Legacy.MCPath
		}
		if c.Minecraft.Saves == "" {
			c.Minecraft.Saves = c.Legacy.Saves
		}
		c.Legacy = nil
	}
	if strings.TrimSpace(c.Version) == "" {
		c.Version = Version
	}
	if c.Minecraft.MCPath != "" && c.Minecraft.Saves == "" {
		c.Minecraft.Saves = filepath.Join(c.Minecraft.MCPath, "saves")
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = nbt.DefaultMaxDepth
	}
	if c.MaxPayload == 0 {
		c.MaxPayload = record.DefaultMaxPayload
	}
	c.RecordExt = strings.TrimPrefix(strings.TrimSpace(c.RecordExt), ".")
	if c.RecordExt == "" {
		c.RecordExt = saves.DefaultExt
	}
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.Minecraft.MCPath = abs(c.Minecraft.MCPath)
	c.Minecraft.Saves = abs(c.Minecraft.Saves)
	c.DataDir = abs(c.DataDir)
}

func (c Config) Validate() error {
	if c.Minecraft.Saves == "" {
		return fmt.Errorf("minecraft.saves (or minecraft.mc_path) is required")
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be >= 1")
	}
	if c.MaxPayload < 1 {
		return fmt.Errorf("max_payload must be >= 1")
	}
	if _, err := c.ModePolicy(); err != nil {
		return err
	}
	if _, err := c.ReconcileStrategy(); err != nil {
		return err
	}
	if _, err := c.DefaultCompression(); err != nil {
		return err
	}
	if _, err := c.GitTimeout(); err != nil {
		return err
	}
	return nil
}

func (c Config) ModePolicy() (saves.ModePolicy, error) { return saves.ParseModePolicy(c.Mode) }

func (c Config) ReconcileStrategy() (mutation.Reconcile, error) {
	return mutation.ParseReconcile(c.Reconcile)
}

func (c Config) DefaultCompression() (record.Compression, error) {
	return record.ParseCompression(c.Compression)
}

func (c Config) GitTimeout() (time.Duration, error) {
	if strings.TrimSpace(c.Git.Timeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Git.Timeout)
	if err != nil {
		return 0, fmt.Errorf("git.timeout: %w", err)
	}
	return d, nil
}

// Locate returns the locator options the config selects.
func (c Config) Locate() (saves.Options, error) {
	p, err := c.ModePolicy()
	if err != nil {
		return saves.Options{}, err
	}
	return saves.Options{Ext: c.RecordExt, Policy: p}, nil
}

// Write stores c at path as YAML, creating the directory.
func Write(path string, c Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomicfile.Write(path, b, nil)
}
