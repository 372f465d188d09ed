// Package mutation applies named edits to player records and decides which
// records an edit has to be written to.
package mutation

import (
	"fmt"
	"strings"

	"github.com/ChipperFluff/McSquirrel/internal/nbt"
)

// GameModeSpectator is the game's enumerant for spectator mode.
const GameModeSpectator = 3

// Keys of the single-player copy of the player inside level.dat.
const (
	WorldDataKey   = "Data"
	WorldPlayerKey = "Player"
)

// Reconcile decides what happens when a field being written already holds a
// tag of another kind.
type Reconcile int

const (
	// Reject fails the whole edit before anything is changed.
	Reject Reconcile = iota
	// Coerce overwrites the field with the new kind.
	Coerce
)

func (r Reconcile) String() string {
	if r == Coerce {
		return "coerce"
	}
	return "reject"
}

func ParseReconcile(s string) (Reconcile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return Reject, nil
	case "coerce":
		return Coerce, nil
	}
	return Reject, fmt.Errorf("unknown reconcile strategy %q (want reject|coerce)", s)
}

// Field is one key write.
type Field struct {
	Key string
	Tag nbt.Tag
}

// Observer is told about every field write. Before is nil for inserted keys.
type Observer func(key string, before, after nbt.Tag)

// TerminateFields are the writes that leave a player dead in spectator mode.
func TerminateFields() []Field {
	return []Field{
		{Key: "Health", Tag: nbt.Float(0)},
		{Key: "DeathTime", Tag: nbt.Short(20)},
		{Key: "HurtTime", Tag: nbt.Short(10)},
		{Key: "GameMode", Tag: nbt.Int(GameModeSpectator)},
		{Key: "Dead", Tag: nbt.Byte(1)},
	}
}

// Apply writes fields into c. Under Reject every field is checked before the
// first write, so a mismatch leaves c unchanged.
func Apply(c *nbt.Compound, fields []Field, strategy Reconcile, obs Observer) error {
	if c == nil {
		return fmt.Errorf("apply: nil compound")
	}
	if strategy == Reject {
		for _, f := range fields {
			if err := checkKind(c, f.Key, f.Tag.Kind()); err != nil {
				return err
			}
		}
	}
	for _, f := range fields {
		old, _ := c.Get(f.Key)
		if err := c.Set(f.Key, f.Tag); err != nil {
			return fmt.Errorf("set %s: %w", f.Key, err)
		}
		if obs != nil {
			obs(f.Key, old, f.Tag)
		}
	}
	return nil
}

// Terminate applies TerminateFields to a player compound.
func Terminate(c *nbt.Compound, strategy Reconcile, obs Observer) error {
	return Apply(c, TerminateFields(), strategy, obs)
}

// Propagate stores a copy of player as Data.Player in a level.dat root, the
// copy the game loads in single-player worlds.
func Propagate(world, player *nbt.Compound, strategy Reconcile) error {
	data, err := nbt.Get[*nbt.Compound](world, WorldDataKey)
	if err != nil {
		return fmt.Errorf("world record: %w", err)
	}
	if strategy == Reject {
		if err := checkKind(data, WorldPlayerKey, nbt.KindCompound); err != nil {
			return fmt.Errorf("world record: %w", err)
		}
	}
	return data.Set(WorldPlayerKey, player.Clone())
}

func checkKind(c *nbt.Compound, key string, want nbt.Kind) error {
	old, err := c.Get(key)
	if err != nil {
		return nil
	}
	if old.Kind() != want {
		return &nbt.TypeMismatchError{Key: key, Want: want, Got: old.Kind()}
	}
	return nil
}
