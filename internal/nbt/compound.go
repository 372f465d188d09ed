package nbt

import "errors"

var (
	// ErrNilTag is returned when a nil Tag is stored in a compound or list.
	ErrNilTag = errors.New("nbt: nil tag")
	// ErrNilCompound is returned when Set is called on a nil *Compound.
	ErrNilCompound = errors.New("nbt: nil compound")
)

// Entry is one key/value pair of a compound.
type Entry struct {
	Key string
	Tag Tag
}

// Compound is an ordered mapping of unique, non-empty keys to tags.
// Replacing a key keeps its position; new keys are appended.
type Compound struct {
	entries []Entry
	index   map[string]int
}

func (*Compound) Kind() Kind { return KindCompound }
func (*Compound) isTag()     {}

// NewCompound builds a compound from entries in order.
func NewCompound(entries ...Entry) (*Compound, error) {
	c := &Compound{}
	for _, e := range entries {
		if err := c.add(e.Key, e.Tag); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// add appends a new key and fails if it already exists.
func (c *Compound) add(key string, t Tag) error {
	if key == "" {
		return ErrEmptyKey
	}
	if t == nil {
		return ErrNilTag
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if _, ok := c.index[key]; ok {
		return &DuplicateKeyError{Key: key}
	}
	c.index[key] = len(c.entries)
	c.entries = append(c.entries, Entry{Key: key, Tag: t})
	return nil
}

func (c *Compound) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

func (c *Compound) Has(key string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[key]
	return ok
}

// Keys returns the keys in wire order.
func (c *Compound) Keys() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Key
	}
	return out
}

// Entries returns a copy of the entries in wire order. Tags are shared.
func (c *Compound) Entries() []Entry {
	if c == nil {
		return nil
	}
	return append([]Entry(nil), c.entries...)
}

// Get returns the tag stored under key.
func (c *Compound) Get(key string) (Tag, error) {
	if c != nil {
		if i, ok := c.index[key]; ok {
			return c.entries[i].Tag, nil
		}
	}
	return nil, &KeyNotFoundError{Key: key}
}

// Set stores t under key. An existing key keeps its position even when the
// new tag has a different kind; callers that care check the kind first.
func (c *Compound) Set(key string, t Tag) error {
	if c == nil {
		return ErrNilCompound
	}
	if key == "" {
		return ErrEmptyKey
	}
	if t == nil {
		return ErrNilTag
	}
	if i, ok := c.index[key]; ok {
		c.entries[i].Tag = t
		return nil
	}
	return c.add(key, t)
}

// Delete removes key and reports whether it was present. A nil compound has
// nothing to remove.
func (c *Compound) Delete(key string) bool {
	if c == nil {
		return false
	}
	i, ok := c.index[key]
	if !ok {
		return false
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	delete(c.index, key)
	for j := i; j < len(c.entries); j++ {
		c.index[c.entries[j].Key] = j
	}
	return true
}

// Clone returns a deep copy.
func (c *Compound) Clone() *Compound {
	if c == nil {
		return nil
	}
	out := &Compound{
		entries: make([]Entry, len(c.entries)),
		index:   make(map[string]int, len(c.entries)),
	}
	for i, e := range c.entries {
		out.entries[i] = Entry{Key: e.Key, Tag: Clone(e.Tag)}
		out.index[e.Key] = i
	}
	return out
}

// Get returns the tag under key as T. It fails with KeyNotFoundError when the
// key is absent and TypeMismatchError when the stored tag is not a T.
func Get[T Tag](c *Compound, key string) (T, error) {
	var zero T
	t, err := c.Get(key)
	if err != nil {
		return zero, err
	}
	v, ok := t.(T)
	if !ok {
		return zero, &TypeMismatchError{Key: key, Want: zero.Kind(), Got: t.Kind()}
	}
	return v, nil
}
