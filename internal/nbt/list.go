package nbt

// List is an ordered sequence of tags that all share the element kind fixed
// when the list was built. An empty list still carries its element kind.
type List struct {
	elem  Kind
	items []Tag
}

func (*List) Kind() Kind { return KindList }
func (*List) isTag()     {}

// NewList builds a list of elem-kind tags. Any item of another kind is
// rejected with a TypeMismatchError.
func NewList(elem Kind, items ...Tag) (*List, error) {
	l := &List{elem: elem, items: make([]Tag, 0, len(items))}
	for _, t := range items {
		if err := l.Append(t); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Elem returns the declared element kind.
func (l *List) Elem() Kind { return l.elem }

func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// At returns the i-th element.
func (l *List) At(i int) Tag { return l.items[i] }

// Append adds t to the end of the list.
func (l *List) Append(t Tag) error {
	if t == nil {
		return ErrNilTag
	}
	if t.Kind() != l.elem {
		return &TypeMismatchError{Want: l.elem, Got: t.Kind()}
	}
	l.items = append(l.items, t)
	return nil
}

// Clone returns a deep copy.
func (l *List) Clone() *List {
	if l == nil {
		return nil
	}
	out := &List{elem: l.elem, items: make([]Tag, len(l.items))}
	for i, t := range l.items {
		out.items[i] = Clone(t)
	}
	return out
}
