package nbt

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encoder writes tag trees in the same layout Decoder reads.
type Encoder struct {
	w   *bufio.Writer
	buf [8]byte
	err error
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriterSize(w, 64*1024)}
}

// EncodeRoot writes root as a single named root entry and flushes.
func (e *Encoder) EncodeRoot(name string, root *Compound) error {
	if root == nil {
		return ErrNilTag
	}
	e.writeByte(byte(KindCompound))
	if err := e.writeString(name); err != nil {
		return err
	}
	if err := e.writePayload(root); err != nil {
		return err
	}
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// Marshal encodes root under name.
func Marshal(name string, root *Compound) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).EncodeRoot(name, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *Encoder) writeByte(b byte) {
	e.buf[0] = b
	e.write(e.buf[:1])
}

func (e *Encoder) writeU16(v uint16) {
	binary.BigEndian.PutUint16(e.buf[:2], v)
	e.write(e.buf[:2])
}

func (e *Encoder) writeU32(v uint32) {
	binary.BigEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *Encoder) writeU64(v uint64) {
	binary.BigEndian.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

func (e *Encoder) writeLen(n int) error {
	if n > math.MaxInt32 {
		return fmt.Errorf("nbt: length %d exceeds int32", n)
	}
	e.writeU32(uint32(n))
	return nil
}

func (e *Encoder) writeString(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("nbt: string of %d bytes exceeds %d", len(s), math.MaxUint16)
	}
	e.writeU16(uint16(len(s)))
	e.write([]byte(s))
	return nil
}

func (e *Encoder) writePayload(t Tag) error {
	switch v := t.(type) {
	case Byte:
		e.writeByte(byte(v))
	case Short:
		e.writeU16(uint16(v))
	case Int:
		e.writeU32(uint32(v))
	case Long:
		e.writeU64(uint64(v))
	case Float:
		e.writeU32(math.Float32bits(float32(v)))
	case Double:
		e.writeU64(math.Float64bits(float64(v)))
	case ByteArray:
		if err := e.writeLen(len(v)); err != nil {
			return err
		}
		e.write(v)
	case String:
		return e.writeString(string(v))
	case IntArray:
		if err := e.writeLen(len(v)); err != nil {
			return err
		}
		for _, x := range v {
			e.writeU32(uint32(x))
		}
	case LongArray:
		if err := e.writeLen(len(v)); err != nil {
			return err
		}
		for _, x := range v {
			e.writeU64(uint64(x))
		}
	case *List:
		return e.writeList(v)
	case *Compound:
		return e.writeCompound(v)
	default:
		return fmt.Errorf("nbt: cannot encode %T", t)
	}
	return nil
}

func (e *Encoder) writeList(l *List) error {
	if l.elem == KindEnd && len(l.items) > 0 {
		return &TypeMismatchError{Want: KindEnd, Got: l.items[0].Kind()}
	}
	for _, t := range l.items {
		if t == nil {
			return ErrNilTag
		}
		if t.Kind() != l.elem {
			return &TypeMismatchError{Want: l.elem, Got: t.Kind()}
		}
	}
	e.writeByte(byte(l.elem))
	if err := e.writeLen(len(l.items)); err != nil {
		return err
	}
	for _, t := range l.items {
		if err := e.writePayload(t); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeCompound(c *Compound) error {
	for _, en := range c.entries {
		e.writeByte(byte(en.Tag.Kind()))
		if err := e.writeString(en.Key); err != nil {
			return err
		}
		if err := e.writePayload(en.Tag); err != nil {
			return err
		}
	}
	e.writeByte(byte(KindEnd))
	return nil
}
