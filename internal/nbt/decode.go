package nbt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// DefaultMaxDepth bounds list/compound nesting, matching the limit the game
// itself enforces when reading tags.
const DefaultMaxDepth = 512

// readChunk caps how much is allocated up front for a declared length, so a
// corrupt length field cannot force a huge allocation before data arrives.
const readChunk = 64 << 10

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Decoder reads tag trees from a decompressed byte stream.
type Decoder struct {
	r   *countingReader
	buf [8]byte

	// MaxDepth is the deepest list/compound nesting accepted. The root
	// compound is depth 1. Zero means DefaultMaxDepth.
	MaxDepth int
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: &countingReader{r: r}}
}

// DecodeRoot reads one named root entry. The root must be a compound.
func (d *Decoder) DecodeRoot() (string, *Compound, error) {
	k, err := d.readKind()
	if err != nil {
		return "", nil, err
	}
	if k != KindCompound {
		return "", nil, d.malformed("root tag is "+k.String()+", want Compound", nil)
	}
	name, err := d.readString()
	if err != nil {
		return "", nil, err
	}
	c, err := d.readCompound(1)
	if err != nil {
		return "", nil, err
	}
	return name, c, nil
}

// ExpectEOF fails if any byte remains in the stream.
func (d *Decoder) ExpectEOF() error {
	_, err := io.ReadFull(d.r, d.buf[:1])
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return d.malformed("read", err)
	default:
		return d.malformed("trailing bytes after root tag", nil)
	}
}

// Unmarshal decodes a complete root entry from b and rejects trailing bytes.
func Unmarshal(b []byte) (string, *Compound, error) {
	d := NewDecoder(bytes.NewReader(b))
	name, root, err := d.DecodeRoot()
	if err != nil {
		return "", nil, err
	}
	if err := d.ExpectEOF(); err != nil {
		return "", nil, err
	}
	return name, root, nil
}

func (d *Decoder) maxDepth() int {
	if d.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return d.MaxDepth
}

func (d *Decoder) malformed(reason string, err error) error {
	return &MalformedDataError{Offset: d.r.n, Reason: reason, Err: err}
}

func (d *Decoder) full(p []byte) error {
	if _, err := io.ReadFull(d.r, p); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return d.malformed("truncated stream", io.ErrUnexpectedEOF)
		}
		return d.malformed("read", err)
	}
	return nil
}

func (d *Decoder) readKind() (Kind, error) {
	if err := d.full(d.buf[:1]); err != nil {
		return 0, err
	}
	k := Kind(d.buf[0])
	if !k.Valid() {
		return 0, d.malformed("unknown tag type "+k.String(), nil)
	}
	return k, nil
}

func (d *Decoder) readU16() (uint16, error) {
	if err := d.full(d.buf[:2]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(d.buf[:2]), nil
}

func (d *Decoder) readU32() (uint32, error) {
	if err := d.full(d.buf[:4]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(d.buf[:4]), nil
}

func (d *Decoder) readU64() (uint64, error) {
	if err := d.full(d.buf[:8]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(d.buf[:8]), nil
}

// readLen reads a signed 32-bit length and rejects negative values.
func (d *Decoder) readLen() (int64, error) {
	u, err := d.readU32()
	if err != nil {
		return 0, err
	}
	n := int64(int32(u))
	if n < 0 {
		return 0, d.malformed("negative length", nil)
	}
	return n, nil
}

func (d *Decoder) readBytes(n int64) ([]byte, error) {
	if n <= readChunk {
		b := make([]byte, n)
		if err := d.full(b); err != nil {
			return nil, err
		}
		return b, nil
	}
	var buf bytes.Buffer
	buf.Grow(readChunk)
	if _, err := io.CopyN(&buf, d.r, n); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, d.malformed("truncated stream", io.ErrUnexpectedEOF)
		}
		return nil, d.malformed("read", err)
	}
	return buf.Bytes(), nil
}

// readString reads a u16-length string. The bytes are kept verbatim (the
// game writes Java modified UTF-8) so they re-encode identically.
func (d *Decoder) readString() (string, error) {
	n, err := d.readU16()
	if err != nil {
		return "", err
	}
	b, err := d.readBytes(int64(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *Decoder) readPayload(k Kind, depth int) (Tag, error) {
	switch k {
	case KindByte:
		if err := d.full(d.buf[:1]); err != nil {
			return nil, err
		}
		return Byte(int8(d.buf[0])), nil
	case KindShort:
		u, err := d.readU16()
		return Short(int16(u)), err
	case KindInt:
		u, err := d.readU32()
		return Int(int32(u)), err
	case KindLong:
		u, err := d.readU64()
		return Long(int64(u)), err
	case KindFloat:
		u, err := d.readU32()
		return Float(math.Float32frombits(u)), err
	case KindDouble:
		u, err := d.readU64()
		return Double(math.Float64frombits(u)), err
	case KindByteArray:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		b, err := d.readBytes(n)
		return ByteArray(b), err
	case KindString:
		s, err := d.readString()
		return String(s), err
	case KindIntArray:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		b, err := d.readBytes(n * 4)
		if err != nil {
			return nil, err
		}
		out := make(IntArray, n)
		for i := range out {
			out[i] = int32(binary.BigEndian.Uint32(b[i*4:]))
		}
		return out, nil
	case KindLongArray:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		b, err := d.readBytes(n * 8)
		if err != nil {
			return nil, err
		}
		out := make(LongArray, n)
		for i := range out {
			out[i] = int64(binary.BigEndian.Uint64(b[i*8:]))
		}
		return out, nil
	case KindList:
		return d.readList(depth + 1)
	case KindCompound:
		return d.readCompound(depth + 1)
	default:
		return nil, d.malformed("unexpected tag type "+k.String(), nil)
	}
}

func (d *Decoder) readList(depth int) (*List, error) {
	if depth > d.maxDepth() {
		return nil, d.malformed("nesting depth exceeds limit", nil)
	}
	elem, err := d.readKind()
	if err != nil {
		return nil, err
	}
	n, err := d.readLen()
	if err != nil {
		return nil, err
	}
	if elem == KindEnd && n > 0 {
		return nil, d.malformed("non-empty list of End tags", nil)
	}
	l := &List{elem: elem, items: make([]Tag, 0, min(n, 1024))}
	for i := int64(0); i < n; i++ {
		t, err := d.readPayload(elem, depth)
		if err != nil {
			return nil, err
		}
		l.items = append(l.items, t)
	}
	return l, nil
}

func (d *Decoder) readCompound(depth int) (*Compound, error) {
	if depth > d.maxDepth() {
		return nil, d.malformed("nesting depth exceeds limit", nil)
	}
	c := &Compound{}
	for {
		k, err := d.readKind()
		if err != nil {
			return nil, err
		}
		if k == KindEnd {
			return c, nil
		}
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		t, err := d.readPayload(k, depth)
		if err != nil {
			return nil, err
		}
		if err := c.add(name, t); err != nil {
			return nil, d.malformed("compound entry", err)
		}
	}
}
