package nbt

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wire assembles raw tag bytes by hand so fixtures do not depend on Encoder.
type wire struct{ bytes.Buffer }

func (w *wire) kind(k Kind) *wire { w.WriteByte(byte(k)); return w }
func (w *wire) u16(v uint16) *wire {
	binary.Write(&w.Buffer, binary.BigEndian, v)
	return w
}
func (w *wire) u32(v uint32) *wire {
	binary.Write(&w.Buffer, binary.BigEndian, v)
	return w
}
func (w *wire) u64(v uint64) *wire {
	binary.Write(&w.Buffer, binary.BigEndian, v)
	return w
}
func (w *wire) str(s string) *wire { w.u16(uint16(len(s))); w.WriteString(s); return w }
func (w *wire) named(k Kind, name string) *wire {
	return w.kind(k).str(name)
}

// playerFixture is a small player record touching every tag kind.
func playerFixture() []byte {
	w := &wire{}
	w.named(KindCompound, "")
	w.named(KindFloat, "Health").u32(math.Float32bits(20))
	w.named(KindShort, "DeathTime").u16(0)
	w.named(KindShort, "HurtTime").u16(0)
	w.named(KindInt, "playerGameType").u32(0)
	w.named(KindByte, "OnGround").kind(1)
	w.named(KindLong, "WorldUUIDMost").u64(0x8000000000000001)
	w.named(KindDouble, "FallDistance").u64(math.Float64bits(-0.5))
	w.named(KindFloat, "Odd").u32(0x7fc00abc)
	w.named(KindString, "Dimension").str("minecraft:overworld")
	w.named(KindString, "Nul").u16(2).Write([]byte{0xc0, 0x80})
	w.named(KindByteArray, "Seeds").u32(3).Write([]byte{0, 0x7f, 0xff})
	w.named(KindIntArray, "UUID").u32(4).u32(1).u32(0xfffffffe).u32(3).u32(4)
	w.named(KindLongArray, "Packed").u32(2).u64(1).u64(math.MaxUint64)
	w.named(KindList, "Pos").kind(KindDouble).u32(3).
		u64(math.Float64bits(1.5)).u64(math.Float64bits(64)).u64(math.Float64bits(-3.25))
	w.named(KindList, "Tags").kind(KindEnd).u32(0)
	w.named(KindList, "EnderItems").kind(KindCompound).u32(0)
	w.named(KindList, "Inventory").kind(KindCompound).u32(2)
	w.named(KindByte, "Slot").kind(0)
	w.named(KindString, "id").str("minecraft:stone")
	w.kind(KindEnd)
	w.named(KindByte, "Slot").kind(1)
	w.named(KindCompound, "tag")
	w.named(KindList, "Lore").kind(KindString).u32(1).str("old")
	w.kind(KindEnd)
	w.kind(KindEnd)
	w.named(KindCompound, "abilities")
	w.named(KindByte, "flying").kind(0)
	w.kind(KindEnd)
	w.kind(KindEnd)
	return w.Bytes()
}

func TestRoundTrip_ByteIdentical(t *testing.T) {
	in := playerFixture()

	name, root, err := Unmarshal(in)
	require.NoError(t, err)
	assert.Equal(t, "", name)
	assert.Equal(t, 18, root.Len())

	out, err := Marshal(name, root)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRoundTrip_PreservesTypes(t *testing.T) {
	_, root, err := Unmarshal(playerFixture())
	require.NoError(t, err)

	dt, err := Get[Short](root, "DeathTime")
	require.NoError(t, err)
	assert.Equal(t, Short(0), dt)

	odd, err := Get[Float](root, "Odd")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x7fc00abc), math.Float32bits(float32(odd)))

	tags, err := Get[*List](root, "Tags")
	require.NoError(t, err)
	assert.Equal(t, KindEnd, tags.Elem())

	ender, err := Get[*List](root, "EnderItems")
	require.NoError(t, err)
	assert.Equal(t, KindCompound, ender.Elem())

	uuid, err := Get[IntArray](root, "UUID")
	require.NoError(t, err)
	assert.Equal(t, IntArray{1, -2, 3, 4}, uuid)

	nul, err := Get[String](root, "Nul")
	require.NoError(t, err)
	assert.Equal(t, String("\xc0\x80"), nul)
}

func TestMarshal_ThenUnmarshal(t *testing.T) {
	pos, err := NewList(KindDouble, Double(0.5), Double(70), Double(-12))
	require.NoError(t, err)
	root, err := NewCompound(
		Entry{"Health", Float(0)},
		Entry{"Pos", pos},
		Entry{"Name", String("Steve")},
		Entry{"Big", LongArray{math.MinInt64}},
	)
	require.NoError(t, err)

	b, err := Marshal("level", root)
	require.NoError(t, err)
	name, got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, "level", name)
	assert.True(t, Equal(root, got))
}

func TestUnmarshal_TruncatedEverywhere(t *testing.T) {
	in := playerFixture()
	for n := 0; n < len(in); n++ {
		_, _, err := Unmarshal(in[:n])
		var md *MalformedDataError
		require.ErrorAsf(t, err, &md, "prefix of %d bytes", n)
	}
}

func TestUnmarshal_RejectsUnknownKind(t *testing.T) {
	w := &wire{}
	w.named(KindCompound, "").kind(Kind(13)).str("x")

	_, _, err := Unmarshal(w.Bytes())
	var md *MalformedDataError
	require.ErrorAs(t, err, &md)
	assert.Contains(t, md.Reason, "unknown tag type")
	assert.Equal(t, int64(4), md.Offset)
}

func TestUnmarshal_RejectsNonCompoundRoot(t *testing.T) {
	w := &wire{}
	w.named(KindInt, "").u32(1)

	_, _, err := Unmarshal(w.Bytes())
	var md *MalformedDataError
	require.ErrorAs(t, err, &md)
}

func TestUnmarshal_RejectsTrailingBytes(t *testing.T) {
	in := append(playerFixture(), 0)

	_, _, err := Unmarshal(in)
	var md *MalformedDataError
	require.ErrorAs(t, err, &md)
	assert.Contains(t, md.Reason, "trailing")
}

func TestUnmarshal_RejectsBadLengths(t *testing.T) {
	neg := &wire{}
	neg.named(KindCompound, "").named(KindByteArray, "b").u32(0xffffffff)

	endList := &wire{}
	endList.named(KindCompound, "").named(KindList, "l").kind(KindEnd).u32(1)

	huge := &wire{}
	huge.named(KindCompound, "").named(KindIntArray, "i").u32(math.MaxInt32).u32(7)

	for name, in := range map[string][]byte{
		"negative":       neg.Bytes(),
		"end list":       endList.Bytes(),
		"huge truncated": huge.Bytes(),
	} {
		_, _, err := Unmarshal(in)
		var md *MalformedDataError
		assert.ErrorAs(t, err, &md, name)
	}
}

func TestUnmarshal_DuplicateKeyIsMalformed(t *testing.T) {
	w := &wire{}
	w.named(KindCompound, "")
	w.named(KindByte, "Dead").kind(0)
	w.named(KindByte, "Dead").kind(1)
	w.kind(KindEnd)

	_, _, err := Unmarshal(w.Bytes())
	var md *MalformedDataError
	require.ErrorAs(t, err, &md)
	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "Dead", dup.Key)
}

func nestedLists(depth int) []byte {
	w := &wire{}
	w.named(KindCompound, "").named(KindList, "n")
	for i := 1; i < depth; i++ {
		w.kind(KindList).u32(1)
	}
	w.kind(KindInt).u32(0)
	w.kind(KindEnd)
	return w.Bytes()
}

func TestDecoder_MaxDepth(t *testing.T) {
	// root compound (1) + 3 lists = depth 4
	in := nestedLists(3)

	d := NewDecoder(bytes.NewReader(in))
	d.MaxDepth = 4
	_, _, err := d.DecodeRoot()
	require.NoError(t, err)

	d = NewDecoder(bytes.NewReader(in))
	d.MaxDepth = 3
	_, _, err = d.DecodeRoot()
	var md *MalformedDataError
	require.ErrorAs(t, err, &md)
	assert.Contains(t, md.Reason, "depth")
}

func TestDecoder_DefaultDepthStopsRunawayNesting(t *testing.T) {
	_, _, err := Unmarshal(nestedLists(DefaultMaxDepth + 10))
	var md *MalformedDataError
	require.ErrorAs(t, err, &md)
}

func TestMarshal_RejectsMixedList(t *testing.T) {
	bad := &List{elem: KindInt, items: []Tag{Int(1), Short(2)}}
	root, err := NewCompound(Entry{"l", bad})
	require.NoError(t, err)

	_, err = Marshal("", root)
	var tm *TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, KindShort, tm.Got)
}

func TestMarshal_RejectsOversizedString(t *testing.T) {
	root, err := NewCompound(Entry{"s", String(bytes.Repeat([]byte{'a'}, math.MaxUint16+1))})
	require.NoError(t, err)

	_, err = Marshal("", root)
	assert.Error(t, err)
}
