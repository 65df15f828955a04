/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMinimalClass assembles a tiny but well-formed classfile: one public
// class extending Object, no fields, no methods, one SourceFile attribute.
func buildMinimalClass(t *testing.T) []byte {
	t.Helper()
	w := &byteWriter{}
	w.u32(Magic)
	w.u16(0)  // minor
	w.u16(61) // major

	// constant pool: 1=Utf8("Sample") 2=Class(1) 3=Utf8("java/lang/Object")
	// 4=Class(3) 5=Utf8("SourceFile") 6=Utf8("Sample.java")
	w.u16(7) // constant_pool_count = highest index + 1
	w.u8(TagUtf8)
	w.u16(6)
	w.raw([]byte("Sample"))
	w.u8(TagClass)
	w.u16(1)
	w.u8(TagUtf8)
	w.u16(16)
	w.raw([]byte("java/lang/Object"))
	w.u8(TagClass)
	w.u16(3)
	w.u8(TagUtf8)
	w.u16(10)
	w.raw([]byte("SourceFile"))
	w.u8(TagUtf8)
	w.u16(11)
	w.raw([]byte("Sample.java"))

	w.u16(AccPublic | AccSuper())
	w.u16(2) // this_class
	w.u16(4) // super_class
	w.u16(0) // interfaces_count

	w.u16(0) // fields_count
	w.u16(0) // methods_count

	w.u16(1) // attributes_count
	w.u16(5) // name_index -> "SourceFile"
	w.u32(2) // length
	w.u16(6) // sourcefile_index -> "Sample.java"

	return w.buf
}

// AccSuper is the ACC_SUPER bit (0x0020), not otherwise named in model.go
// since it only matters for class-level access_flags, never field/method.
func AccSuper() uint16 { return 0x0020 }

func TestDecodeMinimalClass(t *testing.T) {
	data := buildMinimalClass(t)
	cf, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, cf)

	name, ok := cf.ThisClassName()
	require.True(t, ok)
	assert.Equal(t, "Sample", name)

	assert.Len(t, cf.Attributes, 1)
	sf, ok := cf.Attributes[0].(*SourceFileAttr)
	require.True(t, ok)
	s, ok := cf.CP.Utf8StringAt(sf.SourceFileIndex)
	require.True(t, ok)
	assert.Equal(t, "Sample.java", s)
}

func TestRoundTripMinimalClass(t *testing.T) {
	data := buildMinimalClass(t)
	cf, err := Decode(data)
	require.NoError(t, err)

	out, err := Encode(cf)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestLongDoubleOccupyTwoSlots(t *testing.T) {
	w := &byteWriter{}
	w.u32(Magic)
	w.u16(0)
	w.u16(61)

	// pool: 1=Long, 3=Utf8("x") -- slot 2 is the Long's placeholder.
	w.u16(4)
	w.u8(TagLong)
	w.u64(123456789)
	w.u8(TagUtf8)
	w.u16(1)
	w.raw([]byte("x"))

	w.u16(AccPublic)
	w.u16(0)
	w.u16(0)
	w.u16(0)
	w.u16(0)
	w.u16(0)
	w.u16(0)

	cf, err := Decode(w.buf)
	require.NoError(t, err)
	assert.Equal(t, TagPlaceholder, int(cf.CP.CpIndex[2].Type))
	assert.Equal(t, TagUtf8, int(cf.CP.CpIndex[3].Type))
}

func TestUnknownConstantTagIsNotFatal(t *testing.T) {
	w := &byteWriter{}
	w.u32(Magic)
	w.u16(0)
	w.u16(61)

	w.u16(2)
	w.u8(0x7f) // unrecognized tag

	w.u16(AccPublic)
	w.u16(0)
	w.u16(0)
	w.u16(0)
	w.u16(0)
	w.u16(0)
	w.u16(0)

	cf, err := Decode(w.buf)
	require.NoError(t, err)
	require.Len(t, cf.CP.Unknowns, 1)
	assert.Equal(t, uint8(0x7f), cf.CP.Unknowns[0].Tag)
}

func TestBadMagicIsFormatError(t *testing.T) {
	data := buildMinimalClass(t)
	data[0] = 0x00
	_, err := Decode(data)
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestSwitchPadding(t *testing.T) {
	assert.Equal(t, 3, switchPadding(0))
	assert.Equal(t, 0, switchPadding(3))
	assert.Equal(t, 2, switchPadding(5))
}

func TestTableSwitchRoundTrip(t *testing.T) {
	// tableswitch at code offset 1 (preceded by a single nop), covering
	// [0,1], default -1. Verifies padding-dependent EncodedLength (R4).
	insns := []Instruction{
		NoOperandInsn{Op: OpNop},
		TableSwitchInsn{Default: 20, Low: 0, High: 1, Offsets: []int32{10, 15}},
	}
	encoded, err := encodeInstructions(insns)
	require.NoError(t, err)

	decoded, err := decodeInstructions(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)

	ts, ok := decoded[1].(TableSwitchInsn)
	require.True(t, ok)
	assert.Equal(t, int32(20), ts.Default)
	assert.Equal(t, []int32{10, 15}, ts.Offsets)
}

func TestInvokeDynamicPreservesReservedBytes(t *testing.T) {
	insns := []Instruction{InvokeDynamicInsn{Index: 7}}
	encoded, err := encodeInstructions(insns)
	require.NoError(t, err)
	require.Len(t, encoded, 5)
	assert.Equal(t, byte(0), encoded[3])
	assert.Equal(t, byte(0), encoded[4])

	decoded, err := decodeInstructions(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, InvokeDynamicInsn{Index: 7}, decoded[0])
}

func TestUnrecognizedAttributeFallsBackToRaw(t *testing.T) {
	w := &byteWriter{}
	w.u32(Magic)
	w.u16(0)
	w.u16(61)

	w.u16(2)
	w.u8(TagUtf8)
	w.u16(7)
	w.raw([]byte("Bogus__"))

	w.u16(AccPublic)
	w.u16(0)
	w.u16(0)
	w.u16(0)
	w.u16(0)
	w.u16(0)

	w.u16(1)
	w.u16(1) // name_index -> "Bogus__"
	w.u32(3)
	w.raw([]byte{1, 2, 3})

	cf, err := Decode(w.buf)
	require.NoError(t, err)
	require.Len(t, cf.Attributes, 1)
	raw, ok := cf.Attributes[0].(*RawAttribute)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, raw.Raw)
}
