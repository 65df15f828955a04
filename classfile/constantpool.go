/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

// Constant pool tags, exactly as defined by the classfile format (JVMS §4.4).
const (
	TagUtf8               = 1
	TagInteger             = 3
	TagFloat               = 4
	TagLong                = 5
	TagDouble              = 6
	TagClass               = 7
	TagString              = 8
	TagFieldref            = 9
	TagMethodref           = 10
	TagInterfaceMethodref  = 11
	TagNameAndType         = 12
	TagMethodHandle        = 15
	TagMethodType          = 16
	TagDynamic             = 17
	TagInvokeDynamic       = 18
	TagModule              = 19
	TagPackage             = 20

	// TagPlaceholder is not a wire tag: it marks the dummy slot at index 0
	// and the padding slot that follows every Long/Double entry.
	TagPlaceholder = 0

	// TagUnknown is not a wire tag either: it marks a CpEntry whose real
	// tag byte was not recognized by decodeConstant (Constant::Unknown).
	TagUnknown = 0xff
)

// CpEntry is the on-wire indexed slot: a type tag plus an index ("slot")
// into the type-specific array that actually holds the entry's data. This
// two-level indirection -- an index of indices -- is the same layout a
// from-scratch classfile reader uses for its constant pool, and it is what
// lets Rewriter.intern_* operations append to a single typed array without
// renumbering every other entry.
type CpEntry struct {
	Type uint8
	Slot int
}

type RefEntry struct {
	ClassIndex  uint16 // index of a CpEntry of Type Class
	NameAndType uint16 // index of a CpEntry of Type NameAndType
}

type NameAndTypeEntry struct {
	NameIndex uint16
	DescIndex uint16
}

type MethodHandleEntry struct {
	RefKind  uint8
	RefIndex uint16
}

type DynamicEntry struct {
	BootstrapIndex uint16
	NameAndType    uint16
}

// UnknownEntry preserves a constant pool tag this codec does not recognize.
// The decoder records only the tag: an unknown tag's body length is not
// known, so no body bytes are read and Raw stays empty.
type UnknownEntry struct {
	Tag uint8
	Raw []byte
}

// ConstantPool is the indexed sequence of constant-pool entries for one
// classfile. Entries are never owned by pointer; everything else in the
// Classfile refers to constants purely by CpIndex position, so the pool can
// be mutated (interned into) without invalidating any other reference.
type ConstantPool struct {
	// CpIndex[0] is always the reserved placeholder. CpIndex[i] for i>=1
	// is either a real entry or, immediately after a Long/Double entry, a
	// second Placeholder slot (R5).
	CpIndex []CpEntry

	Utf8Refs      [][]byte
	IntConsts     []int32
	FloatConsts   []float32
	LongConsts    []int64
	DoubleConsts  []float64
	ClassRefs     []uint16 // index of a Utf8 CpEntry
	StringRefs    []uint16 // index of a Utf8 CpEntry
	FieldRefs     []RefEntry
	MethodRefs    []RefEntry
	InterfaceRefs []RefEntry
	NameAndTypes  []NameAndTypeEntry
	MethodHandles []MethodHandleEntry
	MethodTypes   []uint16 // index of a Utf8 CpEntry (the descriptor)
	Dynamics      []DynamicEntry
	InvokeDynamics []DynamicEntry
	ModuleRefs    []uint16
	PackageRefs   []uint16
	Unknowns      []UnknownEntry
}

// NewConstantPool returns a pool with only the mandatory index-0 placeholder.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{CpIndex: []CpEntry{{Type: TagPlaceholder}}}
}

// Count is the value that belongs in the classfile's constant_pool_count
// field: the number of slots including both the index-0 placeholder and
// every Long/Double padding placeholder (R5).
func (cp *ConstantPool) Count() int { return len(cp.CpIndex) }

func (cp *ConstantPool) utf8Equal(idx int, b []byte) bool {
	if idx < 0 || idx >= len(cp.Utf8Refs) {
		return false
	}
	if len(cp.Utf8Refs[idx]) != len(b) {
		return false
	}
	for i := range b {
		if cp.Utf8Refs[idx][i] != b[i] {
			return false
		}
	}
	return true
}

// Utf8At returns the bytes of the Utf8 constant at CpIndex position idx, or
// nil plus false if idx does not refer to a Utf8 entry.
func (cp *ConstantPool) Utf8At(idx uint16) ([]byte, bool) {
	if int(idx) < 1 || int(idx) >= len(cp.CpIndex) {
		return nil, false
	}
	e := cp.CpIndex[idx]
	if e.Type != TagUtf8 {
		return nil, false
	}
	return cp.Utf8Refs[e.Slot], true
}

// Utf8StringAt is Utf8At with the result converted to a string, for the
// common case of reading a name or descriptor.
func (cp *ConstantPool) Utf8StringAt(idx uint16) (string, bool) {
	b, ok := cp.Utf8At(idx)
	if !ok {
		return "", false
	}
	return string(b), true
}

// ClassNameAt resolves a Class CpEntry to its name string.
func (cp *ConstantPool) ClassNameAt(idx uint16) (string, bool) {
	if int(idx) < 1 || int(idx) >= len(cp.CpIndex) {
		return "", false
	}
	e := cp.CpIndex[idx]
	if e.Type != TagClass {
		return "", false
	}
	return cp.Utf8StringAt(cp.ClassRefs[e.Slot])
}

// NameAndTypeAt resolves a NameAndType CpEntry to (name, descriptor).
func (cp *ConstantPool) NameAndTypeAt(idx uint16) (name, desc string, ok bool) {
	if int(idx) < 1 || int(idx) >= len(cp.CpIndex) {
		return "", "", false
	}
	e := cp.CpIndex[idx]
	if e.Type != TagNameAndType {
		return "", "", false
	}
	nt := cp.NameAndTypes[e.Slot]
	name, ok1 := cp.Utf8StringAt(nt.NameIndex)
	desc, ok2 := cp.Utf8StringAt(nt.DescIndex)
	return name, desc, ok1 && ok2
}
