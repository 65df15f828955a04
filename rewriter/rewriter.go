/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package rewriter implements the surgical mutations the agent shell needs
// to splice parameter-capture hooks into the two targeted classfiles:
// idempotent constant-pool interning, and tail-safe field/method/
// instruction insertion. It never relocates a jump offset; every insertion
// it performs is restricted to places where that is provably unnecessary
// (§4.3).
package rewriter

import (
	"errors"

	"golang.org/x/exp/slices"

	"github.com/jacobin-agent/paramtrace/classfile"
)

// ErrUnsafeSplice is returned by InsertInstruction when the insertion point
// is not provably safe: some StackMapTable frame, exception handler PC, or
// branch target in the method lies at or after the splice point, so
// relocating it correctly is not guaranteed (§11 resolution of the splice
// safety Open Question). Callers must treat this exactly like a decode
// failure: return the original classfile bytes unchanged.
var ErrUnsafeSplice = errors.New("rewriter: splice point is not provably safe")

// Rewriter wraps one Classfile for a sequence of mutations. It holds no
// state beyond the Classfile itself; all idempotence bookkeeping is done by
// scanning the existing pool, per the teacher's own pattern of a single
// concrete rewriter type operating directly on the decoded model.
type Rewriter struct {
	CF *classfile.Classfile
}

func New(cf *classfile.Classfile) *Rewriter {
	return &Rewriter{CF: cf}
}

// InternUtf8 returns the constant-pool index of s, appending a new Utf8
// entry only if one does not already exist (R2).
func (rw *Rewriter) InternUtf8(s string) uint16 {
	cp := rw.CF.CP
	b := []byte(s)
	if idx := findUtf8(cp, b); idx != 0 {
		return idx
	}
	slot := len(cp.Utf8Refs)
	cp.Utf8Refs = append(cp.Utf8Refs, b)
	return rw.appendEntry(classfile.TagUtf8, slot)
}

func findUtf8(cp *classfile.ConstantPool, b []byte) uint16 {
	for i, e := range cp.CpIndex {
		if e.Type != classfile.TagUtf8 {
			continue
		}
		if slices.Equal(cp.Utf8Refs[e.Slot], b) {
			return uint16(i)
		}
	}
	return 0
}

// InternClass returns the constant-pool index of a Class entry naming
// className, interning the backing Utf8 first if needed (R2).
func (rw *Rewriter) InternClass(className string) uint16 {
	nameIdx := rw.InternUtf8(className)
	cp := rw.CF.CP
	for i, e := range cp.CpIndex {
		if e.Type == classfile.TagClass && cp.ClassRefs[e.Slot] == nameIdx {
			return uint16(i)
		}
	}
	slot := len(cp.ClassRefs)
	cp.ClassRefs = append(cp.ClassRefs, nameIdx)
	return rw.appendEntry(classfile.TagClass, slot)
}

// InternNameAndType returns the constant-pool index of a NameAndType entry
// for (name, descriptor), interning both Utf8s first if needed (R2).
func (rw *Rewriter) InternNameAndType(name, desc string) uint16 {
	nameIdx := rw.InternUtf8(name)
	descIdx := rw.InternUtf8(desc)
	cp := rw.CF.CP
	for i, e := range cp.CpIndex {
		if e.Type != classfile.TagNameAndType {
			continue
		}
		nt := cp.NameAndTypes[e.Slot]
		if nt.NameIndex == nameIdx && nt.DescIndex == descIdx {
			return uint16(i)
		}
	}
	slot := len(cp.NameAndTypes)
	cp.NameAndTypes = append(cp.NameAndTypes, classfile.NameAndTypeEntry{NameIndex: nameIdx, DescIndex: descIdx})
	return rw.appendEntry(classfile.TagNameAndType, slot)
}

// InternMethodRef returns the constant-pool index of a MethodRef entry for
// className.name:desc, interning every dependency first if needed (R2).
func (rw *Rewriter) InternMethodRef(className, name, desc string) uint16 {
	classIdx := rw.InternClass(className)
	natIdx := rw.InternNameAndType(name, desc)
	cp := rw.CF.CP
	for i, e := range cp.CpIndex {
		if e.Type != classfile.TagMethodref {
			continue
		}
		ref := cp.MethodRefs[e.Slot]
		if ref.ClassIndex == classIdx && ref.NameAndType == natIdx {
			return uint16(i)
		}
	}
	slot := len(cp.MethodRefs)
	cp.MethodRefs = append(cp.MethodRefs, classfile.RefEntry{ClassIndex: classIdx, NameAndType: natIdx})
	return rw.appendEntry(classfile.TagMethodref, slot)
}

// InternFieldRef returns the constant-pool index of a FieldRef entry for
// className.name:desc, interning every dependency first if needed (R2).
func (rw *Rewriter) InternFieldRef(className, name, desc string) uint16 {
	classIdx := rw.InternClass(className)
	natIdx := rw.InternNameAndType(name, desc)
	cp := rw.CF.CP
	for i, e := range cp.CpIndex {
		if e.Type != classfile.TagFieldref {
			continue
		}
		ref := cp.FieldRefs[e.Slot]
		if ref.ClassIndex == classIdx && ref.NameAndType == natIdx {
			return uint16(i)
		}
	}
	slot := len(cp.FieldRefs)
	cp.FieldRefs = append(cp.FieldRefs, classfile.RefEntry{ClassIndex: classIdx, NameAndType: natIdx})
	return rw.appendEntry(classfile.TagFieldref, slot)
}

func (rw *Rewriter) appendEntry(tag uint8, slot int) uint16 {
	cp := rw.CF.CP
	idx := uint16(len(cp.CpIndex))
	cp.CpIndex = append(cp.CpIndex, classfile.CpEntry{Type: tag, Slot: slot})
	return idx
}

// AddField appends a new field with no attributes.
func (rw *Rewriter) AddField(accessFlags uint16, name, desc string) *classfile.FieldInfo {
	f := &classfile.FieldInfo{
		AccessFlags: accessFlags,
		NameIndex:   rw.InternUtf8(name),
		DescIndex:   rw.InternUtf8(desc),
	}
	rw.CF.Fields = append(rw.CF.Fields, f)
	return f
}

// AddMethod appends a new method declaration with the given attributes
// (typically empty for a native method, which has no Code attribute).
func (rw *Rewriter) AddMethod(accessFlags uint16, name, desc string, attrs []classfile.Attribute) *classfile.MethodInfo {
	m := &classfile.MethodInfo{
		AccessFlags: accessFlags,
		NameIndex:   rw.InternUtf8(name),
		DescIndex:   rw.InternUtf8(desc),
		Attributes:  attrs,
	}
	rw.CF.Methods = append(rw.CF.Methods, m)
	return m
}

// FindMethod returns the first method with the given name and descriptor.
func (rw *Rewriter) FindMethod(name, desc string) *classfile.MethodInfo {
	for _, m := range rw.CF.Methods {
		if m.Name(rw.CF.CP) == name && m.Desc(rw.CF.CP) == desc {
			return m
		}
	}
	return nil
}

// RenameMethod changes a method's name to newName without touching its
// Code or descriptor, used to shift an existing method out of the way
// before installing a same-named native in its place (§4.5).
func (rw *Rewriter) RenameMethod(m *classfile.MethodInfo, newName string) {
	m.NameIndex = rw.InternUtf8(newName)
}

// MethodCode returns the method's Code attribute, or nil if it has none
// (abstract/native).
func (rw *Rewriter) MethodCode(m *classfile.MethodInfo) *classfile.CodeAttr {
	return m.CodeAttribute()
}

// InsertInstruction inserts insns at position pos (an index into
// code.Code, not a byte offset) only if doing so is provably safe: no
// StackMapTable frame, exception handler PC, or branch target anywhere in
// the method may reference a byte offset at or beyond the insertion point,
// and no table/lookupswitch instruction sits at or after pos (their padding
// is offset-dependent, and this rewriter performs no offset relocation --
// §4.3, §11).
//
// pos == len(code.Code) (tail insertion) is still refused when an
// exception-table entry's end or handler PC equals the code length.
// A mid-method pos is accepted too, provided the proof above holds -- e.g.
// splicing in right after an existing invokespecial that is itself
// followed only by a plain return, per §4.5. Anything else gets
// ErrUnsafeSplice, and the caller must fall back to the original bytes.
func (rw *Rewriter) InsertInstruction(code *classfile.CodeAttr, pos int, insns ...classfile.Instruction) error {
	if pos < 0 || pos > len(code.Code) {
		return ErrUnsafeSplice
	}

	for _, insn := range code.Code[pos:] {
		switch insn.(type) {
		case classfile.TableSwitchInsn, classfile.LookupSwitchInsn:
			return ErrUnsafeSplice
		}
	}

	insertOffset := codeByteLength(code.Code[:pos])

	for _, exc := range code.Exceptions {
		if int(exc.StartPC) >= insertOffset || int(exc.EndPC) >= insertOffset || int(exc.HandlerPC) >= insertOffset {
			return ErrUnsafeSplice
		}
	}
	for _, attr := range code.Attributes {
		if smt, ok := attr.(*classfile.StackMapTableAttr); ok {
			offset := 0
			first := true
			for _, f := range smt.Frames {
				if first {
					offset = int(f.OffsetDelta)
					first = false
				} else {
					offset += int(f.OffsetDelta) + 1
				}
				if offset >= insertOffset {
					return ErrUnsafeSplice
				}
			}
		}
	}
	if branchesPastOffset(code.Code, insertOffset) {
		return ErrUnsafeSplice
	}

	newCode := make([]classfile.Instruction, 0, len(code.Code)+len(insns))
	newCode = append(newCode, code.Code[:pos]...)
	newCode = append(newCode, insns...)
	newCode = append(newCode, code.Code[pos:]...)
	code.Code = newCode
	code.CodeLength = codeByteLength(code.Code)
	return nil
}

func codeByteLength(insns []classfile.Instruction) int {
	offset := 0
	for _, insn := range insns {
		offset += insn.EncodedLength(offset)
	}
	return offset
}

// branchesPastOffset reports whether any branch/switch instruction's
// target would land at or after limit. For a tail append no valid target
// can reach limit; for a mid-method splice this is what keeps a branch
// from pointing past the inserted instructions.
func branchesPastOffset(insns []classfile.Instruction, limit int) bool {
	offset := 0
	for _, insn := range insns {
		switch v := insn.(type) {
		case classfile.BranchInsn:
			if offset+int(v.Offset) >= limit {
				return true
			}
		case classfile.TableSwitchInsn:
			if offset+int(v.Default) >= limit {
				return true
			}
			for _, o := range v.Offsets {
				if offset+int(o) >= limit {
					return true
				}
			}
		case classfile.LookupSwitchInsn:
			if offset+int(v.Default) >= limit {
				return true
			}
			for _, p := range v.Pairs {
				if offset+int(p.Offset) >= limit {
					return true
				}
			}
		}
		offset += insn.EncodedLength(offset)
	}
	return false
}
