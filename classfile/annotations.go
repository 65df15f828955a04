/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

// ElementValue tags (JVMS §4.7.16.1).
const (
	EVByte      = 'B'
	EVChar      = 'C'
	EVDouble    = 'D'
	EVFloat     = 'F'
	EVInt       = 'I'
	EVLong      = 'J'
	EVShort     = 'S'
	EVBoolean   = 'Z'
	EVString    = 's'
	EVEnum      = 'e'
	EVClass     = 'c'
	EVAnnotation = '@'
	EVArray     = '['
)

// ElementValue is the tagged union of annotation element values.
type ElementValue struct {
	Tag byte

	// B C D F I J S Z s: ConstValueIndex indexes the appropriate CP entry.
	ConstValueIndex uint16

	// e: Enum{TypeNameIndex, ConstNameIndex}
	TypeNameIndex  uint16
	ConstNameIndex uint16

	// c: ClassInfoIndex
	ClassInfoIndex uint16

	// @: nested annotation
	NestedAnnotation *Annotation

	// [: array of values
	Values []ElementValue
}

type ElementValuePair struct {
	ElementNameIndex uint16
	Value            ElementValue
}

type Annotation struct {
	TypeIndex      uint16
	ElementPairs   []ElementValuePair
}

// TypeAnnotation target_type byte ranges (JVMS §4.7.20.1), reproduced
// exactly per §6 of the spec.
const (
	TargetTypeParameterClass        = 0x00
	TargetTypeParameterMethod       = 0x01
	TargetSuperType                 = 0x10
	TargetTypeParameterBoundClass   = 0x11
	TargetTypeParameterBoundMethod  = 0x12
	TargetEmptyFieldOrReturn        = 0x13
	TargetEmptyReceiver             = 0x14
	TargetEmptyNewTypeArg           = 0x15
	TargetMethodFormalParameter     = 0x16
	TargetThrows                    = 0x17
	TargetLocalVar                  = 0x40
	TargetResourceVar               = 0x41
	TargetCatch                     = 0x42
	TargetOffsetInstanceOf          = 0x43
	TargetOffsetNew                 = 0x44
	TargetOffsetNewRef              = 0x45
	TargetOffsetMethodRef           = 0x46
	TargetTypeArgCast               = 0x47
	TargetTypeArgNew                = 0x48
	TargetTypeArgMethodCall         = 0x49
	TargetTypeArgNewRef             = 0x4A
	TargetTypeArgMethodRef          = 0x4B
)

type LocalVarTarget struct {
	StartPC uint16
	Length  uint16
	Index   uint16
}

// TargetInfo is the tagged union discriminated by the enclosing
// TypeAnnotation's TargetType byte.
type TargetInfo struct {
	TargetType uint8

	// 0x00/0x01 TypeParameter
	TypeParamIndex uint8

	// 0x10 SuperType
	SuperTypeIndex uint16

	// 0x11/0x12 TypeParameterBound
	BoundParamIndex uint8
	BoundIndex      uint8

	// 0x16 MethodFormalParameter
	FormalParamIndex uint8

	// 0x17 Throws
	ThrowsIndex uint16

	// 0x40/0x41 LocalVar/ResourceVar
	LocalVarTargets []LocalVarTarget

	// 0x42 Catch
	CatchIndex uint16

	// 0x43-0x46 Offset (instanceof/new/newref/methodref)
	OffsetIndex uint16

	// 0x47-0x4B TypeArgument
	TypeArgOffset   uint16
	TypeArgIndex    uint8
}

type TypePathEntry struct {
	TypePathKind      uint8
	TypeArgumentIndex uint8
}

type TypeAnnotation struct {
	TargetType   uint8
	Target       TargetInfo
	TypePath     []TypePathEntry
	TypeIndex    uint16
	ElementPairs []ElementValuePair
}
