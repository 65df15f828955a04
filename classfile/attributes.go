/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

// Standard attribute names, used for name-dispatch during decode (§4.1).
// Encode writes each attribute's existing NameIndex and never interns names
// itself (§4.2).
const (
	AttrConstantValue                        = "ConstantValue"
	AttrCode                                  = "Code"
	AttrStackMapTable                         = "StackMapTable"
	AttrExceptions                            = "Exceptions"
	AttrInnerClasses                          = "InnerClasses"
	AttrEnclosingMethod                       = "EnclosingMethod"
	AttrSynthetic                             = "Synthetic"
	AttrSignature                             = "Signature"
	AttrSourceFile                            = "SourceFile"
	AttrSourceDebugExtension                  = "SourceDebugExtension"
	AttrLineNumberTable                       = "LineNumberTable"
	AttrLocalVariableTable                    = "LocalVariableTable"
	AttrLocalVariableTypeTable                = "LocalVariableTypeTable"
	AttrDeprecated                            = "Deprecated"
	AttrRuntimeVisibleAnnotations             = "RuntimeVisibleAnnotations"
	AttrRuntimeInvisibleAnnotations           = "RuntimeInvisibleAnnotations"
	AttrRuntimeVisibleParameterAnnotations    = "RuntimeVisibleParameterAnnotations"
	AttrRuntimeInvisibleParameterAnnotations  = "RuntimeInvisibleParameterAnnotations"
	AttrRuntimeVisibleTypeAnnotations         = "RuntimeVisibleTypeAnnotations"
	AttrRuntimeInvisibleTypeAnnotations       = "RuntimeInvisibleTypeAnnotations"
	AttrAnnotationDefault                     = "AnnotationDefault"
	AttrBootstrapMethods                      = "BootstrapMethods"
	AttrMethodParameters                      = "MethodParameters"
)

// Attribute is the tagged-union member for one classfile attribute. Every
// concrete type below implements it; RawAttribute is the fall-through for
// anything this codec does not structurally understand (R6).
type Attribute interface {
	AttrNameIndex() uint16
	isAttribute()
}

type attrBase struct {
	NameIndex uint16
}

func (a attrBase) AttrNameIndex() uint16 { return a.NameIndex }
func (attrBase) isAttribute()            {}

// RawAttribute preserves an attribute this codec did not recognize, or
// structurally failed to decode, byte-for-byte (R6).
type RawAttribute struct {
	attrBase
	Raw []byte
}

type ConstantValueAttr struct {
	attrBase
	ValueIndex uint16
}

type ExceptionTableEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16 // 0 means catch-all (finally)
}

// CodeAttr is the Code attribute. Its nested attributes (LineNumberTable,
// LocalVariableTable, StackMapTable, etc.) decode recursively using the
// same name-dispatch as top-level attributes.
type CodeAttr struct {
	attrBase
	MaxStack   uint16
	MaxLocals  uint16
	Code       []Instruction
	CodeLength int // the on-wire byte length of Code, needed to re-derive offsets
	Exceptions []ExceptionTableEntry
	Attributes []Attribute
}

type StackMapTableAttr struct {
	attrBase
	Frames []StackMapFrame
}

type ExceptionsAttr struct {
	attrBase
	ExceptionIndexes []uint16
}

type InnerClassEntry struct {
	InnerClassInfoIndex   uint16
	OuterClassInfoIndex   uint16
	InnerNameIndex        uint16
	InnerClassAccessFlags uint16
}

type InnerClassesAttr struct {
	attrBase
	Classes []InnerClassEntry
}

type EnclosingMethodAttr struct {
	attrBase
	ClassIndex  uint16
	MethodIndex uint16 // 0 if the class is not immediately enclosed by a method
}

type SyntheticAttr struct{ attrBase }
type DeprecatedAttr struct{ attrBase }

type SignatureAttr struct {
	attrBase
	SignatureIndex uint16
}

type SourceFileAttr struct {
	attrBase
	SourceFileIndex uint16
}

type SourceDebugExtensionAttr struct {
	attrBase
	DebugExtension []byte
}

type LineNumberEntry struct {
	StartPC    uint16
	LineNumber uint16
}

type LineNumberTableAttr struct {
	attrBase
	Lines []LineNumberEntry
}

type LocalVariableEntry struct {
	StartPC   uint16
	Length    uint16
	NameIndex uint16
	DescIndex uint16 // Signature index for LocalVariableTypeTable
	Index     uint16 // local-variable slot
}

type LocalVariableTableAttr struct {
	attrBase
	Locals []LocalVariableEntry
}

type LocalVariableTypeTableAttr struct {
	attrBase
	Locals []LocalVariableEntry
}

type RuntimeVisibleAnnotationsAttr struct {
	attrBase
	Annotations []Annotation
}

type RuntimeInvisibleAnnotationsAttr struct {
	attrBase
	Annotations []Annotation
}

type RuntimeVisibleParameterAnnotationsAttr struct {
	attrBase
	ParameterAnnotations [][]Annotation
}

type RuntimeInvisibleParameterAnnotationsAttr struct {
	attrBase
	ParameterAnnotations [][]Annotation
}

type RuntimeVisibleTypeAnnotationsAttr struct {
	attrBase
	Annotations []TypeAnnotation
}

type RuntimeInvisibleTypeAnnotationsAttr struct {
	attrBase
	Annotations []TypeAnnotation
}

type AnnotationDefaultAttr struct {
	attrBase
	Value ElementValue
}

type BootstrapMethodEntry struct {
	MethodRefIndex uint16 // index of a MethodHandle CpEntry
	Args           []uint16
}

type BootstrapMethodsAttr struct {
	attrBase
	Methods []BootstrapMethodEntry
}

type MethodParameterEntry struct {
	NameIndex   uint16 // 0 means no name
	AccessFlags uint16
}

type MethodParametersAttr struct {
	attrBase
	Parameters []MethodParameterEntry
}
