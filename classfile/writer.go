/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

// Encode renders a Classfile back to its on-wire byte form. Encode assumes
// every name referenced by NameIndex fields has already been interned into
// cf.CP (package rewriter's job); Encode itself never mutates the constant
// pool. Round-tripping an untouched Decode result through Encode must
// reproduce the original bytes exactly (R1).
func Encode(cf *Classfile) ([]byte, error) {
	w := &byteWriter{}
	w.u32(Magic)
	w.u16(cf.Minor)
	w.u16(cf.Major)

	encodeConstantPool(w, cf.CP)

	w.u16(cf.AccessFlags)
	w.u16(cf.ThisClass)
	w.u16(cf.SuperClass)

	w.u16(uint16(len(cf.Interfaces)))
	for _, idx := range cf.Interfaces {
		w.u16(idx)
	}

	if err := encodeFields(w, cf.Fields, cf.CP); err != nil {
		return nil, err
	}
	if err := encodeMethods(w, cf.Methods, cf.CP); err != nil {
		return nil, err
	}
	if err := encodeAttributes(w, cf.Attributes, cf.CP); err != nil {
		return nil, err
	}

	return w.buf, nil
}

func encodeConstantPool(w *byteWriter, cp *ConstantPool) {
	w.u16(uint16(cp.Count()))
	for i := 1; i < len(cp.CpIndex); i++ {
		e := cp.CpIndex[i]
		switch e.Type {
		case TagPlaceholder:
			// the padding slot after a Long/Double; nothing on the wire
			continue
		case TagUtf8:
			w.u8(TagUtf8)
			b := cp.Utf8Refs[e.Slot]
			w.u16(uint16(len(b)))
			w.raw(b)
		case TagInteger:
			w.u8(TagInteger)
			w.i32(cp.IntConsts[e.Slot])
		case TagFloat:
			w.u8(TagFloat)
			w.u32(float32bits(cp.FloatConsts[e.Slot]))
		case TagLong:
			w.u8(TagLong)
			w.u64(uint64(cp.LongConsts[e.Slot]))
		case TagDouble:
			w.u8(TagDouble)
			w.u64(float64bits(cp.DoubleConsts[e.Slot]))
		case TagClass:
			w.u8(TagClass)
			w.u16(cp.ClassRefs[e.Slot])
		case TagString:
			w.u8(TagString)
			w.u16(cp.StringRefs[e.Slot])
		case TagFieldref:
			w.u8(TagFieldref)
			r := cp.FieldRefs[e.Slot]
			w.u16(r.ClassIndex)
			w.u16(r.NameAndType)
		case TagMethodref:
			w.u8(TagMethodref)
			r := cp.MethodRefs[e.Slot]
			w.u16(r.ClassIndex)
			w.u16(r.NameAndType)
		case TagInterfaceMethodref:
			w.u8(TagInterfaceMethodref)
			r := cp.InterfaceRefs[e.Slot]
			w.u16(r.ClassIndex)
			w.u16(r.NameAndType)
		case TagNameAndType:
			w.u8(TagNameAndType)
			nt := cp.NameAndTypes[e.Slot]
			w.u16(nt.NameIndex)
			w.u16(nt.DescIndex)
		case TagMethodHandle:
			w.u8(TagMethodHandle)
			mh := cp.MethodHandles[e.Slot]
			w.u8(mh.RefKind)
			w.u16(mh.RefIndex)
		case TagMethodType:
			w.u8(TagMethodType)
			w.u16(cp.MethodTypes[e.Slot])
		case TagDynamic:
			w.u8(TagDynamic)
			d := cp.Dynamics[e.Slot]
			w.u16(d.BootstrapIndex)
			w.u16(d.NameAndType)
		case TagInvokeDynamic:
			w.u8(TagInvokeDynamic)
			d := cp.InvokeDynamics[e.Slot]
			w.u16(d.BootstrapIndex)
			w.u16(d.NameAndType)
		case TagModule:
			w.u8(TagModule)
			w.u16(cp.ModuleRefs[e.Slot])
		case TagPackage:
			w.u8(TagPackage)
			w.u16(cp.PackageRefs[e.Slot])
		case TagUnknown:
			u := cp.Unknowns[e.Slot]
			w.u8(u.Tag)
			w.raw(u.Raw)
		}
	}
}

func encodeFields(w *byteWriter, fields []*FieldInfo, cp *ConstantPool) error {
	w.u16(uint16(len(fields)))
	for _, f := range fields {
		w.u16(f.AccessFlags)
		w.u16(f.NameIndex)
		w.u16(f.DescIndex)
		if err := encodeAttributes(w, f.Attributes, cp); err != nil {
			return err
		}
	}
	return nil
}

func encodeMethods(w *byteWriter, methods []*MethodInfo, cp *ConstantPool) error {
	w.u16(uint16(len(methods)))
	for _, m := range methods {
		w.u16(m.AccessFlags)
		w.u16(m.NameIndex)
		w.u16(m.DescIndex)
		if err := encodeAttributes(w, m.Attributes, cp); err != nil {
			return err
		}
	}
	return nil
}

func encodeAttributes(w *byteWriter, attrs []Attribute, cp *ConstantPool) error {
	w.u16(uint16(len(attrs)))
	for _, a := range attrs {
		body, err := encodeAttributeBody(a, cp)
		if err != nil {
			return err
		}
		w.u16(a.AttrNameIndex())
		w.u32(uint32(len(body)))
		w.raw(body)
	}
	return nil
}

func encodeAttributeBody(a Attribute, cp *ConstantPool) ([]byte, error) {
	switch v := a.(type) {
	case *RawAttribute:
		return v.Raw, nil

	case *ConstantValueAttr:
		w := &byteWriter{}
		w.u16(v.ValueIndex)
		return w.buf, nil

	case *CodeAttr:
		return encodeCode(v, cp)

	case *StackMapTableAttr:
		return encodeStackMapTable(v)

	case *ExceptionsAttr:
		w := &byteWriter{}
		w.u16(uint16(len(v.ExceptionIndexes)))
		for _, idx := range v.ExceptionIndexes {
			w.u16(idx)
		}
		return w.buf, nil

	case *InnerClassesAttr:
		w := &byteWriter{}
		w.u16(uint16(len(v.Classes)))
		for _, c := range v.Classes {
			w.u16(c.InnerClassInfoIndex)
			w.u16(c.OuterClassInfoIndex)
			w.u16(c.InnerNameIndex)
			w.u16(c.InnerClassAccessFlags)
		}
		return w.buf, nil

	case *EnclosingMethodAttr:
		w := &byteWriter{}
		w.u16(v.ClassIndex)
		w.u16(v.MethodIndex)
		return w.buf, nil

	case *SyntheticAttr:
		return nil, nil

	case *DeprecatedAttr:
		return nil, nil

	case *SignatureAttr:
		w := &byteWriter{}
		w.u16(v.SignatureIndex)
		return w.buf, nil

	case *SourceFileAttr:
		w := &byteWriter{}
		w.u16(v.SourceFileIndex)
		return w.buf, nil

	case *SourceDebugExtensionAttr:
		return v.DebugExtension, nil

	case *LineNumberTableAttr:
		w := &byteWriter{}
		w.u16(uint16(len(v.Lines)))
		for _, l := range v.Lines {
			w.u16(l.StartPC)
			w.u16(l.LineNumber)
		}
		return w.buf, nil

	case *LocalVariableTableAttr:
		return encodeLocalVarEntries(v.Locals), nil

	case *LocalVariableTypeTableAttr:
		return encodeLocalVarEntries(v.Locals), nil

	case *RuntimeVisibleAnnotationsAttr:
		w := &byteWriter{}
		encodeAnnotations(w, v.Annotations)
		return w.buf, nil

	case *RuntimeInvisibleAnnotationsAttr:
		w := &byteWriter{}
		encodeAnnotations(w, v.Annotations)
		return w.buf, nil

	case *RuntimeVisibleParameterAnnotationsAttr:
		return encodeParameterAnnotations(v.ParameterAnnotations), nil

	case *RuntimeInvisibleParameterAnnotationsAttr:
		return encodeParameterAnnotations(v.ParameterAnnotations), nil

	case *RuntimeVisibleTypeAnnotationsAttr:
		return encodeTypeAnnotations(v.Annotations), nil

	case *RuntimeInvisibleTypeAnnotationsAttr:
		return encodeTypeAnnotations(v.Annotations), nil

	case *AnnotationDefaultAttr:
		w := &byteWriter{}
		encodeElementValue(w, v.Value)
		return w.buf, nil

	case *BootstrapMethodsAttr:
		w := &byteWriter{}
		w.u16(uint16(len(v.Methods)))
		for _, m := range v.Methods {
			w.u16(m.MethodRefIndex)
			w.u16(uint16(len(m.Args)))
			for _, a := range m.Args {
				w.u16(a)
			}
		}
		return w.buf, nil

	case *MethodParametersAttr:
		w := &byteWriter{}
		w.u8(uint8(len(v.Parameters)))
		for _, p := range v.Parameters {
			w.u16(p.NameIndex)
			w.u16(p.AccessFlags)
		}
		return w.buf, nil

	default:
		return nil, cfe("unknown attribute type during encode")
	}
}

func encodeLocalVarEntries(entries []LocalVariableEntry) []byte {
	w := &byteWriter{}
	w.u16(uint16(len(entries)))
	for _, e := range entries {
		w.u16(e.StartPC)
		w.u16(e.Length)
		w.u16(e.NameIndex)
		w.u16(e.DescIndex)
		w.u16(e.Index)
	}
	return w.buf
}

// encodeCode renders the Code array by first laying out every instruction
// at its final offset (their lengths are offset-dependent for
// table/lookupswitch per R4), then rendering the nested attributes.
func encodeCode(c *CodeAttr, cp *ConstantPool) ([]byte, error) {
	codeBuf, err := encodeInstructions(c.Code)
	if err != nil {
		return nil, err
	}

	w := &byteWriter{}
	w.u16(c.MaxStack)
	w.u16(c.MaxLocals)
	w.u32(uint32(len(codeBuf)))
	w.raw(codeBuf)

	w.u16(uint16(len(c.Exceptions)))
	for _, e := range c.Exceptions {
		w.u16(e.StartPC)
		w.u16(e.EndPC)
		w.u16(e.HandlerPC)
		w.u16(e.CatchType)
	}

	if err := encodeAttributes(w, c.Attributes, cp); err != nil {
		return nil, err
	}
	return w.buf, nil
}

func encodeInstructions(insns []Instruction) ([]byte, error) {
	w := &byteWriter{}
	offset := 0
	for _, insn := range insns {
		n := insn.EncodedLength(offset)
		encodeInstruction(w, insn, offset)
		offset += n
	}
	return w.buf, nil
}

func encodeInstruction(w *byteWriter, insn Instruction, offset int) {
	switch v := insn.(type) {
	case NoOperandInsn:
		w.u8(v.Op)
	case BipushInsn:
		w.u8(OpBipush)
		w.i8(v.Value)
	case SipushInsn:
		w.u8(OpSipush)
		w.i16(v.Value)
	case LdcInsn:
		w.u8(OpLdc)
		w.u8(v.Index)
	case LdcWInsn:
		w.u8(OpLdcW)
		w.u16(v.Index)
	case Ldc2WInsn:
		w.u8(OpLdc2W)
		w.u16(v.Index)
	case VarInsn:
		if v.Wide {
			w.u8(OpWide)
			w.u8(v.Op)
			w.u16(v.Index)
		} else {
			w.u8(v.Op)
			w.u8(uint8(v.Index))
		}
	case IincInsn:
		if v.Wide {
			w.u8(OpWide)
			w.u8(OpIinc)
			w.u16(v.Index)
			w.i16(v.Const)
		} else {
			w.u8(OpIinc)
			w.u8(uint8(v.Index))
			w.i8(int8(v.Const))
		}
	case BranchInsn:
		w.u8(v.Op)
		if v.Wide32 {
			w.i32(v.Offset)
		} else {
			w.i16(int16(v.Offset))
		}
	case TableSwitchInsn:
		w.u8(OpTableswitch)
		for i := 0; i < switchPadding(offset); i++ {
			w.u8(0)
		}
		w.i32(v.Default)
		w.i32(v.Low)
		w.i32(v.High)
		for _, o := range v.Offsets {
			w.i32(o)
		}
	case LookupSwitchInsn:
		w.u8(OpLookupswitch)
		for i := 0; i < switchPadding(offset); i++ {
			w.u8(0)
		}
		w.i32(v.Default)
		w.i32(int32(len(v.Pairs)))
		for _, p := range v.Pairs {
			w.i32(p.Match)
			w.i32(p.Offset)
		}
	case FieldOrMethodInsn:
		w.u8(v.Op)
		w.u16(v.Index)
	case InvokeInterfaceInsn:
		w.u8(OpInvokeinterface)
		w.u16(v.Index)
		w.u8(v.Count)
		w.u8(0)
	case InvokeDynamicInsn:
		w.u8(OpInvokedynamic)
		w.u16(v.Index)
		w.u16(0)
	case TypeInsn:
		w.u8(v.Op)
		w.u16(v.Index)
	case NewArrayInsn:
		w.u8(OpNewarray)
		w.u8(v.AType)
	case MultiANewArrayInsn:
		w.u8(OpMultianewarray)
		w.u16(v.Index)
		w.u8(v.Dimensions)
	}
}

func encodeStackMapTable(a *StackMapTableAttr) ([]byte, error) {
	w := &byteWriter{}
	w.u16(uint16(len(a.Frames)))
	for _, f := range a.Frames {
		if err := encodeStackMapFrame(w, f); err != nil {
			return nil, err
		}
	}
	return w.buf, nil
}

func encodeStackMapFrame(w *byteWriter, f StackMapFrame) error {
	switch f.Kind {
	case FrameSame:
		w.u8(f.Tag)
	case FrameSameLocals1StackItem:
		w.u8(f.Tag)
		encodeVerificationType(w, f.Stack[0])
	case FrameSameLocals1StackItemExtended:
		w.u8(f.Tag)
		w.u16(f.OffsetDelta)
		encodeVerificationType(w, f.Stack[0])
	case FrameChop:
		w.u8(f.Tag)
		w.u16(f.OffsetDelta)
	case FrameSameExtended:
		w.u8(f.Tag)
		w.u16(f.OffsetDelta)
	case FrameAppend:
		w.u8(f.Tag)
		w.u16(f.OffsetDelta)
		for _, l := range f.Locals {
			encodeVerificationType(w, l)
		}
	case FrameFull:
		w.u8(f.Tag)
		w.u16(f.OffsetDelta)
		w.u16(uint16(len(f.Locals)))
		for _, l := range f.Locals {
			encodeVerificationType(w, l)
		}
		w.u16(uint16(len(f.Stack)))
		for _, s := range f.Stack {
			encodeVerificationType(w, s)
		}
	default:
		return cfe("reserved stack map frame kind during encode")
	}
	return nil
}

func encodeVerificationType(w *byteWriter, vt VerificationType) {
	w.u8(vt.Tag)
	switch vt.Tag {
	case VTObject:
		w.u16(vt.CpIndex)
	case VTUninitialized:
		w.u16(vt.Offset)
	}
}

func encodeAnnotations(w *byteWriter, anns []Annotation) {
	w.u16(uint16(len(anns)))
	for _, a := range anns {
		encodeAnnotation(w, a)
	}
}

func encodeAnnotation(w *byteWriter, a Annotation) {
	w.u16(a.TypeIndex)
	w.u16(uint16(len(a.ElementPairs)))
	for _, p := range a.ElementPairs {
		w.u16(p.ElementNameIndex)
		encodeElementValue(w, p.Value)
	}
}

func encodeElementValue(w *byteWriter, v ElementValue) {
	w.u8(v.Tag)
	switch v.Tag {
	case EVByte, EVChar, EVDouble, EVFloat, EVInt, EVLong, EVShort, EVBoolean, EVString:
		w.u16(v.ConstValueIndex)
	case EVEnum:
		w.u16(v.TypeNameIndex)
		w.u16(v.ConstNameIndex)
	case EVClass:
		w.u16(v.ClassInfoIndex)
	case EVAnnotation:
		encodeAnnotation(w, *v.NestedAnnotation)
	case EVArray:
		w.u16(uint16(len(v.Values)))
		for _, e := range v.Values {
			encodeElementValue(w, e)
		}
	}
}

func encodeParameterAnnotations(paramAnns [][]Annotation) []byte {
	w := &byteWriter{}
	w.u8(uint8(len(paramAnns)))
	for _, anns := range paramAnns {
		encodeAnnotations(w, anns)
	}
	return w.buf
}

func encodeTypeAnnotations(tas []TypeAnnotation) []byte {
	w := &byteWriter{}
	w.u16(uint16(len(tas)))
	for _, ta := range tas {
		encodeTypeAnnotation(w, ta)
	}
	return w.buf
}

func encodeTypeAnnotation(w *byteWriter, ta TypeAnnotation) {
	w.u8(ta.TargetType)
	encodeTargetInfo(w, ta.TargetType, ta.Target)
	w.u8(uint8(len(ta.TypePath)))
	for _, p := range ta.TypePath {
		w.u8(p.TypePathKind)
		w.u8(p.TypeArgumentIndex)
	}
	w.u16(ta.TypeIndex)
	w.u16(uint16(len(ta.ElementPairs)))
	for _, p := range ta.ElementPairs {
		w.u16(p.ElementNameIndex)
		encodeElementValue(w, p.Value)
	}
}

func encodeTargetInfo(w *byteWriter, targetType uint8, t TargetInfo) {
	switch targetType {
	case TargetTypeParameterClass, TargetTypeParameterMethod:
		w.u8(t.TypeParamIndex)
	case TargetSuperType:
		w.u16(t.SuperTypeIndex)
	case TargetTypeParameterBoundClass, TargetTypeParameterBoundMethod:
		w.u8(t.BoundParamIndex)
		w.u8(t.BoundIndex)
	case TargetEmptyFieldOrReturn, TargetEmptyReceiver, TargetEmptyNewTypeArg:
		// nothing on the wire
	case TargetMethodFormalParameter:
		w.u8(t.FormalParamIndex)
	case TargetThrows:
		w.u16(t.ThrowsIndex)
	case TargetLocalVar, TargetResourceVar:
		w.u16(uint16(len(t.LocalVarTargets)))
		for _, lv := range t.LocalVarTargets {
			w.u16(lv.StartPC)
			w.u16(lv.Length)
			w.u16(lv.Index)
		}
	case TargetCatch:
		w.u16(t.CatchIndex)
	case TargetOffsetInstanceOf, TargetOffsetNew, TargetOffsetNewRef, TargetOffsetMethodRef:
		w.u16(t.OffsetIndex)
	case TargetTypeArgCast, TargetTypeArgNew, TargetTypeArgMethodCall, TargetTypeArgNewRef, TargetTypeArgMethodRef:
		w.u16(t.TypeArgOffset)
		w.u8(t.TypeArgIndex)
	}
}
