/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

func decodeFields(r *byteReader, cp *ConstantPool) ([]*FieldInfo, error) {
	count, err := r.u16()
	if err != nil {
		return nil, cfe("truncated fields_count")
	}
	fields := make([]*FieldInfo, 0, count)
	for i := 0; i < int(count); i++ {
		flags, err := r.u16()
		if err != nil {
			return nil, cfe("truncated field access_flags")
		}
		nameIdx, err := r.u16()
		if err != nil {
			return nil, cfe("truncated field name_index")
		}
		descIdx, err := r.u16()
		if err != nil {
			return nil, cfe("truncated field descriptor_index")
		}
		attrs, err := decodeAttributes(r, cp)
		if err != nil {
			return nil, err
		}
		fields = append(fields, &FieldInfo{
			AccessFlags: flags,
			NameIndex:   nameIdx,
			DescIndex:   descIdx,
			Attributes:  attrs,
		})
	}
	return fields, nil
}

func decodeMethods(r *byteReader, cp *ConstantPool) ([]*MethodInfo, error) {
	count, err := r.u16()
	if err != nil {
		return nil, cfe("truncated methods_count")
	}
	methods := make([]*MethodInfo, 0, count)
	for i := 0; i < int(count); i++ {
		flags, err := r.u16()
		if err != nil {
			return nil, cfe("truncated method access_flags")
		}
		nameIdx, err := r.u16()
		if err != nil {
			return nil, cfe("truncated method name_index")
		}
		descIdx, err := r.u16()
		if err != nil {
			return nil, cfe("truncated method descriptor_index")
		}
		attrs, err := decodeAttributes(r, cp)
		if err != nil {
			return nil, err
		}
		methods = append(methods, &MethodInfo{
			AccessFlags: flags,
			NameIndex:   nameIdx,
			DescIndex:   descIdx,
			Attributes:  attrs,
		})
	}
	return methods, nil
}

// decodeAttributes reads an attribute_count followed by that many
// attributes. Each attribute's (name_index, length) prefix is read here;
// the `length` bytes are then handed to a name-dispatched structural
// decoder as an authoritative sub-stream (§4.1). Any structural decoder
// that would under- or over-consume that sub-stream, or whose name isn't
// recognized, produces a RawAttribute instead (R6).
func decodeAttributes(r *byteReader, cp *ConstantPool) ([]Attribute, error) {
	count, err := r.u16()
	if err != nil {
		return nil, cfe("truncated attributes_count")
	}
	attrs := make([]Attribute, 0, count)
	for i := 0; i < int(count); i++ {
		nameIdx, err := r.u16()
		if err != nil {
			return nil, cfe("truncated attribute name_index")
		}
		length, err := r.u32()
		if err != nil {
			return nil, cfe("truncated attribute length")
		}
		body, err := r.bytes(int(length))
		if err != nil {
			return nil, cfe("truncated attribute body")
		}

		name, ok := cp.Utf8StringAt(nameIdx)
		if !ok {
			attrs = append(attrs, &RawAttribute{attrBase{nameIdx}, append([]byte(nil), body...)})
			continue
		}

		attr, decodeErr := decodeAttributeBody(name, nameIdx, body, cp)
		if decodeErr != nil {
			attrs = append(attrs, &RawAttribute{attrBase{nameIdx}, append([]byte(nil), body...)})
			continue
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func decodeAttributeBody(name string, nameIdx uint16, body []byte, cp *ConstantPool) (Attribute, error) {
	br := newByteReader(body)
	base := attrBase{nameIdx}

	switch name {
	case AttrConstantValue:
		idx, err := br.u16()
		if err != nil || br.remaining() != 0 {
			return nil, ErrUnexpectedEOF
		}
		return &ConstantValueAttr{base, idx}, nil

	case AttrCode:
		return decodeCode(br, base, cp)

	case AttrStackMapTable:
		return decodeStackMapTable(br, base)

	case AttrExceptions:
		n, err := br.u16()
		if err != nil {
			return nil, err
		}
		idxs := make([]uint16, 0, n)
		for i := 0; i < int(n); i++ {
			idx, err := br.u16()
			if err != nil {
				return nil, err
			}
			idxs = append(idxs, idx)
		}
		if br.remaining() != 0 {
			return nil, ErrUnexpectedEOF
		}
		return &ExceptionsAttr{base, idxs}, nil

	case AttrInnerClasses:
		n, err := br.u16()
		if err != nil {
			return nil, err
		}
		classes := make([]InnerClassEntry, 0, n)
		for i := 0; i < int(n); i++ {
			inner, err := br.u16()
			if err != nil {
				return nil, err
			}
			outer, err := br.u16()
			if err != nil {
				return nil, err
			}
			innerName, err := br.u16()
			if err != nil {
				return nil, err
			}
			flags, err := br.u16()
			if err != nil {
				return nil, err
			}
			classes = append(classes, InnerClassEntry{inner, outer, innerName, flags})
		}
		if br.remaining() != 0 {
			return nil, ErrUnexpectedEOF
		}
		return &InnerClassesAttr{base, classes}, nil

	case AttrEnclosingMethod:
		classIdx, err := br.u16()
		if err != nil {
			return nil, err
		}
		methIdx, err := br.u16()
		if err != nil {
			return nil, err
		}
		if br.remaining() != 0 {
			return nil, ErrUnexpectedEOF
		}
		return &EnclosingMethodAttr{base, classIdx, methIdx}, nil

	case AttrSynthetic:
		if br.remaining() != 0 {
			return nil, ErrUnexpectedEOF
		}
		return &SyntheticAttr{base}, nil

	case AttrDeprecated:
		if br.remaining() != 0 {
			return nil, ErrUnexpectedEOF
		}
		return &DeprecatedAttr{base}, nil

	case AttrSignature:
		idx, err := br.u16()
		if err != nil || br.remaining() != 0 {
			return nil, ErrUnexpectedEOF
		}
		return &SignatureAttr{base, idx}, nil

	case AttrSourceFile:
		idx, err := br.u16()
		if err != nil || br.remaining() != 0 {
			return nil, ErrUnexpectedEOF
		}
		return &SourceFileAttr{base, idx}, nil

	case AttrSourceDebugExtension:
		return &SourceDebugExtensionAttr{base, append([]byte(nil), body...)}, nil

	case AttrLineNumberTable:
		n, err := br.u16()
		if err != nil {
			return nil, err
		}
		lines := make([]LineNumberEntry, 0, n)
		for i := 0; i < int(n); i++ {
			pc, err := br.u16()
			if err != nil {
				return nil, err
			}
			line, err := br.u16()
			if err != nil {
				return nil, err
			}
			lines = append(lines, LineNumberEntry{pc, line})
		}
		if br.remaining() != 0 {
			return nil, ErrUnexpectedEOF
		}
		return &LineNumberTableAttr{base, lines}, nil

	case AttrLocalVariableTable:
		locals, err := decodeLocalVarEntries(br)
		if err != nil {
			return nil, err
		}
		return &LocalVariableTableAttr{base, locals}, nil

	case AttrLocalVariableTypeTable:
		locals, err := decodeLocalVarEntries(br)
		if err != nil {
			return nil, err
		}
		return &LocalVariableTypeTableAttr{base, locals}, nil

	case AttrRuntimeVisibleAnnotations:
		anns, err := decodeAnnotations(br)
		if err != nil {
			return nil, err
		}
		return &RuntimeVisibleAnnotationsAttr{base, anns}, nil

	case AttrRuntimeInvisibleAnnotations:
		anns, err := decodeAnnotations(br)
		if err != nil {
			return nil, err
		}
		return &RuntimeInvisibleAnnotationsAttr{base, anns}, nil

	case AttrRuntimeVisibleParameterAnnotations:
		pa, err := decodeParameterAnnotations(br)
		if err != nil {
			return nil, err
		}
		return &RuntimeVisibleParameterAnnotationsAttr{base, pa}, nil

	case AttrRuntimeInvisibleParameterAnnotations:
		pa, err := decodeParameterAnnotations(br)
		if err != nil {
			return nil, err
		}
		return &RuntimeInvisibleParameterAnnotationsAttr{base, pa}, nil

	case AttrRuntimeVisibleTypeAnnotations:
		tas, err := decodeTypeAnnotations(br)
		if err != nil {
			return nil, err
		}
		return &RuntimeVisibleTypeAnnotationsAttr{base, tas}, nil

	case AttrRuntimeInvisibleTypeAnnotations:
		tas, err := decodeTypeAnnotations(br)
		if err != nil {
			return nil, err
		}
		return &RuntimeInvisibleTypeAnnotationsAttr{base, tas}, nil

	case AttrAnnotationDefault:
		ev, err := decodeElementValue(br)
		if err != nil {
			return nil, err
		}
		if br.remaining() != 0 {
			return nil, ErrUnexpectedEOF
		}
		return &AnnotationDefaultAttr{base, ev}, nil

	case AttrBootstrapMethods:
		n, err := br.u16()
		if err != nil {
			return nil, err
		}
		methods := make([]BootstrapMethodEntry, 0, n)
		for i := 0; i < int(n); i++ {
			refIdx, err := br.u16()
			if err != nil {
				return nil, err
			}
			argc, err := br.u16()
			if err != nil {
				return nil, err
			}
			args := make([]uint16, 0, argc)
			for j := 0; j < int(argc); j++ {
				a, err := br.u16()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
			}
			methods = append(methods, BootstrapMethodEntry{refIdx, args})
		}
		if br.remaining() != 0 {
			return nil, ErrUnexpectedEOF
		}
		return &BootstrapMethodsAttr{base, methods}, nil

	case AttrMethodParameters:
		n, err := br.u8()
		if err != nil {
			return nil, err
		}
		params := make([]MethodParameterEntry, 0, n)
		for i := 0; i < int(n); i++ {
			nameIdx, err := br.u16()
			if err != nil {
				return nil, err
			}
			flags, err := br.u16()
			if err != nil {
				return nil, err
			}
			params = append(params, MethodParameterEntry{nameIdx, flags})
		}
		if br.remaining() != 0 {
			return nil, ErrUnexpectedEOF
		}
		return &MethodParametersAttr{base, params}, nil

	default:
		return nil, ErrUnexpectedEOF
	}
}

func decodeLocalVarEntries(br *byteReader) ([]LocalVariableEntry, error) {
	n, err := br.u16()
	if err != nil {
		return nil, err
	}
	entries := make([]LocalVariableEntry, 0, n)
	for i := 0; i < int(n); i++ {
		startPC, err := br.u16()
		if err != nil {
			return nil, err
		}
		length, err := br.u16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := br.u16()
		if err != nil {
			return nil, err
		}
		descIdx, err := br.u16()
		if err != nil {
			return nil, err
		}
		idx, err := br.u16()
		if err != nil {
			return nil, err
		}
		entries = append(entries, LocalVariableEntry{startPC, length, nameIdx, descIdx, idx})
	}
	if br.remaining() != 0 {
		return nil, ErrUnexpectedEOF
	}
	return entries, nil
}
