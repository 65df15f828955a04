/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

func decodeAnnotations(br *byteReader) ([]Annotation, error) {
	n, err := br.u16()
	if err != nil {
		return nil, err
	}
	anns := make([]Annotation, 0, n)
	for i := 0; i < int(n); i++ {
		a, err := decodeAnnotation(br)
		if err != nil {
			return nil, err
		}
		anns = append(anns, a)
	}
	if br.remaining() != 0 {
		return nil, ErrUnexpectedEOF
	}
	return anns, nil
}

func decodeAnnotation(br *byteReader) (Annotation, error) {
	typeIdx, err := br.u16()
	if err != nil {
		return Annotation{}, err
	}
	n, err := br.u16()
	if err != nil {
		return Annotation{}, err
	}
	pairs := make([]ElementValuePair, 0, n)
	for i := 0; i < int(n); i++ {
		p, err := decodeElementValuePair(br)
		if err != nil {
			return Annotation{}, err
		}
		pairs = append(pairs, p)
	}
	return Annotation{TypeIndex: typeIdx, ElementPairs: pairs}, nil
}

func decodeElementValuePair(br *byteReader) (ElementValuePair, error) {
	nameIdx, err := br.u16()
	if err != nil {
		return ElementValuePair{}, err
	}
	v, err := decodeElementValue(br)
	if err != nil {
		return ElementValuePair{}, err
	}
	return ElementValuePair{ElementNameIndex: nameIdx, Value: v}, nil
}

func decodeElementValue(br *byteReader) (ElementValue, error) {
	tag, err := br.u8()
	if err != nil {
		return ElementValue{}, err
	}
	ev := ElementValue{Tag: tag}

	switch tag {
	case EVByte, EVChar, EVDouble, EVFloat, EVInt, EVLong, EVShort, EVBoolean, EVString:
		idx, err := br.u16()
		if err != nil {
			return ev, err
		}
		ev.ConstValueIndex = idx

	case EVEnum:
		typeNameIdx, err := br.u16()
		if err != nil {
			return ev, err
		}
		constNameIdx, err := br.u16()
		if err != nil {
			return ev, err
		}
		ev.TypeNameIndex = typeNameIdx
		ev.ConstNameIndex = constNameIdx

	case EVClass:
		idx, err := br.u16()
		if err != nil {
			return ev, err
		}
		ev.ClassInfoIndex = idx

	case EVAnnotation:
		nested, err := decodeAnnotation(br)
		if err != nil {
			return ev, err
		}
		ev.NestedAnnotation = &nested

	case EVArray:
		n, err := br.u16()
		if err != nil {
			return ev, err
		}
		values := make([]ElementValue, 0, n)
		for i := 0; i < int(n); i++ {
			v, err := decodeElementValue(br)
			if err != nil {
				return ev, err
			}
			values = append(values, v)
		}
		ev.Values = values

	default:
		return ev, cfef("unrecognized element value tag %q", tag)
	}
	return ev, nil
}

func decodeParameterAnnotations(br *byteReader) ([][]Annotation, error) {
	numParams, err := br.u8()
	if err != nil {
		return nil, err
	}
	result := make([][]Annotation, 0, numParams)
	for i := 0; i < int(numParams); i++ {
		n, err := br.u16()
		if err != nil {
			return nil, err
		}
		anns := make([]Annotation, 0, n)
		for j := 0; j < int(n); j++ {
			a, err := decodeAnnotation(br)
			if err != nil {
				return nil, err
			}
			anns = append(anns, a)
		}
		result = append(result, anns)
	}
	if br.remaining() != 0 {
		return nil, ErrUnexpectedEOF
	}
	return result, nil
}

func decodeTypeAnnotations(br *byteReader) ([]TypeAnnotation, error) {
	n, err := br.u16()
	if err != nil {
		return nil, err
	}
	tas := make([]TypeAnnotation, 0, n)
	for i := 0; i < int(n); i++ {
		ta, err := decodeTypeAnnotation(br)
		if err != nil {
			return nil, err
		}
		tas = append(tas, ta)
	}
	if br.remaining() != 0 {
		return nil, ErrUnexpectedEOF
	}
	return tas, nil
}

func decodeTypeAnnotation(br *byteReader) (TypeAnnotation, error) {
	targetType, err := br.u8()
	if err != nil {
		return TypeAnnotation{}, err
	}
	target, err := decodeTargetInfo(br, targetType)
	if err != nil {
		return TypeAnnotation{}, err
	}
	path, err := decodeTypePath(br)
	if err != nil {
		return TypeAnnotation{}, err
	}
	typeIdx, err := br.u16()
	if err != nil {
		return TypeAnnotation{}, err
	}
	n, err := br.u16()
	if err != nil {
		return TypeAnnotation{}, err
	}
	pairs := make([]ElementValuePair, 0, n)
	for i := 0; i < int(n); i++ {
		p, err := decodeElementValuePair(br)
		if err != nil {
			return TypeAnnotation{}, err
		}
		pairs = append(pairs, p)
	}
	return TypeAnnotation{
		TargetType:   targetType,
		Target:       target,
		TypePath:     path,
		TypeIndex:    typeIdx,
		ElementPairs: pairs,
	}, nil
}

func decodeTargetInfo(br *byteReader, targetType uint8) (TargetInfo, error) {
	t := TargetInfo{TargetType: targetType}
	switch targetType {
	case TargetTypeParameterClass, TargetTypeParameterMethod:
		v, err := br.u8()
		if err != nil {
			return t, err
		}
		t.TypeParamIndex = v

	case TargetSuperType:
		v, err := br.u16()
		if err != nil {
			return t, err
		}
		t.SuperTypeIndex = v

	case TargetTypeParameterBoundClass, TargetTypeParameterBoundMethod:
		p, err := br.u8()
		if err != nil {
			return t, err
		}
		b, err := br.u8()
		if err != nil {
			return t, err
		}
		t.BoundParamIndex = p
		t.BoundIndex = b

	case TargetEmptyFieldOrReturn, TargetEmptyReceiver, TargetEmptyNewTypeArg:
		// empty_target: nothing to read

	case TargetMethodFormalParameter:
		v, err := br.u8()
		if err != nil {
			return t, err
		}
		t.FormalParamIndex = v

	case TargetThrows:
		v, err := br.u16()
		if err != nil {
			return t, err
		}
		t.ThrowsIndex = v

	case TargetLocalVar, TargetResourceVar:
		n, err := br.u16()
		if err != nil {
			return t, err
		}
		targets := make([]LocalVarTarget, 0, n)
		for i := 0; i < int(n); i++ {
			startPC, err := br.u16()
			if err != nil {
				return t, err
			}
			length, err := br.u16()
			if err != nil {
				return t, err
			}
			idx, err := br.u16()
			if err != nil {
				return t, err
			}
			targets = append(targets, LocalVarTarget{startPC, length, idx})
		}
		t.LocalVarTargets = targets

	case TargetCatch:
		v, err := br.u16()
		if err != nil {
			return t, err
		}
		t.CatchIndex = v

	case TargetOffsetInstanceOf, TargetOffsetNew, TargetOffsetNewRef, TargetOffsetMethodRef:
		v, err := br.u16()
		if err != nil {
			return t, err
		}
		t.OffsetIndex = v

	case TargetTypeArgCast, TargetTypeArgNew, TargetTypeArgMethodCall, TargetTypeArgNewRef, TargetTypeArgMethodRef:
		off, err := br.u16()
		if err != nil {
			return t, err
		}
		idx, err := br.u8()
		if err != nil {
			return t, err
		}
		t.TypeArgOffset = off
		t.TypeArgIndex = idx

	default:
		return t, cfef("unrecognized type annotation target_type %#x", targetType)
	}
	return t, nil
}

func decodeTypePath(br *byteReader) ([]TypePathEntry, error) {
	n, err := br.u8()
	if err != nil {
		return nil, err
	}
	path := make([]TypePathEntry, 0, n)
	for i := 0; i < int(n); i++ {
		kind, err := br.u8()
		if err != nil {
			return nil, err
		}
		argIdx, err := br.u8()
		if err != nil {
			return nil, err
		}
		path = append(path, TypePathEntry{TypePathKind: kind, TypeArgumentIndex: argIdx})
	}
	return path, nil
}
