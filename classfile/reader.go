/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

// Decode parses a complete classfile from bytes. Big-endian throughout, per
// §4.1. On any structural failure it returns a *FormatError describing
// where decode went wrong; the caller (package rewriter / the agent shell)
// must then fall back to the original bytes unchanged (§7).
func Decode(data []byte) (*Classfile, error) {
	r := newByteReader(data)

	magic, err := r.u32()
	if err != nil {
		return nil, cfe("truncated magic")
	}
	if magic != Magic {
		return nil, cfef("bad magic: %#x", magic)
	}

	minor, err := r.u16()
	if err != nil {
		return nil, cfe("truncated minor version")
	}
	major, err := r.u16()
	if err != nil {
		return nil, cfe("truncated major version")
	}

	cp, err := decodeConstantPool(r)
	if err != nil {
		return nil, err
	}

	accessFlags, err := r.u16()
	if err != nil {
		return nil, cfe("truncated access flags")
	}
	thisClass, err := r.u16()
	if err != nil {
		return nil, cfe("truncated this_class")
	}
	superClass, err := r.u16()
	if err != nil {
		return nil, cfe("truncated super_class")
	}

	ifaceCount, err := r.u16()
	if err != nil {
		return nil, cfe("truncated interfaces_count")
	}
	interfaces := make([]uint16, 0, ifaceCount)
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := r.u16()
		if err != nil {
			return nil, cfe("truncated interface index")
		}
		interfaces = append(interfaces, idx)
	}

	fields, err := decodeFields(r, cp)
	if err != nil {
		return nil, err
	}
	methods, err := decodeMethods(r, cp)
	if err != nil {
		return nil, err
	}
	attrs, err := decodeAttributes(r, cp)
	if err != nil {
		return nil, err
	}

	return &Classfile{
		Minor:       minor,
		Major:       major,
		CP:          cp,
		AccessFlags: accessFlags,
		ThisClass:   thisClass,
		SuperClass:  superClass,
		Interfaces:  interfaces,
		Fields:      fields,
		Methods:     methods,
		Attributes:  attrs,
	}, nil
}

func decodeConstantPool(r *byteReader) (*ConstantPool, error) {
	count, err := r.u16()
	if err != nil {
		return nil, cfe("truncated constant_pool_count")
	}
	cp := NewConstantPool()
	for len(cp.CpIndex) < int(count) {
		tag, err := r.u8()
		if err != nil {
			return nil, cfe("truncated constant pool entry tag")
		}
		entry, wide, err := decodeConstant(r, cp, tag)
		if err != nil {
			return nil, err
		}
		cp.CpIndex = append(cp.CpIndex, entry)
		if wide {
			// Long/Double occupy two logical slots; the slot after is a
			// Placeholder and must not be referenced by anything (R5).
			cp.CpIndex = append(cp.CpIndex, CpEntry{Type: TagPlaceholder})
		}
	}
	return cp, nil
}

// decodeConstant reads one constant pool entry body (the tag byte has
// already been consumed) and returns the CpEntry plus whether this entry
// occupies two logical slots (Long/Double).
func decodeConstant(r *byteReader, cp *ConstantPool, tag uint8) (CpEntry, bool, error) {
	switch tag {
	case TagUtf8:
		n, err := r.u16()
		if err != nil {
			return CpEntry{}, false, cfe("truncated utf8 length")
		}
		b, err := r.bytes(int(n))
		if err != nil {
			return CpEntry{}, false, cfe("truncated utf8 bytes")
		}
		slot := len(cp.Utf8Refs)
		cp.Utf8Refs = append(cp.Utf8Refs, append([]byte(nil), b...))
		return CpEntry{Type: TagUtf8, Slot: slot}, false, nil

	case TagInteger:
		v, err := r.i32()
		if err != nil {
			return CpEntry{}, false, cfe("truncated integer constant")
		}
		slot := len(cp.IntConsts)
		cp.IntConsts = append(cp.IntConsts, v)
		return CpEntry{Type: TagInteger, Slot: slot}, false, nil

	case TagFloat:
		v, err := r.u32()
		if err != nil {
			return CpEntry{}, false, cfe("truncated float constant")
		}
		slot := len(cp.FloatConsts)
		cp.FloatConsts = append(cp.FloatConsts, u32ToFloat32(v))
		return CpEntry{Type: TagFloat, Slot: slot}, false, nil

	case TagLong:
		v, err := r.u64()
		if err != nil {
			return CpEntry{}, false, cfe("truncated long constant")
		}
		slot := len(cp.LongConsts)
		cp.LongConsts = append(cp.LongConsts, int64(v))
		return CpEntry{Type: TagLong, Slot: slot}, true, nil

	case TagDouble:
		v, err := r.u64()
		if err != nil {
			return CpEntry{}, false, cfe("truncated double constant")
		}
		slot := len(cp.DoubleConsts)
		cp.DoubleConsts = append(cp.DoubleConsts, u64ToFloat64(v))
		return CpEntry{Type: TagDouble, Slot: slot}, true, nil

	case TagClass:
		idx, err := r.u16()
		if err != nil {
			return CpEntry{}, false, cfe("truncated class name index")
		}
		slot := len(cp.ClassRefs)
		cp.ClassRefs = append(cp.ClassRefs, idx)
		return CpEntry{Type: TagClass, Slot: slot}, false, nil

	case TagString:
		idx, err := r.u16()
		if err != nil {
			return CpEntry{}, false, cfe("truncated string index")
		}
		slot := len(cp.StringRefs)
		cp.StringRefs = append(cp.StringRefs, idx)
		return CpEntry{Type: TagString, Slot: slot}, false, nil

	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		classIdx, err := r.u16()
		if err != nil {
			return CpEntry{}, false, cfe("truncated ref class index")
		}
		natIdx, err := r.u16()
		if err != nil {
			return CpEntry{}, false, cfe("truncated ref name-and-type index")
		}
		ref := RefEntry{ClassIndex: classIdx, NameAndType: natIdx}
		switch tag {
		case TagFieldref:
			slot := len(cp.FieldRefs)
			cp.FieldRefs = append(cp.FieldRefs, ref)
			return CpEntry{Type: TagFieldref, Slot: slot}, false, nil
		case TagMethodref:
			slot := len(cp.MethodRefs)
			cp.MethodRefs = append(cp.MethodRefs, ref)
			return CpEntry{Type: TagMethodref, Slot: slot}, false, nil
		default:
			slot := len(cp.InterfaceRefs)
			cp.InterfaceRefs = append(cp.InterfaceRefs, ref)
			return CpEntry{Type: TagInterfaceMethodref, Slot: slot}, false, nil
		}

	case TagNameAndType:
		nameIdx, err := r.u16()
		if err != nil {
			return CpEntry{}, false, cfe("truncated name-and-type name index")
		}
		descIdx, err := r.u16()
		if err != nil {
			return CpEntry{}, false, cfe("truncated name-and-type descriptor index")
		}
		slot := len(cp.NameAndTypes)
		cp.NameAndTypes = append(cp.NameAndTypes, NameAndTypeEntry{NameIndex: nameIdx, DescIndex: descIdx})
		return CpEntry{Type: TagNameAndType, Slot: slot}, false, nil

	case TagMethodHandle:
		kind, err := r.u8()
		if err != nil {
			return CpEntry{}, false, cfe("truncated method handle kind")
		}
		refIdx, err := r.u16()
		if err != nil {
			return CpEntry{}, false, cfe("truncated method handle ref index")
		}
		slot := len(cp.MethodHandles)
		cp.MethodHandles = append(cp.MethodHandles, MethodHandleEntry{RefKind: kind, RefIndex: refIdx})
		return CpEntry{Type: TagMethodHandle, Slot: slot}, false, nil

	case TagMethodType:
		descIdx, err := r.u16()
		if err != nil {
			return CpEntry{}, false, cfe("truncated method type descriptor index")
		}
		slot := len(cp.MethodTypes)
		cp.MethodTypes = append(cp.MethodTypes, descIdx)
		return CpEntry{Type: TagMethodType, Slot: slot}, false, nil

	case TagDynamic, TagInvokeDynamic:
		bsmIdx, err := r.u16()
		if err != nil {
			return CpEntry{}, false, cfe("truncated dynamic bootstrap index")
		}
		natIdx, err := r.u16()
		if err != nil {
			return CpEntry{}, false, cfe("truncated dynamic name-and-type index")
		}
		entry := DynamicEntry{BootstrapIndex: bsmIdx, NameAndType: natIdx}
		if tag == TagDynamic {
			slot := len(cp.Dynamics)
			cp.Dynamics = append(cp.Dynamics, entry)
			return CpEntry{Type: TagDynamic, Slot: slot}, false, nil
		}
		slot := len(cp.InvokeDynamics)
		cp.InvokeDynamics = append(cp.InvokeDynamics, entry)
		return CpEntry{Type: TagInvokeDynamic, Slot: slot}, false, nil

	case TagModule:
		idx, err := r.u16()
		if err != nil {
			return CpEntry{}, false, cfe("truncated module name index")
		}
		slot := len(cp.ModuleRefs)
		cp.ModuleRefs = append(cp.ModuleRefs, idx)
		return CpEntry{Type: TagModule, Slot: slot}, false, nil

	case TagPackage:
		idx, err := r.u16()
		if err != nil {
			return CpEntry{}, false, cfe("truncated package name index")
		}
		slot := len(cp.PackageRefs)
		cp.PackageRefs = append(cp.PackageRefs, idx)
		return CpEntry{Type: TagPackage, Slot: slot}, false, nil

	default:
		// Unknown tag: the reader does not abort so that partial recovery
		// is possible (§4.1) -- captured as Constant::Unknown(tag) rather
		// than failing decode outright. Unlike attributes, a constant pool
		// entry has no self-describing length, so an unknown tag here
		// means every subsequent constant pool index in this class is
		// unreliable; callers that hit a non-empty Unknowns list on a
		// class they intend to rewrite should treat the whole decode with
		// suspicion, exactly as they would a lone unresolvable symbol.
		slot := len(cp.Unknowns)
		cp.Unknowns = append(cp.Unknowns, UnknownEntry{Tag: tag})
		return CpEntry{Type: 0xff, Slot: slot}, false, nil
	}
}

func u32ToFloat32(v uint32) float32 {
	return float32frombits(v)
}

func u64ToFloat64(v uint64) float64 {
	return float64frombits(v)
}
