/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

// decodeCode decodes a Code attribute body. br is already scoped to exactly
// the attribute's length bytes.
func decodeCode(br *byteReader, base attrBase, cp *ConstantPool) (Attribute, error) {
	maxStack, err := br.u16()
	if err != nil {
		return nil, err
	}
	maxLocals, err := br.u16()
	if err != nil {
		return nil, err
	}
	codeLength, err := br.u32()
	if err != nil {
		return nil, err
	}
	codeBytes, err := br.bytes(int(codeLength))
	if err != nil {
		return nil, err
	}
	insns, err := decodeInstructions(codeBytes)
	if err != nil {
		return nil, err
	}

	excCount, err := br.u16()
	if err != nil {
		return nil, err
	}
	exceptions := make([]ExceptionTableEntry, 0, excCount)
	for i := 0; i < int(excCount); i++ {
		startPC, err := br.u16()
		if err != nil {
			return nil, err
		}
		endPC, err := br.u16()
		if err != nil {
			return nil, err
		}
		handlerPC, err := br.u16()
		if err != nil {
			return nil, err
		}
		catchType, err := br.u16()
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, ExceptionTableEntry{startPC, endPC, handlerPC, catchType})
	}

	attrs, err := decodeAttributes(br, cp)
	if err != nil {
		return nil, err
	}
	if br.remaining() != 0 {
		return nil, ErrUnexpectedEOF
	}

	return &CodeAttr{
		attrBase:   base,
		MaxStack:   maxStack,
		MaxLocals:  maxLocals,
		Code:       insns,
		CodeLength: int(codeLength),
		Exceptions: exceptions,
		Attributes: attrs,
	}, nil
}

// decodeInstructions decodes a Code array into the Instruction tagged
// union, one opcode at a time. Offsets are tracked from the start of the
// array since switch-opcode padding (R4) depends on them.
func decodeInstructions(code []byte) ([]Instruction, error) {
	r := newByteReader(code)
	var insns []Instruction

	for r.remaining() > 0 {
		offset := r.pos
		op, err := r.u8()
		if err != nil {
			return nil, err
		}

		if op == OpWide {
			insn, err := decodeWideInstruction(r)
			if err != nil {
				return nil, err
			}
			insns = append(insns, insn)
			continue
		}

		cat, ok := opcodeCategories[op]
		if !ok {
			return nil, cfef("unrecognized opcode %#x at offset %d", op, offset)
		}

		insn, err := decodeInstructionBody(r, op, cat, offset)
		if err != nil {
			return nil, err
		}
		insns = append(insns, insn)
	}
	return insns, nil
}

func decodeWideInstruction(r *byteReader) (Instruction, error) {
	op, err := r.u8()
	if err != nil {
		return nil, err
	}
	if op == OpIinc {
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		c, err := r.i16()
		if err != nil {
			return nil, err
		}
		return IincInsn{Index: idx, Const: c, Wide: true}, nil
	}
	idx, err := r.u16()
	if err != nil {
		return nil, err
	}
	return VarInsn{Op: op, Index: idx, Wide: true}, nil
}

func decodeInstructionBody(r *byteReader, op byte, cat opCategory, offset int) (Instruction, error) {
	switch cat {
	case catNoOperand:
		return NoOperandInsn{Op: op}, nil

	case catBipush:
		v, err := r.i8()
		if err != nil {
			return nil, err
		}
		return BipushInsn{Value: v}, nil

	case catSipush:
		v, err := r.i16()
		if err != nil {
			return nil, err
		}
		return SipushInsn{Value: v}, nil

	case catLdc:
		idx, err := r.u8()
		if err != nil {
			return nil, err
		}
		return LdcInsn{Index: idx}, nil

	case catLdcW:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		return LdcWInsn{Index: idx}, nil

	case catLdc2W:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		return Ldc2WInsn{Index: idx}, nil

	case catVar:
		idx, err := r.u8()
		if err != nil {
			return nil, err
		}
		return VarInsn{Op: op, Index: uint16(idx)}, nil

	case catIinc:
		idx, err := r.u8()
		if err != nil {
			return nil, err
		}
		c, err := r.i8()
		if err != nil {
			return nil, err
		}
		return IincInsn{Index: uint16(idx), Const: int16(c)}, nil

	case catBranch16:
		off, err := r.i16()
		if err != nil {
			return nil, err
		}
		return BranchInsn{Op: op, Offset: int32(off)}, nil

	case catBranch32:
		off, err := r.i32()
		if err != nil {
			return nil, err
		}
		return BranchInsn{Op: op, Offset: off, Wide32: true}, nil

	case catTableSwitch:
		return decodeTableSwitch(r, offset)

	case catLookupSwitch:
		return decodeLookupSwitch(r, offset)

	case catFieldOrMethod:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		return FieldOrMethodInsn{Op: op, Index: idx}, nil

	case catInvokeInterface:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		count, err := r.u8()
		if err != nil {
			return nil, err
		}
		zero, err := r.u8()
		if err != nil {
			return nil, err
		}
		if zero != 0 {
			return nil, cfe("invokeinterface reserved byte not zero")
		}
		return InvokeInterfaceInsn{Index: idx, Count: count}, nil

	case catInvokeDynamic:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		reserved, err := r.u16()
		if err != nil {
			return nil, err
		}
		if reserved != 0 {
			return nil, cfe("invokedynamic reserved bytes not zero")
		}
		return InvokeDynamicInsn{Index: idx}, nil

	case catType:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		return TypeInsn{Op: op, Index: idx}, nil

	case catNewArray:
		atype, err := r.u8()
		if err != nil {
			return nil, err
		}
		return NewArrayInsn{AType: atype}, nil

	case catMultiANewArray:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		dims, err := r.u8()
		if err != nil {
			return nil, err
		}
		return MultiANewArrayInsn{Index: idx, Dimensions: dims}, nil

	default:
		return nil, cfef("unhandled opcode category for %#x", op)
	}
}

func decodeTableSwitch(r *byteReader, offset int) (Instruction, error) {
	pad := switchPadding(offset)
	if _, err := r.bytes(pad); err != nil {
		return nil, err
	}
	def, err := r.i32()
	if err != nil {
		return nil, err
	}
	low, err := r.i32()
	if err != nil {
		return nil, err
	}
	high, err := r.i32()
	if err != nil {
		return nil, err
	}
	n := int(high) - int(low) + 1
	if n < 0 {
		return nil, cfe("tableswitch high < low")
	}
	offsets := make([]int32, 0, n)
	for i := 0; i < n; i++ {
		o, err := r.i32()
		if err != nil {
			return nil, err
		}
		offsets = append(offsets, o)
	}
	return TableSwitchInsn{Default: def, Low: low, High: high, Offsets: offsets}, nil
}

func decodeLookupSwitch(r *byteReader, offset int) (Instruction, error) {
	pad := switchPadding(offset)
	if _, err := r.bytes(pad); err != nil {
		return nil, err
	}
	def, err := r.i32()
	if err != nil {
		return nil, err
	}
	npairs, err := r.i32()
	if err != nil {
		return nil, err
	}
	if npairs < 0 {
		return nil, cfe("lookupswitch negative npairs")
	}
	pairs := make([]SwitchPair, 0, npairs)
	for i := int32(0); i < npairs; i++ {
		match, err := r.i32()
		if err != nil {
			return nil, err
		}
		off, err := r.i32()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, SwitchPair{Match: match, Offset: off})
	}
	return LookupSwitchInsn{Default: def, Pairs: pairs}, nil
}

// decodeStackMapTable decodes a StackMapTable attribute body.
func decodeStackMapTable(br *byteReader, base attrBase) (Attribute, error) {
	n, err := br.u16()
	if err != nil {
		return nil, err
	}
	frames := make([]StackMapFrame, 0, n)
	for i := 0; i < int(n); i++ {
		tag, err := br.u8()
		if err != nil {
			return nil, err
		}
		frame, err := decodeStackMapFrame(br, tag)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	if br.remaining() != 0 {
		return nil, ErrUnexpectedEOF
	}
	return &StackMapTableAttr{base, frames}, nil
}

func decodeStackMapFrame(br *byteReader, tag uint8) (StackMapFrame, error) {
	kind := frameKindForTag(tag)
	f := StackMapFrame{Tag: tag, Kind: kind}

	switch kind {
	case FrameSame:
		f.OffsetDelta = uint16(tag)
		return f, nil

	case FrameSameLocals1StackItem:
		f.OffsetDelta = uint16(tag) - 64
		vt, err := decodeVerificationType(br)
		if err != nil {
			return f, err
		}
		f.Stack = []VerificationType{vt}
		return f, nil

	case FrameSameLocals1StackItemExtended:
		delta, err := br.u16()
		if err != nil {
			return f, err
		}
		f.OffsetDelta = delta
		vt, err := decodeVerificationType(br)
		if err != nil {
			return f, err
		}
		f.Stack = []VerificationType{vt}
		return f, nil

	case FrameChop:
		delta, err := br.u16()
		if err != nil {
			return f, err
		}
		f.OffsetDelta = delta
		f.ChopCount = 251 - tag
		return f, nil

	case FrameSameExtended:
		delta, err := br.u16()
		if err != nil {
			return f, err
		}
		f.OffsetDelta = delta
		return f, nil

	case FrameAppend:
		delta, err := br.u16()
		if err != nil {
			return f, err
		}
		f.OffsetDelta = delta
		count := int(tag) - 251
		locals := make([]VerificationType, 0, count)
		for i := 0; i < count; i++ {
			vt, err := decodeVerificationType(br)
			if err != nil {
				return f, err
			}
			locals = append(locals, vt)
		}
		f.Locals = locals
		return f, nil

	case FrameFull:
		delta, err := br.u16()
		if err != nil {
			return f, err
		}
		f.OffsetDelta = delta
		localCount, err := br.u16()
		if err != nil {
			return f, err
		}
		locals := make([]VerificationType, 0, localCount)
		for i := 0; i < int(localCount); i++ {
			vt, err := decodeVerificationType(br)
			if err != nil {
				return f, err
			}
			locals = append(locals, vt)
		}
		stackCount, err := br.u16()
		if err != nil {
			return f, err
		}
		stack := make([]VerificationType, 0, stackCount)
		for i := 0; i < int(stackCount); i++ {
			vt, err := decodeVerificationType(br)
			if err != nil {
				return f, err
			}
			stack = append(stack, vt)
		}
		f.Locals = locals
		f.Stack = stack
		return f, nil

	default:
		return f, cfef("reserved/future-use stack map frame tag %d", tag)
	}
}

func decodeVerificationType(br *byteReader) (VerificationType, error) {
	tag, err := br.u8()
	if err != nil {
		return VerificationType{}, err
	}
	vt := VerificationType{Tag: tag}
	switch tag {
	case VTObject:
		idx, err := br.u16()
		if err != nil {
			return vt, err
		}
		vt.CpIndex = idx
	case VTUninitialized:
		off, err := br.u16()
		if err != nil {
			return vt, err
		}
		vt.Offset = off
	}
	return vt, nil
}
