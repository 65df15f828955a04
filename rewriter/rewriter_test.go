/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package rewriter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobin-agent/paramtrace/classfile"
)

func newEmptyClass() *classfile.Classfile {
	return &classfile.Classfile{
		Minor: 0,
		Major: 61,
		CP:    classfile.NewConstantPool(),
	}
}

func TestInternUtf8Idempotent(t *testing.T) {
	cf := newEmptyClass()
	rw := New(cf)

	a := rw.InternUtf8("stackParams")
	b := rw.InternUtf8("stackParams")
	assert.Equal(t, a, b)
	assert.Len(t, cf.CP.Utf8Refs, 1)
}

func TestInternMethodRefIdempotent(t *testing.T) {
	cf := newEmptyClass()
	rw := New(cf)

	a := rw.InternMethodRef("java/lang/Thread", "currentThread", "()Ljava/lang/Thread;")
	b := rw.InternMethodRef("java/lang/Thread", "currentThread", "()Ljava/lang/Thread;")
	assert.Equal(t, a, b)
	assert.Len(t, cf.CP.MethodRefs, 1)
	assert.Len(t, cf.CP.ClassRefs, 1)
	assert.Len(t, cf.CP.NameAndTypes, 1)
}

func TestAddFieldAndMethod(t *testing.T) {
	cf := newEmptyClass()
	rw := New(cf)

	rw.AddField(classfile.AccPrivate, "stackParams", "[[Ljava/lang/Object;")
	require.Len(t, cf.Fields, 1)
	assert.Equal(t, "stackParams", cf.Fields[0].Name(cf.CP))

	rw.AddMethod(classfile.AccPrivate|classfile.AccNative, "stackParamFillInStackTrace", "(Ljava/lang/Thread;)V", nil)
	m := rw.FindMethod("stackParamFillInStackTrace", "(Ljava/lang/Thread;)V")
	require.NotNil(t, m)
	assert.True(t, m.AccessFlags&classfile.AccNative != 0)
}

func TestRenameMethod(t *testing.T) {
	cf := newEmptyClass()
	rw := New(cf)
	m := rw.AddMethod(classfile.AccPublic, "toString", "()Ljava/lang/String;", nil)
	rw.RenameMethod(m, "getOurStackTrace$original")
	assert.Equal(t, "getOurStackTrace$original", m.Name(cf.CP))
}

func TestInsertInstructionTailAppend(t *testing.T) {
	code := &classfile.CodeAttr{
		MaxStack:  2,
		MaxLocals: 1,
		Code: []classfile.Instruction{
			classfile.NoOperandInsn{Op: classfile.OpAload0},
		},
	}
	code.CodeLength = 1

	cf := newEmptyClass()
	rw := New(cf)
	err := rw.InsertInstruction(code, len(code.Code),
		classfile.NoOperandInsn{Op: classfile.OpReturn},
	)
	require.NoError(t, err)
	assert.Len(t, code.Code, 2)
	assert.Equal(t, 2, code.CodeLength)
}

func TestInsertInstructionSupportsSafeMidSplice(t *testing.T) {
	// aload_0; invokespecial #1; areturn -- mirrors splicing right after
	// the arity-1 fill-in invocation inside fillInStackTrace() (§4.5, E2).
	code := &classfile.CodeAttr{
		MaxStack:  1,
		MaxLocals: 1,
		Code: []classfile.Instruction{
			classfile.NoOperandInsn{Op: classfile.OpAload0},
			classfile.FieldOrMethodInsn{Op: classfile.OpInvokespecial, Index: 1},
			classfile.NoOperandInsn{Op: classfile.OpAreturn},
		},
		CodeLength: 5,
	}
	cf := newEmptyClass()
	rw := New(cf)
	err := rw.InsertInstruction(code, 2,
		classfile.NoOperandInsn{Op: classfile.OpNop},
		classfile.NoOperandInsn{Op: classfile.OpNop},
	)
	require.NoError(t, err)
	require.Len(t, code.Code, 5)
	assert.Equal(t, byte(classfile.OpAreturn), code.Code[4].(classfile.NoOperandInsn).Op)
	assert.Equal(t, 7, code.CodeLength)
}

func TestInsertInstructionRefusesMidSpliceWhenBranchTargetsPastPoint(t *testing.T) {
	code := &classfile.CodeAttr{
		Code: []classfile.Instruction{
			classfile.NoOperandInsn{Op: classfile.OpAload0},             // offset 0, len 1
			classfile.BranchInsn{Op: classfile.OpGoto, Offset: 5},       // offset 1, len 3, target 6
			classfile.NoOperandInsn{Op: classfile.OpNop},                // offset 4, len 1
			classfile.NoOperandInsn{Op: classfile.OpReturn},             // offset 5, len 1
		},
		CodeLength: 6,
	}
	cf := newEmptyClass()
	rw := New(cf)
	err := rw.InsertInstruction(code, 2, classfile.NoOperandInsn{Op: classfile.OpNop})
	assert.ErrorIs(t, err, ErrUnsafeSplice)
}

func TestInsertInstructionRefusesWhenHandlerCoversSpliceTail(t *testing.T) {
	code := &classfile.CodeAttr{
		Code: []classfile.Instruction{
			classfile.NoOperandInsn{Op: classfile.OpAload0},
			classfile.NoOperandInsn{Op: classfile.OpReturn},
		},
		Exceptions: []classfile.ExceptionTableEntry{
			{StartPC: 0, EndPC: 2, HandlerPC: 2, CatchType: 0},
		},
	}
	cf := newEmptyClass()
	rw := New(cf)
	err := rw.InsertInstruction(code, len(code.Code), classfile.NoOperandInsn{Op: classfile.OpNop})
	assert.ErrorIs(t, err, ErrUnsafeSplice)
}
