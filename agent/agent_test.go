/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobin-agent/paramtrace/classfile"
	"github.com/jacobin-agent/paramtrace/excnames"
	"github.com/jacobin-agent/paramtrace/globals"
	"github.com/jacobin-agent/paramtrace/inspector"
	"github.com/jacobin-agent/paramtrace/toolif"
)

func buildThrowableClass(t *testing.T) []byte {
	t.Helper()
	cf := &classfile.Classfile{
		Minor:       0,
		Major:       61,
		CP:          classfile.NewConstantPool(),
		AccessFlags: classfile.AccPublic,
	}
	rw := classfileRewriterFor(cf)
	thisIdx := rw.InternClass("java/lang/Throwable")
	superIdx := rw.InternClass("java/lang/Object")
	cf.ThisClass = thisIdx
	cf.SuperClass = superIdx

	nameIdx := rw.InternUtf8(fillInStackTraceName)
	descIdx := rw.InternUtf8(fillInStackTraceDesc)
	// arity-1 internal fill-in that fillInStackTrace() delegates to,
	// matching spec example E2's aload_0; iconst_0; invokespecial; areturn.
	fillInRef := rw.InternMethodRef("java/lang/Throwable", fillInStackTraceName, "(I)Ljava/lang/Throwable;")
	code := &classfile.CodeAttr{
		MaxStack:  2,
		MaxLocals: 1,
		Code: []classfile.Instruction{
			classfile.NoOperandInsn{Op: classfile.OpAload0},
			classfile.NoOperandInsn{Op: classfile.OpIconst0},
			classfile.FieldOrMethodInsn{Op: classfile.OpInvokespecial, Index: fillInRef},
			classfile.NoOperandInsn{Op: classfile.OpAreturn},
		},
		CodeLength: 6,
	}
	// Encode writes the attribute's NameIndex as-is, so "Code" must be
	// interned here or the attribute decodes back as a RawAttribute.
	code.NameIndex = rw.InternUtf8(classfile.AttrCode)
	cf.Methods = append(cf.Methods, &classfile.MethodInfo{
		AccessFlags: classfile.AccPublic,
		NameIndex:   nameIdx,
		DescIndex:   descIdx,
		Attributes:  []classfile.Attribute{code},
	})

	data, err := classfile.Encode(cf)
	require.NoError(t, err)
	return data
}

func classfileRewriterFor(cf *classfile.Classfile) *testRewriter {
	return &testRewriter{cf: cf}
}

// testRewriter is a tiny local shim so this test file does not need to
// import package rewriter just to intern a couple of names while building
// its fixture classfile by hand.
type testRewriter struct{ cf *classfile.Classfile }

func (r *testRewriter) InternUtf8(s string) uint16 {
	cp := r.cf.CP
	slot := len(cp.Utf8Refs)
	cp.Utf8Refs = append(cp.Utf8Refs, []byte(s))
	idx := uint16(len(cp.CpIndex))
	cp.CpIndex = append(cp.CpIndex, classfile.CpEntry{Type: classfile.TagUtf8, Slot: slot})
	return idx
}

func (r *testRewriter) InternClass(name string) uint16 {
	nameIdx := r.InternUtf8(name)
	cp := r.cf.CP
	slot := len(cp.ClassRefs)
	cp.ClassRefs = append(cp.ClassRefs, nameIdx)
	idx := uint16(len(cp.CpIndex))
	cp.CpIndex = append(cp.CpIndex, classfile.CpEntry{Type: classfile.TagClass, Slot: slot})
	return idx
}

func (r *testRewriter) InternNameAndType(name, desc string) uint16 {
	nameIdx := r.InternUtf8(name)
	descIdx := r.InternUtf8(desc)
	cp := r.cf.CP
	slot := len(cp.NameAndTypes)
	cp.NameAndTypes = append(cp.NameAndTypes, classfile.NameAndTypeEntry{NameIndex: nameIdx, DescIndex: descIdx})
	idx := uint16(len(cp.CpIndex))
	cp.CpIndex = append(cp.CpIndex, classfile.CpEntry{Type: classfile.TagNameAndType, Slot: slot})
	return idx
}

func (r *testRewriter) InternMethodRef(className, name, desc string) uint16 {
	classIdx := r.InternClass(className)
	natIdx := r.InternNameAndType(name, desc)
	cp := r.cf.CP
	slot := len(cp.MethodRefs)
	cp.MethodRefs = append(cp.MethodRefs, classfile.RefEntry{ClassIndex: classIdx, NameAndType: natIdx})
	idx := uint16(len(cp.CpIndex))
	cp.CpIndex = append(cp.CpIndex, classfile.CpEntry{Type: classfile.TagMethodref, Slot: slot})
	return idx
}

func TestClassFileLoadHookRewritesThrowable(t *testing.T) {
	data := buildThrowableClass(t)
	out := ClassFileLoadHook("java/lang/Throwable", data)
	require.NotNil(t, out)

	cf, err := classfile.Decode(out)
	require.NoError(t, err)

	found := false
	for _, f := range cf.Fields {
		if f.Name(cf.CP) == stackParamsField {
			found = true
		}
	}
	assert.True(t, found, "expected stackParams field to be added")

	native := false
	for _, m := range cf.Methods {
		if m.Name(cf.CP) == stackParamFillInName && m.AccessFlags&classfile.AccNative != 0 {
			native = true
		}
	}
	assert.True(t, native, "expected native stackParamFillInStackTrace method")

	fillIn := rewriterFindMethod(cf, fillInStackTraceName, fillInStackTraceDesc)
	require.NotNil(t, fillIn)
	code := fillIn.CodeAttribute()
	require.NotNil(t, code)
	require.Len(t, code.Code, 6)
	// original aload_0; iconst_0; invokespecial stay in place, the two
	// spliced calls land right after them, and the trailing areturn is
	// still last -- never pushed past the spliced call (E2).
	_, ok := code.Code[2].(classfile.FieldOrMethodInsn)
	require.True(t, ok)
	invStatic, ok := code.Code[3].(classfile.FieldOrMethodInsn)
	require.True(t, ok)
	assert.Equal(t, byte(classfile.OpInvokestatic), invStatic.Op)
	invSpecial, ok := code.Code[4].(classfile.FieldOrMethodInsn)
	require.True(t, ok)
	assert.Equal(t, byte(classfile.OpInvokespecial), invSpecial.Op)
	ret, ok := code.Code[5].(classfile.NoOperandInsn)
	require.True(t, ok)
	assert.Equal(t, byte(classfile.OpAreturn), ret.Op)
}

func rewriterFindMethod(cf *classfile.Classfile, name, desc string) *classfile.MethodInfo {
	for _, m := range cf.Methods {
		if m.Name(cf.CP) == name && m.Desc(cf.CP) == desc {
			return m
		}
	}
	return nil
}

func TestClassFileLoadHookIgnoresUnrelatedClass(t *testing.T) {
	out := ClassFileLoadHook("com/example/Widget", []byte{1, 2, 3})
	assert.Nil(t, out)
}

func TestClassFileLoadHookDegradesOnBadBytes(t *testing.T) {
	out := ClassFileLoadHook("java/lang/Throwable", []byte{0, 0, 0, 0})
	assert.Nil(t, out)
}

func TestLoadStackParamsRejectsNegativeDepth(t *testing.T) {
	globals.ResetForTest()
	_, err := LoadStackParams(toolif.FixtureThread{Current: true}, -1)
	require.Error(t, err)
	var hostErr *HostException
	require.ErrorAs(t, err, &hostErr)
	assert.Equal(t, excnames.IllegalArgumentException, hostErr.Kind)
}

func TestLoadStackParamsWithoutVMInitReturnsEmpty(t *testing.T) {
	globals.ResetForTest()
	frames, err := LoadStackParams(toolif.FixtureThread{Current: true}, 10)
	require.NoError(t, err)
	assert.Nil(t, frames)
}

func TestLoadStackParamsUsesConfiguredDefaultDepth(t *testing.T) {
	globals.ResetForTest()
	g := globals.InitGlobals()
	g.SetDefaults(1, 0, "INFO")
	method := &toolif.FixtureMethod{MName: "run", MDescriptor: "()V", MClass: "demo/Sample", MModifiers: 0x0008}
	fixture := &toolif.Fixture{Frames: []toolif.Frame{{Method: method}, {Method: method, Location: 1}}}
	require.True(t, g.SetToolInterface(toolif.ToolInterface(fixture)))

	// depth 0 falls back to the configured default of 1, so only one of
	// the two fixture frames is captured.
	frames, err := LoadStackParams(toolif.FixtureThread{Current: true}, 0)
	require.NoError(t, err)
	assert.Len(t, frames, 1)
}

func TestGetOurStackTraceFallsBackWhenNoCapture(t *testing.T) {
	called := false
	fallback := func() []inspector.CapturedFrame {
		called = true
		return []inspector.CapturedFrame{{MethodName: "orig"}}
	}
	result := GetOurStackTrace(nil, fallback)
	assert.True(t, called)
	require.Len(t, result, 1)
	assert.Equal(t, "orig", result[0].MethodName)
}

func TestElementToStringDelegatesToHelper(t *testing.T) {
	formatter := func(base string, params []interface{}) (string, error) {
		return base + "(x=1)", nil
	}
	result := ElementToString([]interface{}{int64(1)}, "Sample.method", formatter, nil)
	assert.Equal(t, "Sample.method(x=1)", result)
}

func TestElementToStringFallsBackWhenNoParamInfo(t *testing.T) {
	result := ElementToString(nil, "Sample.method", nil, func() string { return "original" })
	assert.Equal(t, "original", result)
}
