/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package agent

import (
	"fmt"

	"github.com/jacobin-agent/paramtrace/classfile"
	"github.com/jacobin-agent/paramtrace/helperclass"
	"github.com/jacobin-agent/paramtrace/rewriter"
)

const (
	stackParamsField      = "stackParams"
	stackParamsFieldDesc  = "[[Ljava/lang/Object;"
	paramInfoField        = "paramInfo"
	paramInfoFieldDesc    = "[Ljava/lang/Object;"

	fillInStackTraceName = "fillInStackTrace"
	fillInStackTraceDesc = "()Ljava/lang/Throwable;"

	stackParamFillInName = "stackParamFillInStackTrace"
	stackParamFillInDesc = "(Ljava/lang/Thread;)V"

	getOurStackTraceName   = "getOurStackTrace"
	getOurStackTraceOldTag = "getOurStackTrace$orig"
	getOurStackTraceDesc   = "()[Ljava/lang/StackTraceElement;"

	toStringName   = "toString"
	toStringOldTag = "toString$orig"
	toStringDesc   = "()Ljava/lang/String;"

	threadClassName           = "java/lang/Thread"
	currentThreadName         = "currentThread"
	currentThreadDesc         = "()Ljava/lang/Thread;"
)

// RewriteThrowable applies §4.5's targeted rewrite to java.lang.Throwable:
//
//  1. add the stackParams field ([[Ljava/lang/Object;)
//  2. add the native stackParamFillInStackTrace(Thread) method
//  3. splice a Thread.currentThread() call and a call to the new native
//     immediately after fillInStackTrace()'s existing arity-1 fill-in
//     invocation
//  4. rename getOurStackTrace() out of the way and add a replacement
//     native with the original name/descriptor
//
// Every name/descriptor touched is interned via the Rewriter (R2). The
// splice in step 3 goes through rewriter.InsertInstruction, which refuses
// (ErrUnsafeSplice) if it cannot prove the insertion point safe; that
// refusal propagates up to the caller unchanged, since the agent shell
// always responds to it the same way -- leave the class unrewritten.
func RewriteThrowable(cf *classfile.Classfile) error {
	rw := rewriter.New(cf)

	rw.AddField(classfile.AccPrivate, stackParamsField, stackParamsFieldDesc)
	rw.AddMethod(classfile.AccPrivate|classfile.AccNative, stackParamFillInName, stackParamFillInDesc, nil)

	fillIn := rw.FindMethod(fillInStackTraceName, fillInStackTraceDesc)
	if fillIn == nil {
		return fmt.Errorf("agent: %s%s not found on Throwable", fillInStackTraceName, fillInStackTraceDesc)
	}
	code := rw.MethodCode(fillIn)
	if code == nil {
		return fmt.Errorf("agent: %s has no Code attribute", fillInStackTraceName)
	}

	thisClassName, ok := cf.ThisClassName()
	if !ok {
		return fmt.Errorf("agent: could not resolve this_class name")
	}

	currentThreadRef := rw.InternMethodRef(threadClassName, currentThreadName, currentThreadDesc)
	stackParamFillInRef := rw.InternMethodRef(thisClassName, stackParamFillInName, stackParamFillInDesc)

	fillInIdx, err := findFillInInvocation(cf.CP, code)
	if err != nil {
		return err
	}

	if err := rw.InsertInstruction(code, fillInIdx+1,
		classfile.FieldOrMethodInsn{Op: classfile.OpInvokestatic, Index: currentThreadRef},
		classfile.FieldOrMethodInsn{Op: classfile.OpInvokespecial, Index: stackParamFillInRef},
	); err != nil {
		return fmt.Errorf("agent: splicing stackParamFillInStackTrace call: %w", err)
	}

	orig := rw.FindMethod(getOurStackTraceName, getOurStackTraceDesc)
	if orig != nil {
		rw.RenameMethod(orig, getOurStackTraceOldTag)
	}
	rw.AddMethod(classfile.AccPrivate|classfile.AccNative, getOurStackTraceName, getOurStackTraceDesc, nil)

	return nil
}

// findFillInInvocation locates the invokespecial targeting the internal
// arity-1 fill-in inside fillInStackTrace()'s own body (§4.5 step 3, E2):
// the one invokespecial named fillInStackTrace whose descriptor is not the
// zero-arity entry point itself.
func findFillInInvocation(cp *classfile.ConstantPool, code *classfile.CodeAttr) (int, error) {
	for i, insn := range code.Code {
		fm, ok := insn.(classfile.FieldOrMethodInsn)
		if !ok || fm.Op != classfile.OpInvokespecial {
			continue
		}
		name, desc, ok := methodRefNameDesc(cp, fm.Index)
		if !ok || name != fillInStackTraceName || desc == fillInStackTraceDesc {
			continue
		}
		return i, nil
	}
	return -1, fmt.Errorf("agent: no arity-1 %s invocation found in its own body", fillInStackTraceName)
}

func methodRefNameDesc(cp *classfile.ConstantPool, idx uint16) (name, desc string, ok bool) {
	if int(idx) < 1 || int(idx) >= cp.Count() {
		return "", "", false
	}
	e := cp.CpIndex[idx]
	if e.Type != classfile.TagMethodref {
		return "", "", false
	}
	ref := cp.MethodRefs[e.Slot]
	return cp.NameAndTypeAt(ref.NameAndType)
}

// RewriteStackTraceElement applies §4.5's targeted rewrite to
// java.lang.StackTraceElement: add the paramInfo field, rename toString()
// out of the way, and add a replacement native with the original
// name/descriptor that delegates to the embedded helper class.
func RewriteStackTraceElement(cf *classfile.Classfile) error {
	if err := helperclass.Validate(); err != nil {
		return fmt.Errorf("agent: refusing StackTraceElement rewrite: %w", err)
	}

	rw := rewriter.New(cf)
	rw.AddField(classfile.AccPrivate, paramInfoField, paramInfoFieldDesc)

	orig := rw.FindMethod(toStringName, toStringDesc)
	if orig != nil {
		rw.RenameMethod(orig, toStringOldTag)
	}
	rw.AddMethod(classfile.AccPublic|classfile.AccNative, toStringName, toStringDesc, nil)

	// Pre-intern the helper class's formatter reference so the writer
	// never needs to touch the pool (§4.2); the native service itself
	// invokes it through the tool interface rather than through a
	// re-entrant bytecode call, but interning here keeps the constant
	// pool stable across repeated ClassFileLoadHook invocations for the
	// same class (a retransform), matching R2's idempotence guarantee.
	rw.InternMethodRef(helperclass.ClassName, helperclass.FormatMethodName, helperclass.FormatMethodDescriptor)

	return nil
}
