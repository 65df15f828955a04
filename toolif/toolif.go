/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package toolif abstracts the host runtime's tool interface (the JVMTI-
// style capability set the agent was granted at load time): thread and
// frame enumeration, local-variable reads by kind, and method/class
// metadata queries. Everything above this package (inspector, agent) is
// written against the ToolInterface contract, never against a concrete
// host binding, so that package agent's native services and the offline
// CLI's `capture` command can share the same Stack Inspector code against
// two different implementations (a live JVMTI binding and a fixture).
package toolif

// ValueKind identifies the primitive/reference kind of one local-variable
// slot, mirroring the descriptor's base type letter.
type ValueKind int

const (
	KindObject ValueKind = iota
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindBoolean
	KindByte
	KindChar
	KindShort
)

// ThreadHandle identifies one host thread. The zero value means "current
// thread" wherever it is accepted (§4.4's "thread handle, or none").
type ThreadHandle interface {
	// IsCurrent reports whether this handle denotes the calling thread.
	IsCurrent() bool
}

// Frame identifies one stack frame on a thread, as returned by
// ToolInterface.GetStackFrames in innermost-first order (frame 0 is the
// most recent call).
type Frame struct {
	Method MethodHandle
	// Location is the bytecode offset of the currently executing
	// instruction within Method, used to reconcile against a
	// LocalVariableTable's [StartPC, StartPC+Length) range.
	Location int
}

// MethodHandle identifies one resolved method on the host runtime.
type MethodHandle interface {
	Name() string
	Descriptor() string
	Modifiers() uint16
	DeclaringClass() string
	// IsNative reports whether the method has no Code attribute -- its
	// locals cannot be read and the Inspector must record the frame as
	// parsed-but-valueless rather than attempt extraction (§4.4).
	IsNative() bool
	// LocalVariableTable returns the method's debug table, if the class
	// was compiled with -g (or equivalent); ok is false if absent, in
	// which case the Inspector skips reconciliation and keeps its
	// placeholder argN names.
	LocalVariableTable() (entries []LocalVarEntry, ok bool)
}

// LocalVarEntry mirrors classfile.LocalVariableEntry but resolved to
// strings, since the Inspector operates above constant-pool indices.
type LocalVarEntry struct {
	StartPC    int
	Length     int
	Name       string
	Descriptor string
	Slot       int
}

// ToolInterface is the full capability surface the Stack Inspector needs.
// Every method may be called concurrently from arbitrary host threads
// (§5); implementations must be safe for that.
type ToolInterface interface {
	// GetStackFrames enumerates up to maxDepth frames of thread starting
	// after skipFrames innermost frames have been discarded. thread == nil
	// means the calling thread.
	GetStackFrames(thread ThreadHandle, skipFrames, maxDepth int) ([]Frame, error)

	// GetLocalSlot reads the raw value at the given slot index in frame,
	// interpreted as kind. Returns an error (not a panic) if the slot is
	// dead or of the wrong kind at the frame's current location --
	// callers treat that as a per-slot absence, not a fatal error (§4.4).
	GetLocalSlot(frame Frame, slot int, kind ValueKind) (interface{}, error)

	// BoxPrimitive wraps a primitive Go value (int64, float64, bool,
	// etc.) into the host runtime's wrapper object for kind, mirroring
	// the teacher's own valueOf() native dispatch table pattern
	// (gfunction.MethodSignatures) used for java.lang.Integer etc.
	BoxPrimitive(kind ValueKind, raw interface{}) (interface{}, error)
}
