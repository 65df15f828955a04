/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package toolif

import "fmt"

// FixtureThread is the ThreadHandle used by tests and the offline CLI's
// `capture` command, standing in for a live JVMTI thread.
type FixtureThread struct{ Current bool }

func (t FixtureThread) IsCurrent() bool { return t.Current }

// FixtureMethod is a MethodHandle backed by plain fields, filled in by hand
// (tests, the CLI's capture demo) rather than from a live host binding.
type FixtureMethod struct {
	MName       string
	MDescriptor string
	MModifiers  uint16
	MClass      string
	MNative     bool
	MLocals     []LocalVarEntry
	MLocalsOK   bool
}

func (m *FixtureMethod) Name() string             { return m.MName }
func (m *FixtureMethod) Descriptor() string        { return m.MDescriptor }
func (m *FixtureMethod) Modifiers() uint16         { return m.MModifiers }
func (m *FixtureMethod) DeclaringClass() string    { return m.MClass }
func (m *FixtureMethod) IsNative() bool            { return m.MNative }
func (m *FixtureMethod) LocalVariableTable() ([]LocalVarEntry, bool) {
	return m.MLocals, m.MLocalsOK
}

// FixtureSlot is one canned local-variable value keyed by frame index and
// slot number.
type FixtureSlot struct {
	FrameIndex int
	Slot       int
	Kind       ValueKind
	Value      interface{}
}

// Fixture is a ToolInterface implementation over canned data, used by
// inspector tests, the agent's own unit tests, and `cmd/paramtrace
// capture`. It never touches a live host runtime.
type Fixture struct {
	Frames []Frame
	Slots  []FixtureSlot
}

func (f *Fixture) GetStackFrames(_ ThreadHandle, skipFrames, maxDepth int) ([]Frame, error) {
	if skipFrames < 0 || maxDepth < 0 {
		return nil, fmt.Errorf("toolif: negative skipFrames/maxDepth")
	}
	if skipFrames >= len(f.Frames) {
		return nil, nil
	}
	frames := f.Frames[skipFrames:]
	if maxDepth > 0 && len(frames) > maxDepth {
		frames = frames[:maxDepth]
	}
	return frames, nil
}

func (f *Fixture) GetLocalSlot(frame Frame, slot int, kind ValueKind) (interface{}, error) {
	for i, fr := range f.Frames {
		if fr.Method == frame.Method && fr.Location == frame.Location {
			for _, s := range f.Slots {
				if s.FrameIndex == i && s.Slot == slot {
					if s.Kind != kind {
						return nil, fmt.Errorf("toolif: slot %d kind mismatch", slot)
					}
					return s.Value, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("toolif: no value recorded for slot %d", slot)
}

func (f *Fixture) BoxPrimitive(kind ValueKind, raw interface{}) (interface{}, error) {
	switch kind {
	case KindObject:
		return raw, nil
	case KindInt, KindLong, KindFloat, KindDouble, KindBoolean, KindByte, KindChar, KindShort:
		return boxedWrapper{kind: kind, value: raw}, nil
	default:
		return nil, fmt.Errorf("toolif: unrecognized value kind %d", kind)
	}
}

// boxedWrapper stands in for the host runtime's java.lang.{Integer,Long,...}
// wrapper instances the real BoxPrimitive would allocate via valueOf().
type boxedWrapper struct {
	kind  ValueKind
	value interface{}
}

func (b boxedWrapper) String() string {
	return fmt.Sprintf("%v", b.value)
}
