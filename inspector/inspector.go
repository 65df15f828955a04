/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package inspector

import (
	"github.com/jacobin-agent/paramtrace/toolif"
	"github.com/jacobin-agent/paramtrace/trace"
)

// FrameState is the four-state per-frame machine from §4.4: Parsed ->
// DebugApplied -> ValuesCaptured -> Emitted. A descriptor parse failure, a
// debug-table reconciliation failure, or a native method sends the frame
// straight to Emitted with no values. A failed read or box of one slot
// leaves only that slot's value absent; the other slots are still captured.
type FrameState int

const (
	StateParsed FrameState = iota
	StateDebugApplied
	StateValuesCaptured
	StateEmitted
)

// CapturedFrame is one fully-processed frame: its method metadata, its
// final parameter list (values present only for slots that were
// successfully extracted and boxed), and the state it settled in.
type CapturedFrame struct {
	ClassName  string
	MethodName string
	Descriptor string
	State      FrameState
	Params     []Param
}

// Walk enumerates up to maxDepth frames of thread (skipping skipFrames
// innermost frames first) through ti, and fully processes each one through
// the four-state machine. It never returns an error for a single frame's
// extraction failure -- those frames simply settle with absent values; it
// only returns an error if the tool interface itself cannot enumerate
// frames at all (§4.4, §7: per-slot/per-frame failures degrade, they don't
// abort the walk).
func Walk(ti toolif.ToolInterface, thread toolif.ThreadHandle, skipFrames, maxDepth int) ([]CapturedFrame, error) {
	frames, err := ti.GetStackFrames(thread, skipFrames, maxDepth)
	if err != nil {
		return nil, err
	}

	captured := make([]CapturedFrame, 0, len(frames))
	for _, fr := range frames {
		captured = append(captured, processFrame(ti, fr))
	}
	return captured, nil
}

func processFrame(ti toolif.ToolInterface, fr toolif.Frame) CapturedFrame {
	cf := CapturedFrame{
		ClassName:  fr.Method.DeclaringClass(),
		MethodName: fr.Method.Name(),
		Descriptor: fr.Method.Descriptor(),
	}

	params, err := BuildParams(fr.Method.Descriptor(), fr.Method.Modifiers(), fr.Method.DeclaringClass())
	if err != nil {
		trace.Trace("inspector: descriptor parse failed, emitting frame with no params: " + err.Error())
		cf.State = StateEmitted
		return cf
	}
	cf.Params = params
	cf.State = StateParsed

	if locals, ok := fr.Method.LocalVariableTable(); ok {
		reconciled, err := ReconcileLocals(cf.Params, locals, fr.Location)
		if err != nil {
			trace.Trace("inspector: local var reconciliation failed, emitting parsed types only: " + err.Error())
			cf.State = StateEmitted
			return cf
		}
		cf.Params = reconciled
	}
	cf.State = StateDebugApplied

	if fr.Method.IsNative() {
		// A native method's locals cannot be read at all; emit the
		// parsed (and possibly debug-named) types with no values.
		cf.State = StateEmitted
		return cf
	}

	for i := range cf.Params {
		p := &cf.Params[i]
		if p.IsReceiver {
			v, err := ti.GetLocalSlot(fr, p.Slot, toolif.KindObject)
			if err != nil {
				trace.Trace("inspector: receiver slot extraction failed: " + err.Error())
				continue
			}
			boxed, err := ti.BoxPrimitive(toolif.KindObject, v)
			if err != nil {
				trace.Trace("inspector: receiver box failed: " + err.Error())
				continue
			}
			p.Value = boxed
			continue
		}
		kind := kindOf(p.Type)
		raw, err := ti.GetLocalSlot(fr, p.Slot, kind)
		if err != nil {
			// per-slot absence, not a whole-capture failure (§4.4)
			trace.Trace("inspector: slot extraction failed, leaving value absent: " + err.Error())
			continue
		}
		boxed, err := ti.BoxPrimitive(kind, raw)
		if err != nil {
			trace.Trace("inspector: box failed, leaving value absent: " + err.Error())
			continue
		}
		p.Value = boxed
	}
	cf.State = StateValuesCaptured
	cf.State = StateEmitted
	return cf
}
