/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package agent

import (
	"github.com/jacobin-agent/paramtrace/excnames"
	"github.com/jacobin-agent/paramtrace/globals"
	"github.com/jacobin-agent/paramtrace/inspector"
	"github.com/jacobin-agent/paramtrace/toolif"
	"github.com/jacobin-agent/paramtrace/trace"
)

// HostException is how the agent shell reports a user-visible failure back
// across the FFI boundary (§7): only the stack-capture entry point
// (LoadStackParams) is allowed to produce one; every other native service
// degrades silently on error instead.
type HostException struct {
	Kind excnames.JVMExceptionType
	Msg  string
}

func (e *HostException) Error() string { return e.Kind.String() + ": " + e.Msg }

// unknownValue is the sentinel written into the marshaled parameter table
// wherever a value could not be captured (native method, degraded slot
// read, etc.), per §4.6/E4.
const unknownValue = "<unknown>"

// MarshalStackParams converts captured frames into the object-array shape
// the native boundary requires (§4.6, E4): one row per frame, each row
// holding a (name, type, value) triple per parameter flattened to
// 3 * param_count entries, so row i has shape [3*len(frames[i].Params)].
// A nil Param.Value is replaced with unknownValue rather than stored as
// nil, since nil is not distinguishable from "absent" on the other side
// of the FFI boundary.
func MarshalStackParams(frames []inspector.CapturedFrame) [][]interface{} {
	out := make([][]interface{}, len(frames))
	for i, f := range frames {
		row := make([]interface{}, 0, 3*len(f.Params))
		for _, p := range f.Params {
			value := p.Value
			if value == nil {
				value = unknownValue
			}
			row = append(row, p.Name, p.Type, value)
		}
		out[i] = row
	}
	return out
}

// LoadStackParams is the native service backing
// Throwable.stackParamFillInStackTrace's eventual capture step: given a
// thread handle (nil meaning current) and a requested max depth, it walks
// the stack through the process-wide tool interface and returns the
// marshaled [frame_count][3*param_count] object array ready to store on
// stackParams (§4.6, E4).
//
// A depth of 0 means "use the configured default" (3000, per §11); a
// negative depth is an ArgumentError raised as a HostException, since it
// is nonsensical input rather than an internal failure (§7, B4).
func LoadStackParams(thread toolif.ThreadHandle, maxDepth int) ([][]interface{}, error) {
	g := globals.GetGlobalRef()

	if maxDepth < 0 {
		return nil, &HostException{Kind: excnames.IllegalArgumentException, Msg: "negative max depth"}
	}
	if maxDepth == 0 {
		maxDepth = g.DefaultDepth
	}

	ti := currentToolInterface()
	if ti == nil {
		trace.Log("agent: LoadStackParams called before VMInit; returning empty capture", trace.WARNING)
		return nil, nil
	}

	frames, err := inspector.Walk(ti, thread, g.SkipFrames, maxDepth)
	if err != nil {
		trace.Log("agent: stack walk failed: "+err.Error(), trace.WARNING)
		return nil, &HostException{Kind: excnames.RuntimeException, Msg: err.Error()}
	}
	return MarshalStackParams(frames), nil
}

// StackParamFillInStackTrace is the native bound to the method the
// rewriter installed on Throwable (§4.5/§4.6): it captures the current
// thread's parameters at the default depth/skip and logs, but never
// raises, any failure -- fillInStackTrace() must never throw because of
// this agent (§7's degrade-and-continue policy applies even though this
// native's caller is itself exception construction).
func StackParamFillInStackTrace(thread toolif.ThreadHandle) [][]interface{} {
	params, err := LoadStackParams(thread, 0)
	if err != nil {
		trace.Trace("agent: stackParamFillInStackTrace degraded: " + err.Error())
		return nil
	}
	return params
}

// GetOurStackTrace is the native bound to Throwable's renamed
// getOurStackTrace(): it returns the previously captured frames, falling
// back to calling the original (now getOurStackTrace$orig) implementation
// when no capture was ever stored (e.g. the throwable predates this
// agent's instrumentation, or capture failed entirely).
func GetOurStackTrace(captured []inspector.CapturedFrame, fallback func() []inspector.CapturedFrame) []inspector.CapturedFrame {
	if captured != nil {
		return captured
	}
	if fallback != nil {
		return fallback()
	}
	return nil
}

// ElementToString is the native bound to StackTraceElement's renamed
// toString(): it delegates the actual string formatting to the embedded
// helper class via the tool interface, falling back to the original
// (now toString$orig) formatting if paramInfo was never populated for
// this element.
func ElementToString(paramInfo []interface{}, baseString string, formatter func(string, []interface{}) (string, error), fallback func() string) string {
	if paramInfo == nil {
		if fallback != nil {
			return fallback()
		}
		return baseString
	}
	out, err := formatter(baseString, paramInfo)
	if err != nil {
		trace.Trace("agent: helper class formatting failed, falling back to original toString: " + err.Error())
		if fallback != nil {
			return fallback()
		}
		return baseString
	}
	return out
}
