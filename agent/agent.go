/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package agent is the Agent Shell: the orchestration layer the host
// runtime's native-agent entry points call into. It owns the two targeted
// classfile rewrites (§4.5) and the four native services the rewritten
// classes invoke at run time (§4.6), and is the only layer permitted to
// convert an internal error into a host-visible exception (§7).
package agent

import (
	"github.com/jacobin-agent/paramtrace/classfile"
	"github.com/jacobin-agent/paramtrace/config"
	"github.com/jacobin-agent/paramtrace/globals"
	"github.com/jacobin-agent/paramtrace/toolif"
	"github.com/jacobin-agent/paramtrace/trace"
)

const (
	throwableClassName         = "java/lang/Throwable"
	stackTraceElementClassName = "java/lang/StackTraceElement"
)

// ClassFileLoadHook is the agent's class-load-hook callback. It returns the
// rewritten classfile bytes for either of the two targeted classes, or nil
// (meaning "no change") for every other class. Any failure anywhere in the
// pipeline -- decode, splice-safety refusal, re-encode -- degrades to nil,
// never to a host-visible error (§7): a corrupted or unexpected variant of
// a targeted class is loaded exactly as the host runtime handed it over.
func ClassFileLoadHook(className string, data []byte) []byte {
	switch className {
	case throwableClassName:
		return rewriteOrOriginal(data, RewriteThrowable)
	case stackTraceElementClassName:
		return rewriteOrOriginal(data, RewriteStackTraceElement)
	default:
		return nil
	}
}

func rewriteOrOriginal(data []byte, rewrite func(*classfile.Classfile) error) []byte {
	cf, err := classfile.Decode(data)
	if err != nil {
		trace.Log("agent: decode failed, leaving class unmodified: "+err.Error(), trace.WARNING)
		return nil
	}
	if err := rewrite(cf); err != nil {
		trace.Log("agent: rewrite refused, leaving class unmodified: "+err.Error(), trace.WARNING)
		return nil
	}
	out, err := classfile.Encode(cf)
	if err != nil {
		trace.Log("agent: re-encode failed, leaving class unmodified: "+err.Error(), trace.WARNING)
		return nil
	}
	return out
}

// VMInit is the agent's vm-init callback: it resolves configuration
// (§9/§11's default depth, skip frames, log level) via config.Load and
// stores the host-provided tool interface handle exactly once (§5) before
// any class-load event or native service call can observe it. configPath
// may be empty, meaning "built-in defaults plus environment overrides
// only".
func VMInit(ti toolif.ToolInterface, configPath string) {
	g := globals.InitGlobals()

	cfg, err := config.Load(configPath)
	if err != nil {
		trace.Log("agent: config load failed, using built-in defaults: "+err.Error(), trace.WARNING)
	} else {
		g.SetDefaults(cfg.TraceDepth, cfg.SkipFrames, cfg.LogLevel.String())
		trace.SetLevel(cfg.LogLevel)
	}

	if !g.SetToolInterface(ti) {
		trace.Log("agent: VMInit called more than once; ignoring subsequent tool interface", trace.SEVERE)
	}
}

func currentToolInterface() toolif.ToolInterface {
	g := globals.GetGlobalRef()
	ti, _ := g.ToolInterface().(toolif.ToolInterface)
	return ti
}
