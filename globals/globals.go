/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package globals holds the agent's process-wide shared state: the
// tool-interface handle set exactly once at VM-init, and a table of
// once-initialized memoized references (method ids, field ids, wrapper
// valueOf factories). This mirrors the single global-state struct a JVM
// written in Go keeps for its own method area and JVM home, except here
// the payload is JVMTI-shaped rather than classloader-shaped.
package globals

import (
	"sync"
	"sync/atomic"
)

// Global is the process-wide agent state. It is created once by InitGlobals
// and never replaced; fields are either write-once (ToolInterface) or
// internally synchronized (the memo table).
type Global struct {
	// toolInterface is set exactly once, at VM-init, before any
	// instrumentation event can fire on another thread. Readers use
	// atomic.Value so that the write happens-before any read that
	// observes a non-nil value, without a long-lived lock.
	toolInterface atomic.Value // holds an interface{} wrapping the tool interface

	// memo is the table of once-per-cell memoized references described
	// in §5: each cell initializes at most once and is read-only after.
	memo   map[string]*cell
	memoMu sync.Mutex

	TraceLevel  string
	DefaultDepth int
	SkipFrames   int
}

type cell struct {
	once  sync.Once
	value interface{}
	err   error
}

var global *Global
var initOnce sync.Once

// InitGlobals creates the singleton Global value. Safe to call more than
// once; only the first call has effect, mirroring the teacher's own
// idempotent global-state initializer.
func InitGlobals() *Global {
	initOnce.Do(func() {
		global = &Global{
			memo:         make(map[string]*cell),
			DefaultDepth: 3000,
			SkipFrames:   2,
		}
	})
	return global
}

// GetGlobalRef returns the process-wide Global, initializing it on first
// use so that packages that only read configuration never need to care
// about init order.
func GetGlobalRef() *Global {
	if global == nil {
		return InitGlobals()
	}
	return global
}

// SetDefaults applies the resolved config.Defaults to the singleton (§11):
// called once from the agent shell's startup path (or the offline CLI's
// PersistentPreRun) after config.Load, before any capture can run, so that
// LoadStackParams' DefaultDepth/SkipFrames reads reflect the configured
// values instead of InitGlobals' built-in 3000/2.
func (g *Global) SetDefaults(defaultDepth, skipFrames int, traceLevel string) {
	g.DefaultDepth = defaultDepth
	g.SkipFrames = skipFrames
	g.TraceLevel = traceLevel
}

// SetToolInterface is called exactly once, from VM-init. Subsequent calls
// are rejected by returning false so that a bug in the agent shell surfaces
// immediately rather than silently reordering initialization.
func (g *Global) SetToolInterface(ti interface{}) bool {
	if g.toolInterface.Load() != nil {
		return false
	}
	g.toolInterface.Store(&ti)
	return true
}

// ToolInterface returns the stored handle, or nil if VM-init has not yet
// run. Lock-free: the write in SetToolInterface happens-before any read
// that observes it.
func (g *Global) ToolInterface() interface{} {
	v := g.toolInterface.Load()
	if v == nil {
		return nil
	}
	return *(v.(*interface{}))
}

// Memoize runs init at most once for the given key and caches its result
// (value or error) for every subsequent call. Used for method/field id
// lookups and wrapper-class valueOf factory lookups, each of which must be
// resolved against the host runtime at most once per process.
func (g *Global) Memoize(key string, init func() (interface{}, error)) (interface{}, error) {
	g.memoMu.Lock()
	c, ok := g.memo[key]
	if !ok {
		c = &cell{}
		g.memo[key] = c
	}
	g.memoMu.Unlock()

	c.once.Do(func() {
		c.value, c.err = init()
	})
	return c.value, c.err
}

// ResetForTest clears the singleton so tests can observe a fresh Global.
// Never called outside _test.go files.
func ResetForTest() {
	global = nil
	initOnce = sync.Once{}
}
