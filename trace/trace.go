/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package trace is the agent's leveled logging facade. It mirrors the
// FINE/CONFIG/INFO/WARNING/SEVERE vocabulary a JVM-in-Go project uses for
// its own class-loading trace output, but is built on log/slog fanned out
// through github.com/samber/slog-multi to a colorized console handler
// (github.com/fatih/color) and, optionally, a JSON file handler.
package trace

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/fatih/color"
	slogmulti "github.com/samber/slog-multi"
)

type Level int

const (
	FINE Level = iota
	CONFIG
	INFO
	WARNING
	SEVERE
)

func (l Level) String() string { return levelName(l) }

func (l Level) slogLevel() slog.Level {
	switch l {
	case FINE:
		return slog.LevelDebug
	case CONFIG:
		return slog.LevelDebug + 2
	case INFO:
		return slog.LevelInfo
	case WARNING:
		return slog.LevelWarn
	case SEVERE:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var (
	mu      sync.Mutex
	logger  *slog.Logger
	minimum Level = INFO
)

// Init wires the default logger: a colorized console handler only. Safe to
// call more than once (e.g. once in the agent shell, once in the CLI); the
// latest call wins.
func Init() {
	InitWithFile(nil)
}

// InitWithFile wires the console handler plus, if w is non-nil, a JSON
// handler fanned out via slog-multi so operators can tail a structured log
// file while still reading colorized output interactively.
func InitWithFile(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	handlers := []slog.Handler{&consoleHandler{out: os.Stderr}}
	if w != nil {
		handlers = append(handlers, slog.NewJSONHandler(w, nil))
	}
	logger = slog.New(slogmulti.Fanout(handlers...))
}

// SetLevel sets the minimum level that reaches either handler.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minimum = l
}

func log(l Level, msg string) {
	mu.Lock()
	lg, min := logger, minimum
	mu.Unlock()
	if lg == nil {
		Init()
		mu.Lock()
		lg = logger
		mu.Unlock()
	}
	if l < min {
		return
	}
	lg.Log(context.Background(), l.slogLevel(), msg, slog.String("level", levelName(l)))
}

func levelName(l Level) string {
	switch l {
	case FINE:
		return "FINE"
	case CONFIG:
		return "CONFIG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case SEVERE:
		return "SEVERE"
	default:
		return "INFO"
	}
}

// Trace logs at FINE, the level every per-slot/per-frame degrade-and-continue
// path in the inspector and agent shell uses.
func Trace(msg string) { log(FINE, msg) }

// Error logs at SEVERE.
func Error(msg string) { log(SEVERE, msg) }

// Log logs at an arbitrary level, mirroring the teacher's log.Log(msg, level)
// call shape used throughout its class-instantiation and classloading paths.
func Log(msg string, l Level) error {
	log(l, msg)
	return nil
}

// consoleHandler is a minimal slog.Handler that colorizes by level the way
// an interactive JVM trace console does: SEVERE in red, WARNING in yellow,
// everything else uncolored.
type consoleHandler struct {
	out io.Writer
}

func (h *consoleHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	line := r.Message
	switch {
	case r.Level >= slog.LevelError:
		line = color.RedString(line)
	case r.Level >= slog.LevelWarn:
		line = color.YellowString(line)
	}
	_, err := io.WriteString(h.out, line+"\n")
	return err
}

func (h *consoleHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *consoleHandler) WithGroup(_ string) slog.Handler      { return h }
