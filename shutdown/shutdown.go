/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package shutdown defines named process-exit codes for the offline operator
// CLI. The in-process agent never calls Exit: a JVMTI-style agent that exits
// the host process on a recoverable error would take the whole JVM down with
// it, so every agent-side failure degrades instead (see package agent).
package shutdown

import "os"

type ExitCode int

const (
	OK ExitCode = iota
	CLI_ARGUMENT_ERROR
	CLASSFILE_READ_ERROR
	CLASSFILE_FORMAT_ERROR
	HELPER_CLASS_MISSING
)

// Exit terminates the current process with the given code. Only ever called
// from cmd/paramtrace; never from package agent.
func Exit(code ExitCode) {
	os.Exit(int(code))
}
