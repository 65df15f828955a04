/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
)

// FormatError is returned by Decode when the byte stream is not a
// well-formed classfile. It stops decode entirely -- the rewriter refuses
// to operate on a nil Classfile and the agent shell returns the original
// bytes unchanged (§7).
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string { return "Class Format Error: " + e.Msg }

// cfe builds a FormatError and annotates it with the file/line of its
// caller, mirroring the teacher's own cfe() error constructor used
// throughout classfile parsing.
func cfe(msg string) error {
	errMsg := msg
	pc, _, _, ok := runtime.Caller(1)
	if ok {
		fn := runtime.FuncForPC(pc)
		fileName, fileLine := fn.FileLine(pc)
		errMsg = errMsg + " (detected at " + fileName + ":" + strconv.Itoa(fileLine) + ")"
	}
	return &FormatError{Msg: errMsg}
}

func cfef(format string, args ...interface{}) error {
	return cfe(fmt.Sprintf(format, args...))
}

// ErrUnexpectedEOF is returned as-is by the byte cursor and the attribute
// and instruction decoders when they run out of bytes mid-structure.
// Decode's own top-level checks report truncation as a FormatError instead.
var ErrUnexpectedEOF = errors.New("unexpected end of classfile")
