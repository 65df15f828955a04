/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jacobin-agent/paramtrace/inspector"
)

func TestMarshalStackParamsShapeAndUnknownSentinel(t *testing.T) {
	frames := []inspector.CapturedFrame{
		{
			ClassName:  "demo/Sample",
			MethodName: "compute",
			Params: []inspector.Param{
				{Name: "this", Type: "Ldemo/Sample;", Value: int64(42)},
				{Name: "arg0", Type: "I", Value: nil},
			},
		},
		{ClassName: "java/lang/Object", MethodName: "hashCode"},
	}

	out := MarshalStackParams(frames)
	a := assert.New(t)
	a.Len(out, 2)
	a.Len(out[0], 6)
	a.Equal("this", out[0][0])
	a.Equal("Ldemo/Sample;", out[0][1])
	a.Equal(int64(42), out[0][2])
	a.Equal("arg0", out[0][3])
	a.Equal("I", out[0][4])
	a.Equal(unknownValue, out[0][5])
	a.Empty(out[1])
}
