/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package inspector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobin-agent/paramtrace/toolif"
)

func TestParseDescriptorSimple(t *testing.T) {
	types, err := parseDescriptor("(ILjava/lang/String;[BJ)V")
	require.NoError(t, err)
	assert.Equal(t, []string{"I", "Ljava/lang/String;", "[B", "J"}, types)
}

func TestParseDescriptorNoArgs(t *testing.T) {
	types, err := parseDescriptor("()V")
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestParseDescriptorMalformed(t *testing.T) {
	_, err := parseDescriptor("ILjava/lang/String;)V")
	assert.Error(t, err)

	_, err = parseDescriptor("(I")
	assert.Error(t, err)

	_, err = parseDescriptor("(Ljava/lang/String)V") // missing ';'
	assert.Error(t, err)
}

func TestBuildParamsInstanceMethodReceiverSlotZero(t *testing.T) {
	params, err := BuildParams("(I)V", 0, "demo/Sample")
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "this", params[0].Name)
	assert.Equal(t, "Ldemo/Sample;", params[0].Type)
	assert.True(t, params[0].IsReceiver)
	assert.Equal(t, 0, params[0].Slot)
	assert.Equal(t, 1, params[1].Slot)
	assert.False(t, params[1].IsReceiver)
}

func TestBuildParamsStaticMethodNoReceiver(t *testing.T) {
	params, err := BuildParams("(IJ)V", modStatic, "demo/Sample")
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, 0, params[0].Slot)
	assert.Equal(t, "J", params[1].Type)
	assert.Equal(t, 1, params[1].Slot)
}

func TestBuildParamsLongDoubleConsumeTwoSlots(t *testing.T) {
	params, err := BuildParams("(DI)V", modStatic, "demo/Sample")
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, 0, params[0].Slot)
	assert.Equal(t, 2, params[1].Slot)
}

func TestReconcileLocalsAppliesNames(t *testing.T) {
	params, err := BuildParams("(I)V", modStatic, "demo/Sample")
	require.NoError(t, err)
	locals := []toolif.LocalVarEntry{
		{StartPC: 0, Length: 10, Name: "count", Descriptor: "I", Slot: 0},
	}
	out, err := ReconcileLocals(params, locals, 3)
	require.NoError(t, err)
	assert.Equal(t, "count", out[0].Name)
}

func TestReconcileLocalsDisagreeingDescriptorErrors(t *testing.T) {
	params, err := BuildParams("(I)V", modStatic, "demo/Sample")
	require.NoError(t, err)
	locals := []toolif.LocalVarEntry{
		{StartPC: 0, Length: 10, Name: "count", Descriptor: "Ljava/lang/String;", Slot: 0},
	}
	_, err = ReconcileLocals(params, locals, 3)
	assert.Error(t, err)
}

func TestReconcileLocalsSkipsCompatibilityCheckForReceiver(t *testing.T) {
	params, err := BuildParams("()V", 0, "demo/Sample")
	require.NoError(t, err)
	locals := []toolif.LocalVarEntry{
		// Debug info commonly types "this" as the exact runtime class,
		// which may differ from the declaring class string; that must
		// never trip the descriptor-disagreement check (§4.4).
		{StartPC: 0, Length: 10, Name: "this", Descriptor: "Ldemo/SampleImpl;", Slot: 0},
	}
	out, err := ReconcileLocals(params, locals, 3)
	require.NoError(t, err)
	assert.Equal(t, "this", out[0].Name)
}

func TestWalkNativeMethodEmitsTypesNoValues(t *testing.T) {
	method := &toolif.FixtureMethod{
		MName:       "hashCode",
		MDescriptor: "(I)I",
		MClass:      "java/lang/Object",
		MNative:     true,
	}
	fixture := &toolif.Fixture{
		Frames: []toolif.Frame{{Method: method, Location: 0}},
	}
	frames, err := Walk(fixture, toolif.FixtureThread{Current: true}, 0, 10)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, StateEmitted, frames[0].State)
	require.Len(t, frames[0].Params, 2)
	assert.Nil(t, frames[0].Params[1].Value)
}

func TestWalkCapturesValuesForManagedMethod(t *testing.T) {
	method := &toolif.FixtureMethod{
		MName:       "add",
		MDescriptor: "(I)I",
		MClass:      "Sample",
		MModifiers:  modStatic,
	}
	frame := toolif.Frame{Method: method, Location: 0}
	fixture := &toolif.Fixture{
		Frames: []toolif.Frame{frame},
		Slots: []toolif.FixtureSlot{
			{FrameIndex: 0, Slot: 0, Kind: toolif.KindInt, Value: int64(42)},
		},
	}
	frames, err := Walk(fixture, toolif.FixtureThread{Current: true}, 0, 10)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Len(t, frames[0].Params, 1)
	assert.NotNil(t, frames[0].Params[0].Value)
}

func TestWalkSkipFramesBeyondDepthReturnsEmpty(t *testing.T) {
	fixture := &toolif.Fixture{}
	frames, err := Walk(fixture, toolif.FixtureThread{Current: true}, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, frames)
}
