/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jacobin-agent/paramtrace/globals"
	"github.com/jacobin-agent/paramtrace/inspector"
	"github.com/jacobin-agent/paramtrace/toolif"
)

func newCaptureCommand() *cobra.Command {
	var depth int
	var skip int
	var outPath string
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "run the Stack Inspector against a built-in mock thread and print captured parameters",
		Long: "capture demonstrates the Stack Inspector end to end without a live " +
			"managed runtime, walking a small fixture call stack (toolif.Fixture) " +
			"instead of a real JVMTI thread.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if depth == 0 {
				depth = globals.GetGlobalRef().DefaultDepth
			}
			frames, err := inspector.Walk(demoFixture(), toolif.FixtureThread{Current: true}, skip, depth)
			if err != nil {
				return err
			}
			return emitCapture(frames, outPath)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "max frames to capture (0 = configured default)")
	cmd.Flags().IntVar(&skip, "skip", 0, "innermost frames to skip")
	cmd.Flags().StringVar(&outPath, "out", "", "write the capture as JSON to this path instead of stdout")
	return cmd
}

// demoFixture builds a small two-frame call stack: a static method with a
// captured int argument, and a native method whose locals cannot be read,
// illustrating both halves of the four-state machine in one demo capture.
func demoFixture() *toolif.Fixture {
	caller := &toolif.FixtureMethod{
		MName:       "compute",
		MDescriptor: "(I)I",
		MClass:      "demo/Sample",
		MModifiers:  0x0008,
	}
	native := &toolif.FixtureMethod{
		MName:       "hashCode",
		MDescriptor: "()I",
		MClass:      "java/lang/Object",
		MNative:     true,
	}
	return &toolif.Fixture{
		Frames: []toolif.Frame{
			{Method: caller, Location: 4},
			{Method: native, Location: 0},
		},
		Slots: []toolif.FixtureSlot{
			{FrameIndex: 0, Slot: 0, Kind: toolif.KindInt, Value: int64(7)},
		},
	}
}

func emitCapture(frames []inspector.CapturedFrame, outPath string) error {
	b, err := json.MarshalIndent(frames, "", "  ")
	if err != nil {
		return err
	}
	if outPath == "" {
		fmt.Println(string(b))
		return nil
	}
	return os.WriteFile(outPath, b, 0o644)
}
