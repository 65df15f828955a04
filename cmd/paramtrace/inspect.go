/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/jacobin-agent/paramtrace/inspector"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [capture.json]",
		Short: "browse a previously captured parameter dump in a terminal UI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := loadCapture(args[0])
			if err != nil {
				return err
			}
			return runInspectTUI(frames)
		},
	}
}

func loadCapture(path string) ([]inspector.CapturedFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var frames []inspector.CapturedFrame
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("inspect: %s is not a valid capture dump: %w", path, err)
	}
	return frames, nil
}

// runInspectTUI pages through frames/parameters: a frame list on the left,
// the selected frame's parameter table on the right, built with
// rivo/tview over gdamore/tcell -- useful for diagnosing why a given
// frame's values came back absent (native method, dead slot, debug-table
// mismatch), per §11.
func runInspectTUI(frames []inspector.CapturedFrame) error {
	app := tview.NewApplication()

	frameList := tview.NewList().ShowSecondaryText(true)
	paramTable := tview.NewTable().SetBorders(true)

	renderParams := func(idx int) {
		paramTable.Clear()
		paramTable.SetCell(0, 0, tview.NewTableCell("Name").SetSelectable(false))
		paramTable.SetCell(0, 1, tview.NewTableCell("Type").SetSelectable(false))
		paramTable.SetCell(0, 2, tview.NewTableCell("Value").SetSelectable(false))
		if idx < 0 || idx >= len(frames) {
			return
		}
		for row, p := range frames[idx].Params {
			value := "<absent>"
			if p.Value != nil {
				value = fmt.Sprintf("%v", p.Value)
			}
			paramTable.SetCell(row+1, 0, tview.NewTableCell(p.Name))
			paramTable.SetCell(row+1, 1, tview.NewTableCell(p.Type))
			paramTable.SetCell(row+1, 2, tview.NewTableCell(value))
		}
	}

	for i, f := range frames {
		state := stateLabel(f.State)
		frameList.AddItem(fmt.Sprintf("%s.%s", f.ClassName, f.MethodName), state, 0, nil)
		idx := i
		frameList.SetChangedFunc(func(index int, _, _ string, _ rune) {
			renderParams(index)
		})
		_ = idx
	}
	if len(frames) > 0 {
		renderParams(0)
	}

	flex := tview.NewFlex().
		AddItem(frameList, 0, 1, true).
		AddItem(paramTable, 0, 2, false)

	flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	return app.SetRoot(flex, true).Run()
}

func stateLabel(s inspector.FrameState) string {
	switch s {
	case inspector.StateParsed:
		return "parsed"
	case inspector.StateDebugApplied:
		return "debug applied"
	case inspector.StateValuesCaptured:
		return "values captured"
	case inspector.StateEmitted:
		return "emitted"
	default:
		return "unknown"
	}
}
