/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package inspector implements the Stack Inspector (§4.4): given a thread
// handle and depth/skip bounds, it walks frames through a
// toolif.ToolInterface, parses each method's descriptor into a parameter
// list, reconciles that list against the optional local-variable debug
// table, and extracts + boxes each slot's value.
package inspector

import (
	"fmt"
	"strings"

	"github.com/jacobin-agent/paramtrace/toolif"
)

// Param is one parameter slot: its inferred name, its type descriptor, its
// local-variable slot index, and -- once capture has run -- its boxed
// value, if any was obtainable.
type Param struct {
	Name       string
	Type       string
	Slot       int
	Value      interface{}
	IsReceiver bool
}

// MethodInfo is the inspector's per-frame view of a method: its modifier
// bitset and its ordered parameter list (receiver included at slot 0 for
// instance methods, named "this").
type MethodInfo struct {
	Name       string
	Descriptor string
	Modifiers  uint16
	Params     []Param
}

const (
	modStatic = 0x0008
)

// parseDescriptor strictly parses a method descriptor of the form
// "(ArgTypes)ReturnType" into its ordered parameter type strings (R7).
// A malformed descriptor (missing parens, truncated type signature, or
// trailing garbage after the matched types) is a hard parse error.
func parseDescriptor(desc string) ([]string, error) {
	if len(desc) == 0 || desc[0] != '(' {
		return nil, fmt.Errorf("inspector: descriptor %q missing leading (", desc)
	}
	i := 1
	var params []string
	for i < len(desc) && desc[i] != ')' {
		t, n, err := parseOneType(desc[i:])
		if err != nil {
			return nil, fmt.Errorf("inspector: descriptor %q: %w", desc, err)
		}
		params = append(params, t)
		i += n
	}
	if i >= len(desc) || desc[i] != ')' {
		return nil, fmt.Errorf("inspector: descriptor %q missing closing )", desc)
	}
	// desc[i+1:] is the return type; only its well-formedness is checked,
	// its value is not needed by the Inspector.
	if i+1 >= len(desc) {
		return nil, fmt.Errorf("inspector: descriptor %q missing return type", desc)
	}
	_, n, err := parseOneType(desc[i+1:])
	if err != nil {
		return nil, fmt.Errorf("inspector: descriptor %q bad return type: %w", desc, err)
	}
	if i+1+n != len(desc) {
		return nil, fmt.Errorf("inspector: descriptor %q has trailing garbage after return type", desc)
	}
	return params, nil
}

// parseOneType parses exactly one field-type prefix of s and returns its
// textual form plus how many bytes it consumed.
func parseOneType(s string) (string, int, error) {
	if len(s) == 0 {
		return "", 0, fmt.Errorf("truncated type signature")
	}
	switch s[0] {
	case 'V':
		return "void", 1, nil
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return string(s[0]), 1, nil
	case 'L':
		idx := strings.IndexByte(s, ';')
		if idx < 0 {
			return "", 0, fmt.Errorf("unterminated class type")
		}
		return s[:idx+1], idx + 1, nil
	case '[':
		inner, n, err := parseOneType(s[1:])
		if err != nil {
			return "", 0, err
		}
		return "[" + inner, n + 1, nil
	default:
		return "", 0, fmt.Errorf("unrecognized type tag %q", s[0])
	}
}

// slotWidth is 2 for long/double (they consume two local-variable slots),
// 1 for everything else (§3 Data Model: MethodInfo invariant).
func slotWidth(t string) int {
	if t == "J" || t == "D" {
		return 2
	}
	return 1
}

// kindOf maps a parsed type string to the toolif.ValueKind used to read
// and box its value.
func kindOf(t string) toolif.ValueKind {
	switch t {
	case "I":
		return toolif.KindInt
	case "J":
		return toolif.KindLong
	case "F":
		return toolif.KindFloat
	case "D":
		return toolif.KindDouble
	case "Z":
		return toolif.KindBoolean
	case "B":
		return toolif.KindByte
	case "C":
		return toolif.KindChar
	case "S":
		return toolif.KindShort
	default:
		return toolif.KindObject
	}
}

// BuildParams parses desc and lays out the ordered parameter list,
// including the receiver at slot 0 named "this" with type
// "L<declaringClass>;" for instance methods (§4.4 step 3). Names are
// placeholders ("arg0", "arg1", ...) until ReconcileLocals overlays real
// names from the debug table, if present.
func BuildParams(desc string, modifiers uint16, declaringClass string) ([]Param, error) {
	types, err := parseDescriptor(desc)
	if err != nil {
		return nil, err
	}

	var params []Param
	slot := 0
	if modifiers&modStatic == 0 {
		params = append(params, Param{Name: "this", Type: "L" + declaringClass + ";", Slot: slot, IsReceiver: true})
		slot++
	}
	for i, t := range types {
		params = append(params, Param{Name: fmt.Sprintf("arg%d", i), Type: t, Slot: slot})
		slot += slotWidth(t)
	}
	return params, nil
}

// ReconcileLocals overlays real parameter names from the method's
// local-variable debug table, matched by slot. A debug-table entry whose
// descriptor disagrees with the parsed type at a reconciled slot is a hard
// per-frame failure (§4.4): the caller must still emit the parsed types
// with absent values rather than panic or silently prefer one source.
func ReconcileLocals(params []Param, locals []toolif.LocalVarEntry, pc int) ([]Param, error) {
	out := make([]Param, len(params))
	copy(out, params)

	for i := range out {
		for _, lv := range locals {
			if lv.Slot != out[i].Slot {
				continue
			}
			if pc < lv.StartPC || pc >= lv.StartPC+lv.Length {
				continue
			}
			if !out[i].IsReceiver && !descriptorsCompatible(out[i].Type, lv.Descriptor) {
				return out, fmt.Errorf("inspector: local var table disagrees with descriptor at slot %d: parsed %q debug %q", out[i].Slot, out[i].Type, lv.Descriptor)
			}
			out[i].Name = lv.Name
			break
		}
	}
	return out, nil
}

func descriptorsCompatible(parsed, debug string) bool {
	return parsed == debug
}
