// Package interaction validates and decodes the scripted input commands applied
// to an application before a frame is captured.
//
// Commands use the "kind:target" grammar where kind is one of press, click,
// hover, type or wait. Validation never stops at the first bad command: a
// whole sequence is scanned and every error carries suggestions and canonical
// examples so the caller (a person or an LLM) can fix the input in one pass.
package interaction

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the interaction type.
type Kind string

const (
	KindPress Kind = "press"
	KindClick Kind = "click"
	KindHover Kind = "hover"
	KindType  Kind = "type"
	KindWait  Kind = "wait"
)

// Kinds lists every recognized interaction kind in canonical order.
var Kinds = []Kind{KindPress, KindClick, KindHover, KindType, KindWait}

// Separator splits the kind from its target.
const Separator = ":"

// Command is a decoded interaction. Target is the text after the first
// separator; Duration is only meaningful for KindWait and is in seconds.
type Command struct {
	Kind     Kind
	Target   string
	Duration float64
}

// String returns the command in its "kind:target" form.
func (c Command) String() string {
	return string(c.Kind) + Separator + c.Target
}

// Decode validates raw and returns the structured command. The returned error
// is always a *ValidationError when non-nil.
func Decode(raw string) (Command, error) {
	cmd, verr := decode(raw)
	if verr != nil {
		return Command{}, verr
	}
	return cmd, nil
}

// DecodeAll decodes an already validated sequence. It stops at the first
// invalid command; use ValidateSequence to collect every error.
func DecodeAll(raws []string) ([]Command, error) {
	cmds := make([]Command, 0, len(raws))
	for i, raw := range raws {
		cmd, verr := decode(raw)
		if verr != nil {
			verr.Index = i
			return nil, verr
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func decode(raw string) (Command, *ValidationError) {
	kindText, target, found := strings.Cut(raw, Separator)
	if !found {
		return Command{}, missingSeparatorError(raw)
	}

	switch Kind(kindText) {
	case KindPress:
		if strings.TrimSpace(target) == "" {
			return Command{}, newError(raw,
				"Press action missing key name",
				[]string{"Specify which key to press", "Common keys: enter, f2, escape, ctrl+c"},
				[]string{"press:enter", "press:f2", "press:escape", "press:ctrl+c"},
			)
		}
	case KindClick:
		if strings.TrimSpace(target) == "" {
			return Command{}, newError(raw,
				"Click action missing selector",
				[]string{"Specify element selector", "Use #id, .class, or element name"},
				[]string{"click:#button", "click:.submit", "click:Button"},
			)
		}
	case KindHover:
		if strings.TrimSpace(target) == "" {
			return Command{}, newError(raw,
				"Hover action missing selector",
				[]string{"Specify element selector", "Use #id, .class, or element name"},
				[]string{"hover:#menu", "hover:.dropdown", "hover:Button"},
			)
		}
	case KindType:
		// Empty text is a valid way to submit an empty field.
	case KindWait:
		duration, err := strconv.ParseFloat(strings.TrimSpace(target), 64)
		if err != nil || math.IsNaN(duration) || math.IsInf(duration, 0) {
			return Command{}, newError(raw,
				fmt.Sprintf("Wait duration '%s' must be a number", target),
				[]string{"Use decimal numbers for wait times", "Common values: 0.1, 0.5, 1.0, 2.0"},
				waitExamples(),
			)
		}
		if duration < 0 {
			return Command{}, newError(raw,
				fmt.Sprintf("Wait duration cannot be negative: %s", strconv.FormatFloat(duration, 'f', -1, 64)),
				[]string{"Use positive numbers for wait times", "Common values: 0.1, 0.5, 1.0, 2.0"},
				waitExamples(),
			)
		}
		return Command{Kind: KindWait, Target: target, Duration: duration}, nil
	default:
		return Command{}, newError(raw,
			fmt.Sprintf("Unknown interaction type '%s'", kindText),
			[]string{
				"Use 'press:' for keyboard interactions",
				"Use 'click:' for mouse clicks",
				"Use 'hover:' for hover actions",
				"Use 'type:' for text input",
				"Use 'wait:' for delays",
			},
			[]string{"press:enter", "click:#button", "hover:.menu-item", "type:hello world", "wait:1.0"},
		)
	}

	return Command{Kind: Kind(kindText), Target: target}, nil
}

func missingSeparatorError(raw string) *ValidationError {
	return newError(raw,
		fmt.Sprintf("Interaction '%s' missing required ':' separator. All interactions must use 'type:target' format.", raw),
		[]string{
			fmt.Sprintf("Change '%s' to 'press:%s' for key presses", raw, raw),
			fmt.Sprintf("Change '%s' to 'click:#%s' for element clicks by ID", raw, raw),
			fmt.Sprintf("Change '%s' to 'click:.%s' for elements by CSS class", raw, raw),
			fmt.Sprintf("Change '%s' to 'click:%s' for CSS selectors", raw, raw),
			fmt.Sprintf("Change '%s' to 'type:%s' to enter it as text", raw, raw),
			fmt.Sprintf("Change '%s' to 'wait:%s' if it is a delay in seconds", raw, raw),
		},
		[]string{
			fmt.Sprintf("press:%s  # if this is a key press", raw),
			fmt.Sprintf("click:#%s  # if this is an element ID", raw),
			fmt.Sprintf("click:.%s  # if this is a CSS class", raw),
			fmt.Sprintf("click:%s  # if this is a CSS selector", raw),
			fmt.Sprintf("type:%s  # if this is text to enter", raw),
			fmt.Sprintf("wait:%s  # if this is a delay", raw),
		},
	)
}

func waitExamples() []string {
	return []string{"wait:0.5", "wait:1.0", "wait:2.0"}
}

// kindExamples returns one canonical example per kind.
func kindExamples() []string {
	return []string{"press:f2", "click:#button", "hover:.menu-item", "type:hello world", "wait:1.0"}
}
