package scenario

import (
	"fmt"
	"strings"

	"github.com/leoric-crown/textual-snapshots/internal/interaction"
)

// Problem is one invalid field of a scenario.
type Problem struct {
	Capture string
	Field   string
	Message string
}

// Error lists every problem found in a scenario. Interaction problems keep
// the validator's full result so callers can print its suggestions.
type Error struct {
	Problems     []Problem
	Interactions map[string]interaction.SequenceResult
}

func (e *Error) add(capture, field, message string) {
	e.Problems = append(e.Problems, Problem{Capture: capture, Field: field, Message: message})
}

func (e *Error) addSequence(capture string, seq interaction.SequenceResult) {
	if e.Interactions == nil {
		e.Interactions = make(map[string]interaction.SequenceResult)
	}
	e.Interactions[capture] = seq
	for _, verr := range seq.Errors {
		e.add(capture, fmt.Sprintf("interactions[%d]", verr.Index), verr.Message)
	}
}

// HasProblems reports whether anything was recorded.
func (e *Error) HasProblems() bool {
	return len(e.Problems) > 0
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scenario validation failed with %d problem(s):\n", len(e.Problems))
	for _, p := range e.Problems {
		if p.Capture == "" {
			fmt.Fprintf(&sb, "  - %s: %s\n", p.Field, p.Message)
			continue
		}
		fmt.Fprintf(&sb, "  - capture %s: %s: %s\n", p.Capture, p.Field, p.Message)
	}
	return sb.String()
}
