package interaction

import (
	"fmt"
	"strings"
)

// ValidationError describes one invalid interaction together with actionable
// suggestions and correct-usage examples.
type ValidationError struct {
	Index       int
	Raw         string
	Message     string
	Suggestions []string
	Examples    []string
}

func newError(raw, message string, suggestions, examples []string) *ValidationError {
	return &ValidationError{
		Raw:         raw,
		Message:     message,
		Suggestions: suggestions,
		Examples:    examples,
	}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ToMap returns the error in the map shape used by structured reports.
func (e *ValidationError) ToMap() map[string]any {
	return map[string]any{
		"index":       e.Index,
		"interaction": e.Raw,
		"message":     e.Message,
		"suggestions": append([]string(nil), e.Suggestions...),
		"examples":    append([]string(nil), e.Examples...),
	}
}

// SequenceResult is the outcome of validating a whole interaction sequence.
type SequenceResult struct {
	IsValid     bool
	Validated   []string
	Errors      []ValidationError
	Suggestions []string
}

// Parse validates a single interaction string and returns it unchanged.
// Downstream executors keep consuming the original string form.
func Parse(raw string) (string, error) {
	if _, verr := decode(raw); verr != nil {
		return "", verr
	}
	return raw, nil
}

// ParseAny validates a loosely typed value, such as an item decoded from a
// YAML list. Non-string values are rejected with guidance instead of being
// coerced.
func ParseAny(v any) (string, error) {
	raw, ok := v.(string)
	if !ok {
		return "", newError(fmt.Sprintf("%v", v),
			fmt.Sprintf("Interaction must be string, got %s", typeName(v)),
			[]string{"Convert to string format", "Use proper interaction syntax", "Quote values such as 'wait:1' in YAML"},
			kindExamples(),
		)
	}
	return Parse(raw)
}

// ValidateSequence validates every interaction independently. One failure
// never aborts the scan; each error keeps its original index.
func ValidateSequence(raws []string) SequenceResult {
	items := make([]any, len(raws))
	for i, raw := range raws {
		items[i] = raw
	}
	return ValidateValues(items)
}

// ValidateValues is ValidateSequence for loosely typed input.
func ValidateValues(items []any) SequenceResult {
	result := SequenceResult{
		Validated: []string{},
		Errors:    []ValidationError{},
	}

	for i, item := range items {
		validated, err := ParseAny(item)
		if err != nil {
			verr := err.(*ValidationError)
			verr.Index = i
			result.Errors = append(result.Errors, *verr)
			continue
		}
		result.Validated = append(result.Validated, validated)
	}

	if len(result.Errors) > 0 {
		result.Suggestions = []string{
			"Check the interaction format documentation for examples",
			"All interactions must use 'type:target' format with colon separator",
			"Common mistake: using bare strings instead of prefixed format",
			fmt.Sprintf("Found %d format error(s) in %d interaction(s)", len(result.Errors), len(items)),
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// FormatErrors renders a sequence result as a multi-section report suitable
// for terminals and LLM prompts. It returns "" for valid results. Output is
// deterministic so it can be snapshot tested.
func FormatErrors(result SequenceResult) string {
	if result.IsValid {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("❌ Interaction Format Errors:\n")

	for _, e := range result.Errors {
		fmt.Fprintf(&sb, "\n  Error at position %d: %s\n", e.Index+1, e.Message)
		fmt.Fprintf(&sb, "    Invalid: '%s'\n", e.Raw)
		for _, suggestion := range e.Suggestions {
			fmt.Fprintf(&sb, "    💡 %s\n", suggestion)
		}
		sb.WriteString("    ✅ Examples:\n")
		for _, example := range e.Examples {
			fmt.Fprintf(&sb, "       %s\n", example)
		}
	}

	if len(result.Suggestions) > 0 {
		sb.WriteString("\n💡 General Suggestions:\n")
		for _, suggestion := range result.Suggestions {
			fmt.Fprintf(&sb, "   • %s\n", suggestion)
		}
	}

	return sb.String()
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case int, int64:
		return "int"
	case float32, float64:
		return "float"
	case bool:
		return "bool"
	case []any:
		return "list"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}
