package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, event.Channel)
	}

	return buf.String()
}

// ChannelNamer maps method names to channel names.
type ChannelNamer interface {
	Channel(method string) string
}

// assertChannelOrder checks that each method's first message appears in
// the specified order. Other messages may come in between.
func assertChannelOrder(trace []TraceEvent, assertion Assertion, names ChannelNamer) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if _, seen := positions[event.Channel]; !seen {
			positions[event.Channel] = i + 1 // 1-indexed for readability
		}
	}

	for _, method := range assertion.Methods {
		if positions[names.Channel(method)] == 0 {
			return &AssertionError{
				Type:     AssertChannelOrder,
				Expected: fmt.Sprintf("all methods present: %v", assertion.Methods),
				Actual:   fmt.Sprintf("missing method: %s", method),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Methods); i++ {
		prev, curr := assertion.Methods[i-1], assertion.Methods[i]
		pp, cp := positions[names.Channel(prev)], positions[names.Channel(curr)]
		if pp >= cp {
			return &AssertionError{
				Type:     AssertChannelOrder,
				Expected: fmt.Sprintf("methods in order: %v", assertion.Methods),
				Actual:   fmt.Sprintf("%s (pos %d) should be before %s (pos %d)", prev, pp, curr, cp),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertMessageCount checks that a method's channel carried exactly the
// specified number of messages.
func assertMessageCount(trace []TraceEvent, assertion Assertion, names ChannelNamer) error {
	channel := names.Channel(assertion.Method)
	count := 0
	for _, event := range trace {
		if event.Channel == channel {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertMessageCount,
			Expected: fmt.Sprintf("%d messages on %s", assertion.Count, channel),
			Actual:   fmt.Sprintf("%d messages", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertChannelPrefix checks that every channel is in the prefix's
// namespace.
func assertChannelPrefix(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if !strings.HasPrefix(event.Channel, assertion.Prefix+".") {
			return &AssertionError{
				Type:     AssertChannelPrefix,
				Expected: fmt.Sprintf("channels under %s", assertion.Prefix),
				Actual:   event.Channel,
				Trace:    trace,
			}
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, names ChannelNamer) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertChannelOrder:
			err = assertChannelOrder(result.Trace, assertion, names)
		case AssertMessageCount:
			err = assertMessageCount(result.Trace, assertion, names)
		case AssertChannelPrefix:
			err = assertChannelPrefix(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
