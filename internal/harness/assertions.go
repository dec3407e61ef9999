package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/rtcdate/internal/bcd"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
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

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] edge %d %s %s\n", ev.Seq, ev.Edge, ev.Op, ev.Value)
		}
	}

	return buf.String()
}

// assertTraceCount checks the number of transactions of one kind.
func assertTraceCount(result *Result, a Assertion) error {
	if n := result.Count(a.Op); n != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s transactions", a.Count, a.Op),
			Actual:   fmt.Sprintf("%d %s transactions", n, a.Op),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEdges checks the total edge count of the run.
func assertEdges(result *Result, a Assertion) error {
	if result.Edges != uint64(a.Count) {
		return &AssertionError{
			Type:     AssertEdges,
			Expected: fmt.Sprintf("%d edges", a.Count),
			Actual:   fmt.Sprintf("%d edges", result.Edges),
		}
	}
	return nil
}

// assertFinal checks the date read after the last step.
func assertFinal(final *uint32, a Assertion) error {
	want, err := bcd.ParseHex(a.Value)
	if err != nil {
		return err
	}
	if final == nil {
		return &AssertionError{
			Type:     AssertFinal,
			Expected: fmt.Sprintf("final date %08x", want),
			Actual:   "no final read (run failed)",
		}
	}
	if *final != want {
		return &AssertionError{
			Type:     AssertFinal,
			Expected: fmt.Sprintf("final date %08x", want),
			Actual:   fmt.Sprintf("final date %08x", *final),
		}
	}
	return nil
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. final is the date read after the last step, nil if the run
// stopped early.
func EvaluateAssertions(result *Result, assertions []Assertion, final *uint32) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertTraceCount:
			err = assertTraceCount(result, a)
		case AssertEdges:
			err = assertEdges(result, a)
		case AssertFinal:
			err = assertFinal(final, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
