package harness

import (
	"fmt"

	"github.com/roach88/rtcdate/internal/wishbone"
)

// State is the driver's position in its control loop.
type State string

const (
	StateIdle       State = "idle"
	StateProgrammed State = "programmed"
	StateChecking   State = "checking"
	StateAdvancing  State = "advancing"
	StateFailed     State = "failed"
)

// TraceEvent is one completed bus transaction.
type TraceEvent struct {
	Seq   uint64 `json:"seq"`
	Op    string `json:"op"`
	Edge  uint64 `json:"edge"`
	Value string `json:"value,omitempty"` // packed word as %08x, empty for pulses
}

// TraceEventOf converts a bus transaction for the trace.
func TraceEventOf(tx wishbone.Transaction) TraceEvent {
	ev := TraceEvent{Seq: tx.Seq, Op: string(tx.Op), Edge: tx.Edge}
	if tx.Op != wishbone.OpPulse {
		ev.Value = fmt.Sprintf("%08x", tx.Value)
	}
	return ev
}

// CanonicalValue implements canonical.Marshaler.
func (e TraceEvent) CanonicalValue() any {
	m := map[string]any{
		"seq":  e.Seq,
		"op":   e.Op,
		"edge": e.Edge,
	}
	if e.Value != "" {
		m["value"] = e.Value
	}
	return m
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect matched, every
	// assertion held, and the run failed only if the scenario said it would.
	Pass bool `json:"pass"`

	// Trace contains every completed bus transaction in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Edges is the number of clock edges the run took.
	Edges uint64 `json:"edges"`

	// Failure is the error that stopped the run, if any.
	Failure error `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns the number of trace events with the given op.
func (r *Result) Count(op string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Op == op {
			n++
		}
	}
	return n
}
