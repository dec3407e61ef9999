package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rtcdate/internal/canonical"
)

// TraceSnapshot captures the bus trace of a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Edges        uint64       `json:"edges"`
	Trace        []TraceEvent `json:"trace"`
}

// CanonicalValue implements canonical.Marshaler.
func (s *TraceSnapshot) CanonicalValue() any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		trace[i] = ev
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"edges":         s.Edges,
		"trace":         trace,
	}
}

// MarshalTrace renders the canonical golden form of a result's trace.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	snapshot := &TraceSnapshot{
		ScenarioName: scenarioName,
		Edges:        result.Edges,
		Trace:        result.Trace,
	}
	return canonical.Marshal(snapshot)
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
