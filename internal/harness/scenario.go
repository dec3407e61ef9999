package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rtcdate/internal/bcd"
	"github.com/roach88/rtcdate/internal/rtcdate"
	"github.com/roach88/rtcdate/internal/wishbone"
)

//go:embed schema.cue
var schemaCUE string

// Scenario is a short, named conformance check: program a start date, then
// run steps against a fresh device.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Start is the date programmed before the first step, YYYY-MM-DD.
	Start string `yaml:"start" json:"start"`

	// Fault optionally injects a defect into the device model.
	Fault string `yaml:"fault,omitempty" json:"fault,omitempty"`

	// ExpectError names the failure the run must stop with: "MISMATCH" or
	// a bus fault code such as "MISSING_ACK". Empty means the run must pass.
	ExpectError string `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`

	// Steps run in order after programming Start.
	Steps []Step `yaml:"steps" json:"steps"`

	// Assertions validate the trace after the steps.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// Step is exactly one of: advance the device N days, read and compare
// against a packed date, or write a new date.
type Step struct {
	Advance int    `yaml:"advance,omitempty" json:"advance,omitempty"`
	Expect  string `yaml:"expect,omitempty" json:"expect,omitempty"`
	Write   string `yaml:"write,omitempty" json:"write,omitempty"`
}

// Assertion validates the finished run.
type Assertion struct {
	// Type is one of AssertTraceCount, AssertEdges, AssertFinal.
	Type string `yaml:"type" json:"type"`

	// Op is the transaction kind counted by trace_count.
	Op string `yaml:"op,omitempty" json:"op,omitempty"`

	// Count is the expected number for trace_count and edges.
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Value is the packed date a final read must return.
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceCount = "trace_count"
	AssertEdges      = "edges"
	AssertFinal      = "final"
)

// SchemaError is a scenario that does not satisfy the schema.
type SchemaError struct {
	Path    string
	Message string
	Pos     token.Pos
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	// YAML documents are checked after conversion, so their errors carry
	// positions in the schema rather than in the file.
	if e.Pos.IsValid() && e.Pos.Filename() == e.Path {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// LoadScenario reads a scenario from a .yaml, .yml or .cue file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, or fails the schema.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		scenario, err = parseYAML(path, data)
	case ".cue":
		scenario, err = parseCUE(path, data)
	default:
		return nil, fmt.Errorf("unsupported scenario format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// parseYAML decodes strictly (unknown fields are errors) and then checks
// the result against the CUE schema.
func parseYAML(path string, data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.Encode(scenario)
	if err := checkSchema(ctx, path, v); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// parseCUE compiles the file, unifies it with #Scenario and decodes it.
func parseCUE(path string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, schemaError(path, err)
	}
	if err := checkSchema(ctx, path, v); err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := v.Decode(&scenario); err != nil {
		return nil, schemaError(path, err)
	}
	return &scenario, nil
}

func checkSchema(ctx *cue.Context, path string, v cue.Value) error {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return schemaError(path, err)
	}
	return nil
}

// schemaError reports the first CUE error with its position.
func schemaError(path string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{Path: path, Message: err.Error()}
	}
	first := errs[0]
	se := &SchemaError{Path: path, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		se.Pos = positions[0]
	}
	return se
}

// validateScenario checks what the schema cannot: real calendar dates,
// decimal nibbles, and known fault and failure names.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := bcd.Parse(s.Start); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if _, err := rtcdate.ParseFault(s.Fault); err != nil {
		return fmt.Errorf("fault: %w", err)
	}
	if s.ExpectError != "" && !isFailureCode(s.ExpectError) {
		return fmt.Errorf("expect_error: unknown failure %q: must be %s or one of %v",
			s.ExpectError, FailureMismatch, wishbone.FaultCodes)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Advance != 0 {
			set++
			if step.Advance < 0 {
				return fmt.Errorf("steps[%d]: advance must be positive", i)
			}
		}
		if step.Expect != "" {
			set++
			if _, err := bcd.ParseHex(step.Expect); err != nil {
				return fmt.Errorf("steps[%d]: expect: %w", i, err)
			}
		}
		if step.Write != "" {
			set++
			if _, err := bcd.Parse(step.Write); err != nil {
				return fmt.Errorf("steps[%d]: write: %w", i, err)
			}
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of advance, expect, write is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// isFailureCode reports whether code names a way a run can stop on the
// device's account.
func isFailureCode(code string) bool {
	if code == FailureMismatch {
		return true
	}
	for _, fc := range wishbone.FaultCodes {
		if string(fc) == code {
			return true
		}
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
	case AssertEdges:
	case AssertFinal:
		if _, err := bcd.ParseHex(a.Value); err != nil {
			return fmt.Errorf("assertions[%d]: value: %w", index, err)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
