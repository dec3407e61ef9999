package harness

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/rtcdate/internal/bcd"
	"github.com/roach88/rtcdate/internal/rtcdate"
	"github.com/roach88/rtcdate/internal/wishbone"
)

// Harness executes scenarios against fresh device models.
type Harness struct {
	logger *slog.Logger
}

// New creates a harness that logs to logger. A nil logger discards.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{logger: logger}
}

// Run executes a scenario with logging suppressed.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(scenario)
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a new device model, so edge and transaction numbers
// start at 1. Execution flow:
//  1. Build the device, injecting scenario.Fault
//  2. Program scenario.Start
//  3. Execute steps, stopping at the first failure
//  4. Read the final date (only if nothing failed)
//  5. Evaluate assertions and the expected failure
//
// A device failure is reported in the Result, not as an error. The error
// return is for scenarios that cannot run at all, including steps whose
// expected value disagrees with the calendar.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	fault, _ := rtcdate.ParseFault(scenario.Fault)
	start, _ := bcd.Parse(scenario.Start)

	result := NewResult()
	bus := wishbone.New(rtcdate.New(rtcdate.WithFault(fault)),
		wishbone.WithLogger(h.logger),
		wishbone.WithObserver(func(tx wishbone.Transaction) {
			result.Trace = append(result.Trace, TraceEventOf(tx))
		}),
	)
	driver := NewDriver(bus, WithLogger(h.logger))

	logger := h.logger.With("scenario", scenario.Name)
	failure, err := h.executeSteps(driver, start.Midday(), scenario.Steps, logger)
	if err != nil {
		return nil, err
	}

	var final *uint32
	if failure == nil {
		word, readErr := driver.Read()
		if readErr != nil {
			failure = readErr
		} else {
			final = &word
		}
	}
	result.Edges = bus.Edges()
	result.Failure = failure

	checkFailure(scenario, failure, result)
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, final) {
		result.AddError(msg)
	}

	logger.Info("scenario finished",
		"pass", result.Pass,
		"edges", result.Edges,
		"failure", FailureCode(failure),
	)
	return result, nil
}

// executeSteps programs start and runs the steps. It returns the device
// failure that stopped the run, or a non-nil error if the scenario itself
// is wrong.
func (h *Harness) executeSteps(d *Driver, start time.Time, steps []Step, logger *slog.Logger) (failure error, err error) {
	if failure := d.Program(start); failure != nil {
		return failure, nil
	}
	when := start

	for i, step := range steps {
		switch {
		case step.Advance > 0:
			for n := 0; n < step.Advance; n++ {
				if failure := d.Advance(); failure != nil {
					return fmt.Errorf("step %d: %w", i, failure), nil
				}
				when = when.Add(Day)
			}

		case step.Expect != "":
			want, _ := bcd.ParseHex(step.Expect)
			ref, encErr := Encode(when)
			if encErr != nil {
				return nil, fmt.Errorf("step %d: %w", i, encErr)
			}
			if want != ref {
				return nil, fmt.Errorf("step %d: expects %08x but the calendar gives %08x for %s",
					i, want, ref, bcd.DateOf(when))
			}
			if failure := d.Check(when); failure != nil {
				return fmt.Errorf("step %d: %w", i, failure), nil
			}

		case step.Write != "":
			date, _ := bcd.Parse(step.Write)
			when = date.Midday()
			if failure := d.Program(when); failure != nil {
				return fmt.Errorf("step %d: %w", i, failure), nil
			}
		}

		logger.Debug("step completed",
			"step", i,
			"date", bcd.DateOf(when).String(),
			"edges", d.Bus().Edges(),
		)
	}
	return nil, nil
}

// checkFailure compares how the run ended with scenario.ExpectError.
func checkFailure(scenario *Scenario, failure error, result *Result) {
	got := FailureCode(failure)
	switch {
	case scenario.ExpectError == "" && failure != nil:
		result.AddError(fmt.Sprintf("run failed: %s", failure))
	case scenario.ExpectError != "" && failure == nil:
		result.AddError(fmt.Sprintf("expected failure %s, run passed", scenario.ExpectError))
	case scenario.ExpectError != "" && got != scenario.ExpectError:
		result.AddError(fmt.Sprintf("expected failure %s, got %s: %s", scenario.ExpectError, got, failure))
	}
}
