package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rtcdate/internal/bcd"
	"github.com/roach88/rtcdate/internal/harness"
	"github.com/roach88/rtcdate/internal/wishbone"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Op string // optional - filter to one transaction kind
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Scenario string               `json:"scenario"`
	Timeline []harness.TraceEvent `json:"timeline"`
	Stats    TraceStats           `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int    `json:"total_events"`
	Reads       int    `json:"reads"`
	Writes      int    `json:"writes"`
	Pulses      int    `json:"pulses"`
	Edges       uint64 `json:"edges"`
	Pass        bool   `json:"pass"`
	Failure     string `json:"failure,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <scenario-file>",
		Short: "Show the bus transactions of a scenario",
		Long: `Run one scenario and print every completed bus transaction in order.

The output includes:
- Timeline: each read, write and day pulse with the edge it started on
- Stats: transaction counts, total edges and how the run ended

Examples:
  rtcdate trace ./scenarios/leap_2000.yaml
  rtcdate trace ./scenarios/leap_2000.yaml --op read
  rtcdate trace ./scenarios/leap_2000.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Op, "op", "", "filter to one transaction kind (read|write|pulse)")

	return cmd
}

func runTrace(opts *TraceOptions, scenarioFile string, cmd *cobra.Command) error {
	switch wishbone.Op(opts.Op) {
	case "", wishbone.OpRead, wishbone.OpWrite, wishbone.OpPulse:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --op %q: must be read, write or pulse", opts.Op))
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	result, err := harness.New(newLogger(opts.RootOptions, cmd.ErrOrStderr())).Run(scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	trace := TraceResult{
		Scenario: scenario.Name,
		Timeline: buildTimeline(result.Trace, opts.Op),
		Stats: TraceStats{
			TotalEvents: len(result.Trace),
			Reads:       result.Count(string(wishbone.OpRead)),
			Writes:      result.Count(string(wishbone.OpWrite)),
			Pulses:      result.Count(string(wishbone.OpPulse)),
			Edges:       result.Edges,
			Pass:        result.Pass,
			Failure:     harness.FailureCode(result.Failure),
		},
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, trace)
	}
	return outputTraceText(cmd, trace, opts.Verbose)
}

// buildTimeline filters trace events to one op when opFilter is set.
func buildTimeline(events []harness.TraceEvent, opFilter string) []harness.TraceEvent {
	timeline := make([]harness.TraceEvent, 0, len(events))
	for _, ev := range events {
		if opFilter != "" && ev.Op != opFilter {
			continue
		}
		timeline = append(timeline, ev)
	}
	return timeline
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Scenario: %s\n", result.Scenario)
	fmt.Fprintf(w, "Status: %s\n", runStatus(result.Stats))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no transactions)")
	} else {
		for _, ev := range result.Timeline {
			formatTimelineEvent(w, ev, verbose)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Transactions: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Reads:        %d\n", result.Stats.Reads)
	fmt.Fprintf(w, "  Writes:       %d\n", result.Stats.Writes)
	fmt.Fprintf(w, "  Pulses:       %d\n", result.Stats.Pulses)
	fmt.Fprintf(w, "  Edges:        %d\n", result.Stats.Edges)

	return nil
}

// formatTimelineEvent formats a single transaction for text output. Verbose
// output adds the calendar date a packed word decodes to.
func formatTimelineEvent(w io.Writer, ev harness.TraceEvent, verbose bool) {
	op := strings.ToUpper(ev.Op)
	if ev.Value == "" {
		fmt.Fprintf(w, "  [%d] edge %d %s\n", ev.Seq, ev.Edge, op)
		return
	}
	fmt.Fprintf(w, "  [%d] edge %d %s %s\n", ev.Seq, ev.Edge, op, ev.Value)
	if verbose {
		fmt.Fprintf(w, "       Date: %s\n", decodedDate(ev.Value))
	}
}

// decodedDate renders a packed word as YYYY-MM-DD, or explains why it
// is not a date.
func decodedDate(value string) string {
	w, err := bcd.ParseHex(value)
	if err != nil {
		return fmt.Sprintf("(invalid: %v)", err)
	}
	d, _ := bcd.Unpack(w)
	if err := bcd.Validate(d); err != nil {
		return fmt.Sprintf("(invalid: %v)", err)
	}
	return d.String()
}

// runStatus returns a human-readable run status.
func runStatus(stats TraceStats) string {
	switch {
	case stats.Pass && stats.Failure == "":
		return "Passed"
	case stats.Pass:
		return fmt.Sprintf("Passed (stopped with expected %s)", stats.Failure)
	case stats.Failure != "":
		return fmt.Sprintf("Failed (%s)", stats.Failure)
	default:
		return "Failed"
	}
}
