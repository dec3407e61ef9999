package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/rtcdate/internal/canonical"
	"github.com/roach88/rtcdate/internal/harness"
	"github.com/roach88/rtcdate/internal/rtcdate"
	"github.com/roach88/rtcdate/internal/wishbone"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	From  int
	To    int
	Fault string

	// RunIDs overrides the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs harness.RunIDGenerator
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return newSweepCommand(&SweepOptions{RootOptions: rootOpts})
}

func newSweepCommand(opts *SweepOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Check every day from --from through the end of --to minus one",
		Long: `Program the device with January 1 of --from, then check and advance it
once per day through December 31 of the year before --to. The first
disagreement with the calendar or bus protocol violation stops the run.

Exit codes:
  0 - Every day matched
  1 - The device reported the wrong date
  2 - Command error (bad range, unknown fault, interrupted)
  3 - The device violated the bus protocol

Examples:
  rtcdate sweep
  rtcdate sweep --from 1999 --to 2001
  rtcdate sweep --fault century-leap
  rtcdate sweep --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.From, "from", 1970, "first year checked")
	cmd.Flags().IntVar(&opts.To, "to", 4000, "year after the last year checked")
	cmd.Flags().StringVar(&opts.Fault, "fault", "", "inject a device defect (stall|drop-ack|linger-ack|ignore-write|century-leap)")

	return cmd
}

func runSweep(opts *SweepOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	fault, err := rtcdate.ParseFault(opts.Fault)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --fault", err)
	}
	r, err := harness.YearRange(opts.From, opts.To)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid range", err)
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = harness.UUIDv7Generator{}
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping sweep", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	bus := wishbone.New(rtcdate.New(rtcdate.WithFault(fault)), wishbone.WithLogger(logger))
	driver := harness.NewDriver(bus,
		harness.WithLogger(logger),
		harness.WithRunIDGenerator(runIDs),
	)

	res, sweepErr := driver.Sweep(ctx, r)

	if opts.Format == "json" {
		if err := outputSweepJSON(cmd, res, sweepErr); err != nil {
			return err
		}
	} else {
		outputSweepText(cmd, res, sweepErr)
	}

	if sweepErr != nil {
		return WrapExitError(exitCodeFor(sweepErr), "sweep failed", sweepErr)
	}
	return nil
}

// outputSweepText prints the bench report. The last line is SUCCESS! or
// the FAIL line naming the mismatch or fault.
func outputSweepText(cmd *cobra.Command, res *harness.SweepResult, sweepErr error) {
	w := cmd.OutOrStdout()

	if res.Initial != 0 {
		fmt.Fprintf(w, "Initial date: %08x\n", res.Initial)
	}
	if sweepErr != nil {
		fmt.Fprintf(w, "FAIL: %s\n", sweepErr)
		return
	}
	fmt.Fprintf(w, "Final date  : %08x\n", res.Final)
	fmt.Fprintln(w, "SUCCESS!")
}

// outputSweepJSON writes the canonical form of the sweep result inside the
// standard response envelope.
func outputSweepJSON(cmd *cobra.Command, res *harness.SweepResult, sweepErr error) error {
	data, err := canonical.Marshal(res)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to marshal sweep result", err)
	}

	response := CLIResponse{
		Status: "ok",
		Data:   json.RawMessage(data),
		RunID:  res.RunID,
	}
	if sweepErr != nil {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    harness.FailureCode(sweepErr),
			Message: sweepErr.Error(),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}
