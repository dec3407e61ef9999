// Package harness verifies a real-time date core against Go's calendar.
//
// The Driver programs a start date over the bus, then repeatedly checks the
// date the core reports and pulses its "day elapsed" strobe, comparing every
// day against the packed encoding of the same instant computed by package
// time. The first mismatch or bus protocol fault stops the run.
//
// # Sweep
//
// A sweep covers every day from Start through Stop inclusive, at 12:00 UTC:
//
//	d := harness.NewDriver(wishbone.New(rtcdate.New()))
//	res, err := d.Sweep(ctx, harness.DefaultRange())
//	if err != nil {
//	    // *MismatchError or *wishbone.ProtocolError
//	}
//
// The default range is 1970-01-01 through 3999-12-31; after the last advance
// the core must report 4000-01-01.
//
// # Scenarios
//
// Short boundary checks are written as scenario files, in YAML or CUE:
//
//	name: leap_2000
//	description: "2000 is a leap year"
//	start: "2000-02-28"
//	steps:
//	  - expect: "20000228"
//	  - advance: 1
//	  - expect: "20000229"
//	assertions:
//	  - type: trace_count
//	    op: pulse
//	    count: 1
//
// Both formats are validated against the same CUE schema (schema.cue). A
// scenario may inject a device fault and name the failure it expects, which
// is how the bench's own failure paths are tested.
//
// # Assertion Types
//
//   - trace_count: the bus trace holds exactly Count transactions of Op
//   - edges: the run took exactly Count clock edges
//   - final: a last read returns Value
//
// # Deterministic Testing
//
// Runs are deterministic given the scenario: the device model is fresh per
// run, edge and transaction numbers start at 1, and run IDs come from a
// RunIDGenerator that tests replace with testutil.FixedRunIDGenerator. Bus
// traces can therefore be compared against golden files (RunWithGolden).
package harness
