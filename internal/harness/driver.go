package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/rtcdate/internal/bcd"
	"github.com/roach88/rtcdate/internal/wishbone"
)

// Day is the step between checked instants.
const Day = 24 * time.Hour

// Encoder maps an instant to the packed date the device should report.
type Encoder func(time.Time) (uint32, error)

// Encode is the reference encoder: the UTC calendar date of t, packed.
func Encode(t time.Time) (uint32, error) {
	return bcd.Encode(t)
}

// Driver runs the date equivalence check over a bus.
//
// Driver is single-threaded: it owns the bus and nothing else may touch the
// device while it runs.
type Driver struct {
	bus    *wishbone.Bus
	encode Encoder
	logger *slog.Logger
	runIDs RunIDGenerator
	state  State
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithEncoder replaces the reference encoder. Tests use this to corrupt the
// expected side of the comparison.
func WithEncoder(enc Encoder) Option {
	return func(d *Driver) {
		d.encode = enc
	}
}

// WithRunIDGenerator sets the source of sweep run IDs.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(d *Driver) {
		d.runIDs = gen
	}
}

// NewDriver creates a driver in the idle state.
func NewDriver(bus *wishbone.Bus, opts ...Option) *Driver {
	d := &Driver{
		bus:    bus,
		encode: Encode,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		runIDs: UUIDv7Generator{},
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the driver's current state.
func (d *Driver) State() State {
	return d.state
}

// Bus returns the transactor the driver runs on.
func (d *Driver) Bus() *wishbone.Bus {
	return d.bus
}

// Program sets the device's date to the one containing when.
func (d *Driver) Program(when time.Time) error {
	word, err := d.encode(when)
	if err != nil {
		return d.fail(fmt.Errorf("program: %w", err))
	}
	if err := d.bus.Write(word); err != nil {
		return d.fail(fmt.Errorf("program %s: %w", bcd.DateOf(when), err))
	}
	d.state = StateProgrammed
	return nil
}

// Check reads the device's date and compares it with the reference
// encoding of when. A difference is returned as a *MismatchError.
func (d *Driver) Check(when time.Time) error {
	d.state = StateChecking

	expected, err := d.encode(when)
	if err != nil {
		return d.fail(fmt.Errorf("check: %w", err))
	}
	actual, err := d.bus.Read()
	if err != nil {
		return d.fail(fmt.Errorf("check %s: %w", bcd.DateOf(when), err))
	}
	if actual != expected {
		return d.fail(&MismatchError{When: when, Expected: expected, Actual: actual})
	}
	return nil
}

// Advance tells the device one day has passed.
func (d *Driver) Advance() error {
	d.state = StateAdvancing
	if err := d.bus.Pulse(); err != nil {
		return d.fail(fmt.Errorf("advance: %w", err))
	}
	return nil
}

// Read returns the device's current packed date without comparing it.
func (d *Driver) Read() (uint32, error) {
	word, err := d.bus.Read()
	if err != nil {
		return 0, d.fail(fmt.Errorf("read: %w", err))
	}
	return word, nil
}

func (d *Driver) fail(err error) error {
	d.state = StateFailed
	return err
}

// Range is a span of instants checked a day apart, Start and Stop included.
type Range struct {
	Start time.Time
	Stop  time.Time
}

// DefaultRange covers 1970-01-01 through 3999-12-31 at midday UTC.
func DefaultRange() Range {
	r, _ := YearRange(1970, 4000)
	return r
}

// YearRange covers January 1 of from through the day before January 1 of
// to, at midday UTC. Stop is derived with time arithmetic, not by counting
// days.
func YearRange(from, to int) (Range, error) {
	if from < 0 || to > bcd.MaxYear || from >= to {
		return Range{}, fmt.Errorf("invalid year range [%d, %d)", from, to)
	}
	return Range{
		Start: bcd.Date{Year: from, Month: time.January, Day: 1}.Midday(),
		Stop:  bcd.Date{Year: to, Month: time.January, Day: 1}.Midday().Add(-Day),
	}, nil
}

// Days returns how many instants the range checks.
func (r Range) Days() int64 {
	// Sub saturates after about 292 years, so count in seconds.
	return (r.Stop.Unix()-r.Start.Unix())/int64(Day/time.Second) + 1
}

// SweepResult summarizes a sweep. On failure it describes the run up to the
// failing step.
type SweepResult struct {
	RunID   string    `json:"run_id"`
	Start   time.Time `json:"-"`
	Stop    time.Time `json:"-"`
	Initial uint32    `json:"initial"`
	Final   uint32    `json:"final"`
	Days    int64     `json:"days"`
	Edges   uint64    `json:"edges"`
	Pass    bool      `json:"pass"`
}

// CanonicalValue implements canonical.Marshaler.
func (r *SweepResult) CanonicalValue() any {
	return map[string]any{
		"run_id":  r.RunID,
		"start":   bcd.DateOf(r.Start).String(),
		"stop":    bcd.DateOf(r.Stop).String(),
		"initial": fmt.Sprintf("%08x", r.Initial),
		"final":   fmt.Sprintf("%08x", r.Final),
		"days":    r.Days,
		"edges":   r.Edges,
		"pass":    r.Pass,
	}
}

// Sweep programs r.Start, then for every day through r.Stop checks the
// device and advances it, and finally reads the date the device reached.
//
// Sweep stops at the first error: a *MismatchError, a wrapped
// *wishbone.ProtocolError, or ctx's error if it is cancelled between days.
// After N advances the device must report Start + N days.
func (d *Driver) Sweep(ctx context.Context, r Range) (*SweepResult, error) {
	res := &SweepResult{
		RunID: d.runIDs.Generate(),
		Start: r.Start,
		Stop:  r.Stop,
	}
	logger := d.logger.With("run_id", res.RunID)
	logger.Info("sweep started",
		"start", bcd.DateOf(r.Start).String(),
		"stop", bcd.DateOf(r.Stop).String(),
		"days", r.Days(),
	)

	finish := func(err error) (*SweepResult, error) {
		res.Edges = d.bus.Edges()
		if err != nil {
			logger.Error("sweep failed",
				"error", err,
				"code", FailureCode(err),
				"days", res.Days,
				"edges", res.Edges,
			)
			return res, err
		}
		res.Pass = true
		d.state = StateIdle
		logger.Info("sweep passed",
			"days", res.Days,
			"edges", res.Edges,
			"final", fmt.Sprintf("%08x", res.Final),
		)
		return res, nil
	}

	if err := d.Program(r.Start); err != nil {
		return finish(err)
	}
	initial, err := d.Read()
	if err != nil {
		return finish(err)
	}
	res.Initial = initial

	year := r.Start.Year()
	for when := r.Start; !when.After(r.Stop); when = when.Add(Day) {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		if y := when.Year(); y != year {
			year = y
			logger.Debug("year reached", "year", y, "edges", d.bus.Edges())
		}

		if err := d.Check(when); err != nil {
			return finish(err)
		}
		if err := d.Advance(); err != nil {
			return finish(err)
		}
		res.Days++
	}

	final, err := d.Read()
	if err != nil {
		return finish(err)
	}
	res.Final = final
	return finish(nil)
}
