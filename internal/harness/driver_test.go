package harness

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtcdate/internal/bcd"
	"github.com/roach88/rtcdate/internal/rtcdate"
	"github.com/roach88/rtcdate/internal/testutil"
	"github.com/roach88/rtcdate/internal/wishbone"
)

func midday(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := bcd.Parse(s)
	require.NoError(t, err)
	return d.Midday()
}

func newDriver(opts ...rtcdate.Option) (*Driver, *rtcdate.Core) {
	core := rtcdate.New(opts...)
	d := NewDriver(wishbone.New(core),
		WithRunIDGenerator(testutil.NewFixedRunIDGenerator("test-run")))
	return d, core
}

func TestEncode_PinsToUTCDate(t *testing.T) {
	got, err := Encode(midday(t, "1970-01-01"))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x19700101), got)
}

func TestDriver_StateMachine(t *testing.T) {
	d, _ := newDriver()
	assert.Equal(t, StateIdle, d.State())

	start := midday(t, "1970-01-01")
	require.NoError(t, d.Program(start))
	assert.Equal(t, StateProgrammed, d.State())

	require.NoError(t, d.Check(start))
	assert.Equal(t, StateChecking, d.State())

	require.NoError(t, d.Advance())
	assert.Equal(t, StateAdvancing, d.State())

	err := d.Check(start)
	require.Error(t, err)
	assert.Equal(t, StateFailed, d.State())
}

func TestDriver_ConcreteBoundaries(t *testing.T) {
	tests := []struct {
		from string
		want uint32
	}{
		{"1970-01-01", 0x19700102},
		{"2000-02-28", 0x20000229},
		{"2000-02-29", 0x20000301},
		{"2100-02-28", 0x21000301},
		{"1999-12-31", 0x20000101},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			d, _ := newDriver()
			when := midday(t, tt.from)

			require.NoError(t, d.Program(when))
			require.NoError(t, d.Check(when))
			require.NoError(t, d.Advance())
			require.NoError(t, d.Check(when.Add(Day)))

			got, err := d.Read()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "got %08x", got)
		})
	}
}

func TestDriver_ProgramEncodesYearNibbles(t *testing.T) {
	d, core := newDriver()
	require.NoError(t, d.Program(midday(t, "1970-01-01")))
	assert.Equal(t, uint32(0x19700101), core.Date())
}

func TestDriver_WriteReadback(t *testing.T) {
	// Any representable date written reads back unchanged.
	d, _ := newDriver()
	for _, s := range []string{"1970-01-01", "2000-02-29", "3999-12-31", "0001-01-01", "9999-12-31"} {
		when := midday(t, s)
		require.NoError(t, d.Program(when), s)
		want, err := Encode(when)
		require.NoError(t, err)

		got, err := d.Read()
		require.NoError(t, err)
		assert.Equal(t, want, got, s)
	}
}

func TestDriver_CheckMismatch(t *testing.T) {
	d, _ := newDriver()
	when := midday(t, "2000-02-28")
	require.NoError(t, d.Program(when))

	err := d.Check(when.Add(Day))
	require.Error(t, err)
	assert.True(t, IsMismatch(err))
	assert.Equal(t, FailureMismatch, FailureCode(err))

	var me *MismatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, uint32(0x20000229), me.Expected)
	assert.Equal(t, uint32(0x20000228), me.Actual)
	assert.Equal(t, "20000229(exp) != 20000228 (read)", err.Error())
	assert.Equal(t, "2000-02-29", me.Date().String())
}

func TestDriver_ProtocolFaultsSurface(t *testing.T) {
	tests := []struct {
		fault rtcdate.Fault
		code  wishbone.FaultCode
	}{
		{rtcdate.FaultStall, wishbone.ErrCodeStall},
		{rtcdate.FaultDropAck, wishbone.ErrCodeMissingAck},
		{rtcdate.FaultLingerAck, wishbone.ErrCodeLingeringAck},
		{rtcdate.FaultIgnoreWrite, wishbone.ErrCodeReadbackMismatch},
	}

	for _, tt := range tests {
		t.Run(string(tt.fault), func(t *testing.T) {
			d, _ := newDriver(rtcdate.WithFault(tt.fault))
			err := d.Program(midday(t, "1970-01-01"))
			require.Error(t, err)
			assert.Equal(t, tt.code, wishbone.FaultCodeOf(err))
			assert.Equal(t, string(tt.code), FailureCode(err))
			assert.False(t, IsMismatch(err))
			assert.Equal(t, StateFailed, d.State())
		})
	}
}

func TestDefaultRange(t *testing.T) {
	r := DefaultRange()
	assert.Equal(t, time.Date(1970, time.January, 1, 12, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(3999, time.December, 31, 12, 0, 0, 0, time.UTC), r.Stop)

	// 1970..3999 inclusive, by day.
	assert.Equal(t, int64(741442), r.Days())
}

func TestYearRange_Invalid(t *testing.T) {
	_, err := YearRange(2000, 2000)
	assert.Error(t, err)
	_, err = YearRange(2000, 10000)
	assert.Error(t, err)
	_, err = YearRange(-1, 2000)
	assert.Error(t, err)
}

func TestSweep_ShortRange(t *testing.T) {
	d, _ := newDriver()
	r, err := YearRange(1999, 2001)
	require.NoError(t, err)

	res, err := d.Sweep(context.Background(), r)
	require.NoError(t, err)

	assert.True(t, res.Pass)
	assert.Equal(t, "test-run", res.RunID)
	assert.Equal(t, uint32(0x19990101), res.Initial)
	assert.Equal(t, uint32(0x20010101), res.Final)
	assert.Equal(t, int64(365+366), res.Days)
	// write + initial read + (read + pulse) per day + final read
	assert.Equal(t, uint64(2+2+3*res.Days+2), res.Edges)
	assert.Equal(t, StateIdle, d.State())
}

func TestSweep_FullRange(t *testing.T) {
	if testing.Short() {
		t.Skip("multi-century sweep")
	}

	d, _ := newDriver()
	res, err := d.Sweep(context.Background(), DefaultRange())
	require.NoError(t, err)
	assert.True(t, res.Pass)
	assert.Equal(t, uint32(0x19700101), res.Initial)
	assert.Equal(t, uint32(0x40000101), res.Final)
	assert.Equal(t, DefaultRange().Days(), res.Days)
}

func TestSweep_StopsAtFirstMismatch(t *testing.T) {
	d, _ := newDriver(rtcdate.WithFault(rtcdate.FaultCenturyLeap))
	r, err := YearRange(1999, 2001)
	require.NoError(t, err)

	res, err := d.Sweep(context.Background(), r)
	require.Error(t, err)
	assert.False(t, res.Pass)

	var me *MismatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, uint32(0x20000229), me.Expected)
	assert.Equal(t, uint32(0x20000301), me.Actual)

	// 1999 has 365 days, plus Jan and Feb 1..28 of 2000.
	assert.Equal(t, int64(365+31+28), res.Days)
}

func TestSweep_CorruptedOracleDigit(t *testing.T) {
	corruptAt := midday(t, "1970-03-15")
	enc := func(when time.Time) (uint32, error) {
		w, err := Encode(when)
		if when.Equal(corruptAt) {
			w ^= 0x1 // day units 5 -> 4
		}
		return w, err
	}

	core := rtcdate.New()
	d := NewDriver(wishbone.New(core), WithEncoder(enc))
	r, err := YearRange(1970, 1971)
	require.NoError(t, err)

	_, err = d.Sweep(context.Background(), r)
	require.Error(t, err)
	assert.Equal(t, "19700314(exp) != 19700315 (read)", err.Error())
}

func TestSweep_CorruptedDevice(t *testing.T) {
	dev := &testutil.CorruptingDevice{
		Device: rtcdate.New(),
		Corrupt: func(data uint32) (uint32, bool) {
			if data == 0x19721231 {
				return 0x19721230, true
			}
			return data, false
		},
	}
	d := NewDriver(wishbone.New(dev))
	r, err := YearRange(1970, 1974)
	require.NoError(t, err)

	_, err = d.Sweep(context.Background(), r)
	require.Error(t, err)
	assert.Equal(t, "19721231(exp) != 19721230 (read)", err.Error())
}

func TestSweep_ProtocolFault(t *testing.T) {
	d, _ := newDriver(rtcdate.WithFault(rtcdate.FaultLingerAck))

	res, err := d.Sweep(context.Background(), DefaultRange())
	require.Error(t, err)
	assert.True(t, wishbone.IsProtocolError(err))
	assert.Equal(t, int64(0), res.Days)
	assert.Equal(t, uint64(2), res.Edges)
}

func TestSweep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, _ := newDriver()
	res, err := d.Sweep(ctx, DefaultRange())
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.Pass)
	assert.Equal(t, FailureOther, FailureCode(err))
}

func TestSweep_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	core := rtcdate.New()
	d := NewDriver(wishbone.New(core), WithLogger(logger),
		WithRunIDGenerator(testutil.NewFixedRunIDGenerator("run-42")))
	r, err := YearRange(1970, 1972)
	require.NoError(t, err)

	_, err = d.Sweep(context.Background(), r)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "sweep started")
	assert.Contains(t, out, "run_id=run-42")
	assert.Contains(t, out, "year reached")
	assert.Contains(t, out, "sweep passed")
}
