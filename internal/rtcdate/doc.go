// Package rtcdate is a cycle-level behavioural model of a Wishbone date core:
// a single read/write register holding the current date as packed BCD
// (YYYYMMDD), advanced by one day on every edge its "day elapsed" strobe is
// high.
//
// Pin timing follows the hardware:
//
//   - ack is registered from stb, so it is high exactly one edge after a
//     request and low otherwise;
//   - stall is tied low;
//   - the data output is registered from the date register, so it shows the
//     date as it stood before the edge that produced it.
//
// A write replaces the whole register. The day counter works digit by digit
// in BCD with Gregorian leap years, carrying into month and year; year 9999
// wraps to 0000.
//
// The model can be built with an injected Fault so the bench's failure paths
// can be exercised end to end.
package rtcdate
