// Package bcd implements the packed binary-coded-decimal date word used by the
// real-time date core.
//
// A packed date is a 32-bit bus value holding eight BCD nibbles, most
// significant first:
//
//	31      16 15   8 7    0
//	Y Y Y Y     M M    D D
//
// so 2000-02-29 packs to 0x20000229. Every nibble is in [0,9]; Pack is a pure,
// injective function of (year, month, day) for years 0 through 9999.
package bcd
