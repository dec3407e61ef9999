package bcd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxYear is the largest year a four-digit BCD year field can hold.
const MaxYear = 9999

// ErrInvalidDigit is returned when a packed word contains a nibble above 9.
var ErrInvalidDigit = errors.New("nibble is not a BCD digit")

// Date is a calendar date without time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// Midday returns the instant at 12:00 UTC on d. Pinning the time of day to
// noon keeps 24h arithmetic away from day boundaries.
func (d Date) Midday() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

// Pack encodes a date as a packed BCD word.
//
// Pack only checks that each field fits its digits; it does not check that the
// day exists in the month. Use Validate for that.
func Pack(d Date) (uint32, error) {
	if d.Year < 0 || d.Year > MaxYear {
		return 0, fmt.Errorf("year %d outside [0, %d]", d.Year, MaxYear)
	}
	if d.Month < 1 || d.Month > 12 {
		return 0, fmt.Errorf("month %d outside [1, 12]", d.Month)
	}
	if d.Day < 1 || d.Day > 31 {
		return 0, fmt.Errorf("day %d outside [1, 31]", d.Day)
	}

	var w uint32
	w = Digits(w, d.Year, 4)
	w = Digits(w, int(d.Month), 2)
	w = Digits(w, d.Day, 2)
	return w, nil
}

// MustPack is Pack for dates known to be in range. It panics on error.
func MustPack(d Date) uint32 {
	w, err := Pack(d)
	if err != nil {
		panic(err)
	}
	return w
}

// Encode packs the UTC date of t.
func Encode(t time.Time) (uint32, error) {
	return Pack(DateOf(t))
}

// Digits shifts n decimal digits of v, most significant first, into the low
// nibbles of w.
func Digits(w uint32, v, n int) uint32 {
	div := 1
	for i := 1; i < n; i++ {
		div *= 10
	}
	for ; div > 0; div /= 10 {
		w = w<<4 | uint32((v/div)%10)
	}
	return w
}

// Unpack decodes a packed BCD word. It rejects non-decimal nibbles but, like
// Pack, leaves calendar validity to Validate.
func Unpack(w uint32) (Date, error) {
	for i := 0; i < 8; i++ {
		if n := (w >> (4 * i)) & 0xf; n > 9 {
			return Date{}, fmt.Errorf("%08x: nibble %d = %x: %w", w, i, n, ErrInvalidDigit)
		}
	}
	return Date{
		Year:  Value(w>>16, 4),
		Month: time.Month(Value(w>>8, 2)),
		Day:   Value(w, 2),
	}, nil
}

// Value reads the low n nibbles of w as a decimal number. Nibbles are not
// checked.
func Value(w uint32, n int) int {
	v, mul := 0, 1
	for i := 0; i < n; i++ {
		v += int(w&0xf) * mul
		w >>= 4
		mul *= 10
	}
	return v
}

// Validate reports whether d names a real day in the proleptic Gregorian
// calendar within the packable range.
func Validate(d Date) error {
	if d.Year < 0 || d.Year > MaxYear {
		return fmt.Errorf("year %d outside [0, %d]", d.Year, MaxYear)
	}
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("month %d outside [1, 12]", d.Month)
	}
	if d.Day < 1 || d.Day > DaysIn(d.Year, d.Month) {
		return fmt.Errorf("%s: day out of range for month", d)
	}
	return nil
}

// IsLeap applies the Gregorian leap-year rule.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, m time.Month) int {
	switch m {
	case time.February:
		if IsLeap(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// Parse reads a YYYY-MM-DD date and validates it.
func Parse(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	d := DateOf(t)
	if err := Validate(d); err != nil {
		return Date{}, err
	}
	return d, nil
}

// ParseHex reads a packed word written as eight hex digits, with or without
// a 0x prefix. The digits must all be decimal.
func ParseHex(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parse packed date %q: %w", s, err)
	}
	w := uint32(v)
	if _, err := Unpack(w); err != nil {
		return 0, err
	}
	return w, nil
}
