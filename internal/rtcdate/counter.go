package rtcdate

// NextDay returns the packed date one day after date. All arithmetic is done
// on BCD digits. If noCenturyLeap is set, years divisible by 100 are never
// leap years.
func NextDay(date uint32, noCenturyLeap bool) uint32 {
	year := date >> 16
	month := (date >> 8) & 0xff
	day := date & 0xff

	if day < lastDay(year, month, noCenturyLeap) {
		return year<<16 | month<<8 | increment(day, 2)
	}
	if month < 0x12 {
		return year<<16 | increment(month, 2)<<8 | 0x01
	}
	return increment(year, 4)<<16 | 0x0101
}

// lastDay returns the BCD number of the last day of a BCD month.
func lastDay(year, month uint32, noCenturyLeap bool) uint32 {
	switch month {
	case 0x02:
		if leap(year, noCenturyLeap) {
			return 0x29
		}
		return 0x28
	case 0x04, 0x06, 0x09, 0x11:
		return 0x30
	default:
		return 0x31
	}
}

// leap applies the Gregorian rule to a four-digit BCD year. A year ending
// in 00 is leap when its century is a multiple of four.
func leap(year uint32, noCenturyLeap bool) bool {
	low := year & 0xff
	if low != 0 {
		return divisibleBy4(low)
	}
	if noCenturyLeap {
		return false
	}
	return divisibleBy4(year >> 8)
}

// divisibleBy4 tests a two-digit BCD number. 10 is 2 mod 4, so an odd tens
// digit needs a units digit of 2 or 6, an even one 0, 4 or 8.
func divisibleBy4(v uint32) bool {
	tens, units := (v>>4)&0xf, v&0xf
	if tens&1 == 1 {
		return units == 2 || units == 6
	}
	return units%4 == 0
}

// increment adds one to an n-digit BCD number, wrapping to zero.
func increment(v uint32, n int) uint32 {
	for i := 0; i < n; i++ {
		shift := uint(4 * i)
		digit := (v >> shift) & 0xf
		if digit < 9 {
			return v + 1<<shift
		}
		v &^= 0xf << shift
	}
	return v
}
