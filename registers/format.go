package registers

import (
	"strconv"
	"strings"
)

// Decimal formats v as a signed base 10 integer
func Decimal(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Bool formats zero as "off" and anything else as "on"
func Bool(v int64) string {
	if v == 0 {
		return "off"
	}
	return "on"
}

// Hex returns a formatter that prints v as 0x-prefixed hex, zero padded to
// width digits
func Hex(width int) FormatFunc {
	return func(v int64) string {
		s := strconv.FormatUint(uint64(v), 16)
		if len(s) < width {
			s = strings.Repeat("0", width-len(s)) + s
		}
		return "0x" + s
	}
}

// Fixed returns a formatter for a fixed point value with fracBits fractional bits.
// fracBits is capped at 63, the most an int64 can carry.
func Fixed(fracBits uint) FormatFunc {
	if fracBits > 63 {
		fracBits = 63
	}
	scale := float64(uint64(1) << fracBits)
	return func(v int64) string {
		return strconv.FormatFloat(float64(v)/scale, 'g', -1, 64)
	}
}

// Scaled returns a formatter that multiplies v by scale and appends unit,
// e.g. Scaled(1e-6, "MHz")
func Scaled(scale float64, unit string) FormatFunc {
	return func(v int64) string {
		s := strconv.FormatFloat(float64(v)*scale, 'g', 10, 64)
		if unit == "" {
			return s
		}
		return s + " " + unit
	}
}
