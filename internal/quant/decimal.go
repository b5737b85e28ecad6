// Package quant defines the exact-decimal value primitives shared by every
// core subsystem: Price, Size, Notional, Fee, Symbol, VenueID, OrderID,
// ClientOrderID and Timestamp. Each numeric type is a scaled int64 — the
// scale is a property of configuration (tick size / lot size), not of the
// type — but the Go types stay distinct so the compiler rejects mixing
// units that must never be mixed (Price + Size does not compile).
package quant

import "strconv"

const maxInt64 = 1<<63 - 1

// appendScaledInt renders value as a fixed-point decimal string with scale
// fractional digits, appending to buf.
func appendScaledInt(buf []byte, value int64, scale int) []byte {
	if scale <= 0 {
		return strconv.AppendInt(buf, value, 10)
	}

	neg := value < 0
	u := uint64(value)
	if neg {
		u = uint64(-value)
	}

	var tmp [32]byte
	digits := strconv.AppendUint(tmp[:0], u, 10)

	if neg {
		buf = append(buf, '-')
	}

	if len(digits) <= scale {
		buf = append(buf, '0', '.')
		for i := 0; i < scale-len(digits); i++ {
			buf = append(buf, '0')
		}
		buf = append(buf, digits...)
		return buf
	}

	idx := len(digits) - scale
	buf = append(buf, digits[:idx]...)
	buf = append(buf, '.')
	buf = append(buf, digits[idx:]...)
	return buf
}

// parseScaledInt is the inverse of appendScaledInt: it parses an
// author-facing decimal string (config files, CLI flags) such as "0.0005"
// into a scaled int64 with the given number of fractional digits.
func parseScaledInt(s string, scale int) (int64, error) {
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	intPart, fracPart := s, ""
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			intPart, fracPart = s[:i], s[i+1:]
			break
		}
	}

	if len(fracPart) > scale {
		fracPart = fracPart[:scale]
	}
	for len(fracPart) < scale {
		fracPart += "0"
	}

	intVal, err := parseIntOrZero(intPart)
	if err != nil {
		return 0, err
	}

	fracVal, err := parseIntOrZero(fracPart)
	if err != nil {
		return 0, err
	}

	scaleFactor := int64(1)
	for i := 0; i < scale; i++ {
		scaleFactor *= 10
	}

	raw := intVal*scaleFactor + fracVal
	if neg {
		raw = -raw
	}

	return raw, nil
}

func parseIntOrZero(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// mulOverflow multiplies two scaled int64 values and reports whether the
// product overflows int64, mirroring the teacher's risk-engine mulNotional
// guard. The caller interprets the scale of the result per its own
// configuration, same as every other scaled type in this package.
func mulOverflow(a, b int64) (product int64, overflow bool) {
	if a == 0 || b == 0 {
		return 0, false
	}

	absA, absB := a, b
	if absA < 0 {
		absA = -absA
	}
	if absB < 0 {
		absB = -absB
	}

	if absA > maxInt64/absB {
		return 0, true
	}

	return a * b, false
}
