package identifier

// luhnSum computes the Luhn sum of a digit string walking right to left.
// doubleFirst selects whether the rightmost digit is doubled, which lets the
// same walk serve both validation (rightmost is the check digit, not doubled)
// and check-digit computation over the payload (rightmost payload digit lands
// on a doubled position once the check digit is appended).
func luhnSum(digits string, doubleFirst bool) int {
	total := 0
	double := doubleFirst
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		total += d
		double = !double
	}
	return total
}

// LuhnValid reports whether a digit string satisfies the Luhn checksum.
// Assumes the input contains only ASCII digits.
func LuhnValid(digits string) bool {
	if digits == "" {
		return false
	}
	return luhnSum(digits, false)%10 == 0
}

// LuhnCheckDigit computes the digit that, appended to payload, makes the
// whole string pass LuhnValid.
func LuhnCheckDigit(payload string) int {
	return (10 - luhnSum(payload, true)%10) % 10
}
