package mrz

// check digit weighting defined by ICAO Doc 9303: 7, 3, 1 repeating.
var weights = [3]int{7, 3, 1}

// charValue maps an MRZ character to its numeric value. Digits map to
// themselves, letters to 10..35 and the filler '<' to 0. ok is false for
// any character outside the MRZ alphabet.
func charValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	case c == '<':
		return 0, true
	}
	return 0, false
}

// CheckDigit computes the ICAO 7-3-1 check digit over s. It returns -1 when
// s contains a character outside the MRZ alphabet.
func CheckDigit(s string) int {
	sum := 0
	for i := 0; i < len(s); i++ {
		v, ok := charValue(s[i])
		if !ok {
			return -1
		}
		sum += v * weights[i%3]
	}
	return sum % 10
}

// verifyCheckDigit reports whether digit is the correct check digit for s.
// The filler '<' is accepted as an encoding of 0 (used for empty TD3
// optional data).
func verifyCheckDigit(s string, digit byte) bool {
	want := CheckDigit(s)
	if want < 0 {
		return false
	}
	if digit == '<' {
		return want == 0
	}
	if digit < '0' || digit > '9' {
		return false
	}
	return int(digit-'0') == want
}
