package mrz

import (
	"fmt"
	"time"
)

// dateKind selects the century pivot applied when resolving a YYMMDD value.
type dateKind int

const (
	birthDate dateKind = iota
	expiryDate
)

// parseDate validates a YYMMDD field and resolves it to a calendar date.
// Doc 9303 leaves century resolution to the reader: birth dates pivot on the
// current year plus a ten-year slack (a birth date more than ten years in the
// future must be from the 1900s), expiry dates always resolve to 2000+.
func parseDate(raw string, kind dateKind, now time.Time) (Date, error) {
	if len(raw) != 6 {
		return Date{Raw: raw}, fmt.Errorf("date %q: want 6 characters", raw)
	}
	for i := 0; i < 6; i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return Date{Raw: raw}, fmt.Errorf("date %q: non-numeric character at position %d", raw, i)
		}
	}
	yy := int(raw[0]-'0')*10 + int(raw[1]-'0')
	mm := int(raw[2]-'0')*10 + int(raw[3]-'0')
	dd := int(raw[4]-'0')*10 + int(raw[5]-'0')
	if mm < 1 || mm > 12 {
		return Date{Raw: raw}, fmt.Errorf("date %q: month out of range", raw)
	}

	year := 2000 + yy
	if kind == birthDate && year > now.Year()+10 {
		year = 1900 + yy
	}

	t := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (e.g. Feb 30), so round-trip the day check
	if t.Day() != dd || int(t.Month()) != mm {
		return Date{Raw: raw}, fmt.Errorf("date %q: day out of range", raw)
	}
	return Date{Raw: raw, Resolved: t}, nil
}
