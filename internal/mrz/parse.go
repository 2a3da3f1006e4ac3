package mrz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrFormat means the input lines match no known MRZ layout.
	ErrFormat = errors.New("unrecognized MRZ format")
	// ErrCharset means a line contains characters outside [0-9A-Z<].
	ErrCharset = errors.New("invalid MRZ character")
)

// ValidationError reports check digits that failed to verify. The parsed
// zone is still returned alongside it so callers can inspect the fields.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "MRZ check digit mismatch: " + strings.Join(e.Fields, ", ")
}

// Parse parses MRZ lines into a structured zone. Line count and length select
// the layout: 3x30 TD1, 2x36 TD2, 2x44 TD3. Input must be upper case; trailing
// whitespace per line is ignored. When the structure is sound but one or more
// check digits fail, the parsed MRZ is returned together with a
// *ValidationError naming the failed fields.
func Parse(lines []string) (*MRZ, error) {
	return parseAt(lines, time.Now().UTC())
}

// parseAt is Parse with an injectable clock for date century resolution.
func parseAt(lines []string, now time.Time) (*MRZ, error) {
	trimmed := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimRight(l, " \r\n")
		if l == "" {
			continue
		}
		trimmed = append(trimmed, l)
	}

	switch {
	case len(trimmed) == 3 && allLen(trimmed, 30):
		return parseTD1(trimmed, now)
	case len(trimmed) == 2 && allLen(trimmed, 36):
		return parseTD2(trimmed, now)
	case len(trimmed) == 2 && allLen(trimmed, 44):
		return parseTD3(trimmed, now)
	}
	return nil, fmt.Errorf("%w: %d line(s)", ErrFormat, len(trimmed))
}

func allLen(lines []string, n int) bool {
	for _, l := range lines {
		if len(l) != n {
			return false
		}
	}
	return true
}

func checkCharset(lines []string) error {
	for li, l := range lines {
		for i := 0; i < len(l); i++ {
			if _, ok := charValue(l[i]); !ok {
				return fmt.Errorf("%w: line %d position %d (%q)", ErrCharset, li+1, i+1, l[i])
			}
		}
	}
	return nil
}

func parseTD1(lines []string, now time.Time) (*MRZ, error) {
	if err := checkCharset(lines); err != nil {
		return nil, err
	}
	l1, l2, l3 := lines[0], lines[1], lines[2]

	m := &MRZ{
		Format:       TD1,
		DocumentCode: strings.TrimRight(l1[0:2], "<"),
		IssuingState: strings.TrimRight(l1[2:5], "<"),
		Nationality:  strings.TrimRight(l2[15:18], "<"),
		rawDocNumber: l1[5:14],
		docNumberCD:  l1[14],
		birthCD:      l2[6],
		expiryCD:     l2[14],
	}
	m.PrimaryName, m.SecondaryName = splitNames(l3)

	optional1 := l1[15:30]
	m.DocumentNumber = strings.TrimRight(m.rawDocNumber, "<")
	// A document number longer than nine characters continues into the
	// optional data field; the continuation carries its own check digit and
	// the nine-character field's check position holds a filler.
	if m.docNumberCD == '<' {
		cont := strings.TrimRight(optional1, "<")
		if len(cont) >= 2 {
			m.rawDocNumber = m.DocumentNumber + cont[:len(cont)-1]
			m.docNumberCD = cont[len(cont)-1]
			m.DocumentNumber = strings.TrimRight(m.rawDocNumber, "<")
			optional1 = ""
		}
	} else {
		m.OptionalData = strings.TrimRight(optional1, "<")
	}
	if o2 := strings.TrimRight(l2[18:29], "<"); o2 != "" {
		if m.OptionalData != "" {
			m.OptionalData += " "
		}
		m.OptionalData += o2
	}

	m.Checks.DocumentNumber = verifyCheckDigit(m.rawDocNumber, m.docNumberCD)
	m.Checks.BirthDate = verifyCheckDigit(l2[0:6], m.birthCD)
	m.Checks.ExpiryDate = verifyCheckDigit(l2[8:14], m.expiryCD)
	m.Checks.Optional = true
	composite := l1[5:30] + l2[0:7] + l2[8:15] + l2[18:29]
	m.Checks.Composite = verifyCheckDigit(composite, l2[29])

	return finish(m, l2[0:6], l2[8:14], l2[7], now)
}

func parseTD2(lines []string, now time.Time) (*MRZ, error) {
	if err := checkCharset(lines); err != nil {
		return nil, err
	}
	l1, l2 := lines[0], lines[1]

	m := &MRZ{
		Format:       TD2,
		DocumentCode: strings.TrimRight(l1[0:2], "<"),
		IssuingState: strings.TrimRight(l1[2:5], "<"),
		Nationality:  strings.TrimRight(l2[10:13], "<"),
		OptionalData: strings.TrimRight(l2[28:35], "<"),
		rawDocNumber: l2[0:9],
		docNumberCD:  l2[9],
		birthCD:      l2[19],
		expiryCD:     l2[27],
	}
	m.PrimaryName, m.SecondaryName = splitNames(l1[5:36])
	m.DocumentNumber = strings.TrimRight(m.rawDocNumber, "<")

	m.Checks.DocumentNumber = verifyCheckDigit(m.rawDocNumber, m.docNumberCD)
	m.Checks.BirthDate = verifyCheckDigit(l2[13:19], m.birthCD)
	m.Checks.ExpiryDate = verifyCheckDigit(l2[21:27], m.expiryCD)
	m.Checks.Optional = true
	composite := l2[0:10] + l2[13:20] + l2[21:35]
	m.Checks.Composite = verifyCheckDigit(composite, l2[35])

	return finish(m, l2[13:19], l2[21:27], l2[20], now)
}

func parseTD3(lines []string, now time.Time) (*MRZ, error) {
	if err := checkCharset(lines); err != nil {
		return nil, err
	}
	l1, l2 := lines[0], lines[1]

	m := &MRZ{
		Format:       TD3,
		DocumentCode: strings.TrimRight(l1[0:2], "<"),
		IssuingState: strings.TrimRight(l1[2:5], "<"),
		Nationality:  strings.TrimRight(l2[10:13], "<"),
		OptionalData: strings.TrimRight(l2[28:42], "<"),
		rawDocNumber: l2[0:9],
		docNumberCD:  l2[9],
		birthCD:      l2[19],
		expiryCD:     l2[27],
	}
	m.PrimaryName, m.SecondaryName = splitNames(l1[5:44])
	m.DocumentNumber = strings.TrimRight(m.rawDocNumber, "<")

	m.Checks.DocumentNumber = verifyCheckDigit(m.rawDocNumber, m.docNumberCD)
	m.Checks.BirthDate = verifyCheckDigit(l2[13:19], m.birthCD)
	m.Checks.ExpiryDate = verifyCheckDigit(l2[21:27], m.expiryCD)
	m.Checks.Optional = verifyCheckDigit(l2[28:42], l2[42])
	composite := l2[0:10] + l2[13:20] + l2[21:43]
	m.Checks.Composite = verifyCheckDigit(composite, l2[43])

	return finish(m, l2[13:19], l2[21:27], l2[20], now)
}

// finish resolves dates and sex and converts check failures into a
// ValidationError. Date structure problems are hard errors.
func finish(m *MRZ, birth, expiry string, sex byte, now time.Time) (*MRZ, error) {
	var err error
	m.BirthDate, err = parseDate(birth, birthDate, now)
	if err != nil {
		return nil, err
	}
	m.ExpiryDate, err = parseDate(expiry, expiryDate, now)
	if err != nil {
		return nil, err
	}
	switch sex {
	case 'M':
		m.Sex = SexMale
	case 'F':
		m.Sex = SexFemale
	case '<':
		m.Sex = SexUnspecified
	default:
		return nil, fmt.Errorf("invalid sex field %q", sex)
	}

	if failed := m.FailedChecks(); len(failed) > 0 {
		return m, &ValidationError{Fields: failed}
	}
	return m, nil
}

// splitNames separates the primary identifier from secondary identifiers and
// converts single fillers inside each into spaces.
func splitNames(field string) (primary, secondary string) {
	field = strings.TrimRight(field, "<")
	parts := strings.SplitN(field, "<<", 2)
	primary = strings.ReplaceAll(parts[0], "<", " ")
	if len(parts) == 2 {
		secondary = strings.ReplaceAll(parts[1], "<", " ")
	}
	return primary, secondary
}
