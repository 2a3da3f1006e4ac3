package mrz

import (
	"fmt"
	"strings"
	"time"
)

// Format identifies the physical MRZ layout of a travel document.
type Format string

const (
	// TD1 is the three-line 30-column layout used by ID cards.
	TD1 Format = "TD1"
	// TD2 is the two-line 36-column layout.
	TD2 Format = "TD2"
	// TD3 is the two-line 44-column passport layout.
	TD3 Format = "TD3"
)

// Sex as encoded in the MRZ. '<' means unspecified.
type Sex string

const (
	SexMale        Sex = "M"
	SexFemale      Sex = "F"
	SexUnspecified Sex = "<"
)

// Date is a YYMMDD field plus its resolved calendar date.
type Date struct {
	Raw      string    `json:"raw"`
	Resolved time.Time `json:"resolved"`
}

// CheckResults records the outcome of every check digit present in the zone.
type CheckResults struct {
	DocumentNumber bool `json:"documentNumber"`
	BirthDate      bool `json:"birthDate"`
	ExpiryDate     bool `json:"expiryDate"`
	// Optional covers the TD3 personal-number check digit when present.
	Optional  bool `json:"optional"`
	Composite bool `json:"composite"`
}

// MRZ is a parsed machine readable zone.
type MRZ struct {
	Format         Format       `json:"format"`
	DocumentCode   string       `json:"documentCode"`
	IssuingState   string       `json:"issuingState"`
	PrimaryName    string       `json:"primaryName"`
	SecondaryName  string       `json:"secondaryName"`
	DocumentNumber string       `json:"documentNumber"`
	Nationality    string       `json:"nationality"`
	BirthDate      Date         `json:"birthDate"`
	Sex            Sex          `json:"sex"`
	ExpiryDate     Date         `json:"expiryDate"`
	OptionalData   string       `json:"optionalData,omitempty"`
	Checks         CheckResults `json:"checks"`

	// raw fields retained exactly as they appear in the zone; these feed
	// the BAC/PACE key input where filler characters are significant.
	rawDocNumber string
	docNumberCD  byte
	birthCD      byte
	expiryCD     byte
}

// Valid reports whether every check digit in the zone verified.
func (m *MRZ) Valid() bool {
	return m.Checks.DocumentNumber && m.Checks.BirthDate && m.Checks.ExpiryDate &&
		m.Checks.Optional && m.Checks.Composite
}

// FailedChecks lists the names of check digits that did not verify.
func (m *MRZ) FailedChecks() []string {
	var out []string
	if !m.Checks.DocumentNumber {
		out = append(out, "document_number")
	}
	if !m.Checks.BirthDate {
		out = append(out, "birth_date")
	}
	if !m.Checks.ExpiryDate {
		out = append(out, "expiry_date")
	}
	if !m.Checks.Optional {
		out = append(out, "optional_data")
	}
	if !m.Checks.Composite {
		out = append(out, "composite")
	}
	return out
}

// AccessKeyInput returns the "MRZ information" string fed into BAC and PACE
// key derivation: document number, birth date and expiry date, each followed
// by its check digit. Filler characters in the document number are kept.
func (m *MRZ) AccessKeyInput() string {
	var b strings.Builder
	b.WriteString(m.rawDocNumber)
	b.WriteByte(m.docNumberCD)
	b.WriteString(m.BirthDate.Raw)
	b.WriteByte(m.birthCD)
	b.WriteString(m.ExpiryDate.Raw)
	b.WriteByte(m.expiryCD)
	return b.String()
}

// String renders the fields the way device debug logs print them.
func (m *MRZ) String() string {
	return fmt.Sprintf("Document Number: '%s'\nBirth Date: '%s'\nExpiry Date: '%s'",
		m.DocumentNumber, m.BirthDate.Raw, m.ExpiryDate.Raw)
}

// MaskDocumentNumber hides the middle of a document number for persistence
// and logging. Short values are masked entirely.
func MaskDocumentNumber(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
