package mrz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// specimen zones from ICAO Doc 9303 sample documents
var (
	td3Lines = []string{
		"P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<",
		"L898902C36UTO7408122F1204159ZE184226B<<<<<10",
	}
	td2Lines = []string{
		"I<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<",
		"D231458907UTO7408122F1204159<<<<<<<6",
	}
	td1Lines = []string{
		"I<UTOD231458907<<<<<<<<<<<<<<<",
		"7408122F1204159UTO<<<<<<<<<<<6",
		"ERIKSSON<<ANNA<MARIA<<<<<<<<<<",
	}
	testNow = time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
)

func TestCheckDigit(t *testing.T) {
	require.Equal(t, 3, CheckDigit("520727"))
	require.Equal(t, 6, CheckDigit("L898902C3"))
	require.Equal(t, 2, CheckDigit("740812"))
	require.Equal(t, 9, CheckDigit("120415"))
	require.Equal(t, 1, CheckDigit("ZE184226B<<<<<"))
	require.Equal(t, -1, CheckDigit("abc"))
}

func TestParseTD3(t *testing.T) {
	m, err := parseAt(td3Lines, testNow)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, TD3, m.Format)
	assert.Equal(t, "P", m.DocumentCode)
	assert.Equal(t, "UTO", m.IssuingState)
	assert.Equal(t, "UTO", m.Nationality)
	assert.Equal(t, "ERIKSSON", m.PrimaryName)
	assert.Equal(t, "ANNA MARIA", m.SecondaryName)
	assert.Equal(t, "L898902C3", m.DocumentNumber)
	assert.Equal(t, SexFemale, m.Sex)
	assert.Equal(t, "740812", m.BirthDate.Raw)
	assert.Equal(t, 1974, m.BirthDate.Resolved.Year())
	assert.Equal(t, "120415", m.ExpiryDate.Raw)
	assert.Equal(t, 2012, m.ExpiryDate.Resolved.Year())
	assert.Equal(t, "ZE184226B", m.OptionalData)
	assert.True(t, m.Valid())
}

func TestParseTD3FillerOptionalCheckDigit(t *testing.T) {
	// empty optional data may carry '<' in the check digit position,
	// which counts as 0
	lines := []string{
		td3Lines[0],
		"L898902C36UTO7408122F1204159<<<<<<<<<<<<<<<8",
	}
	m, err := parseAt(lines, testNow)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, "", m.OptionalData)
	assert.True(t, m.Checks.Optional)
	assert.True(t, m.Checks.Composite)
	assert.True(t, m.Valid())
}

func TestParseTD2(t *testing.T) {
	m, err := parseAt(td2Lines, testNow)
	require.NoError(t, err)

	assert.Equal(t, TD2, m.Format)
	assert.Equal(t, "D23145890", m.DocumentNumber)
	assert.Equal(t, "ERIKSSON", m.PrimaryName)
	assert.Equal(t, "ANNA MARIA", m.SecondaryName)
	assert.True(t, m.Valid())
}

func TestParseTD1(t *testing.T) {
	m, err := parseAt(td1Lines, testNow)
	require.NoError(t, err)

	assert.Equal(t, TD1, m.Format)
	assert.Equal(t, "D23145890", m.DocumentNumber)
	assert.Equal(t, "ERIKSSON", m.PrimaryName)
	assert.Equal(t, "ANNA MARIA", m.SecondaryName)
	assert.Equal(t, SexFemale, m.Sex)
	assert.True(t, m.Valid())
}

func TestParseRejectsUnknownShape(t *testing.T) {
	_, err := parseAt([]string{"TOO<SHORT"}, testNow)
	require.ErrorIs(t, err, ErrFormat)

	// lowercase input is outside the MRZ alphabet
	bad := []string{
		"p<utoeriksson<<anna<maria<<<<<<<<<<<<<<<<<<<",
		td3Lines[1],
	}
	_, err = parseAt(bad, testNow)
	require.ErrorIs(t, err, ErrCharset)
}

func TestParseReturnsZoneOnChecksumFailure(t *testing.T) {
	// corrupt the document number check digit (6 -> 7)
	lines := []string{
		td3Lines[0],
		"L898902C37UTO7408122F1204159ZE184226B<<<<<10",
	}
	m, err := parseAt(lines, testNow)
	require.Error(t, err)
	require.NotNil(t, m, "zone should still be returned for inspection")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "document_number")
	// the composite digit spans the corrupted position too
	assert.Contains(t, verr.Fields, "composite")
	assert.False(t, m.Valid())
}

func TestAccessKeyInput(t *testing.T) {
	// worked example input from the BAC appendix: nine-character document
	// number keeps its filler
	lines := []string{
		"P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<",
		"L898902C<3UTO6908061F9406236<<<<<<<<<<<<<<02",
	}
	m, err := parseAt(lines, testNow)
	require.NoError(t, err)
	require.Equal(t, "L898902C<369080619406236", m.AccessKeyInput())
}

func TestBirthDateCenturyPivot(t *testing.T) {
	d, err := parseDate("690806", birthDate, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1969, d.Resolved.Year())

	d, err = parseDate("150101", birthDate, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2015, d.Resolved.Year())

	// expiry dates always land in the 2000s
	d, err = parseDate("940623", expiryDate, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2094, d.Resolved.Year())
}

func TestParseDateRejectsBadValues(t *testing.T) {
	_, err := parseDate("991301", birthDate, testNow)
	require.Error(t, err)
	_, err = parseDate("990230", birthDate, testNow)
	require.Error(t, err)
	_, err = parseDate("99023", birthDate, testNow)
	require.Error(t, err)
}

func TestMaskDocumentNumber(t *testing.T) {
	assert.Equal(t, "L8*****C3", MaskDocumentNumber("L898902C3"))
	assert.Equal(t, "***", MaskDocumentNumber("ABC"))
}

func TestStringRendersLogShape(t *testing.T) {
	m, err := parseAt(td3Lines, testNow)
	require.NoError(t, err)
	assert.Equal(t, "Document Number: 'L898902C3'\nBirth Date: '740812'\nExpiry Date: '120415'", m.String())
}
