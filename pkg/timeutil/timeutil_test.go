package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDocumentDate(t *testing.T) {
	// 20:00 UTC is already the next day in IST.
	ts := time.Date(2025, 3, 6, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "07 Mar 2025", FormatDocumentDate(ts))
	assert.Equal(t, "", FormatDocumentDate(time.Time{}))
}

func TestISODateRoundTrip(t *testing.T) {
	d, err := ParseISODate("2004-11-23")
	require.NoError(t, err)
	assert.Equal(t, "2004-11-23", FormatISODate(d))

	_, err = ParseISODate("23/11/2004")
	assert.Error(t, err)
}

func TestTwoDigitYear(t *testing.T) {
	assert.Equal(t, 25, TwoDigitYear(Date(2025, 1, 1)))
	// New Year's Eve 19:00 UTC is already January 1st in IST.
	assert.Equal(t, 26, TwoDigitYear(time.Date(2025, 12, 31, 19, 0, 0, 0, time.UTC)))
}

func TestAcademicYear(t *testing.T) {
	assert.Equal(t, "2024-25", AcademicYear(Date(2025, 3, 10)))
	assert.Equal(t, "2025-26", AcademicYear(Date(2025, 6, 1)))
	assert.Equal(t, "1999-00", AcademicYear(Date(1999, 7, 1)))
}

func TestFixedClock(t *testing.T) {
	at := Date(2025, 4, 1)
	clock := Fixed(at)
	assert.True(t, clock().Equal(at))
}
