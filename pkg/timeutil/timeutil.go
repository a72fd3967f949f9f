// Package timeutil holds the college's timezone and the date layouts used on
// printed documents. The campus is in Pune, so every date shown to a student
// is rendered in India Standard Time (UTC+5:30, no DST).
package timeutil

import (
	"fmt"
	"time"
)

// KolkataTZ is India Standard Time.
var KolkataTZ = time.FixedZone("Asia/Kolkata", 5*60*60+30*60)

// Layouts used across the registrar.
const (
	// DocumentDate is the issue-date layout on transcripts, e.g. "07 Mar 2025".
	DocumentDate = "02 Jan 2006"
	// ISODate is used for CSV exports and JSON payloads.
	ISODate = "2006-01-02"
)

// Clock returns the current time. Services take a Clock so tests can pin it.
type Clock func() time.Time

// Now returns the current time in IST.
func Now() time.Time {
	return time.Now().In(KolkataTZ)
}

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

// ToKolkata converts t to IST.
func ToKolkata(t time.Time) time.Time {
	return t.In(KolkataTZ)
}

// Date builds a midnight IST time.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, KolkataTZ)
}

// StartOfDay truncates t to midnight IST.
func StartOfDay(t time.Time) time.Time {
	k := ToKolkata(t)
	return time.Date(k.Year(), k.Month(), k.Day(), 0, 0, 0, 0, KolkataTZ)
}

// FormatDocumentDate renders t for a printed document. The zero time
// renders as an empty string.
func FormatDocumentDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return ToKolkata(t).Format(DocumentDate)
}

// FormatISODate renders t as YYYY-MM-DD in IST, or "" for the zero time.
func FormatISODate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return ToKolkata(t).Format(ISODate)
}

// ParseISODate parses a YYYY-MM-DD date as midnight IST.
func ParseISODate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(ISODate, value, KolkataTZ)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}

// TwoDigitYear returns the last two digits of t's IST year, as used in
// registration numbers.
func TwoDigitYear(t time.Time) int {
	return ToKolkata(t).Year() % 100
}

// AcademicYear returns the label for the academic year containing t. The
// year turns over in June, e.g. 2025-03-10 belongs to "2024-25".
func AcademicYear(t time.Time) string {
	k := ToKolkata(t)
	start := k.Year()
	if k.Month() < time.June {
		start--
	}
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}
