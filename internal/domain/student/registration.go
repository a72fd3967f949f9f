package student

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
)

// RegistrationPrefix starts every registration number.
const RegistrationPrefix = "SMCEN"

// MaxSequencePerYear is the largest three-digit sequence number.
const MaxSequencePerYear = 999

var registrationPattern = regexp.MustCompile(`^SMCEN(\d{2})(\d{3,})$`)

// FormatRegistrationNumber renders SMCEN<yy><nnn>.
func FormatRegistrationNumber(twoDigitYear, seq int) string {
	return fmt.Sprintf("%s%02d%03d", RegistrationPrefix, twoDigitYear%100, seq)
}

// YearPrefix is the part shared by every number issued in a year.
func YearPrefix(twoDigitYear int) string {
	return fmt.Sprintf("%s%02d", RegistrationPrefix, twoDigitYear%100)
}

// ParseRegistrationNumber splits a number into year and sequence.
func ParseRegistrationNumber(reg string) (year, seq int, err error) {
	m := registrationPattern.FindStringSubmatch(reg)
	if m == nil {
		return 0, 0, shared.WrapError("student", "ParseRegistrationNumber", shared.ErrInvalidFormat,
			"malformed registration number", fmt.Errorf("%q", reg))
	}
	year, _ = strconv.Atoi(m[1])
	seq, _ = strconv.Atoi(m[2])
	return year, seq, nil
}

// NextRegistrationNumber issues the number after last for the given year.
// An empty last means this is the first registration of the year.
func NextRegistrationNumber(twoDigitYear int, last string) (string, error) {
	seq := 0
	if last != "" {
		_, lastSeq, err := ParseRegistrationNumber(last)
		if err != nil {
			return "", err
		}
		seq = lastSeq
	}
	if seq >= MaxSequencePerYear {
		return "", shared.ErrRegistrationExhausted
	}
	return FormatRegistrationNumber(twoDigitYear, seq+1), nil
}

// IsUsableRegistrationNumber rejects blanks and the placeholder strings that
// browser forms submit for unset values.
func IsUsableRegistrationNumber(reg string) bool {
	switch strings.ToLower(strings.TrimSpace(reg)) {
	case "", "undefined", "null":
		return false
	default:
		return true
	}
}

// ValidateSelectedCourses checks that every code is in the catalog and, when
// sem is set, that it belongs to that term. Codes must not repeat.
func ValidateSelectedCourses(catalog *grading.Catalog, codes []string, sem grading.Semester) error {
	v := shared.NewValidationErrors("student", "SelectCourses")
	if len(codes) == 0 {
		v.Add("selectedCourses", "at least one course is required")
		return v.Err()
	}

	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		course, ok := catalog.Lookup(code)
		switch {
		case !ok:
			v.Add("selectedCourses."+code, ReasonUnknownCourse)
		case seen[code]:
			v.Add("selectedCourses."+code, "listed more than once")
		case sem != "" && course.Semester != sem:
			v.Add("selectedCourses."+code, fmt.Sprintf("not offered in semester %s", sem))
		}
		seen[code] = true
	}
	return v.Err()
}
