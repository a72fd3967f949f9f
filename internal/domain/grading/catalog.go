package grading

import (
	"fmt"
	"strings"

	"github.com/smcen/registrar/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEMESTERS
// ══════════════════════════════════════════════════════════════════════════════

// Semester identifies a term of the program.
type Semester string

const (
	SemesterI  Semester = "I"
	SemesterII Semester = "II"
)

// AllSemesters lists the program's terms in order.
var AllSemesters = []Semester{SemesterI, SemesterII}

// IsValid reports whether s is a known term.
func (s Semester) IsValid() bool {
	return s == SemesterI || s == SemesterII
}

// Ordinal returns 1 for I and 2 for II, or 0 for anything else.
func (s Semester) Ordinal() int {
	switch s {
	case SemesterI:
		return 1
	case SemesterII:
		return 2
	default:
		return 0
	}
}

// ParseSemester accepts "I"/"II" as well as "1"/"2", "sem1"/"sem2" in any case.
func ParseSemester(raw string) (Semester, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "I", "1", "SEM1":
		return SemesterI, nil
	case "II", "2", "SEM2":
		return SemesterII, nil
	default:
		return "", shared.ErrInvalidSemester
	}
}

// Selector chooses which semesters a transcript covers.
type Selector string

const (
	SelectI   Selector = "I"
	SelectII  Selector = "II"
	SelectAll Selector = "all"
)

// ParseSelector accepts the semester forms of ParseSemester plus "all". An
// empty string means "all".
func ParseSelector(raw string) (Selector, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, string(SelectAll)) {
		return SelectAll, nil
	}
	sem, err := ParseSemester(trimmed)
	if err != nil {
		return "", err
	}
	return Selector(sem), nil
}

// Semesters expands the selector into the ordered terms it covers.
func (s Selector) Semesters() []Semester {
	switch s {
	case SelectI:
		return []Semester{SemesterI}
	case SelectII:
		return []Semester{SemesterII}
	default:
		return append([]Semester(nil), AllSemesters...)
	}
}

// FileSuffix is appended to archive entry names: "" for all, "_Sem1", "_Sem2".
func (s Selector) FileSuffix() string {
	switch s {
	case SelectI:
		return "_Sem1"
	case SelectII:
		return "_Sem2"
	default:
		return ""
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Course is an immutable catalog entry.
type Course struct {
	Code        string   `json:"code"`
	Title       string   `json:"title"`
	CreditHours int      `json:"creditHours"`
	Semester    Semester `json:"semester"`
	Mentor      string   `json:"mentor"`
}

// Catalog is an ordered, versioned set of courses.
type Catalog struct {
	version string
	courses []Course
	byCode  map[string]int
}

// CatalogVersion identifies the canonical catalog.
const CatalogVersion = "smcen-2025"

var canonicalCourses = []Course{
	{Code: "RELB151", Title: "Christian Beliefs I", CreditHours: 2, Semester: SemesterI, Mentor: "Mrs. Sharon Clinton"},
	{Code: "RELB291", Title: "Apocalyptic Literature I", CreditHours: 2, Semester: SemesterI, Mentor: "Dr. Jesin Israel"},
	{Code: "RELB125", Title: "Life and Teachings of Jesus", CreditHours: 3, Semester: SemesterI, Mentor: "Mr. Gaiphun Gangmei"},
	{Code: "RELB238", Title: "Adventist Heritage", CreditHours: 3, Semester: SemesterI, Mentor: "Dr. Koberson Langhu"},
	{Code: "EDUC131", Title: "Philosophy of Education", CreditHours: 2, Semester: SemesterI, Mentor: "Dr. Carol Linda Kingston"},
	{Code: "WREL234", Title: "Religions of the World", CreditHours: 3, Semester: SemesterII, Mentor: "Mr. Gaiphun Gangmei"},
	{Code: "HLED121", Title: "Personal Health", CreditHours: 2, Semester: SemesterII, Mentor: "Pr. Vanlaltluaga Khuma"},
	{Code: "RELB152", Title: "Christian Beliefs II", CreditHours: 2, Semester: SemesterII, Mentor: "Mrs. Sharon Clinton"},
	{Code: "FNCE252", Title: "Church Stewardship & Finance", CreditHours: 3, Semester: SemesterII, Mentor: "Mr. Abhishek Lakra"},
	{Code: "RELB292", Title: "Apocalyptic Literature II", CreditHours: 2, Semester: SemesterII, Mentor: "Dr. Jesin Israel"},
}

// CanonicalCatalog is the course catalog in force.
var CanonicalCatalog = MustCatalog(CatalogVersion, canonicalCourses)

// NewCatalog validates courses: codes unique and non-empty, credit hours
// positive, semester known.
func NewCatalog(version string, courses []Course) (*Catalog, error) {
	c := &Catalog{
		version: version,
		courses: make([]Course, 0, len(courses)),
		byCode:  make(map[string]int, len(courses)),
	}
	for _, course := range courses {
		if course.Code == "" {
			return nil, fmt.Errorf("catalog %s: course without code", version)
		}
		if _, dup := c.byCode[course.Code]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate course %s", version, course.Code)
		}
		if course.CreditHours <= 0 {
			return nil, fmt.Errorf("catalog %s: course %s has %d credit hours", version, course.Code, course.CreditHours)
		}
		if !course.Semester.IsValid() {
			return nil, fmt.Errorf("catalog %s: course %s has unknown semester %q", version, course.Code, course.Semester)
		}
		c.byCode[course.Code] = len(c.courses)
		c.courses = append(c.courses, course)
	}
	return c, nil
}

// MustCatalog is NewCatalog that panics on invalid input.
func MustCatalog(version string, courses []Course) *Catalog {
	c, err := NewCatalog(version, courses)
	if err != nil {
		panic(err)
	}
	return c
}

// Version returns the catalog version.
func (c *Catalog) Version() string { return c.version }

// Lookup finds a course by code.
func (c *Catalog) Lookup(code string) (Course, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Course{}, false
	}
	return c.courses[i], true
}

// Courses returns every course in catalog order.
func (c *Catalog) Courses() []Course {
	out := make([]Course, len(c.courses))
	copy(out, c.courses)
	return out
}

// BySemester returns the courses of one term in catalog order.
func (c *Catalog) BySemester(sem Semester) []Course {
	var out []Course
	for _, course := range c.courses {
		if course.Semester == sem {
			out = append(out, course)
		}
	}
	return out
}

// Codes returns every course code in catalog order.
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.courses))
	for i, course := range c.courses {
		out[i] = course.Code
	}
	return out
}
