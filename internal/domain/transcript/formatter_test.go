package transcript

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/student"
)

var issued = time.Date(2025, 4, 10, 9, 30, 0, 0, time.UTC)

func scenarioRecord() *student.Record {
	rec := student.NewRecord(grading.CanonicalScale, grading.CanonicalCatalog, student.NewRecordParams{
		ID:                 "stu-7",
		RegistrationNumber: "SMCEN25007",
		Identity: student.Identity{
			Name:             "Ruth Daniel",
			DateOfBirth:      "2002-01-19",
			BasisOfAdmission: "B.A. Theology",
		},
	})
	// Semester I only: RELB151 and RELB291.
	rec.Grades = map[string]grading.CourseRecord{
		"RELB151": grading.CanonicalScale.Grade(90, 2),
		"RELB291": grading.CanonicalScale.Grade(85, 2),
	}
	return rec
}

func newFormatter() *Formatter {
	return NewFormatter(grading.CanonicalScale, grading.CanonicalCatalog, DefaultInstitution())
}

func TestFit(t *testing.T) {
	assert.Equal(t, "RELB151     ", Fit("RELB151", 12))
	assert.Equal(t, "ABCDEFGHIJK ", Fit("ABCDEFGHIJKL", 12))
	assert.Equal(t, "ABCDEFGHIJK ", Fit("ABCDEFGHIJKLMNOP", 12))
	assert.Equal(t, "Pts   ", Fit("Pts", 6))
	assert.Equal(t, "      ", Fit("", 6))
	assert.Equal(t, "Düsse ", Fit("Düsseldorf", 6))
	assert.Equal(t, "", Fit("x", 0))
}

func TestRow_FixedColumnOffsets(t *testing.T) {
	rows := []string{
		Row("Course No", "Course Title", "Hrs", "Gr", "Pts"),
		Row("RELB151", "Christian Beliefs I", "2", "A", "8.00"),
		Row("FNCE252", "A title that is much longer than forty characters wide", "3", "B+", "9.99"),
		Row("X", "Y", "12345678", "A-", "100.00"),
	}
	for _, r := range rows {
		assert.Equal(t, RowWidth, utf8.RuneCountInString(r), r)
		// Column starts never shift.
		assert.NotEqual(t, byte(' '), r[0])
		assert.Equal(t, byte(' '), r[WidthCode-1])
	}
	assert.Equal(t, 70, RowWidth)
}

func TestRender_Scenario(t *testing.T) {
	doc := newFormatter().Render(scenarioRecord(), []grading.Semester{grading.SemesterI}, issued)
	text := doc.Text()

	assert.Equal(t, "Semester I Marksheet", doc.Title)
	assert.Equal(t, "SMCEN25007", doc.Subject)

	assert.Contains(t, text, "SPICER MEMORIAL COLLEGE\n")
	assert.Contains(t, text, "Name: Ruth Daniel\n")
	assert.Contains(t, text, "ID No: SMCEN25007\n")
	assert.Contains(t, text, "Date of Birth: 2002-01-19\n")
	assert.Contains(t, text, "Completion Date: 10 Apr 2025\n")
	assert.Contains(t, text, "Eligibility of Admission: B.A. Theology\n")

	assert.Contains(t, text, Row("RELB151", "Christian Beliefs I", "2", "A", "8.00"))
	assert.Contains(t, text, Row("RELB291", "Apocalyptic Literature I", "2", "A", "8.00"))
	assert.Contains(t, text, "Total Credits: 4 | Total Grade Points: 16.00 | SGPA: 4.00 | Result: PASS\n")
	assert.Contains(t, text, "CGPA : 4.00\n")
	assert.Contains(t, text, ValidityMarksheet)
	assert.NotContains(t, text, "Semester II")
}

func TestRender_AllSemesters(t *testing.T) {
	rec := scenarioRecord()
	rec.RegistrationNumber = ""
	rec.DateOfBirth = ""

	doc := newFormatter().Render(rec, grading.SelectAll.Semesters(), issued)
	text := doc.Text()

	assert.Equal(t, TitleTranscript, doc.Title)
	assert.Equal(t, "Ruth Daniel", doc.Subject)
	assert.Contains(t, text, "ID No: N/A\n")
	assert.Contains(t, text, "Date of Birth: N/A\n")

	// Semester II has no records: zero credits, SGPA 0 and flagged.
	semII := text[strings.Index(text, "Semester II"):]
	assert.Contains(t, semII, "No courses recorded for this semester.")
	assert.Contains(t, semII, "Total Credits: 0 | Total Grade Points: 0.00 | SGPA: 0.00 | Result: INCOMPLETE\n")
	assert.NotContains(t, text, "NaN")

	assert.Contains(t, text, ValidityCertified)
	assert.Contains(t, text, IssuedClean)
	assert.True(t, strings.HasSuffix(text, "Registrar\n"+DateLine+"\n"))
}

func TestRender_FailingCourse(t *testing.T) {
	rec := scenarioRecord()
	rec.Grades["RELB125"] = grading.CanonicalScale.Grade(20, 3)

	text := newFormatter().Render(rec, []grading.Semester{grading.SemesterI}, issued).Text()
	assert.Contains(t, text, "| Result: FAIL\n")
	assert.Contains(t, text, Row("RELB125", "Life and Teachings of Jesus", "3", "F", "0.00"))
}

func TestRender_Deterministic(t *testing.T) {
	f := newFormatter()
	rec := scenarioRecord()
	rec.Grades["WREL234"] = grading.CanonicalScale.Grade(71, 3)
	rec.Grades["HLED121"] = grading.CanonicalScale.Grade(48, 2)

	a := f.Render(rec, grading.SelectAll.Semesters(), issued)
	b := f.Render(rec.Clone(), grading.SelectAll.Semesters(), issued)
	assert.Equal(t, a, b)
	assert.Equal(t, a.Text(), b.Text())

	// Only the completion date differs across days.
	c := f.Render(rec, grading.SelectAll.Semesters(), issued.AddDate(0, 0, 1))
	diff := 0
	require.Len(t, c.Lines, len(a.Lines))
	for i := range a.Lines {
		if a.Lines[i] != c.Lines[i] {
			diff++
			assert.True(t, strings.HasPrefix(c.Lines[i].Text, "Completion Date: "))
		}
	}
	assert.Equal(t, 1, diff)
}

func TestRender_LineDirectives(t *testing.T) {
	doc := newFormatter().Render(scenarioRecord(), []grading.Semester{grading.SemesterI}, issued)

	first := doc.Lines[0]
	assert.Equal(t, FontSerif, first.Font)
	assert.Equal(t, StyleBold, first.Style)
	assert.Equal(t, 16.0, first.Size)
	assert.Equal(t, AlignCenter, first.Align)

	var sawTitle, sawMonoRow bool
	for _, l := range doc.Lines {
		if l.Text == "Semester I Marksheet" {
			sawTitle = l.Underline
		}
		if strings.HasPrefix(l.Text, "RELB151") {
			sawMonoRow = l.Font == FontMono
		}
	}
	assert.True(t, sawTitle)
	assert.True(t, sawMonoRow)
}

func TestRender_InstitutionTimezone(t *testing.T) {
	inst := DefaultInstitution()
	inst.Location = time.FixedZone("IST", 19800)
	f := NewFormatter(grading.CanonicalScale, grading.CanonicalCatalog, inst)

	late := time.Date(2025, 4, 10, 20, 0, 0, 0, time.UTC)
	text := f.Render(scenarioRecord(), []grading.Semester{grading.SemesterI}, late).Text()
	assert.Contains(t, text, "Completion Date: 11 Apr 2025\n")
}
