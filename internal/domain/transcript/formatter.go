package transcript

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/student"
)

// Column widths of the course table, in characters.
const (
	WidthCode    = 12
	WidthTitle   = 40
	WidthCredits = 6
	WidthGrade   = 6
	WidthPoints  = 6

	RowWidth = WidthCode + WidthTitle + WidthCredits + WidthGrade + WidthPoints
)

// Fixed document text.
const (
	TitleTranscript   = "Enrichment Transcript"
	HeadingRecord     = "ACADEMIC RECORD"
	NotAvailable      = "N/A"
	ValidityCertified = "The Certificate is valid when it contains the ink signature of the Registrar and the embossed seal of the College."
	ValidityMarksheet = "The Marksheet is valid only with ink signature and college seal."
	IssuedClean       = "ISSUED WITHOUT CORRECTION OR ERASURE"
	SignatureLine     = "________________________"
	DateLine          = "Date: ____________"
	DateLayout        = "02 Jan 2006"
)

// Institution is the letterhead and signatory printed on every document.
type Institution struct {
	HeaderLines    []string
	SignatoryTitle string
	Location       *time.Location
}

// DefaultInstitution is the college letterhead.
func DefaultInstitution() Institution {
	return Institution{
		HeaderLines: []string{
			"SPICER MEMORIAL COLLEGE",
			"Aundh Post, Aundh",
			"Pune 411 067, INDIA",
			"Phone: 25807000, 7001",
		},
		SignatoryTitle: "Registrar",
	}
}

// Formatter renders records into Documents. It holds only read-only tables
// and is safe for concurrent use.
type Formatter struct {
	scale       *grading.Scale
	catalog     *grading.Catalog
	institution Institution
}

// NewFormatter creates a Formatter.
func NewFormatter(scale *grading.Scale, catalog *grading.Catalog, inst Institution) *Formatter {
	if inst.SignatoryTitle == "" {
		inst.SignatoryTitle = DefaultInstitution().SignatoryTitle
	}
	if len(inst.HeaderLines) == 0 {
		inst.HeaderLines = DefaultInstitution().HeaderLines
	}
	return &Formatter{scale: scale, catalog: catalog, institution: inst}
}

// Render lays out rec for the given semesters. The output depends only on
// rec, semesters and issuedOn.
func (f *Formatter) Render(rec *student.Record, semesters []grading.Semester, issuedOn time.Time) *Document {
	title := documentTitle(semesters)
	doc := &Document{
		Title:    title,
		Subject:  rec.DisplayName(),
		IssuedOn: issuedOn,
	}

	b := &builder{}
	f.header(b, title)
	f.identity(b, rec, issuedOn)

	b.setFont(FontSerif, StyleBold, 10).underlined(HeadingRecord, AlignCenter).space(1)

	for _, sem := range semesters {
		f.semesterTable(b, rec, sem)
	}

	summary := grading.Summarize(f.scale, f.catalog, rec.Grades)
	b.space(1)
	b.setFont(FontMono, StyleBold, 12).add(fmt.Sprintf("CGPA : %.2f", summary.CumulativeGPA), AlignCenter)
	b.space(3)

	f.footer(b, semesters)

	doc.Lines = b.lines
	return doc
}

func documentTitle(semesters []grading.Semester) string {
	if len(semesters) == 1 {
		return fmt.Sprintf("Semester %s Marksheet", semesters[0])
	}
	return TitleTranscript
}

func (f *Formatter) header(b *builder, title string) {
	for i, line := range f.institution.HeaderLines {
		if i == 0 {
			b.setFont(FontSerif, StyleBold, 16)
		} else {
			b.setFont(FontSerif, StyleRegular, 12)
		}
		b.add(line, AlignCenter)
	}
	b.space(1)
	b.setFont(FontSerif, StyleBold, 14).underlined(title, AlignCenter)
	b.space(1)
}

func (f *Formatter) identity(b *builder, rec *student.Record, issuedOn time.Time) {
	b.setFont(FontSerif, StyleRegular, 10)
	b.add("Name: "+orNA(rec.Name), AlignLeft)
	b.add("ID No: "+orNA(rec.RegistrationNumber), AlignLeft)
	b.add("Date of Birth: "+orNA(rec.DateOfBirth), AlignLeft)
	b.add("Completion Date: "+f.formatDate(issuedOn), AlignLeft)
	b.add("Eligibility of Admission: "+orNA(rec.BasisOfAdmission), AlignLeft)
	b.space(1)
}

func (f *Formatter) semesterTable(b *builder, rec *student.Record, sem grading.Semester) {
	courses, records := f.catalog.SemesterRecords(rec.Grades, sem)
	agg := f.scale.AggregateSemester(sem, records)

	b.setFont(FontMono, StyleBold, 10).add(fmt.Sprintf("Semester %s", sem), AlignLeft).space(1)
	b.add(Row("Course No", "Course Title", "Hrs", "Gr", "Pts"), AlignLeft)
	b.add(strings.Repeat("-", RowWidth), AlignLeft)

	b.setFont(FontMono, StyleRegular, 10)
	if len(records) == 0 {
		b.add("No courses recorded for this semester.", AlignLeft)
	}
	for i, r := range records {
		b.add(Row(
			courses[i].Code,
			courses[i].Title,
			fmt.Sprintf("%d", r.CreditHours),
			r.LetterGrade,
			fmt.Sprintf("%.2f", r.QualityPoints),
		), AlignLeft)
	}
	b.space(1)

	b.setFont(FontMono, StyleBold, 10)
	b.add(fmt.Sprintf("Total Credits: %d | Total Grade Points: %.2f | SGPA: %.2f | Result: %s",
		agg.TotalCredits, agg.TotalQualityPoints, agg.SGPA, resultLabel(agg)), AlignLeft)
	b.space(1)
}

func (f *Formatter) footer(b *builder, semesters []grading.Semester) {
	b.setFont(FontSerif, StyleItalic, 10)
	if len(semesters) == 1 {
		b.add(ValidityMarksheet, AlignCenter)
	} else {
		b.add(ValidityCertified, AlignCenter)
		b.add(IssuedClean, AlignCenter)
	}
	b.space(5)
	b.add(SignatureLine, AlignLeft)
	b.setFont(FontSerif, StyleRegular, 14).add(f.institution.SignatoryTitle, AlignLeft)
	b.add(DateLine, AlignRight)
}

func (f *Formatter) formatDate(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	if f.institution.Location != nil {
		t = t.In(f.institution.Location)
	}
	return t.Format(DateLayout)
}

func resultLabel(agg grading.SemesterAggregate) string {
	switch {
	case agg.Incomplete:
		return "INCOMPLETE"
	case agg.Passed:
		return "PASS"
	default:
		return "FAIL"
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

// Row lays out the five table cells at their fixed widths.
func Row(code, title, credits, grade, points string) string {
	return Fit(code, WidthCode) +
		Fit(title, WidthTitle) +
		Fit(credits, WidthCredits) +
		Fit(grade, WidthGrade) +
		Fit(points, WidthPoints)
}

// Fit left-justifies s in a cell of width characters. A value that would
// fill the cell is cut to width-1 characters and followed by one space, so
// neighbouring cells never touch.
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	n := utf8.RuneCountInString(s)
	if n < width {
		return s + strings.Repeat(" ", width-n)
	}
	runes := []rune(s)
	return string(runes[:width-1]) + " "
}
