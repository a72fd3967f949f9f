package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/student"
	"github.com/smcen/registrar/internal/domain/transcript"
)

var fixedTime = time.Date(2025, 4, 10, 9, 30, 0, 0, time.UTC)

// ══════════════════════════════════════════════════════════════════════════════
// FILE NAMES
// ══════════════════════════════════════════════════════════════════════════════

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SMCEN25007", "SMCEN25007"},
		{"Ruth Daniel", "Ruth_Daniel"},
		{"José Ñúñez", "Jose_Nunez"},
		{"../../etc/passwd", "etc_passwd"},
		{"a / b \\ c", "a_b_c"},
		{"  spaced  out  ", "spaced_out"},
		{"", FallbackName},
		{"???", FallbackName},
		{"日本語", FallbackName},
		{"Mary-Jane O'Neil", "Mary-Jane_O_Neil"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

func TestSanitizeName_Length(t *testing.T) {
	long := strings.Repeat("ab", 100)
	got := SanitizeName(long)
	assert.Len(t, []rune(got), MaxNameRunes)
}

func TestEntryName(t *testing.T) {
	assert.Equal(t, "SMCEN25007_Sem1.pdf", EntryName("SMCEN25007", "Ruth", "_Sem1", ".pdf"))
	assert.Equal(t, "Ruth_Daniel.pdf", EntryName("", "Ruth Daniel", "", ".pdf"))
	assert.Equal(t, "student_Sem2.pdf", EntryName("  ", "", "_Sem2", ".pdf"))
}

func TestNameSet_Dedupes(t *testing.T) {
	s := newNameSet()
	assert.Equal(t, "a.pdf", s.claim("a.pdf"))
	assert.Equal(t, "a-2.pdf", s.claim("a.pdf"))
	assert.Equal(t, "a-3.pdf", s.claim("a.pdf"))
	assert.Equal(t, "b.pdf", s.claim("b.pdf"))
}

// ══════════════════════════════════════════════════════════════════════════════
// ARCHIVE
// ══════════════════════════════════════════════════════════════════════════════

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = string(body)
	}
	return out
}

func TestFold(t *testing.T) {
	entries := make(chan Entry, 3)
	entries <- Entry{Name: "SMCEN25001.pdf", Data: []byte("one")}
	entries <- Entry{Name: "SMCEN25002.pdf", Data: []byte("two")}
	entries <- Entry{Name: "SMCEN25001.pdf", Data: []byte("dup")}
	close(entries)

	var buf bytes.Buffer
	a := NewArchiveWriter(&buf, fixedTime)
	n, err := Fold(context.Background(), a, entries)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.Equal(t, 3, n)
	assert.Equal(t, 3, a.Count())
	assert.Equal(t, map[string]string{
		"SMCEN25001.pdf":   "one",
		"SMCEN25002.pdf":   "two",
		"SMCEN25001-2.pdf": "dup",
	}, readArchive(t, buf.Bytes()))
}

func TestFold_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	a := NewArchiveWriter(&buf, fixedTime)
	n, err := Fold(ctx, a, make(chan Entry))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func TestArchive_FailureManifest(t *testing.T) {
	var buf bytes.Buffer
	a := NewArchiveWriter(&buf, fixedTime)
	_, err := a.Add("SMCEN25001.pdf", []byte("ok"))
	require.NoError(t, err)
	require.NoError(t, a.AddFailures(nil))
	require.NoError(t, a.AddFailures([]Failure{{Name: "SMCEN25002", Err: errors.New("boom")}}))
	require.NoError(t, a.Close())

	files := readArchive(t, buf.Bytes())
	assert.Len(t, files, 2)
	assert.Equal(t, "SMCEN25002: boom\n", files[FailureManifestName])
}

func TestArchive_Deterministic(t *testing.T) {
	build := func() []byte {
		var buf bytes.Buffer
		a := NewArchiveWriter(&buf, fixedTime)
		_, err := a.Add("x.pdf", []byte("payload"))
		require.NoError(t, err)
		require.NoError(t, a.Close())
		return buf.Bytes()
	}
	assert.Equal(t, build(), build())
}

// ══════════════════════════════════════════════════════════════════════════════
// PDF
// ══════════════════════════════════════════════════════════════════════════════

func sampleRecord() *student.Record {
	rec := student.NewRecord(grading.CanonicalScale, grading.CanonicalCatalog, student.NewRecordParams{
		ID:                 "stu-1",
		RegistrationNumber: "SMCEN25001",
		Identity: student.Identity{
			Name:             "Zoë Müller",
			Email:            "zoe@example.org",
			RegistrationType: student.RegistrationNew,
			DateOfBirth:      "2001-05-02",
			Gender:           student.GenderFemale,
			IsAdventist:      student.Yes,
		},
		SelectedCourses: []string{"RELB151", "RELB291"},
		TotalFee:        1500.5,
		Now:             fixedTime,
	})
	rec.Grades["RELB151"] = grading.CanonicalScale.Grade(90, 2)
	rec.CumulativeGPA = 0.33
	return rec
}

func TestPDFEncoder_Encode(t *testing.T) {
	f := transcript.NewFormatter(grading.CanonicalScale, grading.CanonicalCatalog, transcript.DefaultInstitution())
	doc := f.Render(sampleRecord(), grading.SelectAll.Semesters(), fixedTime)

	enc := NewPDFEncoder(DefaultPDFConfig())
	first, err := enc.Encode(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(first, []byte("%PDF-")))

	second, err := enc.Encode(doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, "application/pdf", enc.ContentType())
	assert.Equal(t, ".pdf", enc.Extension())
}

func TestPDFEncoder_BadFont(t *testing.T) {
	doc := &transcript.Document{
		Title:    "broken",
		Subject:  "SMCEN25001",
		IssuedOn: fixedTime,
		Lines:    []transcript.Line{{Text: "x", Font: "NoSuchFont", Size: 10, Align: transcript.AlignLeft}},
	}
	_, err := NewPDFEncoder(DefaultPDFConfig()).Encode(doc)
	require.Error(t, err)
	assert.True(t, shared.IsRendering(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// CSV
// ══════════════════════════════════════════════════════════════════════════════

func TestWriteStudentsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStudentsCSV(&buf, []*student.Record{sampleRecord()}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, StudentColumns, rows[0])

	row := rows[1]
	assert.Len(t, row, len(StudentColumns))
	assert.Equal(t, "SMCEN25001", row[0])
	assert.Equal(t, "NEW", row[1])
	assert.Equal(t, "Zoë Müller", row[2])
	assert.Equal(t, "RELB151, RELB291", row[17])
	assert.Equal(t, "1500.5", row[18])
	assert.Equal(t, "0.33", row[20])
}

func TestWriteEnrollmentsCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteEnrollmentsCSV(&buf, []*student.Enrollment{{
		ID:                 "enr-1",
		RegistrationNumber: "SMCEN25001",
		Name:               "Zoë, Müller",
		Semester:           grading.SemesterII,
		SelectedCourses:    []string{"WREL234"},
		TotalFee:           900,
	}})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, EnrollmentColumns, rows[0])
	assert.Equal(t, []string{"SMCEN25001", "Zoë, Müller", "II", "WREL234", "900", ""}, rows[1])
}
