package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smcen/registrar/internal/application/query"
	"github.com/smcen/registrar/internal/domain/grading"
)

func TestRun_NoArgs(t *testing.T) {
	err := run(context.Background(), nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, errUsage)
}

func TestPrintReport(t *testing.T) {
	rows := []query.GradeReportRow{
		{
			RegistrationNumber: "SMCEN25001",
			Name:               "Ruth Daniel",
			Semesters: []grading.SemesterAggregate{
				{Semester: grading.SemesterI, TotalCredits: 10, SGPA: 3.4, Passed: true},
				{Semester: grading.SemesterII, Incomplete: true},
			},
			CumulativeGPA: 3.4,
		},
		{
			RegistrationNumber: "SMCEN25002",
			Name:               "Abel Joseph",
			Semesters: []grading.SemesterAggregate{
				{Semester: grading.SemesterI, TotalCredits: 10, SGPA: 0.67},
			},
			CumulativeGPA: 0.67,
		},
	}

	var buf bytes.Buffer
	printReport(&buf, grading.SelectAll, rows)
	out := buf.String()

	assert.Contains(t, out, "SMCEN25001")
	assert.Contains(t, out, "3.40")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "INCOMPLETE")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "0.67")
}

func TestPrintReport_SingleSemester(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, grading.SelectI, nil)

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "SEM I SGPA")
	assert.NotContains(t, out, "SEM II")
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
}
