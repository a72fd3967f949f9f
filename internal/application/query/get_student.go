// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT QUERY
// ══════════════════════════════════════════════════════════════════════════════

// StudentDTO is a record together with its computed aggregates. The
// password hash is never serialised.
type StudentDTO struct {
	*student.Record
	Summary grading.Summary `json:"summary"`
}

// GetStudentHandler loads one record.
type GetStudentHandler struct {
	repo    student.Repository
	scale   *grading.Scale
	catalog *grading.Catalog
}

// NewGetStudentHandler creates a new GetStudentHandler.
func NewGetStudentHandler(repo student.Repository, scale *grading.Scale, catalog *grading.Catalog) *GetStudentHandler {
	return &GetStudentHandler{repo: repo, scale: scale, catalog: catalog}
}

// Handle returns the record with the given id.
func (h *GetStudentHandler) Handle(ctx context.Context, id string) (*StudentDTO, error) {
	if id == "" {
		return nil, shared.NewDomainError("student", "Get", shared.ErrInvalidID, "student id is required")
	}
	rec, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get_student: %w", err)
	}
	return &StudentDTO{Record: rec, Summary: rec.Summary(h.scale, h.catalog)}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST STUDENTS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// MaxPageSize caps a single page of ListStudents.
const MaxPageSize = 500

// ListStudentsQuery pages through records.
type ListStudentsQuery struct {
	Offset int
	Limit  int
}

// Normalize clamps the paging parameters.
func (q *ListStudentsQuery) Normalize() {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 || q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
}

// ListStudentsResult is one page of records.
type ListStudentsResult struct {
	Students []*student.Record `json:"students"`
	Total    int               `json:"total"`
	Offset   int               `json:"offset"`
	Limit    int               `json:"limit"`
}

// ListStudentsHandler lists records.
type ListStudentsHandler struct {
	repo student.Repository
}

// NewListStudentsHandler creates a new ListStudentsHandler.
func NewListStudentsHandler(repo student.Repository) *ListStudentsHandler {
	return &ListStudentsHandler{repo: repo}
}

// Handle returns one page ordered by registration number.
func (h *ListStudentsHandler) Handle(ctx context.Context, q ListStudentsQuery) (*ListStudentsResult, error) {
	q.Normalize()

	total, err := h.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_students: count: %w", err)
	}
	recs, err := h.repo.GetAll(ctx, student.ListOptions{Offset: q.Offset, Limit: q.Limit})
	if err != nil {
		return nil, fmt.Errorf("list_students: %w", err)
	}
	return &ListStudentsResult{Students: recs, Total: total, Offset: q.Offset, Limit: q.Limit}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADE REPORT QUERY
// One row per student with term and cumulative results, for operators.
// ══════════════════════════════════════════════════════════════════════════════

// GradeReportRow is one student's line in the report.
type GradeReportRow struct {
	StudentID          string
	RegistrationNumber string
	Name               string
	Semesters          []grading.SemesterAggregate
	CumulativeGPA      float64
}

// GradeReportHandler builds the report.
type GradeReportHandler struct {
	repo    student.Repository
	scale   *grading.Scale
	catalog *grading.Catalog
}

// NewGradeReportHandler creates a new GradeReportHandler.
func NewGradeReportHandler(repo student.Repository, scale *grading.Scale, catalog *grading.Catalog) *GradeReportHandler {
	return &GradeReportHandler{repo: repo, scale: scale, catalog: catalog}
}

// Handle aggregates every record for the selected semesters.
func (h *GradeReportHandler) Handle(ctx context.Context, semester string) ([]GradeReportRow, error) {
	sel, err := grading.ParseSelector(semester)
	if err != nil {
		return nil, err
	}
	recs, err := h.repo.GetAll(ctx, student.ListAll)
	if err != nil {
		return nil, fmt.Errorf("grade_report: %w", err)
	}

	rows := make([]GradeReportRow, 0, len(recs))
	for _, rec := range recs {
		summary := rec.Summary(h.scale, h.catalog)
		row := GradeReportRow{
			StudentID:          rec.ID,
			RegistrationNumber: rec.RegistrationNumber,
			Name:               rec.Name,
			CumulativeGPA:      summary.CumulativeGPA,
		}
		for _, sem := range sel.Semesters() {
			if agg, ok := summary.Semester(sem); ok {
				row.Semesters = append(row.Semesters, agg)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
