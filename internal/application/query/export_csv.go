package query

import (
	"context"
	"fmt"
	"io"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/student"
	"github.com/smcen/registrar/internal/infrastructure/export"
)

// ══════════════════════════════════════════════════════════════════════════════
// CSV EXPORT QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ExportStudentsCSVHandler writes every record as a CSV sheet.
type ExportStudentsCSVHandler struct {
	repo student.Repository
}

// NewExportStudentsCSVHandler creates a new ExportStudentsCSVHandler.
func NewExportStudentsCSVHandler(repo student.Repository) *ExportStudentsCSVHandler {
	return &ExportStudentsCSVHandler{repo: repo}
}

// Handle writes the sheet to w.
func (h *ExportStudentsCSVHandler) Handle(ctx context.Context, w io.Writer) (int, error) {
	recs, err := h.repo.GetAll(ctx, student.ListAll)
	if err != nil {
		return 0, fmt.Errorf("export_students_csv: %w", err)
	}
	if err := export.WriteStudentsCSV(w, recs); err != nil {
		return 0, fmt.Errorf("export_students_csv: %w", err)
	}
	return len(recs), nil
}

// ExportEnrollmentsCSVHandler writes enrollments as a CSV sheet.
type ExportEnrollmentsCSVHandler struct {
	repo student.EnrollmentRepository
}

// NewExportEnrollmentsCSVHandler creates a new ExportEnrollmentsCSVHandler.
func NewExportEnrollmentsCSVHandler(repo student.EnrollmentRepository) *ExportEnrollmentsCSVHandler {
	return &ExportEnrollmentsCSVHandler{repo: repo}
}

// Handle writes the enrollments of semester, or of every semester when it
// is empty or "all".
func (h *ExportEnrollmentsCSVHandler) Handle(ctx context.Context, semester string, w io.Writer) (int, error) {
	sel, err := grading.ParseSelector(semester)
	if err != nil {
		return 0, err
	}
	var sem grading.Semester
	if sel != grading.SelectAll {
		sem = sel.Semesters()[0]
	}

	rows, err := h.repo.List(ctx, sem)
	if err != nil {
		return 0, fmt.Errorf("export_enrollments_csv: %w", err)
	}
	if err := export.WriteEnrollmentsCSV(w, rows); err != nil {
		return 0, fmt.Errorf("export_enrollments_csv: %w", err)
	}
	return len(rows), nil
}
