package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/student"
	"github.com/smcen/registrar/pkg/logger"
	"github.com/smcen/registrar/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL SEMESTER COMMAND
// Records a student's course selection for one semester.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollSemesterCommand contains the enrollment form.
type EnrollSemesterCommand struct {
	RegistrationNumber string
	Name               string
	Semester           string
	SelectedCourses    []string
	TotalFee           float64
	PaymentScreenshot  string
}

// EnrollSemesterResult contains the stored enrollment.
type EnrollSemesterResult struct {
	Enrollment *student.Enrollment
}

// EnrollSemesterHandler handles EnrollSemesterCommand.
type EnrollSemesterHandler struct {
	repo    student.EnrollmentRepository
	catalog *grading.Catalog
	clock   timeutil.Clock
	log     *logger.Logger
}

// NewEnrollSemesterHandler creates a new EnrollSemesterHandler.
func NewEnrollSemesterHandler(
	repo student.EnrollmentRepository,
	catalog *grading.Catalog,
	clock timeutil.Clock,
	log *logger.Logger,
) *EnrollSemesterHandler {
	if clock == nil {
		clock = timeutil.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &EnrollSemesterHandler{
		repo:    repo,
		catalog: catalog,
		clock:   clock,
		log:     log.With(logger.Component("enroll_semester")),
	}
}

// Handle executes the command.
func (h *EnrollSemesterHandler) Handle(ctx context.Context, cmd EnrollSemesterCommand) (*EnrollSemesterResult, error) {
	reg := strings.TrimSpace(cmd.RegistrationNumber)
	if !student.IsUsableRegistrationNumber(reg) {
		return nil, shared.ErrInvalidRegistrationNum
	}

	v := shared.NewValidationErrors("enrollment", "Enroll")
	if strings.TrimSpace(cmd.Name) == "" {
		v.Add("name", "is required")
	}
	if cmd.TotalFee < 0 {
		v.Add("totalFee", "cannot be negative")
	}
	sem, err := grading.ParseSemester(cmd.Semester)
	if err != nil {
		v.Add("semester", "must be I or II")
	} else if err := student.ValidateSelectedCourses(h.catalog, cmd.SelectedCourses, sem); err != nil {
		var fields *shared.ValidationErrors
		if errors.As(err, &fields) {
			for f, msg := range fields.Fields {
				v.Add(f, msg)
			}
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	e := &student.Enrollment{
		ID:                 uuid.NewString(),
		RegistrationNumber: reg,
		Name:               strings.TrimSpace(cmd.Name),
		Semester:           sem,
		SelectedCourses:    append([]string(nil), cmd.SelectedCourses...),
		TotalFee:           cmd.TotalFee,
		PaymentScreenshot:  cmd.PaymentScreenshot,
		CreatedAt:          h.clock(),
	}
	if err := h.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("enroll_semester: %w", err)
	}

	h.log.Info("semester enrollment recorded",
		logger.RegistrationNumber(reg),
		logger.Semester(string(sem)),
		logger.Count("credit_hours", e.CreditHours(h.catalog)),
	)
	return &EnrollSemesterResult{Enrollment: e}, nil
}
