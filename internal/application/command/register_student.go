// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/student"
	"github.com/smcen/registrar/pkg/logger"
	"github.com/smcen/registrar/pkg/retry"
	"github.com/smcen/registrar/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER STUDENT COMMAND
// Creates an academic record with a fresh SMCEN<yy><nnn> registration number
// and one default course record per catalog course.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterStudentCommand contains the admission form.
type RegisterStudentCommand struct {
	Identity student.Identity

	// Password is hashed with bcrypt and never stored in clear.
	Password string

	SelectedCourses   []string
	TotalFee          float64
	PaymentScreenshot string
	Photo             string
}

// Validate checks the fields that do not need storage.
func (c RegisterStudentCommand) Validate(catalog *grading.Catalog) error {
	v := shared.NewValidationErrors("student", "Register")
	id := c.Identity

	required := map[string]string{
		"name":             id.Name,
		"email":            id.Email,
		"dateOfBirth":      id.DateOfBirth,
		"basisOfAdmission": id.BasisOfAdmission,
		"collegeAttended":  id.CollegeAttended,
		"motherTongue":     id.MotherTongue,
		"phoneNumber":      id.PhoneNumber,
		"address":          id.Address,
		"state":            id.State,
		"password":         c.Password,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			v.Add(field, "is required")
		}
	}

	if id.Email != "" {
		if _, err := mail.ParseAddress(id.Email); err != nil {
			v.Add("email", "is not a valid address")
		}
	}
	if id.DateOfBirth != "" {
		if _, err := timeutil.ParseISODate(id.DateOfBirth); err != nil {
			v.Add("dateOfBirth", "must be YYYY-MM-DD")
		}
	}

	switch id.RegistrationType {
	case student.RegistrationNew, student.RegistrationOld:
	default:
		v.Add("registrationType", "must be NEW or OLD")
	}
	switch id.Gender {
	case student.GenderMale, student.GenderFemale, student.GenderOthers:
	default:
		v.Add("gender", "must be Male, Female or Others")
	}
	switch id.MaritalStatus {
	case student.MaritalSingle, student.MaritalMarried:
	default:
		v.Add("maritalStatus", "must be Single or Married")
	}
	switch id.IsAdventist {
	case student.Yes, student.No:
	default:
		v.Add("isAdventist", "must be Yes or No")
	}

	if c.TotalFee < 0 {
		v.Add("totalFee", "cannot be negative")
	}

	if err := student.ValidateSelectedCourses(catalog, c.SelectedCourses, ""); err != nil {
		var fields *shared.ValidationErrors
		if errors.As(err, &fields) {
			for f, msg := range fields.Fields {
				v.Add(f, msg)
			}
		}
	}

	return v.Err()
}

// RegisterStudentResult contains the stored record.
type RegisterStudentResult struct {
	Record *student.Record
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// numberAttempts bounds retries when two registrations race for a number.
const numberAttempts = 3

// RegisterStudentHandler handles RegisterStudentCommand.
type RegisterStudentHandler struct {
	repo       student.Repository
	scale      *grading.Scale
	catalog    *grading.Catalog
	bcryptCost int
	clock      timeutil.Clock
	log        *logger.Logger
}

// NewRegisterStudentHandler creates a new RegisterStudentHandler.
func NewRegisterStudentHandler(
	repo student.Repository,
	scale *grading.Scale,
	catalog *grading.Catalog,
	bcryptCost int,
	clock timeutil.Clock,
	log *logger.Logger,
) *RegisterStudentHandler {
	if clock == nil {
		clock = timeutil.Now
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RegisterStudentHandler{
		repo:       repo,
		scale:      scale,
		catalog:    catalog,
		bcryptCost: bcryptCost,
		clock:      clock,
		log:        log.With(logger.Component("register_student")),
	}
}

// Handle executes the command.
func (h *RegisterStudentHandler) Handle(ctx context.Context, cmd RegisterStudentCommand) (*RegisterStudentResult, error) {
	cmd.Identity.Email = strings.ToLower(strings.TrimSpace(cmd.Identity.Email))
	cmd.Identity.Name = strings.TrimSpace(cmd.Identity.Name)

	if err := cmd.Validate(h.catalog); err != nil {
		return nil, err
	}

	exists, err := h.repo.EmailExists(ctx, cmd.Identity.Email)
	if err != nil {
		return nil, fmt.Errorf("register_student: check email: %w", err)
	}
	if exists {
		return nil, shared.ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), h.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("register_student: hash password: %w", err)
	}

	var rec *student.Record
	retrier := retry.New(
		retry.WithMaxAttempts(numberAttempts),
		retry.WithInitialDelay(20*time.Millisecond),
		retry.WithRetryIf(func(err error) bool {
			return errors.Is(err, shared.ErrRegistrationNumTaken)
		}),
		retry.WithOnRetry(func(attempt int, err error, _ time.Duration) {
			h.log.Warn("registration number collision", logger.Int("attempt", attempt), logger.Err(err))
		}),
	)
	err = retrier.Do(ctx, func(ctx context.Context) error {
		now := h.clock()
		reg, err := h.nextNumber(ctx, now)
		if err != nil {
			return err
		}
		rec = student.NewRecord(h.scale, h.catalog, student.NewRecordParams{
			ID:                 uuid.NewString(),
			RegistrationNumber: reg,
			Identity:           cmd.Identity,
			PasswordHash:       string(hash),
			PaymentScreenshot:  cmd.PaymentScreenshot,
			Photo:              cmd.Photo,
			SelectedCourses:    cmd.SelectedCourses,
			TotalFee:           cmd.TotalFee,
			Now:                now,
		})
		return h.repo.Create(ctx, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("register_student: %w", err)
	}

	h.log.Info("student registered",
		logger.StudentID(rec.ID),
		logger.RegistrationNumber(rec.RegistrationNumber),
	)
	return &RegisterStudentResult{Record: rec}, nil
}

func (h *RegisterStudentHandler) nextNumber(ctx context.Context, now time.Time) (string, error) {
	yy := timeutil.TwoDigitYear(now)
	last, err := h.repo.LastRegistrationNumber(ctx, student.YearPrefix(yy))
	if err != nil {
		return "", fmt.Errorf("last registration number: %w", err)
	}
	return student.NextRegistrationNumber(yy, last)
}
