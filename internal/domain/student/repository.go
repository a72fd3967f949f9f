package student

import (
	"context"

	"github.com/smcen/registrar/internal/domain/grading"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores academic records.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// CRUD Operations
	// ─────────────────────────────────────────────────────────────────────────

	// Create inserts a new record.
	// Returns ErrEmailAlreadyExists when the email is taken and
	// ErrRegistrationNumTaken when the registration number is.
	Create(ctx context.Context, record *Record) error

	// GetByID returns the record with the given id.
	// Returns ErrStudentNotFound when it does not exist.
	GetByID(ctx context.Context, id string) (*Record, error)

	// Update replaces the stored record as a single atomic write.
	// Returns ErrStudentNotFound when it does not exist.
	Update(ctx context.Context, record *Record) error

	// ─────────────────────────────────────────────────────────────────────────
	// Bulk Operations
	// ─────────────────────────────────────────────────────────────────────────

	// GetAll returns records ordered by registration number.
	GetAll(ctx context.Context, opts ListOptions) ([]*Record, error)

	// GetByIDs returns the records that exist among ids, in the order given.
	// Unknown ids are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]*Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Registration support
	// ─────────────────────────────────────────────────────────────────────────

	// EmailExists reports whether a record uses email, case-insensitively.
	EmailExists(ctx context.Context, email string) (bool, error)

	// LastRegistrationNumber returns the highest number starting with
	// prefix, or "" when none exists.
	LastRegistrationNumber(ctx context.Context, prefix string) (string, error)
}

// EnrollmentRepository stores semester enrollments.
type EnrollmentRepository interface {
	// Create inserts an enrollment.
	// Returns ErrAlreadyEnrolled when the student already enrolled for that semester.
	Create(ctx context.Context, enrollment *Enrollment) error

	// Get returns the enrollment of one student for one semester.
	// Returns ErrEnrollmentNotFound when it does not exist.
	Get(ctx context.Context, registrationNumber string, semester grading.Semester) (*Enrollment, error)

	// List returns enrollments of a semester, or of every semester when
	// semester is empty, ordered by registration number.
	List(ctx context.Context, semester grading.Semester) ([]*Enrollment, error)
}

// ListOptions controls pagination of bulk reads.
type ListOptions struct {
	// Offset skips that many records.
	Offset int

	// Limit caps the result. Zero means no limit.
	Limit int
}

// ListAll is ListOptions without pagination.
var ListAll = ListOptions{}
