package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements student.EnrollmentRepository for PostgreSQL.
type EnrollmentRepository struct {
	conn *Connection
}

var _ student.EnrollmentRepository = (*EnrollmentRepository)(nil)

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

const enrollmentColumns = `id, registration_number, name, semester, selected_courses, total_fee, payment_screenshot, created_at`

// Create inserts an enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, e *student.Enrollment) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Exec(ctx,
		`INSERT INTO enrollments (`+enrollmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID,
		e.RegistrationNumber,
		e.Name,
		string(e.Semester),
		nonNil(e.SelectedCourses),
		e.TotalFee,
		e.PaymentScreenshot,
		e.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyEnrolled
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

// Get returns one enrollment.
func (r *EnrollmentRepository) Get(ctx context.Context, reg string, sem grading.Semester) (*student.Enrollment, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	row := r.conn.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE registration_number = $1 AND semester = $2`,
		reg, string(sem),
	)
	e, err := scanEnrollment(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return e, nil
}

// List returns enrollments of sem, or of every semester when sem is empty.
func (r *EnrollmentRepository) List(ctx context.Context, sem grading.Semester) ([]*student.Enrollment, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + enrollmentColumns + ` FROM enrollments
		WHERE ($1 = '' OR semester = $1)
		ORDER BY registration_number, semester`

	rows, err := r.conn.Query(ctx, query, string(sem))
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	out := make([]*student.Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate enrollments: %w", err)
	}
	return out, nil
}

func scanEnrollment(row pgx.Row) (*student.Enrollment, error) {
	var (
		e   student.Enrollment
		sem string
	)
	err := row.Scan(
		&e.ID,
		&e.RegistrationNumber,
		&e.Name,
		&sem,
		&e.SelectedCourses,
		&e.TotalFee,
		&e.PaymentScreenshot,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Semester = grading.Semester(sem)
	return &e, nil
}
