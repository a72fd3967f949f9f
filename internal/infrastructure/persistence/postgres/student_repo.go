package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

var _ student.Repository = (*StudentRepository)(nil)

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `
	id, registration_number, name, email, password_hash, registration_type,
	date_of_birth, basis_of_admission, college_attended, gender, marital_status,
	mother_tongue, is_adventist, phone_number, address, state, union_name,
	section_region_conference, workplace, payment_screenshot, photo,
	selected_courses, total_fee, grades, cumulative_gpa, created_at, updated_at
`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts a new record.
func (r *StudentRepository) Create(ctx context.Context, s *student.Record) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	grades, err := json.Marshal(s.Grades)
	if err != nil {
		return fmt.Errorf("failed to marshal grades: %w", err)
	}

	query := `INSERT INTO students (` + studentColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27
	)`

	_, err = r.conn.Exec(ctx, query,
		s.ID,
		nullable(s.RegistrationNumber),
		s.Name,
		s.Email,
		s.PasswordHash,
		string(s.RegistrationType),
		s.DateOfBirth,
		s.BasisOfAdmission,
		s.CollegeAttended,
		string(s.Gender),
		string(s.MaritalStatus),
		s.MotherTongue,
		string(s.IsAdventist),
		s.PhoneNumber,
		s.Address,
		s.State,
		s.Union,
		s.SectionRegionConference,
		s.Workplace,
		s.PaymentScreenshot,
		s.Photo,
		nonNil(s.SelectedCourses),
		s.TotalFee,
		grades,
		s.CumulativeGPA,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			if ViolatedConstraint(err) == ConstraintStudentRegistration {
				return shared.ErrRegistrationNumTaken
			}
			return shared.ErrEmailAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetByID returns a record by id.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, shared.ErrStudentNotFound
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	row := r.conn.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	rec, err := scanStudent(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return rec, nil
}

// Update replaces the mutable columns of a record in one statement.
func (r *StudentRepository) Update(ctx context.Context, s *student.Record) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	grades, err := json.Marshal(s.Grades)
	if err != nil {
		return fmt.Errorf("failed to marshal grades: %w", err)
	}

	query := `
		UPDATE students SET
			name = $1,
			email = $2,
			date_of_birth = $3,
			basis_of_admission = $4,
			selected_courses = $5,
			total_fee = $6,
			payment_screenshot = $7,
			photo = $8,
			grades = $9,
			cumulative_gpa = $10,
			updated_at = $11
		WHERE id = $12
	`

	result, err := r.conn.Exec(ctx, query,
		s.Name,
		s.Email,
		s.DateOfBirth,
		s.BasisOfAdmission,
		nonNil(s.SelectedCourses),
		s.TotalFee,
		s.PaymentScreenshot,
		s.Photo,
		grades,
		s.CumulativeGPA,
		s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrEmailAlreadyExists
		}
		return fmt.Errorf("failed to update student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bulk Operations
// ─────────────────────────────────────────────────────────────────────────────

// GetAll returns records ordered by registration number.
func (r *StudentRepository) GetAll(ctx context.Context, opts student.ListOptions) ([]*student.Record, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var limit any
	if opts.Limit > 0 {
		limit = opts.Limit
	}

	query := `SELECT ` + studentColumns + ` FROM students
		ORDER BY registration_number NULLS LAST, id
		LIMIT $1 OFFSET $2`

	rows, err := r.conn.Query(ctx, query, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return collectStudents(rows)
}

// GetByIDs returns the records among ids in the order given.
func (r *StudentRepository) GetByIDs(ctx context.Context, ids []string) ([]*student.Record, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []*student.Record{}, nil
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT `+studentColumns+` FROM students WHERE id = ANY($1::uuid[])`, valid)
	if err != nil {
		return nil, fmt.Errorf("failed to get students: %w", err)
	}
	found, err := collectStudents(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*student.Record, len(found))
	for _, rec := range found {
		byID[rec.ID] = rec
	}
	out := make([]*student.Record, 0, len(found))
	for _, id := range valid {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
			delete(byID, id)
		}
	}
	return out, nil
}

// Count returns the number of records.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.conn.QueryRow(ctx, `SELECT count(*) FROM students`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Registration support
// ─────────────────────────────────────────────────────────────────────────────

// EmailExists reports whether email is registered, ignoring case.
func (r *StudentRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE lower(email) = lower($1))`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// LastRegistrationNumber returns the highest number starting with prefix.
func (r *StudentRepository) LastRegistrationNumber(ctx context.Context, prefix string) (string, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var reg string
	err := r.conn.QueryRow(ctx, `
		SELECT registration_number FROM students
		WHERE registration_number LIKE $1
		ORDER BY length(registration_number) DESC, registration_number DESC
		LIMIT 1
	`, escapeLike(prefix)+"%").Scan(&reg)
	if err != nil {
		if IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read last registration number: %w", err)
	}
	return reg, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanStudent(row pgx.Row) (*student.Record, error) {
	var (
		s          student.Record
		reg        *string
		regType    string
		gender     string
		marital    string
		adventist  string
		gradesJSON []byte
	)

	err := row.Scan(
		&s.ID,
		&reg,
		&s.Name,
		&s.Email,
		&s.PasswordHash,
		&regType,
		&s.DateOfBirth,
		&s.BasisOfAdmission,
		&s.CollegeAttended,
		&gender,
		&marital,
		&s.MotherTongue,
		&adventist,
		&s.PhoneNumber,
		&s.Address,
		&s.State,
		&s.Union,
		&s.SectionRegionConference,
		&s.Workplace,
		&s.PaymentScreenshot,
		&s.Photo,
		&s.SelectedCourses,
		&s.TotalFee,
		&gradesJSON,
		&s.CumulativeGPA,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if reg != nil {
		s.RegistrationNumber = *reg
	}
	s.RegistrationType = student.RegistrationType(regType)
	s.Gender = student.Gender(gender)
	s.MaritalStatus = student.MaritalStatus(marital)
	s.IsAdventist = student.YesNo(adventist)

	s.Grades = make(map[string]grading.CourseRecord)
	if len(gradesJSON) > 0 {
		if err := json.Unmarshal(gradesJSON, &s.Grades); err != nil {
			return nil, fmt.Errorf("failed to unmarshal grades of %s: %w", s.ID, err)
		}
	}

	return &s, nil
}

func collectStudents(rows pgx.Rows) ([]*student.Record, error) {
	defer rows.Close()

	out := make([]*student.Record, 0)
	for rows.Next() {
		rec, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
