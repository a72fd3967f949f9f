package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator handles database migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns all applied migrations.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}

	return applied, rows.Err()
}

// Migrate applies all pending migrations and returns how many ran.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return 0, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range m.migrations {
		if _, isApplied := applied[mig.Version]; isApplied {
			continue
		}

		if mig.UpSQL == "" {
			return count, fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			insertQuery := fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName)
			_, err := tx.Exec(ctx, insertQuery, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		count++
	}

	return count, nil
}

// Status returns the migration status.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)

	for i := range result {
		if appliedAt, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = appliedAt
		}
	}

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Constraint names used to tell unique violations apart.
const (
	ConstraintStudentEmail        = "students_email_key"
	ConstraintStudentRegistration = "students_registration_number_key"
	ConstraintEnrollmentSemester  = "enrollments_registration_number_semester_key"
)

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_students",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_enrollments",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Academic records. Grades are a JSON object keyed by course code:
-- {"RELB151": {"score": 90, "grade": "A", "gradePoints": 4, "creditHours": 2}}
CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY,
    registration_number VARCHAR(16),
    name VARCHAR(200) NOT NULL,
    email VARCHAR(320) NOT NULL,
    password_hash TEXT NOT NULL DEFAULT '',
    registration_type VARCHAR(3) NOT NULL DEFAULT 'NEW',
    date_of_birth VARCHAR(10) NOT NULL DEFAULT '',
    basis_of_admission TEXT NOT NULL DEFAULT '',
    college_attended TEXT NOT NULL DEFAULT '',
    gender VARCHAR(10) NOT NULL DEFAULT '',
    marital_status VARCHAR(10) NOT NULL DEFAULT '',
    mother_tongue VARCHAR(100) NOT NULL DEFAULT '',
    is_adventist VARCHAR(3) NOT NULL DEFAULT '',
    phone_number VARCHAR(32) NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT '',
    state VARCHAR(100) NOT NULL DEFAULT '',
    union_name VARCHAR(200) NOT NULL DEFAULT '',
    section_region_conference VARCHAR(200) NOT NULL DEFAULT '',
    workplace VARCHAR(200) NOT NULL DEFAULT '',
    payment_screenshot TEXT NOT NULL DEFAULT '',
    photo TEXT NOT NULL DEFAULT '',
    selected_courses TEXT[] NOT NULL DEFAULT '{}',
    total_fee NUMERIC(12,2) NOT NULL DEFAULT 0,
    grades JSONB NOT NULL DEFAULT '{}'::jsonb,
    cumulative_gpa NUMERIC(4,2) NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT students_email_key UNIQUE (email),
    CONSTRAINT students_registration_number_key UNIQUE (registration_number),
    CONSTRAINT valid_registration_type CHECK (registration_type IN ('NEW', 'OLD')),
    CONSTRAINT valid_total_fee CHECK (total_fee >= 0),
    CONSTRAINT valid_cumulative_gpa CHECK (cumulative_gpa >= 0 AND cumulative_gpa <= 4)
);

CREATE INDEX IF NOT EXISTS idx_students_registration_number ON students(registration_number text_pattern_ops);
CREATE INDEX IF NOT EXISTS idx_students_lower_email ON students(lower(email));
`

const migration001Down = `
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS enrollments (
    id UUID PRIMARY KEY,
    registration_number VARCHAR(16) NOT NULL,
    name VARCHAR(200) NOT NULL,
    semester VARCHAR(2) NOT NULL,
    selected_courses TEXT[] NOT NULL DEFAULT '{}',
    total_fee NUMERIC(12,2) NOT NULL DEFAULT 0,
    payment_screenshot TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT enrollments_registration_number_semester_key UNIQUE (registration_number, semester),
    CONSTRAINT valid_semester CHECK (semester IN ('I', 'II')),
    CONSTRAINT valid_enrollment_fee CHECK (total_fee >= 0)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_semester ON enrollments(semester);
`

const migration002Down = `
DROP TABLE IF EXISTS enrollments;
`
