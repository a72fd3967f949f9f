// Package memory provides in-process implementations of the student
// repositories. They back local development runs without a database and
// the application tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository. Records are copied on
// the way in and out so callers never share state with the store.
type StudentRepository struct {
	mu      sync.RWMutex
	records map[string]*student.Record
}

var _ student.Repository = (*StudentRepository)(nil)

// NewStudentRepository creates an empty repository.
func NewStudentRepository() *StudentRepository {
	return &StudentRepository{records: make(map[string]*student.Record)}
}

// Create inserts a new record.
func (r *StudentRepository) Create(ctx context.Context, rec *student.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ID]; ok {
		return shared.NewDomainError("student", "Create", shared.ErrAlreadyExists, "id already used")
	}
	for _, existing := range r.records {
		if strings.EqualFold(existing.Email, rec.Email) {
			return shared.ErrEmailAlreadyExists
		}
		if rec.RegistrationNumber != "" && existing.RegistrationNumber == rec.RegistrationNumber {
			return shared.ErrRegistrationNumTaken
		}
	}
	r.records[rec.ID] = rec.Clone()
	return nil
}

// GetByID returns a copy of the record.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return rec.Clone(), nil
}

// Update replaces the stored record.
func (r *StudentRepository) Update(ctx context.Context, rec *student.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ID]; !ok {
		return shared.ErrStudentNotFound
	}
	r.records[rec.ID] = rec.Clone()
	return nil
}

// GetAll returns records ordered by registration number.
func (r *StudentRepository) GetAll(ctx context.Context, opts student.ListOptions) ([]*student.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	all := make([]*student.Record, 0, len(r.records))
	for _, rec := range r.records {
		all = append(all, rec.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].RegistrationNumber != all[j].RegistrationNumber {
			return all[i].RegistrationNumber < all[j].RegistrationNumber
		}
		return all[i].ID < all[j].ID
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(all) {
			return []*student.Record{}, nil
		}
		all = all[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, nil
}

// GetByIDs returns the known records among ids, in the order given.
func (r *StudentRepository) GetByIDs(ctx context.Context, ids []string) ([]*student.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*student.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := r.records[id]; ok {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// Count returns the number of records.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

// EmailExists reports whether email is taken, ignoring case.
func (r *StudentRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if strings.EqualFold(rec.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// LastRegistrationNumber returns the highest number with prefix.
func (r *StudentRepository) LastRegistrationNumber(ctx context.Context, prefix string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	last, lastSeq := "", -1
	for _, rec := range r.records {
		if !strings.HasPrefix(rec.RegistrationNumber, prefix) {
			continue
		}
		_, seq, err := student.ParseRegistrationNumber(rec.RegistrationNumber)
		if err != nil {
			continue
		}
		if seq > lastSeq {
			last, lastSeq = rec.RegistrationNumber, seq
		}
	}
	return last, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type enrollmentKey struct {
	reg string
	sem grading.Semester
}

// EnrollmentRepository implements student.EnrollmentRepository.
type EnrollmentRepository struct {
	mu   sync.RWMutex
	rows map[enrollmentKey]student.Enrollment
}

var _ student.EnrollmentRepository = (*EnrollmentRepository)(nil)

// NewEnrollmentRepository creates an empty repository.
func NewEnrollmentRepository() *EnrollmentRepository {
	return &EnrollmentRepository{rows: make(map[enrollmentKey]student.Enrollment)}
}

// Create inserts an enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, e *student.Enrollment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := enrollmentKey{reg: e.RegistrationNumber, sem: e.Semester}
	if _, ok := r.rows[key]; ok {
		return shared.ErrAlreadyEnrolled
	}
	r.rows[key] = copyEnrollment(e)
	return nil
}

// Get returns one enrollment.
func (r *EnrollmentRepository) Get(ctx context.Context, reg string, sem grading.Semester) (*student.Enrollment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.rows[enrollmentKey{reg: reg, sem: sem}]
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	out := copyEnrollment(&e)
	return &out, nil
}

// List returns enrollments of sem, or all of them when sem is empty.
func (r *EnrollmentRepository) List(ctx context.Context, sem grading.Semester) ([]*student.Enrollment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]*student.Enrollment, 0, len(r.rows))
	for key, e := range r.rows {
		if sem != "" && key.sem != sem {
			continue
		}
		c := copyEnrollment(&e)
		out = append(out, &c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].RegistrationNumber != out[j].RegistrationNumber {
			return out[i].RegistrationNumber < out[j].RegistrationNumber
		}
		return out[i].Semester.Ordinal() < out[j].Semester.Ordinal()
	})
	return out, nil
}

func copyEnrollment(e *student.Enrollment) student.Enrollment {
	out := *e
	out.SelectedCourses = append([]string(nil), e.SelectedCourses...)
	return out
}
