package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/student"
)

func newRecord(id, reg, email string) *student.Record {
	return student.NewRecord(grading.CanonicalScale, grading.CanonicalCatalog, student.NewRecordParams{
		ID:                 id,
		RegistrationNumber: reg,
		Identity:           student.Identity{Name: id, Email: email},
	})
}

func TestStudentRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository()

	rec := newRecord("a", "SMCEN25001", "a@example.org")
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// Stored copies are isolated from callers.
	got.Grades["RELB151"] = grading.CanonicalScale.Grade(99, 2)
	again, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "F", again.Grades["RELB151"].LetterGrade)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, shared.IsNotFound(err))
}

func TestStudentRepository_Uniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository()
	require.NoError(t, repo.Create(ctx, newRecord("a", "SMCEN25001", "a@example.org")))

	err := repo.Create(ctx, newRecord("b", "SMCEN25002", "A@Example.org"))
	assert.ErrorIs(t, err, shared.ErrEmailAlreadyExists)

	err = repo.Create(ctx, newRecord("c", "SMCEN25001", "c@example.org"))
	assert.ErrorIs(t, err, shared.ErrRegistrationNumTaken)

	exists, err := repo.EmailExists(ctx, "A@EXAMPLE.ORG")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStudentRepository_Listing(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository()
	require.NoError(t, repo.Create(ctx, newRecord("z", "SMCEN25003", "z@x.org")))
	require.NoError(t, repo.Create(ctx, newRecord("y", "SMCEN25001", "y@x.org")))
	require.NoError(t, repo.Create(ctx, newRecord("x", "SMCEN24999", "x@x.org")))

	all, err := repo.GetAll(ctx, student.ListAll)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"x", "y", "z"}, []string{all[0].ID, all[1].ID, all[2].ID})

	page, err := repo.GetAll(ctx, student.ListOptions{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "y", page[0].ID)

	some, err := repo.GetByIDs(ctx, []string{"z", "nope", "x"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "z", some[0].ID)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	last, err := repo.LastRegistrationNumber(ctx, "SMCEN25")
	require.NoError(t, err)
	assert.Equal(t, "SMCEN25003", last)

	last, err = repo.LastRegistrationNumber(ctx, "SMCEN26")
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestEnrollmentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewEnrollmentRepository()

	e := &student.Enrollment{ID: "e1", RegistrationNumber: "SMCEN25001", Semester: grading.SemesterII, SelectedCourses: []string{"WREL234"}}
	require.NoError(t, repo.Create(ctx, e))
	assert.ErrorIs(t, repo.Create(ctx, e), shared.ErrAlreadyEnrolled)

	require.NoError(t, repo.Create(ctx, &student.Enrollment{ID: "e2", RegistrationNumber: "SMCEN25001", Semester: grading.SemesterI}))

	got, err := repo.Get(ctx, "SMCEN25001", grading.SemesterII)
	require.NoError(t, err)
	assert.Equal(t, "e1", got.ID)

	_, err = repo.Get(ctx, "SMCEN25009", grading.SemesterI)
	assert.True(t, shared.IsNotFound(err))

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, grading.SemesterI, all[0].Semester)

	semII, err := repo.List(ctx, grading.SemesterII)
	require.NoError(t, err)
	assert.Len(t, semII, 1)
}
