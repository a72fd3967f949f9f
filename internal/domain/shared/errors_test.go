package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	assert.True(t, IsNotFound(ErrStudentNotFound))
	assert.True(t, IsAlreadyExists(ErrEmailAlreadyExists))
	assert.True(t, IsValidation(ErrUnknownCourse))
	assert.False(t, IsValidation(ErrStudentNotFound))

	wrapped := fmt.Errorf("load record: %w", ErrStudentNotFound)
	assert.True(t, IsNotFound(wrapped))
}

func TestWrapError_KeepsCause(t *testing.T) {
	cause := errors.New("pdf: font not found")
	err := WrapError("transcript", "Encode", ErrRendering, "encode pdf", cause)

	assert.True(t, IsRendering(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "transcript.Encode: encode pdf: pdf: font not found", err.Error())
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors("student", "Register")
	assert.NoError(t, v.Err())

	v.Add("email", "is required")
	v.Add("email", "second message is ignored")
	v.Add("totalFee", "must not be negative")

	err := v.Err()
	assert.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "is required", v.Fields["email"])
	assert.Equal(t, "student.Register: 2 invalid field(s)", err.Error())
}
