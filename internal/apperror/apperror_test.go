package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestErrorIs(t *testing.T) {
	err := Newf(CodeInvalidState, "step %d is already approved", 7)
	wrapped := fmt.Errorf("approve: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInvalidState))
	assert.False(t, errors.Is(wrapped, ErrUnauthorized))
	assert.Equal(t, CodeInvalidState, CodeOf(wrapped))
	assert.Contains(t, err.Error(), "INVALID_STATE")
}

func TestFromDB(t *testing.T) {
	assert.NoError(t, FromDB(nil, "document", 1))

	notFound := FromDB(gorm.ErrRecordNotFound, "document", 42)
	assert.True(t, errors.Is(notFound, ErrNotFound))
	assert.Contains(t, notFound.Error(), "document 42 not found")

	dbErr := FromDB(errors.New("connection reset"), "document", 42)
	assert.True(t, errors.Is(dbErr, ErrDatabase))
	assert.True(t, IsRetryable(dbErr))

	typed := New(CodeUnauthorized, "nope")
	assert.Same(t, typed, FromDB(typed, "document", 42))
	assert.False(t, IsRetryable(typed))
}

func TestCodeOfUntyped(t *testing.T) {
	assert.Equal(t, CodeDatabaseError, CodeOf(errors.New("boom")))
	assert.False(t, IsRetryable(nil))
}
