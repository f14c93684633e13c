package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeConflict, "application is not at final approval")
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		inner := Wrap(errors.New("pq: deadlock detected"), CodeInternal, "failed to update application")
		outer := fmt.Errorf("process approval: %w", inner)
		assert.True(t, HasCode(outer, CodeInternal))
	})

	t.Run("false for plain errors", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeForbidden, CodeOf(New(CodeForbidden, "role not allowed")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("unclassified")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "storage unavailable")
	require.ErrorIs(t, err, cause)
}

func TestMessageOfHidesUncodedDetail(t *testing.T) {
	assert.Equal(t, "internal error", MessageOf(errors.New("dsn=postgres://secret")))
	assert.Equal(t, "user not found", MessageOf(New(CodeNotFound, "user not found")))
}
