package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "passtrack/pkg/domain-errors"
)

// TestParseUUID_Invariants validates that IDs arriving at trust boundaries
// must be valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseApplicationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseApplicationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})

	t.Run("round trips through String", func(t *testing.T) {
		id := NewApplicationID()
		parsed, err := ParseApplicationID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})
}

// TestTypeDistinction documents the compile-time invariant that entity IDs
// are not interchangeable. If this file compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	userID := NewUserID()
	appID := NewApplicationID()

	// These would fail to compile if types were interchangeable:
	// var _ UserID = appID          // compile error
	// var _ ApplicationID = userID  // compile error

	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(appID))
}
