package domain_test

import (
	"errors"
	"testing"

	"github.com/Rambha123/voxspace/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectRoom_Commutative(t *testing.T) {
	pairs := [][2]string{
		{"a1", "b2"},
		{"b2", "a1"},
		{"64f1c2", "64f1c1"},
		{"Z", "a"},
		{"user-1", "user-10"},
	}
	for _, p := range pairs {
		assert.Equal(t, domain.DirectRoom(p[0], p[1]), domain.DirectRoom(p[1], p[0]), "%v", p)
	}
	assert.Equal(t, "a1_b2", domain.DirectRoom("b2", "a1"))
}

func TestSpaceRoom_Identity(t *testing.T) {
	assert.Equal(t, "space-42", domain.SpaceRoom("space-42"))
}

func TestResolveDirectRoom_Validates(t *testing.T) {
	room, err := domain.ResolveDirectRoom("b2", "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1_b2", room)

	_, err = domain.ResolveDirectRoom("", "a1")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = domain.ResolveDirectRoom("a_1", "b2")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = domain.ResolveDirectRoom("a1", "a1")
	assert.ErrorIs(t, err, domain.ErrSelfRoom)
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, domain.ValidateID("665f0c3e9b1d2a0012345678"))
	assert.NoError(t, domain.ValidateID("550e8400-e29b-41d4-a716-446655440000"))

	for _, bad := range []string{"", "a b", "a_b", "ü", string(make([]byte, 65))} {
		assert.ErrorIs(t, domain.ValidateID(bad), domain.ErrInvalidID, "%q", bad)
	}
}

func TestCounterpart(t *testing.T) {
	tests := []struct {
		room, user, want string
		ok               bool
	}{
		{"a1_b2", "a1", "b2", true},
		{"a1_b2", "b2", "a1", true},
		{"a1_b2", "c3", "", false},
		{"space-1", "a1", "", false},
		{"a1_b2_c3", "a1", "", false},
		{"_a1", "a1", "", false},
		{"a1_a1", "a1", "", false},
	}
	for _, tt := range tests {
		got, ok := domain.Counterpart(tt.room, tt.user)
		assert.Equal(t, tt.ok, ok, tt.room)
		assert.Equal(t, tt.want, got, tt.room)
	}
}

func TestValidateRoom(t *testing.T) {
	assert.NoError(t, domain.ValidateRoom("a1_b2"))
	assert.NoError(t, domain.ValidateRoom("space-7"))
	assert.ErrorIs(t, domain.ValidateRoom(""), domain.ErrMissingRoom)
	assert.ErrorIs(t, domain.ValidateRoom("a1_"), domain.ErrInvalidRoom)
	assert.ErrorIs(t, domain.ValidateRoom("a b"), domain.ErrInvalidRoom)
}

func TestValidationErrorsShareClass(t *testing.T) {
	for _, err := range []error{domain.ErrEmptyContent, domain.ErrMessageTooLong, domain.ErrMissingRoom, domain.ErrMissingSender} {
		assert.True(t, errors.Is(err, domain.ErrInvalidMessage), err.Error())
	}
	assert.False(t, errors.Is(domain.ErrPersist, domain.ErrInvalidMessage))
}

func TestDirectRoomPatterns(t *testing.T) {
	prefix, suffix := domain.DirectRoomPatterns("a1")
	assert.Equal(t, `a1\_%`, prefix)
	assert.Equal(t, `%\_a1`, suffix)

	prefix, _ = domain.DirectRoomPatterns(`x%_\`)
	assert.Equal(t, `x\%\_\\\_%`, prefix)
}
