package approval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docapproval/internal/apperror"
	"docapproval/internal/model"
)

func TestNewRegistryOrdersBySequence(t *testing.T) {
	reg, err := NewRegistry([]model.Role{
		{ID: 3, Name: "Auditor", Sequence: 30},
		{ID: 1, Name: "Supervisor", Sequence: 10},
		{ID: 2, Name: "Manager", Sequence: 20},
	})
	require.NoError(t, err)

	roles := reg.Roles()
	require.Len(t, roles, 3)
	assert.Equal(t, []uint{1, 2, 3}, []uint{roles[0].ID, roles[1].ID, roles[2].ID})
	assert.Equal(t, 3, reg.Len())

	role, ok := reg.Role(2)
	assert.True(t, ok)
	assert.Equal(t, "Manager", role.Name)
	_, ok = reg.Role(99)
	assert.False(t, ok)
}

func TestNewRegistryRejectsBadSequences(t *testing.T) {
	tests := []struct {
		name  string
		roles []model.Role
	}{
		{"duplicate sequence", []model.Role{{ID: 1, Name: "A", Sequence: 1}, {ID: 2, Name: "B", Sequence: 1}}},
		{"zero sequence", []model.Role{{ID: 1, Name: "A", Sequence: 0}}},
		{"negative sequence", []model.Role{{ID: 1, Name: "A", Sequence: -3}}},
		{"duplicate id", []model.Role{{ID: 1, Name: "A", Sequence: 1}, {ID: 1, Name: "B", Sequence: 2}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.roles)
			assert.True(t, errors.Is(err, apperror.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestRegistryRolesIsACopy(t *testing.T) {
	reg := mustRegistry(testRoles())
	roles := reg.Roles()
	roles[0].Name = "changed"
	assert.Equal(t, "Supervisor", reg.Roles()[0].Name)
}

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry(context.Background(), fakeRoleSource{roles: testRoles()})
	require.NoError(t, err)
	assert.Equal(t, 4, reg.Len())

	_, err = LoadRegistry(context.Background(), fakeRoleSource{err: errors.New("db down")})
	assert.True(t, errors.Is(err, apperror.ErrDatabase))
}
