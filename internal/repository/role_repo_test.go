package repository

import (
	"context"
	"testing"

	"docapproval/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := NewRoleRepository(f.db)

	require.NoError(t, repo.Create(ctx, &model.Role{Name: "Controller", Sequence: 0}))

	roles, err := repo.ListBySequence(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 5)
	assert.Equal(t, "Controller", roles[0].Name)
	assert.Equal(t, "General Manager", roles[4].Name)

	byName, err := repo.FindByName(ctx, "Auditor")
	require.NoError(t, err)
	assert.Equal(t, 3, byName.Sequence)

	bySeq, err := repo.FindBySequence(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Department Manager", bySeq.Name)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)

	err = repo.Create(ctx, &model.Role{Name: "Duplicate", Sequence: 2})
	assert.Error(t, err, "sequence is unique")
}

func TestDepartmentRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := NewDepartmentRepository(f.db)

	ok, err := repo.Exists(ctx, f.dept.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, ok)

	dept, err := repo.FindByName(ctx, "Logistics")
	require.NoError(t, err)
	assert.Equal(t, f.other.ID, dept.ID)
}

func TestAuditRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := NewAuditRepository(f.db)

	for _, action := range []string{model.ActionCreateDocument, model.ActionApproveStep, model.ActionCreateRole} {
		require.NoError(t, repo.Log(ctx, &model.AuditLog{Action: action, EntityID: "7", Details: "{}"}))
	}
	require.NoError(t, repo.Log(ctx, &model.AuditLog{Action: model.ActionCreateDocument, EntityID: "8", Details: "{}"}))

	logs, total, err := repo.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, logs, 2)

	trail, err := repo.ListByEntity(ctx, "7", []string{model.ActionCreateDocument, model.ActionApproveStep})
	require.NoError(t, err)
	require.Len(t, trail, 2)
	for _, entry := range trail {
		assert.NotEqual(t, model.ActionCreateRole, entry.Action)
		assert.NotEmpty(t, entry.ID.String())
	}
}
