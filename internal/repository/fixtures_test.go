package repository

import (
	"context"
	"testing"
	"time"

	"docapproval/internal/model"
	"docapproval/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	roles []model.Role
	dept  model.Department
	other model.Department
}

func uintPtr(v uint) *uint { return &v }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	ctx := context.Background()

	f := &fixture{db: db}
	for i, name := range []string{"Supervisor", "Department Manager", "Auditor", "General Manager"} {
		role := model.Role{Name: name, Sequence: i + 1}
		require.NoError(t, db.WithContext(ctx).Create(&role).Error)
		f.roles = append(f.roles, role)
	}

	f.dept = model.Department{Name: "Finance"}
	require.NoError(t, db.Create(&f.dept).Error)
	f.other = model.Department{Name: "Logistics"}
	require.NoError(t, db.Create(&f.other).Error)
	return f
}

func (f *fixture) user(t *testing.T, name string, dept *model.Department, role *model.Role) model.User {
	t.Helper()
	u := model.User{Username: name, Email: name + "@example.com", Password: "x"}
	if dept != nil {
		u.DepartmentID = uintPtr(dept.ID)
	}
	if role != nil {
		u.ApprovalRoleID = uintPtr(role.ID)
	}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) document(t *testing.T, ref string, dept *model.Department) model.Document {
	t.Helper()
	doc := model.Document{
		ReferenceNo:    ref,
		DocumentType:   model.DocTypePurchaseOrder,
		Date:           time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DocumentStatus: model.DocumentPending,
	}
	if dept != nil {
		doc.DepartmentID = uintPtr(dept.ID)
	}
	require.NoError(t, NewDocumentRepository(f.db).Create(context.Background(), &doc))
	return doc
}
