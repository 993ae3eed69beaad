package approval

import (
	"context"
	"errors"

	"docapproval/internal/model"
)

func uintPtr(v uint) *uint { return &v }

func testRoles() []model.Role {
	return []model.Role{
		{ID: 1, Name: "Supervisor", Sequence: 1},
		{ID: 2, Name: "Department Manager", Sequence: 2},
		{ID: 3, Name: "Auditor", Sequence: 3},
		{ID: 4, Name: "General Manager", Sequence: 4},
	}
}

func mustRegistry(roles []model.Role) *Registry {
	reg, err := NewRegistry(roles)
	if err != nil {
		panic(err)
	}
	return reg
}

type fakeDirectory struct {
	approvers map[uint][]Approver
	err       error
}

func (f *fakeDirectory) FindApproversByDepartment(_ context.Context, departmentID uint) ([]Approver, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.approvers[departmentID], nil
}

type fakeDepartments map[uint]bool

func (f fakeDepartments) Exists(_ context.Context, id uint) (bool, error) {
	if f == nil {
		return false, errors.New("lookup failed")
	}
	return f[id], nil
}

type fakeRoleSource struct {
	roles []model.Role
	err   error
}

func (f fakeRoleSource) ListBySequence(context.Context) ([]model.Role, error) {
	return f.roles, f.err
}

// step builds a step row; userID 0 means placeholder.
func step(id, roleID, userID uint, status string) model.ApprovalStep {
	s := model.ApprovalStep{ID: id, DocumentID: 10, RoleID: roleID, Status: status}
	if userID != 0 {
		s.UserID = uintPtr(userID)
	}
	return s
}

func deptDoc() *model.Document {
	return &model.Document{ID: 10, ReferenceNo: "PR-001", DepartmentID: uintPtr(7), DocumentStatus: model.DocumentPending}
}
