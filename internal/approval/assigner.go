package approval

import (
	"context"
	"sort"

	"docapproval/internal/apperror"
	"docapproval/internal/model"
)

// Approver is a department member holding an approval role.
type Approver struct {
	UserID         uint
	ApprovalRoleID uint
}

// UserDirectory finds the approvers of a department.
type UserDirectory interface {
	FindApproversByDepartment(ctx context.Context, departmentID uint) ([]Approver, error)
}

// DepartmentLookup reports whether a department exists.
type DepartmentLookup interface {
	Exists(ctx context.Context, departmentID uint) (bool, error)
}

// Assigner builds the initial step set for a new document.
type Assigner struct {
	users       UserDirectory
	departments DepartmentLookup
}

func NewAssigner(users UserDirectory, departments DepartmentLookup) *Assigner {
	return &Assigner{users: users, departments: departments}
}

// Assign returns one pending step per department user per role, and a single
// unassigned placeholder for each role nobody in the department holds.
// Documents without a department get no steps.
func (a *Assigner) Assign(ctx context.Context, reg *Registry, doc *model.Document) ([]model.ApprovalStep, error) {
	if doc.DepartmentID == nil {
		return nil, nil
	}
	departmentID := *doc.DepartmentID

	exists, err := a.departments.Exists(ctx, departmentID)
	if err != nil {
		return nil, apperror.FromDB(err, "department", departmentID)
	}
	if !exists {
		return nil, apperror.InvalidInput("department_id", "unknown department")
	}

	approvers, err := a.users.FindApproversByDepartment(ctx, departmentID)
	if err != nil {
		return nil, apperror.FromDB(err, "approvers", departmentID)
	}

	byRole := make(map[uint][]uint, reg.Len())
	for _, ap := range approvers {
		if _, known := reg.Role(ap.ApprovalRoleID); !known {
			continue
		}
		byRole[ap.ApprovalRoleID] = append(byRole[ap.ApprovalRoleID], ap.UserID)
	}

	steps := make([]model.ApprovalStep, 0, reg.Len())
	for _, role := range reg.Roles() {
		userIDs := byRole[role.ID]
		if len(userIDs) == 0 {
			steps = append(steps, model.ApprovalStep{
				DocumentID: doc.ID,
				RoleID:     role.ID,
				Status:     model.StepPending,
			})
			continue
		}

		sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })
		for i, id := range userIDs {
			if i > 0 && userIDs[i-1] == id {
				continue
			}
			userID := id
			steps = append(steps, model.ApprovalStep{
				DocumentID: doc.ID,
				RoleID:     role.ID,
				UserID:     &userID,
				Status:     model.StepPending,
			})
		}
	}

	return steps, nil
}
