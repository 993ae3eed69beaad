package approval

import (
	"fmt"

	"docapproval/internal/apperror"
	"docapproval/internal/model"
)

// PlaceholderPolicy decides who may act on a step that has no assignee.
type PlaceholderPolicy string

const (
	// PlaceholderDepartment lets users holding the role inside the document's department act.
	PlaceholderDepartment PlaceholderPolicy = "department"
	// PlaceholderGlobal lets any user holding the role act.
	PlaceholderGlobal PlaceholderPolicy = "global"
)

// ParsePlaceholderPolicy maps a configuration value to a policy.
func ParsePlaceholderPolicy(v string) (PlaceholderPolicy, error) {
	switch PlaceholderPolicy(v) {
	case PlaceholderDepartment, PlaceholderGlobal:
		return PlaceholderPolicy(v), nil
	case "":
		return PlaceholderDepartment, nil
	}
	return "", fmt.Errorf("unknown placeholder policy %q", v)
}

// Actor is the user attempting to act on a document.
type Actor struct {
	ID             uint
	DepartmentID   *uint
	ApprovalRoleID *uint
}

// ActorFromUser copies the fields the resolver needs.
func ActorFromUser(u *model.User) Actor {
	return Actor{ID: u.ID, DepartmentID: u.DepartmentID, ApprovalRoleID: u.ApprovalRoleID}
}

// Authorizer gates approve and reject to the current role-group.
type Authorizer struct {
	policy PlaceholderPolicy
}

func NewAuthorizer(policy PlaceholderPolicy) *Authorizer {
	if policy == "" {
		policy = PlaceholderDepartment
	}
	return &Authorizer{policy: policy}
}

func (a *Authorizer) Policy() PlaceholderPolicy {
	return a.policy
}

// CanAct reports whether actor may approve or reject something on doc right now.
func (a *Authorizer) CanAct(reg *Registry, doc *model.Document, steps []model.ApprovalStep, actor Actor) bool {
	if doc.DepartmentID == nil {
		return false
	}
	groups := GroupSteps(reg, steps)
	cur, ok := CurrentGroup(groups)
	if !ok {
		return false
	}
	_, found := a.stepFor(doc, groups[cur], actor)
	return found
}

// ResolveStep returns the step actor would transition for roleID, or a typed
// error explaining why the action is not allowed.
func (a *Authorizer) ResolveStep(reg *Registry, doc *model.Document, steps []model.ApprovalStep, actor Actor, roleID uint) (*model.ApprovalStep, error) {
	groups := GroupSteps(reg, steps)

	target := -1
	for i, g := range groups {
		if g.Role.ID == roleID {
			target = i
			break
		}
	}
	if target < 0 {
		return nil, apperror.Newf(apperror.CodeNotFound, "document %d has no approval step for role %d", doc.ID, roleID)
	}

	stepIdx, found := a.stepFor(doc, groups[target], actor)
	if !found {
		return nil, apperror.Newf(apperror.CodeUnauthorized, "user %d is not an approver for role %d", actor.ID, roleID)
	}
	step := groups[target].Steps[stepIdx]
	if step.IsTerminal() {
		return nil, apperror.Newf(apperror.CodeInvalidState, "step %d is already %s", step.ID, step.Status)
	}

	cur, ok := CurrentGroup(groups)
	switch {
	case !ok:
		return nil, apperror.Newf(apperror.CodeInvalidState, "document %d is already %s", doc.ID, Compute(reg, doc, steps).Status)
	case target < cur:
		return nil, apperror.Newf(apperror.CodeInvalidState, "role %d was already resolved by another approver", roleID)
	case target > cur:
		return nil, apperror.Newf(apperror.CodeUnauthorized, "role %d must wait for role %d", roleID, groups[cur].Role.ID)
	}

	return &step, nil
}

// stepFor finds the actor's own step in g, falling back to the placeholder
// when the actor holds the role under the configured policy.
func (a *Authorizer) stepFor(doc *model.Document, g Group, actor Actor) (int, bool) {
	for i, s := range g.Steps {
		if s.UserID != nil && *s.UserID == actor.ID {
			return i, true
		}
	}
	if len(g.Steps) == 1 && g.Steps[0].IsPlaceholder() && a.holdsRole(doc, g.Role.ID, actor) {
		return 0, true
	}
	return -1, false
}

func (a *Authorizer) holdsRole(doc *model.Document, roleID uint, actor Actor) bool {
	if actor.ApprovalRoleID == nil || *actor.ApprovalRoleID != roleID {
		return false
	}
	if a.policy == PlaceholderGlobal {
		return true
	}
	return doc.DepartmentID != nil && actor.DepartmentID != nil && *actor.DepartmentID == *doc.DepartmentID
}
