package approval

import (
	"sort"
	"time"

	"docapproval/internal/apperror"
	"docapproval/internal/model"
)

// Action is what an approver does to a step.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func (a Action) valid() bool {
	return a == ActionApprove || a == ActionReject
}

// Transition moves a pending step to approved or rejected. Terminal steps are
// left untouched and INVALID_STATE is returned. Callers must have checked the
// step's turn with ResolveStep first.
func Transition(step *model.ApprovalStep, action Action, actingUserID uint, remarks string, now time.Time) error {
	if !action.valid() {
		return apperror.InvalidInput("action", string(action))
	}
	if step.IsTerminal() {
		return apperror.Newf(apperror.CodeInvalidState, "step %d is already %s", step.ID, step.Status)
	}

	actedBy := actingUserID
	step.ActedBy = &actedBy
	step.Remarks = remarks

	switch action {
	case ActionApprove:
		at := now
		step.Status = model.StepApproved
		step.ApprovedAt = &at
	case ActionReject:
		step.Status = model.StepRejected
		step.ApprovedAt = nil
	}
	return nil
}

// Group is every step of a document sharing one role.
type Group struct {
	Role   model.Role
	Steps  []model.ApprovalStep
	Status string // representative status
}

// Representative reduces a group to one status: any approval wins, then any
// rejection, otherwise pending. It depends only on the final step states.
func Representative(steps []model.ApprovalStep) string {
	rejected := false
	for _, s := range steps {
		switch s.Status {
		case model.StepApproved:
			return model.StepApproved
		case model.StepRejected:
			rejected = true
		}
	}
	if rejected {
		return model.StepRejected
	}
	return model.StepPending
}

// GroupSteps buckets steps by role and orders the buckets by role sequence.
// Steps referencing a role missing from the registry keep their role id and sort last.
func GroupSteps(reg *Registry, steps []model.ApprovalStep) []Group {
	byRole := make(map[uint]int)
	var groups []Group
	for _, s := range steps {
		i, ok := byRole[s.RoleID]
		if !ok {
			role, known := reg.Role(s.RoleID)
			if !known {
				role = model.Role{ID: s.RoleID}
			}
			groups = append(groups, Group{Role: role})
			i = len(groups) - 1
			byRole[s.RoleID] = i
		}
		groups[i].Steps = append(groups[i].Steps, s)
	}

	for i := range groups {
		groups[i].Status = Representative(groups[i].Steps)
	}

	sortGroups(reg, groups)
	return groups
}

func sortGroups(reg *Registry, groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return less(reg, groups[i], groups[j])
	})
}

func less(reg *Registry, a, b Group) bool {
	pa, pb := reg.position(a.Role.ID), reg.position(b.Role.ID)
	if pa != pb {
		return pa < pb
	}
	return a.Role.ID < b.Role.ID
}

// CurrentGroup returns the index of the first pending group. A rejection ends
// the chain, so groups after a rejected one are never current.
func CurrentGroup(groups []Group) (int, bool) {
	for i, g := range groups {
		switch g.Status {
		case model.StepRejected:
			return -1, false
		case model.StepPending:
			return i, true
		}
	}
	return -1, false
}
