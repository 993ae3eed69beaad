package approval

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docapproval/internal/apperror"
	"docapproval/internal/model"
)

func TestTransition(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	approved := step(1, 1, 11, model.StepPending)
	require.NoError(t, Transition(&approved, ActionApprove, 11, "ok", now))
	assert.Equal(t, model.StepApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	assert.True(t, approved.ApprovedAt.Equal(now))
	assert.Equal(t, uint(11), *approved.ActedBy)
	assert.Equal(t, "ok", approved.Remarks)

	rejected := step(2, 1, 11, model.StepPending)
	require.NoError(t, Transition(&rejected, ActionReject, 11, "missing quotation", now))
	assert.Equal(t, model.StepRejected, rejected.Status)
	assert.Nil(t, rejected.ApprovedAt)
}

func TestTransitionTerminalIsFinal(t *testing.T) {
	now := time.Now()
	for _, first := range []Action{ActionApprove, ActionReject} {
		for _, second := range []Action{ActionApprove, ActionReject} {
			s := step(1, 1, 11, model.StepPending)
			require.NoError(t, Transition(&s, first, 11, "", now))
			before := s

			err := Transition(&s, second, 11, "again", now.Add(time.Hour))
			assert.True(t, errors.Is(err, apperror.ErrInvalidState), "%s then %s: %v", first, second, err)
			assert.Equal(t, before, s, "%s then %s must leave the step untouched", first, second)
		}
	}
}

func TestTransitionUnknownAction(t *testing.T) {
	s := step(1, 1, 11, model.StepPending)
	err := Transition(&s, Action("escalate"), 11, "", time.Now())
	assert.True(t, errors.Is(err, apperror.ErrInvalidInput))
	assert.Equal(t, model.StepPending, s.Status)
}

func TestRepresentative(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"empty", nil, model.StepPending},
		{"all pending", []string{model.StepPending, model.StepPending}, model.StepPending},
		{"one approved", []string{model.StepPending, model.StepApproved}, model.StepApproved},
		{"rejection beats pending", []string{model.StepPending, model.StepRejected}, model.StepRejected},
		{"approval beats rejection", []string{model.StepRejected, model.StepApproved}, model.StepApproved},
		{"approval beats rejection, reversed", []string{model.StepApproved, model.StepRejected}, model.StepApproved},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var steps []model.ApprovalStep
			for i, st := range tc.statuses {
				steps = append(steps, step(uint(i+1), 1, uint(i+11), st))
			}
			assert.Equal(t, tc.want, Representative(steps))
		})
	}
}

func TestGroupStepsOrdersBySequence(t *testing.T) {
	reg := mustRegistry(testRoles())
	steps := []model.ApprovalStep{
		step(4, 4, 0, model.StepPending),
		step(2, 2, 21, model.StepPending),
		step(1, 1, 11, model.StepApproved),
		step(3, 2, 22, model.StepPending),
		step(5, 99, 0, model.StepPending),
	}

	groups := GroupSteps(reg, steps)
	require.Len(t, groups, 4)
	assert.Equal(t, uint(1), groups[0].Role.ID)
	assert.Equal(t, model.StepApproved, groups[0].Status)
	assert.Equal(t, uint(2), groups[1].Role.ID)
	assert.Len(t, groups[1].Steps, 2)
	assert.Equal(t, uint(4), groups[2].Role.ID)
	assert.Equal(t, uint(99), groups[3].Role.ID, "unknown roles sort last")

	cur, ok := CurrentGroup(groups)
	require.True(t, ok)
	assert.Equal(t, 1, cur)
}

func TestCurrentGroupStopsAtRejection(t *testing.T) {
	reg := mustRegistry(testRoles())
	groups := GroupSteps(reg, []model.ApprovalStep{
		step(1, 1, 11, model.StepApproved),
		step(2, 2, 12, model.StepRejected),
		step(3, 3, 13, model.StepPending),
	})
	_, ok := CurrentGroup(groups)
	assert.False(t, ok)

	_, ok = CurrentGroup(nil)
	assert.False(t, ok)
}
