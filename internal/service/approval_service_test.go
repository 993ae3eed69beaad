package service

import (
	"context"
	"sync"
	"testing"

	"docapproval/internal/apperror"
	"docapproval/internal/approval"
	"docapproval/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproval_SupervisorApprovesManagerRejects(t *testing.T) {
	env := newTestEnv(t, approval.PlaceholderDepartment, "Supervisor", "Manager")
	env.department(t, "Finance")
	u1 := env.user(t, "u1", "Finance", "Supervisor")
	u2 := env.user(t, "u2", "Finance", "Manager")
	ctx := context.Background()

	doc := env.createDoc(t, "PR-100", "Finance")
	assert.True(t, env.canAct(t, doc.ID, "u1"))
	assert.False(t, env.canAct(t, doc.ID, "u2"))

	res, err := env.approvals.ApproveStep(ctx, doc.ID, env.roles["Supervisor"].ID, u1.ID, "looks fine")
	require.NoError(t, err)
	assert.Equal(t, model.StepApproved, res.StepStatus)
	assert.NotNil(t, res.ApprovedAt)
	assert.Equal(t, 50.0, res.Percent)
	assert.Equal(t, model.DocumentPending, res.DocumentStatus)

	assert.False(t, env.canAct(t, doc.ID, "u1"))
	assert.True(t, env.canAct(t, doc.ID, "u2"))

	res, err = env.approvals.RejectStep(ctx, doc.ID, env.roles["Manager"].ID, u2.ID, "over budget")
	require.NoError(t, err)
	assert.Equal(t, model.StepRejected, res.StepStatus)
	assert.Nil(t, res.ApprovedAt)
	assert.Equal(t, 50.0, res.Percent)
	assert.Equal(t, model.DocumentRejected, res.DocumentStatus)

	assert.False(t, env.canAct(t, doc.ID, "u1"))
	assert.False(t, env.canAct(t, doc.ID, "u2"))

	stored, err := env.documents.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentRejected, stored.DocumentStatus)

	var persisted model.Document
	require.NoError(t, env.db.First(&persisted, doc.ID).Error)
	assert.Equal(t, model.DocumentRejected, persisted.DocumentStatus)

	progress, err := env.approvals.GetDocumentProgress(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, progress.CurrentRoleID)
	assert.Equal(t, "looks fine", progress.Steps[0].Remarks)
	assert.Equal(t, "over budget", progress.Steps[1].Remarks)
	require.NotNil(t, progress.Steps[1].ActedBy)
	assert.Equal(t, u2.ID, *progress.Steps[1].ActedBy)

	history, err := env.audits.GetDocumentHistory(ctx, doc.ID)
	require.NoError(t, err)
	var actions []string
	for _, h := range history {
		actions = append(actions, h.Action)
	}
	assert.Equal(t, []string{model.ActionCreateDocument, model.ActionApproveStep, model.ActionRejectStep}, actions)

	assert.Equal(t, []string{EventDocumentCreated, EventStepApproved, EventStepRejected}, env.events.types())
}

func TestApproval_FullChainReachesHundred(t *testing.T) {
	env := newTestEnv(t, approval.PlaceholderDepartment, chainRoles...)
	env.department(t, "Finance")
	names := []string{"sup", "mgr", "aud", "gm"}
	for i, role := range chainRoles {
		env.user(t, names[i], "Finance", role)
	}
	ctx := context.Background()

	doc := env.createDoc(t, "PR-101", "Finance")
	last := 0.0
	for i, role := range chainRoles {
		res, err := env.approvals.ApproveStep(ctx, doc.ID, env.roles[role].ID, env.users[names[i]].ID, "")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Percent, last)
		last = res.Percent
		if i < len(chainRoles)-1 {
			assert.Equal(t, model.DocumentPending, res.DocumentStatus)
			assert.Less(t, res.Percent, 100.0)
		}
	}
	assert.Equal(t, 100.0, last)

	stored, err := env.documents.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentApproved, stored.DocumentStatus)
	for _, name := range names {
		assert.False(t, env.canAct(t, doc.ID, name), name)
	}
}

func TestApproval_Refusals(t *testing.T) {
	env := newTestEnv(t, approval.PlaceholderDepartment, "Supervisor", "Manager")
	env.department(t, "Finance")
	u1 := env.user(t, "u1", "Finance", "Supervisor")
	u2 := env.user(t, "u2", "Finance", "Manager")
	outsider := env.user(t, "outsider", "Finance", "")
	ctx := context.Background()
	doc := env.createDoc(t, "PR-102", "Finance")

	_, err := env.approvals.ApproveStep(ctx, doc.ID, env.roles["Manager"].ID, u2.ID, "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized, "cannot skip ahead")

	_, err = env.approvals.ApproveStep(ctx, doc.ID, env.roles["Supervisor"].ID, outsider.ID, "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = env.approvals.ApproveStep(ctx, doc.ID, 999, u1.ID, "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.approvals.ApproveStep(ctx, 999, env.roles["Supervisor"].ID, u1.ID, "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.approvals.ApproveStep(ctx, doc.ID, env.roles["Supervisor"].ID, 999, "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	first, err := env.approvals.ApproveStep(ctx, doc.ID, env.roles["Supervisor"].ID, u1.ID, "")
	require.NoError(t, err)

	_, err = env.approvals.RejectStep(ctx, doc.ID, env.roles["Supervisor"].ID, u1.ID, "changed my mind")
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.False(t, apperror.IsRetryable(err))

	progress, err := env.approvals.GetDocumentProgress(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StepApproved, progress.Steps[0].Status)
	require.NotNil(t, progress.Steps[0].ApprovedAt)
	assert.Equal(t, first.ApprovedAt.UTC().Unix(), mustParseRFC3339(t, *progress.Steps[0].ApprovedAt).Unix())
	assert.Empty(t, progress.Steps[0].Remarks)
}

func TestApproval_MultiAssigneeFirstMoverWins(t *testing.T) {
	env := newTestEnv(t, approval.PlaceholderDepartment, "Supervisor", "Manager")
	env.department(t, "Finance")
	a := env.user(t, "a", "Finance", "Supervisor")
	b := env.user(t, "b", "Finance", "Supervisor")
	env.user(t, "m", "Finance", "Manager")
	ctx := context.Background()

	doc := env.createDoc(t, "PR-103", "Finance")
	assert.True(t, env.canAct(t, doc.ID, "a"))
	assert.True(t, env.canAct(t, doc.ID, "b"))

	res, err := env.approvals.ApproveStep(ctx, doc.ID, env.roles["Supervisor"].ID, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.Percent)

	assert.False(t, env.canAct(t, doc.ID, "a"))
	assert.True(t, env.canAct(t, doc.ID, "m"))

	_, err = env.approvals.RejectStep(ctx, doc.ID, env.roles["Supervisor"].ID, a.ID, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	progress, err := env.approvals.GetDocumentProgress(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, progress.Steps, 3)
	statuses := map[string]string{}
	for _, st := range progress.Steps {
		statuses[st.Username] = st.Status
	}
	assert.Equal(t, model.StepPending, statuses["a"], "unresolved member stays pending")
	assert.Equal(t, model.StepApproved, statuses["b"])
}

func TestApproval_PlaceholderPolicy(t *testing.T) {
	setup := func(t *testing.T, policy approval.PlaceholderPolicy) (*testEnv, *DocumentResponse) {
		env := newTestEnv(t, policy, "Supervisor", "Manager")
		env.department(t, "Finance")
		env.department(t, "Logistics")
		env.user(t, "sup", "Finance", "Supervisor")
		env.user(t, "mgr-elsewhere", "Logistics", "Manager")
		return env, env.createDoc(t, "PR-104", "Finance")
	}

	t.Run("department", func(t *testing.T) {
		env, doc := setup(t, approval.PlaceholderDepartment)
		ctx := context.Background()
		local := env.user(t, "mgr-local", "Finance", "")

		// placeholder is not current yet
		assert.False(t, env.canAct(t, doc.ID, "mgr-elsewhere"))
		_, err := env.approvals.ApproveStep(ctx, doc.ID, env.roles["Supervisor"].ID, env.users["sup"].ID, "")
		require.NoError(t, err)

		assert.False(t, env.canAct(t, doc.ID, "mgr-elsewhere"))
		_, err = env.approvals.ApproveStep(ctx, doc.ID, env.roles["Manager"].ID, env.users["mgr-elsewhere"].ID, "")
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)

		// a Finance user who later takes the Manager role may resolve the placeholder
		require.NoError(t, env.db.Model(&model.User{}).Where("id = ?", local.ID).
			Update("approval_role_id", env.roles["Manager"].ID).Error)
		env.users["mgr-local"] = local
		assert.True(t, env.canAct(t, doc.ID, "mgr-local"))

		res, err := env.approvals.ApproveStep(ctx, doc.ID, env.roles["Manager"].ID, local.ID, "covering")
		require.NoError(t, err)
		assert.Equal(t, model.DocumentApproved, res.DocumentStatus)
		assert.Equal(t, local.ID, res.ActedBy)
	})

	t.Run("global", func(t *testing.T) {
		env, doc := setup(t, approval.PlaceholderGlobal)
		ctx := context.Background()

		_, err := env.approvals.ApproveStep(ctx, doc.ID, env.roles["Supervisor"].ID, env.users["sup"].ID, "")
		require.NoError(t, err)
		assert.True(t, env.canAct(t, doc.ID, "mgr-elsewhere"))

		res, err := env.approvals.ApproveStep(ctx, doc.ID, env.roles["Manager"].ID, env.users["mgr-elsewhere"].ID, "")
		require.NoError(t, err)
		assert.Equal(t, 100.0, res.Percent)
	})
}

func TestApproval_ConcurrentApprovalsResolveOnce(t *testing.T) {
	env := newTestEnv(t, approval.PlaceholderDepartment, "Supervisor", "Manager")
	env.department(t, "Finance")
	a := env.user(t, "a", "Finance", "Supervisor")
	b := env.user(t, "b", "Finance", "Supervisor")
	env.user(t, "m", "Finance", "Manager")
	doc := env.createDoc(t, "PR-105", "Finance")

	actors := []uint{a.ID, b.ID, a.ID, b.ID}
	errs := make([]error, len(actors))
	var wg sync.WaitGroup
	for i, userID := range actors {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			_, errs[i] = env.approvals.ApproveStep(context.Background(), doc.ID, env.roles["Supervisor"].ID, userID, "")
		}(i, userID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperror.ErrInvalidState)
	}
	assert.Equal(t, 1, succeeded)

	var approved int64
	require.NoError(t, env.db.Model(&model.ApprovalStep{}).
		Where("document_id = ? AND status = ?", doc.ID, model.StepApproved).Count(&approved).Error)
	assert.EqualValues(t, 1, approved)

	progress, err := env.approvals.GetDocumentProgress(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, progress.Percent)
}

func TestListActionable(t *testing.T) {
	env := newTestEnv(t, approval.PlaceholderDepartment, "Supervisor", "Manager")
	env.department(t, "Finance")
	env.department(t, "Logistics")
	sup := env.user(t, "sup", "Finance", "Supervisor")
	mgr := env.user(t, "mgr", "Finance", "Manager")
	env.user(t, "mgr-log", "Logistics", "Manager")
	ctx := context.Background()

	ready := env.createDoc(t, "PR-200", "Finance")
	waiting := env.createDoc(t, "PR-201", "Finance")
	env.createDoc(t, "PR-202", "Logistics")

	_, err := env.approvals.ApproveStep(ctx, ready.ID, env.roles["Supervisor"].ID, sup.ID, "")
	require.NoError(t, err)

	docs, err := env.approvals.ListActionable(ctx, mgr.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, ready.ID, docs[0].ID)

	docs, err = env.approvals.ListActionable(ctx, sup.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, waiting.ID, docs[0].ID)

	// the Logistics supervisor slot is a placeholder nobody in Logistics holds yet
	docs, err = env.approvals.ListActionable(ctx, env.users["mgr-log"].ID)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = env.approvals.ListActionable(ctx, 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
