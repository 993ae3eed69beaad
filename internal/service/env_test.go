package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"docapproval/internal/approval"
	"docapproval/internal/model"
	"docapproval/internal/repository"
	"docapproval/internal/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(event interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(Event); ok {
		p.events = append(p.events, e)
	}
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// testEnv wires real repositories over an in-memory database.
type testEnv struct {
	db        *gorm.DB
	roles     map[string]model.Role
	depts     map[string]model.Department
	users     map[string]model.User
	events    *recordingPublisher
	documents DocumentService
	approvals ApprovalService
	audits    AuditService
	roleSvc   RoleService
}

func uintPtr(v uint) *uint { return &v }

func newTestEnv(t *testing.T, policy approval.PlaceholderPolicy, roleNames ...string) *testEnv {
	t.Helper()
	db := testutil.OpenDB(t)
	log := zap.NewNop()

	txManager := repository.NewTransactionManager(db)
	docRepo := repository.NewDocumentRepository(db)
	stepRepo := repository.NewStepRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	env := &testEnv{
		db:     db,
		roles:  map[string]model.Role{},
		depts:  map[string]model.Department{},
		users:  map[string]model.User{},
		events: &recordingPublisher{},
	}
	env.documents = NewDocumentService(txManager, docRepo, stepRepo, roleRepo, auditRepo,
		approval.NewAssigner(userRepo, deptRepo), env.events, log)
	env.approvals = NewApprovalService(txManager, docRepo, stepRepo, roleRepo, userRepo, auditRepo,
		approval.NewAuthorizer(policy), env.events, log)
	env.audits = NewAuditService(auditRepo)
	env.roleSvc = NewRoleService(txManager, roleRepo, auditRepo, log)

	for i, name := range roleNames {
		role := model.Role{Name: name, Sequence: i + 1}
		require.NoError(t, roleRepo.Create(context.Background(), &role))
		env.roles[name] = role
	}
	return env
}

func (e *testEnv) department(t *testing.T, name string) model.Department {
	t.Helper()
	dept := model.Department{Name: name}
	require.NoError(t, e.db.Create(&dept).Error)
	e.depts[name] = dept
	return dept
}

// user creates an account; an empty role name means no approval role.
func (e *testEnv) user(t *testing.T, name, dept, role string) model.User {
	t.Helper()
	u := model.User{Username: name, Email: name + "@example.com", Password: "x"}
	if dept != "" {
		u.DepartmentID = uintPtr(e.depts[dept].ID)
	}
	if role != "" {
		u.ApprovalRoleID = uintPtr(e.roles[role].ID)
	}
	require.NoError(t, e.db.Create(&u).Error)
	e.users[name] = u
	return u
}

func (e *testEnv) createDoc(t *testing.T, ref, dept string) *DocumentResponse {
	t.Helper()
	req := CreateDocumentRequest{
		ReferenceNo:  ref,
		DocumentType: model.DocTypePurchaseRequest,
		Purpose:      "Office supplies",
		Date:         "2026-03-01",
	}
	if dept != "" {
		req.DepartmentID = uintPtr(e.depts[dept].ID)
	}
	doc, err := e.documents.CreateDocumentWithApprovalChain(context.Background(), req, 0)
	require.NoError(t, err)
	return doc
}

func (e *testEnv) canAct(t *testing.T, docID uint, user string) bool {
	t.Helper()
	ok, err := e.approvals.CanUserAct(context.Background(), docID, e.users[user].ID)
	require.NoError(t, err)
	return ok
}

func (e *testEnv) stepCount(t *testing.T, docID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.ApprovalStep{}).Where("document_id = ?", docID).Count(&n).Error)
	return n
}

func mustParseRFC3339(t *testing.T, v string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, v)
	require.NoError(t, err)
	return ts
}
