package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"docapproval/internal/apperror"
	"docapproval/internal/approval"
	"docapproval/internal/model"
	"docapproval/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type ActionRequest struct {
	Remarks string `json:"remarks"`
}

// ActionResult describes the step an approve or reject resolved and the
// document state after the commit.
type ActionResult struct {
	DocumentID     uint       `json:"document_id"`
	RoleID         uint       `json:"role_id"`
	StepID         uint       `json:"step_id"`
	StepStatus     string     `json:"step_status"`
	ActedBy        uint       `json:"acted_by"`
	ApprovedAt     *time.Time `json:"approved_at"`
	DocumentStatus string     `json:"document_status"`
	Percent        float64    `json:"percent"`
}

type StepResponse struct {
	ID          uint    `json:"id"`
	RoleID      uint    `json:"role_id"`
	RoleName    string  `json:"role_name"`
	Sequence    int     `json:"sequence"`
	UserID      *uint   `json:"user_id"`
	Username    string  `json:"username,omitempty"`
	Placeholder bool    `json:"placeholder"`
	Status      string  `json:"status"`
	ApprovedAt  *string `json:"approved_at"`
	ActedBy     *uint   `json:"acted_by"`
	Remarks     string  `json:"remarks,omitempty"`
}

type ProgressResponse struct {
	DocumentID    uint           `json:"document_id"`
	Status        string         `json:"status"`
	Percent       float64        `json:"percent"`
	Approved      int            `json:"approved"`
	Total         int            `json:"total"`
	CurrentRoleID *uint          `json:"current_role_id"`
	Steps         []StepResponse `json:"steps"`
}

// --- Interface ---

type ApprovalService interface {
	ApproveStep(ctx context.Context, documentID, roleID, userID uint, remarks string) (ActionResult, error)
	RejectStep(ctx context.Context, documentID, roleID, userID uint, remarks string) (ActionResult, error)
	GetDocumentProgress(ctx context.Context, documentID uint) (ProgressResponse, error)
	CanUserAct(ctx context.Context, documentID, userID uint) (bool, error)
	ListActionable(ctx context.Context, userID uint) ([]DocumentResponse, error)
}

type approvalService struct {
	txManager  repository.TransactionManager
	docRepo    repository.DocumentRepository
	stepRepo   repository.StepRepository
	roleRepo   repository.RoleRepository
	userRepo   repository.UserRepository
	auditRepo  repository.AuditRepository
	authorizer *approval.Authorizer
	events     EventPublisher
	log        *zap.Logger
	now        func() time.Time
}

func NewApprovalService(
	txManager repository.TransactionManager,
	docRepo repository.DocumentRepository,
	stepRepo repository.StepRepository,
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	authorizer *approval.Authorizer,
	events EventPublisher,
	log *zap.Logger,
) ApprovalService {
	return &approvalService{
		txManager:  txManager,
		docRepo:    docRepo,
		stepRepo:   stepRepo,
		roleRepo:   roleRepo,
		userRepo:   userRepo,
		auditRepo:  auditRepo,
		authorizer: authorizer,
		events:     publisherOrNop(events),
		log:        log,
		now:        time.Now,
	}
}

// --- Implementation ---

func (s *approvalService) ApproveStep(ctx context.Context, documentID, roleID, userID uint, remarks string) (ActionResult, error) {
	return s.act(ctx, documentID, roleID, userID, remarks, approval.ActionApprove)
}

func (s *approvalService) RejectStep(ctx context.Context, documentID, roleID, userID uint, remarks string) (ActionResult, error) {
	return s.act(ctx, documentID, roleID, userID, remarks, approval.ActionReject)
}

// act runs one transition atomically: lock the document, authorize against
// the current role-group, persist the step only if it is still pending, then
// recompute and persist the document status.
func (s *approvalService) act(ctx context.Context, documentID, roleID, userID uint, remarks string, action approval.Action) (ActionResult, error) {
	var result ActionResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		doc, err := s.docRepo.FindByIDForUpdate(txCtx, documentID)
		if err != nil {
			return apperror.FromDB(err, "document", documentID)
		}

		user, err := s.userRepo.GetByID(txCtx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Newf(apperror.CodeUnauthorized, "user %d does not exist", userID)
			}
			return apperror.FromDB(err, "user", userID)
		}

		reg, err := approval.LoadRegistry(txCtx, s.roleRepo)
		if err != nil {
			return err
		}
		steps, err := s.stepRepo.ListByDocument(txCtx, doc.ID)
		if err != nil {
			return apperror.FromDB(err, "approval steps", doc.ID)
		}

		step, err := s.authorizer.ResolveStep(reg, doc, steps, approval.ActorFromUser(user), roleID)
		if err != nil {
			return err
		}
		if err := approval.Transition(step, action, user.ID, remarks, s.now()); err != nil {
			return err
		}

		updated, err := s.stepRepo.UpdateAction(txCtx, step)
		if err != nil {
			return apperror.FromDB(err, "approval step", step.ID)
		}
		if !updated {
			return apperror.Newf(apperror.CodeInvalidState, "step %d was resolved concurrently", step.ID)
		}
		for i := range steps {
			if steps[i].ID == step.ID {
				steps[i] = *step
			}
		}

		progress := approval.Compute(reg, doc, steps)
		if progress.Status != doc.DocumentStatus {
			if err := s.docRepo.UpdateStatus(txCtx, doc.ID, progress.Status); err != nil {
				return apperror.FromDB(err, "document", doc.ID)
			}
		}

		auditAction := model.ActionApproveStep
		if action == approval.ActionReject {
			auditAction = model.ActionRejectStep
		}
		err = writeAudit(txCtx, s.auditRepo, &user.ID, auditAction, strconv.FormatUint(uint64(doc.ID), 10), doc.ReferenceNo, map[string]interface{}{
			"step_id":         step.ID,
			"role_id":         step.RoleID,
			"placeholder":     step.IsPlaceholder(),
			"remarks":         remarks,
			"document_status": progress.Status,
			"percent":         progress.Percent,
		})
		if err != nil {
			return err
		}

		result = ActionResult{
			DocumentID:     doc.ID,
			RoleID:         step.RoleID,
			StepID:         step.ID,
			StepStatus:     step.Status,
			ActedBy:        user.ID,
			ApprovedAt:     step.ApprovedAt,
			DocumentStatus: progress.Status,
			Percent:        progress.Percent,
		}
		return nil
	})
	if err != nil {
		s.log.Warn("approval action refused",
			zap.String("action", string(action)),
			zap.Uint("document_id", documentID),
			zap.Uint("role_id", roleID),
			zap.Uint("user_id", userID),
			zap.String("code", string(apperror.CodeOf(err))),
			zap.Error(err),
		)
		return ActionResult{}, err
	}

	s.log.Info("approval step resolved",
		zap.Uint("document_id", result.DocumentID),
		zap.Uint("role_id", result.RoleID),
		zap.Uint("user_id", result.ActedBy),
		zap.String("status", result.StepStatus),
		zap.String("document_status", result.DocumentStatus),
		zap.Float64("percent", result.Percent),
	)

	eventType := EventStepApproved
	if action == approval.ActionReject {
		eventType = EventStepRejected
	}
	s.events.Publish(Event{
		Type:           eventType,
		DocumentID:     result.DocumentID,
		RoleID:         result.RoleID,
		UserID:         result.ActedBy,
		DocumentStatus: result.DocumentStatus,
		Percent:        result.Percent,
		At:             s.now(),
	})
	return result, nil
}

func (s *approvalService) GetDocumentProgress(ctx context.Context, documentID uint) (ProgressResponse, error) {
	doc, steps, reg, err := s.load(ctx, documentID)
	if err != nil {
		return ProgressResponse{}, err
	}

	progress := approval.Compute(reg, doc, steps)
	res := ProgressResponse{
		DocumentID: doc.ID,
		Status:     progress.Status,
		Percent:    progress.Percent,
		Approved:   progress.Approved,
		Total:      progress.Total,
		Steps:      make([]StepResponse, 0, len(steps)),
	}

	groups := approval.GroupSteps(reg, steps)
	if cur, ok := approval.CurrentGroup(groups); ok {
		id := groups[cur].Role.ID
		res.CurrentRoleID = &id
	}
	for _, g := range groups {
		for _, st := range g.Steps {
			res.Steps = append(res.Steps, toStepResponse(g.Role, st))
		}
	}
	return res, nil
}

func (s *approvalService) CanUserAct(ctx context.Context, documentID, userID uint) (bool, error) {
	doc, steps, reg, err := s.load(ctx, documentID)
	if err != nil {
		return false, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, apperror.FromDB(err, "user", userID)
	}
	return s.authorizer.CanAct(reg, doc, steps, approval.ActorFromUser(user)), nil
}

// ListActionable returns the pending documents whose current role-group the user may resolve now.
func (s *approvalService) ListActionable(ctx context.Context, userID uint) ([]DocumentResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.FromDB(err, "user", userID)
	}

	candidates, err := s.docRepo.ListPendingForApprover(ctx, user.ID, user.ApprovalRoleID)
	if err != nil {
		return nil, apperror.FromDB(err, "documents", "pending")
	}

	reg, err := approval.LoadRegistry(ctx, s.roleRepo)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(candidates))
	for _, d := range candidates {
		ids = append(ids, d.ID)
	}
	stepsByDoc, err := s.stepRepo.ListByDocuments(ctx, ids)
	if err != nil {
		return nil, apperror.FromDB(err, "approval steps", ids)
	}

	actor := approval.ActorFromUser(user)
	res := make([]DocumentResponse, 0, len(candidates))
	for i := range candidates {
		doc := &candidates[i]
		steps := stepsByDoc[doc.ID]
		if !s.authorizer.CanAct(reg, doc, steps, actor) {
			continue
		}
		res = append(res, toDocumentResponse(doc, approval.Compute(reg, doc, steps)))
	}
	return res, nil
}

func (s *approvalService) load(ctx context.Context, documentID uint) (*model.Document, []model.ApprovalStep, *approval.Registry, error) {
	doc, err := s.docRepo.FindByID(ctx, documentID)
	if err != nil {
		return nil, nil, nil, apperror.FromDB(err, "document", documentID)
	}
	steps, err := s.stepRepo.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, nil, nil, apperror.FromDB(err, "approval steps", doc.ID)
	}
	reg, err := approval.LoadRegistry(ctx, s.roleRepo)
	if err != nil {
		return nil, nil, nil, err
	}
	return doc, steps, reg, nil
}

func toStepResponse(role model.Role, st model.ApprovalStep) StepResponse {
	res := StepResponse{
		ID:          st.ID,
		RoleID:      st.RoleID,
		RoleName:    role.Name,
		Sequence:    role.Sequence,
		UserID:      st.UserID,
		Placeholder: st.IsPlaceholder(),
		Status:      st.Status,
		ActedBy:     st.ActedBy,
		Remarks:     st.Remarks,
	}
	if st.User != nil {
		res.Username = st.User.Username
	}
	if st.ApprovedAt != nil {
		at := st.ApprovedAt.Format(time.RFC3339)
		res.ApprovedAt = &at
	}
	return res
}
