package service

import (
	"context"
	"strconv"

	"docapproval/internal/apperror"
	"docapproval/internal/model"
	"docapproval/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     *uint  `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
	GetDocumentHistory(ctx context.Context, documentID uint) ([]AuditLogResponse, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns the newest entries first.
func (s *auditService) GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, apperror.FromDB(err, "audit logs", "list")
	}
	return toAuditResponses(logs), total, nil
}

// GetDocumentHistory returns the creation, approval and rejection trail of one document, oldest first.
func (s *auditService) GetDocumentHistory(ctx context.Context, documentID uint) ([]AuditLogResponse, error) {
	logs, err := s.repo.ListByEntity(ctx, strconv.FormatUint(uint64(documentID), 10), []string{
		model.ActionCreateDocument,
		model.ActionApproveStep,
		model.ActionRejectStep,
		model.ActionDeleteDocument,
	})
	if err != nil {
		return nil, apperror.FromDB(err, "audit logs", documentID)
	}
	return toAuditResponses(logs), nil
}

func toAuditResponses(logs []model.AuditLog) []AuditLogResponse {
	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		if l.User != nil {
			username = l.User.Username
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     l.UserID,
			Username:   username,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res
}
