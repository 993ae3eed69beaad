package repository

import (
	"context"

	"docapproval/internal/model"

	"gorm.io/gorm"
)

// StepRepository reads and updates approval steps. Steps are only ever created
// together with their document and never removed on their own.
type StepRepository interface {
	CreateBatch(ctx context.Context, steps []model.ApprovalStep) error
	ListByDocument(ctx context.Context, documentID uint) ([]model.ApprovalStep, error)
	ListByDocuments(ctx context.Context, documentIDs []uint) (map[uint][]model.ApprovalStep, error)
	UpdateAction(ctx context.Context, step *model.ApprovalStep) (bool, error)
	DeleteByDocument(ctx context.Context, documentID uint) error
}

type stepRepository struct {
	db *gorm.DB
}

func NewStepRepository(db *gorm.DB) StepRepository {
	return &stepRepository{db: db}
}

func (r *stepRepository) CreateBatch(ctx context.Context, steps []model.ApprovalStep) error {
	if len(steps) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Omit("Role", "User").Create(&steps).Error
}

func (r *stepRepository) ListByDocument(ctx context.Context, documentID uint) ([]model.ApprovalStep, error) {
	var steps []model.ApprovalStep
	err := GetDB(ctx, r.db).
		Preload("Role").
		Preload("User").
		Where("document_id = ?", documentID).
		Order("id asc").
		Find(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *stepRepository) ListByDocuments(ctx context.Context, documentIDs []uint) (map[uint][]model.ApprovalStep, error) {
	out := make(map[uint][]model.ApprovalStep, len(documentIDs))
	if len(documentIDs) == 0 {
		return out, nil
	}

	var steps []model.ApprovalStep
	if err := GetDB(ctx, r.db).Where("document_id IN ?", documentIDs).Order("id asc").Find(&steps).Error; err != nil {
		return nil, err
	}
	for _, s := range steps {
		out[s.DocumentID] = append(out[s.DocumentID], s)
	}
	return out, nil
}

// UpdateAction persists a transition only if the row is still pending. It
// returns false when another transaction resolved the step first.
func (r *stepRepository) UpdateAction(ctx context.Context, step *model.ApprovalStep) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.ApprovalStep{}).
		Where("id = ? AND status = ?", step.ID, model.StepPending).
		Updates(map[string]interface{}{
			"status":      step.Status,
			"approved_at": step.ApprovedAt,
			"acted_by":    step.ActedBy,
			"remarks":     step.Remarks,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *stepRepository) DeleteByDocument(ctx context.Context, documentID uint) error {
	return GetDB(ctx, r.db).Where("document_id = ?", documentID).Delete(&model.ApprovalStep{}).Error
}
