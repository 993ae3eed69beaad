package repository

import (
	"context"

	"docapproval/internal/model"

	"gorm.io/gorm"
)

// DocumentFilter narrows document listings. Zero values mean no filter.
type DocumentFilter struct {
	Status       string
	DepartmentID *uint
	Page         int
	Limit        int
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id uint) (*model.Document, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Document, error)
	ExistsByReferenceNo(ctx context.Context, referenceNo string) (bool, error)
	List(ctx context.Context, filter DocumentFilter) ([]model.Document, int64, error)
	ListPendingForApprover(ctx context.Context, userID uint, approvalRoleID *uint) ([]model.Document, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	Delete(ctx context.Context, id uint) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	return GetDB(ctx, r.db).Omit("Steps").Create(doc).Error
}

func (r *documentRepository) FindByID(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := GetDB(ctx, r.db).Preload("Department").First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByIDForUpdate locks the document row for the rest of the transaction so
// every transition on the same document is serialized.
func (r *documentRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := forUpdate(ctx, r.db).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) ExistsByReferenceNo(ctx context.Context, referenceNo string) (bool, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&model.Document{}).Where("reference_no = ?", referenceNo).Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

func (r *documentRepository) List(ctx context.Context, filter DocumentFilter) ([]model.Document, int64, error) {
	var docs []model.Document
	var total int64

	db := GetDB(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("document_status = ?", filter.Status)
		}
		if filter.DepartmentID != nil {
			q = q.Where("department_id = ?", *filter.DepartmentID)
		}
		return q
	}

	if err := scope(db.Model(&model.Document{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := scope(db.Preload("Department")).Order("created_at DESC, id DESC").Offset(offset).Limit(filter.Limit).Find(&docs).Error; err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// ListPendingForApprover returns pending documents holding a pending step
// assigned to userID, or a pending placeholder for the user's approval role.
// Callers still have to check whether that step is the current one.
func (r *documentRepository) ListPendingForApprover(ctx context.Context, userID uint, approvalRoleID *uint) ([]model.Document, error) {
	sub := GetDB(ctx, r.db).Model(&model.ApprovalStep{}).
		Select("document_id").
		Where("status = ?", model.StepPending)
	if approvalRoleID != nil {
		sub = sub.Where("user_id = ? OR (user_id IS NULL AND role_id = ?)", userID, *approvalRoleID)
	} else {
		sub = sub.Where("user_id = ?", userID)
	}

	var docs []model.Document
	err := GetDB(ctx, r.db).
		Where("document_status = ? AND id IN (?)", model.DocumentPending, sub).
		Order("created_at ASC, id ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return GetDB(ctx, r.db).Model(&model.Document{}).Where("id = ?", id).Update("document_status", status).Error
}

func (r *documentRepository) Delete(ctx context.Context, id uint) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
