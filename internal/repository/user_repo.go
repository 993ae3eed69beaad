package repository

import (
	"context"

	"docapproval/internal/approval"
	"docapproval/internal/model"

	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	FindApproversByDepartment(ctx context.Context, departmentID uint) ([]approval.Approver, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindApproversByDepartment returns department members holding an approval role, ordered by user id.
func (r *userRepository) FindApproversByDepartment(ctx context.Context, departmentID uint) ([]approval.Approver, error) {
	var rows []struct {
		ID             uint
		ApprovalRoleID uint
	}
	err := GetDB(ctx, r.db).Model(&model.User{}).
		Select("users.id, users.approval_role_id").
		Joins("JOIN roles ON roles.id = users.approval_role_id").
		Where("users.department_id = ? AND users.approval_role_id IS NOT NULL", departmentID).
		Order("users.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	approvers := make([]approval.Approver, 0, len(rows))
	for _, row := range rows {
		approvers = append(approvers, approval.Approver{UserID: row.ID, ApprovalRoleID: row.ApprovalRoleID})
	}
	return approvers, nil
}
