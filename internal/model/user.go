package model

import (
	"time"

	"gorm.io/gorm"
)

// User is an account that may hold one approval role within one department
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Username       string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email          string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password       string         `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash
	DepartmentID   *uint          `gorm:"index" json:"department_id"`
	Department     *Department    `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	ApprovalRoleID *uint          `gorm:"index" json:"approval_role_id"` // nil = not an approver
	ApprovalRole   *Role          `gorm:"foreignKey:ApprovalRoleID" json:"approval_role,omitempty"`
	IsAdmin        bool           `gorm:"default:false" json:"is_admin"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}
