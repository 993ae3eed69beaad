package model

import (
	"time"
)

// Step status values. approved and rejected are terminal.
const (
	StepPending  = "pending"
	StepApproved = "approved"
	StepRejected = "rejected"
)

// ApprovalStep is one assignment of a role (and optionally a user) to a document.
// A nil UserID marks a placeholder: the department had nobody holding the role.
type ApprovalStep struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	DocumentID uint       `gorm:"not null;index:idx_step_document_role,priority:1" json:"document_id"`
	RoleID     uint       `gorm:"not null;index:idx_step_document_role,priority:2" json:"role_id"`
	Role       *Role      `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	UserID     *uint      `gorm:"index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status     string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ApprovedAt *time.Time `json:"approved_at"`
	ActedBy    *uint      `json:"acted_by"` // who resolved the step; differs from UserID only for placeholders
	Remarks    string     `gorm:"type:text" json:"remarks"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsPlaceholder reports whether the step was created without an assignee.
func (s ApprovalStep) IsPlaceholder() bool {
	return s.UserID == nil
}

// IsTerminal reports whether the step has been approved or rejected.
func (s ApprovalStep) IsTerminal() bool {
	return s.Status == StepApproved || s.Status == StepRejected
}
