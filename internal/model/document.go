package model

import (
	"time"
)

// DocumentType enum constants
const (
	DocTypePurchaseRequest     = "PURCHASE_REQUEST"
	DocTypePurchaseOrder       = "PURCHASE_ORDER"
	DocTypeDisbursementVoucher = "DISBURSEMENT_VOUCHER"
	DocTypeJournalVoucher      = "JOURNAL_VOUCHER"
)

// DocumentTypes lists every accepted document type.
var DocumentTypes = []string{
	DocTypePurchaseRequest,
	DocTypePurchaseOrder,
	DocTypeDisbursementVoucher,
	DocTypeJournalVoucher,
}

// Document status values. Only the approval engine writes DocumentStatus.
const (
	DocumentPending  = "Pending"
	DocumentApproved = "Approved"
	DocumentRejected = "Rejected"
)

// Document is a submitted paper that travels through the approval chain.
// Everything except DocumentStatus is fixed at creation.
type Document struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ReferenceNo    string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"reference_no"`
	DocumentType   string         `gorm:"type:varchar(30);not null;index" json:"document_type"`
	Purpose        string         `gorm:"type:text" json:"purpose"`
	Supplier       string         `gorm:"type:varchar(255)" json:"supplier"`
	OIC            bool           `gorm:"column:oic;default:false" json:"oic"`
	Date           time.Time      `gorm:"type:date;not null" json:"date"`
	DepartmentID   *uint          `gorm:"index" json:"department_id"` // nil = outside the workflow
	Department     *Department    `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	DocumentStatus string         `gorm:"type:varchar(20);not null;default:'Pending';index" json:"document_status"`
	CreatedBy      *uint          `gorm:"index" json:"created_by"`
	Steps          []ApprovalStep `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"steps,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
