package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docapproval/internal/model"
	"docapproval/internal/repository"
)

// Event types pushed to websocket subscribers after a commit.
const (
	EventDocumentCreated = "document.created"
	EventDocumentDeleted = "document.deleted"
	EventStepApproved    = "step.approved"
	EventStepRejected    = "step.rejected"
)

// Event is the payload broadcast for every committed change.
type Event struct {
	Type           string    `json:"type"`
	DocumentID     uint      `json:"document_id"`
	ReferenceNo    string    `json:"reference_no,omitempty"`
	RoleID         uint      `json:"role_id,omitempty"`
	UserID         uint      `json:"user_id,omitempty"`
	DocumentStatus string    `json:"document_status,omitempty"`
	Percent        float64   `json:"percent"`
	At             time.Time `json:"at"`
}

// EventPublisher delivers events to connected clients. Publishing must not block.
type EventPublisher interface {
	Publish(event interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(interface{}) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// writeAudit records one audit row inside the caller's transaction.
func writeAudit(ctx context.Context, repo repository.AuditRepository, userID *uint, action, entityID, entityName string, details interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	entry := &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func uintRef(v uint) *uint {
	if v == 0 {
		return nil
	}
	return &v
}
