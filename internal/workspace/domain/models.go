// Package domain models the shared workspace documents that quota checks
// count against. This service reads the collection; the main application
// writes it.
package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document is one user-created workspace resource. ParticipantEmails is a
// JSON array of the emails with access to the document.
type Document struct {
	ID                string         `gorm:"primaryKey"`
	DocType           string         `gorm:"index"`
	OwnerEmail        string         `gorm:"index"`
	CreatedBy         string         `gorm:"index"`
	ParticipantEmails datatypes.JSON `json:"participant_emails"`
	IsArchived        bool
	CreatedAt         time.Time
}

func (Document) TableName() string { return "workspace_documents" }

// Repository reads the document collection for entitlement counting.
type Repository interface {
	// ListByType returns all documents of the given type. Ownership and
	// archive filtering happens in the caller.
	ListByType(ctx context.Context, db *gorm.DB, docType string) ([]Document, error)
	Create(ctx context.Context, db *gorm.DB, doc *Document) error
}
