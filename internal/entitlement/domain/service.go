// Package domain defines the quota gate guarding workspace resource creation.
package domain

import (
	"context"
	"errors"
)

var ErrUnknownEntityType = errors.New("unknown_entity_type")

// EntityCollections maps quota-governed entity types to the document
// collections they are stored in.
var EntityCollections = map[string]string{
	"estimation":    "planning_poker_sessions",
	"eisenhower":    "eisenhower_matrices",
	"smart_todo":    "smart_todo_lists",
	"retrospective": "retrospectives",
	"agile_project": "agile_projects",
}

// CheckRequest identifies the caller and the resource they want to create.
type CheckRequest struct {
	UserID     string
	Email      string
	EntityType string
}

// Decision is the gate's verdict. When the tier is unlimited, CurrentCount is
// zero because counting is skipped.
type Decision struct {
	Allowed      bool   `json:"allowed"`
	CurrentCount int    `json:"currentCount"`
	Limit        int    `json:"limit"`
	Tier         string `json:"tier"`
}

// Service is the entitlement gate. Read-only and advisory: concurrent checks
// can both pass before either creation lands, which is accepted. There is no
// reservation step.
type Service interface {
	CheckCreationAllowed(ctx context.Context, req CheckRequest) (Decision, error)
}
