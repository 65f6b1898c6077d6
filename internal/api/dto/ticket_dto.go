package dto

import "time"

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	OrganizationID string `json:"organization_id" validate:"required,uuid"`
	MachineID      string `json:"machine_id" validate:"required,uuid"`
	Title          string `json:"title" validate:"required,max=255"`
	Description    string `json:"description" validate:"max=5000"`
	Priority       string `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeUserID string `json:"assignee_user_id" validate:"required,uuid"`
}

// UpdateTicketStatusRequest payload.
type UpdateTicketStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=NEW IN_PROGRESS RESOLVED CLOSED REOPENED"`
	Reason string `json:"reason" validate:"required"`
}

// TicketResponse describes a ticket.
type TicketResponse struct {
	ID               string     `json:"id"`
	TicketNumber     string     `json:"ticket_number"`
	OrganizationID   string     `json:"organization_id"`
	MachineID        string     `json:"machine_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Priority         string     `json:"priority"`
	Status           string     `json:"status"`
	CreatedByUserID  string     `json:"created_by_user_id"`
	AssignedToUserID *string    `json:"assigned_to_user_id"`
	ResolvedAt       *time.Time `json:"resolved_at"`
	ClosedAt         *time.Time `json:"closed_at"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

// EventResponse lists an event a request committed.
type EventResponse struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
}
