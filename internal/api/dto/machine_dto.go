package dto

import "time"

// RegisterMachineRequest payload.
type RegisterMachineRequest struct {
	OrganizationID string `json:"organization_id" validate:"required,uuid"`
	SerialNumber   string `json:"serial_number" validate:"required,max=100"`
	Brand          string `json:"brand" validate:"max=100"`
	Model          string `json:"model" validate:"max=100"`
	Location       string `json:"location" validate:"max=255"`
}

// UpdateMachineStatusRequest payload.
type UpdateMachineStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=INACTIVE ACTIVE MAINTENANCE ALARM"`
	Reason string `json:"reason" validate:"required"`
}

// MaintenanceRequest schedules or completes maintenance.
type MaintenanceRequest struct {
	Date       time.Time `json:"date" validate:"required"`
	IntervalID *string   `json:"interval_id" validate:"omitempty,uuid"`
}

// LocationRequest payload.
type LocationRequest struct {
	Location string `json:"location" validate:"max=255"`
}

// CreateIntervalRequest payload.
type CreateIntervalRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Days int    `json:"days" validate:"required,min=1"`
}

// MachineResponse describes a machine.
type MachineResponse struct {
	ID                    string     `json:"id"`
	OrganizationID        string     `json:"organization_id"`
	SerialNumber          string     `json:"serial_number"`
	Brand                 string     `json:"brand,omitempty"`
	Model                 string     `json:"model,omitempty"`
	Location              string     `json:"location,omitempty"`
	Status                string     `json:"status"`
	HasAPIToken           bool       `json:"has_api_token"`
	LastMaintenanceDate   *time.Time `json:"last_maintenance_date"`
	NextMaintenanceDate   *time.Time `json:"next_maintenance_date"`
	MaintenanceIntervalID *string    `json:"maintenance_interval_id"`
	Version               int64      `json:"version"`
	CreatedAt             time.Time  `json:"created_at"`
}

// IntervalResponse describes a maintenance interval.
type IntervalResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Days int    `json:"days"`
}
