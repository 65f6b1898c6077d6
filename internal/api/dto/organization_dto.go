package dto

import "time"

// CreateOrganizationRequest payload.
type CreateOrganizationRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"max=50"`
	Address    string `json:"address" validate:"max=500"`
	City       string `json:"city" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	Country    string `json:"country" validate:"max=100"`
	Notes      string `json:"notes" validate:"max=2000"`
}

// UpdateServiceStatusRequest payload.
type UpdateServiceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE SUSPENDED EXPIRED"`
	Reason string `json:"reason" validate:"required"`
}

// ReasonRequest carries the reason of a state change.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ContactInfoRequest payload.
type ContactInfoRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"max=50"`
	Address string `json:"address" validate:"max=500"`
}

// RenewContractRequest payload.
type RenewContractRequest struct {
	ContractEndDate time.Time `json:"contract_end_date" validate:"required"`
}

// OrganizationResponse describes an organization.
type OrganizationResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone,omitempty"`
	Address           string     `json:"address,omitempty"`
	City              string     `json:"city,omitempty"`
	PostalCode        string     `json:"postal_code,omitempty"`
	Country           string     `json:"country,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	ServiceStatus     string     `json:"service_status"`
	ContractStartDate *time.Time `json:"contract_start_date"`
	ContractEndDate   *time.Time `json:"contract_end_date"`
	HasAPICredential  bool       `json:"has_api_credential"`
	Version           int64      `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at"`
}

// CredentialResponse returns a freshly issued secret once.
type CredentialResponse struct {
	Token  string `json:"token"`
	Masked string `json:"masked"`
}
