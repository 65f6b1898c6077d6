package domain

import "time"

// ServiceStatus is an organization's contractual standing.
type ServiceStatus string

const (
	ServiceStatusActive    ServiceStatus = "ACTIVE"
	ServiceStatusSuspended ServiceStatus = "SUSPENDED"
	ServiceStatusExpired   ServiceStatus = "EXPIRED"
)

// Valid reports whether s is a known service status.
func (s ServiceStatus) Valid() bool {
	switch s {
	case ServiceStatusActive, ServiceStatusSuspended, ServiceStatusExpired:
		return true
	}
	return false
}

const (
	maxOrganizationNameLength = 255
	maxPhoneLength            = 50
	maxAddressLength          = 500
	maxCityLength             = 100
	maxPostalCodeLength       = 20
	maxCountryLength          = 100
	maxNotesLength            = 2000

	reasonContractExpired    = "contract expired"
	reasonServiceReactivated = "service reactivated"
	reasonContractRenewed    = "contract renewed"
)

// NewOrganizationParams carries the factory inputs. Empty optional fields mean absent.
type NewOrganizationParams struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
	Country    string
	Notes      string
}

// OrganizationState is the persisted form of an Organization.
type OrganizationState struct {
	AggregateState
	Name              string
	Email             string
	Phone             string
	Address           string
	City              string
	PostalCode        string
	Country           string
	Notes             string
	ServiceStatus     ServiceStatus
	ContractStartDate *time.Time
	ContractEndDate   *time.Time
	APICredential     string
}

// Organization is a client company with a service contract.
type Organization struct {
	aggregateBase
	name          string
	email         Email
	phone         string
	address       string
	city          string
	postalCode    string
	country       string
	notes         string
	status        ServiceStatus
	contractStart *time.Time
	contractEnd   *time.Time
	credential    MachineCredential
}

// NewOrganization validates every field and emits OrganizationCreated.
func NewOrganization(params NewOrganizationParams, clock Clock) (*Organization, error) {
	const op = "organization.create"
	name, err := requiredText(op, "name", params.Name, maxOrganizationNameLength)
	if err != nil {
		return nil, err
	}
	email, err := NewEmail(params.Email)
	if err != nil {
		return nil, err
	}
	phone, err := optionalText(op, "phone", params.Phone, maxPhoneLength)
	if err != nil {
		return nil, err
	}
	address, err := optionalText(op, "address", params.Address, maxAddressLength)
	if err != nil {
		return nil, err
	}
	city, err := optionalText(op, "city", params.City, maxCityLength)
	if err != nil {
		return nil, err
	}
	postal, err := optionalText(op, "postal_code", params.PostalCode, maxPostalCodeLength)
	if err != nil {
		return nil, err
	}
	country, err := optionalText(op, "country", params.Country, maxCountryLength)
	if err != nil {
		return nil, err
	}
	notes, err := optionalText(op, "notes", params.Notes, maxNotesLength)
	if err != nil {
		return nil, err
	}

	o := &Organization{
		aggregateBase: newAggregateBase(clock),
		name:          name,
		email:         email,
		phone:         phone,
		address:       address,
		city:          city,
		postalCode:    postal,
		country:       country,
		notes:         notes,
		status:        ServiceStatusActive,
	}
	o.record(OrganizationCreated{
		eventMeta: o.meta(o.audit.CreatedAt),
		Name:      o.name,
		Email:     o.email.String(),
	})
	return o, nil
}

// RestoreOrganization rebuilds an Organization from storage without emitting events.
func RestoreOrganization(state OrganizationState, clock Clock) (*Organization, error) {
	email, err := NewEmail(state.Email)
	if err != nil {
		return nil, err
	}
	o := &Organization{
		aggregateBase: restoreAggregateBase(state.AggregateState, clock),
		name:          state.Name,
		email:         email,
		phone:         state.Phone,
		address:       state.Address,
		city:          state.City,
		postalCode:    state.PostalCode,
		country:       state.Country,
		notes:         state.Notes,
		status:        state.ServiceStatus,
		contractStart: copyTime(state.ContractStartDate),
		contractEnd:   copyTime(state.ContractEndDate),
	}
	if state.APICredential != "" {
		cred, err := ParseMachineCredential(state.APICredential)
		if err != nil {
			return nil, err
		}
		o.credential = cred
	}
	return o, nil
}

// State snapshots the organization for persistence.
func (o *Organization) State() OrganizationState {
	return OrganizationState{
		AggregateState:    o.state(),
		Name:              o.name,
		Email:             o.email.String(),
		Phone:             o.phone,
		Address:           o.address,
		City:              o.city,
		PostalCode:        o.postalCode,
		Country:           o.country,
		Notes:             o.notes,
		ServiceStatus:     o.status,
		ContractStartDate: copyTime(o.contractStart),
		ContractEndDate:   copyTime(o.contractEnd),
		APICredential:     o.credential.Value(),
	}
}

func (o *Organization) AggregateType() AggregateType { return AggregateOrganization }

func (o *Organization) Name() string                     { return o.name }
func (o *Organization) Email() Email                     { return o.email }
func (o *Organization) Phone() string                    { return o.phone }
func (o *Organization) Address() string                  { return o.address }
func (o *Organization) City() string                     { return o.city }
func (o *Organization) PostalCode() string               { return o.postalCode }
func (o *Organization) Country() string                  { return o.country }
func (o *Organization) Notes() string                    { return o.notes }
func (o *Organization) ServiceStatus() ServiceStatus     { return o.status }
func (o *Organization) ContractStartDate() *time.Time    { return copyTime(o.contractStart) }
func (o *Organization) ContractEndDate() *time.Time      { return copyTime(o.contractEnd) }
func (o *Organization) APICredential() MachineCredential { return o.credential }

// CanRegisterMachines is true only while the service is Active.
func (o *Organization) CanRegisterMachines() bool {
	return o.status == ServiceStatusActive
}

// UpdateServiceStatus changes status generically. Same-status calls are silent no-ops.
func (o *Organization) UpdateServiceStatus(newStatus ServiceStatus, reason string) ([]Event, error) {
	const op = "organization.update_service_status"
	reason, err := requiredReason(op, reason)
	if err != nil {
		return nil, err
	}
	if !newStatus.Valid() {
		return nil, InvalidArgument(op, "status", "unknown service status")
	}
	if newStatus == o.status {
		return nil, nil
	}
	now := o.now()
	return o.record(o.changeStatus(newStatus, reason, now)), nil
}

// SuspendService rejects redundant calls, unlike UpdateServiceStatus.
func (o *Organization) SuspendService(reason string) ([]Event, error) {
	const op = "organization.suspend_service"
	reason, err := requiredReason(op, reason)
	if err != nil {
		return nil, err
	}
	if o.status == ServiceStatusSuspended {
		return nil, InvalidOperation(op, "service is already suspended")
	}
	now := o.now()
	changed := o.changeStatus(ServiceStatusSuspended, reason, now)
	return o.record(ServiceSuspended{eventMeta: o.meta(now), Reason: reason}, changed), nil
}

// ReactivateService lifts a suspension unless the contract has already ended.
func (o *Organization) ReactivateService() ([]Event, error) {
	const op = "organization.reactivate_service"
	if o.status != ServiceStatusSuspended {
		return nil, InvalidOperation(op, "service is not suspended")
	}
	now := o.now()
	if o.contractEnd != nil && o.contractEnd.Before(now) {
		return nil, InvalidOperation(op, "expired contract, renew first")
	}
	return o.record(o.changeStatus(ServiceStatusActive, reasonServiceReactivated, now)), nil
}

// UpdateContactInfo replaces email, phone and address. No event is emitted.
func (o *Organization) UpdateContactInfo(email, phone, address string) error {
	const op = "organization.update_contact_info"
	parsed, err := NewEmail(email)
	if err != nil {
		return err
	}
	phone, err = optionalText(op, "phone", phone, maxPhoneLength)
	if err != nil {
		return err
	}
	address, err = optionalText(op, "address", address, maxAddressLength)
	if err != nil {
		return err
	}
	o.email = parsed
	o.phone = phone
	o.address = address
	o.touch(o.now())
	return nil
}

// RenewContract extends the contract and lifts an Expired status.
func (o *Organization) RenewContract(newEndDate time.Time) ([]Event, error) {
	const op = "organization.renew_contract"
	now := o.now()
	newEndDate = newEndDate.UTC()
	if !newEndDate.After(now) {
		return nil, InvalidArgument(op, "contract_end_date", "new end date must be in the future")
	}
	if o.contractEnd != nil && !newEndDate.After(*o.contractEnd) {
		return nil, InvalidArgument(op, "contract_end_date", "new end date must be after the current end date")
	}

	previous := copyTime(o.contractEnd)
	if o.contractStart == nil {
		start := now
		o.contractStart = &start
	}
	o.contractEnd = &newEndDate
	o.touch(now)

	events := []Event{ContractRenewed{
		eventMeta:       o.meta(now),
		PreviousEndDate: previous,
		NewEndDate:      newEndDate,
	}}
	if o.status == ServiceStatusExpired {
		events = append(events, o.changeStatus(ServiceStatusActive, reasonContractRenewed, now))
	}
	return o.record(events...), nil
}

// GenerateApiCredential replaces any existing organization credential.
func (o *Organization) GenerateApiCredential() []Event {
	isRegeneration := !o.credential.IsZero()
	o.credential = GenerateMachineCredential(OrganizationTokenPrefix)
	now := o.now()
	o.touch(now)
	return o.record(ApiCredentialGenerated{eventMeta: o.meta(now), IsRegeneration: isRegeneration})
}

// CheckContractExpiration moves the organization to Expired once its contract end has passed.
func (o *Organization) CheckContractExpiration() ([]Event, error) {
	if o.contractEnd == nil || o.status == ServiceStatusExpired {
		return nil, nil
	}
	if !o.contractEnd.Before(o.now()) {
		return nil, nil
	}
	return o.UpdateServiceStatus(ServiceStatusExpired, reasonContractExpired)
}

func (o *Organization) changeStatus(next ServiceStatus, reason string, now time.Time) Event {
	previous := o.status
	o.status = next
	o.touch(now)
	return ServiceStatusChanged{
		eventMeta:      o.meta(now),
		PreviousStatus: previous,
		NewStatus:      next,
		Reason:         reason,
	}
}

func (o *Organization) meta(at time.Time) eventMeta {
	return newEventMeta(AggregateOrganization, o.id, at)
}

var _ AggregateRoot = (*Organization)(nil)
