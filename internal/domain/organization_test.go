package domain

import (
	"strings"
	"testing"
	"time"
)

func TestOrganizationCreateAndSuspendScenario(t *testing.T) {
	clock := newManualClock()
	org, err := NewOrganization(NewOrganizationParams{Name: "Acme", Email: "ops@acme.com"}, clock)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if org.ServiceStatus() != ServiceStatusActive {
		t.Fatalf("status: want ACTIVE got %s", org.ServiceStatus())
	}
	expectTypes(t, org.PendingEvents(), EventOrganizationCreated)
	org.MarkCommitted()

	events, err := org.SuspendService("non-payment")
	if err != nil {
		t.Fatalf("suspend: %v", err)
	}
	expectTypes(t, events, EventServiceSuspended, EventServiceStatusChanged)
	changed := events[1].(ServiceStatusChanged)
	if changed.PreviousStatus != ServiceStatusActive || changed.NewStatus != ServiceStatusSuspended {
		t.Fatalf("status change payload: %+v", changed)
	}
	if org.ServiceStatus() != ServiceStatusSuspended {
		t.Fatalf("status: want SUSPENDED got %s", org.ServiceStatus())
	}
	if org.CanRegisterMachines() {
		t.Fatalf("suspended organization must not register machines")
	}
	org.MarkCommitted()

	_, err = org.SuspendService("again")
	expectKind(t, err, KindInvalidOperation)
	if len(org.PendingEvents()) != 0 {
		t.Fatalf("failed call must not buffer events")
	}
}

func TestOrganizationCreateValidation(t *testing.T) {
	long := strings.Repeat("x", 256)
	cases := map[string]NewOrganizationParams{
		"empty name":    {Name: " ", Email: "ops@acme.com"},
		"long name":     {Name: long, Email: "ops@acme.com"},
		"bad email":     {Name: "Acme", Email: "acme"},
		"long phone":    {Name: "Acme", Email: "ops@acme.com", Phone: strings.Repeat("1", 51)},
		"long postcode": {Name: "Acme", Email: "ops@acme.com", PostalCode: strings.Repeat("1", 21)},
		"long country":  {Name: "Acme", Email: "ops@acme.com", Country: long},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewOrganization(params, newManualClock())
			expectKind(t, err, KindInvalidArgument)
		})
	}
}

func TestOrganizationUpdateServiceStatusNoOp(t *testing.T) {
	org := mustOrganization(t, newManualClock())
	before := org.State()

	events, err := org.UpdateServiceStatus(ServiceStatusActive, "nothing to do")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(events) != 0 || len(org.PendingEvents()) != 0 {
		t.Fatalf("same-status update must not emit events")
	}
	if org.State().Audit.UpdatedAt != nil || before.ServiceStatus != org.ServiceStatus() {
		t.Fatalf("same-status update must not mutate")
	}

	_, err = org.UpdateServiceStatus(ServiceStatusExpired, "")
	expectKind(t, err, KindInvalidArgument)

	events, err = org.UpdateServiceStatus(ServiceStatusSuspended, "audit")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	expectTypes(t, events, EventServiceStatusChanged)
	if org.Audit().UpdatedAt == nil {
		t.Fatalf("successful mutation must stamp audit")
	}
}

func TestOrganizationReactivate(t *testing.T) {
	clock := newManualClock()
	org := mustOrganization(t, clock)

	_, err := org.ReactivateService()
	expectKind(t, err, KindInvalidOperation)

	if _, err := org.RenewContract(clock.Now().Add(48 * time.Hour)); err != nil {
		t.Fatalf("renew: %v", err)
	}
	if _, err := org.SuspendService("late payment"); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	org.MarkCommitted()

	events, err := org.ReactivateService()
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	expectTypes(t, events, EventServiceStatusChanged)
	if org.ServiceStatus() != ServiceStatusActive {
		t.Fatalf("status: want ACTIVE got %s", org.ServiceStatus())
	}

	if _, err := org.SuspendService("late payment"); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	clock.Advance(72 * time.Hour)
	_, err = org.ReactivateService()
	expectKind(t, err, KindInvalidOperation)
	if org.ServiceStatus() != ServiceStatusSuspended {
		t.Fatalf("failed reactivation must not mutate")
	}
}

func TestOrganizationRenewContract(t *testing.T) {
	clock := newManualClock()
	org := mustOrganization(t, clock)

	_, err := org.RenewContract(clock.Now().Add(-time.Hour))
	expectKind(t, err, KindInvalidArgument)
	_, err = org.RenewContract(clock.Now())
	expectKind(t, err, KindInvalidArgument)

	firstEnd := clock.Now().Add(30 * 24 * time.Hour)
	events, err := org.RenewContract(firstEnd)
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	expectTypes(t, events, EventContractRenewed)
	renewed := events[0].(ContractRenewed)
	if renewed.PreviousEndDate != nil || !renewed.NewEndDate.Equal(firstEnd) {
		t.Fatalf("renewed payload: %+v", renewed)
	}
	start := org.ContractStartDate()
	if start == nil || !start.Equal(clock.Now()) {
		t.Fatalf("first renewal must set start date, got %v", start)
	}

	_, err = org.RenewContract(firstEnd)
	expectKind(t, err, KindInvalidArgument)

	clock.Advance(31 * 24 * time.Hour)
	events, err = org.CheckContractExpiration()
	if err != nil {
		t.Fatalf("check expiration: %v", err)
	}
	expectTypes(t, events, EventServiceStatusChanged)
	if org.ServiceStatus() != ServiceStatusExpired {
		t.Fatalf("status: want EXPIRED got %s", org.ServiceStatus())
	}
	if events[0].(ServiceStatusChanged).Reason != "contract expired" {
		t.Fatalf("expiration reason: %+v", events[0])
	}

	secondEnd := clock.Now().Add(365 * 24 * time.Hour)
	events, err = org.RenewContract(secondEnd)
	if err != nil {
		t.Fatalf("renew expired: %v", err)
	}
	expectTypes(t, events, EventContractRenewed, EventServiceStatusChanged)
	if org.ServiceStatus() != ServiceStatusActive {
		t.Fatalf("renewing an expired contract must reactivate")
	}
	if !org.ContractStartDate().Equal(*start) {
		t.Fatalf("later renewals keep the original start date")
	}
	if !org.ContractEndDate().After(*org.ContractStartDate()) {
		t.Fatalf("contract end must be after start")
	}
}

func TestOrganizationCheckContractExpirationIsIdempotent(t *testing.T) {
	clock := newManualClock()
	org := mustOrganization(t, clock)

	events, err := org.CheckContractExpiration()
	if err != nil || len(events) != 0 {
		t.Fatalf("no contract: events=%v err=%v", events, err)
	}
	if _, err := org.RenewContract(clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("renew: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := org.CheckContractExpiration(); err != nil {
		t.Fatalf("check: %v", err)
	}
	org.MarkCommitted()
	events, err = org.CheckContractExpiration()
	if err != nil || len(events) != 0 {
		t.Fatalf("already expired: events=%v err=%v", events, err)
	}
}

func TestOrganizationApiCredential(t *testing.T) {
	org := mustOrganization(t, newManualClock())
	events := org.GenerateApiCredential()
	expectTypes(t, events, EventApiCredentialGenerated)
	if events[0].(ApiCredentialGenerated).IsRegeneration {
		t.Fatalf("first credential is not a regeneration")
	}
	first := org.APICredential()
	if !strings.HasPrefix(first.Value(), OrganizationTokenPrefix) {
		t.Fatalf("organization credential prefix: %s", first)
	}

	events = org.GenerateApiCredential()
	if !events[0].(ApiCredentialGenerated).IsRegeneration {
		t.Fatalf("second credential is a regeneration")
	}
	if org.APICredential().Equal(first) {
		t.Fatalf("regeneration must replace the credential")
	}
}

func TestOrganizationUpdateContactInfo(t *testing.T) {
	org := mustOrganization(t, newManualClock())
	if err := org.UpdateContactInfo("bad", "", ""); !IsKind(err, KindInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if org.Email().String() != "ops@acme.com" {
		t.Fatalf("failed update must not mutate")
	}
	if err := org.UpdateContactInfo("NEW@acme.com", "+1 555", "Main St 1"); err != nil {
		t.Fatalf("update contact: %v", err)
	}
	if org.Email().String() != "new@acme.com" || org.Phone() != "+1 555" || org.Address() != "Main St 1" {
		t.Fatalf("contact not replaced: %+v", org.State())
	}
	if len(org.PendingEvents()) != 0 {
		t.Fatalf("contact update emits no events")
	}
}

func TestRestoreOrganizationRoundTrip(t *testing.T) {
	clock := newManualClock()
	org := mustOrganization(t, clock)
	org.GenerateApiCredential()
	org.MarkCommitted()

	restored, err := RestoreOrganization(org.State(), clock)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.ID() != org.ID() || restored.Version() != org.Version() {
		t.Fatalf("identity not restored")
	}
	if !restored.APICredential().Equal(org.APICredential()) {
		t.Fatalf("credential not restored")
	}
	if len(restored.PendingEvents()) != 0 {
		t.Fatalf("restore must not emit events")
	}
}
