package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

func TestOrganizationCreatePersistsEvents(t *testing.T) {
	f := newFixture(t)
	org, events, err := f.organizations.Create(context.Background(), f.actor, domain.NewOrganizationParams{Name: "Bloom", Email: "ops@bloom.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !sameTypes(eventTypes(events), domain.EventOrganizationCreated) {
		t.Fatalf("unexpected events %v", eventTypes(events))
	}
	if org.Version() != 1 || org.HasChanges() {
		t.Fatalf("expected committed organization at version 1, got %d", org.Version())
	}
	stored, err := f.organizations.Get(context.Background(), org.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Name() != "Bloom" || stored.State().Audit.CreatedBy == nil || *stored.State().Audit.CreatedBy != f.actor {
		t.Fatalf("unexpected stored organization %+v", stored.State())
	}
	if !sameTypes(f.outboxTypes(t, org.ID()), domain.EventOrganizationCreated) {
		t.Fatalf("outbox mismatch")
	}
}

func TestOrganizationCreateValidation(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.organizations.Create(context.Background(), f.actor, domain.NewOrganizationParams{Name: "Bloom", Email: "not-an-email"})
	expectKind(t, err, domain.KindInvalidArgument)
}

func TestSuspendReactivate(t *testing.T) {
	f := newFixture(t)
	org := f.organization(t, "bloom")

	_, events, err := f.organizations.Suspend(context.Background(), f.actor, org.ID(), "invoice overdue")
	if err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if !sameTypes(eventTypes(events), domain.EventServiceSuspended, domain.EventServiceStatusChanged) {
		t.Fatalf("unexpected events %v", eventTypes(events))
	}

	_, _, err = f.organizations.Suspend(context.Background(), f.actor, org.ID(), "again")
	expectKind(t, err, domain.KindInvalidOperation)

	reactivated, events, err := f.organizations.Reactivate(context.Background(), f.actor, org.ID())
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if reactivated.ServiceStatus() != domain.ServiceStatusActive || len(events) != 1 {
		t.Fatalf("unexpected reactivation result %s %v", reactivated.ServiceStatus(), eventTypes(events))
	}
	if reactivated.Version() != 3 {
		t.Fatalf("expected version 3, got %d", reactivated.Version())
	}
}

func TestUpdateServiceStatusSameStatusIsNotCommitted(t *testing.T) {
	f := newFixture(t)
	org := f.organization(t, "bloom")

	updated, events, err := f.organizations.UpdateServiceStatus(context.Background(), f.actor, org.ID(), domain.ServiceStatusActive, "noop")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %v", eventTypes(events))
	}
	if updated.Version() != 1 {
		t.Fatalf("no-op must not bump the version, got %d", updated.Version())
	}
	if got := f.outboxTypes(t, org.ID()); len(got) != 1 {
		t.Fatalf("no-op must not add outbox rows, got %v", got)
	}
}

func TestUnknownOrganization(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.organizations.Suspend(context.Background(), f.actor, f.actor, "reason")
	expectKind(t, err, domain.KindNotFound)
}

func TestFailedCommitReturnsError(t *testing.T) {
	f := newFixture(t)
	org := f.organization(t, "bloom")
	f.mem.FailNextCommit(domain.ConcurrencyConflict("test", "stale", nil))

	_, events, err := f.organizations.Suspend(context.Background(), f.actor, org.ID(), "invoice overdue")
	expectKind(t, err, domain.KindConcurrencyConflict)
	if events != nil {
		t.Fatalf("failed commit must not return events")
	}
	stored, _ := f.organizations.Get(context.Background(), org.ID())
	if stored.ServiceStatus() != domain.ServiceStatusActive {
		t.Fatalf("failed commit leaked state")
	}
}

func TestUpdateContactInfo(t *testing.T) {
	f := newFixture(t)
	org := f.organization(t, "bloom")
	updated, err := f.organizations.UpdateContactInfo(context.Background(), f.actor, org.ID(), ContactInfoInput{Email: "new@bloom.com", Phone: "+48 600"})
	if err != nil {
		t.Fatalf("update contact: %v", err)
	}
	if updated.Email().String() != "new@bloom.com" || updated.Version() != 2 {
		t.Fatalf("unexpected contact update %s v%d", updated.Email(), updated.Version())
	}
	if got := f.outboxTypes(t, org.ID()); len(got) != 1 {
		t.Fatalf("contact update emits no events, outbox has %v", got)
	}
}

func TestContractExpirationSweep(t *testing.T) {
	f := newFixture(t)
	expiring := f.organization(t, "expiring")
	healthy := f.organization(t, "healthy")
	bare := f.organization(t, "bare")

	if _, _, err := f.organizations.RenewContract(context.Background(), f.actor, expiring.ID(), f.clock.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("renew: %v", err)
	}
	if _, _, err := f.organizations.RenewContract(context.Background(), f.actor, healthy.ID(), f.clock.Now().Add(90*24*time.Hour)); err != nil {
		t.Fatalf("renew: %v", err)
	}

	f.clock.Advance(48 * time.Hour)
	count, err := f.organizations.SweepExpiredContracts(context.Background(), 10)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one expiration, got %d", count)
	}

	for id, want := range map[uuid.UUID]domain.ServiceStatus{
		expiring.ID(): domain.ServiceStatusExpired,
		healthy.ID():  domain.ServiceStatusActive,
		bare.ID():     domain.ServiceStatusActive,
	} {
		org, err := f.organizations.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if org.ServiceStatus() != want {
			t.Fatalf("%s: expected %s, got %s", org.Name(), want, org.ServiceStatus())
		}
	}

	again, err := f.organizations.SweepExpiredContracts(context.Background(), 10)
	if err != nil || again != 0 {
		t.Fatalf("second sweep should be empty, got %d %v", again, err)
	}

	renewed, events, err := f.organizations.RenewContract(context.Background(), f.actor, expiring.ID(), f.clock.Now().Add(30*24*time.Hour))
	if err != nil {
		t.Fatalf("renew after expiry: %v", err)
	}
	if renewed.ServiceStatus() != domain.ServiceStatusActive ||
		!sameTypes(eventTypes(events), domain.EventContractRenewed, domain.EventServiceStatusChanged) {
		t.Fatalf("renewal should lift expiry, got %s %v", renewed.ServiceStatus(), eventTypes(events))
	}
}

func TestSweepSkipsConflicts(t *testing.T) {
	f := newFixture(t)
	org := f.organization(t, "expiring")
	if _, _, err := f.organizations.RenewContract(context.Background(), f.actor, org.ID(), f.clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("renew: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	f.mem.FailNextCommit(domain.ConcurrencyConflict("test", "stale", nil))

	count, err := f.organizations.SweepExpiredContracts(context.Background(), 10)
	if err != nil {
		t.Fatalf("conflicts should be skipped, got %v", err)
	}
	if count != 0 {
		t.Fatalf("expected nothing expired, got %d", count)
	}

	count, err = f.organizations.SweepExpiredContracts(context.Background(), 10)
	if err != nil || count != 1 {
		t.Fatalf("next sweep should expire it, got %d %v", count, err)
	}
}

func TestSweepPropagatesOtherErrors(t *testing.T) {
	f := newFixture(t)
	org := f.organization(t, "expiring")
	if _, _, err := f.organizations.RenewContract(context.Background(), f.actor, org.ID(), f.clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("renew: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	boom := errors.New("disk full")
	f.mem.FailNextCommit(boom)

	if _, err := f.organizations.SweepExpiredContracts(context.Background(), 10); !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestGenerateApiCredential(t *testing.T) {
	f := newFixture(t)
	org := f.organization(t, "bloom")
	first, _, err := f.organizations.GenerateApiCredential(context.Background(), f.actor, org.ID())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	firstToken := first.APICredential()
	second, events, err := f.organizations.GenerateApiCredential(context.Background(), f.actor, org.ID())
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if second.APICredential() == firstToken {
		t.Fatalf("credential was not replaced")
	}
	generated, ok := events[0].(domain.ApiCredentialGenerated)
	if !ok || !generated.IsRegeneration {
		t.Fatalf("expected regeneration event, got %#v", events[0])
	}
}
