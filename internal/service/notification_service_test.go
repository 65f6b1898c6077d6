package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/config"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/events"
)

func newNotifier(t *testing.T, cfg config.NotificationConfig) (events.Dispatcher, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, zap.New(core), cfg).RegisterHandlers()
	return dispatcher, logs
}

func TestNotificationsForCommittedEvents(t *testing.T) {
	f := newFixture(t)
	dispatcher, logs := newNotifier(t, config.NotificationConfig{EmailFrom: "noreply@flowertrack.io", WebhookURL: "https://hooks.example.com"})

	org := f.organization(t, "bloom")
	_, emitted, err := f.organizations.Suspend(context.Background(), f.actor, org.ID(), "invoice overdue")
	if err != nil {
		t.Fatalf("suspend: %v", err)
	}
	for _, event := range emitted {
		envelope, err := events.NewEnvelope(event)
		if err != nil {
			t.Fatalf("envelope: %v", err)
		}
		if err := dispatcher.Publish(context.Background(), envelope); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	warned := logs.FilterMessage("ServiceSuspended").All()
	if len(warned) != 1 {
		t.Fatalf("expected one suspension log, got %d", len(warned))
	}
	if got := warned[0].ContextMap()["reason"]; got != "invoice overdue" {
		t.Fatalf("unexpected reason %v", got)
	}
	if logs.FilterMessage("sendEmailNotificationStub").Len() != 1 {
		t.Fatalf("expected one email stub call")
	}
}

func TestNotificationStubsNeedConfiguration(t *testing.T) {
	f := newFixture(t)
	dispatcher, logs := newNotifier(t, config.NotificationConfig{})

	org := f.organization(t, "bloom")
	m := f.machine(t, org.ID(), "SN-1")
	_, emitted, err := f.machines.ActivateAlarm(context.Background(), f.actor, m.ID(), "overheat")
	if err != nil {
		t.Fatalf("alarm: %v", err)
	}
	envelope, err := events.NewEnvelope(emitted[0])
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if err := dispatcher.Publish(context.Background(), envelope); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if logs.FilterMessage("AlarmActivated").Len() != 1 {
		t.Fatalf("expected alarm log")
	}
	if logs.FilterMessage("sendWebhookNotificationStub").Len() != 0 {
		t.Fatalf("webhook stub should be skipped without a URL")
	}
}

func TestNotificationRejectsMalformedPayload(t *testing.T) {
	dispatcher, _ := newNotifier(t, config.NotificationConfig{})
	err := dispatcher.Publish(context.Background(), events.Envelope{Type: domain.EventTicketAssigned, Payload: []byte("{")})
	if err == nil {
		t.Fatalf("expected decode failure")
	}
}
