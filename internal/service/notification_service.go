package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/config"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/events"
)

// NotificationService emits notifications for delivered domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(domain.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(domain.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(domain.EventTicketStatusChanged, n.handleWebhookOnly)
	n.dispatcher.Subscribe(domain.EventTicketResolved, n.handleWebhookOnly)
	n.dispatcher.Subscribe(domain.EventTicketClosed, n.handleWebhookOnly)
	n.dispatcher.Subscribe(domain.EventTicketReopened, n.handleTicketCreated)
	n.dispatcher.Subscribe(domain.EventServiceSuspended, n.handleServiceSuspended)
	n.dispatcher.Subscribe(domain.EventAlarmActivated, n.handleAlarmActivated)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Envelope) error {
	n.logger.Info(string(event.Type), zap.String("ticket_id", event.AggregateID.String()), zap.ByteString("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Envelope) error {
	var payload domain.TicketAssigned
	if err := event.Decode(&payload); err != nil {
		return err
	}
	n.logger.Info("TicketAssigned",
		zap.String("ticket_id", event.AggregateID.String()),
		zap.String("assignee_user_id", payload.AssigneeUserID.String()))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleWebhookOnly(ctx context.Context, event events.Envelope) error {
	n.logger.Info(string(event.Type), zap.String("ticket_id", event.AggregateID.String()), zap.ByteString("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleServiceSuspended(ctx context.Context, event events.Envelope) error {
	var payload domain.ServiceSuspended
	if err := event.Decode(&payload); err != nil {
		return err
	}
	n.logger.Warn("ServiceSuspended", zap.String("organization_id", event.AggregateID.String()), zap.String("reason", payload.Reason))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAlarmActivated(ctx context.Context, event events.Envelope) error {
	var payload domain.AlarmActivated
	if err := event.Decode(&payload); err != nil {
		return err
	}
	n.logger.Warn("AlarmActivated", zap.String("machine_id", event.AggregateID.String()), zap.String("reason", payload.Reason))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Envelope) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("aggregate_id", event.AggregateID.String()),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Envelope) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("aggregate_id", event.AggregateID.String()),
		zap.String("event_type", string(event.Type)))
}
