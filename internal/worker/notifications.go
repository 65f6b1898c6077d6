package worker

import (
	"go.uber.org/zap"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/config"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/events"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/service"
)

// NewNotificationSink returns a dispatcher with the notification handlers subscribed.
func NewNotificationSink(logger *zap.Logger, cfg config.NotificationConfig) events.Dispatcher {
	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger, cfg).RegisterHandlers()
	return dispatcher
}
