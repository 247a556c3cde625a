package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketSLABreached, n.handleTicketSLABreached)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(_ context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketAssigned(_ context.Context, event events.Event) error {
	n.logger.Info("TicketAssigned", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketSLABreached(_ context.Context, event events.Event) error {
	n.logger.Warn("TicketSLABreached", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}
