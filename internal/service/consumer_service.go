package service

import (
	"context"
	"encoding/json"

	"kb-agent/internal/pkg/logger"
	"kb-agent/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventSubscriber is the subscribing half of the run event bus.
type EventSubscriber interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
}

// consumerService writes every run event to the audit log.
type consumerService struct {
	subscriber EventSubscriber
	logger     logger.ILogger
}

func NewConsumerService(subscriber EventSubscriber, log logger.ILogger) IConsumerService {
	return &consumerService{subscriber: subscriber, logger: log}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var envelope events.Envelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		cs.logger.Error("EVENTS", "Failed to unmarshal run event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite redelivery
		return
	}

	details := map[string]interface{}{"occurred_at": envelope.OccurredAt}
	for k, v := range envelope.Data {
		details[k] = v
	}

	if envelope.Type == events.TypeRunFailed {
		cs.logger.Warn("EVENTS", envelope.Type, details)
	} else {
		cs.logger.Info("EVENTS", envelope.Type, details)
	}

	msg.Ack()
}
