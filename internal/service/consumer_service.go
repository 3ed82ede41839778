package service

import (
	"context"

	"startup-standup-be/internal/pkg/logger"
	"startup-standup-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventSink receives decoded session events. The NATS publisher and the
// websocket hub are the two sinks in production.
type EventSink interface {
	Name() string
	Deliver(ctx context.Context, event events.BaseEvent) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	sinks      []EventSink
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	log logger.ILogger,
	sinks ...EventSink,
) IConsumerService {
	active := make([]EventSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		sinks:      active,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage acks on receipt. Sinks are best-effort, and with a publisher
// that blocks until ack this releases the request path before any sink I/O
// while keeping events in publish order.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	msg.Ack()

	event, err := events.Unmarshal(msg.Payload)
	if err != nil {
		cs.logger.Error("CONSUMER", "Failed to decode event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	for _, sink := range cs.sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			cs.logger.Warn("CONSUMER", "Sink delivery failed", map[string]interface{}{
				"sink":       sink.Name(),
				"type":       event.Type,
				"session_id": event.SessionID,
				"error":      err.Error(),
			})
		}
	}
}
