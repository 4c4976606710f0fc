package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/skillhub/marketplace-api/internal/model"
)

// NotificationQueue is where services publish outbox events and the
// dispatcher consumes them.
const NotificationQueue = "notifications"

// publishEvents sends notification events after the business transaction has
// committed. Publishing is best effort: a delivery failure must never fail
// the operation that produced the event.
func publishEvents(ctx context.Context, ch *amqp.Channel, events ...model.NotificationEvent) {
	if ch == nil {
		return
	}
	for _, ev := range events {
		if ev.EventID == uuid.Nil {
			ev.EventID = uuid.New()
		}
		body, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		_ = ch.PublishWithContext(ctx, "", NotificationQueue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
	}
}
