package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/skillhub/marketplace-api/internal/model"
	"github.com/skillhub/marketplace-api/internal/repository"
)

const (
	notificationQueue = "notifications"
	dlxExchange       = "notifications.dlx"
	dlqQueueName      = "notifications.dlq"
	idempotencyTTL    = 24 * time.Hour
)

// NotificationWorker consumes outbox events from RabbitMQ and materializes
// them as notification rows. Delivery is at-least-once; duplicates are
// filtered by a Redis idempotency key and by the event-scoped primary key.
type NotificationWorker struct {
	channel          *amqp.Channel
	notificationRepo repository.NotificationRepository
	redisClient      *redis.Client
	log              *slog.Logger
	done             chan struct{}
}

func NewNotificationWorker(
	ch *amqp.Channel,
	notificationRepo repository.NotificationRepository,
	redisClient *redis.Client,
	log *slog.Logger,
) *NotificationWorker {
	return &NotificationWorker{
		channel:          ch,
		notificationRepo: notificationRepo,
		redisClient:      redisClient,
		log:              log,
		done:             make(chan struct{}),
	}
}

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, notificationQueue, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(notificationQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": notificationQueue,
	}); err != nil {
		return fmt.Errorf("declare notification queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(notificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("notification worker started")
	return nil
}

func (w *NotificationWorker) Stop() { close(w.done) }

func (w *NotificationWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var event model.NotificationEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		w.log.Error("unmarshal notification event", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("event_id", event.EventID, "recipient_id", event.RecipientID, "type", event.Type)

	// Idempotency check via Redis
	idempotencyKey := "notification_processed:" + event.EventID.String()
	exists, err := w.redisClient.Exists(ctx, idempotencyKey).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("event already processed, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.materialize(ctx, event); err != nil {
		log.Error("materialize notification failed", "error", err)
		_ = msg.Nack(false, false) // → DLQ
		return
	}

	if err := w.redisClient.Set(ctx, idempotencyKey, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("notification delivered")
}

// materialize inserts the notification row. The event ID doubles as the row
// ID, so redelivery after a lost ack hits the primary key instead of
// producing a second notification.
func (w *NotificationWorker) materialize(ctx context.Context, event model.NotificationEvent) error {
	n := &model.Notification{
		ID:          event.EventID,
		RecipientID: event.RecipientID,
		Type:        event.Type,
		Title:       event.Title,
		Message:     event.Message,
		OrderID:     event.OrderID,
		ServiceID:   event.ServiceID,
		ReviewID:    event.ReviewID,
	}
	if err := w.notificationRepo.Create(ctx, n); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}
