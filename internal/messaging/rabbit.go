// internal/messaging/rabbit.go
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"notes-saas/internal/metrics"
	"notes-saas/internal/model"
)

// Publisher delivers domain events to the owning tenant's stream.
type Publisher interface {
	PublishEvent(ctx context.Context, e model.Event) error
}

type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	URL     string
	log     *zap.Logger

	// serialises publishes on the shared channel
	mu sync.Mutex
}

func NewRabbitClient(url string, log *zap.Logger) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &RabbitClient{
		conn:    conn,
		channel: ch,
		URL:     url,
		log:     log.Named("rabbit"),
	}, nil
}

func (r *RabbitClient) GetConnection() *amqp.Connection {
	return r.conn
}

// QueueName is the durable queue carrying a tenant's domain events.
func QueueName(tenantID string) string {
	return fmt.Sprintf("tenant_%s_events", tenantID)
}

// DeadLetterQueueName receives events the consumer rejected.
func DeadLetterQueueName(tenantID string) string {
	return fmt.Sprintf("tenant_%s_events_dlq", tenantID)
}

// DeclareQueue declares the tenant's event queue and its dead-letter queue.
func (r *RabbitClient) DeclareQueue(tenantID string) error {
	queueName := QueueName(tenantID)
	dlqName := DeadLetterQueueName(tenantID)

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.channel.QueueDeclare(
		dlqName,
		true, false, false, false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	}
	_, err = r.channel.QueueDeclare(
		queueName,
		true, false, false, false,
		args,
	)
	if err != nil {
		return fmt.Errorf("declare main queue: %w", err)
	}

	r.log.Info("queues declared", zap.String("tenant_id", tenantID))
	return nil
}

// PublishEvent encodes e and routes it to its tenant's queue.
func (r *RabbitClient) PublishEvent(ctx context.Context, e model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := EventPublishing(e)
	if err != nil {
		return err
	}
	return r.publish(e.TenantID.String(), msg)
}

func (r *RabbitClient) publish(tenantID string, msg amqp.Publishing) error {
	queueName := QueueName(tenantID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.channel.Publish("", queueName, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", queueName, err)
	}
	return nil
}

// EventPublishing builds the persistent AMQP message for e. The event id and
// type are copied into the message properties so the queue can be inspected
// without decoding bodies.
func EventPublishing(e model.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID.String(),
		Type:         string(e.Type),
		Timestamp:    e.CreatedAt,
		Body:         body,
	}, nil
}

func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	if err := r.conn.Close(); err != nil {
		return err
	}
	return nil
}

func (r *RabbitClient) UpdateQueueDepth(tenantID string) {
	r.mu.Lock()
	q, err := r.channel.QueueInspect(QueueName(tenantID))
	r.mu.Unlock()
	if err != nil {
		r.log.Warn("failed to inspect queue", zap.String("tenant_id", tenantID), zap.Error(err))
		return
	}

	metrics.QueueDepth.WithLabelValues(tenantID).Set(float64(q.Messages))
}
