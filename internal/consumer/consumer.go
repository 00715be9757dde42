// Package consumer drains a tenant's event queue. Deliveries are decoded and
// checked against the queue's tenant before the handler sees them.
package consumer

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"notes-saas/internal/messaging"
	"notes-saas/internal/model"
)

// Ack settles the delivery an event came from. A nil error acknowledges it,
// anything else dead-letters it.
type Ack func(err error)

// EventHandler takes ownership of a decoded event and must call ack exactly
// once. It returns false when it cannot accept the event; the delivery is
// then requeued.
type EventHandler func(e model.Event, ack Ack) bool

// Consumer is one running tenant queue subscription.
type Consumer struct {
	tenantID    string
	queueName   string
	consumerTag string
	channel     *amqp.Channel
	handler     EventHandler

	stop chan struct{}
	done chan struct{}
	log  *zap.Logger
}

// StartConsumer opens a dedicated channel and consumes the tenant's queue
// until Stop is called.
func StartConsumer(conn *amqp.Connection, tenantID string, prefetch int, handler EventHandler, log *zap.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("tenant %s: failed to open channel: %w", tenantID, err)
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			ch.Close()
			return nil, fmt.Errorf("tenant %s: failed to set qos: %w", tenantID, err)
		}
	}

	c := newConsumer(tenantID, handler, log)
	c.channel = ch

	deliveries, err := ch.Consume(c.queueName, c.consumerTag, false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("tenant %s: failed to start consuming: %w", tenantID, err)
	}

	go c.consumeLoop(deliveries)

	c.log.Info("started consumer", zap.String("queue", c.queueName))
	return c, nil
}

func newConsumer(tenantID string, handler EventHandler, log *zap.Logger) *Consumer {
	return &Consumer{
		tenantID:    tenantID,
		queueName:   messaging.QueueName(tenantID),
		consumerTag: "events-" + tenantID,
		handler:     handler,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		log:         log.Named("consumer").With(zap.String("tenant_id", tenantID)),
	}
}

func (c *Consumer) consumeLoop(deliveries <-chan amqp.Delivery) {
	defer close(c.done)

	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				c.log.Warn("delivery channel closed")
				return
			}
			c.handle(d)

		case <-c.stop:
			_ = c.channel.Cancel(c.consumerTag, false)
			return
		}
	}
}

// handle rejects undecodable deliveries and events addressed to another
// tenant without requeueing them, so they land in the dead-letter queue.
func (c *Consumer) handle(d amqp.Delivery) {
	var e model.Event
	if err := json.Unmarshal(d.Body, &e); err != nil {
		c.log.Warn("undecodable event", zap.Error(err))
		_ = d.Reject(false)
		return
	}
	if e.TenantID.String() != c.tenantID {
		c.log.Warn("event tenant mismatch", zap.Stringer("event_tenant", e.TenantID))
		_ = d.Reject(false)
		return
	}

	accepted := c.handler(e, func(err error) {
		if err != nil {
			c.log.Warn("event not recorded", zap.Stringer("event_id", e.ID), zap.Error(err))
			_ = d.Nack(false, false)
			return
		}
		_ = d.Ack(false)
	})
	if !accepted {
		_ = d.Nack(false, true)
	}
}

// Stop cancels the subscription and waits for the loop to exit. The channel
// stays open so acks for events still being recorded can be delivered; call
// Close once they are done.
func (c *Consumer) Stop() {
	close(c.stop)
	<-c.done
	c.log.Info("stopped consumer")
}

// Close releases the consumer's channel. Unsettled deliveries are requeued
// by the broker.
func (c *Consumer) Close() error {
	return c.channel.Close()
}
