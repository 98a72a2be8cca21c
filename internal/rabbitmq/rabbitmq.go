// Package rabbitmq manages the AMQP connection, the shared topology and the
// publish/consume primitives used by the orchestrator and the notifier.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"hotelbooking/internal/config"
	"hotelbooking/internal/event"
	"hotelbooking/pkg/log"
)

const (
	dialTimeout    = 10 * time.Second
	heartbeat      = 10 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// Client is a resilient AMQP connector. It declares the booking topology on
// every (re)connect and keeps a dedicated publisher channel.
type Client struct {
	url      string
	prefetch int

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	closed    chan struct{}
	reconnect chan struct{}
}

// Connect dials the broker, declares the topology and starts the reconnect
// watcher. The initial dial is a single attempt; later failures are retried
// with backoff in the background.
func Connect(cfg config.RabbitMQConfig) (*Client, error) {
	c := &Client{
		url:       cfg.URL(),
		prefetch:  cfg.Prefetch,
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}

	if err := c.connectOnce(); err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	go c.watch()
	return c, nil
}

// NewConsumerChannel opens a fresh channel with the configured prefetch.
// Consumers own the returned channel and must close it themselves.
func (c *Client) NewConsumerChannel() (*amqp.Channel, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, errors.New("rabbitmq: connection is not ready")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if c.prefetch > 0 {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			ch.Close()
			return nil, err
		}
	}
	return ch, nil
}

// Publish sends a persistent JSON message on the shared publisher channel.
func (c *Client) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	c.mu.RLock()
	conn := c.conn
	ch := c.pubChan
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq: publish channel is not open")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(ctx, exchange, routingKey, false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		})
}

// Health reports whether the underlying connection is open.
func (c *Client) Health() error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is closed")
	}
	return nil
}

// Close stops the watcher and closes the AMQP resources.
func (c *Client) Close() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	c.mu.Lock()
	if c.pubChan != nil {
		_ = c.pubChan.Close()
		c.pubChan = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

func (c *Client) connectOnce() error {
	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	if c.pubChan != nil {
		_ = c.pubChan.Close()
	}
	c.pubChan = ch
	c.mu.Unlock()

	go func() {
		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-c.closed:
			return
		case <-connClosed:
		case <-chClosed:
		}

		select {
		case c.reconnect <- struct{}{}:
		default:
		}
	}()

	log.Info("Connected to RabbitMQ")
	return nil
}

// watch reconnects with exponential backoff after a connection loss.
func (c *Client) watch() {
	backoff := time.Second
	for {
		select {
		case <-c.closed:
			return
		case <-c.reconnect:
			for {
				select {
				case <-c.closed:
					return
				default:
				}

				if err := c.connectOnce(); err == nil {
					backoff = time.Second
					log.Info("Reconnected to RabbitMQ")
					break
				} else {
					log.WithError(err).Error("RabbitMQ reconnect failed")
				}

				time.Sleep(backoff)
				if backoff < maxBackoff {
					backoff *= 2
					if backoff > maxBackoff {
						backoff = maxBackoff
					}
				}
			}
		}
	}
}

// declareTopology declares the booking exchanges, queues and bindings.
// Declarations are idempotent, every service re-asserts them on connect.
func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(event.BookingsExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(event.OrchestrationFanout, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(event.DLQExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	// inbound booking queue dead-letters to the DLX after rejection
	if _, err := ch.QueueDeclare(event.QueueBookingCreated, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    event.DLQExchange,
		"x-dead-letter-routing-key": event.RoutingKeyDLQ,
	}); err != nil {
		return err
	}
	if err := ch.QueueBind(event.QueueBookingCreated, event.RoutingKeyBookingCreated, event.BookingsExchange, false, nil); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(event.DLQQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(event.DLQQueue, event.RoutingKeyDLQ, event.DLQExchange, false, nil); err != nil {
		return err
	}

	// notification queue takes every outcome from the fanout
	if _, err := ch.QueueDeclare(event.QueueNotification, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(event.QueueNotification, "", event.OrchestrationFanout, false, nil); err != nil {
		return err
	}

	return nil
}

// OutcomePublisher publishes booking outcomes to the orchestration fanout.
// It satisfies the orchestrator's Publisher interface.
type OutcomePublisher struct {
	client *Client
}

// NewOutcomePublisher wraps a connected client.
func NewOutcomePublisher(client *Client) *OutcomePublisher {
	return &OutcomePublisher{client: client}
}

// PublishBookingProcessed marshals and publishes one outcome fact.
func (p *OutcomePublisher) PublishBookingProcessed(ctx context.Context, ev event.BookingProcessed) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal booking outcome: %w", err)
	}
	return p.client.Publish(ctx, event.OrchestrationFanout, "", body)
}
