package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures = 5
	openTimeout = 30 * time.Second
	maxBackoff  = 30 * time.Second

	// MaxDeliveryAttempts bounds how often a failing alert is handled before
	// it is dead-lettered.
	MaxDeliveryAttempts = 5
	retryHeader         = "x-sfms-retries"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Client publishes and consumes affordability alerts on a durable direct
// exchange. Publishing goes through a circuit breaker so that a broker
// outage does not slow down HTTP requests.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()
	return nil
}

// DeadLetterQueue names the queue that collects alerts which failed
// MaxDeliveryAttempts times.
func DeadLetterQueue(queue string) string {
	return queue + ".dead"
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	dead := DeadLetterQueue(queue)
	if _, err := ch.QueueDeclare(dead, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead letter queue: %w", err)
	}
	if err := ch.QueueBind(dead, dead, exchange, false, nil); err != nil {
		return fmt.Errorf("bind dead letter queue: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp091.Table{
			"x-dead-letter-exchange":    exchange,
			"x-dead-letter-routing-key": dead,
		},
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key equals the queue name.
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// ensureChannel reconnects when the channel is missing or closed.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	if ch := c.currentChannel(); ch != nil && !ch.IsClosed() {
		return ch, nil
	}
	c.closeConn()
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c.currentChannel(), nil
}

// PublishAlert publishes an affordability alert as a persistent message.
func (c *Client) PublishAlert(ctx context.Context, alert *AffordabilityAlert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish alert: %w", ErrCircuitOpen)
	}

	body, err := alert.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName,
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    alert.ID,
			Timestamp:    alert.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.InfoContext(ctx, "Published affordability alert",
		"id", alert.ID,
		"label", alert.Label,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// ConsumeAlerts delivers alerts to handler until ctx is cancelled,
// reconnecting with exponential backoff when the broker goes away.
// Undecodable messages are dead-lettered. Handler failures are retried up to
// MaxDeliveryAttempts times, then dead-lettered.
func (c *Client) ConsumeAlerts(ctx context.Context, handler func(context.Context, *AffordabilityAlert) error) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil || !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP consumer lost connection, retrying",
			"error", err,
			"attempt", attempt+1,
			"backoff", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		attempt++

		c.closeConn()
		if err := c.connect(); err != nil {
			slog.WarnContext(ctx, "AMQP reconnect failed", "error", err)
			continue
		}
		attempt = 0
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, *AffordabilityAlert) error) error {
	ch := c.currentChannel()
	if ch == nil {
		return errors.New("connection closed")
	}

	msgs, err := ch.Consume(
		c.queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming affordability alerts", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed: connection closed")
			}

			alert, err := AffordabilityAlertFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, alert); err != nil {
				c.retryOrDeadLetter(ctx, ch, delivery, alert, err)
				continue
			}

			delivery.Ack(false)
			slog.InfoContext(ctx, "Processed affordability alert", "id", alert.ID, "label", alert.Label)
		}
	}
}

// retryOrDeadLetter republishes a failed delivery with an incremented retry
// header, or rejects it to the dead letter queue once attempts run out.
func (c *Client) retryOrDeadLetter(ctx context.Context, ch *amqp091.Channel, delivery amqp091.Delivery, alert *AffordabilityAlert, handleErr error) {
	attempts := retryCount(delivery.Headers) + 1
	if attempts >= MaxDeliveryAttempts {
		slog.ErrorContext(ctx, "Alert failed too many times, dead-lettering",
			"error", handleErr,
			"id", alert.ID,
			"user_id", alert.UserID,
			"attempts", attempts)
		delivery.Nack(false, false)
		return
	}

	slog.WarnContext(ctx, "Failed to handle alert, retrying",
		"error", handleErr,
		"id", alert.ID,
		"user_id", alert.UserID,
		"attempts", attempts)

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := ch.PublishWithContext(pubCtx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  delivery.ContentType,
		DeliveryMode: amqp091.Persistent,
		MessageId:    delivery.MessageId,
		Timestamp:    delivery.Timestamp,
		Headers:      withRetryCount(delivery.Headers, attempts),
		Body:         delivery.Body,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to republish alert, requeueing", "error", err, "id", alert.ID)
		delivery.Nack(false, true)
		return
	}
	delivery.Ack(false)
}

// retryCount reads the retry header. Brokers may hand integers back in any
// width.
func retryCount(headers amqp091.Table) int {
	switch v := headers[retryHeader].(type) {
	case int:
		return v
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}

func withRetryCount(headers amqp091.Table, n int) amqp091.Table {
	out := make(amqp091.Table, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out[retryHeader] = int32(n)
	return out
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection closed", "eof", "broken pipe", "closed network connection", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.closeConn()
	return nil
}
