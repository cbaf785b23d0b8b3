package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/logger"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/queue"
)

// Publisher delivers seating events after a transaction commits.
type Publisher interface {
	Publish(ctx context.Context, ev queue.SeatingEvent) error
}

// NopPublisher drops every event. It is used when EVENTS_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.SeatingEvent) error { return nil }

var (
	// ErrPublisherBacklog is returned when the outbound buffer is full,
	// usually because the broker is unreachable.
	ErrPublisherBacklog = errors.New("publisher backlog full")
	// ErrPublisherClosed is returned after Close.
	ErrPublisherClosed = errors.New("publisher closed")
)

const defaultPublishBuffer = 256

// AMQPPublisher publishes seating events to a durable RabbitMQ queue through
// the default exchange. Publish only enqueues; a single goroutine owns the
// connection, dials lazily with a bounded handshake and re-dials after any
// failure. A slow or dead broker therefore never holds up a request, it only
// costs the events that overflow the buffer while it is down.
type AMQPPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration

	events    chan queue.SeatingEvent
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// owned by run
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher returns a publisher for queueName and starts its delivery
// goroutine. No connection is made until the first event.
func NewAMQPPublisher(url, queueName string) *AMQPPublisher {
	return newAMQPPublisher(url, queueName, queue.DefaultDialTimeout, defaultPublishBuffer)
}

func newAMQPPublisher(url, queueName string, dialTimeout time.Duration, buffer int) *AMQPPublisher {
	p := &AMQPPublisher{
		url:         url,
		queue:       queueName,
		dialTimeout: dialTimeout,
		events:      make(chan queue.SeatingEvent, buffer),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish hands ev to the delivery goroutine without waiting for the broker.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.SeatingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.stop:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.events <- ev:
		return nil
	default:
		return ErrPublisherBacklog
	}
}

func (p *AMQPPublisher) run() {
	defer close(p.done)
	defer p.reset()
	log := logger.Get().With("component", "seating-publisher", "queue", p.queue)
	for {
		select {
		case <-p.stop:
			return
		case ev := <-p.events:
			if err := p.send(ev); err != nil {
				log.Warn("seating event dropped", "type", ev.Type, "reservation_id", ev.ReservationID, "error", err)
			}
		}
	}
}

// send marshals ev and publishes it as a persistent message.
func (p *AMQPPublisher) send(ev queue.SeatingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.ensureChannel(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.dialTimeout)
	defer cancel()
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) ensureChannel() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()
	conn, err := queue.Dial(p.url, p.dialTimeout)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close stops the delivery goroutine and releases the broker connection.
// Events still buffered are dropped. It waits at most for one in-flight dial.
func (p *AMQPPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.stop) })
	<-p.done
	return nil
}
