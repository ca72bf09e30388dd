// Package events publishes booking events to RabbitMQ.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/room4-2/staybot/booking"
)

// BookingConfirmed is the body of a booking.confirmed message.
type BookingConfirmed struct {
	Event       string    `json:"event"`
	Reference   string    `json:"reference"`
	SessionID   string    `json:"session_id,omitempty"`
	GuestName   string    `json:"guest_name"`
	Phone       string    `json:"phone"`
	CheckIn     string    `json:"check_in"`
	CheckOut    string    `json:"check_out"`
	Beds        int       `json:"beds"`
	Nights      int       `json:"nights,omitempty"`
	Total       int       `json:"total,omitempty"`
	Breakfast   bool      `json:"breakfast_included"`
	Row         string    `json:"row"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// NewBookingConfirmed flattens a confirmation into an event.
func NewBookingConfirmed(c booking.Confirmation) BookingConfirmed {
	ev := BookingConfirmed{
		Event:       "booking.confirmed",
		Reference:   c.Reference,
		SessionID:   c.SessionID,
		GuestName:   c.Record.GuestName,
		Phone:       c.Record.Phone,
		CheckIn:     c.Record.CheckIn,
		CheckOut:    c.Record.CheckOut,
		Beds:        c.Record.Beds,
		Nights:      c.Record.Nights,
		Row:         string(c.Row),
		ConfirmedAt: c.ConfirmedAt,
	}
	if c.Quote != nil {
		ev.Total = c.Quote.Total
		ev.Breakfast = c.Quote.BreakfastIncluded
	}
	return ev
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends booking.confirmed messages to a durable queue on the
// default exchange. It connects on first publish and reconnects after a
// failed one.
type Publisher struct {
	queue  string
	logger *zap.Logger
	dial   func() (channel, func() error, error)

	mu      sync.Mutex
	ch      channel
	closeFn func() error
}

var _ booking.Notifier = (*Publisher)(nil)

// NewPublisher creates a publisher for url. It does not dial.
func NewPublisher(url, queue string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Publisher{queue: queue, logger: logger.With(zap.String("queue", queue))}
	p.dial = func() (channel, func() error, error) {
		return dialQueue(url, queue)
	}
	return p
}

func dialQueue(url, queue string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare queue: %w", err)
	}
	return ch, conn.Close, nil
}

// BookingConfirmed publishes c as a persistent JSON message.
func (p *Publisher) BookingConfirmed(ctx context.Context, c booking.Confirmation) error {
	body, err := sonic.Marshal(NewBookingConfirmed(c))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		ch, closeFn, err := p.dial()
		if err != nil {
			return err
		}
		p.ch, p.closeFn = ch, closeFn
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    c.Reference,
		Body:         body,
	})
	if err != nil {
		p.resetLocked()
		return fmt.Errorf("publish: %w", err)
	}

	p.logger.Debug("📣 booking event published", zap.String("reference", c.Reference))
	return nil
}

// Close shuts the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resetLocked()
}

func (p *Publisher) resetLocked() error {
	var err error
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.closeFn != nil {
		err = p.closeFn()
	}
	p.ch, p.closeFn = nil, nil
	return err
}
