package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/staybot/booking"
)

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func confirmation() booking.Confirmation {
	return booking.Confirmation{
		Reference: "ref-1",
		SessionID: "session-1",
		Record: booking.Record{
			GuestName: "Asha Rao",
			Phone:     "9876543210",
			CheckIn:   "2024-05-01",
			CheckOut:  "2024-05-04",
			Beds:      2,
			Nights:    3,
		},
		Quote:       &booking.Quote{Beds: 2, Nights: 3, Total: 6000, BreakfastIncluded: true},
		Row:         "Sheet1!A2:E2",
		ConfirmedAt: time.Date(2024, 4, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestBookingConfirmedPublishesToQueue(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher("amqp://unused", "booking.confirmed", nil)
	dials := 0
	p.dial = func() (channel, func() error, error) {
		dials++
		return ch, func() error { return nil }, nil
	}

	require.NoError(t, p.BookingConfirmed(context.Background(), confirmation()))
	require.NoError(t, p.BookingConfirmed(context.Background(), confirmation()))

	assert.Equal(t, 1, dials)
	require.Len(t, ch.published, 2)
	assert.Equal(t, []string{"booking.confirmed", "booking.confirmed"}, ch.keys)

	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "ref-1", msg.MessageId)

	var ev BookingConfirmed
	require.NoError(t, sonic.Unmarshal(msg.Body, &ev))
	assert.Equal(t, "booking.confirmed", ev.Event)
	assert.Equal(t, "Asha Rao", ev.GuestName)
	assert.Equal(t, 2, ev.Beds)
	assert.Equal(t, 6000, ev.Total)
	assert.True(t, ev.Breakfast)
}

func TestBookingConfirmedRedialsAfterFailure(t *testing.T) {
	broken := &fakeChannel{err: errors.New("channel closed")}
	healthy := &fakeChannel{}
	channels := []*fakeChannel{broken, healthy}

	p := NewPublisher("amqp://unused", "booking.confirmed", nil)
	p.dial = func() (channel, func() error, error) {
		ch := channels[0]
		channels = channels[1:]
		return ch, func() error { return nil }, nil
	}

	err := p.BookingConfirmed(context.Background(), confirmation())
	assert.ErrorContains(t, err, "channel closed")
	assert.True(t, broken.closed)

	require.NoError(t, p.BookingConfirmed(context.Background(), confirmation()))
	assert.Len(t, healthy.published, 1)
}

func TestBookingConfirmedDialFailure(t *testing.T) {
	p := NewPublisher("amqp://unused", "booking.confirmed", nil)
	p.dial = func() (channel, func() error, error) {
		return nil, nil, errors.New("dial rabbitmq: connection refused")
	}

	assert.ErrorContains(t, p.BookingConfirmed(context.Background(), confirmation()), "connection refused")
}

func TestNewBookingConfirmedWithoutQuote(t *testing.T) {
	c := confirmation()
	c.Quote = nil
	c.Record.Nights = 0

	ev := NewBookingConfirmed(c)
	assert.Zero(t, ev.Total)
	assert.False(t, ev.Breakfast)
	assert.Equal(t, "Sheet1!A2:E2", ev.Row)
}
