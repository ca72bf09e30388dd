// Package booking implements the booking dialogue controller: the ordered
// script a caller is walked through, the pricing rule, and the single
// side-effecting action that persists a confirmed booking through a Gateway.
//
// The model driving the conversation is never trusted to follow the script.
// Every transition is checked here, and the gateway is reached at most once
// per session until Reset is called.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPersistTimeout = 15 * time.Second

// Notifier is told about bookings that reached the store. Failures are
// logged and never change the outcome.
type Notifier interface {
	BookingConfirmed(ctx context.Context, c Confirmation) error
}

// Confirmation describes a persisted booking.
type Confirmation struct {
	Reference   string       `json:"reference"`
	SessionID   string       `json:"session_id,omitempty"`
	Record      Record       `json:"record"`
	Quote       *Quote       `json:"quote,omitempty"`
	Row         RowReference `json:"row"`
	ConfirmedAt time.Time    `json:"confirmed_at"`
}

// Outcome is returned from a successful ConfirmBooking.
type Outcome struct {
	Message string
	Confirmation
}

// Snapshot is a read-only view of a machine.
type Snapshot struct {
	Step   Step
	Record Record
	Quote  *Quote
}

// Options configures a Machine.
type Options struct {
	Gateway        Gateway
	Pricing        Pricing
	Notifier       Notifier
	Logger         *zap.Logger
	PersistTimeout time.Duration
	SessionID      string
}

// Machine is the per-session booking state machine. It is safe for
// concurrent use, though a session is expected to drive it serially.
type Machine struct {
	mu     sync.Mutex
	step   Step
	record Record
	quote  *Quote

	gateway   Gateway
	pricing   Pricing
	notifier  Notifier
	logger    *zap.Logger
	timeout   time.Duration
	sessionID string
}

// NewMachine creates a machine in the Greeting step.
func NewMachine(opts Options) (*Machine, error) {
	if opts.Gateway == nil {
		return nil, errors.New("booking: gateway is required")
	}
	if opts.Pricing.MaxBeds < 1 || opts.Pricing.UnitRate < 0 {
		return nil, fmt.Errorf("booking: invalid pricing %+v", opts.Pricing)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.PersistTimeout
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	if opts.SessionID != "" {
		logger = logger.With(zap.String("session_id", opts.SessionID))
	}
	return &Machine{
		step:      Greeting,
		gateway:   opts.Gateway,
		pricing:   opts.Pricing,
		notifier:  opts.Notifier,
		logger:    logger,
		timeout:   timeout,
		sessionID: opts.SessionID,
	}, nil
}

// Pricing returns the rules this machine quotes with.
func (m *Machine) Pricing() Pricing { return m.pricing }

// Step returns the current step.
func (m *Machine) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// Snapshot returns a copy of the machine's state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{Step: m.step, Record: m.record}
	if m.quote != nil {
		q := *m.quote
		s.Quote = &q
	}
	return s
}

// Begin moves past the greeting.
func (m *Machine) Begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step == Greeting {
		m.step = CollectingDates
	}
}

// Quote records the stay dates and bed count, prices the stay and moves the
// script on to collecting the guest's name. Dates must be known before a
// price can be quoted.
func (m *Machine) Quote(checkIn, checkOut string, beds, nights int) (Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step >= Booking {
		return Quote{}, ErrAlreadySubmitted
	}
	if m.step == Greeting {
		m.step = CollectingDates
	}
	if !blank(checkIn) {
		m.record.CheckIn = checkIn
	}
	if !blank(checkOut) {
		m.record.CheckOut = checkOut
	}

	verr := &ValidationError{}
	if dates := CollectingDates.exitCheck(m.record, m.pricing.MaxBeds); dates != nil {
		verr.Missing = append(verr.Missing, dates.Missing...)
	}
	if beds < 1 || beds > m.pricing.MaxBeds {
		verr.Invalid = append(verr.Invalid, FieldBeds)
	} else {
		m.record.Beds = beds
	}
	if nights < 1 {
		verr.Invalid = append(verr.Invalid, FieldNights)
	}
	if !verr.empty() {
		m.logger.Info("quote rejected", zap.Stringer("step", m.step), zap.Strings("fields", verr.Fields()))
		return Quote{}, verr
	}
	m.advanceLocked(QuotingPrice)

	m.record.Nights = nights
	q := m.pricing.Quote(beds, nights)
	m.quote = &q
	if m.step == QuotingPrice {
		m.step = CollectingName
	}
	m.logger.Info("💰 quoted stay", zap.Int("beds", beds), zap.Int("nights", nights), zap.Int("total", q.Total))
	return q, nil
}

// ConfirmBooking validates the request against the script and, when the
// record is complete, appends it to the gateway exactly once. It never
// retries. After the first call that reaches the gateway, every later call
// fails with ErrAlreadySubmitted until Reset.
func (m *Machine) ConfirmBooking(ctx context.Context, req Request) (Outcome, error) {
	m.mu.Lock()
	if m.step >= Booking {
		step := m.step
		m.mu.Unlock()
		m.logger.Warn("⚠️ duplicate booking confirmation refused", zap.Stringer("step", step))
		return Outcome{}, ErrAlreadySubmitted
	}

	m.applyLocked(req)
	m.advanceLocked(ConfirmingSummary)

	verr := &ValidationError{}
	if err := m.record.Validate(m.pricing.MaxBeds); err != nil {
		verr = err.(*ValidationError)
	}
	if req.Nights != nil && *req.Nights < 1 {
		verr.Invalid = append(verr.Invalid, FieldNights)
	}
	if !verr.empty() {
		m.rewindLocked()
		step := m.step
		m.mu.Unlock()
		m.logger.Info("booking rejected", zap.Stringer("step", step), zap.Strings("fields", verr.Fields()))
		return Outcome{}, verr
	}

	if m.record.Nights > 0 {
		q := m.pricing.Quote(m.record.Beds, m.record.Nights)
		m.quote = &q
	}
	m.step = Booking
	record := m.record
	var quote *Quote
	if m.quote != nil {
		q := *m.quote
		quote = &q
	}
	m.mu.Unlock()

	ref, err := m.persist(ctx, record)

	m.mu.Lock()
	m.step = Closing
	m.mu.Unlock()

	if err != nil {
		return Outcome{}, err
	}

	conf := Confirmation{
		Reference:   uuid.NewString(),
		SessionID:   m.sessionID,
		Record:      record,
		Quote:       quote,
		Row:         ref,
		ConfirmedAt: time.Now().UTC(),
	}
	m.logger.Info("✅ booking saved", zap.String("reference", conf.Reference), zap.String("row", string(ref)))
	m.notify(ctx, conf)

	return Outcome{Message: MsgSaved, Confirmation: conf}, nil
}

// Reset discards a finished booking so the caller can make another one.
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != Closing {
		return fmt.Errorf("booking: cannot reset at step %s", m.step)
	}
	m.record = Record{}
	m.quote = nil
	m.step = CollectingDates
	return nil
}

// persist is detached from the caller's cancellation: once the machine is in
// Booking the write runs to completion, bounded only by the persist timeout.
func (m *Machine) persist(ctx context.Context, record Record) (RowReference, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	m.logger.Info("📝 saving booking", zap.String("guest", record.GuestName), zap.Int("beds", record.Beds))
	ref, err := m.gateway.AppendRow(ctx, record.Row())
	if err == nil {
		return ref, nil
	}

	var perr *PersistenceError
	if !errors.As(err, &perr) {
		kind := Unknown
		if errors.Is(err, context.DeadlineExceeded) {
			kind = TransientFailure
		}
		perr = NewPersistenceError(kind, "append row", err)
	} else if perr.Kind == Unknown && errors.Is(err, context.DeadlineExceeded) {
		perr = NewPersistenceError(TransientFailure, perr.Op, perr.Err)
	}
	m.logger.Error("❌ failed to save booking",
		zap.Stringer("kind", perr.Kind),
		zap.String("op", perr.Op),
		zap.Error(perr.Err),
	)
	return "", perr
}

func (m *Machine) notify(ctx context.Context, c Confirmation) {
	if m.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.notifier.BookingConfirmed(ctx, c); err != nil {
		m.logger.Warn("booking notification failed", zap.String("reference", c.Reference), zap.Error(err))
	}
}

func (m *Machine) applyLocked(req Request) {
	if !blank(req.CheckIn) {
		m.record.CheckIn = req.CheckIn
	}
	if !blank(req.CheckOut) {
		m.record.CheckOut = req.CheckOut
	}
	if req.Beds != nil {
		m.record.Beds = *req.Beds
	}
	if !blank(req.GuestName) {
		m.record.GuestName = req.GuestName
	}
	if !blank(req.Phone) {
		m.record.Phone = req.Phone
	}
	if req.Nights != nil && *req.Nights >= 1 {
		m.record.Nights = *req.Nights
	}
}

// advanceLocked walks forward one step at a time until target is reached or
// a step's fields are not satisfied. It never moves past target.
func (m *Machine) advanceLocked(target Step) *ValidationError {
	if m.step == Greeting {
		m.step = CollectingDates
	}
	for m.step < target {
		if verr := m.step.exitCheck(m.record, m.pricing.MaxBeds); verr != nil {
			return verr
		}
		m.step++
	}
	if m.step == target {
		return m.step.exitCheck(m.record, m.pricing.MaxBeds)
	}
	return nil
}

// rewindLocked moves the machine back to the first step whose fields are no
// longer satisfied, e.g. after the caller changed the bed count to an
// invalid value late in the script.
func (m *Machine) rewindLocked() {
	for s := CollectingDates; s < m.step && s < ConfirmingSummary; s++ {
		if s.exitCheck(m.record, m.pricing.MaxBeds) != nil {
			m.step = s
			return
		}
	}
}
