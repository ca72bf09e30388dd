// Package functions declares the booking tools offered to the model and
// routes the model's function calls to a booking.Machine.
package functions

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/room4-2/staybot/booking"
)

// Dispatcher answers function calls for one session.
type Dispatcher struct {
	machine *booking.Machine
	logger  *zap.Logger
}

// NewDispatcher binds the tools to a session's machine.
func NewDispatcher(machine *booking.Machine, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{machine: machine, logger: logger}
}

// HandleAll answers every call in order. Calls run sequentially so a
// booking is never in flight twice for the same session.
func (d *Dispatcher) HandleAll(ctx context.Context, calls []*genai.FunctionCall) []*genai.FunctionResponse {
	responses := make([]*genai.FunctionResponse, 0, len(calls))
	for _, fc := range calls {
		responses = append(responses, d.Handle(ctx, fc))
	}
	return responses
}

// Handle answers a single call with {"output": <speakable text>}.
func (d *Dispatcher) Handle(ctx context.Context, fc *genai.FunctionCall) *genai.FunctionResponse {
	d.logger.Info("🔧 function call", zap.String("name", fc.Name), zap.String("id", fc.ID))

	var response map[string]any

	switch fc.Name {
	case BookRoom:
		outcome, err := d.machine.ConfirmBooking(ctx, DecodeBookRoom(fc.Args))
		msg := booking.SpokenMessage(err)
		if err == nil {
			msg = outcome.Message
		}
		response = map[string]any{"output": msg}

	case QuotePrice:
		args := DecodeQuote(fc.Args)
		q, err := d.machine.Quote(args.CheckIn, args.CheckOut, args.Beds, args.Nights)
		if err != nil {
			response = map[string]any{"output": booking.SpokenMessage(err)}
			break
		}
		response = map[string]any{"output": d.machine.Pricing().Spoken(q)}

	default:
		response = map[string]any{"error": fmt.Sprintf("Unknown function: %s", fc.Name)}
		d.logger.Warn("⚠️ unknown function called", zap.String("name", fc.Name))
	}

	return &genai.FunctionResponse{
		ID:       fc.ID,
		Name:     fc.Name,
		Response: response,
	}
}
