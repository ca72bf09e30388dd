package functions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/room4-2/staybot/booking"
)

type memGateway struct {
	mu   sync.Mutex
	rows [][]any
	err  error
}

func (g *memGateway) AppendRow(_ context.Context, columns []any) (booking.RowReference, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.rows = append(g.rows, columns)
	return "Sheet1!A1:E1", nil
}

func newDispatcher(t *testing.T, gw booking.Gateway) *Dispatcher {
	t.Helper()
	m, err := booking.NewMachine(booking.Options{Gateway: gw, Pricing: booking.DefaultPricing()})
	require.NoError(t, err)
	return NewDispatcher(m, nil)
}

func bookRoomArgs() map[string]any {
	return map[string]any{
		"guest_name": "Asha Rao",
		"phone":      "9876543210",
		"check_in":   "2024-05-01",
		"check_out":  "2024-05-04",
		"beds":       float64(2),
	}
}

func output(t *testing.T, resp *genai.FunctionResponse) string {
	t.Helper()
	out, ok := resp.Response["output"].(string)
	require.True(t, ok, "response has no output: %v", resp.Response)
	return out
}

func TestDecodeBookRoom(t *testing.T) {
	req := DecodeBookRoom(map[string]any{
		"guest_name": "  Asha Rao ",
		"phone":      float64(9876543210),
		"check_in":   "tomorrow",
		"beds":       float64(2),
		"nights":     "3",
	})

	assert.Equal(t, "Asha Rao", req.GuestName)
	assert.Equal(t, "9876543210", req.Phone)
	assert.Equal(t, "tomorrow", req.CheckIn)
	assert.Empty(t, req.CheckOut)
	require.NotNil(t, req.Beds)
	assert.Equal(t, 2, *req.Beds)
	require.NotNil(t, req.Nights)
	assert.Equal(t, 3, *req.Nights)
}

func TestDecodeBookRoomRejectsFractionalBeds(t *testing.T) {
	req := DecodeBookRoom(map[string]any{"beds": 1.5, "nights": "two"})

	require.NotNil(t, req.Beds)
	assert.Equal(t, -1, *req.Beds)
	require.NotNil(t, req.Nights)
	assert.Equal(t, -1, *req.Nights)
}

func TestDecodeBookRoomAbsentIntegers(t *testing.T) {
	req := DecodeBookRoom(map[string]any{"guest_name": "Asha"})
	assert.Nil(t, req.Beds)
	assert.Nil(t, req.Nights)
}

func TestBookRoomSavesRow(t *testing.T) {
	gw := &memGateway{}
	d := newDispatcher(t, gw)

	resp := d.Handle(context.Background(), &genai.FunctionCall{ID: "call-1", Name: BookRoom, Args: bookRoomArgs()})

	assert.Equal(t, "call-1", resp.ID)
	assert.Equal(t, BookRoom, resp.Name)
	assert.Equal(t, booking.MsgSaved, output(t, resp))
	require.Len(t, gw.rows, 1)
	assert.Equal(t, []any{"Asha Rao", "9876543210", "2024-05-01", "2024-05-04", 2}, gw.rows[0])
}

func TestBookRoomMissingPhone(t *testing.T) {
	gw := &memGateway{}
	d := newDispatcher(t, gw)
	args := bookRoomArgs()
	delete(args, "phone")

	resp := d.Handle(context.Background(), &genai.FunctionCall{Name: BookRoom, Args: args})

	assert.Equal(t, "Missing or invalid booking details: phone.", output(t, resp))
	assert.Empty(t, gw.rows)
}

func TestBookRoomTooManyBeds(t *testing.T) {
	gw := &memGateway{}
	d := newDispatcher(t, gw)
	args := bookRoomArgs()
	args["beds"] = float64(3)

	resp := d.Handle(context.Background(), &genai.FunctionCall{Name: BookRoom, Args: args})

	assert.Equal(t, "Missing or invalid booking details: beds.", output(t, resp))
	assert.Empty(t, gw.rows)
}

func TestBookRoomGatewayFailureIsSpokenGenerically(t *testing.T) {
	gw := &memGateway{err: booking.NewPersistenceError(booking.AuthenticationFailure, "load credentials", errors.New("open credentials.json: no such file"))}
	d := newDispatcher(t, gw)

	resp := d.Handle(context.Background(), &genai.FunctionCall{Name: BookRoom, Args: bookRoomArgs()})

	assert.Equal(t, booking.MsgSystemOffline, output(t, resp))
	assert.NotContains(t, output(t, resp), "credentials.json: no such file")
}

func TestBookRoomTwiceInOneBatch(t *testing.T) {
	gw := &memGateway{}
	d := newDispatcher(t, gw)

	responses := d.HandleAll(context.Background(), []*genai.FunctionCall{
		{ID: "a", Name: BookRoom, Args: bookRoomArgs()},
		{ID: "b", Name: BookRoom, Args: bookRoomArgs()},
	})

	require.Len(t, responses, 2)
	assert.Equal(t, booking.MsgSaved, output(t, responses[0]))
	assert.Equal(t, booking.MsgAlreadySubmitted, output(t, responses[1]))
	assert.Len(t, gw.rows, 1)
}

func TestQuotePrice(t *testing.T) {
	d := newDispatcher(t, &memGateway{})

	resp := d.Handle(context.Background(), &genai.FunctionCall{Name: QuotePrice, Args: map[string]any{
		"check_in":  "2024-05-01",
		"check_out": "2024-05-04",
		"beds":      float64(2),
		"nights":    float64(3),
	}})

	assert.Equal(t, "The total is 6000 rupees for 2 beds over 3 nights. Breakfast is included.", output(t, resp))
}

func TestQuotePriceWithoutDates(t *testing.T) {
	d := newDispatcher(t, &memGateway{})

	resp := d.Handle(context.Background(), &genai.FunctionCall{Name: QuotePrice, Args: map[string]any{
		"beds":   float64(1),
		"nights": float64(1),
	}})

	assert.Equal(t, "Missing or invalid booking details: check in, check out.", output(t, resp))
}

func TestUnknownFunction(t *testing.T) {
	d := newDispatcher(t, &memGateway{})

	resp := d.Handle(context.Background(), &genai.FunctionCall{Name: "cancel_room"})

	assert.Equal(t, "Unknown function: cancel_room", resp.Response["error"])
}

func TestToolsDeclareBothFunctions(t *testing.T) {
	tools := Tools(2)
	require.Len(t, tools, 1)

	var names []string
	for _, fd := range tools[0].FunctionDeclarations {
		names = append(names, fd.Name)
	}
	assert.ElementsMatch(t, []string{BookRoom, QuotePrice}, names)

	decl := BookRoomDeclaration(2)
	assert.Equal(t, []string{"guest_name", "phone", "check_in", "check_out", "beds"}, decl.Parameters.Required)
	assert.Equal(t, 2.0, *decl.Parameters.Properties["beds"].Maximum)
}
