package functions

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/room4-2/staybot/booking"
)

// QuoteArgs are the decoded quote_price arguments.
type QuoteArgs struct {
	CheckIn  string
	CheckOut string
	Beds     int
	Nights   int
}

// DecodeBookRoom reads book_room arguments as sent by the model. Absent
// integers stay nil; values that are not whole numbers decode to -1 so they
// fail range validation instead of being silently truncated.
func DecodeBookRoom(args map[string]any) booking.Request {
	return booking.Request{
		GuestName: stringArg(args, booking.FieldGuestName),
		Phone:     stringArg(args, booking.FieldPhone),
		CheckIn:   stringArg(args, booking.FieldCheckIn),
		CheckOut:  stringArg(args, booking.FieldCheckOut),
		Beds:      intArg(args, booking.FieldBeds),
		Nights:    intArg(args, booking.FieldNights),
	}
}

// DecodeQuote reads quote_price arguments. Missing integers decode to 0.
func DecodeQuote(args map[string]any) QuoteArgs {
	q := QuoteArgs{
		CheckIn:  stringArg(args, booking.FieldCheckIn),
		CheckOut: stringArg(args, booking.FieldCheckOut),
	}
	if beds := intArg(args, booking.FieldBeds); beds != nil {
		q.Beds = *beds
	}
	if nights := intArg(args, booking.FieldNights); nights != nil {
		q.Nights = *nights
	}
	return q
}

func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		// Phone numbers sometimes arrive as JSON numbers.
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int, int64, int32:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

func intArg(args map[string]any, key string) *int {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}

	n := -1
	switch v := raw.(type) {
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < math.MaxInt32 {
			n = int(v)
		}
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		if parsed, err := strconv.Atoi(v); err == nil {
			n = parsed
		}
	}
	return &n
}
