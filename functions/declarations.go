package functions

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/room4-2/staybot/booking"
)

// Tool names exposed to the model.
const (
	BookRoom   = "book_room"
	QuotePrice = "quote_price"
)

// BookRoomDeclaration returns the function declaration for Gemini
func BookRoomDeclaration(maxBeds int) *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name: BookRoom,
		Description: "Saves the confirmed booking details to the hotel's booking sheet. " +
			"Call it only after the guest has confirmed the repeated summary.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				booking.FieldGuestName: {Type: genai.TypeString, Description: "The full name of the guest."},
				booking.FieldPhone:     {Type: genai.TypeString, Description: "The guest's phone number."},
				booking.FieldCheckIn:   {Type: genai.TypeString, Description: `Check-in date (e.g., "tomorrow" or a specific date).`},
				booking.FieldCheckOut:  {Type: genai.TypeString, Description: "Check-out date."},
				booking.FieldBeds:      bedsSchema(maxBeds),
				booking.FieldNights:    nightsSchema(),
			},
			Required: []string{
				booking.FieldGuestName,
				booking.FieldPhone,
				booking.FieldCheckIn,
				booking.FieldCheckOut,
				booking.FieldBeds,
			},
			PropertyOrdering: []string{
				booking.FieldGuestName,
				booking.FieldPhone,
				booking.FieldCheckIn,
				booking.FieldCheckOut,
				booking.FieldBeds,
				booking.FieldNights,
			},
		},
	}
}

// QuotePriceDeclaration returns the read-only pricing helper.
func QuotePriceDeclaration(maxBeds int) *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        QuotePrice,
		Description: "Quotes the total price for the stay once dates and beds are known. Does not book anything.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				booking.FieldCheckIn:  {Type: genai.TypeString, Description: "Check-in date as the guest said it."},
				booking.FieldCheckOut: {Type: genai.TypeString, Description: "Check-out date as the guest said it."},
				booking.FieldBeds:     bedsSchema(maxBeds),
				booking.FieldNights:   nightsSchema(),
			},
			Required: []string{booking.FieldCheckIn, booking.FieldCheckOut, booking.FieldBeds, booking.FieldNights},
		},
	}
}

// Tools bundles every declaration for a Live session.
func Tools(maxBeds int) []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				QuotePriceDeclaration(maxBeds),
				BookRoomDeclaration(maxBeds),
			},
		},
	}
}

func bedsSchema(maxBeds int) *genai.Schema {
	lo, hi := 1.0, float64(maxBeds)
	return &genai.Schema{
		Type:        genai.TypeInteger,
		Description: fmt.Sprintf("Number of beds requested, 1 to %d.", maxBeds),
		Minimum:     &lo,
		Maximum:     &hi,
	}
}

func nightsSchema() *genai.Schema {
	lo := 1.0
	return &genai.Schema{
		Type:        genai.TypeInteger,
		Description: "Number of nights the guest stays, as agreed with the guest.",
		Minimum:     &lo,
	}
}
