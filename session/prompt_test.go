package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/staybot/booking"
)

func TestBuildPromptDefaults(t *testing.T) {
	prompt, err := BuildPrompt(PromptData{
		AssistantName: "StayBot",
		HotelName:     "Grand Vista Hotel",
		Pricing:       booking.DefaultPricing(),
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "You are StayBot, a warm, friendly hotel receptionist at Grand Vista Hotel.")
	assert.Contains(t, prompt, "- 1000 rupees per bed per night")
	assert.Contains(t, prompt, "- Max 2 beds")
	assert.Contains(t, prompt, "- Breakfast free if stay > 1 night\n")
	assert.Contains(t, prompt, `8. Confirm booking -> Call the "book_room" tool.`)
}

func TestBuildPromptFollowsPricing(t *testing.T) {
	prompt, err := BuildPrompt(PromptData{
		AssistantName: "Ava",
		HotelName:     "Seaside Inn",
		Pricing:       booking.Pricing{UnitRate: 40, MaxBeds: 1, BreakfastAfterNights: 2, Currency: "euros"},
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "- 40 euros per bed per night")
	assert.Contains(t, prompt, "- Max 1 bed\n")
	assert.Contains(t, prompt, "- Breakfast free if stay > 2 nights")
}
