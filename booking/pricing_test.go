package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice(t *testing.T) {
	p := DefaultPricing()

	assert.Equal(t, 6000, p.Price(2, 3))
	assert.Equal(t, 1000, p.Price(1, 1))
	assert.Equal(t, 2000, p.Price(2, 1))
}

func TestBreakfastDoesNotChangePrice(t *testing.T) {
	p := DefaultPricing()

	one := p.Quote(1, 1)
	two := p.Quote(1, 2)

	assert.False(t, one.BreakfastIncluded)
	assert.True(t, two.BreakfastIncluded)
	assert.Equal(t, 2*one.Total, two.Total)
}

func TestPricePanicsOnContractViolation(t *testing.T) {
	p := DefaultPricing()

	for _, tc := range []struct{ beds, nights int }{{0, 1}, {3, 1}, {1, 0}} {
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r, "beds=%d nights=%d", tc.beds, tc.nights)
				_, ok := r.(*ContractViolation)
				assert.True(t, ok, "panic value should be *ContractViolation, got %T", r)
			}()
			p.Price(tc.beds, tc.nights)
		}()
	}
}

func TestSpokenQuote(t *testing.T) {
	p := DefaultPricing()

	assert.Equal(t, "The total is 6000 rupees for 2 beds over 3 nights. Breakfast is included.", p.Spoken(p.Quote(2, 3)))
	assert.Equal(t, "The total is 1000 rupees for 1 bed over 1 night.", p.Spoken(p.Quote(1, 1)))
}

func TestConfiguredRate(t *testing.T) {
	p := Pricing{UnitRate: 1500, MaxBeds: 3, BreakfastAfterNights: 2, Currency: "dollars"}

	q := p.Quote(3, 2)
	assert.Equal(t, 9000, q.Total)
	assert.False(t, q.BreakfastIncluded)
}
