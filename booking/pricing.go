package booking

import "fmt"

// Pricing holds the hotel's business rules for quoting a stay.
type Pricing struct {
	UnitRate             int // per bed per night
	MaxBeds              int
	BreakfastAfterNights int // breakfast is free when nights exceeds this
	Currency             string
}

// DefaultPricing mirrors the rates the front desk has always quoted.
func DefaultPricing() Pricing {
	return Pricing{
		UnitRate:             1000,
		MaxBeds:              2,
		BreakfastAfterNights: 1,
		Currency:             "rupees",
	}
}

// Quote is a computed price for a stay.
type Quote struct {
	Beds              int  `json:"beds"`
	Nights            int  `json:"nights"`
	Total             int  `json:"total"`
	BreakfastIncluded bool `json:"breakfast_included"`
}

// Price returns beds * nights * UnitRate. Beds must already be validated;
// out-of-range input panics with *ContractViolation.
func (p Pricing) Price(beds, nights int) int {
	if beds < 1 || beds > p.MaxBeds {
		panic(&ContractViolation{Func: "Pricing.Price", Reason: fmt.Sprintf("beds %d outside [1,%d]", beds, p.MaxBeds)})
	}
	if nights < 1 {
		panic(&ContractViolation{Func: "Pricing.Price", Reason: fmt.Sprintf("nights %d < 1", nights)})
	}
	return beds * nights * p.UnitRate
}

// BreakfastIncluded does not affect the numeric price.
func (p Pricing) BreakfastIncluded(nights int) bool {
	return nights > p.BreakfastAfterNights
}

// Quote computes the full quote for a stay.
func (p Pricing) Quote(beds, nights int) Quote {
	return Quote{
		Beds:              beds,
		Nights:            nights,
		Total:             p.Price(beds, nights),
		BreakfastIncluded: p.BreakfastIncluded(nights),
	}
}

// Spoken renders a quote for the voice channel.
func (p Pricing) Spoken(q Quote) string {
	s := fmt.Sprintf("The total is %d %s for %d %s over %d %s.",
		q.Total, p.Currency, q.Beds, plural(q.Beds, "bed", "beds"), q.Nights, plural(q.Nights, "night", "nights"))
	if q.BreakfastIncluded {
		s += " Breakfast is included."
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
