package booking

import "strings"

// Step is a position in the mandatory booking script.
type Step int

const (
	Greeting Step = iota
	CollectingDates
	CollectingBeds
	QuotingPrice
	CollectingName
	CollectingPhone
	ConfirmingSummary
	Booking
	Closing
)

var stepNames = [...]string{
	Greeting:          "greeting",
	CollectingDates:   "collecting_dates",
	CollectingBeds:    "collecting_beds",
	QuotingPrice:      "quoting_price",
	CollectingName:    "collecting_name",
	CollectingPhone:   "collecting_phone",
	ConfirmingSummary: "confirming_summary",
	Booking:           "booking",
	Closing:           "closing",
}

func (s Step) String() string {
	if s < Greeting || s > Closing {
		return "invalid"
	}
	return stepNames[s]
}

// exitCheck reports the fields still blocking the step, or nil when the
// record satisfies it.
func (s Step) exitCheck(r Record, maxBeds int) *ValidationError {
	verr := &ValidationError{}
	switch s {
	case CollectingDates:
		if blank(r.CheckIn) {
			verr.Missing = append(verr.Missing, FieldCheckIn)
		}
		if blank(r.CheckOut) {
			verr.Missing = append(verr.Missing, FieldCheckOut)
		}
	case CollectingBeds:
		if r.Beds == 0 {
			verr.Missing = append(verr.Missing, FieldBeds)
		} else if r.Beds < 1 || r.Beds > maxBeds {
			verr.Invalid = append(verr.Invalid, FieldBeds)
		}
	case CollectingName:
		if blank(r.GuestName) {
			verr.Missing = append(verr.Missing, FieldGuestName)
		}
	case CollectingPhone:
		if blank(r.Phone) {
			verr.Missing = append(verr.Missing, FieldPhone)
		}
	case ConfirmingSummary:
		if err := r.Validate(maxBeds); err != nil {
			return err.(*ValidationError)
		}
	}
	if verr.empty() {
		return nil
	}
	return verr
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
