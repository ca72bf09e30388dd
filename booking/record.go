package booking

import "context"

// Field names as they appear in the book_room tool contract.
const (
	FieldGuestName = "guest_name"
	FieldPhone     = "phone"
	FieldCheckIn   = "check_in"
	FieldCheckOut  = "check_out"
	FieldBeds      = "beds"
	FieldNights    = "nights"
)

// Record is one booking attempt. Dates are kept verbatim ("tomorrow",
// "2024-05-01"); nights is only ever supplied, never derived from them.
type Record struct {
	GuestName string `json:"guest_name"`
	Phone     string `json:"phone"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Beds      int    `json:"beds"`
	Nights    int    `json:"nights,omitempty"`
}

// Row is the persisted column order. Price is not a column.
func (r Record) Row() []any {
	return []any{r.GuestName, r.Phone, r.CheckIn, r.CheckOut, r.Beds}
}

// Validate reports every missing or out-of-range field.
func (r Record) Validate(maxBeds int) error {
	verr := &ValidationError{}
	for _, f := range []struct {
		name, value string
	}{
		{FieldGuestName, r.GuestName},
		{FieldPhone, r.Phone},
		{FieldCheckIn, r.CheckIn},
		{FieldCheckOut, r.CheckOut},
	} {
		if blank(f.value) {
			verr.Missing = append(verr.Missing, f.name)
		}
	}
	switch {
	case r.Beds == 0:
		verr.Missing = append(verr.Missing, FieldBeds)
	case r.Beds < 1 || r.Beds > maxBeds:
		verr.Invalid = append(verr.Invalid, FieldBeds)
	}
	if verr.empty() {
		return nil
	}
	return verr
}

// Request carries the book_room arguments. Nil pointers mean the model
// omitted the argument.
type Request struct {
	GuestName string
	Phone     string
	CheckIn   string
	CheckOut  string
	Beds      *int
	Nights    *int
}

// RowReference identifies an appended row in the backing store.
type RowReference string

// Gateway is the append-only contract the machine persists through.
// Implementations must be safe for concurrent use and must return
// *PersistenceError on failure.
type Gateway interface {
	AppendRow(ctx context.Context, columns []any) (RowReference, error)
}
