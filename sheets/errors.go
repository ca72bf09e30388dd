package sheets

import (
	"context"
	"errors"
	"net"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/room4-2/staybot/booking"
)

// ErrSpreadsheetNotFound is returned when no spreadsheet with the configured
// name is shared with the service account.
var ErrSpreadsheetNotFound = errors.New("spreadsheet not visible to service account")

// classify maps a Google API, token or network error onto a failure kind.
func classify(op string, err error) *booking.PersistenceError {
	var perr *booking.PersistenceError
	if errors.As(err, &perr) {
		return perr
	}
	return booking.NewPersistenceError(kindOf(err), op, err)
}

func kindOf(err error) booking.FailureKind {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return booking.AuthenticationFailure
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return booking.AuthenticationFailure
		case apiErr.Code == http.StatusForbidden, apiErr.Code == http.StatusNotFound:
			return booking.TargetNotFound
		case apiErr.Code == http.StatusRequestTimeout,
			apiErr.Code == http.StatusTooManyRequests,
			apiErr.Code >= http.StatusInternalServerError:
			return booking.TransientFailure
		default:
			return booking.Unknown
		}
	}

	if errors.Is(err, ErrSpreadsheetNotFound) {
		return booking.TargetNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return booking.TransientFailure
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return booking.TransientFailure
	}
	return booking.Unknown
}
