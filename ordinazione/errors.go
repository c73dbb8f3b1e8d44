package ordinazione

import (
	"errors"
)

// Reason classifies why a submission did not succeed.
type Reason string

const (
	ReasonEmptyCart       Reason = "empty_cart"
	ReasonMissingField    Reason = "missing_field"
	ReasonInvalidPhone    Reason = "invalid_phone"
	ReasonPastReservation Reason = "past_reservation"
	ReasonRemoteRejected  Reason = "remote_rejected"
	ReasonNetworkFailure  Reason = "network_failure"
)

const (
	MsgEmptyCart       = "Cart is empty"
	MsgMissingField    = "Please fill in the required fields"
	MsgPastReservation = "Reservation time cannot be in the past"
	MsgOrderFailed     = "Error creating order"
	MsgNetworkFailure  = "Network error. Check your internet connection."
)

// SubmitError is the error carried by a failed Result. Message is what the
// user is shown.
type SubmitError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return string(e.Reason) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Reason) + ": " + e.Message
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// IsReason reports whether err is a *SubmitError with the given reason.
func IsReason(err error, reason Reason) bool {
	var submitErr *SubmitError
	return errors.As(err, &submitErr) && submitErr.Reason == reason
}

func newSubmitError(reason Reason, message string, err error) *SubmitError {
	return &SubmitError{Reason: reason, Message: message, Err: err}
}
