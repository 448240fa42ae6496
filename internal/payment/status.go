package payment

import "strings"

// Status es el estado genérico de una payment session.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAuthorized   Status = "authorized"
	StatusCanceled     Status = "canceled"
	StatusError        Status = "error"
	StatusRequiresMore Status = "requires_more"
)

// MapVippsState traduce un estado de ePayment (sin distinguir mayúsculas)
// al estado genérico. Es total: lo desconocido queda en pending.
func MapVippsState(state string) Status {
	switch strings.ToUpper(strings.TrimSpace(state)) {
	case "AUTHORIZED", "CAPTURED":
		return StatusAuthorized
	case "TERMINATED":
		return StatusCanceled
	case "FAILED", "REJECTED":
		return StatusError
	default:
		return StatusPending
	}
}
