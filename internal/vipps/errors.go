package vipps

import (
	"errors"
	"fmt"
)

// Categorías de error del adapter. APIError.Is las expone para errors.Is.
var (
	ErrAuth            = errors.New("vipps: access token request failed")
	ErrPaymentCreation = errors.New("vipps: payment creation failed")
	ErrStatusLookup    = errors.New("vipps: payment status lookup failed")
	ErrAction          = errors.New("vipps: payment action failed")
	ErrNotConfigured   = errors.New("vipps: client id, client secret and subscription key are required")
)

// APIError es una respuesta no exitosa (o un fallo de transporte) de la API de Vipps.
// Body conserva el cuerpo original de la respuesta para logs.
type APIError struct {
	Kind   error
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%v (%s): http %d: %s", e.Kind, e.Op, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%v (%s): %v", e.Kind, e.Op, e.Err)
	default:
		return fmt.Sprintf("%v (%s)", e.Kind, e.Op)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool { return target == e.Kind }

func newAPIError(kind error, op string, status int, body []byte, err error) *APIError {
	return &APIError{Kind: kind, Op: op, Status: status, Body: string(body), Err: err}
}
