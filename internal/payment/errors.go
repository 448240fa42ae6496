package payment

import (
	"errors"
	"fmt"
)

// Code clasifica los errores del provider.
type Code string

const (
	CodeInvalidData   Code = "invalid_data"
	CodeNotSupported  Code = "not_supported"
	CodeConfiguration Code = "configuration"
	CodeUnknown       Code = "unknown"
)

// ProviderError es el error tipado que devuelven las operaciones del provider.
type ProviderError struct {
	Code    Code
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment provider %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("payment provider %s: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is compara por Code, así errors.Is(err, ErrNotSupported) funciona con cualquier mensaje.
func (e *ProviderError) Is(target error) bool {
	var pe *ProviderError
	if errors.As(target, &pe) {
		return pe.Code == e.Code && pe.Message == ""
	}
	return false
}

var (
	ErrInvalidData   = &ProviderError{Code: CodeInvalidData}
	ErrNotSupported  = &ProviderError{Code: CodeNotSupported}
	ErrConfiguration = &ProviderError{Code: CodeConfiguration}
	// ErrInvalidPayload: webhook sin payment id.
	ErrInvalidPayload = &ProviderError{Code: CodeInvalidData, Message: "Payment ID is missing from webhook payload"}
)

func newError(code Code, msg string, err error) *ProviderError {
	return &ProviderError{Code: code, Message: msg, Err: err}
}

// CodeOf retorna el Code de err, o CodeUnknown.
func CodeOf(err error) Code {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeUnknown
}
