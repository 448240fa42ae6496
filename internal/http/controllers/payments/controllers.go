// Package payments contiene los controllers de las rutas de pago con Vipps.
package payments

import (
	"errors"
	"strings"

	httperrors "github.com/kittilsenstian-debug/online-store-engine/internal/http/errors"
	svc "github.com/kittilsenstian-debug/online-store-engine/internal/http/services/payments"
	"github.com/kittilsenstian-debug/online-store-engine/internal/payment"
)

// Controllers agrupa los controllers de pagos.
type Controllers struct {
	Checkout *CheckoutController
	Admin    *AdminController
}

// NewControllers crea el agregador.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Checkout: NewCheckoutController(s.Checkout, s.Updates),
		Admin:    NewAdminController(s.Admin),
	}
}

// mapError traduce errores de service y provider a AppError.
func mapError(err error) *httperrors.AppError {
	switch {
	case errors.Is(err, svc.ErrMissingFields):
		return httperrors.ErrMissingFields.WithMessage("Missing required fields: cart_id, amount, currency")
	case errors.Is(err, svc.ErrMissingPaymentID):
		return httperrors.ErrMissingFields.WithMessage("Missing paymentId")
	case errors.Is(err, svc.ErrNotConfigured):
		return httperrors.ErrConfiguration.WithMessage("Vipps payment configuration is missing")
	case errors.Is(err, svc.ErrCartNotFound):
		return httperrors.ErrNotFound.WithMessage("Cart not found")
	case errors.Is(err, svc.ErrSessionNotFound):
		return httperrors.ErrNotFound.WithMessage("Payment session not found")
	}

	var pe *payment.ProviderError
	if !errors.As(err, &pe) {
		return httperrors.ErrInternalServerError.WithCause(err)
	}
	var base *httperrors.AppError
	switch pe.Code {
	case payment.CodeInvalidData:
		base = httperrors.ErrBadRequest
		if isStateConflict(pe.Message) {
			base = httperrors.ErrConflict
		}
	case payment.CodeConfiguration:
		base = httperrors.ErrConfiguration
	case payment.CodeNotSupported:
		base = httperrors.ErrNotImplemented
	default:
		base = httperrors.ErrBadGateway
	}
	out := base.WithCause(err)
	if pe.Message != "" {
		out = out.WithMessage(pe.Message)
	}
	return out
}

func isStateConflict(msg string) bool {
	return strings.HasPrefix(msg, notCapturable)
}

const notCapturable = "Payment is not in a capturable state"
