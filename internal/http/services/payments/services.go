// Package payments contiene los services de pagos con Vipps: initiate y
// callback del checkout, el webhook de ePayment y las operaciones de admin
// sobre una payment session guardada.
package payments

import (
	"context"
	"errors"

	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
	"github.com/kittilsenstian-debug/online-store-engine/internal/payment"
)

// Provider es la parte de *payment.Provider que usan los services.
type Provider interface {
	Configured() bool
	Gateway() (payment.Gateway, error)
	ReturnURL(cartID string) string
	AuthorizePayment(ctx context.Context, data payment.SessionData) (*payment.AuthorizeResult, error)
	CapturePayment(ctx context.Context, data payment.SessionData) (payment.SessionData, error)
	CancelPayment(ctx context.Context, data payment.SessionData) (payment.SessionData, error)
	RefundPayment(ctx context.Context, data payment.SessionData, amount int64) (payment.SessionData, error)
	GetPaymentStatus(ctx context.Context, data payment.SessionData) payment.Status
	GetWebhookActionAndData(payload map[string]any) (*payment.WebhookResult, error)
}

// Deps contiene las dependencias de los services.
type Deps struct {
	Provider  Provider
	Carts     repository.CartRepository
	Customers repository.CustomerRepository
	Sessions  repository.PaymentSessionRepository

	// BackendURL arma el callbackUrl que recibe Vipps.
	BackendURL string
}

// Services agrupa los services de pagos.
type Services struct {
	Checkout CheckoutService
	Updates  UpdateService
	Admin    AdminService
}

// NewServices crea el agregador.
func NewServices(d Deps) Services {
	return Services{
		Checkout: NewCheckoutService(d),
		Updates:  NewUpdateService(d),
		Admin:    NewAdminService(d),
	}
}

var (
	ErrMissingFields    = errors.New("payments: missing required fields")
	ErrNotConfigured    = errors.New("payments: vipps configuration is missing")
	ErrCartNotFound     = errors.New("payments: cart not found")
	ErrMissingPaymentID = errors.New("payments: missing payment id")
	ErrSessionNotFound  = errors.New("payments: payment session not found")
)

// KeyWebhookState guarda el estado que informó el último webhook (sin verificar).
const KeyWebhookState = "vipps_webhook_state"

// vippsProviders son los provider_id con los que puede estar guardada una
// sesión de Vipps: el alias de la ruta initiate y el id del provider.
var vippsProviders = []string{payment.ProviderAlias, payment.ProviderID}
