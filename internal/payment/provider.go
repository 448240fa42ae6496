package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"github.com/kittilsenstian-debug/online-store-engine/internal/vipps"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mock/gateway_mock.go -package=mock . Gateway

const (
	// ProviderID identifica al provider en las payment sessions.
	ProviderID = "pp_vipps_vipps"
	// ProviderAlias es el id corto que usan sesiones creadas por la ruta initiate.
	ProviderAlias = "vipps"

	cancelReason = "Payment cancelled by customer"
	// cartRefLen limita cuánto del cart id entra en la referencia del pago.
	cartRefLen = 40
)

// Claves usadas en SessionData.
const (
	KeyPaymentID     = "vipps_payment_id"
	KeyPaymentStatus = "vipps_payment_status"
	KeyPaymentData   = "vipps_payment_data"
	KeyURL           = "url"
	KeyStatus        = "status"
	KeyReference     = "reference"
)

// Gateway es la parte de la API ePayment que usa el provider.
// *vipps.Client la implementa.
type Gateway interface {
	CreatePayment(ctx context.Context, in vipps.CreatePaymentRequest) (*vipps.CreatePaymentResponse, error)
	GetPayment(ctx context.Context, paymentID string) (*vipps.Payment, error)
	CapturePayment(ctx context.Context, paymentID string, amount vipps.Amount) error
	CancelPayment(ctx context.Context, paymentID, reason string) error
}

// SessionData es el blob "data" de una payment session.
type SessionData map[string]any

// PaymentID lee vipps_payment_id.
func (d SessionData) PaymentID() string {
	s, _ := d[KeyPaymentID].(string)
	return s
}

func (d SessionData) with(p *vipps.Payment) SessionData {
	out := make(SessionData, len(d)+2)
	for k, v := range d {
		out[k] = v
	}
	out[KeyPaymentStatus] = p.State
	out[KeyPaymentData] = p.Data()
	return out
}

// Options configura el provider.
type Options struct {
	ClientID             string
	ClientSecret         string
	SubscriptionKey      string
	MerchantSerialNumber string
	TestMode             bool
	BaseURL              string
	SystemName           string
	SystemVersion        string

	BackendURL    string
	StorefrontURL string
}

// GatewayFactory construye el Gateway la primera vez que se usa.
type GatewayFactory func(Options) (Gateway, error)

// VippsGatewayFactory crea un *vipps.Client real.
func VippsGatewayFactory(o Options) (Gateway, error) {
	return vipps.New(vipps.Config{
		ClientID:             o.ClientID,
		ClientSecret:         o.ClientSecret,
		SubscriptionKey:      o.SubscriptionKey,
		MerchantSerialNumber: o.MerchantSerialNumber,
		TestMode:             o.TestMode,
		BaseURL:              o.BaseURL,
		SystemName:           o.SystemName,
		SystemVersion:        o.SystemVersion,
	})
}

// Provider adapta las operaciones genéricas de payment session a ePayment.
type Provider struct {
	opts    Options
	factory GatewayFactory

	mu sync.Mutex
	gw Gateway
}

// NewProvider no valida credenciales: la validación ocurre en la primera operación.
func NewProvider(opts Options, factory GatewayFactory) *Provider {
	if factory == nil {
		factory = VippsGatewayFactory
	}
	if opts.BackendURL == "" {
		opts.BackendURL = "http://localhost:9000"
	}
	if opts.StorefrontURL == "" {
		opts.StorefrontURL = "http://localhost:8000"
	}
	opts.BackendURL = strings.TrimRight(opts.BackendURL, "/")
	opts.StorefrontURL = strings.TrimRight(opts.StorefrontURL, "/")
	return &Provider{opts: opts, factory: factory}
}

// NewProviderWithGateway usa un Gateway ya construido.
func NewProviderWithGateway(opts Options, gw Gateway) *Provider {
	p := NewProvider(opts, nil)
	p.gw = gw
	return p
}

// Identifier retorna el id del provider.
func (p *Provider) Identifier() string { return ProviderID }

// Configured reporta si las credenciales obligatorias están presentes.
func (p *Provider) Configured() bool {
	return p.opts.ClientID != "" && p.opts.ClientSecret != "" && p.opts.SubscriptionKey != ""
}

// Gateway retorna el cliente ePayment, construyéndolo en el primer uso.
// Sin credenciales retorna un ProviderError de configuración.
func (p *Provider) Gateway() (Gateway, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gw != nil {
		return p.gw, nil
	}
	if !p.Configured() {
		return nil, newError(CodeConfiguration,
			"Vipps payment provider is not configured. Please provide clientId, clientSecret, and subscriptionKey.", nil)
	}
	gw, err := p.factory(p.opts)
	if err != nil {
		return nil, newError(CodeConfiguration, "could not build Vipps client", err)
	}
	p.gw = gw
	return gw, nil
}

// InitiateInput describe la sesión a abrir. Amount viene en unidades menores.
type InitiateInput struct {
	Amount       int64
	CurrencyCode string
	CartID       string
	CustomerID   string
	Description  string
	Email        string
	PhoneNumber  string
}

// InitiatePayment crea el pago en Vipps y retorna los datos de la sesión.
func (p *Provider) InitiatePayment(ctx context.Context, in InitiateInput) (SessionData, error) {
	log := p.log(ctx, "InitiatePayment")

	if in.Amount <= 0 || strings.TrimSpace(in.CurrencyCode) == "" {
		return nil, newError(CodeInvalidData, "Amount and currency are required", nil)
	}
	gw, err := p.Gateway()
	if err != nil {
		return nil, err
	}

	reference := Reference(in.CartID)
	description := in.Description
	if description == "" {
		description = "Order payment"
	}
	req := vipps.CreatePaymentRequest{
		Amount:      vipps.FromMinorUnits(in.Amount),
		Currency:    strings.ToUpper(in.CurrencyCode),
		Reference:   reference,
		Description: description,
		ReturnURL:   p.ReturnURL(in.CartID),
		CallbackURL: p.opts.BackendURL + "/store/payments/vipps/webhook",
	}
	if in.CustomerID != "" {
		req.Email = in.Email
		req.PhoneNumber = in.PhoneNumber
	}

	res, err := gw.CreatePayment(ctx, req)
	if err != nil {
		log.Error("create payment failed", logger.Reference(reference), logger.Err(err))
		return nil, wrapUpstream("Failed to initiate Vipps payment", err)
	}

	return SessionData{
		KeyPaymentID: res.PaymentID,
		KeyURL:       res.URL,
		KeyStatus:    string(MapVippsState(res.Status)),
		KeyReference: reference,
	}, nil
}

// AuthorizeResult es el resultado de AuthorizePayment.
type AuthorizeResult struct {
	Status Status
	Data   SessionData
}

// AuthorizePayment consulta Vipps y reporta el estado mapeado.
func (p *Provider) AuthorizePayment(ctx context.Context, data SessionData) (*AuthorizeResult, error) {
	id, gw, err := p.prepare(data)
	if err != nil {
		return nil, err
	}
	pay, err := gw.GetPayment(ctx, id)
	if err != nil {
		p.log(ctx, "AuthorizePayment").Error("status lookup failed", logger.PaymentID(id), logger.Err(err))
		return nil, wrapUpstream("Failed to authorize Vipps payment", err)
	}
	return &AuthorizeResult{Status: MapVippsState(pay.State), Data: data.with(pay)}, nil
}

// CapturePayment captura un pago AUTHORIZED. Si ya está CAPTURED no llama a Vipps.
func (p *Provider) CapturePayment(ctx context.Context, data SessionData) (SessionData, error) {
	log := p.log(ctx, "CapturePayment")
	id, gw, err := p.prepare(data)
	if err != nil {
		return nil, err
	}

	pay, err := gw.GetPayment(ctx, id)
	if err != nil {
		log.Error("status lookup failed", logger.PaymentID(id), logger.Err(err))
		return nil, wrapUpstream("Failed to capture Vipps payment", err)
	}

	switch strings.ToUpper(pay.State) {
	case vipps.StateCaptured:
		log.Info("payment already captured", logger.PaymentID(id))
		return data.with(pay), nil
	case vipps.StateAuthorized:
		amount := pay.Aggregate.AuthorizedAmount
		if amount.Value == 0 {
			amount = pay.Amount
		}
		if err := gw.CapturePayment(ctx, id, amount); err != nil {
			log.Error("capture failed", logger.PaymentID(id), logger.Err(err))
			return nil, wrapUpstream("Failed to capture Vipps payment", err)
		}
		updated, err := gw.GetPayment(ctx, id)
		if err != nil {
			return nil, wrapUpstream("Failed to capture Vipps payment", err)
		}
		log.Info("payment captured", logger.PaymentID(id), logger.PaymentState(updated.State))
		return data.with(updated), nil
	default:
		return nil, newError(CodeInvalidData,
			fmt.Sprintf("Payment is not in a capturable state. Current status: %s", pay.State), nil)
	}
}

// RefundPayment no está soportado: los reembolsos se hacen en el portal de Vipps.
func (p *Provider) RefundPayment(ctx context.Context, data SessionData, amount int64) (SessionData, error) {
	p.log(ctx, "RefundPayment").Warn("refund requested", logger.PaymentID(data.PaymentID()), logger.Any("amount", amount))
	return nil, newError(CodeNotSupported,
		"Refunds are not yet supported for Vipps payments. Please process refunds manually through the Vipps portal.", nil)
}

// CancelPayment cancela el pago y devuelve el estado actualizado.
func (p *Provider) CancelPayment(ctx context.Context, data SessionData) (SessionData, error) {
	log := p.log(ctx, "CancelPayment")
	id, gw, err := p.prepare(data)
	if err != nil {
		return nil, err
	}
	if err := gw.CancelPayment(ctx, id, cancelReason); err != nil {
		log.Error("cancel failed", logger.PaymentID(id), logger.Err(err))
		return nil, wrapUpstream("Failed to cancel Vipps payment", err)
	}
	pay, err := gw.GetPayment(ctx, id)
	if err != nil {
		return nil, wrapUpstream("Failed to cancel Vipps payment", err)
	}
	return data.with(pay), nil
}

// DeletePayment equivale a cancelar.
func (p *Provider) DeletePayment(ctx context.Context, data SessionData) (SessionData, error) {
	return p.CancelPayment(ctx, data)
}

// GetPaymentStatus nunca falla: cualquier problema se reporta como StatusError.
func (p *Provider) GetPaymentStatus(ctx context.Context, data SessionData) Status {
	id, gw, err := p.prepare(data)
	if err != nil {
		return StatusError
	}
	pay, err := gw.GetPayment(ctx, id)
	if err != nil {
		p.log(ctx, "GetPaymentStatus").Warn("status lookup failed", logger.PaymentID(id), logger.Err(err))
		return StatusError
	}
	return MapVippsState(pay.State)
}

// ReturnURL arma la URL del storefront a la que vuelve el cliente.
func (p *Provider) ReturnURL(cartID string) string {
	return p.opts.StorefrontURL + "/checkout?payment_success=true&cart_id=" + cartID
}

// Reference arma la referencia del pago: CART-<cart id> o PAY-<ulid>.
func Reference(cartID string) string {
	if cartID == "" {
		return "PAY-" + ulid.Make().String()
	}
	if len(cartID) > cartRefLen {
		cartID = cartID[:cartRefLen]
	}
	return "CART-" + cartID
}

func (p *Provider) prepare(data SessionData) (string, Gateway, error) {
	id := data.PaymentID()
	if id == "" {
		return "", nil, newError(CodeInvalidData, "Vipps payment ID is missing", nil)
	}
	gw, err := p.Gateway()
	if err != nil {
		return "", nil, err
	}
	return id, gw, nil
}

func (p *Provider) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(
		logger.Layer("provider"),
		logger.Component("payment.vipps"),
		logger.Op(op),
	)
}

// wrapUpstream conserva ProviderError existentes y envuelve el resto como unknown.
func wrapUpstream(msg string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return newError(CodeUnknown, msg, err)
}
