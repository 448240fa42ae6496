package vipps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
)

// Estados de un pago en ePayment.
const (
	StateCreated    = "CREATED"
	StateAuthorized = "AUTHORIZED"
	StateCaptured   = "CAPTURED"
	StateTerminated = "TERMINATED"
	StateAborted    = "ABORTED"
	StateExpired    = "EXPIRED"
	StateFailed     = "FAILED"
	StateRejected   = "REJECTED"
)

// Amount es un monto en unidades menores (øre).
type Amount struct {
	Currency string `json:"currency"`
	Value    int64  `json:"value"`
}

// CreatePaymentRequest describe un pago nuevo. Amount va en unidades mayores
// y se convierte a øre al enviarse.
type CreatePaymentRequest struct {
	Amount      float64
	Currency    string
	Reference   string
	Description string
	PhoneNumber string
	Email       string
	ReturnURL   string
	// CallbackURL es informativo: ePayment registra webhooks aparte.
	CallbackURL string
}

// CreatePaymentResponse es el resultado de crear un pago.
type CreatePaymentResponse struct {
	PaymentID string
	URL       string
	Status    string
}

// Aggregate resume los montos procesados de un pago.
type Aggregate struct {
	AuthorizedAmount Amount `json:"authorizedAmount"`
	CancelledAmount  Amount `json:"cancelledAmount"`
	CapturedAmount   Amount `json:"capturedAmount"`
	RefundedAmount   Amount `json:"refundedAmount"`
}

// Payment es el objeto de pago devuelto por GET /payments/{reference}.
type Payment struct {
	Reference     string    `json:"reference"`
	PSPReference  string    `json:"pspReference"`
	State         string    `json:"state"`
	Amount        Amount    `json:"amount"`
	Aggregate     Aggregate `json:"aggregate"`
	PaymentMethod struct {
		Type string `json:"type"`
	} `json:"paymentMethod"`

	// Raw es la respuesta completa, para guardarla en la payment session.
	Raw json.RawMessage `json:"-"`
}

// Data retorna la respuesta original como mapa genérico.
func (p *Payment) Data() map[string]any {
	out := map[string]any{}
	if len(p.Raw) > 0 {
		_ = json.Unmarshal(p.Raw, &out)
	}
	if len(out) == 0 {
		out["reference"] = p.Reference
		out["state"] = p.State
	}
	return out
}

type createPaymentBody struct {
	Amount             Amount        `json:"amount"`
	PaymentMethod      paymentMethod `json:"paymentMethod"`
	Customer           *customer     `json:"customer,omitempty"`
	Reference          string        `json:"reference"`
	PaymentDescription string        `json:"paymentDescription,omitempty"`
	UserFlow           string        `json:"userFlow"`
	ReturnURL          string        `json:"returnUrl,omitempty"`
}

type paymentMethod struct {
	Type string `json:"type"`
}

type customer struct {
	PhoneNumber string `json:"phoneNumber"`
}

// La API documenta reference/redirectUrl; algunas versiones devuelven paymentId/url.
type createPaymentResult struct {
	PaymentID   string `json:"paymentId"`
	Reference   string `json:"reference"`
	URL         string `json:"url"`
	RedirectURL string `json:"redirectUrl"`
	State       string `json:"state"`
}

// CreatePayment inicia un pago WALLET con flujo WEB_REDIRECT.
func (c *Client) CreatePayment(ctx context.Context, in CreatePaymentRequest) (*CreatePaymentResponse, error) {
	body := createPaymentBody{
		Amount: Amount{
			Currency: strings.ToUpper(in.Currency),
			Value:    ToMinorUnits(in.Amount),
		},
		PaymentMethod:      paymentMethod{Type: "WALLET"},
		Reference:          in.Reference,
		PaymentDescription: in.Description,
		UserFlow:           "WEB_REDIRECT",
		ReturnURL:          in.ReturnURL,
	}
	if in.PhoneNumber != "" {
		body.Customer = &customer{PhoneNumber: in.PhoneNumber}
	}

	var res createPaymentResult
	if err := c.call(ctx, "create", ErrPaymentCreation, http.MethodPost, paymentsPath, body, &res); err != nil {
		return nil, err
	}

	out := &CreatePaymentResponse{
		PaymentID: firstNonEmpty(res.PaymentID, res.Reference, in.Reference),
		URL:       firstNonEmpty(res.URL, res.RedirectURL),
		Status:    firstNonEmpty(res.State, StateCreated),
	}
	logger.From(ctx).Info("vipps payment created",
		logger.Component("vipps.epayment"),
		logger.PaymentID(out.PaymentID),
		logger.Reference(in.Reference),
	)
	return out, nil
}

// GetPayment consulta el estado actual de un pago.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "get", ErrStatusLookup, http.MethodGet, paymentPath(paymentID, ""), nil, &raw); err != nil {
		return nil, err
	}
	p := &Payment{Raw: raw}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, newAPIError(ErrStatusLookup, "get", http.StatusOK, raw, err)
		}
	}
	if p.Reference == "" {
		p.Reference = paymentID
	}
	return p, nil
}

// CapturePayment captura amount de un pago autorizado.
func (c *Client) CapturePayment(ctx context.Context, paymentID string, amount Amount) error {
	body := struct {
		ModificationAmount Amount `json:"modificationAmount"`
	}{ModificationAmount: amount}
	return c.call(ctx, "capture", ErrAction, http.MethodPost, paymentPath(paymentID, "/capture"), body, nil)
}

// CancelPayment cancela un pago. reason vacío no se envía.
func (c *Client) CancelPayment(ctx context.Context, paymentID, reason string) error {
	body := map[string]string{}
	if reason != "" {
		body["reason"] = reason
	}
	return c.call(ctx, "cancel", ErrAction, http.MethodPost, paymentPath(paymentID, "/cancel"), body, nil)
}

func paymentPath(id, suffix string) string {
	return paymentsPath + "/" + url.PathEscape(id) + suffix
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
