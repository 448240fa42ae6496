// Package payments contiene DTOs de las rutas de pago con Vipps.
package payments

import "math"

// InitiateRequest es el body de POST /store/payments/vipps/initiate.
// Amount viene en unidades menores.
type InitiateRequest struct {
	CartID   string  `json:"cart_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// MinorAmount redondea Amount a un entero de unidades menores.
func (r InitiateRequest) MinorAmount() int64 {
	return int64(math.Round(r.Amount))
}

// InitiateResponse es la respuesta de initiate.
type InitiateResponse struct {
	PaymentID string `json:"payment_id"`
	URL       string `json:"url"`
	Status    string `json:"status"`
}

// CallbackRequest es el body de POST /store/payments/vipps/callback.
type CallbackRequest struct {
	PaymentID string `json:"paymentId"`
}

// StatusResponse es el {status:"ok"} de callback y webhook.
type StatusResponse struct {
	Status string `json:"status"`
}

// RefundRequest es el body opcional de la ruta de refund. Amount en unidades menores.
type RefundRequest struct {
	Amount int64 `json:"amount"`
}

// SessionResponse es el estado de una payment session tras una operación de admin.
type SessionResponse struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
}
