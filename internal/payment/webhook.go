package payment

// ActionUpdate indica al host que actualice la sesión con los datos devueltos.
const ActionUpdate = "update"

// WebhookResult es la acción derivada de un webhook de Vipps.
type WebhookResult struct {
	Action string
	Data   SessionData
}

// GetWebhookActionAndData interpreta el payload sin aplicar la actualización.
// El id del pago sale de paymentId, payment_id o reference; el estado de
// state, status o name.
func (p *Provider) GetWebhookActionAndData(payload map[string]any) (*WebhookResult, error) {
	id := firstString(payload, "paymentId", "payment_id", "reference")
	if id == "" {
		return nil, ErrInvalidPayload
	}
	return &WebhookResult{
		Action: ActionUpdate,
		Data: SessionData{
			KeyPaymentID:     id,
			KeyPaymentStatus: firstString(payload, "state", "status", "name"),
			KeyPaymentData:   payload,
		},
	}, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
