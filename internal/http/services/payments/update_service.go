package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
	"github.com/kittilsenstian-debug/online-store-engine/internal/metrics"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"github.com/kittilsenstian-debug/online-store-engine/internal/payment"
	"go.uber.org/zap"
)

// UpdateService aplica a las payment sessions los cambios de estado que
// informa Vipps (callback del checkout o webhook).
type UpdateService interface {
	// Callback consulta el estado en Vipps y actualiza la sesión del cart.
	// Solo falla por request inválido, configuración o la consulta a Vipps;
	// la actualización local es best-effort.
	Callback(ctx context.Context, paymentID string) error

	// Webhook usa el payload solo para ubicar la sesión; el estado se consulta
	// siempre a Vipps. Retorna payment.ErrInvalidPayload si no trae payment id.
	Webhook(ctx context.Context, payload map[string]any) error
}

type updateService struct {
	provider Provider
	carts    repository.CartRepository
	sessions repository.PaymentSessionRepository
}

// NewUpdateService crea un UpdateService.
func NewUpdateService(d Deps) UpdateService {
	return &updateService{provider: d.Provider, carts: d.Carts, sessions: d.Sessions}
}

func (s *updateService) Callback(ctx context.Context, paymentID string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("payments.updates"),
		logger.Op("Callback"),
		logger.PaymentID(paymentID),
	)

	if strings.TrimSpace(paymentID) == "" {
		return ErrMissingPaymentID
	}
	if !s.provider.Configured() {
		return ErrNotConfigured
	}
	gw, err := s.provider.Gateway()
	if err != nil {
		return err
	}
	pay, err := gw.GetPayment(ctx, paymentID)
	if err != nil {
		log.Error("vipps status lookup failed", logger.Err(err))
		return err
	}
	log.Info("vipps payment callback", logger.PaymentState(pay.State), logger.Reference(pay.Reference))

	cartID := strings.TrimPrefix(pay.Reference, "CART-")
	if cartID == "" || cartID == pay.Reference {
		return nil
	}
	cart, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		log.Warn("callback cart not found", logger.CartID(cartID), logger.Err(err))
		return nil
	}
	if cart.PaymentCollectionID == "" {
		return nil
	}
	ps, err := s.sessions.FindByPaymentID(ctx, cart.PaymentCollectionID, []string{payment.ProviderAlias}, paymentID)
	if err != nil {
		log.Warn("callback payment session not found", logger.CartID(cartID), logger.Err(err))
		return nil
	}

	data := cloneData(ps.Data)
	data[payment.KeyPaymentStatus] = pay.State
	data[payment.KeyPaymentData] = pay.Data()
	status := payment.MapVippsState(pay.State)
	s.apply(ctx, log, "callback", ps, status, data)
	return nil
}

func (s *updateService) Webhook(ctx context.Context, payload map[string]any) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("payments.updates"),
		logger.Op("Webhook"),
	)

	res, err := s.provider.GetWebhookActionAndData(payload)
	if err != nil {
		return err
	}
	id := res.Data.PaymentID()
	log = log.With(logger.PaymentID(id))

	ps, err := s.sessions.FindByPaymentID(ctx, "", vippsProviders, id)
	if repository.IsNotFound(err) {
		log.Warn("webhook for unknown payment")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find payment session: %w", err)
	}

	// El payload no está firmado: solo dispara la consulta a Vipps. El estado
	// que trae queda como dato, nunca como status de la sesión.
	data := cloneData(ps.Data)
	data[payment.KeyPaymentID] = id
	if state, _ := res.Data[payment.KeyPaymentStatus].(string); state != "" {
		data[KeyWebhookState] = state
	}
	ar, err := s.provider.AuthorizePayment(ctx, payment.SessionData(data))
	if err != nil {
		log.Warn("webhook status lookup failed", logger.Err(err))
		return nil
	}
	s.apply(ctx, log, "webhook", ps, ar.Status, ar.Data)
	return nil
}

func (s *updateService) apply(ctx context.Context, log *zap.Logger, source string, ps *repository.PaymentSession, status payment.Status, data map[string]any) {
	if _, err := s.sessions.Update(ctx, ps.ID, string(status), data); err != nil {
		log.Error("payment session update failed", logger.SessionID(ps.ID), logger.Err(err))
		return
	}
	metrics.PaymentUpdates.WithLabelValues(source, string(status)).Inc()
	log.Info("payment session updated", logger.SessionID(ps.ID), logger.String("status", string(status)))
}

func cloneData(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}
