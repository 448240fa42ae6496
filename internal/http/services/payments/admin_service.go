package payments

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kittilsenstian-debug/online-store-engine/internal/audit"
	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
	"github.com/kittilsenstian-debug/online-store-engine/internal/metrics"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"github.com/kittilsenstian-debug/online-store-engine/internal/payment"
)

// Operaciones de admin sobre una payment session.
const (
	OpAuthorize = "authorize"
	OpCapture   = "capture"
	OpCancel    = "cancel"
	OpRefund    = "refund"
	OpStatus    = "status"
)

// SessionResult es el estado de la sesión después de la operación.
type SessionResult struct {
	SessionID string
	Status    string
	Data      map[string]any
}

// AdminService expone las operaciones del provider sobre sesiones guardadas.
// Los errores del provider salen como *payment.ProviderError.
type AdminService interface {
	Authorize(ctx context.Context, sessionID string) (*SessionResult, error)
	Capture(ctx context.Context, sessionID string) (*SessionResult, error)
	Cancel(ctx context.Context, sessionID string) (*SessionResult, error)
	Refund(ctx context.Context, sessionID string, amount int64) (*SessionResult, error)
	// Status consulta Vipps sin modificar la sesión.
	Status(ctx context.Context, sessionID string) (*SessionResult, error)
}

type adminService struct {
	provider Provider
	sessions repository.PaymentSessionRepository
}

// NewAdminService crea un AdminService.
func NewAdminService(d Deps) AdminService {
	return &adminService{provider: d.Provider, sessions: d.Sessions}
}

func (s *adminService) load(ctx context.Context, id string) (*repository.PaymentSession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrSessionNotFound
	}
	ps, err := s.sessions.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment session: %w", err)
	}
	if !slices.Contains(vippsProviders, ps.ProviderID) {
		return nil, ErrSessionNotFound
	}
	return ps, nil
}

func (s *adminService) Authorize(ctx context.Context, id string) (*SessionResult, error) {
	ps, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.provider.AuthorizePayment(ctx, payment.SessionData(ps.Data))
	if err != nil {
		return nil, err
	}
	return s.save(ctx, OpAuthorize, ps, res.Status, res.Data, 0)
}

func (s *adminService) Capture(ctx context.Context, id string) (*SessionResult, error) {
	ps, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.provider.CapturePayment(ctx, payment.SessionData(ps.Data))
	if err != nil {
		return nil, err
	}
	return s.save(ctx, OpCapture, ps, statusOf(data, ps.Status), data, 0)
}

func (s *adminService) Cancel(ctx context.Context, id string) (*SessionResult, error) {
	ps, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.provider.CancelPayment(ctx, payment.SessionData(ps.Data))
	if err != nil {
		return nil, err
	}
	return s.save(ctx, OpCancel, ps, statusOf(data, ps.Status), data, 0)
}

func (s *adminService) Refund(ctx context.Context, id string, amount int64) (*SessionResult, error) {
	ps, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.provider.RefundPayment(ctx, payment.SessionData(ps.Data), amount)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, OpRefund, ps, statusOf(data, ps.Status), data, amount)
}

func (s *adminService) Status(ctx context.Context, id string) (*SessionResult, error) {
	ps, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	st := s.provider.GetPaymentStatus(ctx, payment.SessionData(ps.Data))
	return &SessionResult{SessionID: ps.ID, Status: string(st), Data: ps.Data}, nil
}

func (s *adminService) save(ctx context.Context, op string, ps *repository.PaymentSession, status payment.Status, data payment.SessionData, amount int64) (*SessionResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("payments.admin"),
		logger.Op(op),
		logger.SessionID(ps.ID),
	)
	updated, err := s.sessions.Update(ctx, ps.ID, string(status), data)
	if err != nil {
		log.Error("payment session update failed", logger.Err(err))
		return nil, fmt.Errorf("update payment session: %w", err)
	}
	metrics.PaymentUpdates.WithLabelValues("admin", string(status)).Inc()
	log.Info("payment session updated", logger.String("status", updated.Status))
	audit.Log(ctx, audit.Event{Name: "payment." + op, SessionID: ps.ID, From: ps.Status, To: updated.Status, Amount: amount})
	return &SessionResult{SessionID: updated.ID, Status: updated.Status, Data: updated.Data}, nil
}

// statusOf mapea vipps_payment_status; sin estado se conserva fallback.
func statusOf(data payment.SessionData, fallback string) payment.Status {
	if st, _ := data[payment.KeyPaymentStatus].(string); st != "" {
		return payment.MapVippsState(st)
	}
	return payment.Status(fallback)
}
