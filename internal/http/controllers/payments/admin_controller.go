package payments

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	dto "github.com/kittilsenstian-debug/online-store-engine/internal/http/dto/payments"
	httperrors "github.com/kittilsenstian-debug/online-store-engine/internal/http/errors"
	"github.com/kittilsenstian-debug/online-store-engine/internal/http/helpers"
	svc "github.com/kittilsenstian-debug/online-store-engine/internal/http/services/payments"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
)

// AdminController expone las operaciones del provider sobre payment sessions.
type AdminController struct {
	service svc.AdminService
}

// NewAdminController crea un AdminController.
func NewAdminController(service svc.AdminService) *AdminController {
	return &AdminController{service: service}
}

// Authorize maneja POST /admin/payments/vipps/sessions/{id}/authorize
func (c *AdminController) Authorize(w http.ResponseWriter, r *http.Request) {
	c.run(w, r, svc.OpAuthorize, c.service.Authorize)
}

// Capture maneja POST /admin/payments/vipps/sessions/{id}/capture
func (c *AdminController) Capture(w http.ResponseWriter, r *http.Request) {
	c.run(w, r, svc.OpCapture, c.service.Capture)
}

// Cancel maneja POST /admin/payments/vipps/sessions/{id}/cancel
func (c *AdminController) Cancel(w http.ResponseWriter, r *http.Request) {
	c.run(w, r, svc.OpCancel, c.service.Cancel)
}

// Status maneja GET /admin/payments/vipps/sessions/{id}/status
func (c *AdminController) Status(w http.ResponseWriter, r *http.Request) {
	c.run(w, r, svc.OpStatus, c.service.Status)
}

// Refund maneja POST /admin/payments/vipps/sessions/{id}/refund
func (c *AdminController) Refund(w http.ResponseWriter, r *http.Request) {
	var req dto.RefundRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	c.run(w, r, svc.OpRefund, func(ctx context.Context, id string) (*svc.SessionResult, error) {
		return c.service.Refund(ctx, id, req.Amount)
	})
}

func (c *AdminController) run(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, string) (*svc.SessionResult, error)) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("AdminController."+op),
		logger.SessionID(id),
	)

	res, err := fn(ctx, id)
	if err != nil {
		log.Warn("admin payment operation failed", logger.Err(err))
		httperrors.WriteErrorCtx(w, r, mapError(err))
		return
	}

	helpers.NoStore(w)
	helpers.WriteJSON(w, http.StatusOK, dto.SessionResponse{ID: res.SessionID, Status: res.Status, Data: res.Data})
}
