package payments

import (
	"net/http"

	dto "github.com/kittilsenstian-debug/online-store-engine/internal/http/dto/payments"
	httperrors "github.com/kittilsenstian-debug/online-store-engine/internal/http/errors"
	"github.com/kittilsenstian-debug/online-store-engine/internal/http/helpers"
	svc "github.com/kittilsenstian-debug/online-store-engine/internal/http/services/payments"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
)

// CheckoutController maneja las rutas de pago del storefront.
type CheckoutController struct {
	checkout svc.CheckoutService
	updates  svc.UpdateService
}

// NewCheckoutController crea un CheckoutController.
func NewCheckoutController(checkout svc.CheckoutService, updates svc.UpdateService) *CheckoutController {
	return &CheckoutController{checkout: checkout, updates: updates}
}

// Initiate maneja POST /store/payments/vipps/initiate.
func (c *CheckoutController) Initiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CheckoutController.Initiate"))

	var req dto.InitiateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	res, err := c.checkout.Initiate(ctx, svc.InitiateRequest{
		CartID:   req.CartID,
		Amount:   req.MinorAmount(),
		Currency: req.Currency,
	})
	if err != nil {
		appErr := mapError(err)
		if appErr.HTTPStatus >= http.StatusInternalServerError && appErr.Code != httperrors.ErrConfiguration.Code {
			// Las fallas upstream se reportan como 500 con el mensaje del error.
			appErr = httperrors.ErrInternalServerError.WithMessage("Failed to initiate Vipps payment").WithDetail(err.Error())
		}
		log.Warn("initiate failed", logger.CartID(req.CartID), logger.Err(err))
		httperrors.WriteErrorCtx(w, r, appErr)
		return
	}

	helpers.NoStore(w)
	helpers.WriteJSON(w, http.StatusOK, dto.InitiateResponse{
		PaymentID: res.PaymentID,
		URL:       res.URL,
		Status:    res.Status,
	})
}

// Callback maneja POST /store/payments/vipps/callback. Responde 200 aunque la
// actualización local falle.
func (c *CheckoutController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CheckoutController.Callback"))

	var req dto.CallbackRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if err := c.updates.Callback(ctx, req.PaymentID); err != nil {
		appErr := mapError(err)
		if appErr.HTTPStatus >= http.StatusInternalServerError && appErr.Code != httperrors.ErrConfiguration.Code {
			appErr = httperrors.ErrInternalServerError.WithMessage("Failed to process Vipps payment callback").WithDetail(err.Error())
		}
		log.Warn("callback failed", logger.PaymentID(req.PaymentID), logger.Err(err))
		httperrors.WriteErrorCtx(w, r, appErr)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// Webhook maneja POST /store/payments/vipps/webhook.
func (c *CheckoutController) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CheckoutController.Webhook"))

	var payload map[string]any
	if !helpers.ReadJSON(w, r, &payload) {
		return
	}
	if err := c.updates.Webhook(ctx, payload); err != nil {
		log.Warn("webhook rejected", logger.Err(err))
		httperrors.WriteErrorCtx(w, r, mapError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.StatusResponse{Status: "ok"})
}
