package router

import (
	"github.com/go-chi/chi/v5"
	ctrl "github.com/kittilsenstian-debug/online-store-engine/internal/http/controllers/payments"
)

// RegisterPaymentRoutes registra las rutas de pago del storefront.
func RegisterPaymentRoutes(r chi.Router, c *ctrl.Controllers) {
	r.Route("/store/payments/vipps", func(sr chi.Router) {
		// POST /store/payments/vipps/initiate - abre el pago para un cart
		sr.Post("/initiate", c.Checkout.Initiate)

		// POST /store/payments/vipps/callback - {paymentId} desde el storefront
		sr.Post("/callback", c.Checkout.Callback)

		// POST /store/payments/vipps/webhook - webhook de ePayment
		sr.Post("/webhook", c.Checkout.Webhook)
	})
}
