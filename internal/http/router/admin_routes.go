package router

import (
	"github.com/go-chi/chi/v5"
	ctrl "github.com/kittilsenstian-debug/online-store-engine/internal/http/controllers/payments"
	mw "github.com/kittilsenstian-debug/online-store-engine/internal/http/middlewares"
)

// RegisterAdminRoutes registra las operaciones de admin sobre payment
// sessions, protegidas por X-Admin-API-Key.
func RegisterAdminRoutes(r chi.Router, c *ctrl.AdminController, apiKey string) {
	r.Route("/admin/payments/vipps/sessions/{id}", func(sr chi.Router) {
		sr.Use(mw.RequireAdminKey(apiKey), mw.WithNoStore())

		sr.Post("/authorize", c.Authorize)
		sr.Post("/capture", c.Capture)
		sr.Post("/cancel", c.Cancel)
		sr.Post("/refund", c.Refund)
		sr.Get("/status", c.Status)
	})
}
