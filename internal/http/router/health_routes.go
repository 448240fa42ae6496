package router

import (
	"github.com/go-chi/chi/v5"
	ctrl "github.com/kittilsenstian-debug/online-store-engine/internal/http/controllers/health"
)

// RegisterHealthRoutes registra /healthz y /readyz.
func RegisterHealthRoutes(r chi.Router, c *ctrl.Controllers) {
	r.Get("/healthz", c.Health.Healthz)
	r.Get("/readyz", c.Health.Readyz)
}
