// Package router arma el router chi con todas las rutas del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	healthctrl "github.com/kittilsenstian-debug/online-store-engine/internal/http/controllers/health"
	paymentsctrl "github.com/kittilsenstian-debug/online-store-engine/internal/http/controllers/payments"
	vippsauthctrl "github.com/kittilsenstian-debug/online-store-engine/internal/http/controllers/vippsauth"
	httperrors "github.com/kittilsenstian-debug/online-store-engine/internal/http/errors"
	mw "github.com/kittilsenstian-debug/online-store-engine/internal/http/middlewares"
)

// Deps contiene los controllers y opciones del router.
type Deps struct {
	Health    *healthctrl.Controllers
	VippsAuth *vippsauthctrl.Controllers
	Payments  *paymentsctrl.Controllers

	// Metrics sirve /metrics; nil => la ruta no se registra.
	Metrics     http.Handler
	AdminAPIKey string
}

// New crea el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Orden: recover envuelve todo; request id antes de logging para que el
	// logger del request lo lleve.
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithMetrics(),
		mw.WithSecurityHeaders(),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	if d.Health != nil {
		RegisterHealthRoutes(r, d.Health)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	if d.VippsAuth != nil {
		RegisterVippsAuthRoutes(r, d.VippsAuth)
	}
	if d.Payments != nil {
		RegisterPaymentRoutes(r, d.Payments)
		RegisterAdminRoutes(r, d.Payments.Admin, d.AdminAPIKey)
	}
	return r
}
