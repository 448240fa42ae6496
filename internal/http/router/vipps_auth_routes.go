package router

import (
	"github.com/go-chi/chi/v5"
	ctrl "github.com/kittilsenstian-debug/online-store-engine/internal/http/controllers/vippsauth"
	mw "github.com/kittilsenstian-debug/online-store-engine/internal/http/middlewares"
)

// VippsAuthMounts son los prefijos donde se monta el login con Vipps.
var VippsAuthMounts = []string{"/auth/vipps", "/store/auth/vipps"}

// RegisterVippsAuthRoutes monta start y callback en cada prefijo.
func RegisterVippsAuthRoutes(r chi.Router, c *ctrl.Controllers) {
	for _, mount := range VippsAuthMounts {
		r.Route(mount, func(sr chi.Router) {
			sr.Use(mw.WithNoStore())

			// GET {mount} - inicia el flujo OAuth
			sr.Get("/", c.Start.Start)

			// GET {mount}/callback - redirect de Vipps
			sr.Get("/callback", c.Callback.Callback)
		})
	}
}
