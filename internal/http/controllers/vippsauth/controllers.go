// Package vippsauth contiene los controllers del login con Vipps. Los mismos
// controllers se montan en /auth/vipps y en /store/auth/vipps; el mount solo
// cambia el redirect_uri por defecto.
package vippsauth

import (
	"context"
	"net/http"
	"strings"

	"github.com/kittilsenstian-debug/online-store-engine/internal/http/helpers"
	svc "github.com/kittilsenstian-debug/online-store-engine/internal/http/services/vippsauth"
	"github.com/kittilsenstian-debug/online-store-engine/internal/rate"
	"github.com/kittilsenstian-debug/online-store-engine/internal/session"
)

// stateKey es la clave del state OAuth en la sesión.
const stateKey = "vipps_state"

// SessionStore es la parte de *session.Store que usan los controllers.
type SessionStore interface {
	Load(ctx context.Context, r *http.Request) (*session.Session, error)
	Save(ctx context.Context, w http.ResponseWriter, sess *session.Session) error
}

// Options configura los controllers.
type Options struct {
	Sessions SessionStore
	Limiter  rate.MultiLimiter // nil => sin rate limit
	Rate     helpers.LoginRateConfig
	// RedirectURI fijo (VIPPS_REDIRECT_URI); vacío => se deriva del request.
	RedirectURI string
}

// Controllers agrupa los controllers del login con Vipps.
type Controllers struct {
	Start    *StartController
	Callback *CallbackController
}

// NewControllers crea el agregador.
func NewControllers(s svc.Services, o Options) *Controllers {
	return &Controllers{
		Start:    NewStartController(s.Start, o),
		Callback: NewCallbackController(s.Callback, o),
	}
}

// redirectURI: el configurado o {scheme}://{host}{mount}/callback.
func redirectURI(r *http.Request, configured, mount string) string {
	if configured != "" {
		return configured
	}
	return helpers.BaseURL(r) + strings.TrimRight(mount, "/") + "/callback"
}
