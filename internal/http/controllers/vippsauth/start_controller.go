package vippsauth

import (
	"net/http"

	dto "github.com/kittilsenstian-debug/online-store-engine/internal/http/dto/vippsauth"
	httperrors "github.com/kittilsenstian-debug/online-store-engine/internal/http/errors"
	"github.com/kittilsenstian-debug/online-store-engine/internal/http/helpers"
	svc "github.com/kittilsenstian-debug/online-store-engine/internal/http/services/vippsauth"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
)

// StartController inicia el flujo OAuth.
type StartController struct {
	service svc.StartService
	opts    Options
}

// NewStartController crea un StartController.
func NewStartController(service svc.StartService, o Options) *StartController {
	return &StartController{service: service, opts: o}
}

// Start maneja GET {mount}: guarda el state en sesión y redirige a Vipps, o
// devuelve {authUrl, state} si el cliente acepta JSON.
func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	if c.opts.Limiter != nil && !helpers.EnforceLoginLimit(w, r, c.opts.Limiter, c.opts.Rate, "start") {
		return
	}

	res, err := c.service.Start(ctx, svc.StartRequest{
		State:       r.URL.Query().Get("state"),
		RedirectURI: redirectURI(r, c.opts.RedirectURI, r.URL.Path),
	})
	if err != nil {
		log.Error("start failed", logger.Err(err))
		httperrors.WriteErrorCtx(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	sess, err := c.opts.Sessions.Load(ctx, r)
	if err == nil {
		sess.Set(stateKey, res.State)
		err = c.opts.Sessions.Save(ctx, w, sess)
	}
	if err != nil {
		log.Error("session save failed", logger.Err(err))
		httperrors.WriteErrorCtx(w, r, httperrors.ErrServiceUnavailable.WithCause(err))
		return
	}

	helpers.NoStore(w)
	if helpers.WantsJSON(r) {
		helpers.WriteJSON(w, http.StatusOK, dto.StartResponse{AuthURL: res.AuthURL, State: res.State})
		return
	}
	http.Redirect(w, r, res.AuthURL, http.StatusFound)
}
