package vippsauth

import (
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/kittilsenstian-debug/online-store-engine/internal/http/errors"
	"github.com/kittilsenstian-debug/online-store-engine/internal/http/helpers"
	svc "github.com/kittilsenstian-debug/online-store-engine/internal/http/services/vippsauth"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
)

// CallbackController recibe el redirect de Vipps.
type CallbackController struct {
	service svc.CallbackService
	opts    Options
}

// NewCallbackController crea un CallbackController.
func NewCallbackController(service svc.CallbackService, o Options) *CallbackController {
	return &CallbackController{service: service, opts: o}
}

// Callback maneja GET {mount}/callback. Los requests inválidos responden 400
// JSON; el resto termina siempre en un redirect al storefront.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	if c.opts.Limiter != nil && !helpers.EnforceLoginLimit(w, r, c.opts.Limiter, c.opts.Rate, "callback") {
		return
	}

	q := r.URL.Query()
	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		// Vipps puede mandar error/error_description en vez de code.
		if idpErr := q.Get("error"); idpErr != "" {
			log.Warn("vipps returned an error", logger.String("error", idpErr), logger.String("description", q.Get("error_description")))
		}
	}

	// El state de la sesión se consume aunque el callback falle.
	var sessState string
	sess, err := c.opts.Sessions.Load(ctx, r)
	if err != nil {
		log.Warn("session load failed", logger.Err(err))
	} else if sessState = sess.Pop(stateKey); sessState != "" {
		if err := c.opts.Sessions.Save(ctx, w, sess); err != nil {
			log.Warn("session save failed", logger.Err(err))
		}
	}

	mount := strings.TrimSuffix(strings.TrimRight(r.URL.Path, "/"), "/callback")
	res, err := c.service.Callback(ctx, svc.CallbackRequest{
		Code:         code,
		State:        strings.TrimSpace(q.Get("state")),
		SessionState: sessState,
		RedirectURI:  redirectURI(r, c.opts.RedirectURI, mount),
	})
	switch {
	case errors.Is(err, svc.ErrCallbackMissingCode):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithMessage("Missing authorization code"))
		return
	case errors.Is(err, svc.ErrCallbackInvalidState):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithMessage("Invalid state parameter"))
		return
	case err != nil:
		httperrors.WriteErrorCtx(w, r, err)
		return
	}

	if res.ErrorCode != "" {
		log.Warn("vipps login failed", logger.String("error_code", res.ErrorCode))
	}
	helpers.NoStore(w)
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}
