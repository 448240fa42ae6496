package vippsauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
	"github.com/kittilsenstian-debug/online-store-engine/internal/metrics"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"github.com/kittilsenstian-debug/online-store-engine/internal/util"
)

// CallbackRequest son los datos del redirect de Vipps más el state guardado.
type CallbackRequest struct {
	Code  string
	State string
	// SessionState es el state que Start dejó en la sesión (ya consumido).
	SessionState string
	RedirectURI  string
}

// CallbackResult siempre lleva una URL del storefront: éxito o error con código.
type CallbackResult struct {
	RedirectURL string
	// ErrorCode vacío indica éxito.
	ErrorCode string
}

// CallbackService completa el login: token, identidad, usuario, customer y JWT.
type CallbackService interface {
	// Callback retorna ErrCallbackMissingCode / ErrCallbackInvalidState para
	// requests inválidos; cualquier otra falla se traduce en un redirect de error.
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error)
}

type callbackService struct {
	login        LoginClient
	users        repository.UserRepository
	customers    repository.CustomerRepository
	identities   repository.IdentityRepository
	authSessions repository.AuthSessionRepository
	issuer       TokenIssuer
	sealer       Sealer

	storefrontURL string
	lenientState  bool
}

// NewCallbackService crea un CallbackService.
func NewCallbackService(d Deps) CallbackService {
	return &callbackService{
		login:         d.Login,
		users:         d.Users,
		customers:     d.Customers,
		identities:    d.Identities,
		authSessions:  d.AuthSessions,
		issuer:        d.Issuer,
		sealer:        d.Sealer,
		storefrontURL: strings.TrimRight(d.StorefrontURL, "/"),
		lenientState:  d.LenientState,
	}
}

func (s *callbackService) Callback(ctx context.Context, req CallbackRequest) (res *CallbackResult, err error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("vippsauth.callback"))

	if strings.TrimSpace(req.Code) == "" {
		metrics.LoginCallbacks.WithLabelValues("bad_request").Inc()
		return nil, ErrCallbackMissingCode
	}
	if !s.stateOK(ctx, req.State, req.SessionState) {
		metrics.LoginCallbacks.WithLabelValues("bad_request").Inc()
		return nil, ErrCallbackInvalidState
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("callback panic", logger.Any("panic", rec))
			res, err = s.fail(CodeInternalError), nil
		}
	}()

	tok, err := s.login.Exchange(ctx, req.Code, req.RedirectURI)
	if err != nil {
		log.Warn("code exchange failed", logger.Err(err))
		return s.fail(CodeTokenError), nil
	}

	id, ok := s.resolveIdentity(ctx, log, tok)
	if !ok {
		log.Warn("no identity strategy produced a subject")
		return s.fail(CodeUserInfoError), nil
	}
	log = log.With(logger.Subject(id.Subject))

	user, err := s.resolveUser(ctx, log, id)
	if err != nil {
		log.Error("user provisioning failed", logger.Err(err))
		return s.fail(CodeIdentityError), nil
	}
	log = log.With(logger.UserID(user.ID))

	auth, prov, err := s.ensureIdentities(ctx, log, user, id, tok.AccessToken)
	if err != nil {
		log.Error("identity provisioning failed", logger.Err(err))
		return s.fail(CodeIdentityError), nil
	}

	cust, err := s.ensureCustomer(ctx, log, auth, user, id)
	if err != nil {
		log.Error("customer reconciliation failed", logger.Err(err))
		return s.fail(CodeCustomerError), nil
	}

	entityID := cust.ID
	if entityID == "" {
		entityID = user.ID
	}
	token, _, err := s.issuer.IssueCustomer(entityID, auth.ID, map[string]any{
		"customer_id": cust.ID,
	})
	if err != nil {
		log.Error("token issue failed", logger.Err(err))
		return s.fail(CodeSessionError), nil
	}

	if s.authSessions != nil {
		if _, err := s.authSessions.Create(ctx, user.ID, prov.ID); err != nil {
			log.Warn("auth session not recorded", logger.Err(err))
		}
	}

	metrics.LoginCallbacks.WithLabelValues("success").Inc()
	log.Info("vipps login completed",
		logger.CustomerID(cust.ID),
		logger.Strategy(id.Source),
		logger.String("email", util.MaskEmail(id.Email)),
		logger.String("phone", util.MaskPhone(id.PhoneNumber)),
	)

	q := url.Values{}
	q.Set("token", token)
	q.Set("provider", ProviderName)
	return &CallbackResult{RedirectURL: s.storefrontURL + "/auth/callback?" + q.Encode()}, nil
}

// stateOK: ambos presentes y distintos siempre falla. Si falta uno, el modo
// estricto rechaza y el modo lenient deja pasar con warning.
func (s *callbackService) stateOK(ctx context.Context, urlState, sessState string) bool {
	if urlState != "" && sessState != "" {
		return urlState == sessState
	}
	if !s.lenientState {
		return false
	}
	logger.From(ctx).Warn("vipps callback without paired state, accepted in lenient mode",
		logger.Component("vippsauth.callback"),
		logger.Bool("url_state", urlState != ""),
		logger.Bool("session_state", sessState != ""),
	)
	return true
}

func (s *callbackService) fail(code string) *CallbackResult {
	metrics.LoginCallbacks.WithLabelValues(code).Inc()
	return &CallbackResult{
		RedirectURL: fmt.Sprintf("%s/account?vipps_login=error&error=%s", s.storefrontURL, url.QueryEscape(code)),
		ErrorCode:   code,
	}
}
