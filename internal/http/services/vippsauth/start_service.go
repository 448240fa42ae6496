package vippsauth

import (
	"context"
	"fmt"
	"strings"

	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	tokens "github.com/kittilsenstian-debug/online-store-engine/internal/security/token"
)

// StartRequest son los datos para iniciar el login.
type StartRequest struct {
	// State del cliente (?state=). Solo se usa en modo lenient; si no, se genera.
	State       string
	RedirectURI string
}

// StartResult contiene la URL de autorización y el state a guardar en sesión.
type StartResult struct {
	AuthURL string
	State   string
}

// StartService arma la URL de autorización de Vipps.
type StartService interface {
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
}

// StartDeps contiene las dependencias del StartService.
type StartDeps struct {
	Login LoginClient
	// LenientState acepta el ?state= del cliente.
	LenientState bool
}

type startService struct {
	login        LoginClient
	lenientState bool
}

// NewStartService crea un StartService.
func NewStartService(d StartDeps) StartService {
	return &startService{login: d.Login, lenientState: d.LenientState}
}

func (s *startService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("vippsauth.start"))

	var state string
	if s.lenientState {
		state = strings.TrimSpace(req.State)
	} else if req.State != "" {
		log.Debug("client state ignored")
	}
	if state == "" {
		var err error
		if state, err = newState(); err != nil {
			return nil, err
		}
	}
	url := s.login.AuthURL(state, req.RedirectURI)
	log.Debug("authorization url built", logger.String("redirect_uri", req.RedirectURI))
	return &StartResult{AuthURL: url, State: state}, nil
}

// newState genera 16 bytes aleatorios en base64url.
func newState() (string, error) {
	state, err := tokens.Opaque(16)
	if err != nil {
		return "", fmt.Errorf("vippsauth: state: %w", err)
	}
	return state, nil
}
