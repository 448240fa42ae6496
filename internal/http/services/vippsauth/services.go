// Package vippsauth contiene los services del login con Vipps: el inicio del
// flujo OAuth y el callback que provisiona usuario, identidades y customer.
package vippsauth

import (
	"context"
	"errors"
	"time"

	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
	oauthvipps "github.com/kittilsenstian-debug/online-store-engine/internal/oauth/vipps"
)

// ProviderName es el provider de auth_identity / provider_identity.
const ProviderName = "vipps"

// LoginClient es la parte del cliente Vipps Login que usan los services.
// *oauthvipps.Login la implementa.
type LoginClient interface {
	AuthURL(state, redirectURL string) string
	Exchange(ctx context.Context, code, redirectURL string) (*oauthvipps.Tokens, error)
	UserInfo(ctx context.Context, accessToken, path string) (map[string]any, error)
}

// TokenIssuer firma el token de sesión del storefront.
type TokenIssuer interface {
	IssueCustomer(entityID, authIdentityID string, appMetadata map[string]any) (string, time.Time, error)
}

// Sealer cifra valores sensibles antes de guardarlos (opcional).
type Sealer interface {
	Seal(plain string) (string, error)
}

// Deps contiene las dependencias de los services.
type Deps struct {
	Login        LoginClient
	Users        repository.UserRepository
	Customers    repository.CustomerRepository
	Identities   repository.IdentityRepository
	AuthSessions repository.AuthSessionRepository
	Issuer       TokenIssuer
	Sealer       Sealer // nil: el access token no se guarda

	StorefrontURL string
	// LenientState acepta callbacks con state faltante en URL o sesión y el
	// ?state= del cliente en el inicio.
	LenientState bool
}

// Services agrupa los services del login con Vipps.
type Services struct {
	Start    StartService
	Callback CallbackService
}

// NewServices crea el agregador.
func NewServices(d Deps) Services {
	return Services{
		Start:    NewStartService(StartDeps{Login: d.Login, LenientState: d.LenientState}),
		Callback: NewCallbackService(d),
	}
}

// Errores que el controller responde como 400 JSON.
var (
	ErrCallbackMissingCode  = errors.New("missing authorization code")
	ErrCallbackInvalidState = errors.New("invalid state parameter")
)

// Códigos de error que viajan en el redirect al storefront.
const (
	CodeTokenError    = "token_error"
	CodeUserInfoError = "userinfo_error"
	CodeIdentityError = "identity_error"
	CodeCustomerError = "customer_error"
	CodeSessionError  = "session_error"
	CodeInternalError = "internal_error"
)
