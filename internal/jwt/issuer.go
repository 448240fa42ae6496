// Package jwt emite y valida el token de sesión del storefront (HS256).
package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const (
	ActorTypeCustomer = "customer"
	ScopeStore        = "store"
)

var ErrNoSecret = errors.New("jwt: empty signing secret")

// StoreClaims es el payload del token que consume el storefront.
type StoreClaims struct {
	EntityID       string         `json:"entity_id"`
	ActorID        string         `json:"actor_id"`
	ActorType      string         `json:"actor_type"`
	Scope          string         `json:"scope"`
	AuthIdentityID string         `json:"auth_identity_id"`
	AppMetadata    map[string]any `json:"app_metadata"`
	jwtv5.RegisteredClaims
}

// Issuer firma tokens con un secreto compartido.
type Issuer struct {
	secret []byte
	TTL    time.Duration // default 30 días
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), TTL: ttl, now: time.Now}, nil
}

// IssueCustomer emite el token de un customer logueado.
// entityID es el id del customer (o del usuario si no hay customer).
func (i *Issuer) IssueCustomer(entityID, authIdentityID string, appMetadata map[string]any) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.TTL)

	claims := StoreClaims{
		EntityID:       entityID,
		ActorID:        entityID,
		ActorType:      ActorTypeCustomer,
		Scope:          ScopeStore,
		AuthIdentityID: authIdentityID,
		AppMetadata:    appMetadata,
		RegisteredClaims: jwtv5.RegisteredClaims{
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
