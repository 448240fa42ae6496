package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("jwt: invalid token")

// Parse valida firma HS256 y exp (con 30s de tolerancia) y devuelve las claims.
func (i *Issuer) Parse(token string) (*StoreClaims, error) {
	claims := &StoreClaims{}
	tok, err := jwtv5.ParseWithClaims(token, claims,
		func(*jwtv5.Token) (any, error) { return i.secret, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithLeeway(30*time.Second),
		jwtv5.WithTimeFunc(i.now),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
