package helpers

import (
	"net/http"
	"strings"
	"time"
)

// CookieOptions son los atributos compartidos por las cookies de sesión.
type CookieOptions struct {
	Domain   string
	SameSite string // lax | strict | none; default lax
	Secure   bool
}

func (o CookieOptions) apply(ck *http.Cookie) *http.Cookie {
	ck.Path = "/"
	ck.HttpOnly = true
	ck.Secure = o.Secure
	ck.SameSite = ParseSameSite(o.SameSite)
	if d := strings.TrimSpace(o.Domain); d != "" {
		ck.Domain = d
	}
	return ck
}

// ParseSameSite traduce el valor de config; cualquier otro valor es Lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// SessionCookie arma la cookie con el id de sesión. ttl <= 0 deja una cookie
// de sesión del navegador.
func SessionCookie(name, value string, o CookieOptions, ttl time.Duration) *http.Cookie {
	ck := o.apply(&http.Cookie{Name: name, Value: value})
	if ttl > 0 {
		ck.Expires = time.Now().Add(ttl).UTC()
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

// ExpiredCookie borra la cookie name en el navegador.
func ExpiredCookie(name string, o CookieOptions) *http.Cookie {
	ck := o.apply(&http.Cookie{Name: name})
	ck.Expires = time.Unix(0, 0).UTC()
	ck.MaxAge = -1
	return ck
}
