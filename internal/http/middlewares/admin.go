package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	httperrors "github.com/kittilsenstian-debug/online-store-engine/internal/http/errors"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
)

// AdminKeyHeader es el header con la API key de admin.
const AdminKeyHeader = "X-Admin-API-Key"

// RequireAdminKey exige X-Admin-API-Key (o Bearer) igual a key.
// Con key vacía las rutas de admin quedan cerradas.
func RequireAdminKey(key string) Middleware {
	key = strings.TrimSpace(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimSpace(r.Header.Get(AdminKeyHeader))
			if got == "" {
				if a := r.Header.Get("Authorization"); len(a) > 7 && strings.EqualFold(a[:7], "Bearer ") {
					got = strings.TrimSpace(a[7:])
				}
			}
			if key == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				logger.From(r.Context()).Warn("admin key rejected", logger.Component("admin"))
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
