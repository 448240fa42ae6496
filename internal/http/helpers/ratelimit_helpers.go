package helpers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	httperrors "github.com/kittilsenstian-debug/online-store-engine/internal/http/errors"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"github.com/kittilsenstian-debug/online-store-engine/internal/rate"
)

// LoginRateConfig limita los entry points del login con Vipps.
type LoginRateConfig struct {
	Limit  int
	Window time.Duration
}

func setRateHeaders(w http.ResponseWriter, limit int, res rate.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
	if res.WindowTTL > 0 {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.WindowTTL).Unix(), 10))
	}
	if !res.Allowed && res.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
	}
}

func enforceWithKey(w http.ResponseWriter, r *http.Request, lim rate.MultiLimiter, limit int, window time.Duration, key string) bool {
	// fail-open: sin limiter o config inválida
	if lim == nil || limit <= 0 || window <= 0 {
		return true
	}

	res, err := lim.AllowWithLimits(r.Context(), key, limit, window)
	if err != nil {
		// fail-open si el backend falla (redis caído, etc.)
		logger.From(r.Context()).Warn("rate limiter error", logger.Component("rate"), logger.Err(err))
		return true
	}
	setRateHeaders(w, limit, res)
	if res.Allowed {
		return true
	}
	httperrors.WriteError(w, httperrors.ErrRateLimitExceeded)
	return false
}

// EnforceLoginLimit aplica el límite por IP y entry point (start o callback).
func EnforceLoginLimit(w http.ResponseWriter, r *http.Request, lim rate.MultiLimiter, cfg LoginRateConfig, step string) bool {
	key := fmt.Sprintf("vipps_login:%s:%s", step, ClientIP(r))
	return enforceWithKey(w, r, lim, cfg.Limit, cfg.Window, key)
}
