package vipps

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kittilsenstian-debug/online-store-engine/internal/metrics"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"golang.org/x/oauth2"
)

const (
	// tokenSafetyMargin se descuenta del vencimiento: un token de 60 min vale 55.
	tokenSafetyMargin    = 5 * time.Minute
	defaultTokenLifetime = time.Hour
)

type cachedToken struct {
	value      string
	validUntil time.Time
}

// AccessToken devuelve el bearer cacheado o pide uno nuevo con client
// credentials. Refrescos concurrentes se agrupan en una sola llamada; la
// cancelación de un caller no corta el refresh de los demás.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if t := c.token.Load(); t != nil && c.now().Before(t.validUntil) {
		return t.value, nil
	}

	fctx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan("token", func() (any, error) {
		if t := c.token.Load(); t != nil && c.now().Before(t.validUntil) {
			return t.value, nil
		}
		return c.fetchToken(fctx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// InvalidateToken descarta el token cacheado.
func (c *Client) InvalidateToken() {
	c.token.Store(nil)
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	start := time.Now()
	log := logger.From(ctx).With(logger.Layer("client"), logger.Component("vipps.token"))

	hctx := context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauth.Token(hctx)
	metrics.ObserveVipps("token", start, err)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			log.Error("access token request rejected",
				logger.UpstreamStatus(status),
				logger.UpstreamBody(string(re.Body)),
			)
			return "", newAPIError(ErrAuth, "token", status, re.Body, err)
		}
		log.Error("access token request failed", logger.Err(err))
		return "", newAPIError(ErrAuth, "token", 0, nil, err)
	}
	if tok.AccessToken == "" {
		return "", newAPIError(ErrAuth, "token", http.StatusOK, nil, errors.New("empty access_token"))
	}

	// expires_in en segundos; todo se mide con c.now.
	lifetime := defaultTokenLifetime
	if tok.ExpiresIn > 0 {
		lifetime = time.Duration(tok.ExpiresIn) * time.Second
	}
	c.token.Store(&cachedToken{
		value:      tok.AccessToken,
		validUntil: c.now().Add(lifetime - tokenSafetyMargin),
	})
	metrics.VippsTokenRefreshes.Inc()

	log.Debug("access token refreshed", logger.Int("lifetime_s", int(lifetime.Seconds())))
	return tok.AccessToken, nil
}
