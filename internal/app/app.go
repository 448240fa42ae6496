// Package app arma la aplicación: storage, cache, sesiones, clientes de Vipps,
// services, controllers y router.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kittilsenstian-debug/online-store-engine/internal/cache"
	"github.com/kittilsenstian-debug/online-store-engine/internal/config"
	healthctrl "github.com/kittilsenstian-debug/online-store-engine/internal/http/controllers/health"
	paymentsctrl "github.com/kittilsenstian-debug/online-store-engine/internal/http/controllers/payments"
	vippsauthctrl "github.com/kittilsenstian-debug/online-store-engine/internal/http/controllers/vippsauth"
	"github.com/kittilsenstian-debug/online-store-engine/internal/http/helpers"
	"github.com/kittilsenstian-debug/online-store-engine/internal/http/router"
	healthsvc "github.com/kittilsenstian-debug/online-store-engine/internal/http/services/health"
	paymentssvc "github.com/kittilsenstian-debug/online-store-engine/internal/http/services/payments"
	vippsauthsvc "github.com/kittilsenstian-debug/online-store-engine/internal/http/services/vippsauth"
	jwtx "github.com/kittilsenstian-debug/online-store-engine/internal/jwt"
	"github.com/kittilsenstian-debug/online-store-engine/internal/metrics"
	oauthvipps "github.com/kittilsenstian-debug/online-store-engine/internal/oauth/vipps"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"github.com/kittilsenstian-debug/online-store-engine/internal/payment"
	"github.com/kittilsenstian-debug/online-store-engine/internal/rate"
	"github.com/kittilsenstian-debug/online-store-engine/internal/security/secretbox"
	"github.com/kittilsenstian-debug/online-store-engine/internal/session"
	"github.com/kittilsenstian-debug/online-store-engine/internal/store"
)

// Overrides reemplaza piezas en tests. Los campos nil usan la implementación real.
type Overrides struct {
	Store          store.Store
	Cache          cache.Client
	GatewayFactory payment.GatewayFactory
	Login          vippsauthsvc.LoginClient
}

// App es la aplicación armada.
type App struct {
	Handler  http.Handler
	Store    store.Store
	Cache    cache.Client
	Provider *payment.Provider

	closers []func()
}

// Close libera storage y cache en orden inverso de apertura.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// New arma la aplicación a partir de cfg.
func New(ctx context.Context, cfg *config.Config, o Overrides) (*App, error) {
	log := logger.From(ctx).With(logger.Layer("app"))
	a := &App{}

	if err := metrics.Register(nil); err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	// ─── Storage ───
	a.Store = o.Store
	if a.Store == nil {
		s, err := store.Open(ctx, store.Config{
			Driver:   cfg.Storage.Driver,
			DSN:      cfg.Storage.DSN,
			MaxConns: cfg.Storage.MaxConns,
			Migrate:  cfg.Storage.Migrate,
		})
		if err != nil {
			return nil, err
		}
		a.Store = s
		a.closers = append(a.closers, s.Close)
	}

	// ─── Cache / sesiones / rate limit ───
	a.Cache = o.Cache
	if a.Cache == nil {
		c, err := cache.New(ctx, cache.Config{
			Driver:     cfg.Cache.Kind,
			Addr:       cfg.Cache.Redis.Addr,
			Password:   cfg.Cache.Redis.Password,
			DB:         cfg.Cache.Redis.DB,
			Prefix:     cfg.Cache.Redis.Prefix,
			DefaultTTL: cfg.Cache.Memory.DefaultTTL,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Cache = c
		a.closers = append(a.closers, func() { _ = c.Close() })
	}

	sessions := session.NewStore(a.Cache, session.Config{
		CookieName: cfg.Auth.Session.CookieName,
		Domain:     cfg.Auth.Session.Domain,
		Secure:     cfg.Auth.Session.Secure,
		TTL:        cfg.Auth.Session.TTL,
	})

	var limiter rate.MultiLimiter
	if cfg.Rate.Enabled {
		if rc, ok := a.Cache.(*cache.RedisClient); ok {
			limiter = rate.NewRedisPool(rc.Redis(), "rl")
		} else {
			limiter = rate.NewMemoryPool()
		}
	}

	// ─── Tokens ───
	issuer, err := jwtx.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: issuer: %w", err)
	}
	var sealer vippsauthsvc.Sealer
	if cfg.Security.SecretBoxMasterKey != "" {
		box, err := secretbox.New(cfg.Security.SecretBoxMasterKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app: secretbox: %w", err)
		}
		sealer = box
	}

	// ─── Vipps ───
	login := o.Login
	if login == nil {
		login = oauthvipps.New(oauthvipps.Config{
			ClientID:        cfg.Vipps.ClientID,
			ClientSecret:    cfg.Vipps.ClientSecret,
			SubscriptionKey: cfg.Vipps.SubscriptionKey,
			TestMode:        cfg.Vipps.TestMode,
			BaseURL:         cfg.Vipps.BaseURL,
			RedirectURL:     cfg.Vipps.RedirectURI,
			Scopes:          cfg.Vipps.Scopes,
			Timeout:         cfg.Vipps.HTTPTimeout,
		})
	}
	a.Provider = payment.NewProvider(payment.Options{
		ClientID:             cfg.Vipps.ClientID,
		ClientSecret:         cfg.Vipps.ClientSecret,
		SubscriptionKey:      cfg.Vipps.SubscriptionKey,
		MerchantSerialNumber: cfg.Vipps.MerchantSerialNumber,
		TestMode:             cfg.Vipps.TestMode,
		BaseURL:              cfg.Vipps.BaseURL,
		SystemName:           cfg.Vipps.SystemName,
		SystemVersion:        cfg.Vipps.SystemVersion,
		BackendURL:           cfg.URLs.Backend,
		StorefrontURL:        cfg.URLs.Storefront,
	}, o.GatewayFactory)
	if !a.Provider.Configured() {
		log.Warn("vipps credentials missing; payment routes will answer with a configuration error")
	}

	// ─── Services ───
	healthSvcs := healthsvc.NewServices(healthsvc.Deps{
		Version:         cfg.App.Version,
		DBCheck:         a.Store.Ping,
		CacheCheck:      a.Cache.Ping,
		VippsConfigured: cfg.VippsConfigured(),
	})
	authSvcs := vippsauthsvc.NewServices(vippsauthsvc.Deps{
		Login:         login,
		Users:         a.Store.Users(),
		Customers:     a.Store.Customers(),
		Identities:    a.Store.Identities(),
		AuthSessions:  a.Store.AuthSessions(),
		Issuer:        issuer,
		Sealer:        sealer,
		StorefrontURL: cfg.URLs.Storefront,
		LenientState:  cfg.Auth.LenientState,
	})
	paySvcs := paymentssvc.NewServices(paymentssvc.Deps{
		Provider:   a.Provider,
		Carts:      a.Store.Carts(),
		Customers:  a.Store.Customers(),
		Sessions:   a.Store.PaymentSessions(),
		BackendURL: cfg.URLs.Backend,
	})

	// ─── HTTP ───
	a.Handler = router.New(router.Deps{
		Health: healthctrl.NewControllers(healthSvcs),
		VippsAuth: vippsauthctrl.NewControllers(authSvcs, vippsauthctrl.Options{
			Sessions:    sessions,
			Limiter:     limiter,
			Rate:        helpers.LoginRateConfig{Limit: cfg.Rate.Login.Limit, Window: cfg.Rate.Login.Window},
			RedirectURI: cfg.Vipps.RedirectURI,
		}),
		Payments:    paymentsctrl.NewControllers(paySvcs),
		Metrics:     metrics.Handler(nil),
		AdminAPIKey: cfg.Admin.APIKey,
	})

	log.Info("app wired",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("rate_limit", limiter != nil),
	)
	return a, nil
}
