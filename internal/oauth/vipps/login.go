// Package vipps implementa Vipps Login (OAuth 2.0 / OIDC) para el storefront.
// El authorization code se canjea con client_secret_basic y cada request lleva
// la subscription key de APIM. Vipps puede devolver id_token; el userinfo
// tiene dos paths según la versión de la API.
package vipps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/kittilsenstian-debug/online-store-engine/internal/metrics"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	epay "github.com/kittilsenstian-debug/online-store-engine/internal/vipps"
	"golang.org/x/oauth2"
)

const (
	authPath = "/access-management-1.0/access/oauth2/auth"

	// UserInfoPath es el endpoint principal de userinfo.
	UserInfoPath = "/access-management-1.0/access/userinfo"
	// AltUserInfoPath se prueba si falla el principal.
	AltUserInfoPath = "/access-management-1.0/access/oauth2/userinfo"

	DefaultScopes = "openid name phoneNumber address email"
)

var (
	ErrTokenExchange = errors.New("vipps login: token exchange failed")
	ErrUserInfo      = errors.New("vipps login: userinfo failed")
	ErrBadIDToken    = errors.New("vipps login: malformed id_token")
)

// Config configura un cliente Login.
type Config struct {
	ClientID        string
	ClientSecret    string
	SubscriptionKey string
	TestMode        bool
	// BaseURL reemplaza el host derivado de TestMode.
	BaseURL     string
	RedirectURL string
	Scopes      []string
	Timeout     time.Duration
	Transport   http.RoundTripper
}

// Login es el cliente de Vipps Login. Seguro para uso concurrente.
type Login struct {
	baseURL string
	oauth   oauth2.Config
	http    *http.Client
}

// New crea un cliente Login. No valida las credenciales.
func New(cfg Config) *Login {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = epay.BaseURLFor(cfg.TestMode)
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = strings.Fields(DefaultScopes)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Login{
		baseURL: base,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + authPath,
				TokenURL:  base + epay.TokenPath,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		http: &http.Client{
			Timeout:   timeout,
			Transport: epay.NewSubscriptionKeyTransport(cfg.SubscriptionKey, cfg.Transport),
		},
	}
}

// BaseURL retorna el host efectivo de la API.
func (l *Login) BaseURL() string { return l.baseURL }

// AuthURL arma la URL de autorización. Si redirectURL no está vacío reemplaza
// al configurado.
func (l *Login) AuthURL(state, redirectURL string) string {
	cfg := l.oauth
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return cfg.AuthCodeURL(state)
}

// Tokens es el resultado del canje del code.
type Tokens struct {
	AccessToken string
	IDToken     string
	// Subject sale de los campos no estándar sub/user_id que algunos tenants
	// devuelven junto al token.
	Subject string
}

// Exchange canjea el authorization code por tokens.
func (l *Login) Exchange(ctx context.Context, code, redirectURL string) (*Tokens, error) {
	start := time.Now()
	cfg := l.oauth
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}

	hctx := context.WithValue(ctx, oauth2.HTTPClient, l.http)
	tok, err := cfg.Exchange(hctx, code)
	metrics.ObserveVipps("login_exchange", start, err)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			logger.From(ctx).Warn("vipps token exchange rejected",
				logger.Component("oauth.vipps"),
				logger.UpstreamStatus(status),
				logger.UpstreamBody(string(re.Body)),
			)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	out := &Tokens{AccessToken: tok.AccessToken}
	if s, ok := tok.Extra("id_token").(string); ok {
		out.IDToken = s
	}
	for _, k := range []string{"sub", "user_id"} {
		if s, ok := tok.Extra(k).(string); ok && s != "" {
			out.Subject = s
			break
		}
	}
	return out, nil
}

// UserInfoError lleva el status y el body de un userinfo fallido.
type UserInfoError struct {
	Path   string
	Status int
	Body   string
}

func (e *UserInfoError) Error() string {
	return fmt.Sprintf("vipps userinfo %s: http %d", e.Path, e.Status)
}

func (e *UserInfoError) Is(target error) bool { return target == ErrUserInfo }

// UserInfo llama a path con el bearer token y retorna los claims decodificados.
func (l *Login) UserInfo(ctx context.Context, accessToken, path string) (map[string]any, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		metrics.ObserveVipps("userinfo", start, err)
		return nil, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode/100 != 2 {
		uerr := &UserInfoError{Path: path, Status: resp.StatusCode, Body: string(body)}
		metrics.ObserveVipps("userinfo", start, uerr)
		return nil, uerr
	}
	var claims map[string]any
	if err := json.Unmarshal(body, &claims); err != nil {
		metrics.ObserveVipps("userinfo", start, err)
		return nil, fmt.Errorf("%w: decode: %v", ErrUserInfo, err)
	}
	metrics.ObserveVipps("userinfo", start, nil)
	return claims, nil
}

// DecodeIDToken lee el payload del id_token sin verificar la firma.
func DecodeIDToken(raw string) (map[string]any, error) {
	claims := jwtv5.MapClaims{}
	if _, _, err := jwtv5.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadIDToken, err)
	}
	return map[string]any(claims), nil
}
