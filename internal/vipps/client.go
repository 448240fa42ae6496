// Package vipps es el cliente HTTP de la API ePayment de Vipps MobilePay:
// token de acceso (client credentials), creación, consulta, captura y
// cancelación de pagos.
package vipps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kittilsenstian-debug/online-store-engine/internal/metrics"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"github.com/oklog/ulid/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	ProductionBaseURL = "https://api.vipps.no"
	TestBaseURL       = "https://apitest.vipps.no"

	TokenPath    = "/access-management-1.0/access/oauth2/token"
	paymentsPath = "/epayment/v1/payments"

	HeaderSubscriptionKey = "Ocp-Apim-Subscription-Key"

	maxResponseBytes = 1 << 20
)

// BaseURLFor elige el host de la API según el modo.
func BaseURLFor(testMode bool) string {
	if testMode {
		return TestBaseURL
	}
	return ProductionBaseURL
}

// Config agrupa credenciales y ajustes de un Client.
type Config struct {
	ClientID             string
	ClientSecret         string
	SubscriptionKey      string
	MerchantSerialNumber string
	TestMode             bool
	// BaseURL pisa el host derivado de TestMode (tests, proxies).
	BaseURL       string
	SystemName    string
	SystemVersion string
	Timeout       time.Duration
	// Transport opcional; default http.DefaultTransport.
	Transport http.RoundTripper
	// Now opcional, para tests del cache de tokens.
	Now func() time.Time
}

// Client habla con la API ePayment. Una instancia por set de credenciales;
// es seguro para uso concurrente.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	oauth   *clientcredentials.Config
	now     func() time.Time

	token atomic.Pointer[cachedToken]
	sf    singleflight.Group
}

// New valida las credenciales y arma el cliente.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.SubscriptionKey == "" {
		return nil, ErrNotConfigured
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = BaseURLFor(cfg.TestMode)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.SystemName == "" {
		cfg.SystemName = "online-store-engine"
	}
	if cfg.SystemVersion == "" {
		cfg.SystemVersion = "2.0.0"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		cfg:     cfg,
		baseURL: base,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: NewSubscriptionKeyTransport(cfg.SubscriptionKey, cfg.Transport),
		},
		oauth: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     base + TokenPath,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		now: now,
	}, nil
}

// BaseURL retorna el host efectivo.
func (c *Client) BaseURL() string { return c.baseURL }

// SubscriptionKeyTransport agrega Ocp-Apim-Subscription-Key a cada request.
type SubscriptionKeyTransport struct {
	Key  string
	Base http.RoundTripper
}

// NewSubscriptionKeyTransport envuelve base (o http.DefaultTransport).
func NewSubscriptionKeyTransport(key string, base http.RoundTripper) *SubscriptionKeyTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &SubscriptionKeyTransport{Key: key, Base: base}
}

func (t *SubscriptionKeyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r2 := r.Clone(r.Context())
	if t.Key != "" {
		r2.Header.Set(HeaderSubscriptionKey, t.Key)
	}
	return t.Base.RoundTrip(r2)
}

// call ejecuta una llamada autenticada a ePayment y decodifica la respuesta en out.
// Respuestas no 2xx se devuelven como *APIError de la categoría kind.
func (c *Client) call(ctx context.Context, op string, kind error, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveVipps(op, start, err) }()

	log := logger.From(ctx).With(
		logger.Layer("client"),
		logger.Component("vipps.epayment"),
		logger.Op(op),
	)

	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return newAPIError(kind, op, 0, nil, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return newAPIError(kind, op, 0, nil, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", ulid.Make().String())
	}
	if c.cfg.MerchantSerialNumber != "" {
		req.Header.Set("Merchant-Serial-Number", c.cfg.MerchantSerialNumber)
	}
	req.Header.Set("Vipps-System-Name", c.cfg.SystemName)
	req.Header.Set("Vipps-System-Version", c.cfg.SystemVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("vipps request failed", logger.Err(err))
		return newAPIError(kind, op, 0, nil, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return newAPIError(kind, op, resp.StatusCode, nil, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode/100 != 2 {
		log.Warn("vipps returned non-success status",
			logger.UpstreamStatus(resp.StatusCode),
			logger.UpstreamBody(string(raw)),
		)
		return newAPIError(kind, op, resp.StatusCode, raw, nil)
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return newAPIError(kind, op, resp.StatusCode, raw, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}
