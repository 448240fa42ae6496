package vipps

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVipps struct {
	t           *testing.T
	srv         *httptest.Server
	tokenHits   atomic.Int32
	tokenStatus int
	tokenGate   chan struct{}
	lastCreate  map[string]any
	lastHeaders http.Header
	lastCapture map[string]any
	lastCancel  map[string]any
	createResp  string
	paymentResp string
	failStatus  int
}

func newFakeVipps(t *testing.T) *fakeVipps {
	f := &fakeVipps{
		t:           t,
		tokenStatus: http.StatusOK,
		createResp:  `{"reference":"CART-abc","redirectUrl":"https://landing.vipps.no/?token=x"}`,
		paymentResp: `{"reference":"CART-abc","state":"AUTHORIZED","amount":{"currency":"NOK","value":10050},"aggregate":{"authorizedAmount":{"currency":"NOK","value":10050}}}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+TokenPath, func(w http.ResponseWriter, r *http.Request) {
		f.tokenHits.Add(1)
		if f.tokenGate != nil {
			<-f.tokenGate
		}
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		assert.Equal(t, "sub-key", r.Header.Get(HeaderSubscriptionKey))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		if f.tokenStatus != http.StatusOK {
			w.WriteHeader(f.tokenStatus)
			_, _ = io.WriteString(w, `{"error":"invalid_client"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("POST /epayment/v1/payments", func(w http.ResponseWriter, r *http.Request) {
		f.lastHeaders = r.Header.Clone()
		if f.failStatus != 0 {
			w.WriteHeader(f.failStatus)
			_, _ = io.WriteString(w, `{"title":"Bad Request","detail":"invalid amount"}`)
			return
		}
		f.lastCreate = decodeBody(t, r)
		_, _ = io.WriteString(w, f.createResp)
	})
	mux.HandleFunc("GET /epayment/v1/payments/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.lastHeaders = r.Header.Clone()
		if f.failStatus != 0 {
			w.WriteHeader(f.failStatus)
			return
		}
		_, _ = io.WriteString(w, f.paymentResp)
	})
	mux.HandleFunc("POST /epayment/v1/payments/{id}/capture", func(w http.ResponseWriter, r *http.Request) {
		f.lastHeaders = r.Header.Clone()
		f.lastCapture = decodeBody(t, r)
		_, _ = io.WriteString(w, `{"state":"AUTHORIZED"}`)
	})
	mux.HandleFunc("POST /epayment/v1/payments/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		f.lastHeaders = r.Header.Clone()
		f.lastCancel = decodeBody(t, r)
		_, _ = io.WriteString(w, `{"state":"TERMINATED"}`)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
	return m
}

func newTestClient(t *testing.T, f *fakeVipps, now func() time.Time) *Client {
	t.Helper()
	c, err := New(Config{
		ClientID:             "client-id",
		ClientSecret:         "client-secret",
		SubscriptionKey:      "sub-key",
		MerchantSerialNumber: "123456",
		BaseURL:              f.srv.URL,
		SystemName:           "online-store-engine",
		SystemVersion:        "2.0.0",
		Now:                  now,
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{ClientID: "id", ClientSecret: "secret"})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestBaseURLFor(t *testing.T) {
	assert.Equal(t, "https://apitest.vipps.no", BaseURLFor(true))
	assert.Equal(t, "https://api.vipps.no", BaseURLFor(false))

	c, err := New(Config{ClientID: "a", ClientSecret: "b", SubscriptionKey: "c", TestMode: true})
	require.NoError(t, err)
	assert.Equal(t, TestBaseURL, c.BaseURL())
}

func TestAccessToken_CachedWithinWindow(t *testing.T) {
	f := newFakeVipps(t)
	now := time.Now()
	c := newTestClient(t, f, func() time.Time { return now })
	ctx := context.Background()

	tok, err := c.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)

	now = now.Add(54 * time.Minute)
	_, err = c.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.tokenHits.Load(), "token must be reused inside the validity window")

	now = now.Add(2 * time.Minute)
	_, err = c.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.tokenHits.Load(), "token must be refreshed after 55 minutes")
}

func TestAccessToken_CancelledCallerDoesNotAbortRefresh(t *testing.T) {
	f := newFakeVipps(t)
	f.tokenGate = make(chan struct{})
	c := newTestClient(t, f, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.AccessToken(ctxA)
		errA <- err
	}()
	require.Eventually(t, func() bool { return f.tokenHits.Load() == 1 }, time.Second, 5*time.Millisecond)

	tokB := make(chan string, 1)
	go func() {
		tok, err := c.AccessToken(context.Background())
		assert.NoError(t, err)
		tokB <- tok
	}()

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)
	close(f.tokenGate)
	assert.Equal(t, "tok-123", <-tokB)
	assert.Equal(t, int32(1), f.tokenHits.Load())
}

func TestAccessToken_LifetimeFollowsInjectedClock(t *testing.T) {
	f := newFakeVipps(t)
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, f, func() time.Time { return now })

	_, err := c.AccessToken(context.Background())
	require.NoError(t, err)
	t1 := c.token.Load()
	require.NotNil(t, t1)
	assert.Equal(t, now.Add(55*time.Minute), t1.validUntil)
}

func TestAccessToken_SharedAcrossCalls(t *testing.T) {
	f := newFakeVipps(t)
	c := newTestClient(t, f, nil)
	ctx := context.Background()

	_, err := c.GetPayment(ctx, "CART-abc")
	require.NoError(t, err)
	_, err = c.GetPayment(ctx, "CART-abc")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.tokenHits.Load())

	c.InvalidateToken()
	_, err = c.GetPayment(ctx, "CART-abc")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.tokenHits.Load())
}

func TestAccessToken_Rejected(t *testing.T) {
	f := newFakeVipps(t)
	f.tokenStatus = http.StatusUnauthorized
	c := newTestClient(t, f, nil)

	_, err := c.AccessToken(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Body, "invalid_client")

	_, err = c.CreatePayment(context.Background(), CreatePaymentRequest{Amount: 1, Currency: "NOK", Reference: "r"})
	assert.ErrorIs(t, err, ErrAuth)
}

func TestCreatePayment_RequestShape(t *testing.T) {
	f := newFakeVipps(t)
	c := newTestClient(t, f, nil)

	res, err := c.CreatePayment(context.Background(), CreatePaymentRequest{
		Amount:      100.50,
		Currency:    "nok",
		Reference:   "CART-abc",
		Description: "Order for 2 item(s)",
		PhoneNumber: "4791234567",
		ReturnURL:   "http://localhost:8000/checkout?payment_success=true&cart_id=abc",
	})
	require.NoError(t, err)

	assert.Equal(t, "CART-abc", res.PaymentID)
	assert.Equal(t, "https://landing.vipps.no/?token=x", res.URL)
	assert.Equal(t, StateCreated, res.Status)

	amount := f.lastCreate["amount"].(map[string]any)
	assert.Equal(t, "NOK", amount["currency"])
	assert.Equal(t, float64(10050), amount["value"])
	assert.Equal(t, "WALLET", f.lastCreate["paymentMethod"].(map[string]any)["type"])
	assert.Equal(t, "WEB_REDIRECT", f.lastCreate["userFlow"])
	assert.Equal(t, "CART-abc", f.lastCreate["reference"])
	assert.Equal(t, "Order for 2 item(s)", f.lastCreate["paymentDescription"])
	assert.Equal(t, "4791234567", f.lastCreate["customer"].(map[string]any)["phoneNumber"])
	assert.Equal(t, "http://localhost:8000/checkout?payment_success=true&cart_id=abc", f.lastCreate["returnUrl"])

	assert.Equal(t, "Bearer tok-123", f.lastHeaders.Get("Authorization"))
	assert.Equal(t, "sub-key", f.lastHeaders.Get(HeaderSubscriptionKey))
	assert.Equal(t, "123456", f.lastHeaders.Get("Merchant-Serial-Number"))
	assert.Equal(t, "online-store-engine", f.lastHeaders.Get("Vipps-System-Name"))
	assert.Equal(t, "2.0.0", f.lastHeaders.Get("Vipps-System-Version"))
	assert.NotEmpty(t, f.lastHeaders.Get("Idempotency-Key"))
}

func TestCreatePayment_LegacyResponseFields(t *testing.T) {
	f := newFakeVipps(t)
	f.createResp = `{"paymentId":"pay-1","url":"https://vipps.example/pay","state":"CREATED"}`
	c := newTestClient(t, f, nil)

	res, err := c.CreatePayment(context.Background(), CreatePaymentRequest{Amount: 10, Currency: "NOK", Reference: "PAY-1"})
	require.NoError(t, err)
	assert.Equal(t, "pay-1", res.PaymentID)
	assert.Equal(t, "https://vipps.example/pay", res.URL)
	_, hasCustomer := f.lastCreate["customer"]
	assert.False(t, hasCustomer)
}

func TestCreatePayment_UpstreamFailure(t *testing.T) {
	f := newFakeVipps(t)
	f.failStatus = http.StatusBadRequest
	c := newTestClient(t, f, nil)

	_, err := c.CreatePayment(context.Background(), CreatePaymentRequest{Amount: 1, Currency: "NOK", Reference: "r"})
	require.ErrorIs(t, err, ErrPaymentCreation)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Body, "invalid amount")
}

func TestGetPayment(t *testing.T) {
	f := newFakeVipps(t)
	c := newTestClient(t, f, nil)

	p, err := c.GetPayment(context.Background(), "CART-abc")
	require.NoError(t, err)
	assert.Equal(t, StateAuthorized, p.State)
	assert.Equal(t, int64(10050), p.Amount.Value)
	assert.Equal(t, int64(10050), p.Aggregate.AuthorizedAmount.Value)
	assert.Equal(t, "AUTHORIZED", p.Data()["state"])
	assert.Empty(t, f.lastHeaders.Get("Idempotency-Key"))

	f.failStatus = http.StatusNotFound
	_, err = c.GetPayment(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrStatusLookup)
}

func TestCaptureAndCancel(t *testing.T) {
	f := newFakeVipps(t)
	c := newTestClient(t, f, nil)
	ctx := context.Background()

	require.NoError(t, c.CapturePayment(ctx, "CART-abc", Amount{Currency: "NOK", Value: 10050}))
	mod := f.lastCapture["modificationAmount"].(map[string]any)
	assert.Equal(t, float64(10050), mod["value"])
	assert.Equal(t, "NOK", mod["currency"])

	require.NoError(t, c.CancelPayment(ctx, "CART-abc", "Payment cancelled by customer"))
	assert.Equal(t, "Payment cancelled by customer", f.lastCancel["reason"])

	require.NoError(t, c.CancelPayment(ctx, "CART-abc", ""))
	assert.Empty(t, f.lastCancel)
}

func TestPaymentPath_Escapes(t *testing.T) {
	assert.Equal(t, "/epayment/v1/payments/a%2Fb/capture", paymentPath("a/b", "/capture"))
	_, err := url.Parse(paymentPath("CART-1 2", ""))
	assert.NoError(t, err)
}

func TestMoneyConversion(t *testing.T) {
	assert.Equal(t, int64(10050), ToMinorUnits(100.50))
	assert.Equal(t, 100.50, FromMinorUnits(10050))
	assert.Equal(t, int64(1999), ToMinorUnits(19.99))
	assert.Equal(t, int64(10000), ToMinorUnits(FromMinorUnits(10000)))
	assert.Equal(t, int64(0), ToMinorUnits(0))
}
