package vippsauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/kittilsenstian-debug/online-store-engine/internal/domain/repository"
	jwtx "github.com/kittilsenstian-debug/online-store-engine/internal/jwt"
	oauthvipps "github.com/kittilsenstian-debug/online-store-engine/internal/oauth/vipps"
	"github.com/kittilsenstian-debug/online-store-engine/internal/security/secretbox"
	"github.com/kittilsenstian-debug/online-store-engine/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogin struct {
	tokens      *oauthvipps.Tokens
	exchangeErr error
	userinfo    map[string]map[string]any // path -> claims; ausente => error
	calls       []string
	panicOn     string
}

func (f *fakeLogin) AuthURL(state, redirectURL string) string {
	return "https://vipps.test/auth?state=" + url.QueryEscape(state) + "&redirect_uri=" + url.QueryEscape(redirectURL)
}

func (f *fakeLogin) Exchange(_ context.Context, code, _ string) (*oauthvipps.Tokens, error) {
	f.calls = append(f.calls, "exchange")
	if f.panicOn == "exchange" {
		panic("boom")
	}
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.tokens, nil
}

func (f *fakeLogin) UserInfo(_ context.Context, _, path string) (map[string]any, error) {
	f.calls = append(f.calls, path)
	if c, ok := f.userinfo[path]; ok {
		return c, nil
	}
	return nil, &oauthvipps.UserInfoError{Path: path, Status: 404}
}

func signedIDToken(t *testing.T, claims jwtv5.MapClaims) string {
	t.Helper()
	s, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte("vipps-side"))
	require.NoError(t, err)
	return s
}

type fixture struct {
	store  *memory.Store
	login  *fakeLogin
	issuer *jwtx.Issuer
	svc    CallbackService
}

func newFixture(t *testing.T, login *fakeLogin, mutate func(*Deps)) *fixture {
	t.Helper()
	st := memory.New()
	iss, err := jwtx.NewIssuer("test-secret", 0)
	require.NoError(t, err)
	d := Deps{
		Login:         login,
		Users:         st.Users(),
		Customers:     st.Customers(),
		Identities:    st.Identities(),
		AuthSessions:  st.AuthSessions(),
		Issuer:        iss,
		StorefrontURL: "http://shop.test/",
	}
	if mutate != nil {
		mutate(&d)
	}
	return &fixture{store: st, login: login, issuer: iss, svc: NewCallbackService(d)}
}

func okRequest() CallbackRequest {
	return CallbackRequest{Code: "code-1", State: "st-1", SessionState: "st-1"}
}

func tokenFrom(t *testing.T, iss *jwtx.Issuer, redirect string) *jwtx.StoreClaims {
	t.Helper()
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "/auth/callback", u.Path)
	assert.Equal(t, "vipps", u.Query().Get("provider"))
	claims, err := iss.Parse(u.Query().Get("token"))
	require.NoError(t, err)
	return claims
}

func TestCallback_ProvisionsAndIsIdempotent(t *testing.T) {
	login := &fakeLogin{tokens: &oauthvipps.Tokens{AccessToken: "at-1"}}
	login.tokens.IDToken = signedIDToken(t, jwtv5.MapClaims{
		"sub":          "vipps-sub-1",
		"email":        "Kari@Example.com",
		"name":         "Kari Nordmann",
		"phone_number": "4712345678",
	})
	f := newFixture(t, login, nil)
	ctx := context.Background()

	res, err := f.svc.Callback(ctx, okRequest())
	require.NoError(t, err)
	require.Empty(t, res.ErrorCode)
	first := tokenFrom(t, f.issuer, res.RedirectURL)
	assert.True(t, strings.HasPrefix(res.RedirectURL, "http://shop.test/auth/callback?"))

	user, err := f.store.Users().GetByEmail(ctx, "kari@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Kari", user.FirstName)
	assert.Equal(t, "Nordmann", user.LastName)

	cust, err := f.store.Customers().GetByEmail(ctx, "kari@example.com")
	require.NoError(t, err)
	assert.True(t, cust.HasAccount)
	assert.Equal(t, "4712345678", cust.Phone)

	assert.Equal(t, cust.ID, first.EntityID)
	assert.Equal(t, cust.ID, first.ActorID)
	assert.Equal(t, "customer", first.ActorType)
	assert.Equal(t, "store", first.Scope)
	assert.Equal(t, cust.ID, first.AppMetadata["customer_id"])

	prov, err := f.store.Identities().GetProviderIdentity(ctx, ProviderName, "vipps-sub-1")
	require.NoError(t, err)
	assert.Equal(t, first.AuthIdentityID, prov.AuthIdentityID)
	_, hasToken := prov.ProviderMetadata["access_token"]
	assert.False(t, hasToken, "access token is not stored without a sealer")

	auth, err := f.store.Identities().GetAuthIdentity(ctx, prov.AuthIdentityID)
	require.NoError(t, err)
	assert.Equal(t, cust.ID, auth.AppMetadata["customer_id"])

	res, err = f.svc.Callback(ctx, okRequest())
	require.NoError(t, err)
	second := tokenFrom(t, f.issuer, res.RedirectURL)
	assert.Equal(t, first.EntityID, second.EntityID)
	assert.Equal(t, first.AuthIdentityID, second.AuthIdentityID)

	assert.NotContains(t, login.calls, oauthvipps.UserInfoPath, "id_token is enough")
}

func TestCallback_RepeatLoginWithoutEmailKeepsUser(t *testing.T) {
	login := &fakeLogin{tokens: &oauthvipps.Tokens{AccessToken: "at-1"}}
	login.tokens.IDToken = signedIDToken(t, jwtv5.MapClaims{"sub": "vipps-sub-2", "email": "ola@example.com"})
	f := newFixture(t, login, nil)
	ctx := context.Background()

	res, err := f.svc.Callback(ctx, okRequest())
	require.NoError(t, err)
	require.Empty(t, res.ErrorCode)
	first := tokenFrom(t, f.issuer, res.RedirectURL)
	user, err := f.store.Users().GetByEmail(ctx, "ola@example.com")
	require.NoError(t, err)

	// Segundo login: sin id_token ni userinfo, solo el sub del token response.
	login.tokens = &oauthvipps.Tokens{AccessToken: "at-2", Subject: "vipps-sub-2"}
	res, err = f.svc.Callback(ctx, okRequest())
	require.NoError(t, err)
	require.Empty(t, res.ErrorCode)
	second := tokenFrom(t, f.issuer, res.RedirectURL)

	assert.Equal(t, first.EntityID, second.EntityID)
	assert.Equal(t, first.AuthIdentityID, second.AuthIdentityID)
	_, err = f.store.Users().GetByEmail(ctx, "vipps-sub-2@vipps.no")
	assert.ErrorIs(t, err, repository.ErrNotFound, "no placeholder user for a known sub")

	auth, err := f.store.Identities().GetAuthIdentity(ctx, second.AuthIdentityID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, auth.EntityID)
}

func TestCallback_StateMatrix(t *testing.T) {
	tests := []struct {
		name      string
		lenient   bool
		url, sess string
		wantErr   error
	}{
		{name: "match", url: "a", sess: "a"},
		{name: "mismatch", url: "a", sess: "b", wantErr: ErrCallbackInvalidState},
		{name: "mismatch lenient", lenient: true, url: "a", sess: "b", wantErr: ErrCallbackInvalidState},
		{name: "url only strict", url: "a", wantErr: ErrCallbackInvalidState},
		{name: "url only lenient", lenient: true, url: "a"},
		{name: "session only lenient", lenient: true, sess: "a"},
		{name: "none strict", wantErr: ErrCallbackInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			login := &fakeLogin{tokens: &oauthvipps.Tokens{AccessToken: "at", Subject: "sub-x"}}
			f := newFixture(t, login, func(d *Deps) { d.LenientState = tt.lenient })

			res, err := f.svc.Callback(context.Background(), CallbackRequest{Code: "c", State: tt.url, SessionState: tt.sess})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, login.calls, "no exchange on a rejected state")
				return
			}
			require.NoError(t, err)
			assert.Empty(t, res.ErrorCode)
		})
	}
}

func TestCallback_MissingCode(t *testing.T) {
	f := newFixture(t, &fakeLogin{}, nil)
	_, err := f.svc.Callback(context.Background(), CallbackRequest{State: "s", SessionState: "s"})
	assert.ErrorIs(t, err, ErrCallbackMissingCode)
}

func TestCallback_ErrorRedirects(t *testing.T) {
	t.Run("exchange failure", func(t *testing.T) {
		f := newFixture(t, &fakeLogin{exchangeErr: oauthvipps.ErrTokenExchange}, nil)
		res, err := f.svc.Callback(context.Background(), okRequest())
		require.NoError(t, err)
		assert.Equal(t, CodeTokenError, res.ErrorCode)
		assert.Equal(t, "http://shop.test/account?vipps_login=error&error=token_error", res.RedirectURL)
	})

	t.Run("no subject anywhere", func(t *testing.T) {
		f := newFixture(t, &fakeLogin{tokens: &oauthvipps.Tokens{AccessToken: "at"}}, nil)
		res, err := f.svc.Callback(context.Background(), okRequest())
		require.NoError(t, err)
		assert.Equal(t, CodeUserInfoError, res.ErrorCode)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		f := newFixture(t, &fakeLogin{panicOn: "exchange"}, nil)
		res, err := f.svc.Callback(context.Background(), okRequest())
		require.NoError(t, err)
		assert.Equal(t, CodeInternalError, res.ErrorCode)
	})

	t.Run("token issue failure", func(t *testing.T) {
		login := &fakeLogin{tokens: &oauthvipps.Tokens{AccessToken: "at", Subject: "sub-1"}}
		f := newFixture(t, login, func(d *Deps) { d.Issuer = failingIssuer{} })
		res, err := f.svc.Callback(context.Background(), okRequest())
		require.NoError(t, err)
		assert.Equal(t, CodeSessionError, res.ErrorCode)
	})
}

type failingIssuer struct{}

func (failingIssuer) IssueCustomer(string, string, map[string]any) (string, time.Time, error) {
	return "", time.Time{}, errors.New("no key")
}

func TestCallback_UserInfoFallbacks(t *testing.T) {
	login := &fakeLogin{
		tokens: &oauthvipps.Tokens{AccessToken: "at", IDToken: "garbage"},
		userinfo: map[string]map[string]any{
			oauthvipps.AltUserInfoPath: {"sub": "alt-sub", "given_name": "Ola", "family_name": "Nordmann"},
		},
	}
	f := newFixture(t, login, nil)

	res, err := f.svc.Callback(context.Background(), okRequest())
	require.NoError(t, err)
	require.Empty(t, res.ErrorCode)
	assert.Equal(t, []string{"exchange", oauthvipps.UserInfoPath, oauthvipps.AltUserInfoPath}, login.calls)

	u, err := f.store.Users().GetByEmail(context.Background(), "alt-sub@vipps.no")
	require.NoError(t, err)
	assert.Equal(t, "Ola", u.FirstName)
}

func TestCallback_StaleCustomerIsRecreated(t *testing.T) {
	login := &fakeLogin{tokens: &oauthvipps.Tokens{AccessToken: "at", Subject: "sub-stale"}}
	f := newFixture(t, login, nil)
	ctx := context.Background()

	res, err := f.svc.Callback(ctx, okRequest())
	require.NoError(t, err)
	first := tokenFrom(t, f.issuer, res.RedirectURL)

	f.store.DeleteCustomer(first.EntityID)

	res, err = f.svc.Callback(ctx, okRequest())
	require.NoError(t, err)
	require.Empty(t, res.ErrorCode)
	second := tokenFrom(t, f.issuer, res.RedirectURL)
	assert.NotEqual(t, first.EntityID, second.EntityID)

	auth, err := f.store.Identities().GetAuthIdentity(ctx, second.AuthIdentityID)
	require.NoError(t, err)
	assert.Equal(t, second.EntityID, auth.AppMetadata["customer_id"])
}

func TestCallback_ReusesCustomerByEmail(t *testing.T) {
	login := &fakeLogin{tokens: &oauthvipps.Tokens{AccessToken: "at"}}
	login.tokens.IDToken = signedIDToken(t, jwtv5.MapClaims{"sub": "s-guest", "email": "guest@example.com"})
	f := newFixture(t, login, nil)
	f.store.PutCustomer(repository.Customer{ID: "cus_guest", Email: "guest@example.com"})

	res, err := f.svc.Callback(context.Background(), okRequest())
	require.NoError(t, err)
	assert.Equal(t, "cus_guest", tokenFrom(t, f.issuer, res.RedirectURL).EntityID)
}

func TestCallback_RelinksOrphanProviderIdentity(t *testing.T) {
	login := &fakeLogin{tokens: &oauthvipps.Tokens{AccessToken: "at", Subject: "sub-orphan"}}
	f := newFixture(t, login, nil)
	ctx := context.Background()

	prov, err := f.store.Identities().CreateProviderIdentity(ctx, repository.CreateProviderIdentityInput{
		Provider: ProviderName, EntityID: "sub-orphan", AuthIdentityID: "authid_gone",
	})
	require.NoError(t, err)

	res, err := f.svc.Callback(ctx, okRequest())
	require.NoError(t, err)
	require.Empty(t, res.ErrorCode)
	claims := tokenFrom(t, f.issuer, res.RedirectURL)

	got, err := f.store.Identities().GetProviderIdentity(ctx, ProviderName, "sub-orphan")
	require.NoError(t, err)
	assert.Equal(t, prov.ID, got.ID)
	assert.Equal(t, claims.AuthIdentityID, got.AuthIdentityID)
}

func TestCallback_SealsAccessToken(t *testing.T) {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	box, err := secretbox.New(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)

	login := &fakeLogin{tokens: &oauthvipps.Tokens{AccessToken: "at-secret", Subject: "sub-sealed"}}
	f := newFixture(t, login, func(d *Deps) { d.Sealer = box })

	_, err = f.svc.Callback(context.Background(), okRequest())
	require.NoError(t, err)

	prov, err := f.store.Identities().GetProviderIdentity(context.Background(), ProviderName, "sub-sealed")
	require.NoError(t, err)
	sealed, _ := prov.ProviderMetadata["access_token"].(string)
	require.NotEmpty(t, sealed)
	assert.NotEqual(t, "at-secret", sealed)
	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "at-secret", plain)
}
