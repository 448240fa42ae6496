package vippsauth

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart(t *testing.T) {
	svc := NewStartService(StartDeps{Login: &fakeLogin{}})

	res, err := svc.Start(context.Background(), StartRequest{State: "attacker-state", RedirectURI: "http://api.test/store/auth/vipps/callback"})
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-state", res.State, "client state is ignored by default")
	assert.Len(t, res.State, 22)
	u, err := url.Parse(res.AuthURL)
	require.NoError(t, err)
	assert.Equal(t, res.State, u.Query().Get("state"))
	assert.Equal(t, "http://api.test/store/auth/vipps/callback", u.Query().Get("redirect_uri"))

	a, err := svc.Start(context.Background(), StartRequest{})
	require.NoError(t, err)
	b, err := svc.Start(context.Background(), StartRequest{})
	require.NoError(t, err)
	assert.Len(t, a.State, 22)
	assert.NotEqual(t, a.State, b.State)
}

func TestStart_LenientUsesClientState(t *testing.T) {
	svc := NewStartService(StartDeps{Login: &fakeLogin{}, LenientState: true})

	res, err := svc.Start(context.Background(), StartRequest{State: " client-state "})
	require.NoError(t, err)
	assert.Equal(t, "client-state", res.State)

	res, err = svc.Start(context.Background(), StartRequest{State: "  "})
	require.NoError(t, err)
	assert.Len(t, res.State, 22)
}

func TestIdentity_Names(t *testing.T) {
	id := identityFromClaims(map[string]any{"user_id": "U-1", "name": "Kari  Anne Nordmann"}, "userinfo")
	assert.Equal(t, "U-1", id.Subject)
	assert.Equal(t, "Kari", id.FirstName())
	assert.Equal(t, "Anne Nordmann", id.LastName())
	assert.Equal(t, "u-1@vipps.no", id.EmailOrPlaceholder())

	id = Identity{Subject: "x", Email: " Ola@Example.COM ", GivenName: "Ola", FamilyName: "N"}
	assert.Equal(t, "ola@example.com", id.EmailOrPlaceholder())
	assert.Equal(t, "Ola", id.FirstName())
	assert.Equal(t, "N", id.LastName())
}
