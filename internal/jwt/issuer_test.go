package jwt

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueCustomer_Claims(t *testing.T) {
	iss, err := NewIssuer("supersecret", 0)
	require.NoError(t, err)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return fixed }

	tok, exp, err := iss.IssueCustomer("cus_1", "authid_1", map[string]any{"customer_id": "cus_1"})
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(30*24*time.Hour), exp)

	raw := jwtv5.MapClaims{}
	_, err = jwtv5.ParseWithClaims(tok, raw, func(*jwtv5.Token) (any, error) { return []byte("supersecret"), nil },
		jwtv5.WithTimeFunc(func() time.Time { return fixed }))
	require.NoError(t, err)
	assert.Equal(t, "cus_1", raw["entity_id"])
	assert.Equal(t, "cus_1", raw["actor_id"])
	assert.Equal(t, "customer", raw["actor_type"])
	assert.Equal(t, "store", raw["scope"])
	assert.Equal(t, "authid_1", raw["auth_identity_id"])
	assert.Equal(t, map[string]any{"customer_id": "cus_1"}, raw["app_metadata"])
	assert.EqualValues(t, fixed.Unix(), raw["iat"])
	assert.EqualValues(t, exp.Unix(), raw["exp"])

	claims, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "authid_1", claims.AuthIdentityID)
}

func TestParse_Rejects(t *testing.T) {
	iss, err := NewIssuer("a", time.Minute)
	require.NoError(t, err)
	other, err := NewIssuer("b", time.Minute)
	require.NoError(t, err)

	tok, _, err := other.IssueCustomer("cus_1", "authid_1", nil)
	require.NoError(t, err)
	_, err = iss.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	past := time.Now().Add(-2 * time.Hour)
	iss.now = func() time.Time { return past }
	old, _, err := iss.IssueCustomer("cus_1", "authid_1", nil)
	require.NoError(t, err)
	iss.now = time.Now
	_, err = iss.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewIssuer("", 0)
	assert.ErrorIs(t, err, ErrNoSecret)
}
