package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "dev", c.App.Env)
	assert.Equal(t, ":9000", c.Server.Addr)
	assert.Equal(t, "http://localhost:9000", c.URLs.Backend)
	assert.Equal(t, "http://localhost:8000", c.URLs.Storefront)
	assert.Equal(t, "memory", c.Cache.Kind)
	assert.Equal(t, DevJWTSecret, c.Auth.JWTSecret)
	assert.Equal(t, 30*24*time.Hour, c.Auth.TokenTTL)
	assert.Equal(t, []string{"openid", "name", "phoneNumber", "address", "email"}, c.Vipps.Scopes)
	assert.False(t, c.Vipps.TestMode)
	assert.False(t, c.Auth.LenientState)
	assert.False(t, c.VippsConfigured())
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	p := writeYAML(t, `
app:
  env: dev
storage:
  driver: memory
urls:
  backend: http://yaml-backend
vipps:
  client_id: from-yaml
  test_mode: false
`)
	t.Setenv("VIPPS_CLIENT_ID", "from-env")
	t.Setenv("VIPPS_CLIENT_SECRET", "secret")
	t.Setenv("VIPPS_SUBSCRIPTION_KEY", "sub")
	t.Setenv("VIPPS_TEST_MODE", "true")
	t.Setenv("BACKEND_URL", "https://api.example.no/")
	t.Setenv("JWT_SECRET", "")

	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "from-env", c.Vipps.ClientID)
	assert.True(t, c.Vipps.TestMode)
	assert.Equal(t, "https://api.example.no", c.URLs.Backend)
	assert.True(t, c.VippsConfigured())
}

func TestLoad_Aliases(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("VIPPS_MERCHANT_SERIAL_NUMBER", "123456")
	t.Setenv("MEDUSA_JWT_SECRET", "legacy-secret")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "123456", c.Vipps.MerchantSerialNumber)
	assert.Equal(t, "legacy-secret", c.Auth.JWTSecret)

	t.Setenv("VIPPS_MSN", "999")
	t.Setenv("JWT_SECRET", "primary")
	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "999", c.Vipps.MerchantSerialNumber)
	assert.Equal(t, "primary", c.Auth.JWTSecret)
}

func TestLoad_DatabaseURLAlias(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/shop")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", c.Storage.Driver)
	assert.Equal(t, "postgres://u:p@db:5432/shop", c.Storage.DSN)
}

func TestValidate_ProdRequiresSecret(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("APP_ENV", "prod")

	_, err := Load("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	t.Setenv("JWT_SECRET", DevJWTSecret)
	_, err = Load("")
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret")
	c, err := Load("")
	require.NoError(t, err)
	assert.False(t, c.IsDev())
}

func TestValidate_RejectsUnknownDrivers(t *testing.T) {
	p := writeYAML(t, `
storage:
  driver: sqlite
cache:
  kind: memcached
`)
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.kind")
	assert.Contains(t, err.Error(), "storage.driver")
}

func TestLoad_BadYAML(t *testing.T) {
	p := writeYAML(t, "server: [unclosed")
	_, err := Load(p)
	require.Error(t, err)
}
