package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env     string `yaml:"env" env:"APP_ENV"`
		Name    string `yaml:"name" env:"APP_NAME"`
		Version string `yaml:"version" env:"APP_VERSION"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`

	Server struct {
		Addr            string        `yaml:"addr" env:"SERVER_ADDR"`
		ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	// URLs públicas usadas para armar return/callback URLs y redirects.
	URLs struct {
		Backend    string `yaml:"backend" env:"BACKEND_URL"`
		Storefront string `yaml:"storefront" env:"NEXT_PUBLIC_BASE_URL"`
	} `yaml:"urls"`

	Storage struct {
		// Driver: postgres | memory
		Driver   string `yaml:"driver" env:"STORAGE_DRIVER"`
		DSN      string `yaml:"dsn" env:"STORAGE_DSN"`
		MaxConns int32  `yaml:"max_conns" env:"POSTGRES_MAX_CONNS"`
		Migrate  bool   `yaml:"migrate" env:"STORAGE_MIGRATE"`
	} `yaml:"storage"`

	Cache struct {
		// Kind: memory | redis
		Kind  string `yaml:"kind" env:"CACHE_KIND"`
		Redis struct {
			Addr     string `yaml:"addr" env:"REDIS_ADDR"`
			Password string `yaml:"password" env:"REDIS_PASSWORD"`
			DB       int    `yaml:"db" env:"REDIS_DB"`
			Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL time.Duration `yaml:"default_ttl" env:"CACHE_MEMORY_DEFAULT_TTL"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Vipps struct {
		ClientID             string        `yaml:"client_id" env:"VIPPS_CLIENT_ID"`
		ClientSecret         string        `yaml:"client_secret" env:"VIPPS_CLIENT_SECRET"`
		SubscriptionKey      string        `yaml:"subscription_key" env:"VIPPS_SUBSCRIPTION_KEY"`
		MerchantSerialNumber string        `yaml:"merchant_serial_number" env:"VIPPS_MSN"`
		TestMode             bool          `yaml:"test_mode" env:"VIPPS_TEST_MODE"`
		BaseURL              string        `yaml:"base_url" env:"VIPPS_BASE_URL"` // vacío => según test_mode
		RedirectURI          string        `yaml:"redirect_uri" env:"VIPPS_REDIRECT_URI"`
		SystemName           string        `yaml:"system_name" env:"VIPPS_SYSTEM_NAME"`
		SystemVersion        string        `yaml:"system_version" env:"VIPPS_SYSTEM_VERSION"`
		HTTPTimeout          time.Duration `yaml:"http_timeout" env:"VIPPS_HTTP_TIMEOUT"`
		Scopes               []string      `yaml:"scopes" env:"VIPPS_SCOPES" envSeparator:" "`
	} `yaml:"vipps"`

	Auth struct {
		JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
		TokenTTL  time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL"`
		// LenientState acepta un callback cuando falta el state de un lado
		// (URL o sesión) y permite que el cliente fije el state con ?state=.
		// Por defecto se exigen ambos y el state siempre se genera.
		LenientState bool `yaml:"lenient_state" env:"VIPPS_LENIENT_STATE"`
		Session      struct {
			CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME"`
			Domain     string        `yaml:"domain" env:"SESSION_COOKIE_DOMAIN"`
			Secure     bool          `yaml:"secure" env:"SESSION_COOKIE_SECURE"`
			TTL        time.Duration `yaml:"ttl" env:"SESSION_TTL"`
		} `yaml:"session"`
	} `yaml:"auth"`

	Security struct {
		// base64(32 bytes); sella el access token de Vipps guardado en provider_metadata.
		SecretBoxMasterKey string `yaml:"secretbox_master_key" env:"SECRETBOX_MASTER_KEY"`
	} `yaml:"security"`

	Rate struct {
		Enabled bool `yaml:"enabled" env:"RATE_ENABLED"`
		Login   struct {
			Limit  int           `yaml:"limit" env:"RATE_LOGIN_LIMIT"`
			Window time.Duration `yaml:"window" env:"RATE_LOGIN_WINDOW"`
		} `yaml:"login"`
	} `yaml:"rate"`

	Admin struct {
		APIKey string `yaml:"api_key" env:"ADMIN_API_KEY"`
	} `yaml:"admin"`
}

// aliases: nombres alternativos heredados del despliegue existente.
type aliases struct {
	MerchantSerialNumber string `env:"VIPPS_MERCHANT_SERIAL_NUMBER"`
	JWTSecret            string `env:"MEDUSA_JWT_SECRET"`
	DatabaseURL          string `env:"DATABASE_URL"`
	RedisURL             string `env:"REDIS_URL"`
}

// DevJWTSecret es el secreto que se usa en dev cuando no hay JWT_SECRET.
const DevJWTSecret = "supersecret"

var ErrInvalidConfig = errors.New("config: invalid")

// Load lee el YAML (opcional: path vacío o inexistente => solo defaults + env),
// aplica defaults, overrides por env y valida.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// sin archivo: seguimos con env
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	c.applyDefaults()

	if err := c.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "storefront"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":9000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.URLs.Backend == "" {
		c.URLs.Backend = "http://localhost:9000"
	}
	if c.URLs.Storefront == "" {
		c.URLs.Storefront = "http://localhost:8000"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Storage.MaxConns == 0 {
		c.Storage.MaxConns = 10
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == 0 {
		c.Cache.Memory.DefaultTTL = 10 * time.Minute
	}
	if c.Vipps.SystemName == "" {
		c.Vipps.SystemName = "online-store-engine"
	}
	if c.Vipps.SystemVersion == "" {
		c.Vipps.SystemVersion = "2.0.0"
	}
	if c.Vipps.HTTPTimeout == 0 {
		c.Vipps.HTTPTimeout = 10 * time.Second
	}
	if len(c.Vipps.Scopes) == 0 {
		c.Vipps.Scopes = []string{"openid", "name", "phoneNumber", "address", "email"}
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.Session.CookieName == "" {
		c.Auth.Session.CookieName = "sid"
	}
	if c.Auth.Session.TTL == 0 {
		c.Auth.Session.TTL = 15 * time.Minute
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 20
	}
	if c.Rate.Login.Window == 0 {
		c.Rate.Login.Window = time.Minute
	}
}

// applyEnvOverrides pisa el YAML con variables de entorno. Variables vacías no pisan.
func (c *Config) applyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}

	var a aliases
	if err := env.Parse(&a); err != nil {
		return fmt.Errorf("config: env aliases: %w", err)
	}
	if c.Vipps.MerchantSerialNumber == "" {
		c.Vipps.MerchantSerialNumber = a.MerchantSerialNumber
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = a.JWTSecret
	}
	if c.Storage.DSN == "" {
		c.Storage.DSN = a.DatabaseURL
	}
	if c.Cache.Redis.Addr == "" && a.RedisURL != "" {
		c.Cache.Redis.Addr = a.RedisURL
	}

	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	c.Cache.Kind = strings.ToLower(strings.TrimSpace(c.Cache.Kind))
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.URLs.Backend = strings.TrimRight(c.URLs.Backend, "/")
	c.URLs.Storefront = strings.TrimRight(c.URLs.Storefront, "/")

	if c.Auth.JWTSecret == "" && c.IsDev() {
		c.Auth.JWTSecret = DevJWTSecret
	}
	return nil
}

// Validate rechaza combinaciones inválidas. Las credenciales de Vipps no se
// validan acá: las rutas de pago responden con error de configuración.
func (c *Config) Validate() error {
	var errs []error
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q: expected memory|redis", c.Cache.Kind))
	}
	if c.Cache.Kind == "redis" && c.Cache.Redis.Addr == "" {
		errs = append(errs, errors.New("cache.redis.addr required when cache.kind=redis"))
	}
	switch c.Storage.Driver {
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn (or DATABASE_URL) required for postgres"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q: expected postgres|memory", c.Storage.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret (or JWT_SECRET) required outside dev"))
	}
	if !c.IsDev() && c.Auth.JWTSecret == DevJWTSecret {
		errs = append(errs, errors.New("auth.jwt_secret must not use the dev default outside dev"))
	}
	if c.Auth.TokenTTL < time.Minute {
		errs = append(errs, errors.New("auth.token_ttl must be at least 1m"))
	}
	if c.Rate.Enabled && (c.Rate.Login.Limit <= 0 || c.Rate.Login.Window <= 0) {
		errs = append(errs, errors.New("rate.login limit and window must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// IsDev reporta si la app corre en modo desarrollo.
func (c *Config) IsDev() bool {
	return c.App.Env == "" || c.App.Env == "dev" || c.App.Env == "development"
}

// VippsConfigured reporta si están las tres credenciales obligatorias.
func (c *Config) VippsConfigured() bool {
	return c.Vipps.ClientID != "" && c.Vipps.ClientSecret != "" && c.Vipps.SubscriptionKey != ""
}
