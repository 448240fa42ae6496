package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }

// DurationMs registra la duración en milisegundos.
func DurationMs(d time.Duration) zap.Field { return zap.Int64("duration_ms", d.Milliseconds()) }

// =================================================================================
// SISTEMA
// =================================================================================

// Layer indica la capa (controller, service, repository, client).
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

// =================================================================================
// DOMINIO
// =================================================================================

func Provider(v string) zap.Field        { return zap.String("provider", v) }
func PaymentID(v string) zap.Field       { return zap.String("payment_id", v) }
func PaymentState(v string) zap.Field    { return zap.String("payment_state", v) }
func Reference(v string) zap.Field       { return zap.String("reference", v) }
func CartID(v string) zap.Field          { return zap.String("cart_id", v) }
func SessionID(v string) zap.Field       { return zap.String("payment_session_id", v) }
func UserID(v string) zap.Field          { return zap.String("user_id", v) }
func CustomerID(v string) zap.Field      { return zap.String("customer_id", v) }
func AuthIdentityID(v string) zap.Field  { return zap.String("auth_identity_id", v) }
func Subject(v string) zap.Field         { return zap.String("subject", v) }
func Strategy(v string) zap.Field        { return zap.String("strategy", v) }
func UpstreamStatus(code int) zap.Field  { return zap.Int("upstream_status", code) }
func UpstreamBody(body string) zap.Field { return zap.String("upstream_body", truncate(body, 512)) }

// Email registra el email enmascarado (a***@dominio).
func Email(v string) zap.Field { return zap.String("email", MaskEmail(v)) }

// =================================================================================
// GENÉRICOS
// =================================================================================

func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }

// MaskEmail deja la primera letra del local-part y el dominio.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
