// Package audit emite eventos de auditoría de operaciones sobre pagos.
package audit

import (
	"context"
	"time"

	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"go.uber.org/zap"
)

// Event es una operación auditada.
type Event struct {
	Name      string // ej. payment.capture
	SessionID string
	From, To  string // estado antes y después
	Amount    int64  // 0 si no aplica
}

// Log escribe el evento en el logger "audit" del contexto.
func Log(ctx context.Context, ev Event) {
	fields := []zap.Field{
		logger.Layer("audit"),
		logger.String("event", ev.Name),
		logger.SessionID(ev.SessionID),
		logger.String("from", ev.From),
		logger.String("to", ev.To),
		logger.String("ts", time.Now().UTC().Format(time.RFC3339Nano)),
	}
	if ev.Amount > 0 {
		fields = append(fields, zap.Int64("amount", ev.Amount))
	}
	logger.From(ctx).Named("audit").Info("audit", fields...)
}
