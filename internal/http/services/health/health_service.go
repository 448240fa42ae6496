package health

import (
	"context"
	"fmt"
	"time"

	dto "github.com/kittilsenstian-debug/online-store-engine/internal/http/dto/health"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	Version         string
	DBCheck         func(ctx context.Context) error // DB ping check function
	CacheCheck      func(ctx context.Context) error
	VippsConfigured bool
	// Timeout por componente; default 2s.
	Timeout time.Duration
	now     func() time.Time
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Second
	}
	if deps.now == nil {
		deps.now = time.Now
	}
	return &healthService{deps: deps}
}

const componentHealth = "health"

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentHealth),
		logger.Op("Check"),
	)

	response := dto.HealthResponse{
		Components: make(map[string]dto.HealthStatus),
		Version:    s.deps.Version,
		Timestamp:  s.deps.now().UTC(),
	}

	hasErrors := false
	hasCriticalErrors := false

	// 1) DB (crítico: identidades y payment sessions viven ahí)
	if s.deps.DBCheck != nil {
		if err := s.ping(ctx, s.deps.DBCheck); err != nil {
			response.Components["db"] = dto.HealthStatus{
				Status:  "error",
				Message: fmt.Sprintf("unavailable: %v", err),
			}
			hasCriticalErrors = true
			log.Error("db unavailable", logger.Err(err))
		} else {
			response.Components["db"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["db"] = dto.HealthStatus{
			Status:  "disabled",
			Message: "memory store",
		}
	}

	// 2) Cache de sesiones (crítico: sin él no hay state CSRF)
	if s.deps.CacheCheck != nil {
		if err := s.ping(ctx, s.deps.CacheCheck); err != nil {
			response.Components["cache"] = dto.HealthStatus{
				Status:  "error",
				Message: fmt.Sprintf("unavailable: %v", err),
			}
			hasCriticalErrors = true
			log.Error("cache unavailable", logger.Err(err))
		} else {
			response.Components["cache"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["cache"] = dto.HealthStatus{Status: "disabled"}
	}

	// 3) Credenciales Vipps (no crítico: login y pagos fallan con error explícito)
	if s.deps.VippsConfigured {
		response.Components["vipps"] = dto.HealthStatus{Status: "ok"}
	} else {
		response.Components["vipps"] = dto.HealthStatus{
			Status:  "error",
			Message: "credentials missing",
		}
		hasErrors = true
	}

	// Status final
	if hasCriticalErrors {
		response.Status = "unavailable"
	} else if hasErrors {
		response.Status = "degraded"
	} else {
		response.Status = "ready"
	}

	return response
}

func (s *healthService) ping(ctx context.Context, check func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()
	return check(ctx)
}
