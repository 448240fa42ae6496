package health

import (
	"net/http"

	"github.com/kittilsenstian-debug/online-store-engine/internal/http/helpers"
	svc "github.com/kittilsenstian-debug/online-store-engine/internal/http/services/health"
	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
)

// HealthController maneja las rutas de health check.
type HealthController struct {
	service svc.HealthService
}

// NewHealthController crea un nuevo controller de health check.
func NewHealthController(service svc.HealthService) *HealthController {
	return &HealthController{service: service}
}

// Healthz maneja GET /healthz: el proceso responde.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.NoStore(w)
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz maneja GET /readyz
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	response := c.service.Check(ctx)

	if response.Version != "" {
		w.Header().Set("X-Service-Version", response.Version)
	}

	// Status code según estado
	var statusCode int
	switch response.Status {
	case "unavailable":
		statusCode = http.StatusServiceUnavailable
	default: // "ready" o "degraded"
		statusCode = http.StatusOK
	}

	log.Debug("health check completed",
		logger.String("status", response.Status),
		logger.Int("components_count", len(response.Components)),
	)

	helpers.NoStore(w)
	helpers.WriteJSON(w, statusCode, response)
}
