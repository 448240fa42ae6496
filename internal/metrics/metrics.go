package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Métricas del servicio. Viven en un paquete propio para que vipps, services
// y middlewares puedan registrar sin ciclos de import.

var (
	VippsRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vipps_api_requests_total",
		Help: "Llamadas salientes a la API de Vipps por operación y resultado",
	}, []string{"op", "outcome"})

	VippsLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vipps_api_request_duration_seconds",
		Help:    "Latencia de las llamadas a Vipps",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"op"})

	VippsTokenRefreshes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vipps_access_token_refresh_total",
		Help: "Tokens de acceso pedidos al endpoint de Vipps",
	})

	LoginCallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vipps_login_callbacks_total",
		Help: "Callbacks OAuth de Vipps Login por resultado",
	}, []string{"outcome"})

	PaymentUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vipps_payment_session_updates_total",
		Help: "Actualizaciones de payment sessions por origen y estado",
	}, []string{"source", "status"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Requests HTTP procesadas",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		VippsRequests, VippsLatency, VippsTokenRefreshes,
		LoginCallbacks, PaymentUpdates, HTTPRequests, HTTPDuration,
	}
}

// Register registra las métricas en reg (o el default si es nil).
// Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

// Handler expone /metrics para el gatherer dado (o el default).
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveVipps registra una llamada saliente a Vipps.
func ObserveVipps(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	VippsRequests.WithLabelValues(op, outcome).Inc()
	VippsLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
