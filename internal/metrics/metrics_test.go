package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveVipps(t *testing.T) {
	before := testutil.ToFloat64(VippsRequests.WithLabelValues("capture", "error"))
	ObserveVipps("capture", time.Now(), errors.New("boom"))
	after := testutil.ToFloat64(VippsRequests.WithLabelValues("capture", "error"))
	require.Equal(t, before+1, after)
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	LoginCallbacks.WithLabelValues("success").Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "vipps_login_callbacks_total"))
}
