package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordStoreCall_SplitsByResult(t *testing.T) {
	okBefore := testutil.ToFloat64(storeCalls.With(prometheus.Labels{"op": "append", "result": "ok"}))
	errBefore := testutil.ToFloat64(storeCalls.With(prometheus.Labels{"op": "append", "result": "error"}))

	RecordStoreCall("append", nil)
	RecordStoreCall("append", errors.New("boom"))
	RecordStoreCall("append", nil)

	require.InDelta(t, okBefore+2, testutil.ToFloat64(storeCalls.With(prometheus.Labels{"op": "append", "result": "ok"})), 0.001)
	require.InDelta(t, errBefore+1, testutil.ToFloat64(storeCalls.With(prometheus.Labels{"op": "append", "result": "error"})), 0.001)
}

func TestPrometheusController_ServesMetrics(t *testing.T) {
	RecordSubmission()

	r := mux.NewRouter()
	NewPrometheusController("").Register(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "outing_requests_submitted_total")
}
