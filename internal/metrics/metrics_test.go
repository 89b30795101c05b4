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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorjee9/algotrade-simple/internal/model"
)

func TestMetrics_ObserveRun(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRun(model.Summary{Buys: 3, Sells: 2, SkippedBuys: 1, EndingValue: 123.5, CumulativeReturnPct: 23.5}, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(ResultOK)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("buy")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("sell")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedBuys))
	assert.Equal(t, 123.5, testutil.ToFloat64(m.EndingValue))
}

func TestMetrics_ObserveFetch(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveFetch("yahoo", 250, 10*time.Millisecond, nil)
	m.ObserveFetch("yahoo", 0, time.Millisecond, errors.New("timeout"))

	assert.Equal(t, 250.0, testutil.ToFloat64(m.BarsLoaded.WithLabelValues("yahoo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchErrors.WithLabelValues("yahoo")))
}

func TestMetrics_BreakerTrips(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SetBreakerState(1)
	m.SetBreakerState(2)
	m.SetBreakerState(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BreakerState))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerTrips))
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestHealthStatus_ServeHTTP(t *testing.T) {
	h := NewHealthStatus()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)

	h.SetSQLiteOK(true)
	h.SetRedisEnabled(true)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)

	h.SetRedisEnabled(false)
	h.RecordRun(time.Now())
	status, code := h.Snapshot()
	assert.Equal(t, "healthy", status)
	assert.Equal(t, http.StatusOK, code)
}

func TestRegistry_Gather(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveFailure(ResultNoData)

	count, err := testutil.GatherAndCount(reg, "backtest_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP backtest_runs_total Backtest runs by result
# TYPE backtest_runs_total counter
backtest_runs_total{result="no_data"} 1
`), "backtest_runs_total")
	assert.NoError(t, err)
}

func TestHealthStatus_WithoutSQLite(t *testing.T) {
	h := NewHealthStatus()
	h.SetSQLiteEnabled(false)
	status, code := h.Snapshot()
	assert.Equal(t, "healthy", status)
	assert.Equal(t, http.StatusOK, code)
}
