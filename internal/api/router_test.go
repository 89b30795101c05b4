package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorjee9/algotrade-simple/config"
	"github.com/dorjee9/algotrade-simple/internal/backtest"
	"github.com/dorjee9/algotrade-simple/internal/gateway"
	"github.com/dorjee9/algotrade-simple/internal/marketdata"
	"github.com/dorjee9/algotrade-simple/internal/metrics"
	"github.com/dorjee9/algotrade-simple/internal/model"
	"github.com/dorjee9/algotrade-simple/internal/service"
	sqlitestore "github.com/dorjee9/algotrade-simple/internal/store/sqlite"
)

// rampSource serves 120 daily bars: flat at 100, then 200 from bar 60.
// Symbols other than TEST have no data.
func rampSource() marketdata.Source {
	return marketdata.SourceFunc(func(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
		if symbol != "TEST" {
			return nil, marketdata.ErrNoData
		}
		bars := make([]model.Bar, 120)
		for i := range bars {
			px := 100.0
			if i >= 60 {
				px = 200
			}
			bars[i] = model.Bar{Date: from.AddDate(0, 0, i), Open: px, High: px, Low: px, Close: px}
		}
		return bars, nil
	})
}

type fakeRuns struct {
	runs []sqlitestore.RunRecord
	err  error
}

func (f *fakeRuns) RecentRuns(ctx context.Context, limit int) ([]sqlitestore.RunRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func newTestServer(t *testing.T, runs RunLister) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	health := metrics.NewHealthStatus()
	health.SetSQLiteOK(true)

	defaults := config.Default()
	defaults.Symbol = "TEST"
	defaults.Start = "2024-01-01"
	defaults.End = "2025-01-01"

	svc := service.New(service.Options{
		Source:  rampSource(),
		Metrics: m,
		Health:  health,
		Logger:  zerolog.Nop(),
	})
	return NewServer(":0", Deps{
		Service:  svc,
		Runs:     runs,
		Hub:      gateway.NewHub(zerolog.Nop()),
		Health:   health,
		Gatherer: reg,
		Defaults: defaults,
		Logger:   zerolog.Nop(),
	}), reg
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/v1/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"stream_clients":0`)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBacktest_Defaults(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/v1/backtest?cash=10000")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var doc struct {
		RunID   string          `json:"run_id"`
		Params  backtest.Params `json:"params"`
		Summary model.Summary   `json:"summary"`
		Days    []model.DayResult
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))

	assert.NotEmpty(t, doc.RunID)
	assert.Equal(t, doc.RunID, rec.Header().Get(runIDHeader))
	assert.Equal(t, "TEST", doc.Summary.Symbol)
	assert.Equal(t, 10000.0, doc.Params.InitialCash)
	assert.Equal(t, 20, doc.Params.FastWindow)
	assert.Len(t, doc.Days, 120)
	assert.Equal(t, 1, doc.Summary.Buys)
}

func TestBacktest_Errors(t *testing.T) {
	s, _ := newTestServer(t, nil)

	cases := []struct {
		name   string
		target string
		code   int
	}{
		{"fast not below slow", "/api/v1/backtest?fast=50&slow=20", http.StatusBadRequest},
		{"bad number", "/api/v1/backtest?fast=abc", http.StatusBadRequest},
		{"bad date", "/api/v1/backtest?from=2024-13-01", http.StatusBadRequest},
		{"reversed range", "/api/v1/backtest?from=2024-06-01&to=2024-01-01", http.StatusBadRequest},
		{"unknown symbol", "/api/v1/backtest?symbol=NOPE", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, s.Handler(), tc.target)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestChart(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/v1/chart.svg")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<?xml"))
	assert.Contains(t, rec.Body.String(), "TEST portfolio value")
}

func TestRuns(t *testing.T) {
	s, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s.Handler(), "/api/v1/runs").Code)

	runs := &fakeRuns{runs: []sqlitestore.RunRecord{{RunID: "a"}, {RunID: "b"}, {RunID: "c"}}}
	s, _ = newTestServer(t, runs)
	rec := get(t, s.Handler(), "/api/v1/runs?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int `json:"count"`
		Runs  []struct {
			RunID string `json:"run_id"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "a", body.Runs[0].RunID)

	runs.err = errors.New("db locked")
	assert.Equal(t, http.StatusInternalServerError, get(t, s.Handler(), "/api/v1/runs").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	get(t, s.Handler(), "/api/v1/backtest")

	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `backtest_runs_total{result="ok"} 1`)
}

func TestStream(t *testing.T) {
	s, _ := newTestServer(t, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream?symbol=TEST"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var envs []gateway.Envelope
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var env gateway.Envelope
		require.NoError(t, json.Unmarshal(msg, &env))
		envs = append(envs, env)
	}

	require.Len(t, envs, 121)
	assert.Equal(t, gateway.TypeDay, envs[0].Type)
	assert.Equal(t, gateway.TypeSummary, envs[120].Type)
	assert.Equal(t, envs[0].RunID, envs[120].RunID)
}

func TestStream_BadQuery(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/v1/stream?from=garbage")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
