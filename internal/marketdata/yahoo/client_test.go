package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two sessions plus a null row; timestamps are 09:30 New York time.
const chartOK = `{"chart":{"result":[{
  "meta":{"symbol":"AAPL","gmtoffset":-18000},
  "timestamp":[1704205800,1704292200,1704378600],
  "indicators":{"quote":[{
    "open":[187.15,184.22,null],
    "high":[188.44,185.88,null],
    "low":[183.89,183.43,null],
    "close":[185.64,184.25,null],
    "volume":[82488700,58414500,null]
  }]}
}],"error":null}}`

const chartNotFound = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

func TestClient_Bars(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chartOK))
	}))
	defer srv.Close()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	bars, err := NewClient(srv.URL).Bars(context.Background(), "aapl", from, to)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "1d", gotQuery["interval"][0])
	assert.Equal(t, "1704067200", gotQuery["period1"][0])

	require.Len(t, bars, 2, "null row skipped")
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 187.15, bars[0].Open)
	assert.Equal(t, 185.64, bars[0].Close)
	assert.Equal(t, 188.44, bars[0].High)
	assert.Equal(t, int64(82488700), bars[0].Volume)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), bars[1].Date)
}

func TestClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(chartNotFound))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Bars(context.Background(), "NOPE", time.Unix(0, 0), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "No data found")
}

func TestClient_HTTPErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"chart":{"result":[]}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Bars(context.Background(), "AAPL", time.Unix(0, 0), time.Now())
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestClient_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL).Bars(ctx, "AAPL", time.Unix(0, 0), time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseChart_Malformed(t *testing.T) {
	_, err := parseChart([]byte("<html>"))
	assert.Error(t, err)
}
