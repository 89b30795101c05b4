// Package yahoo fetches daily bars from the Yahoo Finance v8 chart endpoint.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dorjee9/algotrade-simple/internal/marketdata"
	"github.com/dorjee9/algotrade-simple/internal/model"
)

// DefaultBaseURL is the public chart API host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// ErrUpstream is wrapped by errors reported in the chart response body.
var ErrUpstream = errors.New("yahoo: upstream error")

// Client is a marketdata.Source backed by the Yahoo chart API.
// Prices are unadjusted (split-adjusted only, as Yahoo reports them).
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Bars implements marketdata.Source.
func (c *Client) Bars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	symbol = marketdata.NormalizeSymbol(symbol)

	q := url.Values{}
	q.Set("period1", fmt.Sprint(from.Unix()))
	q.Set("period2", fmt.Sprint(to.Unix()))
	q.Set("interval", "1d")
	q.Set("events", "history")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: read body: %w", symbol, err)
	}

	bars, err := parseChart(body)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s (HTTP %d): %w", symbol, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo %s: HTTP %d: %w", symbol, resp.StatusCode, ErrUpstream)
	}
	return marketdata.Normalize(bars, from, to), nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int    `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// parseChart converts a chart payload into bars. Rows with a missing open or
// close are skipped. Session dates are taken in the exchange's time zone.
func parseChart(data []byte) ([]model.Bar, error) {
	var resp chartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrUpstream, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	r := resp.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, nil
	}
	q := r.Indicators.Quote[0]
	loc := time.FixedZone("exchange", r.Meta.GMTOffset)

	bars := make([]model.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		op, cl := at(q.Open, i), at(q.Close, i)
		if op == nil || cl == nil {
			continue
		}
		b := model.Bar{
			Date:  model.SessionDate(time.Unix(ts, 0).In(loc)),
			Open:  *op,
			Close: *cl,
			High:  *op,
			Low:   *op,
		}
		if h := at(q.High, i); h != nil {
			b.High = *h
		}
		if l := at(q.Low, i); l != nil {
			b.Low = *l
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			b.Volume = *q.Volume[i]
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func at(s []*float64, i int) *float64 {
	if i < len(s) {
		return s[i]
	}
	return nil
}
