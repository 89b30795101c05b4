package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dorjee9/algotrade-simple/config"
	"github.com/dorjee9/algotrade-simple/internal/backtest"
	"github.com/dorjee9/algotrade-simple/internal/marketdata"
	"github.com/dorjee9/algotrade-simple/internal/report"
	"github.com/dorjee9/algotrade-simple/internal/service"
)

const runIDHeader = "X-Run-ID"

type handler struct {
	deps Deps
	log  zerolog.Logger
}

// backtestQuery holds the optional query parameters of a run.
// Missing values fall back to the server configuration.
type backtestQuery struct {
	Symbol   string   `form:"symbol"`
	From     string   `form:"from"`
	To       string   `form:"to"`
	Fast     *int     `form:"fast"`
	Slow     *int     `form:"slow"`
	Cash     *float64 `form:"cash"`
	Fee      *float64 `form:"fee"`
	Slippage *float64 `form:"slippage"`
}

func (h *handler) parseRequest(c *gin.Context) (service.Request, error) {
	var q backtestQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return service.Request{}, err
	}
	d := h.deps.Defaults

	start, end := d.Start, d.End
	if q.From != "" {
		start = q.From
	}
	if q.To != "" {
		end = q.To
	}
	from, to, err := config.ParseRange(start, end)
	if err != nil {
		return service.Request{}, err
	}

	p := d.Params()
	if q.Fast != nil {
		p.FastWindow = *q.Fast
	}
	if q.Slow != nil {
		p.SlowWindow = *q.Slow
	}
	if q.Cash != nil {
		p.InitialCash = *q.Cash
	}
	if q.Fee != nil {
		p.FeePerTrade = *q.Fee
	}
	if q.Slippage != nil {
		p.SlippagePct = *q.Slippage
	}

	symbol := d.Symbol
	if strings.TrimSpace(q.Symbol) != "" {
		symbol = q.Symbol
	}
	return service.Request{Symbol: symbol, From: from, To: to, Params: p}, nil
}

func (h *handler) run(c *gin.Context) (*service.Outcome, bool) {
	req, err := h.parseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	runID := h.deps.Service.NewRunID()
	c.Header(runIDHeader, runID)

	out, err := h.deps.Service.RunWithID(c.Request.Context(), runID, req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "run_id": runID})
		return nil, false
	}
	return out, true
}

// GET /api/v1/backtest
func (h *handler) backtest(c *gin.Context) {
	out, ok := h.run(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report.NewDocument(out.RunID, out.Result))
}

// GET /api/v1/chart.svg
func (h *handler) chart(c *gin.Context) {
	out, ok := h.run(c)
	if !ok {
		return
	}
	svg, err := report.RenderEquitySVG(out.Result.Summary.Symbol, out.Result.Days,
		report.SVGChartOptions{Baseline: out.Result.Params.InitialCash})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "run_id": out.RunID})
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", svg)
}

// GET /api/v1/runs?limit=N
func (h *handler) runs(c *gin.Context) {
	if h.deps.Runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history not configured"})
		return
	}
	var q struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 20
	}
	runs, err := h.deps.Runs.RecentRuns(c.Request.Context(), q.Limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list runs failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list runs failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// GET /api/v1/stream (websocket)
func (h *handler) stream(c *gin.Context) {
	if h.deps.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "streaming not configured"})
		return
	}
	req, err := h.parseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	runID := h.deps.Service.NewRunID()
	h.deps.Hub.Stream(c.Writer, c.Request, runID, func(ctx context.Context) (*backtest.Result, error) {
		out, err := h.deps.Service.RunWithID(ctx, runID, req)
		if err != nil {
			return nil, err
		}
		return out.Result, nil
	})
}

// GET /api/v1/health
func (h *handler) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	code := http.StatusOK
	if h.deps.Health != nil {
		var status string
		status, code = h.deps.Health.Snapshot()
		body["status"] = status
	}
	if h.deps.Hub != nil {
		body["stream_clients"] = h.deps.Hub.ClientCount()
		body["stream_latency"] = h.deps.Hub.Latency.Stats()
	}
	c.JSON(code, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, backtest.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, marketdata.ErrNoData), errors.Is(err, backtest.ErrNoBars):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
