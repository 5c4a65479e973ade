package api

import (
	"encoding/json"
	"errors"
	"time"

	models "GammaPulse/internal/domain/models"
	icache "GammaPulse/internal/service/cache"
	"GammaPulse/internal/service/metrics"
	"GammaPulse/internal/service/ratelimit"
	"GammaPulse/internal/usecase"
	xhttp "GammaPulse/pkg/http"
	xlogger "GammaPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BlastEchoHandler exposes the gamma blast API.
type BlastEchoHandler struct {
	logger    *xlogger.Logger
	scanner   *usecase.BlastScanner
	collector *usecase.ChainCollector
	rl        *ratelimit.Limiter
	bytes     icache.BytesCache
}

func NewBlastEchoHandler(logger *xlogger.Logger, scanner *usecase.BlastScanner, collector *usecase.ChainCollector) *BlastEchoHandler {
	metrics.Register()
	return &BlastEchoHandler{
		logger:    logger,
		scanner:   scanner,
		collector: collector,
		rl:        ratelimit.New(),
	}
}

// SetBytesCache enables response-level caching for list endpoints.
func (h *BlastEchoHandler) SetBytesCache(c icache.BytesCache) { h.bytes = c }

func (h *BlastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/blast", h.Blast)
	g.GET("/blast/scan", h.Scan)
	g.GET("/snapshots", h.Snapshots)
	g.GET("/history", h.History)
	g.GET("/top", h.TopBlasts)
	g.GET("/symbols", h.Symbols)
}

// Blast serves the current signal for one chain, cache-first.
func (h *BlastEchoHandler) Blast(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("blast").Observe(time.Since(start).Seconds()) }()

	req := &models.BlastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":blast", 10, 5) {
		return xhttp.DataResponse(c, 429, "rate limited")
	}

	expiry, err := h.expiry(c, req.Symbol, req.Expiry)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	sig, err := h.scanner.Signal(c.Request().Context(), req.Symbol, expiry, req.Fresh)
	if err != nil {
		return h.signalError(c, "blast", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, sig)
}

// Scan forces a fresh detector run for one chain.
func (h *BlastEchoHandler) Scan(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("scan").Observe(time.Since(start).Seconds()) }()

	req := &models.BlastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":scan", 3, 1) {
		return xhttp.DataResponse(c, 429, "rate limited")
	}

	expiry, err := h.expiry(c, req.Symbol, req.Expiry)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	sig, err := h.scanner.Scan(c.Request().Context(), req.Symbol, expiry)
	if err != nil {
		return h.signalError(c, "scan", err)
	}
	return xhttp.SuccessResponse(c, sig)
}

// Snapshots serves the recent snapshot window for dashboards.
func (h *BlastEchoHandler) Snapshots(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("snapshots").Observe(time.Since(start).Seconds()) }()

	req := &models.SnapshotsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	expiry, err := h.expiry(c, req.Symbol, req.Expiry)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	cacheKey := "snapshots:" + req.Symbol + ":" + expiry
	if cached, ok := h.cachedList(cacheKey); ok {
		return xhttp.SuccessResponse(c, cached)
	}

	rows, err := h.scanner.Snapshots(c.Request().Context(), req.Symbol, expiry, req.N)
	if err != nil {
		return h.signalError(c, "snapshots", err)
	}
	h.storeList(cacheKey, rows, int64(len(rows)), 30*time.Second)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// History serves snapshots over an arbitrary time range. The range defaults
// to the last 24 hours.
func (h *BlastEchoHandler) History(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("history").Observe(time.Since(start).Seconds()) }()

	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol is required")
	}
	now := time.Now()
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), now.Add(-24*time.Hour))
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), now)
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 500)

	rows, err := h.scanner.History(c.Request().Context(), symbol, from, to, limit)
	if err != nil {
		return h.signalError(c, "history", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// TopBlasts serves today's highest-probability signals.
func (h *BlastEchoHandler) TopBlasts(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("top").Observe(time.Since(start).Seconds()) }()

	req := &models.TopBlastsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.scanner.TopBlasts(c.Request().Context(), req.Limit)
	if err != nil {
		return h.signalError(c, "top", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Symbols lists the monitored instruments and feed state.
func (h *BlastEchoHandler) Symbols(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbols":   h.collector.Symbols(),
		"connected": h.collector.IsConnected(),
	})
}

// expiry falls back to the collector's resolved expiry when the request
// omits one.
func (h *BlastEchoHandler) expiry(c echo.Context, symbol, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	return h.collector.ExpiryFor(c.Request().Context(), symbol)
}

func (h *BlastEchoHandler) signalError(c echo.Context, endpoint string, err error) error {
	if errors.Is(err, usecase.ErrNoSnapshots) {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	metrics.APIErrors.WithLabelValues(endpoint).Inc()
	h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

func (h *BlastEchoHandler) cachedList(key string) (json.RawMessage, bool) {
	if h.bytes == nil {
		return nil, false
	}
	b, ok, err := h.bytes.GetBytes(key)
	if err != nil || !ok {
		return nil, false
	}
	return json.RawMessage(b), true
}

func (h *BlastEchoHandler) storeList(key string, rows interface{}, total int64, ttl time.Duration) {
	if h.bytes == nil {
		return
	}
	b, err := json.Marshal(&xhttp.ListDataResponse{Rows: rows, Total: total})
	if err != nil {
		return
	}
	if err := h.bytes.SetBytes(key, b, ttl); err != nil && h.logger != nil {
		h.logger.Warn("snapshots cache_set_error", xlogger.Error(err))
	}
}
