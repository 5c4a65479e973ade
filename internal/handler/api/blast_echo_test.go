package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GammaPulse/internal/domain/models"
	"GammaPulse/internal/services/blast"
	"GammaPulse/internal/usecase"
	"GammaPulse/pkg/cache"
	xlogger "GammaPulse/pkg/logger"
)

type stubSnapshotStore struct {
	window []models.MarketSnapshot
}

func (s *stubSnapshotStore) Init(context.Context) error { return nil }
func (s *stubSnapshotStore) Store(context.Context, *models.MarketSnapshot) error {
	return nil
}
func (s *stubSnapshotStore) StoreBatch(context.Context, []*models.MarketSnapshot) error {
	return nil
}
func (s *stubSnapshotStore) LatestSnapshots(_ context.Context, _, _ string, n int) ([]models.MarketSnapshot, error) {
	if n > len(s.window) {
		n = len(s.window)
	}
	return s.window[:n], nil
}
func (s *stubSnapshotStore) Query(context.Context, string, time.Time, time.Time, int) ([]models.MarketSnapshot, error) {
	return s.window, nil
}
func (s *stubSnapshotStore) Health(context.Context) error { return nil }
func (s *stubSnapshotStore) Close() error                 { return nil }

type stubSignalStore struct{}

func (s *stubSignalStore) Init(context.Context) error                          { return nil }
func (s *stubSignalStore) Store(context.Context, *models.GammaBlastSignal) error { return nil }
func (s *stubSignalStore) Latest(context.Context, string, string) (*models.GammaBlastSignal, error) {
	return nil, nil
}
func (s *stubSignalStore) TopBlasts(context.Context, int) ([]models.GammaBlastSignal, error) {
	return nil, nil
}
func (s *stubSignalStore) Health(context.Context) error { return nil }
func (s *stubSignalStore) Close() error                 { return nil }

type stubMetrics struct{}

func (stubMetrics) RecordSnapshotStored(string, string)    {}
func (stubMetrics) RecordError(string)                     {}
func (stubMetrics) RecordSpotPrice(string, float64)        {}
func (stubMetrics) RecordBlastProbability(string, float64) {}
func (stubMetrics) RecordSignal(string, string)            {}
func (stubMetrics) RecordLatency(string, float64)          {}

type stubFetcher struct{}

func (stubFetcher) NearestExpiry(context.Context, string) (string, error) {
	return "2025-03-13", nil
}
func (stubFetcher) OptionChain(context.Context, string, string, string) (models.OptionChain, error) {
	return models.OptionChain{}, nil
}

func testWindow(n int) []models.MarketSnapshot {
	base := time.Date(2025, 3, 12, 10, 30, 0, 0, time.UTC)
	out := make([]models.MarketSnapshot, n)
	for i := range out {
		out[i] = models.MarketSnapshot{
			Timestamp: base.Add(-time.Duration(i) * 3 * time.Minute),
			Symbol:    "NIFTY",
			Expiry:    "2025-03-13",
			ATMIV:     20,
			SpotPrice: 20000,
			ATMStrike: 20300,
			CEOITotal: 100000,
			PEOITotal: 100000,
		}
	}
	return out
}

func newTestHandler(t *testing.T, window []models.MarketSnapshot) (*BlastEchoHandler, *echo.Echo) {
	t.Helper()
	lgr, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	scanner := usecase.NewBlastScanner(
		&stubSnapshotStore{window: window}, &stubSignalStore{},
		blast.NewDetector(), cache.NewMemoryCache(), stubMetrics{},
	)
	collector := usecase.NewChainCollector(
		stubFetcher{}, nil, nil, cache.NewMemoryCache(), stubMetrics{},
		[]usecase.SymbolConfig{{Name: "NIFTY", InstrumentKey: "NSE_INDEX|Nifty 50"}},
		time.Minute,
	)

	h := NewBlastEchoHandler(lgr, scanner, collector)
	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

func TestBlastEndpoint(t *testing.T) {
	_, e := newTestHandler(t, testWindow(21))

	req := httptest.NewRequest(http.MethodGet, "/api/blast?symbol=NIFTY", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status int `json:"status"`
		Data   struct {
			Symbol      string  `json:"symbol"`
			Expiry      string  `json:"expiry"`
			Probability float64 `json:"probability"`
			Direction   string  `json:"direction"`
			Confidence  string  `json:"confidence"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusOK, body.Status)
	assert.Equal(t, "NIFTY", body.Data.Symbol)
	assert.Equal(t, "2025-03-13", body.Data.Expiry, "expiry resolved via the collector")
	assert.NotEmpty(t, body.Data.Direction)
	assert.NotEmpty(t, body.Data.Confidence)
}

func TestBlastEndpointMissingSymbol(t *testing.T) {
	_, e := newTestHandler(t, testWindow(21))

	req := httptest.NewRequest(http.MethodGet, "/api/blast", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code) // envelope carries the real status
	var body struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Status)
}

func TestBlastEndpointNoSnapshots(t *testing.T) {
	_, e := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/blast?symbol=NIFTY&fresh=true", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, body.Status)
}

func TestSnapshotsEndpoint(t *testing.T) {
	_, e := newTestHandler(t, testWindow(10))

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots?symbol=NIFTY&n=5", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Rows  []models.MarketSnapshot `json:"rows"`
			Total int64                   `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data.Rows, 5)
	assert.Equal(t, int64(5), body.Data.Total)
}

func TestHistoryEndpoint(t *testing.T) {
	_, e := newTestHandler(t, testWindow(8))

	req := httptest.NewRequest(http.MethodGet, "/api/history?symbol=NIFTY&from=2025-03-12T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Rows []models.MarketSnapshot `json:"rows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data.Rows, 8)
}

func TestHistoryEndpointMissingSymbol(t *testing.T) {
	_, e := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Status)
}

func TestSymbolsEndpoint(t *testing.T) {
	_, e := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/symbols", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Symbols   []string `json:"symbols"`
			Connected bool     `json:"connected"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"NIFTY"}, body.Data.Symbols)
	assert.True(t, body.Data.Connected)
}
