package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/greencoop/weather-etl/internal/adapter/http"
	"github.com/greencoop/weather-etl/internal/quality"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockQuality struct {
	report *quality.Report
	err    error
}

func (m *mockQuality) Run(context.Context) (*quality.Report, error) { return m.report, m.err }

func sampleReport() *quality.Report {
	return &quality.Report{
		Timestamp:   "2024-10-05T12:00:00Z",
		Collections: quality.Collections{ObservationsTotal: 3, StationsTotal: 1},
		Alerts:      []quality.Alert{{Check: quality.CheckDuplicates, Message: "High duplicate rate: 1.0%"}},
	}
}

func newTestServer(readyErr error, q *mockQuality) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, q, slog.Default())
}

func serve(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil, &mockQuality{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name     string
		readyErr error
		want     int
	}{
		{"ready", nil, http.StatusOK},
		{"store unreachable", errors.New("server selection timeout"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(tt.readyErr, &mockQuality{}), "/readyz")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil, &mockQuality{}), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestQualityJSON(t *testing.T) {
	rec := serve(newTestServer(nil, &mockQuality{report: sampleReport()}), "/quality")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body quality.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body.Collections.ObservationsTotal)
	require.Len(t, body.Alerts, 1)
	assert.Equal(t, quality.CheckDuplicates, body.Alerts[0].Check)
}

func TestQualityText(t *testing.T) {
	rec := serve(newTestServer(nil, &mockQuality{report: sampleReport()}), "/quality?format=text")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "MONGODB DATA QUALITY REPORT")
	assert.Contains(t, rec.Body.String(), "High duplicate rate: 1.0%")
}

func TestQualityError(t *testing.T) {
	rec := serve(newTestServer(nil, &mockQuality{err: errors.New("count observations: timeout")}), "/quality")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "timeout")
}

func TestUnknownMethod(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(nil, &mockQuality{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quality", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
