package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meiran-labs/lessons-crawler/internal/metrics"
	"github.com/meiran-labs/lessons-crawler/internal/reconcile"
)

type fixedStatus struct {
	status reconcile.Status
}

func (f fixedStatus) Status() reconcile.Status { return f.status }

func newTestServer(t *testing.T, status reconcile.Status) *httptest.Server {
	t.Helper()
	metrics.Init()
	srv := NewServer(fixedStatus{status: status}, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, reconcile.Status{})

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		resp.Body.Close()
	}
}

func TestRunStatusEndpoint(t *testing.T) {
	ts := newTestServer(t, reconcile.Status{
		RunID:        "run-1",
		State:        reconcile.StatePerPageScan,
		TotalPages:   12,
		PagesScanned: 4,
		LessonsAdded: 9,
	})

	resp, err := http.Get(ts.URL + "/v1/run")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got reconcile.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, "run-1", got.RunID)
	require.Equal(t, reconcile.StatePerPageScan, got.State)
	require.Equal(t, 12, got.TotalPages)
	require.Equal(t, 4, got.PagesScanned)
	require.Equal(t, 9, got.LessonsAdded)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, reconcile.Status{})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
