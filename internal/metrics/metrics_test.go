package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cabewaldrop/bplusviz/internal/algorithm"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	m := New()

	m.ObserveOperation("insert", algorithm.Stats{Splits: 2, RootSplits: 1, Commands: 40}, nil)
	m.ObserveOperation("delete", algorithm.Stats{Merges: 1, Collapses: 1}, nil)
	m.ObserveOperation("delete", algorithm.Stats{Merges: 5}, errors.New("key not found"))
	m.ObserveOperation("find", algorithm.Stats{}, nil)

	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("insert", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("delete", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("find", "ok")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.repairs.WithLabelValues("split")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.repairs.WithLabelValues("merge")), "failed operations do no work")
	require.Equal(t, 1.0, testutil.ToFloat64(m.repairs.WithLabelValues("collapse")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.SessionsChanged(3)
	m.ObserveRequest(http.MethodGet, "/api/trees", http.StatusOK, 5*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Contains(t, string(body), "bplusviz_session_active 3")
	require.Contains(t, string(body), `bplusviz_http_requests_total{method="GET",route="/api/trees",status="200"} 1`)
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.SessionsChanged(1)
	require.Equal(t, 0.0, testutil.ToFloat64(b.sessions))
}
