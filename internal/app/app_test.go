package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/specialistvlad/vxgraph/internal/testutil"
	"github.com/specialistvlad/vxgraph/internal/vx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Log:        LogConfig{Level: "debug", Format: "text"},
		Workers:    2,
		Iterations: 1,
		Events:     EventsConfig{Namespace: "/"},
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "value", entry["key"])
}

func TestRun_Demo(t *testing.T) {
	buf := &testutil.SafeBuffer{}
	cfg := testConfig()
	cfg.Iterations = 3
	a := NewApp(buf, cfg)

	require.NoError(t, a.Run(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "Graph verified.")
	assert.Contains(t, out, "Processed graph successfully.")
	assert.Contains(t, out, "Graph torn down.")
	assert.Contains(t, out, "Controller stopped.")

	snap := a.Snapshot()
	assert.Equal(t, 3, snap.Runs)
	assert.Equal(t, vx.Success.String(), snap.Status)
	assert.Equal(t, uint64(3), snap.Perf[DemoGraph].Num)
}

func TestRun_GraphFile(t *testing.T) {
	buf := &testutil.SafeBuffer{}
	cfg := testConfig()
	cfg.Graph = "../graphfile/testdata/chain"
	cfg.Iterations = 2
	a := NewApp(buf, cfg)

	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, buf.String(), "Graph processed.")
	snap := a.Snapshot()
	assert.Equal(t, 2, snap.Runs)
	assert.Equal(t, uint64(2), snap.Perf["chain"].Num)
}

func TestRun_GraphFileMissing(t *testing.T) {
	cfg := testConfig()
	cfg.Graph = t.TempDir() + "/absent.hcl"
	a := NewApp(&bytes.Buffer{}, cfg)

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error accessing path")
	assert.Zero(t, a.Snapshot().Runs)
}

func TestRun_StatusServer(t *testing.T) {
	cfg := testConfig()
	a := NewApp(&bytes.Buffer{}, cfg)

	addr, err := a.startStatusServer(a.Context(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.closeStatusServer(a.Context())) })

	_, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	resp, err := http.Get("http://127.0.0.1:" + port + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusServer_CloseRightAfterStart(t *testing.T) {
	a := NewApp(&bytes.Buffer{}, testConfig())

	for i := 0; i < 50; i++ {
		addr, err := a.startStatusServer(a.Context(), 0)
		require.NoError(t, err)
		require.NotEmpty(t, addr)
		require.NoError(t, a.closeStatusServer(a.Context()))
		assert.Nil(t, a.httpServer)
	}
}

func TestRun_DemoWithStatusServer(t *testing.T) {
	cfg := testConfig()
	cfg.Status.Port = freePort(t)
	a := NewApp(&testutil.SafeBuffer{}, cfg)

	require.NoError(t, a.Run(context.Background()))
	assert.Nil(t, a.httpServer)
	assert.Equal(t, 1, a.Snapshot().Runs)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestRouter_Perf(t *testing.T) {
	a := NewApp(&bytes.Buffer{}, testConfig())
	a.record("xyz", vx.Success, vx.Perf{Num: 4})
	h := a.Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/perf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.Runs)
	assert.Equal(t, uint64(4), snap.Perf["xyz"].Num)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/perf/xyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var p vx.Perf
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, uint64(4), p.Num)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/perf/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCloseStatusServer_NotRunning(t *testing.T) {
	a := NewApp(&bytes.Buffer{}, testConfig())
	assert.NoError(t, a.closeStatusServer(a.Context()))
}
