package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelquarry.ai/internal/sim/world"
)

type fakeWorld struct {
	devices []world.DeviceView
	snapErr error
	snaps   int
}

func (f *fakeWorld) ID() string          { return "w1" }
func (f *fakeWorld) CurrentTick() uint64 { return 12 }
func (f *fakeWorld) Metrics() world.Metrics {
	return world.Metrics{Tick: 11, Devices: len(f.devices), Excavations: 40, Voided: 3}
}

func (f *fakeWorld) RequestState(ctx context.Context) ([]world.DeviceView, uint64, error) {
	return f.devices, 11, nil
}

func (f *fakeWorld) RequestSnapshot(ctx context.Context) (uint64, error) {
	f.snaps++
	return 11, f.snapErr
}

func do(h http.HandlerFunc, method, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestStateIsLoopbackOnly(t *testing.T) {
	fw := &fakeWorld{devices: []world.DeviceView{{Pos: [3]int{1, 2, 3}, Status: "Mining", Depth: 4}}}
	s := NewServer(fw, nil)

	rec := do(s.StateHandler(), http.MethodGet, "203.0.113.9:5000")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(s.StateHandler(), http.MethodPost, "127.0.0.1:5000")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(s.StateHandler(), http.MethodGet, "[::1]:5000")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "w1", resp.WorldID)
	assert.Equal(t, uint64(11), resp.Tick)
	require.Len(t, resp.Devices, 1)
	assert.Equal(t, 4, resp.Devices[0].Depth)
}

func TestSnapshotReportsSinkErrors(t *testing.T) {
	fw := &fakeWorld{}
	s := NewServer(fw, nil)

	rec := do(s.SnapshotHandler(), http.MethodGet, "127.0.0.1:1")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(s.SnapshotHandler(), http.MethodPost, "127.0.0.1:1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	fw.snapErr = errors.New("snapshot sink backpressure")
	rec = do(s.SnapshotHandler(), http.MethodPost, "127.0.0.1:1")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "backpressure")
	assert.Equal(t, 2, fw.snaps)
}

func TestMetricsExposition(t *testing.T) {
	s := NewServer(&fakeWorld{}, nil)
	rec := do(s.MetricsHandler(), http.MethodGet, "198.51.100.1:80")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `voxelquarry_world_tick{world="w1"} 11`)
	assert.Contains(t, body, `voxelquarry_excavations_total{world="w1"} 40`)
	assert.Contains(t, body, "# TYPE voxelquarry_voided_total counter")
	assert.True(t, strings.HasSuffix(body, "\n"))
}

func TestRegisterMountsEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	NewServer(&fakeWorld{}, nil).Register(mux)
	for _, p := range []string{"/admin/v1/state", "/admin/v1/snapshot"} {
		_, pattern := mux.Handler(httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, p, pattern)
	}
}
