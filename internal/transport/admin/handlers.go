// Package admin serves the local-only HTTP surface of a running world:
// device state, on-demand snapshots and Prometheus metrics.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxelquarry.ai/internal/sim/world"
)

// World is the slice of *world.World the handlers use.
type World interface {
	ID() string
	CurrentTick() uint64
	Metrics() world.Metrics
	RequestState(ctx context.Context) ([]world.DeviceView, uint64, error)
	RequestSnapshot(ctx context.Context) (uint64, error)
}

type Server struct {
	world World
	log   *zap.Logger
}

func NewServer(w World, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{world: w, log: logger}
}

// Register mounts the admin endpoints on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/v1/state", s.StateHandler())
	mux.HandleFunc("/admin/v1/snapshot", s.SnapshotHandler())
}

type StateResponse struct {
	WorldID string             `json:"world_id"`
	Tick    uint64             `json:"tick"`
	Metrics world.Metrics      `json:"metrics"`
	Devices []world.DeviceView `json:"devices"`
}

func (s *Server) StateHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		devices, tick, err := s.world.RequestState(ctx)
		if err != nil {
			writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		if devices == nil {
			devices = []world.DeviceView{}
		}
		writeJSON(rw, http.StatusOK, StateResponse{
			WorldID: s.world.ID(),
			Tick:    tick,
			Metrics: s.world.Metrics(),
			Devices: devices,
		})
	}
}

func (s *Server) SnapshotHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		tick, err := s.world.RequestSnapshot(ctx)
		if err != nil {
			s.log.Warn("admin snapshot", zap.Uint64("tick", tick), zap.Error(err))
			writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "tick": tick, "error": err.Error()})
			return
		}
		s.log.Info("admin snapshot requested", zap.Uint64("tick", tick))
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": tick})
	}
}

// MetricsHandler writes the world metrics in Prometheus text exposition format.
func (s *Server) MetricsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := s.world.Metrics()
		id := s.world.ID()
		tick := s.world.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		gauge := func(name, help string, v any) {
			fmt.Fprintf(rw, "# HELP voxelquarry_%s %s\n", name, help)
			fmt.Fprintf(rw, "# TYPE voxelquarry_%s gauge\n", name)
			fmt.Fprintf(rw, "voxelquarry_%s{world=%q} %v\n", name, id, v)
		}
		counter := func(name, help string, v uint64) {
			fmt.Fprintf(rw, "# HELP voxelquarry_%s %s\n", name, help)
			fmt.Fprintf(rw, "# TYPE voxelquarry_%s counter\n", name)
			fmt.Fprintf(rw, "voxelquarry_%s{world=%q} %d\n", name, id, v)
		}

		gauge("world_tick", "Current world tick.", tick)
		gauge("devices", "Placed quarry devices.", m.Devices)
		gauge("devices_active", "Devices that excavated or progressed last tick.", m.Active)
		gauge("loaded_chunks", "Loaded chunk count.", m.LoadedChunks)
		gauge("forced_chunks", "Chunks held loaded by reservations.", m.ForcedChunks)
		gauge("ground_stacks", "Item stacks lying on the ground.", m.GroundStacks)
		gauge("inbox_depth", "Commands waiting for the next tick.", m.InboxDepth)
		fmt.Fprintf(rw, "# HELP voxelquarry_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE voxelquarry_step_ms gauge\n")
		fmt.Fprintf(rw, "voxelquarry_step_ms{world=%q} %.3f\n", id, m.StepMS)

		counter("excavations_total", "Blocks excavated.", m.Excavations)
		counter("dropped_total", "Overflow stacks dropped to the ground.", m.Dropped)
		counter("voided_total", "Items destroyed by yield filters.", m.Voided)
		counter("refuels_total", "Fuel items consumed.", m.Refuels)
		counter("tools_broken_total", "Tools that broke while mining.", m.ToolsBroken)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
