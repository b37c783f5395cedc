package world

import (
	"time"

	"voxelquarry.ai/internal/sim/quarry"
)

// Metrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type Metrics struct {
	Tick uint64 `json:"tick"`

	Devices      int `json:"devices"`
	Active       int `json:"active"`
	LoadedChunks int `json:"loaded_chunks"`
	ForcedChunks int `json:"forced_chunks"`
	GroundStacks int `json:"ground_stacks"`

	Excavations uint64 `json:"excavations"`
	Dropped     uint64 `json:"dropped"`
	Voided      uint64 `json:"voided"`
	Refuels     uint64 `json:"refuels"`
	ToolsBroken uint64 `json:"tools_broken"`

	InboxDepth int     `json:"inbox_depth"`
	StepMS     float64 `json:"step_ms"`
	Digest     string  `json:"digest"`
}

// runStats accumulates counters over the world's lifetime. Loop goroutine only.
type runStats struct {
	digest  string
	stepDur time.Duration

	excavations uint64
	dropped     int
	voided      uint64
	refuels     uint64
	toolsBroken uint64
}

func (s *runStats) record(res quarry.Result) {
	if res.Refueled {
		s.refuels++
	}
	if res.ToolBroke {
		s.toolsBroken++
	}
	for _, st := range res.Voided {
		s.voided += uint64(st.Count)
	}
}

func (w *World) publishMetrics(tick uint64) {
	active := 0
	for pos := range w.devices {
		if st, ok := w.lastStatus[pos]; ok && st.Active() {
			active++
		}
	}
	groundStacks := 0
	for _, stacks := range w.ground {
		groundStacks += len(stacks)
	}
	w.metrics.Store(&Metrics{
		Tick:         tick,
		Devices:      len(w.devices),
		Active:       active,
		LoadedChunks: len(w.chunks.Chunks),
		ForcedChunks: len(w.forced),
		GroundStacks: groundStacks,
		Excavations:  w.stats.excavations,
		Dropped:      uint64(w.stats.dropped),
		Voided:       w.stats.voided,
		Refuels:      w.stats.refuels,
		ToolsBroken:  w.stats.toolsBroken,
		InboxDepth:   len(w.inbox),
		StepMS:       float64(w.stats.stepDur.Microseconds()) / 1000,
		Digest:       w.stats.digest,
	})
}

func (w *World) Metrics() Metrics {
	if w == nil {
		return Metrics{}
	}
	m := w.metrics.Load()
	if m == nil {
		return Metrics{}
	}
	return *m
}
