package world

import (
	"fmt"

	"go.uber.org/zap"

	"voxelquarry.ai/internal/persistence/snapshot"
	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/quarry"
	"voxelquarry.ai/internal/sim/world/terrain/store"
)

// ExportSnapshot captures the state after tick has been stepped. Must be
// called from the simulation goroutine.
func (w *World) ExportSnapshot(tick uint64) snapshot.SnapshotV1 {
	keys := w.chunks.LoadedChunkKeys()
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    tick,
		},
		Seed:               w.cfg.Seed,
		TickRate:           w.cfg.TickRateHz,
		Height:             w.cfg.Height,
		BottomY:            w.cfg.BottomY,
		SurfaceY:           w.cfg.SurfaceY,
		SnapshotEveryTicks: w.cfg.SnapshotEveryTicks,
		StackLimit:         w.cfg.StackLimit,
		Chunks:             store.ExportLoadedChunks(w.chunks.Chunks, keys),
	}
	for _, pos := range w.sortedDevicePositions() {
		snap.Devices = append(snap.Devices, w.devices[pos].Export())
	}
	for _, p := range sortedKeys(w.ground) {
		for _, st := range w.ground[p] {
			snap.Ground = append(snap.Ground, snapshot.GroundStackV1{Pos: p.ToArray(), Item: quarry.StackToV1(st)})
		}
	}
	for _, p := range sortedKeys(w.powered) {
		snap.Powered = append(snap.Powered, p.ToArray())
	}
	return snap
}

// ImportSnapshot replaces the world state. The world resumes at the tick
// after the snapshot's. Must not run alongside Run.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("import snapshot: unsupported version %d", snap.Header.Version)
	}

	cfg := w.cfg
	cfg.Seed = snap.Seed
	cfg.BottomY = snap.BottomY
	cfg.Height = snap.Height
	cfg.SurfaceY = snap.SurfaceY
	if snap.TickRate > 0 {
		cfg.TickRateHz = snap.TickRate
	}
	if snap.SnapshotEveryTicks > 0 {
		cfg.SnapshotEveryTicks = snap.SnapshotEveryTicks
	}
	if snap.StackLimit > 0 {
		cfg.StackLimit = snap.StackLimit
	}

	prev := w.cfg
	w.cfg = cfg
	gen, err := w.worldGen()
	if err != nil {
		w.cfg = prev
		return err
	}
	chunks, err := store.ImportChunks(gen, snap.Chunks)
	if err != nil {
		w.cfg = prev
		return fmt.Errorf("import snapshot: %w", err)
	}

	qcfg := w.qcfg
	qcfg.StackLimit = cfg.StackLimit

	devices := make(map[mathx.Vec3i]*quarry.Device, len(snap.Devices))
	forced := map[mathx.ChunkKey]int{}
	for _, dv := range snap.Devices {
		d := quarry.Import(qcfg, dv)
		if _, dup := devices[d.Pos()]; dup {
			w.cfg = prev
			return fmt.Errorf("import snapshot: duplicate device at %s", d.Pos())
		}
		devices[d.Pos()] = d
		if d.Reserved() {
			forced[mathx.ChunkOf(d.Pos())]++
		}
	}

	w.chunks = chunks
	w.qcfg = qcfg
	w.devices = devices
	w.forced = forced
	w.lastStatus = map[mathx.Vec3i]quarry.Status{}
	w.powered = map[mathx.Vec3i]bool{}
	for _, p := range snap.Powered {
		w.powered[mathx.FromArray(p)] = true
	}
	w.ground = map[mathx.Vec3i][]item.Stack{}
	for _, g := range snap.Ground {
		w.addGround(mathx.FromArray(g.Pos), quarry.StackFromV1(g.Item))
	}

	w.tick.Store(snap.Header.Tick + 1)
	w.stats.digest = w.stateDigest(snap.Header.Tick)
	w.publishMetrics(snap.Header.Tick)
	w.log.Info("snapshot imported",
		zap.Uint64("tick", snap.Header.Tick),
		zap.Int("chunks", len(snap.Chunks)),
		zap.Int("devices", len(devices)))
	return nil
}
