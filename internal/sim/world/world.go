// Package world is the reference host for quarry devices: a deterministic
// 3D block world with a single simulation goroutine.
package world

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"voxelquarry.ai/internal/persistence/snapshot"
	"voxelquarry.ai/internal/sim/catalogs"
	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/quarry"
	"voxelquarry.ai/internal/sim/world/terrain/store"
)

type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	qcfg     quarry.Config
	log      *zap.Logger

	chunks *store.ChunkStore

	air, quarryBlock uint16

	devices    map[mathx.Vec3i]*quarry.Device
	lastStatus map[mathx.Vec3i]quarry.Status
	powered    map[mathx.Vec3i]bool
	forced     map[mathx.ChunkKey]int
	ground     map[mathx.Vec3i][]item.Stack

	tick        atomic.Uint64
	rollCounter int

	inbox         chan commandReq
	admin         chan adminSnapshotReq
	stateReq      chan stateReq
	observerJoin  chan observerJoinReq
	observerLeave chan string
	stop          chan struct{}

	observers map[string]chan TickUpdate

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	stats   runStats
	metrics atomic.Pointer[Metrics]
}

type commandReq struct {
	Cmd  Command
	Resp chan CommandResult
}

func New(cfg WorldConfig, cats *catalogs.Catalogs, logger *zap.Logger) (*World, error) {
	if cats == nil {
		return nil, errors.New("world: nil catalogs")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	w := &World{
		cfg:           cfg,
		catalogs:      cats,
		log:           logger.With(zap.String("world", cfg.ID)),
		devices:       map[mathx.Vec3i]*quarry.Device{},
		lastStatus:    map[mathx.Vec3i]quarry.Status{},
		powered:       map[mathx.Vec3i]bool{},
		forced:        map[mathx.ChunkKey]int{},
		ground:        map[mathx.Vec3i][]item.Stack{},
		inbox:         make(chan commandReq, 1024),
		admin:         make(chan adminSnapshotReq, 16),
		stateReq:      make(chan stateReq, 16),
		observerJoin:  make(chan observerJoinReq, 64),
		observerLeave: make(chan string, 64),
		stop:          make(chan struct{}),
		observers:     map[string]chan TickUpdate{},
	}
	gen, err := w.worldGen()
	if err != nil {
		return nil, err
	}
	w.chunks = store.NewChunkStore(gen)
	w.air = gen.Air
	w.quarryBlock, _ = cats.BlockID("QUARRY")

	w.qcfg = quarry.Config{
		Upgrades:   cfg.Upgrades,
		Fuel:       cats.FuelTable(),
		Tools:      cats.ToolTable(),
		Items:      cats.Items.Registry,
		StackLimit: cfg.StackLimit,
	}
	if err := w.qcfg.Validate(); err != nil {
		return nil, fmt.Errorf("world: quarry config: %w", err)
	}
	w.publishMetrics(0)
	return w, nil
}

// worldGen resolves the palette ids the generator needs.
func (w *World) worldGen() (store.WorldGen, error) {
	var missing []string
	b := func(id string) uint16 {
		v, ok := w.catalogs.BlockID(id)
		if !ok {
			missing = append(missing, id)
		}
		return v
	}
	gen := store.WorldGen{
		Seed:                 w.cfg.Seed,
		BottomY:              w.cfg.BottomY,
		Height:               w.cfg.Height,
		SurfaceY:             w.cfg.SurfaceY,
		OreProbScalePermille: w.cfg.OreProbScalePermille,
		GravelPermille:       w.cfg.GravelPermille,
		Air:                  b("AIR"),
		Bedrock:              b("BEDROCK"),
		Stone:                b("STONE"),
		Dirt:                 b("DIRT"),
		Grass:                b("GRASS_BLOCK"),
		Gravel:               b("GRAVEL"),
		CoalOre:              b("COAL_ORE"),
		IronOre:              b("IRON_ORE"),
		CopperOre:            b("COPPER_ORE"),
		DiamondOre:           b("DIAMOND_ORE"),
	}
	b("QUARRY")
	if len(missing) > 0 {
		return gen, fmt.Errorf("world: missing block ids in palette: %v", missing)
	}
	return gen, nil
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) ID() string { return w.cfg.ID }

func (w *World) Config() WorldConfig { return w.cfg }

func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []commandReq
	var pendingAdmin []adminSnapshotReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.inbox:
			pending = append(pending, req)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case req := <-w.stateReq:
			w.handleStateReq(req)
		case req := <-w.observerJoin:
			w.observers[req.ID] = req.Out
		case id := <-w.observerLeave:
			delete(w.observers, id)
		case <-ticker.C:
			cmds := make([]Command, len(pending))
			for i, req := range pending {
				cmds[i] = req.Cmd
			}
			results := w.stepInternal(cmds)
			for i, req := range pending {
				if req.Resp == nil {
					continue
				}
				select {
				case req.Resp <- results[i]:
				default:
					// Caller gave up; don't block the sim loop.
				}
			}
			w.handleAdminSnapshotRequests(pendingAdmin)
			pending = pending[:0]
			pendingAdmin = pendingAdmin[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// Submit queues cmd for the next tick and waits for its result.
func (w *World) Submit(ctx context.Context, cmd Command) (CommandResult, error) {
	resp := make(chan CommandResult, 1)
	select {
	case w.inbox <- commandReq{Cmd: cmd, Resp: resp}:
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
	select {
	case r := <-resp:
		return r, nil
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
}

// StepOnce advances the world by a single tick using the same ordering semantics as the server.
// It is intended for deterministic replays and tests and must not run alongside Run.
func (w *World) StepOnce(cmds []Command) (tick uint64, digest string, results []CommandResult) {
	tick = w.tick.Load()
	results = w.stepInternal(cmds)
	return tick, w.lastDigest(), results
}

func (w *World) stepInternal(cmds []Command) []CommandResult {
	start := time.Now()
	tick := w.tick.Load()
	w.rollCounter = 0

	results := make([]CommandResult, len(cmds))
	for i, c := range cmds {
		results[i] = w.apply(tick, c)
	}

	for _, pos := range w.sortedDevicePositions() {
		d := w.devices[pos]
		res := d.Tick(w.view(tick, pos))
		w.lastStatus[pos] = res.Status
		w.stats.record(res)
	}

	digest := w.stateDigest(tick)
	w.stats.digest = digest

	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(TickLogEntry{Tick: tick, Commands: cmds, Digest: digest}); err != nil {
			w.log.Warn("tick log write failed", zap.Uint64("tick", tick), zap.Error(err))
		}
	}
	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 && tick > 0 && tick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		select {
		case w.snapshotSink <- w.ExportSnapshot(tick):
		default:
			w.log.Warn("snapshot sink backpressure", zap.Uint64("tick", tick))
		}
	}

	w.tick.Store(tick + 1)
	w.stats.stepDur = time.Since(start)
	w.publishMetrics(tick)
	w.publishObservers(tick, digest)
	return results
}

func (w *World) lastDigest() string { return w.stats.digest }

func (w *World) sortedDevicePositions() []mathx.Vec3i {
	out := make([]mathx.Vec3i, 0, len(w.devices))
	for p := range w.devices {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func (w *World) audit(e AuditEntry) {
	if w.auditLogger == nil {
		return
	}
	if err := w.auditLogger.WriteAudit(e); err != nil {
		w.log.Warn("audit write failed", zap.String("action", e.Action), zap.Error(err))
	}
}
