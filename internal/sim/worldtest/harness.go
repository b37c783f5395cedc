// Package worldtest drives a world through its exported API only, so
// integration tests can live outside the world package.
package worldtest

import (
	"testing"

	"voxelquarry.ai/internal/sim/catalogs"
	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/quarry"
	"voxelquarry.ai/internal/sim/tuning"
	world "voxelquarry.ai/internal/sim/world"
)

// ConfigDir is the repository configs directory relative to this package.
const ConfigDir = "../../../configs"

type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	// LastDigest is the digest of the most recent step.
	LastDigest string
	// Digests holds every step's digest keyed by tick.
	Digests map[uint64]string
}

// LoadConfig reads the repository catalogs and tuning file.
func LoadConfig(t *testing.T, id string) (world.WorldConfig, *catalogs.Catalogs) {
	t.Helper()
	cats, err := catalogs.Load(ConfigDir)
	if err != nil {
		t.Fatalf("catalogs.Load: %v", err)
	}
	tun, err := tuning.Load(ConfigDir + "/tuning.yaml")
	if err != nil {
		t.Fatalf("tuning.Load: %v", err)
	}
	return world.ConfigFromTuning(id, tun), cats
}

func NewHarness(t *testing.T, cfg world.WorldConfig, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	w, err := world.New(cfg, cats, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewHarnessWithWorld(t, w, cats)
}

// NewHarnessWithWorld wraps an existing world, e.g. one restored from a snapshot.
func NewHarnessWithWorld(t *testing.T, w *world.World, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	return &Harness{T: t, Cats: cats, W: w, Digests: map[uint64]string{}}
}

// Step advances one tick with cmds and returns their results.
func (h *Harness) Step(cmds ...world.Command) []world.CommandResult {
	h.T.Helper()
	tick, digest, res := h.W.StepOnce(cmds)
	h.LastDigest = digest
	h.Digests[tick] = digest
	return res
}

// StepFor advances n ticks without commands.
func (h *Harness) StepFor(n int) {
	h.T.Helper()
	for i := 0; i < n; i++ {
		h.Step()
	}
}

// MustStep is Step that fails the test on any rejected command.
func (h *Harness) MustStep(cmds ...world.Command) []world.CommandResult {
	h.T.Helper()
	res := h.Step(cmds...)
	for i, r := range res {
		if !r.Accepted {
			h.T.Fatalf("command %d (%s) rejected: %s", i, r.Kind, r.Message)
		}
	}
	return res
}

// Arm places a quarry at pos and loads it with tool and fuel.
func (h *Harness) Arm(pos mathx.Vec3i, tool item.Stack, fuel item.Stack, area, speed int) {
	h.T.Helper()
	p := pos.ToArray()
	h.MustStep(
		world.Command{Kind: world.CmdPlace, Pos: p, Area: area, Speed: speed},
		world.Command{Kind: world.CmdInsert, Pos: p, Side: "north", Item: &tool},
		world.Command{Kind: world.CmdInsert, Pos: p, Side: "up", Item: &fuel},
	)
}

// Device returns the device view at pos or fails the test.
func (h *Harness) Device(pos mathx.Vec3i) world.DeviceView {
	h.T.Helper()
	v, ok := h.W.DeviceAt(pos)
	if !ok {
		h.T.Fatalf("no device at %s", pos)
	}
	return v
}

// OutputCount sums the output slots of the device at pos for id.
func (h *Harness) OutputCount(pos mathx.Vec3i, id string) int {
	h.T.Helper()
	n := 0
	for _, s := range h.Device(pos).Slots {
		if s.Slot >= quarry.OutputStart && s.Slot < quarry.FilterStart && s.Item.ID == id {
			n += s.Item.Count
		}
	}
	return n
}
