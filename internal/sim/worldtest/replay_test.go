package worldtest

import (
	"path/filepath"
	"testing"

	persistlog "voxelquarry.ai/internal/persistence/log"
	"voxelquarry.ai/internal/persistence/snapshot"
	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/quarry"
	"voxelquarry.ai/internal/sim/quarry/filter"
	world "voxelquarry.ai/internal/sim/world"
)

var (
	posA = mathx.Vec3i{X: 0, Y: 45, Z: 0}
	posB = mathx.Vec3i{X: 40, Y: 45, Z: -3}
)

func pick(ench map[string]int) item.Stack {
	return item.Stack{ID: "GOLDEN_PICKAXE", Count: 1, Enchantments: ench}
}

func fastPick() item.Stack { return pick(map[string]int{item.Efficiency: 5}) }

func TestReplayFromTickLogMatchesDigests(t *testing.T) {
	dir := t.TempDir()
	cfg, cats := LoadConfig(t, "replay")

	h := NewHarness(t, cfg, cats)
	tl := persistlog.NewTickLogger(dir)
	h.W.SetTickLogger(tl)

	h.Arm(posA, pick(map[string]int{item.Efficiency: 5, item.Fortune: 2, item.Unbreaking: 1}), item.Of("COAL", 5), 1, 5)
	h.Arm(posB, fastPick(), item.Of("LAVA_BUCKET", 1), 0, 3)
	h.StepFor(20)
	slot := quarry.FilterStart
	h.Step(
		world.Command{Kind: world.CmdSetSlot, Pos: posA.ToArray(), Slot: &slot, Item: &item.Stack{ID: "DIRT", Count: 1}},
		world.Command{Kind: world.CmdSetProperty, Pos: posA.ToArray(), Index: quarry.PropFilterMode, Value: int(filter.DenyList)},
	)
	h.StepFor(20)
	h.Step(world.Command{Kind: world.CmdExtract, Pos: posA.ToArray(), Side: "down", Count: 64})
	h.Step(world.Command{Kind: world.CmdSetPower, Pos: posB.ToArray(), Powered: true})
	h.StepFor(5)
	if err := tl.Close(); err != nil {
		t.Fatalf("close tick log: %v", err)
	}

	replay := NewHarness(t, cfg, cats)
	n := 0
	err := persistlog.ReadTicks(dir, func(e world.TickLogEntry) error {
		tick, digest, _ := replay.W.StepOnce(e.Commands)
		if tick != e.Tick {
			t.Fatalf("replay tick %d, log tick %d", tick, e.Tick)
		}
		if digest != e.Digest {
			t.Fatalf("tick %d: replay digest %s, logged %s", tick, digest, e.Digest)
		}
		n++
		return nil
	})
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if n != len(h.Digests) {
		t.Fatalf("replayed %d ticks, want %d", n, len(h.Digests))
	}
}

func TestSnapshotFileResumesIdentically(t *testing.T) {
	cfg, cats := LoadConfig(t, "resume")
	h := NewHarness(t, cfg, cats)
	h.Arm(posA, fastPick(), item.Of("COAL", 3), 2, 5)
	h.StepFor(12)
	h.Step(world.Command{Kind: world.CmdRemove, Pos: posA.ToArray()})
	h.Arm(posB, fastPick(), item.Of("COAL", 1), 0, 5)
	h.StepFor(3)

	tick := h.W.CurrentTick() - 1
	path := filepath.Join(t.TempDir(), "snapshots", "resume.snap.zst")
	if err := snapshot.WriteSnapshot(path, h.W.ExportSnapshot(tick)); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(snap.Ground) == 0 {
		t.Fatalf("expected spilled ground stacks in snapshot")
	}

	w2, err := world.New(cfg, cats, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	if err := w2.ImportSnapshot(snap); err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	resumed := NewHarnessWithWorld(t, w2, cats)

	for i := 0; i < 15; i++ {
		h.Step()
		resumed.Step()
		if h.LastDigest != resumed.LastDigest {
			t.Fatalf("step %d: digests diverge", i)
		}
	}
	if got, want := resumed.Device(posB).Depth, h.Device(posB).Depth; got != want {
		t.Fatalf("depth: got %d want %d", got, want)
	}
}

func TestDenyListVoidsMatchingYields(t *testing.T) {
	cfg, cats := LoadConfig(t, "filter")
	h := NewHarness(t, cfg, cats)
	slot := quarry.FilterStart
	h.MustStep(
		world.Command{Kind: world.CmdPlace, Pos: posA.ToArray(), Speed: 5},
		world.Command{Kind: world.CmdSetSlot, Pos: posA.ToArray(), Slot: &slot, Item: &item.Stack{ID: "DIRT", Count: 5}},
		world.Command{Kind: world.CmdCycleFilter, Pos: posA.ToArray()},
		world.Command{Kind: world.CmdCycleFilter, Pos: posA.ToArray()},
	)
	if got := h.Device(posA).FilterMode; got != "Blacklist" {
		t.Fatalf("filter mode: %s", got)
	}
	if got := h.Device(posA).Slots[0].Item.Count; got != 1 {
		t.Fatalf("filter slot count: got %d want 1", got)
	}

	tool := fastPick()
	h.MustStep(
		world.Command{Kind: world.CmdInsert, Pos: posA.ToArray(), Side: "east", Item: &tool},
		world.Command{Kind: world.CmdInsert, Pos: posA.ToArray(), Side: "up", Item: &item.Stack{ID: "COAL", Count: 2}},
	)
	h.StepFor(9)

	// The first layers under the surface are grass and dirt only.
	if got := h.W.Metrics().Voided; got != 10 {
		t.Fatalf("voided: got %d want 10", got)
	}
	if got := h.OutputCount(posA, "DIRT"); got != 0 {
		t.Fatalf("dirt kept: %d", got)
	}
}

func TestLavaBucketResidueLeavesFromBelow(t *testing.T) {
	cfg, cats := LoadConfig(t, "lava")
	h := NewHarness(t, cfg, cats)
	h.Arm(posA, fastPick(), item.Of("LAVA_BUCKET", 1), 0, 5)

	v := h.Device(posA)
	if v.Properties[quarry.PropBurnBudget] != 99 || v.Properties[quarry.PropLastCharge] != 100 {
		t.Fatalf("properties after first charge: %v", v.Properties)
	}

	fuelSlot := quarry.FuelSlot
	res := h.Step(world.Command{Kind: world.CmdExtract, Pos: posA.ToArray(), Side: "up", Slot: &fuelSlot, Count: 1})
	if res[0].Accepted {
		t.Fatalf("bucket left through the top")
	}
	res = h.Step(world.Command{Kind: world.CmdExtract, Pos: posA.ToArray(), Side: "down", Slot: &fuelSlot, Count: 1})
	if !res[0].Accepted || res[0].Item == nil || res[0].Item.ID != "BUCKET" {
		t.Fatalf("extract bucket: %+v", res[0])
	}
}
