package main

import (
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	persistlog "voxelquarry.ai/internal/persistence/log"
	"voxelquarry.ai/internal/sim/catalogs"
	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/tuning"
	"voxelquarry.ai/internal/sim/world"
)

func recordRun(t *testing.T, dir string) (*catalogs.Catalogs, world.WorldConfig, world.TickLogEntry) {
	t.Helper()
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	cfg := world.ConfigFromTuning("replay", tuning.Defaults())
	cfg.SnapshotEveryTicks = 0
	w, err := world.New(cfg, cats, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	tl := persistlog.NewTickLogger(dir)
	w.SetTickLogger(tl)

	pos := [3]int{0, 45, 0}
	pick := &item.Stack{ID: "GOLDEN_PICKAXE", Count: 1, Enchantments: map[string]int{item.Efficiency: 5}}
	w.StepOnce([]world.Command{
		{Kind: world.CmdPlace, Pos: pos, Speed: 5},
		{Kind: world.CmdInsert, Pos: pos, Side: "north", Item: pick},
		{Kind: world.CmdInsert, Pos: pos, Side: "up", Item: &item.Stack{ID: "COAL", Count: 2}},
	})
	var last world.TickLogEntry
	for i := 0; i < 15; i++ {
		tick, digest, _ := w.StepOnce(nil)
		last = world.TickLogEntry{Tick: tick, Digest: digest}
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return cats, cfg, last
}

func TestReplayVerifiesEveryTick(t *testing.T) {
	dir := t.TempDir()
	cats, cfg, last := recordRun(t, dir)

	w, err := world.New(cfg, cats, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	checked, err := replay(w, filepath.Join(dir, "events"), 0, 0, zap.NewNop())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != last.Tick+1 {
		t.Fatalf("checked %d ticks, want %d", checked, last.Tick+1)
	}
}

func TestReplayHonorsTickWindow(t *testing.T) {
	dir := t.TempDir()
	cats, cfg, _ := recordRun(t, dir)

	w, err := world.New(cfg, cats, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	checked, err := replay(w, filepath.Join(dir, "events"), 5, 9, zap.NewNop())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 5 {
		t.Fatalf("checked %d ticks, want 5", checked)
	}
	if w.CurrentTick() != 10 {
		t.Fatalf("stopped at tick %d, want 10", w.CurrentTick())
	}
}

func TestReplayDetectsDivergence(t *testing.T) {
	dir := t.TempDir()
	cats, cfg, _ := recordRun(t, dir)

	cfg.Seed++
	w, err := world.New(cfg, cats, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	_, err = replay(w, filepath.Join(dir, "events"), 0, 0, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "digest mismatch at tick 0") {
		t.Fatalf("expected digest mismatch, got %v", err)
	}
}
