package world

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"voxelquarry.ai/internal/sim/catalogs"
	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/quarry"
	"voxelquarry.ai/internal/sim/tuning"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	require.NoError(t, err)
	tun, err := tuning.Load("../../../configs/tuning.yaml")
	require.NoError(t, err)
	cfg := ConfigFromTuning("test", tun)
	cfg.SnapshotEveryTicks = 0
	w, err := New(cfg, cats, nil)
	require.NoError(t, err)
	return w
}

var origin = [3]int{0, 45, 0}

func fastPick() *item.Stack {
	return &item.Stack{ID: "GOLDEN_PICKAXE", Count: 1, Enchantments: map[string]int{item.Efficiency: 5}}
}

func armCommands(pos [3]int, coal int) []Command {
	return []Command{
		{ID: "place", Kind: CmdPlace, Pos: pos, Speed: 5},
		{ID: "tool", Kind: CmdInsert, Pos: pos, Side: "north", Item: fastPick()},
		{ID: "fuel", Kind: CmdInsert, Pos: pos, Side: "up", Item: &item.Stack{ID: "COAL", Count: coal}},
	}
}

func stepN(w *World, n int) string {
	var digest string
	for i := 0; i < n; i++ {
		_, digest, _ = w.StepOnce(nil)
	}
	return digest
}

func intp(v int) *int { return &v }

func TestPlaceRejectsOccupiedAndOutOfBounds(t *testing.T) {
	w := newTestWorld(t)
	_, _, res := w.StepOnce([]Command{
		{Kind: CmdPlace, Pos: origin},
		{Kind: CmdPlace, Pos: origin},
		{Kind: CmdPlace, Pos: [3]int{0, 500, 0}},
		{Kind: CmdPlace, Pos: [3]int{0, 0, 0}},
	})
	require.Len(t, res, 4)
	assert.True(t, res[0].Accepted)
	assert.ErrorIs(t, res[1].Err, ErrOccupied)
	assert.ErrorIs(t, res[2].Err, ErrOutOfBounds)
	assert.ErrorIs(t, res[3].Err, ErrOccupied)
	assert.NotEmpty(t, res[1].Message)

	assert.Equal(t, quarry.OtherDevice, w.classify(mathx.FromArray(origin)))
}

func TestCommandErrors(t *testing.T) {
	w := newTestWorld(t)
	_, _, res := w.StepOnce([]Command{
		{Kind: CmdPlace, Pos: origin},
		{Kind: "DANCE", Pos: origin},
		{Kind: CmdInsert, Pos: [3]int{9, 45, 9}, Side: "up", Item: &item.Stack{ID: "COAL", Count: 1}},
		{Kind: CmdInsert, Pos: origin, Side: "up", Item: &item.Stack{ID: "DIRT", Count: 1}},
		{Kind: CmdInsert, Pos: origin, Side: "sideways", Item: &item.Stack{ID: "COAL", Count: 1}},
		{Kind: CmdSetSlot, Pos: origin, Slot: intp(99)},
		{Kind: CmdExtract, Pos: origin, Side: "down"},
		{Kind: CmdSetProperty, Pos: origin, Index: quarry.PropBurnBudget, Value: 100},
	})
	assert.True(t, res[0].Accepted)
	assert.ErrorIs(t, res[1].Err, ErrUnknownKind)
	assert.ErrorIs(t, res[2].Err, ErrNoDevice)
	assert.ErrorIs(t, res[3].Err, ErrRejected)
	require.NotNil(t, res[3].Item)
	assert.Equal(t, "DIRT", res[3].Item.ID)
	assert.ErrorIs(t, res[4].Err, ErrBadCommand)
	assert.ErrorIs(t, res[5].Err, ErrBadSlot)
	assert.ErrorIs(t, res[6].Err, ErrRejected)
	assert.ErrorIs(t, res[7].Err, ErrRejected)
}

func TestQuarryMinesIntoOutputs(t *testing.T) {
	w := newTestWorld(t)
	_, _, res := w.StepOnce(armCommands(origin, 2))
	for _, r := range res {
		require.True(t, r.Accepted, "%s: %s", r.ID, r.Message)
	}
	stepN(w, 9)

	m := w.Metrics()
	assert.Equal(t, uint64(10), m.Excavations)
	assert.Equal(t, 1, m.Devices)
	assert.Equal(t, 1, m.Active)
	assert.Equal(t, 1, m.ForcedChunks)

	v, ok := w.DeviceAt(mathx.FromArray(origin))
	require.True(t, ok)
	assert.Equal(t, quarry.Mined.String(), v.Status)
	assert.True(t, v.Reserved)
	assert.Equal(t, 1, v.Properties[quarry.PropTicksPerUnit])

	outputs := 0
	for _, s := range v.Slots {
		if s.Slot >= quarry.OutputStart && s.Slot < quarry.FilterStart {
			outputs += s.Item.Count
		}
	}
	assert.GreaterOrEqual(t, outputs, 10)

	// Second coal was consumed; 16 charges minus 10 spent.
	assert.Equal(t, 6, v.Properties[quarry.PropBurnBudget])
	assert.True(t, w.ChunkForced(mathx.ChunkOf(mathx.FromArray(origin))))

	_, _, res = w.StepOnce([]Command{{Kind: CmdExtract, Pos: origin, Side: "down", Count: 64}})
	require.True(t, res[0].Accepted)
	require.NotNil(t, res[0].Item)
	assert.Positive(t, res[0].Item.Count)
}

func TestPowerPausesAndReleases(t *testing.T) {
	w := newTestWorld(t)
	w.StepOnce(armCommands(origin, 1))
	require.True(t, w.ChunkForced(mathx.ChunkOf(mathx.FromArray(origin))))

	w.StepOnce([]Command{{Kind: CmdSetPower, Pos: origin, Powered: true}})
	v, _ := w.DeviceAt(mathx.FromArray(origin))
	assert.Equal(t, quarry.Paused.String(), v.Status)
	assert.True(t, v.Powered)
	assert.False(t, v.Reserved)
	assert.False(t, w.ChunkForced(mathx.ChunkOf(mathx.FromArray(origin))))

	before := w.Metrics().Excavations
	stepN(w, 5)
	assert.Equal(t, before, w.Metrics().Excavations)

	w.StepOnce([]Command{{Kind: CmdSetPower, Pos: origin, Powered: false}})
	assert.Equal(t, before+1, w.Metrics().Excavations)
}

func TestForcedChunksAreReferenceCounted(t *testing.T) {
	w := newTestWorld(t)
	other := [3]int{3, 45, 3}
	cmds := append(armCommands(origin, 2), armCommands(other, 2)...)
	w.StepOnce(cmds)

	k := mathx.ChunkOf(mathx.FromArray(origin))
	require.Equal(t, k, mathx.ChunkOf(mathx.FromArray(other)))
	assert.Equal(t, 2, w.forced[k])

	w.StepOnce([]Command{{Kind: CmdRemove, Pos: other}})
	assert.Equal(t, 1, w.forced[k])
	assert.True(t, w.ChunkForced(k))

	w.StepOnce([]Command{{Kind: CmdToggleReservation, Pos: origin}})
	assert.False(t, w.ChunkForced(k))
}

func TestRemoveSpillsInventory(t *testing.T) {
	w := newTestWorld(t)
	w.StepOnce(armCommands(origin, 3))
	stepN(w, 4)

	_, _, res := w.StepOnce([]Command{{Kind: CmdRemove, Pos: origin}})
	require.True(t, res[0].Accepted)

	pos := mathx.FromArray(origin)
	_, ok := w.DeviceAt(pos)
	assert.False(t, ok)
	assert.Equal(t, quarry.Empty, w.classify(pos))
	assert.False(t, w.ChunkForced(mathx.ChunkOf(pos)))

	ids := map[string]bool{}
	for _, st := range w.ground[pos] {
		ids[st.ID] = true
	}
	assert.True(t, ids["GOLDEN_PICKAXE"])
	assert.True(t, ids["COAL"])
}

func TestDropsHonorSilkTouchAndFortune(t *testing.T) {
	w := newTestWorld(t)
	v := w.view(0, mathx.FromArray(origin))

	plain := item.Stack{ID: "IRON_PICKAXE", Count: 1}
	silk := item.Stack{ID: "IRON_PICKAXE", Count: 1, Enchantments: map[string]int{item.SilkTouch: 1}}
	lucky := item.Stack{ID: "IRON_PICKAXE", Count: 1, Enchantments: map[string]int{item.Fortune: 3}}

	assert.Equal(t, []item.Stack{item.Of("COBBLESTONE", 1)}, v.dropsFor("STONE", plain))
	assert.Equal(t, []item.Stack{item.Of("STONE", 1)}, v.dropsFor("STONE", silk))
	assert.Equal(t, []item.Stack{item.Of("COAL_ORE", 1)}, v.dropsFor("COAL_ORE", silk))
	assert.Equal(t, []item.Stack{item.Of("RAW_COPPER", 3)}, v.dropsFor("COPPER_ORE", plain))
	assert.Equal(t, []item.Stack{item.Of("DIRT", 1)}, v.dropsFor("DIRT", lucky))

	for i := 0; i < 50; i++ {
		got := v.dropsFor("COPPER_ORE", lucky)
		require.Len(t, got, 1)
		assert.Contains(t, []int{3, 6, 9, 12}, got[0].Count)
	}
}

func TestSameCommandsSameDigests(t *testing.T) {
	a, b := newTestWorld(t), newTestWorld(t)
	cmds := armCommands(origin, 4)
	_, da, _ := a.StepOnce(cmds)
	_, db, _ := b.StepOnce(cmds)
	require.Equal(t, da, db)
	for i := 0; i < 40; i++ {
		_, da, _ = a.StepOnce(nil)
		_, db, _ = b.StepOnce(nil)
		require.Equal(t, da, db, "tick %d", i)
	}
	assert.Equal(t, a.Metrics().Excavations, b.Metrics().Excavations)
	assert.Equal(t, a.Metrics().Digest, b.Metrics().Digest)
}

func TestSnapshotRoundTripKeepsDigest(t *testing.T) {
	a := newTestWorld(t)
	a.StepOnce(armCommands(origin, 4))
	w2 := [3]int{20, 45, -7}
	a.StepOnce(armCommands(w2, 1))
	a.StepOnce([]Command{{Kind: CmdSetPower, Pos: w2, Powered: true}})
	tick, digest, _ := a.StepOnce(nil)

	snap := a.ExportSnapshot(tick)
	b := newTestWorld(t)
	require.NoError(t, b.ImportSnapshot(snap))
	assert.Equal(t, tick+1, b.CurrentTick())
	assert.Equal(t, digest, b.lastDigest())

	for i := 0; i < 20; i++ {
		ta, da, _ := a.StepOnce(nil)
		tb, db, _ := b.StepOnce(nil)
		require.Equal(t, ta, tb)
		require.Equal(t, da, db, "tick %d", ta)
	}
}

func TestImportRejectsBadChunks(t *testing.T) {
	a := newTestWorld(t)
	a.StepOnce(armCommands(origin, 1))
	snap := a.ExportSnapshot(0)
	require.NotEmpty(t, snap.Chunks)
	snap.Chunks[0].Blocks = snap.Chunks[0].Blocks[:10]

	b := newTestWorld(t)
	require.Error(t, b.ImportSnapshot(snap))
	assert.Equal(t, uint64(0), b.CurrentTick())
	assert.Empty(t, b.DeviceViews())
}

type recordingTickLogger struct{ entries []TickLogEntry }

func (r *recordingTickLogger) WriteTick(e TickLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func TestTickLogRecordsCommandsAndDigests(t *testing.T) {
	w := newTestWorld(t)
	rec := &recordingTickLogger{}
	w.SetTickLogger(rec)

	cmds := armCommands(origin, 1)
	_, d0, _ := w.StepOnce(cmds)
	_, d1, _ := w.StepOnce(nil)

	require.Len(t, rec.entries, 2)
	assert.Equal(t, uint64(0), rec.entries[0].Tick)
	assert.Equal(t, cmds, rec.entries[0].Commands)
	assert.Equal(t, d0, rec.entries[0].Digest)
	assert.Empty(t, rec.entries[1].Commands)
	assert.Equal(t, d1, rec.entries[1].Digest)
}

func TestRunServesCommandsStateAndObservers(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := newTestWorld(t)
	w.cfg.TickRateHz = 200

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	reqCtx, reqCancel := context.WithTimeout(ctx, 5*time.Second)
	defer reqCancel()

	updates := make(chan TickUpdate, 1)
	require.NoError(t, w.AddObserver(reqCtx, "obs", updates))

	for _, c := range armCommands(origin, 2) {
		res, err := w.Submit(reqCtx, c)
		require.NoError(t, err)
		require.True(t, res.Accepted, "%s: %s", c.ID, res.Message)
	}

	devices, _, err := w.RequestState(reqCtx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, origin, devices[0].Pos)

	select {
	case upd := <-updates:
		assert.NotEmpty(t, upd.Digest)
	case <-reqCtx.Done():
		t.Fatal("no tick update")
	}
	require.NoError(t, w.RemoveObserver(reqCtx, "obs"))

	_, err = w.RequestSnapshot(reqCtx)
	assert.EqualError(t, err, "snapshot sink not configured")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
