package world

import (
	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/quarry"
)

// deviceView is the world as seen by one device during one tick. Audit
// entries it produces are attributed to that device.
type deviceView struct {
	w    *World
	tick uint64
	dev  mathx.Vec3i
}

var _ quarry.World = deviceView{}

func (w *World) view(tick uint64, dev mathx.Vec3i) deviceView {
	return deviceView{w: w, tick: tick, dev: dev}
}

func (v deviceView) actor() string { return "QUARRY@" + v.dev.String() }

func (v deviceView) Powered(p mathx.Vec3i) bool { return v.w.powered[p] }

func (v deviceView) BottomY() int { return v.w.cfg.BottomY }

func (v deviceView) Classify(p mathx.Vec3i) quarry.Occupancy { return v.w.classify(p) }

func (w *World) classify(p mathx.Vec3i) quarry.Occupancy {
	if !w.chunks.InBounds(p.Y) {
		return quarry.Empty
	}
	if w.devices[p] != nil {
		return quarry.OtherDevice
	}
	b := w.chunks.GetBlock(p)
	if b == w.air {
		return quarry.Empty
	}
	def := w.catalogs.Blocks.Defs[w.catalogs.BlockName(b)]
	if !def.Breakable {
		return quarry.Unbreakable
	}
	if !def.Solid {
		return quarry.Empty
	}
	return quarry.Solid
}

// Excavate replaces the block with air and computes its drops for tool.
func (v deviceView) Excavate(p mathx.Vec3i, tool item.Stack) ([]item.Stack, bool) {
	w := v.w
	if w.classify(p) != quarry.Solid {
		return nil, false
	}
	name := w.catalogs.BlockName(w.chunks.GetBlock(p))
	drops := v.dropsFor(name, tool)
	if !w.chunks.SetBlock(p, w.air) {
		return nil, false
	}
	w.stats.excavations++
	w.audit(AuditEntry{
		Tick:   v.tick,
		Actor:  v.actor(),
		Action: "EXCAVATE",
		Pos:    p.ToArray(),
		From:   name,
		To:     "AIR",
	})
	return drops, true
}

func (v deviceView) dropsFor(block string, tool item.Stack) []item.Stack {
	def := v.w.catalogs.Blocks.Defs[block]
	if tool.Level(item.SilkTouch) > 0 {
		id := def.SilkItem
		if id == "" {
			id = def.ID
		}
		return []item.Stack{item.Of(id, 1)}
	}
	if def.DropsItem == "" {
		return nil
	}
	count := max(def.DropCount, 1)
	if lvl := tool.Level(item.Fortune); def.Fortune && lvl > 0 {
		bonus := max(v.Intn(lvl+2)-1, 0)
		count *= bonus + 1
	}
	return []item.Stack{item.Of(def.DropsItem, count)}
}

func (v deviceView) Intn(n int) int {
	r := mathx.Roll(v.w.cfg.Seed, v.tick, v.w.rollCounter, n)
	v.w.rollCounter++
	return r
}

func (v deviceView) Drop(p mathx.Vec3i, st item.Stack) {
	v.w.addGround(p, st)
	v.w.stats.dropped += st.Count
	v.w.audit(AuditEntry{
		Tick:    v.tick,
		Actor:   v.actor(),
		Action:  "DROP",
		Pos:     p.ToArray(),
		To:      st.ID,
		Details: map[string]any{"count": st.Count},
	})
}

// SetChunkForced is reference counted so two devices in one chunk do not
// unforce each other.
func (v deviceView) SetChunkForced(k mathx.ChunkKey, forced bool) {
	w := v.w
	if forced {
		w.forced[k]++
	} else if w.forced[k] > 0 {
		w.forced[k]--
		if w.forced[k] == 0 {
			delete(w.forced, k)
		}
	}
	w.audit(AuditEntry{
		Tick:    v.tick,
		Actor:   v.actor(),
		Action:  "FORCE_CHUNK",
		Pos:     v.dev.ToArray(),
		Details: map[string]any{"cx": k.CX, "cz": k.CZ, "forced": forced, "refs": w.forced[k]},
	})
}

func (w *World) addGround(p mathx.Vec3i, st item.Stack) {
	if st.IsEmpty() {
		return
	}
	stacks := w.ground[p]
	for i := range stacks {
		if stacks[i].CanMerge(st) {
			stacks[i].Count += st.Count
			return
		}
	}
	w.ground[p] = append(stacks, st.Clone())
}

// ChunkForced reports whether any device currently holds k.
func (w *World) ChunkForced(k mathx.ChunkKey) bool { return w.forced[k] > 0 }
