package quarry

import (
	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/mining"
	"voxelquarry.ai/internal/sim/quarry/filter"
	"voxelquarry.ai/internal/sim/quarry/output"
)

// Status is the outcome of a single tick.
type Status int

const (
	Paused Status = iota
	NoTool
	NoFuel
	Stalled
	Working
	Mined
	NoTarget
	Blocked
)

func (s Status) String() string {
	switch s {
	case Paused:
		return "PAUSED"
	case NoTool:
		return "NO_TOOL"
	case NoFuel:
		return "NO_FUEL"
	case Stalled:
		return "STALLED"
	case Working:
		return "WORKING"
	case Mined:
		return "MINED"
	case NoTarget:
		return "NO_TARGET"
	case Blocked:
		return "BLOCKED"
	default:
		return "UNKNOWN"
	}
}

// Active reports whether the device held its reservation through the tick.
func (s Status) Active() bool {
	return s == Working || s == Mined || s == NoTarget || s == Blocked
}

type Result struct {
	Status Status
	Target mathx.Vec3i

	Refueled bool

	Kept     []item.Stack
	Voided   []item.Stack
	Overflow []item.Stack

	ToolBroke          bool
	ReservationChanged bool
}

var up = mathx.Vec3i{Y: 1}

// Tick advances the device by one step. Guards are checked in order and the
// first failing one ends the tick with progress reset and the reservation released.
func (d *Device) Tick(w World) Result {
	var r Result

	if w.Powered(d.pos) {
		return d.halt(w, Paused)
	}

	tool := d.slots[ToolSlot]
	if !d.validTool(tool) {
		d.ticksPerUnit = 0
		return d.halt(w, NoTool)
	}
	d.ticksPerUnit = d.computeTicksPerUnit(tool)

	if d.tank.Empty() {
		if !d.tank.TryConsume(&d.slots[FuelSlot], d.cfg.Fuel) {
			return d.halt(w, NoFuel)
		}
		r.Refueled = true
	}

	if d.ticksPerUnit <= 0 {
		out := d.halt(w, Stalled)
		out.Refueled = r.Refueled
		return out
	}

	r.ReservationChanged = d.res.Sync(w, d.ReservationEnabled())

	d.progress++
	if d.progress < d.ticksPerUnit {
		r.Status = Working
		return r
	}
	d.progress = 0

	target, ok := d.cursor.NextTarget(d.pos, w.BottomY(), d.RingSize(), func(p mathx.Vec3i) bool {
		return w.Classify(p) == Solid
	})
	if !ok {
		r.Status = NoTarget
		return r
	}
	r.Target = target

	yields, ok := w.Excavate(target, tool.Clone())
	if !ok {
		r.Status = Blocked
		return r
	}

	d.collect(w, yields, &r)
	d.tank.Spend()
	r.ToolBroke = d.wearTool(w)
	r.Status = Mined
	return r
}

func (d *Device) halt(w World, s Status) Result {
	d.progress = 0
	return Result{
		Status:             s,
		ReservationChanged: d.res.Release(w),
	}
}

func (d *Device) validTool(s item.Stack) bool {
	return !s.IsEmpty() && d.cfg.Tools.IsTool(s.ID)
}

func (d *Device) computeTicksPerUnit(tool item.Stack) int {
	return mining.TicksPerUnit(
		d.cfg.Tools.BaseTicks(tool.ID),
		tool.Level(item.Efficiency),
		d.cfg.Upgrades.SpeedMultiplier(d.speedUpgrades),
	)
}

// collect routes yields through the filter into the outputs. Whatever does
// not fit is dropped above the device.
func (d *Device) collect(w World, yields []item.Stack, r *Result) {
	store := output.New(d.outputs(), d.cfg.stackLimit(), d.cfg.Items)
	refs := d.filterRefs()
	for _, y := range yields {
		if y.IsEmpty() {
			continue
		}
		if !filter.Keep(y, d.mode, refs) {
			r.Voided = append(r.Voided, y)
			continue
		}
		left := store.Insert(y)
		if stored := y.Count - left.Count; stored > 0 {
			r.Kept = append(r.Kept, y.WithCount(stored))
		}
		if !left.IsEmpty() {
			w.Drop(d.pos.Add(up), left)
			r.Overflow = append(r.Overflow, left)
		}
	}
}

// wearTool applies one point of wear. Returns true when the tool broke.
func (d *Device) wearTool(w World) bool {
	tool := &d.slots[ToolSlot]
	if tool.IsEmpty() {
		return false
	}
	maxDamage := d.cfg.Items.MaxDamage(tool.ID)
	if maxDamage <= 0 {
		return false
	}
	if lvl := tool.Level(item.Unbreaking); lvl > 0 && w.Intn(lvl+1) != 0 {
		return false
	}
	if tool.Damage+1 >= maxDamage {
		*tool = item.Stack{}
		return true
	}
	tool.Damage++
	return false
}
