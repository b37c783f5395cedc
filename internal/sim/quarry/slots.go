package quarry

import (
	"strings"

	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mathx"
)

// Side is the face an automated transport touches.
type Side int

const (
	Down Side = iota
	Up
	North
	South
	West
	East
)

var sideNames = [...]string{"DOWN", "UP", "NORTH", "SOUTH", "WEST", "EAST"}

// ParseSide accepts side names in any case.
func ParseSide(s string) (Side, bool) {
	for i, name := range sideNames {
		if strings.EqualFold(name, s) {
			return Side(i), true
		}
	}
	return 0, false
}

func (s Side) String() string {
	if s < 0 || int(s) >= len(sideNames) {
		return "UNKNOWN"
	}
	return sideNames[s]
}

func (s Side) Lateral() bool { return s != Down && s != Up }

var (
	downSlots    []int
	upSlots      = []int{FuelSlot}
	lateralSlots = []int{ToolSlot}
)

func init() {
	downSlots = append(downSlots, FuelSlot)
	for i := OutputStart; i < InventorySize; i++ {
		downSlots = append(downSlots, i)
	}
}

// AvailableSlots lists the slot indices reachable from side, in order.
func AvailableSlots(side Side) []int {
	switch side {
	case Down:
		return downSlots
	case Up:
		return upSlots
	default:
		return lateralSlots
	}
}

func exposed(slot int, side Side) bool {
	for _, s := range AvailableSlots(side) {
		if s == slot {
			return true
		}
	}
	return false
}

func isOutput(slot int) bool { return slot >= OutputStart && slot < FilterStart }
func isFilter(slot int) bool { return slot >= FilterStart && slot < InventorySize }

// CanInsert applies the directional insertion rules: tools from the sides,
// fuel from above. Outputs and filter references never accept transport insertion.
func (d *Device) CanInsert(slot int, st item.Stack, side Side) bool {
	if st.IsEmpty() || !exposed(slot, side) {
		return false
	}
	switch slot {
	case ToolSlot:
		return side.Lateral() && d.cfg.Tools.IsTool(st.ID)
	case FuelSlot:
		return side == Up && d.cfg.Fuel.ChargeValue(st) > 0
	default:
		return false
	}
}

// CanExtract allows outputs and filter references from below, and the fuel
// slot from below only while it holds a fuel residue.
func (d *Device) CanExtract(slot int, side Side) bool {
	if side != Down || !exposed(slot, side) {
		return false
	}
	if slot == FuelSlot {
		s := d.slots[FuelSlot]
		return !s.IsEmpty() && d.cfg.Fuel.IsResidue(s.ID)
	}
	return isOutput(slot) || isFilter(slot)
}

// InsertFrom pushes st through side and returns what was not accepted.
func (d *Device) InsertFrom(side Side, st item.Stack) item.Stack {
	rest := st.Clone()
	for _, slot := range AvailableSlots(side) {
		if rest.IsEmpty() {
			break
		}
		if !d.CanInsert(slot, rest, side) {
			continue
		}
		rest = d.mergeInto(slot, rest)
	}
	if rest.IsEmpty() {
		return item.Stack{}
	}
	return rest
}

// ExtractFrom takes up to limit items from the first extractable non-empty slot on side.
func (d *Device) ExtractFrom(side Side, limit int) (item.Stack, int) {
	for _, slot := range AvailableSlots(side) {
		if d.slots[slot].IsEmpty() || !d.CanExtract(slot, side) {
			continue
		}
		return d.take(slot, limit), slot
	}
	return item.Stack{}, -1
}

// ExtractSlot takes up to limit items from a specific slot if side allows it.
func (d *Device) ExtractSlot(side Side, slot, limit int) (item.Stack, bool) {
	if !validSlot(slot) || !d.CanExtract(slot, side) || d.slots[slot].IsEmpty() {
		return item.Stack{}, false
	}
	return d.take(slot, limit), true
}

func validSlot(i int) bool { return i >= 0 && i < InventorySize }

func (d *Device) slotLimit(slot int, id string) int {
	if slot == ToolSlot || isFilter(slot) {
		return 1
	}
	lim := d.cfg.stackLimit()
	if per := d.cfg.Items.MaxStack(id); per < lim {
		lim = per
	}
	return lim
}

func (d *Device) mergeInto(slot int, st item.Stack) item.Stack {
	cur := &d.slots[slot]
	limit := d.slotLimit(slot, st.ID)
	if cur.IsEmpty() {
		n := mathx.Clamp(st.Count, 0, limit)
		*cur = st.WithCount(n)
		return st.WithCount(st.Count - n)
	}
	if !cur.CanMerge(st) {
		return st
	}
	n := mathx.Clamp(limit-cur.Count, 0, st.Count)
	cur.Count += n
	return st.WithCount(st.Count - n)
}

func (d *Device) take(slot, limit int) item.Stack {
	cur := &d.slots[slot]
	n := cur.Count
	if limit > 0 && limit < n {
		n = limit
	}
	out := cur.WithCount(n)
	cur.Count -= n
	if cur.Count <= 0 {
		*cur = item.Stack{}
	}
	return out
}

// Slot returns a copy of slot i.
func (d *Device) Slot(i int) item.Stack {
	if !validSlot(i) {
		return item.Stack{}
	}
	return d.slots[i].Clone()
}

// Slots returns a copy of the whole inventory.
func (d *Device) Slots() []item.Stack {
	out := make([]item.Stack, InventorySize)
	for i := range d.slots {
		out[i] = d.slots[i].Clone()
	}
	return out
}

// SetSlot is direct panel access. Tool and filter slots hold one item; the
// tool slot only takes tools and the fuel slot only takes fuel; outputs refuse
// insertion. Counts are clamped to the slot limit. An empty stack clears the slot.
func (d *Device) SetSlot(i int, st item.Stack) bool {
	if !validSlot(i) {
		return false
	}
	if st.IsEmpty() {
		d.slots[i] = item.Stack{}
		return true
	}
	switch {
	case i == ToolSlot:
		if !d.cfg.Tools.IsTool(st.ID) {
			return false
		}
	case i == FuelSlot:
		if d.cfg.Fuel.ChargeValue(st) <= 0 && !d.cfg.Fuel.IsResidue(st.ID) {
			return false
		}
	case isOutput(i):
		return false
	}
	d.slots[i] = st.WithCount(mathx.Clamp(st.Count, 1, d.slotLimit(i, st.ID)))
	return true
}

// restoreSlot places a persisted stack under the same limits as SetSlot,
// except that outputs accept stacks. It reports whether the stack was kept.
func (d *Device) restoreSlot(i int, st item.Stack) bool {
	if isOutput(i) {
		d.slots[i] = st.WithCount(mathx.Clamp(st.Count, 1, d.slotLimit(i, st.ID)))
		return true
	}
	return d.SetSlot(i, st)
}

// TakeSlot removes up to limit items from any slot; limit <= 0 takes the whole stack.
func (d *Device) TakeSlot(i, limit int) item.Stack {
	if !validSlot(i) || d.slots[i].IsEmpty() {
		return item.Stack{}
	}
	return d.take(i, limit)
}

// QuickInsert routes a stack moved in from a player inventory: tools to the
// tool slot, fuel to the fuel slot. Anything else is refused. Returns the leftover.
func (d *Device) QuickInsert(st item.Stack) item.Stack {
	if st.IsEmpty() {
		return item.Stack{}
	}
	var slot int
	switch {
	case d.cfg.Tools.IsTool(st.ID):
		slot = ToolSlot
	case d.cfg.Fuel.ChargeValue(st) > 0:
		slot = FuelSlot
	default:
		return st
	}
	rest := d.mergeInto(slot, st.Clone())
	if rest.IsEmpty() {
		return item.Stack{}
	}
	return rest
}
