// Package quarry implements the tick-driven excavation device.
//
// A Device owns a flat 35-slot inventory (tool, fuel, 24 outputs, 9 filter
// references), a fuel tank, a traversal cursor and a chunk reservation. It is
// not safe for concurrent use; the host serializes ticks and slot access.
package quarry

import (
	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/quarry/filter"
	"voxelquarry.ai/internal/sim/quarry/fuel"
	"voxelquarry.ai/internal/sim/quarry/reservation"
	"voxelquarry.ai/internal/sim/quarry/traversal"
)

const (
	ToolSlot    = 0
	FuelSlot    = 1
	OutputStart = 2
	OutputSlots = 24
	FilterStart = OutputStart + OutputSlots
	FilterSlots = 9

	InventorySize = FilterStart + FilterSlots
)

type Device struct {
	cfg Config
	pos mathx.Vec3i

	slots [InventorySize]item.Stack

	tank         fuel.Tank
	progress     int
	ticksPerUnit int
	cursor       traversal.Cursor

	areaUpgrades  int
	speedUpgrades int

	mode filter.Mode

	res            reservation.Controller
	reservationOff bool
}

// New creates a fresh device. Upgrade counts are clamped.
func New(cfg Config, pos mathx.Vec3i, areaUpgrades, speedUpgrades int) *Device {
	d := &Device{
		cfg:    cfg,
		pos:    pos,
		cursor: traversal.NewCursor(),
		res:    reservation.New(pos),
	}
	d.SetUpgrades(areaUpgrades, speedUpgrades)
	return d
}

func (d *Device) Pos() mathx.Vec3i { return d.pos }

func (d *Device) AreaUpgrades() int  { return d.areaUpgrades }
func (d *Device) SpeedUpgrades() int { return d.speedUpgrades }

func (d *Device) RingSize() int { return d.cfg.Upgrades.RingSize(d.areaUpgrades) }

func (d *Device) LayerSlots() int { return d.cfg.Upgrades.LayerSlots(d.areaUpgrades) }

func (d *Device) Depth() int     { return d.cursor.Depth }
func (d *Device) RingIndex() int { return d.cursor.Index }

func (d *Device) BurnBudget() int     { return d.tank.Budget }
func (d *Device) LastChargeSize() int { return d.tank.LastCharge }
func (d *Device) MiningProgress() int { return d.progress }
func (d *Device) TicksPerUnit() int   { return d.ticksPerUnit }

func (d *Device) FilterMode() filter.Mode { return d.mode }

// Reserved mirrors whether the world currently holds a reservation for this device.
func (d *Device) Reserved() bool { return d.res.Reserved }

func (d *Device) ReservationEnabled() bool { return !d.reservationOff }

// SetUpgrades replaces both upgrade counts and re-clamps the cursor to the new layer.
func (d *Device) SetUpgrades(area, speed int) {
	d.areaUpgrades = d.cfg.Upgrades.ClampArea(area)
	d.speedUpgrades = d.cfg.Upgrades.ClampSpeed(speed)
	d.cursor.Clamp(d.LayerSlots())
}

// CycleFilterMode advances Off -> Whitelist -> Blacklist -> Off.
func (d *Device) CycleFilterMode() filter.Mode {
	d.mode = d.mode.Next()
	return d.mode
}

func (d *Device) SetFilterMode(v int) {
	d.mode = filter.ClampMode(v)
}

// ToggleReservation flips the reservation preference. Disabling releases a
// held reservation immediately. Returns the new preference.
func (d *Device) ToggleReservation(l reservation.Loader) bool {
	d.reservationOff = !d.reservationOff
	if d.reservationOff {
		d.res.Release(l)
	}
	return !d.reservationOff
}

// OnRemoved releases the reservation and empties the inventory, returning
// every non-empty stack in slot order.
func (d *Device) OnRemoved(l reservation.Loader) []item.Stack {
	d.res.Release(l)
	var out []item.Stack
	for i := range d.slots {
		if !d.slots[i].IsEmpty() {
			out = append(out, d.slots[i])
		}
		d.slots[i] = item.Stack{}
	}
	d.progress = 0
	return out
}

func (d *Device) filterRefs() []item.Stack {
	return d.slots[FilterStart : FilterStart+FilterSlots]
}

func (d *Device) outputs() []item.Stack {
	return d.slots[OutputStart : OutputStart+OutputSlots]
}
