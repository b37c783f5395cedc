package quarry

import (
	"voxelquarry.ai/internal/persistence/snapshot"
	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/quarry/filter"
	"voxelquarry.ai/internal/sim/quarry/reservation"
)

// Export captures the persisted layout. Only non-empty slots are listed.
func (d *Device) Export() snapshot.DeviceV1 {
	out := snapshot.DeviceV1{
		Pos:                 d.pos.ToArray(),
		BurnBudget:          d.tank.Budget,
		LastChargeSize:      d.tank.LastCharge,
		MiningProgress:      d.progress,
		TicksPerUnit:        d.ticksPerUnit,
		Depth:               d.cursor.Depth,
		RingIndex:           d.cursor.Index,
		AreaUpgrades:        d.areaUpgrades,
		SpeedUpgrades:       d.speedUpgrades,
		FilterMode:          int(d.mode),
		ReservationDisabled: d.reservationOff,
		Reserved:            d.res.Reserved,
	}
	for i, s := range d.slots {
		if s.IsEmpty() {
			continue
		}
		out.Items = append(out.Items, snapshot.SlotV1{Slot: i, Item: StackToV1(s)})
	}
	return out
}

// Import rebuilds a device from persisted state. Out-of-range fields are
// clamped rather than rejected. Stacks are held to the panel's slot limits;
// unknown slot indices and stacks a slot would refuse are skipped.
func Import(cfg Config, v snapshot.DeviceV1) *Device {
	d := &Device{
		cfg: cfg,
		pos: mathx.FromArray(v.Pos),
		res: reservation.New(mathx.FromArray(v.Pos)),
	}
	d.areaUpgrades = cfg.Upgrades.ClampArea(v.AreaUpgrades)
	d.speedUpgrades = cfg.Upgrades.ClampSpeed(v.SpeedUpgrades)

	d.tank.Budget = max(v.BurnBudget, 0)
	d.tank.LastCharge = max(v.LastChargeSize, 0)
	d.ticksPerUnit = max(v.TicksPerUnit, 0)
	if d.ticksPerUnit == 0 {
		d.progress = 0
	} else {
		d.progress = mathx.Clamp(v.MiningProgress, 0, d.ticksPerUnit)
	}

	d.cursor.Depth = v.Depth
	d.cursor.Index = v.RingIndex
	d.cursor.Clamp(d.LayerSlots())

	d.mode = filter.ClampMode(v.FilterMode)
	d.reservationOff = v.ReservationDisabled
	d.res.Reserved = v.Reserved

	for _, sv := range v.Items {
		if !validSlot(sv.Slot) {
			continue
		}
		st := StackFromV1(sv.Item)
		if st.IsEmpty() {
			continue
		}
		d.restoreSlot(sv.Slot, st)
	}
	return d
}

// StackToV1 converts a stack to its persisted form.
func StackToV1(s item.Stack) snapshot.ItemStackV1 {
	c := s.Clone()
	return snapshot.ItemStackV1{ID: c.ID, Count: c.Count, Damage: c.Damage, Enchantments: c.Enchantments}
}

func StackFromV1(v snapshot.ItemStackV1) item.Stack {
	return item.Stack{ID: v.ID, Count: v.Count, Damage: v.Damage, Enchantments: v.Enchantments}.Clone()
}
