package quarry

import (
	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/quarry/reservation"
)

// Occupancy classifies a candidate position for excavation.
type Occupancy int

const (
	Empty Occupancy = iota
	Unbreakable
	OtherDevice
	Solid
)

func (o Occupancy) String() string {
	switch o {
	case Empty:
		return "empty"
	case Unbreakable:
		return "unbreakable"
	case OtherDevice:
		return "device"
	case Solid:
		return "solid"
	default:
		return "unknown"
	}
}

// World is everything a device needs from its surroundings during a tick.
// Calls are synchronous and must not re-enter the device.
type World interface {
	reservation.Loader

	// Powered reports an inhibiting signal at pos.
	Powered(pos mathx.Vec3i) bool
	// BottomY is the lowest valid Y coordinate.
	BottomY() int
	Classify(pos mathx.Vec3i) Occupancy
	// Excavate removes the block at pos and returns what it yields with tool.
	// Yield multipliers from the tool are applied here. ok=false means nothing changed.
	Excavate(pos mathx.Vec3i, tool item.Stack) (yields []item.Stack, ok bool)
	// Intn returns a value in [0,n).
	Intn(n int) int
	Drop(pos mathx.Vec3i, st item.Stack)
}
