package ws

import (
	"context"
	"errors"

	"voxelquarry.ai/internal/protocol"
	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/world"
)

func toCommand(sessionID string, m protocol.CmdMsg) world.Command {
	c := world.Command{
		ID:      m.ID,
		Actor:   sessionID,
		Kind:    m.Kind,
		Pos:     m.Pos,
		Area:    m.Area,
		Speed:   m.Speed,
		Powered: m.Powered,
		Side:    m.Side,
		Count:   m.Count,
		Index:   m.Index,
		Value:   m.Value,
	}
	if m.Slot != nil {
		slot := *m.Slot
		c.Slot = &slot
	}
	if m.Item != nil {
		st := item.Stack{ID: m.Item.ID, Count: m.Item.Count, Enchantments: m.Item.Enchantments}
		c.Item = &st
	}
	return c
}

func fromStack(st *item.Stack) *protocol.ItemStack {
	if st == nil {
		return nil
	}
	return &protocol.ItemStack{ID: st.ID, Count: st.Count, Enchantments: st.Enchantments}
}

func fromDevice(v world.DeviceView) protocol.DeviceState {
	out := protocol.DeviceState{
		Pos:           v.Pos,
		Status:        v.Status,
		Properties:    v.Properties,
		FilterMode:    v.FilterMode,
		Depth:         v.Depth,
		RingIndex:     v.RingIndex,
		RingSize:      v.RingSize,
		AreaUpgrades:  v.AreaUpgrades,
		SpeedUpgrades: v.SpeedUpgrades,
		Reserved:      v.Reserved,
		Powered:       v.Powered,
		FuelGauge:     v.FuelGauge,
		ProgressGauge: v.ProgressGauge,
	}
	for _, s := range v.Slots {
		st := s.Item
		out.Slots = append(out.Slots, protocol.SlotState{Slot: s.Slot, Item: *fromStack(&st)})
	}
	return out
}

// codeFor maps a world command error onto a wire error code.
func codeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, world.ErrNoDevice), errors.Is(err, world.ErrOutOfBounds):
		return protocol.ErrInvalidTarget
	case errors.Is(err, world.ErrOccupied):
		return protocol.ErrConflict
	case errors.Is(err, world.ErrBadSlot), errors.Is(err, world.ErrBadCommand), errors.Is(err, world.ErrUnknownKind):
		return protocol.ErrBadRequest
	case errors.Is(err, world.ErrRejected):
		return protocol.ErrBlocked
	case errors.Is(err, world.ErrNotAvailable):
		return protocol.ErrNoResource
	case errors.Is(err, context.DeadlineExceeded):
		return protocol.ErrWorldBusy
	default:
		return protocol.ErrInternal
	}
}
