package world

import (
	"fmt"

	"go.uber.org/zap"

	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/quarry"
)

func (w *World) apply(tick uint64, c Command) CommandResult {
	res := CommandResult{ID: c.ID, Kind: c.Kind}
	out, err := w.applyCommand(tick, c)
	if !out.IsEmpty() {
		res.Item = &out
	}
	if err != nil {
		res.Err = err
		res.Message = err.Error()
		return res
	}
	res.Accepted = true
	return res
}

// applyCommand returns the stack handed back to the caller, if any.
func (w *World) applyCommand(tick uint64, c Command) (item.Stack, error) {
	pos := mathx.FromArray(c.Pos)

	switch c.Kind {
	case CmdPlace:
		return item.Stack{}, w.place(tick, c.Actor, pos, c.Area, c.Speed)
	case CmdSetPower:
		if c.Powered {
			w.powered[pos] = true
		} else {
			delete(w.powered, pos)
		}
		return item.Stack{}, nil
	}

	d := w.devices[pos]
	if d == nil {
		return item.Stack{}, fmt.Errorf("%s at %s: %w", c.Kind, pos, ErrNoDevice)
	}
	v := w.view(tick, pos)

	switch c.Kind {
	case CmdRemove:
		w.remove(tick, c.Actor, pos, d)
		return item.Stack{}, nil

	case CmdInsert:
		side, st, err := sideAndStack(c)
		if err != nil {
			return item.Stack{}, err
		}
		left := d.InsertFrom(side, st)
		if left.Count == st.Count {
			return left, fmt.Errorf("insert %s from %s: %w", st.ID, side, ErrRejected)
		}
		return left, nil

	case CmdExtract:
		side, ok := quarry.ParseSide(c.Side)
		if !ok {
			return item.Stack{}, fmt.Errorf("side %q: %w", c.Side, ErrBadCommand)
		}
		if c.Slot != nil {
			if *c.Slot < 0 || *c.Slot >= quarry.InventorySize {
				return item.Stack{}, fmt.Errorf("extract slot %d: %w", *c.Slot, ErrBadSlot)
			}
			st, ok := d.ExtractSlot(side, *c.Slot, c.Count)
			if !ok {
				return item.Stack{}, fmt.Errorf("extract slot %d from %s: %w", *c.Slot, side, ErrRejected)
			}
			return st, nil
		}
		st, slot := d.ExtractFrom(side, c.Count)
		if slot < 0 {
			return item.Stack{}, fmt.Errorf("extract from %s: %w", side, ErrRejected)
		}
		return st, nil

	case CmdSetSlot:
		if c.Slot == nil || *c.Slot < 0 || *c.Slot >= quarry.InventorySize {
			return item.Stack{}, fmt.Errorf("set slot: %w", ErrBadSlot)
		}
		var st item.Stack
		if c.Item != nil {
			st = c.Item.Clone()
		}
		if !d.SetSlot(*c.Slot, st) {
			return item.Stack{}, fmt.Errorf("set slot %d to %s: %w", *c.Slot, st.ID, ErrRejected)
		}
		return item.Stack{}, nil

	case CmdTakeSlot:
		if c.Slot == nil || *c.Slot < 0 || *c.Slot >= quarry.InventorySize {
			return item.Stack{}, fmt.Errorf("take slot: %w", ErrBadSlot)
		}
		return d.TakeSlot(*c.Slot, c.Count), nil

	case CmdQuickInsert:
		if c.Item == nil || c.Item.IsEmpty() {
			return item.Stack{}, fmt.Errorf("quick insert without item: %w", ErrBadCommand)
		}
		left := d.QuickInsert(c.Item.Clone())
		if left.Count == c.Item.Count {
			return left, fmt.Errorf("quick insert %s: %w", c.Item.ID, ErrRejected)
		}
		return left, nil

	case CmdCycleFilter:
		d.CycleFilterMode()
		return item.Stack{}, nil

	case CmdToggleReservation:
		d.ToggleReservation(v)
		return item.Stack{}, nil

	case CmdSetProperty:
		if !d.SetProperty(c.Index, c.Value) {
			return item.Stack{}, fmt.Errorf("property %d is read-only: %w", c.Index, ErrRejected)
		}
		return item.Stack{}, nil

	case CmdSetUpgrades:
		d.SetUpgrades(c.Area, c.Speed)
		return item.Stack{}, nil
	}
	return item.Stack{}, fmt.Errorf("%q: %w", c.Kind, ErrUnknownKind)
}

func sideAndStack(c Command) (quarry.Side, item.Stack, error) {
	side, ok := quarry.ParseSide(c.Side)
	if !ok {
		return 0, item.Stack{}, fmt.Errorf("side %q: %w", c.Side, ErrBadCommand)
	}
	if c.Item == nil || c.Item.IsEmpty() {
		return 0, item.Stack{}, fmt.Errorf("insert without item: %w", ErrBadCommand)
	}
	return side, c.Item.Clone(), nil
}

func (w *World) place(tick uint64, actor string, pos mathx.Vec3i, area, speed int) error {
	if !w.chunks.InBounds(pos.Y) {
		return fmt.Errorf("place at %s: %w", pos, ErrOutOfBounds)
	}
	if w.devices[pos] != nil || w.chunks.GetBlock(pos) != w.air {
		return fmt.Errorf("place at %s: %w", pos, ErrOccupied)
	}
	w.chunks.SetBlock(pos, w.quarryBlock)
	d := quarry.New(w.qcfg, pos, area, speed)
	w.devices[pos] = d
	w.audit(AuditEntry{
		Tick:    tick,
		Actor:   actor,
		Action:  "PLACE",
		Pos:     pos.ToArray(),
		From:    "AIR",
		To:      "QUARRY",
		Details: map[string]any{"area": d.AreaUpgrades(), "speed": d.SpeedUpgrades()},
	})
	w.log.Info("device placed",
		zap.Stringer("pos", pos),
		zap.Int("area", d.AreaUpgrades()),
		zap.Int("speed", d.SpeedUpgrades()))
	return nil
}

// remove releases the device's reservation and spills its inventory on the ground.
func (w *World) remove(tick uint64, actor string, pos mathx.Vec3i, d *quarry.Device) {
	spilled := d.OnRemoved(w.view(tick, pos))
	for _, st := range spilled {
		w.addGround(pos, st)
	}
	w.chunks.SetBlock(pos, w.air)
	delete(w.devices, pos)
	delete(w.lastStatus, pos)
	w.audit(AuditEntry{
		Tick:    tick,
		Actor:   actor,
		Action:  "REMOVE",
		Pos:     pos.ToArray(),
		From:    "QUARRY",
		To:      "AIR",
		Details: map[string]any{"spilled": len(spilled)},
	})
	w.log.Info("device removed", zap.Stringer("pos", pos), zap.Int("spilled", len(spilled)))
}
