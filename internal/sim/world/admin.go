package world

import (
	"context"
	"errors"

	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/quarry"
)

type adminSnapshotReq struct {
	Resp chan adminSnapshotResp
}

type adminSnapshotResp struct {
	Tick uint64
	Err  string
}

// RequestSnapshot asks the world loop goroutine to enqueue a snapshot.
// It is safe to call from other goroutines (e.g. HTTP handlers).
func (w *World) RequestSnapshot(ctx context.Context) (tick uint64, err error) {
	if w == nil || w.admin == nil {
		return 0, ErrNotAvailable
	}
	resp := make(chan adminSnapshotResp, 1)

	select {
	case w.admin <- adminSnapshotReq{Resp: resp}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case r := <-resp:
		if r.Err != "" {
			return r.Tick, errors.New(r.Err)
		}
		return r.Tick, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (w *World) handleAdminSnapshotRequests(reqs []adminSnapshotReq) {
	if len(reqs) == 0 {
		return
	}
	cur := w.tick.Load()
	snapTick := uint64(0)
	if cur > 0 {
		snapTick = cur - 1
	}

	errStr := ""
	if w.snapshotSink == nil {
		errStr = "snapshot sink not configured"
	} else {
		select {
		case w.snapshotSink <- w.ExportSnapshot(snapTick):
		default:
			errStr = "snapshot sink backpressure"
		}
	}

	resp := adminSnapshotResp{Tick: snapTick, Err: errStr}
	for _, r := range reqs {
		select {
		case r.Resp <- resp:
		default:
			// Client timed out; don't block the sim loop.
		}
	}
}

type stateReq struct {
	Resp chan stateResp
}

type stateResp struct {
	Tick    uint64
	Devices []DeviceView
}

// RequestState returns a consistent copy of every device, taken between ticks.
func (w *World) RequestState(ctx context.Context) ([]DeviceView, uint64, error) {
	if w == nil || w.stateReq == nil {
		return nil, 0, ErrNotAvailable
	}
	resp := make(chan stateResp, 1)
	select {
	case w.stateReq <- stateReq{Resp: resp}:
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
	select {
	case r := <-resp:
		return r.Devices, r.Tick, nil
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
}

func (w *World) handleStateReq(req stateReq) {
	select {
	case req.Resp <- stateResp{Tick: w.tick.Load(), Devices: w.DeviceViews()}:
	default:
	}
}

// DeviceViews copies every device in position order. Only safe from the
// simulation goroutine or when Run is not active.
func (w *World) DeviceViews() []DeviceView {
	out := make([]DeviceView, 0, len(w.devices))
	for _, pos := range w.sortedDevicePositions() {
		out = append(out, w.deviceView(pos, w.devices[pos]))
	}
	return out
}

// DeviceAt returns the view of the device at pos. Same threading rules as DeviceViews.
func (w *World) DeviceAt(pos mathx.Vec3i) (DeviceView, bool) {
	d := w.devices[pos]
	if d == nil {
		return DeviceView{}, false
	}
	return w.deviceView(pos, d), true
}

// Panel gauge heights.
const (
	fuelGaugeScale     = 13
	progressGaugeScale = 22
)

func (w *World) deviceView(pos mathx.Vec3i, d *quarry.Device) DeviceView {
	props := d.Properties()
	status, ok := w.lastStatus[pos]
	if !ok {
		status = quarry.NoTarget
		if w.powered[pos] {
			status = quarry.Paused
		}
	}
	v := DeviceView{
		Pos:           pos.ToArray(),
		Status:        status.String(),
		Properties:    props,
		FilterMode:    d.FilterMode().String(),
		Depth:         d.Depth(),
		RingIndex:     d.RingIndex(),
		RingSize:      d.RingSize(),
		AreaUpgrades:  d.AreaUpgrades(),
		SpeedUpgrades: d.SpeedUpgrades(),
		Reserved:      d.Reserved(),
		Powered:       w.powered[pos],
		FuelGauge:     props.FuelGauge(fuelGaugeScale),
		ProgressGauge: props.ProgressGauge(progressGaugeScale),
	}
	for i, st := range d.Slots() {
		if st.IsEmpty() {
			continue
		}
		v.Slots = append(v.Slots, SlotView{Slot: i, Item: st.Clone()})
	}
	return v
}
