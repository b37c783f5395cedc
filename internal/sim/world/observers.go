package world

import "context"

type observerJoinReq struct {
	ID  string
	Out chan TickUpdate
}

// AddObserver registers out to receive one TickUpdate per tick. A slow
// observer loses older updates, never the latest one.
func (w *World) AddObserver(ctx context.Context, id string, out chan TickUpdate) error {
	select {
	case w.observerJoin <- observerJoinReq{ID: id, Out: out}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *World) RemoveObserver(ctx context.Context, id string) error {
	select {
	case w.observerLeave <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *World) publishObservers(tick uint64, digest string) {
	if len(w.observers) == 0 {
		return
	}
	upd := TickUpdate{Tick: tick, Digest: digest, Devices: w.DeviceViews()}
	for _, ch := range w.observers {
		sendLatest(ch, upd)
	}
}

func sendLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
