// Package reservation keeps a quarry's chunk force-loaded while it works.
package reservation

import "voxelquarry.ai/internal/sim/mathx"

// Loader is the world's chunk-forcing mechanism.
type Loader interface {
	SetChunkForced(key mathx.ChunkKey, forced bool)
}

// Controller is edge-triggered: the loader is only called on transitions.
type Controller struct {
	Chunk    mathx.ChunkKey
	Reserved bool
}

func New(pos mathx.Vec3i) Controller {
	return Controller{Chunk: mathx.ChunkOf(pos)}
}

// Sync requests a transition when active differs from the current reservation.
// Returns true when the loader was called.
func (c *Controller) Sync(l Loader, active bool) bool {
	if active == c.Reserved {
		return false
	}
	if l != nil {
		l.SetChunkForced(c.Chunk, active)
	}
	c.Reserved = active
	return true
}

// Release drops the reservation if held. Safe to call repeatedly.
func (c *Controller) Release(l Loader) bool {
	return c.Sync(l, false)
}
