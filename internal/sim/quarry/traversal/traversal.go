// Package traversal walks the square layers below a quarry, one depth at a time.
package traversal

import "voxelquarry.ai/internal/sim/mathx"

// MinAttempts is the lower bound on candidates examined per NextTarget call.
const MinAttempts = 512

// Cursor is the resumable position of the walk. Depth starts at 1.
type Cursor struct {
	Depth int `json:"depth"`
	Index int `json:"index"`
}

func NewCursor() Cursor { return Cursor{Depth: 1} }

// Offset returns the lateral offset of index within a size x size square centered on the origin.
func Offset(index, size int) mathx.Vec3i {
	radius := size / 2
	return mathx.Vec3i{X: index%size - radius, Y: 0, Z: index/size - radius}
}

// Clamp restores cursor invariants for a layer of the given slot count.
func (c *Cursor) Clamp(layerSlots int) {
	if c.Depth < 1 {
		c.Depth = 1
	}
	maxIndex := layerSlots - 1
	if maxIndex < 0 {
		maxIndex = 0
	}
	c.Index = mathx.Clamp(c.Index, 0, maxIndex)
}

func (c *Cursor) advance(layerSlots int) {
	c.Index++
	if c.Index >= layerSlots {
		c.Index = 0
		c.Depth++
	}
}

// MaxAttempts is the per-call candidate cap for a square of the given side.
func MaxAttempts(size int) int {
	n := 2 * size * size
	if n < MinAttempts {
		return MinAttempts
	}
	return n
}

// NextTarget scans candidates row-major from the cursor, advancing on every
// candidate examined, until accept returns true. It stops without a target
// once the attempt cap is hit or the next depth would fall below bottomY.
func (c *Cursor) NextTarget(origin mathx.Vec3i, bottomY, size int, accept func(mathx.Vec3i) bool) (mathx.Vec3i, bool) {
	if size <= 0 {
		return mathx.Vec3i{}, false
	}
	slots := size * size
	c.Clamp(slots)

	limit := MaxAttempts(size)
	for attempts := 0; attempts < limit && origin.Y-c.Depth >= bottomY; attempts++ {
		off := Offset(c.Index, size)
		target := mathx.Vec3i{X: origin.X + off.X, Y: origin.Y - c.Depth, Z: origin.Z + off.Z}
		c.advance(slots)
		if accept == nil || accept(target) {
			return target, true
		}
	}
	return mathx.Vec3i{}, false
}
