package traversal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelquarry.ai/internal/sim/mathx"
)

func TestOffsetRasterOrder(t *testing.T) {
	assert.Equal(t, mathx.Vec3i{X: -2, Z: -2}, Offset(0, 5))
	assert.Equal(t, mathx.Vec3i{X: 2, Z: -2}, Offset(4, 5))
	assert.Equal(t, mathx.Vec3i{X: -2, Z: -1}, Offset(5, 5))
	assert.Equal(t, mathx.Vec3i{X: 0, Z: 0}, Offset(12, 5))
	assert.Equal(t, mathx.Vec3i{X: 2, Z: 2}, Offset(24, 5))
}

func TestNextTargetVisitsLayerThenDescends(t *testing.T) {
	origin := mathx.Vec3i{X: 10, Y: 64, Z: -4}
	c := NewCursor()
	seen := map[mathx.Vec3i]bool{}
	for i := 0; i < 25; i++ {
		p, ok := c.NextTarget(origin, 0, 5, func(mathx.Vec3i) bool { return true })
		require.True(t, ok)
		require.Equal(t, 63, p.Y)
		require.False(t, seen[p], "revisited %v", p)
		seen[p] = true
	}
	assert.Equal(t, Cursor{Depth: 2, Index: 0}, c)

	p, ok := c.NextTarget(origin, 0, 5, nil)
	require.True(t, ok)
	assert.Equal(t, mathx.Vec3i{X: 8, Y: 62, Z: -6}, p)
}

func TestNextTargetAdvancesOnRejectedCandidates(t *testing.T) {
	origin := mathx.Vec3i{Y: 10}
	c := NewCursor()
	p, ok := c.NextTarget(origin, 0, 5, func(p mathx.Vec3i) bool { return p.X == 0 && p.Z == 0 })
	require.True(t, ok)
	assert.Equal(t, mathx.Vec3i{X: 0, Y: 9, Z: 0}, p)
	assert.Equal(t, 13, c.Index)
}

func TestNextTargetRespectsAttemptCap(t *testing.T) {
	origin := mathx.Vec3i{Y: 5000}
	c := NewCursor()
	examined := 0
	_, ok := c.NextTarget(origin, 0, 5, func(mathx.Vec3i) bool {
		examined++
		return false
	})
	assert.False(t, ok)
	assert.Equal(t, MinAttempts, examined)
	assert.Equal(t, 1+MinAttempts/25, c.Depth)

	c = NewCursor()
	examined = 0
	_, _ = c.NextTarget(origin, 0, 17, func(mathx.Vec3i) bool {
		examined++
		return false
	})
	assert.Equal(t, 2*17*17, examined)
}

func TestNextTargetStopsAtBottom(t *testing.T) {
	origin := mathx.Vec3i{Y: 2}
	c := NewCursor()
	examined := 0
	_, ok := c.NextTarget(origin, 0, 5, func(mathx.Vec3i) bool {
		examined++
		return false
	})
	assert.False(t, ok)
	assert.Equal(t, 50, examined, "depths 1 and 2 are above the bottom, depth 3 is not")
	assert.Equal(t, 3, c.Depth)

	_, ok = c.NextTarget(origin, 0, 5, func(mathx.Vec3i) bool { return true })
	assert.False(t, ok)
}

func TestClamp(t *testing.T) {
	c := Cursor{Depth: 0, Index: 200}
	c.Clamp(25)
	assert.Equal(t, Cursor{Depth: 1, Index: 24}, c)

	c = Cursor{Depth: 4, Index: -3}
	c.Clamp(49)
	assert.Equal(t, Cursor{Depth: 4, Index: 0}, c)
}

func TestDeterministicSequence(t *testing.T) {
	walk := func() []mathx.Vec3i {
		c := NewCursor()
		var out []mathx.Vec3i
		accept := func(p mathx.Vec3i) bool { return (p.X+p.Z)%3 != 0 }
		for i := 0; i < 40; i++ {
			p, ok := c.NextTarget(mathx.Vec3i{Y: 30}, 0, 7, accept)
			require.True(t, ok)
			out = append(out, p)
		}
		return out
	}
	assert.Equal(t, walk(), walk())
}
