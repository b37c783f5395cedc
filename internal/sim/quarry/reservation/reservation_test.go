package reservation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"voxelquarry.ai/internal/sim/mathx"
)

type call struct {
	key    mathx.ChunkKey
	forced bool
}

type recorder struct{ calls []call }

func (r *recorder) SetChunkForced(key mathx.ChunkKey, forced bool) {
	r.calls = append(r.calls, call{key, forced})
}

func TestSyncIsEdgeTriggered(t *testing.T) {
	rec := &recorder{}
	c := New(mathx.Vec3i{X: 33, Y: 70, Z: -1})

	assert.False(t, c.Sync(rec, false))
	assert.True(t, c.Sync(rec, true))
	assert.False(t, c.Sync(rec, true))
	assert.False(t, c.Sync(rec, true))
	assert.True(t, c.Sync(rec, false))
	assert.False(t, c.Sync(rec, false))

	want := []call{
		{mathx.ChunkKey{CX: 2, CZ: -1}, true},
		{mathx.ChunkKey{CX: 2, CZ: -1}, false},
	}
	assert.Equal(t, want, rec.calls)
}

func TestReleaseIsIdempotent(t *testing.T) {
	rec := &recorder{}
	c := New(mathx.Vec3i{})
	c.Sync(rec, true)

	assert.True(t, c.Release(rec))
	assert.False(t, c.Release(rec))
	assert.Len(t, rec.calls, 2)
	assert.False(t, c.Reserved)
}
