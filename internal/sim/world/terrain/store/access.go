package store

import (
	"sort"

	"voxelquarry.ai/internal/sim/mathx"
)

func (s *ChunkStore) InBounds(y int) bool {
	return y >= s.Gen.BottomY && y <= s.Gen.TopY()
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// GetBlock returns Air outside the vertical extent.
func (s *ChunkStore) GetBlock(p mathx.Vec3i) uint16 {
	if !s.InBounds(p.Y) {
		return s.Gen.Air
	}
	ch := s.GetOrGenChunk(mathx.ChunkOf(p))
	return ch.Get(mathx.Mod(p.X, ChunkSize), p.Y-s.Gen.BottomY, mathx.Mod(p.Z, ChunkSize))
}

// SetBlock ignores writes outside the vertical extent.
func (s *ChunkStore) SetBlock(p mathx.Vec3i, b uint16) bool {
	if !s.InBounds(p.Y) {
		return false
	}
	ch := s.GetOrGenChunk(mathx.ChunkOf(p))
	ch.Set(mathx.Mod(p.X, ChunkSize), p.Y-s.Gen.BottomY, mathx.Mod(p.Z, ChunkSize), b)
	return true
}

func (s *ChunkStore) GetOrGenChunk(k ChunkKey) *Chunk {
	if ch, ok := s.Chunks[k]; ok {
		return ch
	}
	ch := NewChunk(k.CX, k.CZ, s.Gen.Height)
	s.GenerateChunk(ch)
	ch.dirty = true
	_ = ch.Digest()
	s.Chunks[k] = ch
	return ch
}
