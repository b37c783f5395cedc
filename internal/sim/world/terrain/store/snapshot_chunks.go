package store

import (
	"fmt"

	snapv1 "voxelquarry.ai/internal/persistence/snapshot"
)

// ExportLoadedChunks converts loaded chunk data into snapshot chunks.
func ExportLoadedChunks(chunks map[ChunkKey]*Chunk, keys []ChunkKey) []snapv1.ChunkV1 {
	out := make([]snapv1.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch := chunks[k]
		if ch == nil {
			continue
		}
		blocks := make([]uint16, len(ch.Blocks))
		copy(blocks, ch.Blocks)
		out = append(out, snapv1.ChunkV1{
			CX:     k.CX,
			CZ:     k.CZ,
			Height: ch.Height,
			Blocks: blocks,
		})
	}
	return out
}

// ImportChunks rebuilds a chunk store from snapshot chunks. Every chunk must
// match the generator's height.
func ImportChunks(gen WorldGen, chunks []snapv1.ChunkV1) (*ChunkStore, error) {
	store := NewChunkStore(gen)
	want := ChunkSize * ChunkSize * gen.Height
	for _, ch := range chunks {
		if ch.Height != gen.Height {
			return nil, fmt.Errorf("snapshot chunk %d,%d height mismatch: got %d want %d", ch.CX, ch.CZ, ch.Height, gen.Height)
		}
		if len(ch.Blocks) != want {
			return nil, fmt.Errorf("snapshot chunk %d,%d blocks length mismatch: got %d want %d", ch.CX, ch.CZ, len(ch.Blocks), want)
		}
		k := ChunkKey{CX: ch.CX, CZ: ch.CZ}
		c := NewChunk(ch.CX, ch.CZ, ch.Height)
		copy(c.Blocks, ch.Blocks)
		_ = c.Digest()
		store.Chunks[k] = c
	}
	return store, nil
}
