package store

import genpkg "voxelquarry.ai/internal/sim/world/terrain/gen"

// GenerateChunk fills ch from the seed: bedrock floor, stone body with ore
// pockets, a few dirt layers capped with grass, air above.
func (s *ChunkStore) GenerateChunk(ch *Chunk) {
	g := s.Gen
	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			wx := ch.CX*ChunkSize + x
			wz := ch.CZ*ChunkSize + z
			surface := g.SurfaceY + genpkg.SurfaceOffset(g.Seed, wx, wz)

			for ly := 0; ly < ch.Height; ly++ {
				wy := g.BottomY + ly
				ch.Blocks[ch.index(x, ly, z)] = s.blockAt(wx, wy, wz, surface)
			}
		}
	}
}

func (s *ChunkStore) blockAt(x, y, z, surface int) uint16 {
	g := s.Gen
	switch {
	case y == g.BottomY:
		return g.Bedrock
	case y > surface:
		return g.Air
	case y == surface:
		return g.Grass
	case y > surface-4:
		return g.Dirt
	}

	depth := surface - y
	scale := g.OreProbScalePermille
	switch {
	case depth > 24 && genpkg.InPocket(g.Seed+101, x, y, z, 16, 1, genpkg.ScalePermille(250, scale)):
		return g.DiamondOre
	case genpkg.InPocket(g.Seed+102, x, y, z, 12, 2, genpkg.ScalePermille(350, scale)):
		return g.IronOre
	case genpkg.InPocket(g.Seed+103, x, y, z, 12, 2, genpkg.ScalePermille(350, scale)):
		return g.CopperOre
	case genpkg.InPocket(g.Seed+104, x, y, z, 8, 2, genpkg.ScalePermille(450, scale)):
		return g.CoalOre
	case genpkg.InPocket(g.Seed+105, x, y, z, 10, 2, uint64(genpkg.ClampPermille(g.GravelPermille))):
		return g.Gravel
	}
	return g.Stone
}
