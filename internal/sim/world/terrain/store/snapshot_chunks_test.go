package store

import (
	"testing"

	snapv1 "voxelquarry.ai/internal/persistence/snapshot"
	"voxelquarry.ai/internal/sim/mathx"
)

func testGen() WorldGen {
	return WorldGen{
		Seed: 7, BottomY: -8, Height: 32, SurfaceY: 16,
		Air: 0, Bedrock: 1, Stone: 2, Dirt: 3, Grass: 4, Gravel: 5,
		CoalOre: 6, IronOre: 7, CopperOre: 8, DiamondOre: 9,
	}
}

func TestExportAndImportChunksRoundTrip(t *testing.T) {
	gen := testGen()
	s := NewChunkStore(gen)
	ch := NewChunk(1, -2, gen.Height)
	ch.Blocks[0] = 3
	ch.Blocks[16*16*5+17] = 9
	s.Chunks[ChunkKey{CX: ch.CX, CZ: ch.CZ}] = ch

	exported := ExportLoadedChunks(s.Chunks, []ChunkKey{{CX: 1, CZ: -2}, {CX: 5, CZ: 5}})
	if len(exported) != 1 {
		t.Fatalf("expected 1 exported chunk, got %d", len(exported))
	}
	if exported[0].Height != gen.Height {
		t.Fatalf("exported height: got %d want %d", exported[0].Height, gen.Height)
	}

	imported, err := ImportChunks(gen, exported)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	got := imported.Chunks[ChunkKey{CX: 1, CZ: -2}]
	if got == nil {
		t.Fatalf("missing imported chunk")
	}
	if got.Blocks[0] != 3 || got.Blocks[16*16*5+17] != 9 {
		t.Fatalf("unexpected imported blocks: got %d,%d", got.Blocks[0], got.Blocks[16*16*5+17])
	}
	if got.Digest() != ch.Digest() {
		t.Fatalf("digest changed across round trip")
	}
}

func TestImportChunksRejectsInvalidShape(t *testing.T) {
	gen := testGen()
	_, err := ImportChunks(gen, []snapv1.ChunkV1{{Height: 2, Blocks: make([]uint16, 16*16*2)}})
	if err == nil {
		t.Fatalf("expected error for height mismatch")
	}
	_, err = ImportChunks(gen, []snapv1.ChunkV1{{Height: gen.Height, Blocks: make([]uint16, 10)}})
	if err == nil {
		t.Fatalf("expected error for short block slice")
	}
}

func TestGeneratedColumnLayers(t *testing.T) {
	gen := testGen()
	s := NewChunkStore(gen)

	for _, col := range [][2]int{{0, 0}, {-5, 9}, {31, -17}} {
		x, z := col[0], col[1]
		if b := s.GetBlock(mathx.Vec3i{X: x, Y: gen.BottomY, Z: z}); b != gen.Bedrock {
			t.Fatalf("column %v: bottom is %d, want bedrock", col, b)
		}
		if b := s.GetBlock(mathx.Vec3i{X: x, Y: gen.TopY(), Z: z}); b != gen.Air {
			t.Fatalf("column %v: top is %d, want air", col, b)
		}
		grass := 0
		for y := gen.SurfaceY - 1; y <= gen.SurfaceY+1; y++ {
			if s.GetBlock(mathx.Vec3i{X: x, Y: y, Z: z}) == gen.Grass {
				grass++
			}
		}
		if grass != 1 {
			t.Fatalf("column %v: expected one grass block near the surface, got %d", col, grass)
		}
	}
	if b := s.GetBlock(mathx.Vec3i{Y: gen.BottomY - 1}); b != gen.Air {
		t.Fatalf("below the world should read as air, got %d", b)
	}
	if s.SetBlock(mathx.Vec3i{Y: gen.TopY() + 1}, gen.Stone) {
		t.Fatalf("write above the world should be refused")
	}
}

func TestGenerationIsDeterministic(t *testing.T) {
	a := NewChunkStore(testGen()).GetOrGenChunk(ChunkKey{CX: -1, CZ: 2})
	b := NewChunkStore(testGen()).GetOrGenChunk(ChunkKey{CX: -1, CZ: 2})
	if a.Digest() != b.Digest() {
		t.Fatalf("same seed produced different chunks")
	}

	other := testGen()
	other.Seed = 8
	c := NewChunkStore(other).GetOrGenChunk(ChunkKey{CX: -1, CZ: 2})
	if a.Digest() == c.Digest() {
		t.Fatalf("different seeds produced identical chunks")
	}
}

func TestSetBlockUpdatesDigest(t *testing.T) {
	s := NewChunkStore(testGen())
	p := mathx.Vec3i{X: 3, Y: 0, Z: 3}
	before := s.GetOrGenChunk(mathx.ChunkOf(p)).Digest()
	if !s.SetBlock(p, 0) {
		t.Fatalf("set refused")
	}
	if s.GetBlock(p) != 0 {
		t.Fatalf("block not written")
	}
	if s.GetOrGenChunk(mathx.ChunkOf(p)).Digest() == before {
		t.Fatalf("digest not refreshed after write")
	}
}
