package store

import (
	"crypto/sha256"
	"encoding/binary"

	"voxelquarry.ai/internal/sim/mathx"
)

type ChunkKey = mathx.ChunkKey

const ChunkSize = mathx.ChunkSize

// Chunk is a 16x16 column of Height blocks starting at the world's bottom Y.
type Chunk struct {
	CX, CZ int
	Height int
	Blocks []uint16 // len = 16*16*Height

	dirty bool
	hash  [32]byte
}

func NewChunk(cx, cz, height int) *Chunk {
	return &Chunk{CX: cx, CZ: cz, Height: height, Blocks: make([]uint16, ChunkSize*ChunkSize*height)}
}

// x fastest, then z, then y.
func (c *Chunk) index(x, ly, z int) int {
	return x + z*ChunkSize + ly*ChunkSize*ChunkSize
}

func (c *Chunk) Get(x, ly, z int) uint16 {
	return c.Blocks[c.index(x, ly, z)]
}

func (c *Chunk) Set(x, ly, z int, b uint16) {
	i := c.index(x, ly, z)
	if c.Blocks[i] == b {
		return
	}
	c.Blocks[i] = b
	c.dirty = true
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// WorldGen fixes the vertical extent, the seed and the palette ids the generator places.
type WorldGen struct {
	Seed     int64
	BottomY  int
	Height   int
	SurfaceY int

	OreProbScalePermille int
	GravelPermille       int

	Air        uint16
	Bedrock    uint16
	Stone      uint16
	Dirt       uint16
	Grass      uint16
	Gravel     uint16
	CoalOre    uint16
	IronOre    uint16
	CopperOre  uint16
	DiamondOre uint16
}

func (g WorldGen) TopY() int { return g.BottomY + g.Height - 1 }

type ChunkStore struct {
	Gen    WorldGen
	Chunks map[ChunkKey]*Chunk
}

func NewChunkStore(gen WorldGen) *ChunkStore {
	return &ChunkStore{
		Gen:    gen,
		Chunks: map[ChunkKey]*Chunk{},
	}
}
