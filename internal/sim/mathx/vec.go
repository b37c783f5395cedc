package mathx

import "fmt"

const ChunkSize = 16

type Vec3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) String() string { return fmt.Sprintf("%d,%d,%d", v.X, v.Y, v.Z) }

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

// Less orders positions by x, then z, then y.
func (v Vec3i) Less(o Vec3i) bool {
	if v.X != o.X {
		return v.X < o.X
	}
	if v.Z != o.Z {
		return v.Z < o.Z
	}
	return v.Y < o.Y
}

type ChunkKey struct {
	CX int `json:"cx"`
	CZ int `json:"cz"`
}

func ChunkOf(p Vec3i) ChunkKey {
	return ChunkKey{CX: FloorDiv(p.X, ChunkSize), CZ: FloorDiv(p.Z, ChunkSize)}
}

// ParseVec3i parses "x,y,z".
func ParseVec3i(s string) (Vec3i, error) {
	var v Vec3i
	if _, err := fmt.Sscanf(s, "%d,%d,%d", &v.X, &v.Y, &v.Z); err != nil {
		return Vec3i{}, fmt.Errorf("bad position %q: %w", s, err)
	}
	return v, nil
}
