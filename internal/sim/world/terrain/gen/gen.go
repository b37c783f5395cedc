// Package gen holds the deterministic noise helpers used to lay out terrain.
package gen

import "voxelquarry.ai/internal/sim/mathx"

func ClampPermille(v int) int {
	return mathx.Clamp(v, 0, 1000)
}

func ScalePermille(base uint64, scalePermille int) uint64 {
	if scalePermille <= 0 {
		scalePermille = 1000
	}
	scaled := (base*uint64(scalePermille) + 500) / 1000
	if scaled > 1000 {
		return 1000
	}
	return scaled
}

// InPocket reports whether (x,y,z) falls inside a spherical pocket. Space is
// divided into grid-sized cells; each cell holds at most one pocket center,
// present with probability probPermille.
func InPocket(seed int64, x, y, z, grid, radius int, probPermille uint64) bool {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := mathx.FloorDiv(x, grid)
	gy := mathx.FloorDiv(y, grid)
	gz := mathx.FloorDiv(z, grid)
	r2 := radius * radius

	for dy := -1; dy <= 1; dy++ {
		for dz := -1; dz <= 1; dz++ {
			for dx := -1; dx <= 1; dx++ {
				cgx, cgy, cgz := gx+dx, gy+dy, gz+dz
				h := mathx.Hash3(seed, cgx, cgy, cgz)
				if h%1000 >= probPermille {
					continue
				}
				cx := cgx*grid + int((h>>10)%uint64(grid))
				cy := cgy*grid + int((h>>20)%uint64(grid))
				cz := cgz*grid + int((h>>30)%uint64(grid))

				ddx, ddy, ddz := x-cx, y-cy, z-cz
				if ddx*ddx+ddy*ddy+ddz*ddz <= r2 {
					return true
				}
			}
		}
	}
	return false
}

// SurfaceOffset is a small deterministic height jitter in [-1,1] per column.
func SurfaceOffset(seed int64, x, z int) int {
	return int(mathx.Hash2(seed+17, x, z)%3) - 1
}
