package world

import (
	"voxelquarry.ai/internal/sim/quarry/upgrades"
	"voxelquarry.ai/internal/sim/tuning"
)

type WorldConfig struct {
	ID         string
	TickRateHz int
	Seed       int64

	BottomY  int
	Height   int
	SurfaceY int

	OreProbScalePermille int
	GravelPermille       int

	// Operational parameters. These are included in snapshots for deterministic replay/resume.
	SnapshotEveryTicks int
	StackLimit         int

	Upgrades upgrades.Model
}

// ConfigFromTuning fills a world config from a loaded tuning file.
func ConfigFromTuning(id string, t tuning.Tuning) WorldConfig {
	return WorldConfig{
		ID:                   id,
		TickRateHz:           t.TickRateHz,
		Seed:                 t.Seed,
		BottomY:              t.World.BottomY,
		Height:               t.World.Height,
		SurfaceY:             t.World.SurfaceY,
		OreProbScalePermille: t.World.OreProbScalePermille,
		GravelPermille:       t.World.GravelPermille,
		SnapshotEveryTicks:   t.SnapshotEveryTicks,
		StackLimit:           t.Quarry.StackLimit,
		Upgrades:             t.Upgrades(),
	}
}

func (c *WorldConfig) applyDefaults() {
	d := tuning.Defaults()
	if c.TickRateHz <= 0 {
		c.TickRateHz = d.TickRateHz
	}
	if c.Height <= 1 {
		c.BottomY = d.World.BottomY
		c.Height = d.World.Height
	}
	if c.SurfaceY <= c.BottomY || c.SurfaceY >= c.BottomY+c.Height {
		c.SurfaceY = c.BottomY + c.Height*3/4
	}
	if c.OreProbScalePermille <= 0 {
		c.OreProbScalePermille = d.World.OreProbScalePermille
	}
	if c.StackLimit <= 0 {
		c.StackLimit = d.Quarry.StackLimit
	}
	if c.Upgrades.Validate() != nil {
		c.Upgrades = upgrades.Default()
	}
}
