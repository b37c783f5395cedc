package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voxelquarry.ai/internal/sim/quarry/upgrades"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int   `yaml:"tick_rate_hz"`
	Seed               int64 `yaml:"seed"`
	SnapshotEveryTicks int   `yaml:"snapshot_every_ticks"`

	World  WorldShape   `yaml:"world"`
	Quarry QuarryTuning `yaml:"quarry"`
}

type WorldShape struct {
	BottomY              int `yaml:"bottom_y"`
	Height               int `yaml:"height"`
	SurfaceY             int `yaml:"surface_y"`
	OreProbScalePermille int `yaml:"ore_prob_scale_permille"`
	GravelPermille       int `yaml:"gravel_permille"`
}

type QuarryTuning struct {
	BaseArea         int       `yaml:"base_area"`
	AreaStep         int       `yaml:"area_step"`
	MaxArea          int       `yaml:"max_area"`
	SpeedMultipliers []float64 `yaml:"speed_multipliers"`
	StackLimit       int       `yaml:"stack_limit"`
}

func Defaults() Tuning {
	m := upgrades.Default()
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         20,
		Seed:               1337,
		SnapshotEveryTicks: 3000,
		World: WorldShape{
			BottomY:              -64,
			Height:               128,
			SurfaceY:             40,
			OreProbScalePermille: 1000,
			GravelPermille:       120,
		},
		Quarry: QuarryTuning{
			BaseArea:         m.BaseArea,
			AreaStep:         m.AreaStep,
			MaxArea:          m.MaxArea,
			SpeedMultipliers: m.SpeedMultipliers,
			StackLimit:       64,
		},
	}
}

// Load reads path over Defaults: keys missing from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return errors.New("tick_rate_hz must be > 0")
	}
	if t.SnapshotEveryTicks < 0 {
		return errors.New("snapshot_every_ticks must be >= 0")
	}
	if t.World.Height < 2 {
		return fmt.Errorf("world.height must be >= 2, got %d", t.World.Height)
	}
	if t.World.SurfaceY <= t.World.BottomY || t.World.SurfaceY >= t.World.BottomY+t.World.Height {
		return fmt.Errorf("world.surface_y %d outside (%d,%d)", t.World.SurfaceY, t.World.BottomY, t.World.BottomY+t.World.Height)
	}
	if t.Quarry.StackLimit <= 0 {
		return errors.New("quarry.stack_limit must be > 0")
	}
	if err := t.Upgrades().Validate(); err != nil {
		return fmt.Errorf("quarry: %w", err)
	}
	return nil
}

// Upgrades converts the quarry section into an upgrade model.
func (t Tuning) Upgrades() upgrades.Model {
	mults := make([]float64, len(t.Quarry.SpeedMultipliers))
	copy(mults, t.Quarry.SpeedMultipliers)
	return upgrades.Model{
		BaseArea:         t.Quarry.BaseArea,
		AreaStep:         t.Quarry.AreaStep,
		MaxArea:          t.Quarry.MaxArea,
		SpeedMultipliers: mults,
	}
}
