// Package upgrades maps quarry upgrade counts to mining area and speed.
package upgrades

import (
	"errors"
	"fmt"

	"voxelquarry.ai/internal/sim/mathx"
)

const (
	BaseArea = 5
	MaxArea  = 15
	AreaStep = 2
)

var defaultSpeedMultipliers = []float64{
	1.0,
	0.8,
	0.64,
	0.512,
	0.4096,
	0.32768,
}

// Model holds the upgrade tables. The zero value is not usable; start from Default.
type Model struct {
	BaseArea         int
	AreaStep         int
	MaxArea          int
	SpeedMultipliers []float64
}

func Default() Model {
	mults := make([]float64, len(defaultSpeedMultipliers))
	copy(mults, defaultSpeedMultipliers)
	return Model{
		BaseArea:         BaseArea,
		AreaStep:         AreaStep,
		MaxArea:          MaxArea,
		SpeedMultipliers: mults,
	}
}

func (m Model) Validate() error {
	if m.BaseArea <= 0 || m.BaseArea%2 == 0 {
		return fmt.Errorf("base area must be odd and positive, got %d", m.BaseArea)
	}
	if m.AreaStep <= 0 || m.AreaStep%2 != 0 {
		return fmt.Errorf("area step must be even and positive, got %d", m.AreaStep)
	}
	if m.MaxArea < m.BaseArea || m.MaxArea%2 == 0 {
		return fmt.Errorf("max area must be odd and >= base area, got %d", m.MaxArea)
	}
	if len(m.SpeedMultipliers) == 0 {
		return errors.New("speed multiplier table is empty")
	}
	prev := 1.0
	for i, v := range m.SpeedMultipliers {
		if v <= 0 || v > prev {
			return fmt.Errorf("speed multiplier %d (%v) must be in (0,%v]", i, v, prev)
		}
		prev = v
	}
	return nil
}

func (m Model) MaxAreaUpgrades() int {
	if m.AreaStep <= 0 {
		return 0
	}
	return (m.MaxArea - m.BaseArea) / m.AreaStep
}

func (m Model) MaxSpeedUpgrades() int {
	if len(m.SpeedMultipliers) == 0 {
		return 0
	}
	return len(m.SpeedMultipliers) - 1
}

func (m Model) ClampArea(count int) int { return mathx.Clamp(count, 0, m.MaxAreaUpgrades()) }

func (m Model) ClampSpeed(count int) int { return mathx.Clamp(count, 0, m.MaxSpeedUpgrades()) }

// RingSize is the side length of the square mined at each depth. Always odd.
func (m Model) RingSize(areaUpgrades int) int {
	size := m.BaseArea + m.ClampArea(areaUpgrades)*m.AreaStep
	if size > m.MaxArea {
		size = m.MaxArea
	}
	return size
}

// LayerSlots is RingSize squared.
func (m Model) LayerSlots(areaUpgrades int) int {
	size := m.RingSize(areaUpgrades)
	return size * size
}

func (m Model) SpeedMultiplier(speedUpgrades int) float64 {
	if len(m.SpeedMultipliers) == 0 {
		return 1.0
	}
	return m.SpeedMultipliers[m.ClampSpeed(speedUpgrades)]
}
