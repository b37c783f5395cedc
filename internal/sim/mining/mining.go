package mining

import "math"

// ToolTable maps a pickaxe item id to its base ticks per excavation.
type ToolTable map[string]int

func DefaultToolTable() ToolTable {
	return ToolTable{
		"WOODEN_PICKAXE":    200,
		"STONE_PICKAXE":     160,
		"COPPER_PICKAXE":    140,
		"IRON_PICKAXE":      120,
		"GOLDEN_PICKAXE":    20,
		"DIAMOND_PICKAXE":   80,
		"NETHERITE_PICKAXE": 40,
	}
}

func (t ToolTable) IsTool(id string) bool {
	return t.BaseTicks(id) > 0
}

func (t ToolTable) BaseTicks(id string) int {
	if len(t) == 0 || id == "" {
		return 0
	}
	return t[id]
}

// ApplyEfficiency divides base ticks by 1 + 0.25*(level^2+1), rounded.
func ApplyEfficiency(baseTicks, level int) int {
	if level <= 0 {
		return baseTicks
	}
	mult := 1.0 + 0.25*float64(level*level+1)
	return int(math.Round(float64(baseTicks) / mult))
}

// TicksPerUnit combines tool base ticks, efficiency and a speed multiplier.
// Returns 0 when baseTicks is 0, otherwise at least 1.
func TicksPerUnit(baseTicks, efficiency int, speedMultiplier float64) int {
	if baseTicks <= 0 {
		return 0
	}
	ticks := ApplyEfficiency(baseTicks, efficiency)
	ticks = int(math.Round(float64(ticks) * speedMultiplier))
	if ticks < 1 {
		return 1
	}
	return ticks
}
