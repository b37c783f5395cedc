package quarry

import (
	"errors"
	"fmt"

	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mining"
	"voxelquarry.ai/internal/sim/quarry/fuel"
	"voxelquarry.ai/internal/sim/quarry/upgrades"
)

// Config is shared by every device in a world. It is read-only after construction.
type Config struct {
	Upgrades upgrades.Model
	Fuel     fuel.Table
	Tools    mining.ToolTable
	Items    *item.Registry

	// StackLimit caps every output slot; <= 0 means item.DefaultMaxStack.
	StackLimit int
}

func DefaultConfig() Config {
	return Config{
		Upgrades:   upgrades.Default(),
		Fuel:       fuel.DefaultTable(),
		Tools:      mining.DefaultToolTable(),
		Items:      item.NewRegistry(defaultItems()),
		StackLimit: item.DefaultMaxStack,
	}
}

func (c Config) Validate() error {
	if err := c.Upgrades.Validate(); err != nil {
		return fmt.Errorf("upgrades: %w", err)
	}
	if len(c.Tools) == 0 {
		return errors.New("tool table is empty")
	}
	for id, ticks := range c.Tools {
		if ticks <= 0 {
			return fmt.Errorf("tool %s: base ticks must be > 0", id)
		}
	}
	for id, ch := range c.Fuel {
		if ch.Value < 0 {
			return fmt.Errorf("fuel %s: negative charge", id)
		}
	}
	return nil
}

func (c Config) stackLimit() int {
	if c.StackLimit <= 0 {
		return item.DefaultMaxStack
	}
	return c.StackLimit
}

func defaultItems() []item.Def {
	defs := []item.Def{
		{ID: "WOODEN_PICKAXE", Kind: "TOOL", MaxStack: 1, MaxDamage: 59},
		{ID: "STONE_PICKAXE", Kind: "TOOL", MaxStack: 1, MaxDamage: 131},
		{ID: "COPPER_PICKAXE", Kind: "TOOL", MaxStack: 1, MaxDamage: 190},
		{ID: "IRON_PICKAXE", Kind: "TOOL", MaxStack: 1, MaxDamage: 250},
		{ID: "GOLDEN_PICKAXE", Kind: "TOOL", MaxStack: 1, MaxDamage: 32},
		{ID: "DIAMOND_PICKAXE", Kind: "TOOL", MaxStack: 1, MaxDamage: 1561},
		{ID: "NETHERITE_PICKAXE", Kind: "TOOL", MaxStack: 1, MaxDamage: 2031},
		{ID: "LAVA_BUCKET", Kind: "FUEL", MaxStack: 1},
		{ID: "BUCKET", Kind: "MATERIAL", MaxStack: 16},
	}
	return defs
}
