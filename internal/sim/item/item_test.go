package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStackEmpty(t *testing.T) {
	assert.True(t, Stack{}.IsEmpty())
	assert.True(t, Of("COAL", 0).IsEmpty())
	assert.False(t, Of("COAL", 1).IsEmpty())
}

func TestCanMergeComparesComponents(t *testing.T) {
	a := Stack{ID: "IRON_PICKAXE", Count: 1, Enchantments: map[string]int{Efficiency: 2}}
	b := a.Clone()
	assert.True(t, a.CanMerge(b))

	b.Enchantments[Efficiency] = 3
	assert.False(t, a.CanMerge(b))
	assert.Equal(t, 2, a.Level(Efficiency), "clone must not share the enchantment map")

	c := Stack{ID: "IRON_PICKAXE", Count: 1, Damage: 4, Enchantments: map[string]int{Efficiency: 2}}
	assert.False(t, a.CanMerge(c))
	assert.True(t, a.SameKind(c))
}

func TestRegistryDefaults(t *testing.T) {
	r := NewRegistry([]Def{
		{ID: "LAVA_BUCKET", Kind: "FUEL", MaxStack: 1},
		{ID: "IRON_PICKAXE", Kind: "TOOL", MaxStack: 1, MaxDamage: 250},
	})
	assert.Equal(t, 1, r.MaxStack("LAVA_BUCKET"))
	assert.Equal(t, DefaultMaxStack, r.MaxStack("COBBLESTONE"))
	assert.True(t, r.Damageable("IRON_PICKAXE"))
	assert.False(t, r.Damageable("COAL"))

	var nilReg *Registry
	assert.Equal(t, DefaultMaxStack, nilReg.MaxStack("X"))
}
