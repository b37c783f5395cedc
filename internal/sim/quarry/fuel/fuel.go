// Package fuel converts consumable items into excavation budget.
package fuel

import "voxelquarry.ai/internal/sim/item"

// Charge is what one unit of a fuel item is worth.
type Charge struct {
	Value   int    `json:"value"`
	Residue string `json:"residue,omitempty"`
}

// Table maps item ids to charges. Unknown items are worth nothing.
type Table map[string]Charge

func DefaultTable() Table {
	t := Table{
		"COAL":             {Value: 8},
		"CHARCOAL":         {Value: 8},
		"BLAZE_ROD":        {Value: 12},
		"DRIED_KELP_BLOCK": {Value: 20},
		"COAL_BLOCK":       {Value: 80},
		"LAVA_BUCKET":      {Value: 100, Residue: "BUCKET"},
		"STICK":            {Value: 1},
		"BAMBOO":           {Value: 1},
	}
	for _, wood := range []string{"OAK", "SPRUCE", "BIRCH", "JUNGLE", "ACACIA", "DARK_OAK", "MANGROVE", "CHERRY"} {
		t[wood+"_LOG"] = Charge{Value: 2}
		t[wood+"_PLANKS"] = Charge{Value: 2}
	}
	t["BAMBOO_PLANKS"] = Charge{Value: 2}
	return t
}

func (t Table) ChargeValue(s item.Stack) int {
	if s.IsEmpty() || len(t) == 0 {
		return 0
	}
	c := t[s.ID]
	if c.Value < 0 {
		return 0
	}
	return c.Value
}

// IsResidue reports whether id is left behind by some fuel (e.g. an empty bucket).
func (t Table) IsResidue(id string) bool {
	if id == "" {
		return false
	}
	for _, c := range t {
		if c.Residue == id {
			return true
		}
	}
	return false
}

// Tank is the remaining excavation budget and the size of the last charge.
type Tank struct {
	Budget     int
	LastCharge int
}

// TryConsume burns one unit from slot. On failure LastCharge is reset to 0.
func (k *Tank) TryConsume(slot *item.Stack, table Table) bool {
	if slot == nil {
		k.LastCharge = 0
		return false
	}
	gained := table.ChargeValue(*slot)
	if gained <= 0 {
		k.LastCharge = 0
		return false
	}

	residue := table[slot.ID].Residue
	slot.Count--
	if slot.Count <= 0 {
		*slot = item.Stack{}
		if residue != "" {
			*slot = item.Of(residue, 1)
		}
	}

	k.Budget += gained
	k.LastCharge = gained
	return true
}

// Spend removes one unit of budget, never going below zero.
func (k *Tank) Spend() {
	if k.Budget > 0 {
		k.Budget--
	}
}

func (k *Tank) Empty() bool { return k.Budget <= 0 }
