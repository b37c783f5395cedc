package item

import "sort"

// DefaultMaxStack is the per-slot limit applied when an item has no explicit max_stack.
const DefaultMaxStack = 64

// Enchantment ids understood by the quarry and the reference world.
const (
	Efficiency = "EFFICIENCY"
	Unbreaking = "UNBREAKING"
	Fortune    = "FORTUNE"
	SilkTouch  = "SILK_TOUCH"
)

// Stack is a quantity of one item kind. The zero value is the empty stack.
type Stack struct {
	ID           string         `json:"id"`
	Count        int            `json:"count"`
	Damage       int            `json:"damage,omitempty"`
	Enchantments map[string]int `json:"enchantments,omitempty"`
}

func Of(id string, count int) Stack { return Stack{ID: id, Count: count} }

func (s Stack) IsEmpty() bool { return s.ID == "" || s.Count <= 0 }

// Clone returns a copy that shares no map with s.
func (s Stack) Clone() Stack {
	out := s
	if len(s.Enchantments) > 0 {
		out.Enchantments = make(map[string]int, len(s.Enchantments))
		for k, v := range s.Enchantments {
			out.Enchantments[k] = v
		}
	} else {
		out.Enchantments = nil
	}
	return out
}

func (s Stack) WithCount(n int) Stack {
	out := s.Clone()
	out.Count = n
	return out
}

// SameKind compares item ids only.
func (s Stack) SameKind(o Stack) bool { return s.ID == o.ID }

// CanMerge reports whether o may be added to s: same id, damage and enchantments.
func (s Stack) CanMerge(o Stack) bool {
	if s.ID != o.ID || s.Damage != o.Damage {
		return false
	}
	if len(s.Enchantments) != len(o.Enchantments) {
		return false
	}
	for k, v := range s.Enchantments {
		if o.Enchantments[k] != v {
			return false
		}
	}
	return true
}

func (s Stack) Level(enchantment string) int {
	if s.Enchantments == nil {
		return 0
	}
	return s.Enchantments[enchantment]
}

// EnchantmentKeys returns enchantment ids in sorted order.
func (s Stack) EnchantmentKeys() []string {
	keys := make([]string, 0, len(s.Enchantments))
	for k := range s.Enchantments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Def is the static description of an item kind.
type Def struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"` // "TOOL","FUEL","BLOCK","MATERIAL","DEVICE"
	MaxStack    int    `json:"max_stack,omitempty"`
	MaxDamage   int    `json:"max_damage,omitempty"`
	ToolTicks   int    `json:"tool_ticks,omitempty"`
	FuelValue   int    `json:"fuel_value,omitempty"`
	FuelResidue string `json:"fuel_residue,omitempty"`
}

type Registry struct {
	defs map[string]Def
}

func NewRegistry(defs []Def) *Registry {
	r := &Registry{defs: make(map[string]Def, len(defs))}
	for _, d := range defs {
		r.defs[d.ID] = d
	}
	return r
}

func (r *Registry) Get(id string) (Def, bool) {
	if r == nil {
		return Def{}, false
	}
	d, ok := r.defs[id]
	return d, ok
}

func (r *Registry) MaxStack(id string) int {
	if d, ok := r.Get(id); ok && d.MaxStack > 0 {
		return d.MaxStack
	}
	return DefaultMaxStack
}

func (r *Registry) MaxDamage(id string) int {
	d, _ := r.Get(id)
	return d.MaxDamage
}

func (r *Registry) Damageable(id string) bool { return r.MaxDamage(id) > 0 }

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.defs)
}

// Defs returns all definitions sorted by id.
func (r *Registry) Defs() []Def {
	if r == nil {
		return nil
	}
	out := make([]Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
