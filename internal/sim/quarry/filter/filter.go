// Package filter decides which excavation yields a quarry keeps.
package filter

import "voxelquarry.ai/internal/sim/item"

type Mode int

const (
	Disabled Mode = iota
	AllowList
	DenyList

	modeCount = 3
)

// ClampMode maps any integer onto a valid mode.
func ClampMode(v int) Mode {
	if v < int(Disabled) {
		return Disabled
	}
	if v > int(DenyList) {
		return DenyList
	}
	return Mode(v)
}

// Next cycles Disabled -> AllowList -> DenyList -> Disabled.
func (m Mode) Next() Mode {
	return Mode((int(ClampMode(int(m))) + 1) % modeCount)
}

func (m Mode) String() string {
	switch m {
	case AllowList:
		return "Whitelist"
	case DenyList:
		return "Blacklist"
	default:
		return "Off"
	}
}

// Matches reports whether any non-empty reference has the same kind as s.
func Matches(s item.Stack, refs []item.Stack) bool {
	for _, r := range refs {
		if !r.IsEmpty() && r.SameKind(s) {
			return true
		}
	}
	return false
}

// Keep applies mode to a single yield.
func Keep(s item.Stack, mode Mode, refs []item.Stack) bool {
	switch mode {
	case AllowList:
		return Matches(s, refs)
	case DenyList:
		return !Matches(s, refs)
	default:
		return true
	}
}
