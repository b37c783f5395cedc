package quarry

// Indices into the synchronized property surface.
const (
	PropBurnBudget = iota
	PropLastCharge
	PropProgress
	PropTicksPerUnit
	PropFilterMode
	PropReservation

	PropertyCount
)

// Properties is the fixed integer surface mirrored to a panel.
type Properties [PropertyCount]int

func (p Properties) Get(i int) int {
	if i < 0 || i >= PropertyCount {
		return 0
	}
	return p[i]
}

func (p Properties) BurnBudget() int          { return p[PropBurnBudget] }
func (p Properties) LastChargeSize() int      { return p[PropLastCharge] }
func (p Properties) MiningProgress() int      { return p[PropProgress] }
func (p Properties) TicksPerUnit() int        { return p[PropTicksPerUnit] }
func (p Properties) FilterMode() int          { return p[PropFilterMode] }
func (p Properties) ReservationEnabled() bool { return p[PropReservation] != 0 }

// FuelGauge scales the remaining budget against the last charge. 0 when nothing was charged.
func (p Properties) FuelGauge(scale int) int {
	if p[PropLastCharge] <= 0 {
		return 0
	}
	return p[PropBurnBudget] * scale / p[PropLastCharge]
}

func (p Properties) ProgressGauge(scale int) int {
	if p[PropTicksPerUnit] <= 0 {
		return 0
	}
	return p[PropProgress] * scale / p[PropTicksPerUnit]
}

func (d *Device) Properties() Properties {
	var p Properties
	p[PropBurnBudget] = d.tank.Budget
	p[PropLastCharge] = d.tank.LastCharge
	p[PropProgress] = d.progress
	p[PropTicksPerUnit] = d.ticksPerUnit
	p[PropFilterMode] = int(d.mode)
	if d.ReservationEnabled() {
		p[PropReservation] = 1
	}
	return p
}

// SetProperty accepts panel writes. Only the filter mode is writable; the
// value is clamped. Returns false for ignored writes.
func (d *Device) SetProperty(i, v int) bool {
	if i != PropFilterMode {
		return false
	}
	d.SetFilterMode(v)
	return true
}
