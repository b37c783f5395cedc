package world

import (
	"errors"

	"voxelquarry.ai/internal/sim/item"
)

var (
	ErrNoDevice     = errors.New("no device at position")
	ErrOccupied     = errors.New("position is occupied")
	ErrOutOfBounds  = errors.New("position is outside the world")
	ErrBadSlot      = errors.New("slot index out of range")
	ErrRejected     = errors.New("device rejected the request")
	ErrBadCommand   = errors.New("malformed command")
	ErrUnknownKind  = errors.New("unknown command kind")
	ErrNotAvailable = errors.New("not available")
)

const (
	CmdPlace             = "PLACE"
	CmdRemove            = "REMOVE"
	CmdSetPower          = "SET_POWER"
	CmdInsert            = "INSERT"
	CmdExtract           = "EXTRACT"
	CmdSetSlot           = "SET_SLOT"
	CmdTakeSlot          = "TAKE_SLOT"
	CmdQuickInsert       = "QUICK_INSERT"
	CmdCycleFilter       = "CYCLE_FILTER"
	CmdToggleReservation = "TOGGLE_RESERVATION"
	CmdSetProperty       = "SET_PROPERTY"
	CmdSetUpgrades       = "SET_UPGRADES"
)

// Command is one externally triggered mutation, applied between ticks.
// It is recorded verbatim in the tick log for replay.
type Command struct {
	ID    string `json:"id,omitempty"`
	Actor string `json:"actor,omitempty"`
	Kind  string `json:"kind"`
	Pos   [3]int `json:"pos"`

	Area    int  `json:"area,omitempty"`
	Speed   int  `json:"speed,omitempty"`
	Powered bool `json:"powered,omitempty"`

	Side  string      `json:"side,omitempty"`
	Slot  *int        `json:"slot,omitempty"`
	Count int         `json:"count,omitempty"`
	Item  *item.Stack `json:"item,omitempty"`

	Index int `json:"index,omitempty"`
	Value int `json:"value,omitempty"`
}

type CommandResult struct {
	ID       string      `json:"id,omitempty"`
	Kind     string      `json:"kind"`
	Accepted bool        `json:"accepted"`
	Err      error       `json:"-"`
	Message  string      `json:"message,omitempty"`
	Item     *item.Stack `json:"item,omitempty"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick     uint64    `json:"tick"`
	Commands []Command `json:"commands,omitempty"`
	Digest   string    `json:"digest"`
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"` // EXCAVATE, DROP, FORCE_CHUNK, PLACE, REMOVE
	Pos     [3]int         `json:"pos"`
	From    string         `json:"from,omitempty"`
	To      string         `json:"to,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// SlotView is one non-empty slot of a device.
type SlotView struct {
	Slot int        `json:"slot"`
	Item item.Stack `json:"item"`
}

// DeviceView is a read-only copy of a device for observers and admin endpoints.
type DeviceView struct {
	Pos           [3]int     `json:"pos"`
	Status        string     `json:"status"`
	Properties    [6]int     `json:"properties"`
	FilterMode    string     `json:"filter_mode"`
	Depth         int        `json:"depth"`
	RingIndex     int        `json:"ring_index"`
	RingSize      int        `json:"ring_size"`
	AreaUpgrades  int        `json:"area_upgrades"`
	SpeedUpgrades int        `json:"speed_upgrades"`
	Reserved      bool       `json:"reserved"`
	Powered       bool       `json:"powered"`
	FuelGauge     int        `json:"fuel_gauge"`
	ProgressGauge int        `json:"progress_gauge"`
	Slots         []SlotView `json:"slots,omitempty"`
}

// TickUpdate is published to observers after every tick.
type TickUpdate struct {
	Tick    uint64       `json:"tick"`
	Digest  string       `json:"digest"`
	Devices []DeviceView `json:"devices"`
}
