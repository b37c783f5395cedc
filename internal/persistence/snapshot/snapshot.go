package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed     int64 `json:"seed"`
	TickRate int   `json:"tick_rate_hz"`
	Height   int   `json:"height"`
	BottomY  int   `json:"bottom_y"`
	SurfaceY int   `json:"surface_y"`

	// Operational parameters (captured for deterministic replay/resume).
	SnapshotEveryTicks int `json:"snapshot_every_ticks,omitempty"`
	StackLimit         int `json:"stack_limit,omitempty"`

	Chunks  []ChunkV1       `json:"chunks"`
	Devices []DeviceV1      `json:"devices"`
	Ground  []GroundStackV1 `json:"ground,omitempty"`
	Powered [][3]int        `json:"powered,omitempty"`
}

type ChunkV1 struct {
	CX     int      `json:"cx"`
	CZ     int      `json:"cz"`
	Height int      `json:"height"`
	Blocks []uint16 `json:"blocks"`
}

// DeviceV1 is the persisted quarry layout. Zero values load as a fresh device.
type DeviceV1 struct {
	Pos [3]int `json:"pos"`

	BurnBudget     int `json:"burn_budget"`
	LastChargeSize int `json:"last_charge_size"`
	MiningProgress int `json:"mining_progress"`
	TicksPerUnit   int `json:"ticks_per_unit"`
	Depth          int `json:"depth"`
	RingIndex      int `json:"ring_index"`
	AreaUpgrades   int `json:"area_upgrades"`
	SpeedUpgrades  int `json:"speed_upgrades"`
	FilterMode     int `json:"filter_mode"`

	ReservationDisabled bool `json:"reservation_disabled,omitempty"`
	Reserved            bool `json:"reserved,omitempty"`

	Items []SlotV1 `json:"items,omitempty"`
}

type SlotV1 struct {
	Slot int         `json:"slot"`
	Item ItemStackV1 `json:"item"`
}

type ItemStackV1 struct {
	ID           string         `json:"id"`
	Count        int            `json:"count"`
	Damage       int            `json:"damage,omitempty"`
	Enchantments map[string]int `json:"enchantments,omitempty"`
}

type GroundStackV1 struct {
	Pos  [3]int      `json:"pos"`
	Item ItemStackV1 `json:"item"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	hl, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(hl, &h); err != nil {
		return snap, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader reads only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	hl, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(hl, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
