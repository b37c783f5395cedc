package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"voxelquarry.ai/internal/persistence/snapshot"
	"voxelquarry.ai/internal/sim/mathx"
)

var ErrNotFound = errors.New("not found")

// Reader runs queries against an index file, typically one written by a
// server that is no longer running.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

type BlockCount struct {
	Block string `json:"block"`
	Count int    `json:"count"`
}

// ExcavationsByDevice counts the blocks the device at pos has excavated, most frequent first.
func (r *Reader) ExcavationsByDevice(ctx context.Context, pos mathx.Vec3i) ([]BlockCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT from_id, COUNT(*) AS n FROM audits
		 WHERE actor = ? AND action = 'EXCAVATE'
		 GROUP BY from_id ORDER BY n DESC, from_id ASC`,
		"QUARRY@"+pos.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BlockCount
	for rows.Next() {
		var bc BlockCount
		if err := rows.Scan(&bc.Block, &bc.Count); err != nil {
			return nil, err
		}
		out = append(out, bc)
	}
	return out, rows.Err()
}

type SnapshotInfo struct {
	Tick         uint64 `json:"tick"`
	Path         string `json:"path"`
	Seed         int64  `json:"seed"`
	Height       int    `json:"height"`
	Chunks       int    `json:"chunks"`
	Devices      int    `json:"devices"`
	GroundStacks int    `json:"ground_stacks"`
}

// LatestSnapshot returns the highest-tick snapshot row, or ErrNotFound.
func (r *Reader) LatestSnapshot(ctx context.Context) (SnapshotInfo, error) {
	var s SnapshotInfo
	var tick int64
	err := r.db.QueryRowContext(ctx,
		`SELECT tick,path,seed,height,chunks,devices,ground_stacks FROM snapshots ORDER BY tick DESC LIMIT 1`,
	).Scan(&tick, &s.Path, &s.Seed, &s.Height, &s.Chunks, &s.Devices, &s.GroundStacks)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	s.Tick = uint64(tick)
	return s, nil
}

type DeviceSummary struct {
	Pos           [3]int            `json:"pos"`
	Tick          uint64            `json:"tick"`
	Depth         int               `json:"depth"`
	RingIndex     int               `json:"ring_index"`
	AreaUpgrades  int               `json:"area_upgrades"`
	SpeedUpgrades int               `json:"speed_upgrades"`
	BurnBudget    int               `json:"burn_budget"`
	FilterMode    int               `json:"filter_mode"`
	Reserved      bool              `json:"reserved"`
	Items         []snapshot.SlotV1 `json:"items,omitempty"`
}

// Devices lists the per-device summaries from the latest indexed snapshot.
func (r *Reader) Devices(ctx context.Context) ([]DeviceSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT x,y,z,tick,depth,ring_index,area_upgrades,speed_upgrades,burn_budget,filter_mode,reserved,items_json
		 FROM devices ORDER BY x, y, z`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeviceSummary
	for rows.Next() {
		var d DeviceSummary
		var tick int64
		var reserved int
		var items string
		if err := rows.Scan(&d.Pos[0], &d.Pos[1], &d.Pos[2], &tick, &d.Depth, &d.RingIndex,
			&d.AreaUpgrades, &d.SpeedUpgrades, &d.BurnBudget, &d.FilterMode, &reserved, &items); err != nil {
			return nil, err
		}
		d.Tick = uint64(tick)
		d.Reserved = reserved != 0
		if err := json.Unmarshal([]byte(items), &d.Items); err != nil {
			return nil, fmt.Errorf("device %v items: %w", d.Pos, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CommandsAt returns the raw JSON of every command applied at tick, in order.
func (r *Reader) CommandsAt(ctx context.Context, tick uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT cmd_json FROM commands WHERE tick = ? ORDER BY seq`, int64(tick))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
