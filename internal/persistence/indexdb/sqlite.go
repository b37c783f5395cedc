// Package indexdb keeps a queryable sqlite read model of a world's history.
// The JSONL logs and snapshots stay the source of truth; the index may lag or
// drop entries under load.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"voxelquarry.ai/internal/persistence/snapshot"
	"voxelquarry.ai/internal/sim/catalogs"
	"voxelquarry.ai/internal/sim/tuning"
	"voxelquarry.ai/internal/sim/world"
)

const schemaVersion = "1"

type SQLiteIndex struct {
	db  *sql.DB
	log *zap.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqSnapshot
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	audit    world.AuditEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick         uint64
	Path         string
	Seed         int64
	Height       int
	Chunks       int
	Devices      int
	GroundStacks int

	devices []snapshot.DeviceV1
}

func OpenSQLite(path string, logger *zap.Logger) (*SQLiteIndex, error) {
	if path == "" {
		return nil, errors.New("empty db path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:  db,
		log: logger,
		// Excavation audits arrive in bursts when many devices run at one tick per unit.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			commands INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			actor TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			cmd_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_pos_tick ON commands(x, z, y, tick);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_action ON audits(actor, action, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pos_tick ON audits(x, z, y, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			height INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			devices INTEGER NOT NULL,
			ground_stacks INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS devices (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			ring_index INTEGER NOT NULL,
			area_upgrades INTEGER NOT NULL,
			speed_upgrades INTEGER NOT NULL,
			burn_budget INTEGER NOT NULL,
			filter_mode INTEGER NOT NULL,
			reserved INTEGER NOT NULL,
			items_json TEXT NOT NULL,
			PRIMARY KEY (x, y, z)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains queued writes, commits and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped counts entries discarded because the writer fell behind.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) enqueue(r req) {
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.enqueue(req{kind: reqTick, tick: entry})
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.enqueue(req{kind: reqAudit, audit: entry})
	return nil
}

// RecordSnapshot indexes a written snapshot file and replaces the per-device summaries.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	s.enqueue(req{kind: reqSnapshot, snapshot: snapshotRow{
		Tick:         snap.Header.Tick,
		Path:         path,
		Seed:         snap.Seed,
		Height:       snap.Height,
		Chunks:       len(snap.Chunks),
		Devices:      len(snap.Devices),
		GroundStacks: len(snap.Ground),
		devices:      snap.Devices,
	}})
}

// UpsertCatalogs stores the catalogs and tuning in effect so the index can be
// read without the configs directory.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "blocks.json")); err == nil {
			rows = append(rows, kv{name: "blocks_defs", digest: cats.Blocks.DefsDigest, json: b})
		}
		if b, err := os.ReadFile(filepath.Join(configDir, "items.json")); err == nil {
			rows = append(rows, kv{name: "items_defs", digest: cats.Items.DefsDigest, json: b})
		}
	}
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version',?)`, schemaVersion); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const auditSeqWindow = 256

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	prepare := func(q string) *sql.Stmt {
		st, err := s.db.Prepare(q)
		if err != nil {
			s.log.Error("index prepare failed", zap.String("query", q), zap.Error(err))
			return nil
		}
		return st
	}
	insertTick := prepare(`INSERT OR REPLACE INTO ticks(tick,digest,commands,raw_json) VALUES(?,?,?,?)`)
	insertCommand := prepare(`INSERT OR REPLACE INTO commands(tick,seq,kind,actor,x,y,z,cmd_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertAudit := prepare(`INSERT OR REPLACE INTO audits(tick,seq,actor,action,x,y,z,from_id,to_id,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot := prepare(`INSERT OR REPLACE INTO snapshots(tick,path,seed,height,chunks,devices,ground_stacks) VALUES(?,?,?,?,?,?,?)`)
	insertDevice := prepare(`INSERT OR REPLACE INTO devices(x,y,z,tick,depth,ring_index,area_upgrades,speed_upgrades,burn_budget,filter_mode,reserved,items_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertCommand, insertAudit, insertSnapshot, insertDevice} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)
	// Next seq per tick; audits for an earlier tick may arrive after later ones.
	auditSeq := map[uint64]int{}
	var maxAudit uint64

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.log.Warn("index begin failed", zap.Error(err))
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.log.Warn("index commit failed", zap.Error(err))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func(err error) {
		s.log.Warn("index write failed; batch rolled back", zap.Error(err))
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback(err)
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			b, _ := json.Marshal(r.tick)
			if !exec(insertTick, int64(r.tick.Tick), r.tick.Digest, len(r.tick.Commands), string(b)) {
				continue
			}
			for i, c := range r.tick.Commands {
				cj, _ := json.Marshal(c)
				if !exec(insertCommand, int64(r.tick.Tick), i, c.Kind, c.Actor, c.Pos[0], c.Pos[1], c.Pos[2], string(cj)) {
					break
				}
			}

		case reqAudit:
			a := r.audit
			seq := auditSeq[a.Tick]
			auditSeq[a.Tick] = seq + 1
			if a.Tick > maxAudit {
				maxAudit = a.Tick
				for t := range auditSeq {
					if t+auditSeqWindow < maxAudit {
						delete(auditSeq, t)
					}
				}
			}
			raw, _ := json.Marshal(a)
			exec(insertAudit, int64(a.Tick), seq, a.Actor, a.Action, a.Pos[0], a.Pos[1], a.Pos[2], a.From, a.To, a.Reason, string(raw))

		case reqSnapshot:
			sn := r.snapshot
			if !exec(insertSnapshot, int64(sn.Tick), sn.Path, sn.Seed, sn.Height, sn.Chunks, sn.Devices, sn.GroundStacks) {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM devices`); err != nil {
				rollback(err)
				continue
			}
			for _, d := range sn.devices {
				items, _ := json.Marshal(d.Items)
				reserved := 0
				if d.Reserved {
					reserved = 1
				}
				if !exec(insertDevice, d.Pos[0], d.Pos[1], d.Pos[2], int64(sn.Tick), d.Depth, d.RingIndex,
					d.AreaUpgrades, d.SpeedUpgrades, d.BurnBudget, d.FilterMode, reserved, string(items)) {
					break
				}
			}
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
