package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	persistlog "voxelquarry.ai/internal/persistence/log"
	"voxelquarry.ai/internal/persistence/snapshot"
	"voxelquarry.ai/internal/sim/catalogs"
	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/world"
)

var rollbackOpts struct {
	snapshot  string
	configs   string
	aabb      string
	sinceTick uint64
	toTick    uint64
	out       string
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Restore excavated blocks inside a box by replaying the audit log backwards onto a snapshot",
	RunE:  runRollback,
}

func init() {
	f := rollbackCmd.Flags()
	f.StringVar(&rollbackOpts.snapshot, "snapshot", "", "snapshot to roll back (default: latest)")
	f.StringVar(&rollbackOpts.configs, "configs", "./configs", "config directory (block palette)")
	f.StringVar(&rollbackOpts.aabb, "aabb", "", "box filter: x1,y1,z1:x2,y2,z2 (required)")
	f.Uint64Var(&rollbackOpts.sinceTick, "since-tick", 0, "roll back excavations since tick (inclusive)")
	f.Uint64Var(&rollbackOpts.toTick, "to-tick", 0, "roll back excavations up to tick (inclusive, default: snapshot tick)")
	f.StringVar(&rollbackOpts.out, "out", "", "output snapshot path (default: <tick>.rollback.snap.zst)")
	_ = rollbackCmd.MarkFlagRequired("aabb")
}

func runRollback(cmd *cobra.Command, args []string) error {
	path := strings.TrimSpace(rollbackOpts.snapshot)
	if path == "" {
		path = latestSnapshot(worldDir())
	}
	if path == "" {
		return fmt.Errorf("no snapshot found; provide --snapshot or run the server until it writes one")
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	cats, err := catalogs.Load(rollbackOpts.configs)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	lo, hi, err := parseAABB(rollbackOpts.aabb)
	if err != nil {
		return fmt.Errorf("bad --aabb: %w", err)
	}
	endTick := rollbackOpts.toTick
	if endTick == 0 || endTick > snap.Header.Tick {
		endTick = snap.Header.Tick
	}

	recs, err := readExcavations(filepath.Join(worldDir(), "audit"), rollbackOpts.sinceTick, endTick, lo, hi)
	if err != nil {
		return fmt.Errorf("read audit: %w", err)
	}
	if len(recs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no matching audit entries; nothing to roll back")
		return nil
	}
	applied, skipped := applyRollback(&snap, cats.Blocks.Index, recs)

	out := strings.TrimSpace(rollbackOpts.out)
	if out == "" {
		out = filepath.Join(worldDir(), "snapshots", fmt.Sprintf("%d.rollback.snap.zst", snap.Header.Tick))
	}
	if err := snapshot.WriteSnapshot(out, snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rollback ok: snapshot=%s tick=%d entries=%d applied=%d skipped=%d out=%s\n",
		filepath.Base(path), snap.Header.Tick, len(recs), applied, skipped, out)
	return nil
}

type auditRec struct {
	Seq   uint64
	Entry world.AuditEntry
}

// readExcavations returns the matching EXCAVATE entries newest first.
func readExcavations(dir string, sinceTick, toTick uint64, lo, hi [3]int) ([]auditRec, error) {
	files, err := persistlog.Files(dir, "audit")
	if err != nil {
		return nil, err
	}
	var out []auditRec
	var seq uint64
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(line []byte) error {
			var e world.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			seq++
			if e.Action != "EXCAVATE" || e.Tick < sinceTick || e.Tick > toTick || !withinAABB(e.Pos, lo, hi) {
				return nil
			}
			out = append(out, auditRec{Seq: seq, Entry: e})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entry.Tick != out[j].Entry.Tick {
			return out[i].Entry.Tick > out[j].Entry.Tick
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

func applyRollback(snap *snapshot.SnapshotV1, palette map[string]uint16, recs []auditRec) (applied, skipped int) {
	chunks := map[[2]int]*snapshot.ChunkV1{}
	for i := range snap.Chunks {
		ch := &snap.Chunks[i]
		chunks[[2]int{ch.CX, ch.CZ}] = ch
	}
	for _, r := range recs {
		p := r.Entry.Pos
		id, ok := palette[r.Entry.From]
		ch := chunks[[2]int{mathx.FloorDiv(p[0], mathx.ChunkSize), mathx.FloorDiv(p[2], mathx.ChunkSize)}]
		ly := p[1] - snap.BottomY
		if !ok || ch == nil || ly < 0 || ly >= ch.Height {
			skipped++
			continue
		}
		i := mathx.Mod(p[0], mathx.ChunkSize) + mathx.Mod(p[2], mathx.ChunkSize)*mathx.ChunkSize + ly*mathx.ChunkSize*mathx.ChunkSize
		if i >= len(ch.Blocks) {
			skipped++
			continue
		}
		ch.Blocks[i] = id
		applied++
	}
	return applied, skipped
}

func withinAABB(pos, lo, hi [3]int) bool {
	return pos[0] >= lo[0] && pos[0] <= hi[0] &&
		pos[1] >= lo[1] && pos[1] <= hi[1] &&
		pos[2] >= lo[2] && pos[2] <= hi[2]
}

func parseAABB(s string) (lo, hi [3]int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return lo, hi, fmt.Errorf("expected x1,y1,z1:x2,y2,z2")
	}
	a, err := mathx.ParseVec3i(parts[0])
	if err != nil {
		return lo, hi, err
	}
	b, err := mathx.ParseVec3i(parts[1])
	if err != nil {
		return lo, hi, err
	}
	lo = [3]int{min(a.X, b.X), min(a.Y, b.Y), min(a.Z, b.Z)}
	hi = [3]int{max(a.X, b.X), max(a.Y, b.Y), max(a.Z, b.Z)}
	return lo, hi, nil
}
