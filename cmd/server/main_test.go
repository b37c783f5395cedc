package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"voxelquarry.ai/internal/sim/world"
)

func TestLatestSnapshotPicksHighestTick(t *testing.T) {
	dir := t.TempDir()
	snaps := filepath.Join(dir, "snapshots")
	if err := os.MkdirAll(snaps, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"90.snap.zst", "1200.snap.zst", "300.snap.zst", "notes.txt", "x.snap.zst"} {
		if err := os.WriteFile(filepath.Join(snaps, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := latestSnapshot(dir), filepath.Join(snaps, "1200.snap.zst"); got != want {
		t.Fatalf("latestSnapshot: got %q want %q", got, want)
	}
	if got := latestSnapshot(t.TempDir()); got != "" {
		t.Fatalf("empty dir: got %q", got)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("VQ_TEST_FLAG", "")
	if !envBool("VQ_TEST_FLAG", true) {
		t.Fatalf("unset must use default")
	}
	t.Setenv("VQ_TEST_FLAG", "false")
	if envBool("VQ_TEST_FLAG", true) {
		t.Fatalf("false not parsed")
	}
	t.Setenv("VQ_TEST_FLAG", "maybe")
	if envBool("VQ_TEST_FLAG", false) {
		t.Fatalf("garbage must use default")
	}
}

type countingLogger struct {
	ticks, audits int
	err           error
}

func (c *countingLogger) WriteTick(world.TickLogEntry) error   { c.ticks++; return c.err }
func (c *countingLogger) WriteAudit(world.AuditEntry) error  { c.audits++; return c.err }

func TestMultiLoggersFanOut(t *testing.T) {
	a := &countingLogger{}
	b := &countingLogger{err: errors.New("full")}
	if err := (multiTickLogger{a: a, b: b}).WriteTick(world.TickLogEntry{}); err == nil {
		t.Fatalf("expected joined error")
	}
	if err := (multiAuditLogger{a: a, b: b}).WriteAudit(world.AuditEntry{}); err == nil {
		t.Fatalf("expected joined error")
	}
	if a.ticks != 1 || b.ticks != 1 || a.audits != 1 || b.audits != 1 {
		t.Fatalf("fan out: %+v %+v", a, b)
	}
}
