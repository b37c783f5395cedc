package log

import (
	"path/filepath"
	"testing"
	"time"

	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/world"
)

func TestTickLogRotatesHourlyAndReadsInOrder(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	slot := 3
	for tick := uint64(0); tick < 6; tick++ {
		if tick == 3 {
			clock = clock.Add(2 * time.Minute)
		}
		e := world.TickLogEntry{Tick: tick, Digest: "d"}
		if tick == 1 {
			e.Commands = []world.Command{{
				Kind: world.CmdSetSlot,
				Pos:  [3]int{1, 2, 3},
				Slot: &slot,
				Item: &item.Stack{ID: "DIRT", Count: 1},
			}}
		}
		if err := l.WriteTick(e); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := Files(filepath.Join(dir, "events"), "events")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files: got %d want 2 (%v)", len(files), files)
	}

	var got []uint64
	err = ReadTicks(dir, func(e world.TickLogEntry) error {
		got = append(got, e.Tick)
		if e.Tick == 1 {
			if len(e.Commands) != 1 || e.Commands[0].Slot == nil || *e.Commands[0].Slot != 3 {
				t.Fatalf("tick 1 commands: %+v", e.Commands)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	for i, tick := range got {
		if tick != uint64(i) {
			t.Fatalf("ticks out of order: %v", got)
		}
	}
	if len(got) != 6 {
		t.Fatalf("ticks: got %d want 6", len(got))
	}
}

func TestReopenedWriterAppendsToSameHour(t *testing.T) {
	dir := t.TempDir()
	now := func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	for session := 0; session < 2; session++ {
		w := NewJSONLZstdWriter(dir, "audit")
		w.now = now
		for i := 0; i < 3; i++ {
			e := world.AuditEntry{Tick: uint64(session*3 + i), Action: "EXCAVATE"}
			if err := w.Write(e); err != nil {
				t.Fatalf("Write: %v", err)
			}
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	files, err := Files(dir, "audit")
	if err != nil || len(files) != 1 {
		t.Fatalf("Files: %v %v", files, err)
	}
	lines := 0
	err = ReadJSONL(files[0], func(line []byte) error {
		lines++
		return nil
	})
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if lines != 6 {
		t.Fatalf("lines: got %d want 6", lines)
	}
}
