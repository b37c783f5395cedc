package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	persistlog "voxelquarry.ai/internal/persistence/log"
	"voxelquarry.ai/internal/persistence/snapshot"
	"voxelquarry.ai/internal/sim/catalogs"
	"voxelquarry.ai/internal/sim/tuning"
	"voxelquarry.ai/internal/sim/world"
)

var (
	snapPath  string
	eventsDir string
	configDir string
	fromTick  uint64
	toTick    uint64
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "replay",
	Short: "Verify tick digests by replaying logged commands over a snapshot",
	RunE:  runReplay,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&snapPath, "snapshot", "", "path to .snap.zst")
	f.StringVar(&eventsDir, "events", "", "events dir containing events-*.jsonl.zst (optional)")
	f.StringVar(&configDir, "configs", "./configs", "config directory")
	f.Uint64Var(&fromTick, "from-tick", 0, "start verifying from tick (inclusive, optional)")
	f.Uint64Var(&toTick, "to-tick", 0, "stop at tick (inclusive, optional)")
	f.BoolVarP(&verbose, "verbose", "v", false, "log every mismatch candidate")
	_ = rootCmd.MarkFlagRequired("snapshot")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	snap, err := snapshot.ReadSnapshot(snapPath)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	fmt.Printf("snapshot v%d world=%s tick=%d seed=%d height=%d chunks=%d devices=%d ground=%d powered=%d\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.Seed, snap.Height,
		len(snap.Chunks), len(snap.Devices), len(snap.Ground), len(snap.Powered))
	if eventsDir == "" {
		return nil
	}

	cats, err := catalogs.Load(configDir)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	tune, err := tuning.Load(filepath.Join(configDir, "tuning.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("load tuning: %w", err)
		}
		tune = tuning.Defaults()
	}
	w, err := world.New(world.ConfigFromTuning(snap.Header.WorldID, tune), cats, logger.Named("world"))
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}

	checked, err := replay(w, eventsDir, fromTick, toTick, logger)
	if err != nil {
		return err
	}
	fmt.Printf("replay ok: checked=%d ticks (from snapshot tick=%d)\n", checked, snap.Header.Tick)
	return nil
}

var errStop = errors.New("stop")

// replay steps w through every logged tick at or after its current tick and
// compares digests from verifyFrom on. toTick 0 means no upper bound.
func replay(w *world.World, dir string, verifyFrom, toTick uint64, logger *zap.Logger) (uint64, error) {
	files, err := persistlog.Files(dir, "events")
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no events files found in %s", dir)
	}

	startTick := w.CurrentTick()
	if verifyFrom < startTick {
		verifyFrom = startTick
	}
	var checked uint64
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(line []byte) error {
			var entry world.TickLogEntry
			if err := json.Unmarshal(line, &entry); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			if entry.Tick < startTick {
				return nil
			}
			if toTick != 0 && entry.Tick > toTick {
				return errStop
			}
			if entry.Tick != w.CurrentTick() {
				return fmt.Errorf("tick mismatch: want=%d got=%d (file=%s)", w.CurrentTick(), entry.Tick, filepath.Base(path))
			}
			tick, digest, _ := w.StepOnce(entry.Commands)
			if tick < verifyFrom {
				return nil
			}
			checked++
			if digest != entry.Digest {
				return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, digest, entry.Digest)
			}
			logger.Debug("tick verified", zap.Uint64("tick", tick), zap.Int("commands", len(entry.Commands)))
			return nil
		})
		if errors.Is(err, errStop) {
			break
		}
		if err != nil {
			return checked, err
		}
	}
	return checked, nil
}
