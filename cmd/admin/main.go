package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"voxelquarry.ai/internal/persistence/snapshot"
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Offline and local inspection of a quarry world",
}

var (
	dataDir string
	worldID string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "./data", "runtime data directory")
	rootCmd.PersistentFlags().StringVar(&worldID, "world", "world_1", "world id")

	rootCmd.AddCommand(snapshotCmd, rollbackCmd)
	rootCmd.AddCommand(excavationsCmd, latestCmd, devicesCmd, commandsCmd)
	rootCmd.AddCommand(stateCmd, requestSnapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func worldDir() string { return filepath.Join(dataDir, "worlds", worldID) }

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [path]",
	Short: "Print the devices stored in a snapshot (default: latest for --world)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := latestSnapshot(worldDir())
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no snapshot found under %s", worldDir())
		}
		snap, err := snapshot.ReadSnapshot(path)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "snapshot v%d world=%s tick=%d seed=%d chunks=%d devices=%d ground=%d\n",
			snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.Seed,
			len(snap.Chunks), len(snap.Devices), len(snap.Ground))
		enc := json.NewEncoder(out)
		for _, d := range snap.Devices {
			if err := enc.Encode(d); err != nil {
				return err
			}
		}
		return nil
	},
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
