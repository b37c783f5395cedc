package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"voxelquarry.ai/internal/persistence/indexdb"
	"voxelquarry.ai/internal/sim/mathx"
)

var dbPath string

func init() {
	for _, c := range []*cobra.Command{excavationsCmd, latestCmd, devicesCmd, commandsCmd} {
		c.Flags().StringVar(&dbPath, "db", "", "sqlite index path (default: <data>/worlds/<world>/index/world.sqlite)")
	}
	excavationsCmd.Flags().String("device", "", "device position x,y,z (required)")
	_ = excavationsCmd.MarkFlagRequired("device")
	commandsCmd.Flags().Uint64("tick", 0, "tick to list")
}

func openIndex() (*indexdb.Reader, error) {
	path := strings.TrimSpace(dbPath)
	if path == "" {
		path = filepath.Join(worldDir(), "index", "world.sqlite")
	}
	return indexdb.OpenReader(path)
}

var excavationsCmd = &cobra.Command{
	Use:   "excavations",
	Short: "Count the blocks a device has excavated",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("device")
		pos, err := mathx.ParseVec3i(raw)
		if err != nil {
			return err
		}
		r, err := openIndex()
		if err != nil {
			return err
		}
		defer r.Close()
		counts, err := r.ExcavationsByDevice(cmd.Context(), pos)
		if err != nil {
			return err
		}
		total := 0
		for _, c := range counts {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %d\n", c.Block, c.Count)
			total += c.Count
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %d\n", "TOTAL", total)
		return nil
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the latest indexed snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openIndex()
		if err != nil {
			return err
		}
		defer r.Close()
		s, err := r.LatestSnapshot(cmd.Context())
		if errors.Is(err, indexdb.ErrNotFound) {
			return fmt.Errorf("no snapshots indexed")
		}
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(s)
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List device summaries from the latest indexed snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openIndex()
		if err != nil {
			return err
		}
		defer r.Close()
		devices, err := r.Devices(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, d := range devices {
			if err := enc.Encode(d); err != nil {
				return err
			}
		}
		return nil
	},
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Print the commands applied at a tick",
	RunE: func(cmd *cobra.Command, args []string) error {
		tick, _ := cmd.Flags().GetUint64("tick")
		r, err := openIndex()
		if err != nil {
			return err
		}
		defer r.Close()
		cmds, err := r.CommandsAt(cmd.Context(), tick)
		if err != nil {
			return err
		}
		for _, c := range cmds {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}
