package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"voxelquarry.ai/internal/persistence/indexdb"
	persistlog "voxelquarry.ai/internal/persistence/log"
	"voxelquarry.ai/internal/persistence/snapshot"
	"voxelquarry.ai/internal/sim/catalogs"
	"voxelquarry.ai/internal/sim/tuning"
	"voxelquarry.ai/internal/sim/world"
	"voxelquarry.ai/internal/transport/admin"
	"voxelquarry.ai/internal/transport/ws"
)

var (
	addr       string
	worldID    string
	seed       int64
	configDir  string
	dataDir    string
	tuningPath string
	snapPath   string
	loadLatest bool
	disableDB  bool
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Run a quarry world over HTTP and websocket",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServer,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&addr, "addr", ":8080", "http listen address")
	f.StringVar(&worldID, "world", "world_1", "world id")
	f.Int64Var(&seed, "seed", 0, "world seed for a fresh world (0: use tuning seed)")
	f.StringVar(&configDir, "configs", "./configs", "config directory")
	f.StringVar(&dataDir, "data", "./data", "runtime data directory")
	f.StringVar(&tuningPath, "tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
	f.StringVar(&snapPath, "snapshot", "", "path to snapshot to load (optional)")
	f.BoolVar(&loadLatest, "load-latest", true, "load latest snapshot from data dir if present (when --snapshot is empty)")
	f.BoolVar(&disableDB, "disable-db", false, "disable the sqlite index (ticks, audits, catalogs, snapshot metadata)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cats, err := catalogs.Load(configDir)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}

	worldDir := filepath.Join(dataDir, "worlds", worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		return err
	}

	tp := strings.TrimSpace(tuningPath)
	if tp == "" {
		tp = filepath.Join(configDir, "tuning.yaml")
	}
	snapshotToLoad := strings.TrimSpace(snapPath)
	if snapshotToLoad == "" && loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}

	tune, err := tuning.Load(tp)
	if err != nil {
		// Snapshots carry the world shape, so a resume can run on defaults.
		if snapshotToLoad == "" || !os.IsNotExist(err) {
			return fmt.Errorf("load tuning: %w", err)
		}
		logger.Warn("tuning not found; using defaults", zap.String("path", tp))
		tune = tuning.Defaults()
	}

	// Optional read-model index (does not affect sim determinism).
	var idx *indexdb.SQLiteIndex
	if !disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"), logger.Named("index"))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(configDir, cats, tune); err != nil {
			logger.Warn("index: upsert catalogs", zap.Error(err))
		}
	}

	cfg := world.ConfigFromTuning(worldID, tune)
	if seed != 0 {
		cfg.Seed = seed
	}
	w, err := world.New(cfg, cats, logger.Named("world"))
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != worldID {
			return fmt.Errorf("snapshot world id mismatch: flag=%s snap=%s", worldID, snap.Header.WorldID)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			return fmt.Errorf("import snapshot: %w", err)
		}
		logger.Info("resumed from snapshot",
			zap.String("snapshot", filepath.Base(snapshotToLoad)), zap.Uint64("tick", w.CurrentTick()))
	}

	tickLog := persistlog.NewTickLogger(worldDir)
	auditLog := persistlog.NewAuditLogger(worldDir)
	defer tickLog.Close()
	defer auditLog.Close()
	if idx != nil {
		w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
		w.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})
	} else {
		w.SetTickLogger(tickLog)
		w.SetAuditLogger(auditLog)
	}

	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := w.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Snapshot writer.
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case snap := <-snapCh:
				path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Error("snapshot write", zap.Error(err))
					continue
				}
				logger.Info("snapshot written", zap.String("path", path), zap.Uint64("tick", snap.Header.Tick))
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	})

	mux := http.NewServeMux()
	adminSrv := admin.NewServer(w, logger.Named("admin"))
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", adminSrv.MetricsHandler())
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger.Named("ws")).Handler())

	if envBool("VQ_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		// Local-only admin endpoints (do not affect simulation determinism).
		adminSrv.Register(mux)
	} else {
		logger.Info("admin endpoints disabled (VQ_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("VQ_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", addr), zap.String("world", worldID))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if idx != nil && idx.Dropped() > 0 {
		logger.Warn("index dropped writes", zap.Uint64("dropped", idx.Dropped()))
	}
	return err
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

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	errA := m.a.WriteTick(entry)
	errB := m.b.WriteTick(entry)
	return errors.Join(errA, errB)
}

type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	errA := m.a.WriteAudit(entry)
	errB := m.b.WriteAudit(entry)
	return errors.Join(errA, errB)
}
