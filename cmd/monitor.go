package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perch-labs/leadscout/internal/model"
)

var (
	monitorDir      string
	monitorSchedule string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Periodically scan a watch directory for new export files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		dir := monitorDir
		if dir == "" {
			dir = cfg.Monitor.WatchDir
		}
		if dir == "" {
			return eris.New("monitor: watch directory is required (--dir or monitor.watch_dir)")
		}
		schedule := monitorSchedule
		if schedule == "" {
			schedule = cfg.Monitor.Schedule
		}

		// One scan at a time; an overrunning scan skips the next tick.
		var mu sync.Mutex
		scanOnce := func() {
			if !mu.TryLock() {
				zap.L().Warn("previous scan still running, skipping tick")
				return
			}
			defer mu.Unlock()

			if err := scanWatchDir(ctx, env, dir); err != nil {
				zap.L().Error("scheduled scan failed", zap.Error(err))
			}
		}

		c := cron.New()
		if _, err := c.AddFunc(schedule, scanOnce); err != nil {
			return eris.Wrapf(err, "monitor: parse schedule %q", schedule)
		}

		zap.L().Info("monitor started",
			zap.String("dir", dir),
			zap.String("schedule", schedule),
		)
		scanOnce()
		c.Start()

		<-ctx.Done()
		<-c.Stop().Done()
		zap.L().Info("monitor stopped")
		return nil
	},
}

// scanWatchDir runs the pipeline over every export file currently in dir.
// Already-processed containers and activities dedup at the store level, so
// reprocessing a file that has not been rotated away is harmless.
func scanWatchDir(ctx context.Context, env *appEnv, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return eris.Wrapf(err, "monitor: read dir %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".json", ".jsonl":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		zap.L().Debug("no export files found", zap.String("dir", dir))
		return nil
	}

	summary, err := runScan(ctx, env, model.Platform(cfg.Scan.Platform), paths)
	if err != nil {
		return err
	}
	zap.L().Info("scheduled scan complete",
		zap.Int("files", len(paths)),
		zap.Int("total", summary.Total),
		zap.Int("saved", summary.Saved),
	)
	return nil
}

func init() {
	monitorCmd.Flags().StringVar(&monitorDir, "dir", "", "directory to watch for export files")
	monitorCmd.Flags().StringVar(&monitorSchedule, "schedule", "", `cron schedule (default "@every 30m")`)
	rootCmd.AddCommand(monitorCmd)
}
