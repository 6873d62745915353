package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prasanthmj/inboxtriage/pkg/config"
	"github.com/prasanthmj/inboxtriage/pkg/triage"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	daemonSchedule string
	daemonMode     string
	daemonNow      bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run triage passes on a cron schedule",
	Long: `Runs triage on a standard five-field cron schedule until interrupted.

A pass that is still running when the next one is due is skipped. Edits to
the config file take effect from the next pass; an invalid edit is logged
and ignored.

Example:
  inbox-triage daemon --schedule "*/10 8-18 * * mon-fri" --mode auto`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVarP(&daemonSchedule, "schedule", "s", "*/15 * * * *", "cron expression")
	daemonCmd.Flags().StringVarP(&daemonMode, "mode", "m", string(triage.ModeMonitor), "monitor, hybrid or auto")
	daemonCmd.Flags().BoolVar(&daemonNow, "now", false, "run one pass immediately at startup")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	mode, err := triage.ParseMode(daemonMode)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var current atomic.Pointer[config.Config]
	current.Store(cfg)
	go config.Watch(ctx, configPath, logger, func(c *config.Config) { current.Store(c) })

	pass := func() {
		report, logPath, err := triageOnce(ctx, current.Load(), mode, logger)
		switch {
		case errors.Is(err, context.Canceled):
			logger.Info("triage pass interrupted")
		case err != nil:
			logger.Error("triage pass failed", zap.Error(err))
		case report != nil:
			logger.Info("triage pass complete",
				zap.String("run_id", report.RunID),
				zap.Int("processed", len(report.Outcomes)),
				zap.Int("failed", len(report.Failures)),
				zap.String("log", logPath))
		}
	}

	c, job, err := newScheduler(daemonSchedule, pass, logger)
	if err != nil {
		return err
	}

	logger.Info("daemon started",
		zap.String("schedule", daemonSchedule),
		zap.String("mode", string(mode)),
		zap.String("config", configPath))
	c.Start()
	var startup sync.WaitGroup
	if daemonNow {
		startup.Add(1)
		go func() {
			defer startup.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down, waiting for running pass")
	<-c.Stop().Done()
	startup.Wait()
	return nil
}

// newScheduler registers pass on spec and returns the guarded job as well,
// so that passes started outside the schedule share the same overlap guard.
func newScheduler(spec string, pass func(), logger *zap.Logger) (*cron.Cron, cron.Job, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	cronLog := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	job := cron.NewChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)).Then(cron.FuncJob(pass))

	c := cron.New(cron.WithLogger(cronLog))
	c.Schedule(sched, job)
	return c, job, nil
}
