package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/logger"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/matcher"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/metrics"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/scheduler"
)

func newJobCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: jobShort[name],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()
			defer serveMetrics(metricsAddr, a.log)()
			return runJob(cmd.Context(), a, name)
		},
	}
}

func runJob(ctx context.Context, a *app, name string) error {
	start := time.Now()
	err := a.job(name)(ctx)
	metrics.ObservePass(name, start, err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

var runAllCmd = &cobra.Command{
	Use:   "run-all",
	Short: "Run every stage once in pipeline order",
	Long: `Run crawl, scout, match, map, timeline and report once, in that order.
A failing stage is logged and the remaining stages still run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		var failed []string
		for _, name := range jobNames {
			if err := runJob(cmd.Context(), a, name); err != nil {
				a.log.Errorf("阶段执行失败: %v", err)
				failed = append(failed, name)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("stages failed: %v", failed)
		}
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run stages on their cron schedules until interrupted",
	Long: `Register every stage with a non-empty schedule.<stage> cron spec and
run them until SIGINT or SIGTERM. A stage whose previous run is still in
progress is skipped for that tick.

Examples:
  # Run with metrics exposed
  signal_radar schedule --config configs/config.yaml --metrics-addr :9102`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()
		defer serveMetrics(metricsAddr, a.log)()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := scheduler.New(ctx, a.log)
		for _, name := range jobNames {
			if err := s.Register(name, a.spec(name), a.job(name)); err != nil {
				return err
			}
		}
		if len(s.Jobs()) == 0 {
			return fmt.Errorf("no stage has a schedule configured")
		}

		s.Start()
		<-ctx.Done()
		logger.Log.Info("收到退出信号，等待任务结束...")
		s.Stop()
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema and seed customers",
	Long: `Open the configured database, which creates any missing tables and
indexes, then upsert the customers listed under "customers".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := matcher.NewMatcher(a.store, a.cfg.Account.BatchSize, a.log).SeedCustomers(cmd.Context(), a.cfg.Customers)
		if err != nil {
			return err
		}
		a.log.Infof("数据库结构已就绪，客户 %d 个", n)
		return nil
	},
}
