// Package scheduler 以 cron 表达式周期触发各批处理任务
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/logger"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/metrics"
)

// Job 一次批处理
type Job func(ctx context.Context) error

// Scheduler 批处理调度器，同一任务上一轮未结束时跳过本轮
type Scheduler struct {
	ctx  context.Context
	cron *cron.Cron
	log  logrus.FieldLogger

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// New 创建调度器，ctx 取消后正在执行的任务收到取消信号。
// cron 表达式按 UTC 解释，与日报、时间线的日期一致。
func New(ctx context.Context, l logrus.FieldLogger) *Scheduler {
	l = logger.Or(l)
	cronLogger := cron.PrintfLogger(l)
	return &Scheduler{
		ctx: ctx,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		log:  l,
		jobs: make(map[string]cron.EntryID),
	}
}

// Register 注册任务，spec 为空表示不调度
func (s *Scheduler) Register(name, spec string, job Job) error {
	if spec == "" {
		s.log.Infof("任务 [%s] 未配置调度，跳过", name)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %s already registered", name)
	}

	id, err := s.cron.AddFunc(spec, s.wrap(name, job))
	if err != nil {
		return fmt.Errorf("failed to add job %s to cron: %w", name, err)
	}
	s.jobs[name] = id
	s.log.Infof("任务 [%s] 已注册: %s", name, spec)
	return nil
}

// Jobs 已注册的任务名
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next 任务下一次执行时间
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("调度器已启动")
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("调度器已停止")
}

func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		if s.ctx.Err() != nil {
			return
		}
		start := time.Now()
		err := job(s.ctx)
		metrics.ObservePass(name, start, err)
		if err != nil {
			s.log.Errorf("任务 [%s] 执行失败: %v", name, err)
			return
		}
		s.log.Infof("任务 [%s] 完成，耗时 %s", name, time.Since(start).Round(time.Millisecond))
	}
}
