package task

import (
	"context"
	"fmt"

	"settlement-service/internal/biz"
	"settlement-service/internal/conf"
	"settlement-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultDetailDailySpec 流水线 A 默认每小时执行
	DefaultDetailDailySpec = "@every 1h"
	// DefaultWeeklyMonthlySpec 流水线 B 默认每天 00:30:00 执行
	DefaultWeeklyMonthlySpec = "0 30 0 * * *"
)

// cronLogger 将 robfig/cron 日志转到 kratos logger
type cronLogger struct {
	log *log.Helper
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(append([]interface{}{"msg", "[CRON] " + msg}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(append([]interface{}{"msg", "[CRON] " + msg, "error", err}, keysAndValues...)...)
}

// Scheduler 结算流水线调度器
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	jobs   *Jobs
	conf   *biz.SettlementConfig
	log    *log.Helper
	specs  map[string]string
}

// NewScheduler 创建调度器并注册已启用的流水线
func NewScheduler(c *conf.Bootstrap, sc *biz.SettlementConfig, runner *Runner, jobs *Jobs, logger log.Logger) (*Scheduler, error) {
	helper := log.NewHelper(logger)
	cl := cronLogger{log: helper}
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(sc.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		jobs:   jobs,
		conf:   sc,
		log:    helper,
		specs:  make(map[string]string),
	}

	var a, b *conf.Pipeline
	if c != nil && c.Settlement != nil {
		a, b = c.Settlement.PipelineA, c.Settlement.PipelineB
	}
	if err := s.register(constants.PipelineDetailDaily, a, DefaultDetailDailySpec, jobs.DetailDaily); err != nil {
		return nil, err
	}
	if err := s.register(constants.PipelineWeeklyMonthly, b, DefaultWeeklyMonthlySpec, jobs.WeeklyMonthly); err != nil {
		return nil, err
	}
	return s, nil
}

// register 未配置时使用默认 cron 表达式；配置了但 enabled=false 时不注册
func (s *Scheduler) register(name string, p *conf.Pipeline, def string, build func() Pipeline) error {
	spec := def
	if p != nil {
		if !p.Enabled {
			s.log.Infof("pipeline %s is disabled", name)
			return nil
		}
		if p.Spec != "" {
			spec = p.Spec
		}
	}
	if _, err := s.cron.AddJob(spec, s.job(build)); err != nil {
		return fmt.Errorf("add pipeline %s with spec %q: %w", name, spec, err)
	}
	s.specs[name] = spec
	return nil
}

// job 单次运行的总时长不超过运行锁的租期
func (s *Scheduler) job(build func() Pipeline) cron.Job {
	return cron.FuncJob(func() {
		p := build()
		s.log.Infof("[CRON] Starting pipeline %s...", p.Name)
		ctx, cancel := context.WithTimeout(context.Background(), s.conf.RunLockTimeout)
		defer cancel()

		results, err := s.runner.Run(ctx, p)
		if err != nil {
			s.log.Errorf("[CRON] Pipeline %s finished with error: %v", p.Name, err)
			return
		}
		for _, r := range results {
			s.log.Infof("[CRON] Pipeline %s step %s: status=%s, rows=%d", p.Name, r.Step, r.Status, r.Rows)
		}
		s.log.Infof("[CRON] Finished pipeline %s", p.Name)
	})
}

// Specs 已注册的流水线及其 cron 表达式
func (s *Scheduler) Specs() map[string]string {
	out := make(map[string]string, len(s.specs))
	for k, v := range s.specs {
		out[k] = v
	}
	return out
}

// RunOnce 立即执行一次指定流水线（a/detail-daily 或 b/weekly-monthly）
func (s *Scheduler) RunOnce(ctx context.Context, name string) ([]StepResult, error) {
	switch name {
	case "a", constants.PipelineDetailDaily:
		return s.runner.Run(ctx, s.jobs.DetailDaily())
	case "b", constants.PipelineWeeklyMonthly:
		return s.runner.Run(ctx, s.jobs.WeeklyMonthly())
	default:
		return nil, fmt.Errorf("unknown pipeline %q", name)
	}
}

// Start 启动调度
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	for name, spec := range s.specs {
		s.log.Infof("  - %s: %s", name, spec)
	}
	return nil
}

// Stop 等待正在执行的流水线结束
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("Cron jobs stopped gracefully")
		return nil
	case <-ctx.Done():
		s.log.Info("Cron jobs forced to stop after timeout")
		return ctx.Err()
	}
}
