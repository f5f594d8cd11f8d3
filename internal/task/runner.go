package task

import (
	"context"
	"errors"
	"time"

	"settlement-service/internal/biz"
	"settlement-service/internal/constants"
	settlementErrors "settlement-service/internal/errors"
	"settlement-service/internal/metrics"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

const releaseTimeout = 5 * time.Second

// Step 流水线步骤，返回写入行数
type Step struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// Pipeline 有序步骤，任一步骤失败则中止后续步骤
type Pipeline struct {
	Name  string
	Steps []Step
}

// StepResult 步骤执行结果
type StepResult struct {
	Step   string
	Status string
	Rows   int
	Err    error
}

// Runner 流水线执行器
type Runner struct {
	lock      biz.RunLock
	runs      biz.JobRunRepo
	publisher biz.EventPublisher
	conf      *biz.SettlementConfig
	log       *log.Helper
	metrics   *metrics.SettlementMetrics
}

// NewRunner 创建流水线执行器
func NewRunner(lock biz.RunLock, runs biz.JobRunRepo, publisher biz.EventPublisher, conf *biz.SettlementConfig, logger log.Logger) *Runner {
	return &Runner{
		lock:      lock,
		runs:      runs,
		publisher: publisher,
		conf:      conf,
		log:       log.NewHelper(logger),
		metrics:   metrics.GetMetrics(),
	}
}

// Run 获取运行锁后依次执行步骤
//
// 锁被占用时不执行任何步骤并返回 ErrRunLockBusy。
func (r *Runner) Run(ctx context.Context, p Pipeline) ([]StepResult, error) {
	unlocker, err := r.acquire(ctx, p.Name)
	if err != nil {
		if kerrors.Reason(err) == settlementErrors.ReasonRunLockBusy {
			r.log.Infof("pipeline %s is already running elsewhere, skipped", p.Name)
			r.countRun(p.Name, constants.JobStatusSkipped)
		} else {
			r.log.Errorf("pipeline %s acquire run lock failed: %v", p.Name, err)
			r.countRun(p.Name, constants.JobStatusFailed)
		}
		return nil, err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := unlocker.Release(releaseCtx); err != nil {
			r.log.Warnf("pipeline %s release run lock failed: %v", p.Name, err)
		}
	}()

	runID := uuid.New().String()
	startedAt := r.conf.Now()
	results := make([]StepResult, 0, len(p.Steps))
	var failed error
	for _, step := range p.Steps {
		if failed != nil {
			now := r.conf.Now()
			r.record(ctx, &biz.JobRun{
				RunID: runID, Pipeline: p.Name, Step: step.Name, Status: constants.JobStatusSkipped,
				StartedAt: now, FinishedAt: now,
			})
			results = append(results, StepResult{Step: step.Name, Status: constants.JobStatusSkipped})
			continue
		}
		res := r.runStep(ctx, p.Name, runID, step)
		results = append(results, res)
		if res.Err != nil {
			failed = res.Err
		}
	}

	if failed != nil {
		r.countRun(p.Name, constants.JobStatusFailed)
		return results, failed
	}

	r.countRun(p.Name, constants.JobStatusSuccess)
	if r.metrics != nil {
		r.metrics.PipelineLastSuccess.WithLabelValues(p.Name).SetToCurrentTime()
	}

	event := &biz.PipelineEvent{
		RunID:      runID,
		Pipeline:   p.Name,
		Steps:      make(map[string]int, len(results)),
		StartedAt:  startedAt,
		FinishedAt: r.conf.Now(),
	}
	for _, res := range results {
		event.Steps[res.Step] = res.Rows
	}
	if err := r.publisher.PublishPipelineCompleted(ctx, event); err != nil {
		// 事件发布失败不影响已提交的结果
		r.log.Warnf("pipeline %s publish completed event failed: %v", p.Name, err)
	}
	return results, nil
}

func (r *Runner) acquire(ctx context.Context, name string) (biz.Unlocker, error) {
	start := time.Now()
	unlocker, err := r.lock.Acquire(ctx, name, r.conf.RunLockTimeout)
	if r.metrics != nil {
		r.metrics.LockAcquireDuration.Observe(time.Since(start).Seconds())
		result := constants.JobStatusSuccess
		if err != nil {
			result = constants.JobStatusFailed
		}
		r.metrics.LockAcquireTotal.WithLabelValues(name, result).Inc()
	}
	return unlocker, err
}

// runStep 单步骤执行，超时后步骤事务随 ctx 取消回滚
func (r *Runner) runStep(ctx context.Context, pipeline, runID string, step Step) StepResult {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()

	startedAt := r.conf.Now()
	begin := time.Now()
	rows, err := step.Run(stepCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = settlementErrors.ErrStepTimeout.WithCause(err)
	}
	elapsed := time.Since(begin)

	res := StepResult{Step: step.Name, Status: constants.JobStatusSuccess, Rows: rows, Err: err}
	run := &biz.JobRun{
		RunID:      runID,
		Pipeline:   pipeline,
		Step:       step.Name,
		Status:     constants.JobStatusSuccess,
		Rows:       rows,
		StartedAt:  startedAt,
		FinishedAt: r.conf.Now(),
	}
	if err != nil {
		res.Status = constants.JobStatusFailed
		res.Rows = 0
		run.Status = constants.JobStatusFailed
		run.Rows = 0
		run.Error = err.Error()
		r.log.Errorf("pipeline %s step %s failed after %s (retryable=%t): %v",
			pipeline, step.Name, elapsed, settlementErrors.IsRetryable(err), err)
	} else {
		r.log.Infof("pipeline %s step %s done: rows=%d, elapsed=%s", pipeline, step.Name, rows, elapsed)
	}
	r.record(ctx, run)

	if r.metrics != nil {
		r.metrics.StepDuration.WithLabelValues(pipeline, step.Name).Observe(elapsed.Seconds())
		r.metrics.StepTotal.WithLabelValues(step.Name, res.Status).Inc()
		r.metrics.StepRows.WithLabelValues(step.Name).Add(float64(res.Rows))
	}
	return res
}

func (r *Runner) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.conf.StepTimeout > 0 {
		return context.WithTimeout(ctx, r.conf.StepTimeout)
	}
	return context.WithCancel(ctx)
}

func (r *Runner) record(ctx context.Context, run *biz.JobRun) {
	if err := r.runs.CreateJobRun(ctx, run); err != nil {
		r.log.Warnf("record job run failed: pipeline=%s, step=%s, error=%v", run.Pipeline, run.Step, err)
	}
}

func (r *Runner) countRun(pipeline, result string) {
	if r.metrics != nil {
		r.metrics.PipelineRunTotal.WithLabelValues(pipeline, result).Inc()
	}
}
