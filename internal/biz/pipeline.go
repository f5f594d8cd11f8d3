package biz

import (
	"context"
	"time"

	"settlement-service/internal/constants"
)

// Transaction 事务接口，事务对象通过 ctx 传递给各 Repo
type Transaction interface {
	ExecTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RunLock 流水线运行锁（跨实例互斥）
type RunLock interface {
	// Acquire 获取锁，被占用时返回 ErrRunLockBusy
	Acquire(ctx context.Context, name string, ttl time.Duration) (Unlocker, error)
}

// Unlocker 已持有的锁
type Unlocker interface {
	Release(ctx context.Context) error
}

// JobRun 流水线步骤执行记录
type JobRun struct {
	ID         string
	RunID      string // 同一次流水线运行共享
	Pipeline   string
	Step       string
	Status     string // success/failed/skipped
	Rows       int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// JobRunRepo 执行记录数据层接口
type JobRunRepo interface {
	CreateJobRun(ctx context.Context, run *JobRun) error
	ListRecentJobRuns(ctx context.Context, pipeline string, limit int) ([]*JobRun, error)
}

// PipelineEvent 流水线完成事件
type PipelineEvent struct {
	RunID      string         `json:"run_id"`
	Pipeline   string         `json:"pipeline"`
	Steps      map[string]int `json:"steps"` // step -> 写入行数
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// EventPublisher 事件发布接口（未启用 MQ 时为空实现）
type EventPublisher interface {
	PublishPipelineCompleted(ctx context.Context, event *PipelineEvent) error
}

// JobHistoryUseCase 流水线执行记录查询
type JobHistoryUseCase struct {
	repo JobRunRepo
}

// NewJobHistoryUseCase 创建执行记录查询 UseCase
func NewJobHistoryUseCase(repo JobRunRepo) *JobHistoryUseCase {
	return &JobHistoryUseCase{repo: repo}
}

// Recent 最近的执行记录，limit 超出范围时使用默认分页大小
func (uc *JobHistoryUseCase) Recent(ctx context.Context, pipeline string, limit int) ([]*JobRun, error) {
	if limit <= 0 || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	return uc.repo.ListRecentJobRuns(ctx, pipeline, limit)
}
