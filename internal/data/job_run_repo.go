package data

import (
	"context"

	"settlement-service/internal/biz"
	"settlement-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// jobRunRepo 流水线执行记录
type jobRunRepo struct {
	data *Data
	log  *log.Helper
}

// NewJobRunRepo 创建执行记录 repo（返回 biz.JobRunRepo 接口）
func NewJobRunRepo(data *Data, logger log.Logger) biz.JobRunRepo {
	return &jobRunRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateJobRun 写入执行记录（不参与步骤事务，步骤失败回滚后记录仍保留）
func (r *jobRunRepo) CreateJobRun(ctx context.Context, run *biz.JobRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	m := &model.SettlementJobRun{
		ID:         run.ID,
		RunID:      run.RunID,
		Pipeline:   run.Pipeline,
		Step:       run.Step,
		Status:     run.Status,
		RowCount:   run.Rows,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	if err := r.data.batchDB.WithContext(ctx).Create(m).Error; err != nil {
		r.log.Errorf("CreateJobRun failed: pipeline=%s, step=%s, error=%v", run.Pipeline, run.Step, err)
		return err
	}
	return nil
}

// ListRecentJobRuns 最近的执行记录，pipeline 为空时不过滤
func (r *jobRunRepo) ListRecentJobRuns(ctx context.Context, pipeline string, limit int) ([]*biz.JobRun, error) {
	db := r.data.DB(ctx)
	if pipeline != "" {
		db = db.Where("pipeline = ?", pipeline)
	}
	var rows []model.SettlementJobRun
	if err := db.Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		r.log.Errorf("ListRecentJobRuns failed: %v", err)
		return nil, err
	}
	out := make([]*biz.JobRun, 0, len(rows))
	for _, m := range rows {
		out = append(out, &biz.JobRun{
			ID:         m.ID,
			RunID:      m.RunID,
			Pipeline:   m.Pipeline,
			Step:       m.Step,
			Status:     m.Status,
			Rows:       m.RowCount,
			Error:      m.Error,
			StartedAt:  m.StartedAt,
			FinishedAt: m.FinishedAt,
		})
	}
	return out, nil
}
