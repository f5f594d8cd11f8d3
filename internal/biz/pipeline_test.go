package biz

import (
	"context"
	"testing"

	"settlement-service/internal/constants"

	"github.com/stretchr/testify/require"
)

type recordingJobRuns struct {
	pipeline string
	limit    int
}

func (r *recordingJobRuns) CreateJobRun(ctx context.Context, run *JobRun) error { return nil }

func (r *recordingJobRuns) ListRecentJobRuns(ctx context.Context, pipeline string, limit int) ([]*JobRun, error) {
	r.pipeline = pipeline
	r.limit = limit
	return nil, nil
}

func TestJobHistoryLimit(t *testing.T) {
	repo := &recordingJobRuns{}
	uc := NewJobHistoryUseCase(repo)
	ctx := context.Background()

	_, err := uc.Recent(ctx, constants.PipelineWeeklyMonthly, 0)
	require.NoError(t, err)
	require.Equal(t, constants.DefaultPageSize, repo.limit)
	require.Equal(t, constants.PipelineWeeklyMonthly, repo.pipeline)

	_, err = uc.Recent(ctx, "", constants.MaxPageSize+1)
	require.NoError(t, err)
	require.Equal(t, constants.DefaultPageSize, repo.limit)

	_, err = uc.Recent(ctx, "", 7)
	require.NoError(t, err)
	require.Equal(t, 7, repo.limit)
}
