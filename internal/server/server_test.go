package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"settlement-service/internal/biz"
	"settlement-service/internal/conf"
	"settlement-service/internal/constants"
	"settlement-service/internal/service"

	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type countingStatusRepo struct {
	loads int
}

func (r *countingStatusRepo) ListStatuses(ctx context.Context) ([]*biz.SettlementStatus, error) {
	r.loads++
	return []*biz.SettlementStatus{{ID: 1, Code: constants.StatusSettlementPending}}, nil
}

func (r *countingStatusRepo) InvalidateStatuses(ctx context.Context) error { return nil }

func eventMessage(t *testing.T, e *biz.PipelineEvent) *primitive.MessageExt {
	body, err := json.Marshal(e)
	require.NoError(t, err)
	return &primitive.MessageExt{Message: primitive.Message{Body: body}}
}

func TestMQConsumerInvalidatesStatusCache(t *testing.T) {
	repo := &countingStatusRepo{}
	cache := biz.NewStatusCache(repo, log.DefaultLogger)
	ctx := context.Background()

	_, err := cache.StatusID(ctx, constants.StatusSettlementPending)
	require.NoError(t, err)
	require.Equal(t, 1, repo.loads)

	s := NewMQConsumerServer(&conf.Bootstrap{}, cache, log.DefaultLogger)
	require.NoError(t, s.Start(ctx))

	res, err := s.handler(ctx, eventMessage(t, &biz.PipelineEvent{
		RunID:      "r1",
		Pipeline:   constants.PipelineDetailDaily,
		Steps:      map[string]int{constants.StepExtractDetail: 3},
		FinishedAt: time.Now(),
	}))
	require.NoError(t, err)
	require.Equal(t, consumer.ConsumeSuccess, res)

	_, err = cache.StatusID(ctx, constants.StatusSettlementPending)
	require.NoError(t, err)
	require.Equal(t, 2, repo.loads)
	require.NoError(t, s.Stop(ctx))
}

func TestMQConsumerSkipsMalformedMessages(t *testing.T) {
	repo := &countingStatusRepo{}
	cache := biz.NewStatusCache(repo, log.DefaultLogger)
	ctx := context.Background()
	_, err := cache.StatusID(ctx, constants.StatusSettlementPending)
	require.NoError(t, err)

	s := NewMQConsumerServer(&conf.Bootstrap{}, cache, log.DefaultLogger)
	res, err := s.handler(ctx, &primitive.MessageExt{Message: primitive.Message{Body: []byte("{")}})
	require.NoError(t, err)
	require.Equal(t, consumer.ConsumeSuccess, res)

	// 无有效事件时缓存保持不变
	_, err = cache.StatusID(ctx, constants.StatusSettlementPending)
	require.NoError(t, err)
	require.Equal(t, 1, repo.loads)
}

func TestHTTPServerRoutes(t *testing.T) {
	svc := service.NewSettlementService(nil, nil, &biz.SettlementConfig{Location: time.UTC}, log.DefaultLogger)
	srv := NewHTTPServer(&conf.Bootstrap{Server: &conf.Server{Http: &conf.Server_HTTP{Timeout: "5s"}}}, svc)

	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

// slowExportRepo 每个导出分块之前等待 delay
type slowExportRepo struct {
	chunks int
	delay  time.Duration
}

func (r *slowExportRepo) ListDetails(ctx context.Context, f *biz.QueryFilter) ([]*biz.SettlementDetail, int64, error) {
	return nil, 0, nil
}

func (r *slowExportRepo) ListDaily(ctx context.Context, f *biz.QueryFilter) ([]*biz.SettlementDaily, int64, error) {
	return nil, 0, nil
}

func (r *slowExportRepo) ListWeekly(ctx context.Context, f *biz.QueryFilter) ([]*biz.SettlementWeekly, int64, error) {
	return nil, 0, nil
}

func (r *slowExportRepo) ListMonthly(ctx context.Context, f *biz.QueryFilter) ([]*biz.SettlementMonthly, int64, error) {
	return nil, 0, nil
}

func (r *slowExportRepo) SumDetails(ctx context.Context, hostBizName string, statusID int64) (*biz.UnsettledAmount, error) {
	return &biz.UnsettledAmount{}, nil
}

func (r *slowExportRepo) ForEachDetailChunk(ctx context.Context, f *biz.QueryFilter, chunkSize int, fn func([]*biz.SettlementDetail) error) error {
	for i := 0; i < r.chunks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delay):
		}
		if err := fn([]*biz.SettlementDetail{{
			ID:                 "d",
			HostBizName:        "Acme",
			PerformanceTitle:   "Hamlet",
			ReservationCode:    "R-" + string(rune('A'+i)),
			ContractChargeRate: decimal.RequireFromString("0.05"),
			StatusID:           1,
			Amounts:            biz.Amounts{SalesAmount: 1000, GrossAmount: 1000, Commission: 50, NetAmount: 950},
		}}); err != nil {
			return err
		}
	}
	return nil
}

func TestHTTPServerExportOutlivesServerTimeout(t *testing.T) {
	repo := &slowExportRepo{chunks: 5, delay: 30 * time.Millisecond}
	uc := biz.NewSettlementQueryUseCase(repo, biz.NewStatusCache(&countingStatusRepo{}, log.DefaultLogger), log.DefaultLogger)
	svc := service.NewSettlementService(uc, nil, &biz.SettlementConfig{Location: time.UTC, BatchSize: 1}, log.DefaultLogger)
	srv := NewHTTPServer(&conf.Bootstrap{Server: &conf.Server{Http: &conf.Server_HTTP{Timeout: "70ms"}}}, svc)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/settlements/details/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	require.Equal(t, "R-E", records[5][0])
	require.Equal(t, service.ExportStatusComplete, rec.Result().Trailer.Get(service.ExportStatusTrailer))
	require.Equal(t, "5", rec.Result().Trailer.Get(service.ExportRowsTrailer))
}

func TestHTTPServerRecoversHandlerPanic(t *testing.T) {
	// 未注入 UseCase 时查询 handler 会 panic
	svc := service.NewSettlementService(nil, nil, &biz.SettlementConfig{Location: time.UTC}, log.DefaultLogger)
	srv := NewHTTPServer(&conf.Bootstrap{}, svc)

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/settlements/details", nil))
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// panic 之后服务器继续处理请求
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsServer(t *testing.T) {
	srv := NewMetricsServer(&conf.Bootstrap{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
