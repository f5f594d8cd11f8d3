package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SettlementMetrics 结算流水线指标
type SettlementMetrics struct {
	// 流水线相关指标
	PipelineRunTotal    *prometheus.CounterVec // 流水线执行总数（按流水线、结果）
	PipelineLastSuccess *prometheus.GaugeVec   // 最近一次成功的 unix 时间戳

	// 步骤相关指标
	StepDuration *prometheus.HistogramVec // 步骤耗时
	StepRows     *prometheus.CounterVec   // 步骤写入行数
	StepTotal    *prometheus.CounterVec   // 步骤执行总数（按结果）

	// 明细抽取
	DetailSkippedTotal *prometheus.CounterVec // 跳过的预约数（按原因）

	// 状态缓存
	StatusCacheTotal *prometheus.CounterVec // 状态缓存命中/未命中

	// 运行锁相关指标
	LockAcquireTotal    *prometheus.CounterVec // 锁获取总数（按结果）
	LockAcquireDuration prometheus.Histogram   // 锁获取耗时
}

// NewSettlementMetrics 创建结算流水线指标
func NewSettlementMetrics() *SettlementMetrics {
	return &SettlementMetrics{
		PipelineRunTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_pipeline_run_total",
				Help: "Total number of settlement pipeline runs",
			},
			[]string{"pipeline", "result"}, // result: success/failed/skipped
		),
		PipelineLastSuccess: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "settlement_pipeline_last_success_timestamp_seconds",
				Help: "Unix time of the last successful pipeline run",
			},
			[]string{"pipeline"},
		),

		StepDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "settlement_step_duration_seconds",
				Help:    "Duration of settlement pipeline steps",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
			},
			[]string{"pipeline", "step"},
		),
		StepRows: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_step_rows_total",
				Help: "Rows written by settlement pipeline steps",
			},
			[]string{"step"},
		),
		StepTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_step_total",
				Help: "Total number of settlement pipeline step executions",
			},
			[]string{"step", "result"},
		),

		DetailSkippedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_detail_skipped_total",
				Help: "Reservations skipped by the detail extractor",
			},
			[]string{"reason"},
		),

		StatusCacheTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_status_cache_total",
				Help: "Status cache lookups",
			},
			[]string{"result"}, // result: hit/miss
		),

		LockAcquireTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_lock_acquire_total",
				Help: "Total number of run lock acquisition attempts",
			},
			[]string{"pipeline", "result"}, // result: success/failed
		),
		LockAcquireDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "settlement_lock_acquire_duration_seconds",
				Help:    "Duration of run lock acquisition",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
	}
}

var (
	defaultMetrics *SettlementMetrics
	once           sync.Once
)

// GetMetrics 获取全局指标实例
func GetMetrics() *SettlementMetrics {
	once.Do(func() {
		defaultMetrics = NewSettlementMetrics()
	})
	return defaultMetrics
}
