package task

import (
	"context"
	"time"

	"settlement-service/internal/biz"
	"settlement-service/internal/constants"
)

// DetailExtractor 明细抽取
type DetailExtractor interface {
	ExtractSettlementDetails(ctx context.Context) (int, error)
}

// DailyAggregator 日汇总
type DailyAggregator interface {
	AggregateDaily(ctx context.Context) (int, error)
}

// WeeklyAggregator 周汇总
type WeeklyAggregator interface {
	AggregateWeekly(ctx context.Context, targetDate time.Time) (int, error)
}

// MonthlyAggregator 月汇总
type MonthlyAggregator interface {
	AggregateMonthly(ctx context.Context, ym biz.YearMonth) (int, error)
}

// Jobs 构建两条结算流水线
type Jobs struct {
	detail  DetailExtractor
	daily   DailyAggregator
	weekly  WeeklyAggregator
	monthly MonthlyAggregator
	conf    *biz.SettlementConfig
}

// NewJobs 创建流水线构建器
func NewJobs(detail DetailExtractor, daily DailyAggregator, weekly WeeklyAggregator, monthly MonthlyAggregator, conf *biz.SettlementConfig) *Jobs {
	return &Jobs{
		detail:  detail,
		daily:   daily,
		weekly:  weekly,
		monthly: monthly,
		conf:    conf,
	}
}

// DetailDaily 流水线 A：明细抽取 -> 日汇总
func (j *Jobs) DetailDaily() Pipeline {
	return Pipeline{
		Name: constants.PipelineDetailDaily,
		Steps: []Step{
			{Name: constants.StepExtractDetail, Run: j.detail.ExtractSettlementDetails},
			{Name: constants.StepAggregateDaily, Run: j.daily.AggregateDaily},
		},
	}
}

// WeeklyMonthly 流水线 B：周汇总 -> 月汇总，目标日期在构建时确定
//
// 每次运行重算目标日期所在月及上个月的全部周与月，遗漏的运行由下一次运行补齐。
func (j *Jobs) WeeklyMonthly() Pipeline {
	target := j.conf.TargetDay()
	from := j.conf.RecomputeFrom(target)
	return Pipeline{
		Name: constants.PipelineWeeklyMonthly,
		Steps: []Step{
			{Name: constants.StepAggregateWeekly, Run: func(ctx context.Context) (int, error) {
				var total int
				for _, day := range biz.WeekStartsBetween(from, target) {
					n, err := j.weekly.AggregateWeekly(ctx, day)
					if err != nil {
						return total, err
					}
					total += n
				}
				return total, nil
			}},
			{Name: constants.StepAggregateMonthly, Run: func(ctx context.Context) (int, error) {
				var total int
				for _, ym := range biz.MonthsBetween(from, target) {
					n, err := j.monthly.AggregateMonthly(ctx, ym)
					if err != nil {
						return total, err
					}
					total += n
				}
				return total, nil
			}},
		},
	}
}
