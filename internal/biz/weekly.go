package biz

import (
	"context"
	"time"

	"settlement-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// SettlementWeekly 周汇总（host_biz_name, performance_title, year, month, week 唯一）
type SettlementWeekly struct {
	ID               string
	HostBizName      string
	PerformanceTitle string
	Year             int
	Month            int
	Week             int
	StatusID         int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Amounts
}

// WeeklyRepo 周汇总数据层接口
type WeeklyRepo interface {
	UpsertWeekly(ctx context.Context, rows []*SettlementWeekly) (int, error)
	ListWeeklyByMonth(ctx context.Context, ym YearMonth) ([]*SettlementWeekly, error)
}

// WeeklyUseCase 周汇总
type WeeklyUseCase struct {
	dailyRepo   DailyRepo
	weeklyRepo  WeeklyRepo
	statusCache *StatusCache
	tx          Transaction
	conf        *SettlementConfig
	log         *log.Helper
}

// NewWeeklyUseCase 创建周汇总 UseCase
func NewWeeklyUseCase(
	dailyRepo DailyRepo,
	weeklyRepo WeeklyRepo,
	statusCache *StatusCache,
	tx Transaction,
	conf *SettlementConfig,
	logger log.Logger,
) *WeeklyUseCase {
	return &WeeklyUseCase{
		dailyRepo:   dailyRepo,
		weeklyRepo:  weeklyRepo,
		statusCache: statusCache,
		tx:          tx,
		conf:        conf,
		log:         log.NewHelper(logger),
	}
}

// AggregateWeekly 汇总 targetDate 所在月内周的日汇总，返回写入的行数
func (uc *WeeklyUseCase) AggregateWeekly(ctx context.Context, targetDate time.Time) (int, error) {
	key := WeekKeyOf(targetDate.In(uc.conf.Location))

	var written int
	err := uc.tx.ExecTx(ctx, func(ctx context.Context) error {
		daily, err := uc.dailyRepo.ListDailyByWeek(ctx, key)
		if err != nil {
			return err
		}
		if len(daily) == 0 {
			uc.log.Infof("no daily settlement for %d-%02d week %d", key.Year, key.Month, key.Week)
			return nil
		}
		statusID, err := uc.statusCache.StatusID(ctx, constants.StatusSettlementPending)
		if err != nil {
			return err
		}

		sums := newRollup()
		for _, d := range daily {
			sums.add(d.HostBizName, d.PerformanceTitle, d.Amounts)
		}

		now := uc.conf.Now()
		rows := make([]*SettlementWeekly, 0, len(sums.sums))
		sums.each(func(k performanceKey, a Amounts) {
			rows = append(rows, &SettlementWeekly{
				ID:               uuid.New().String(),
				HostBizName:      k.HostBizName,
				PerformanceTitle: k.PerformanceTitle,
				Year:             key.Year,
				Month:            key.Month,
				Week:             key.Week,
				StatusID:         statusID,
				CreatedAt:        now,
				UpdatedAt:        now,
				Amounts:          a,
			})
		})

		n, err := uc.weeklyRepo.UpsertWeekly(ctx, rows)
		if err != nil {
			return err
		}
		written = n
		uc.log.Infof("weekly settlement aggregated: %d-%02d week %d, rows=%d", key.Year, key.Month, key.Week, n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
