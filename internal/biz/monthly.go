package biz

import (
	"context"
	"time"

	"settlement-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// SettlementMonthly 月汇总（host_biz_name, performance_title, year, month 唯一）
type SettlementMonthly struct {
	ID               string
	HostBizName      string
	PerformanceTitle string
	Year             int
	Month            int
	StatusID         int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Amounts
}

// MonthlyRepo 月汇总数据层接口
type MonthlyRepo interface {
	UpsertMonthly(ctx context.Context, rows []*SettlementMonthly) (int, error)
}

// MonthlyUseCase 月汇总
type MonthlyUseCase struct {
	weeklyRepo  WeeklyRepo
	monthlyRepo MonthlyRepo
	statusCache *StatusCache
	tx          Transaction
	conf        *SettlementConfig
	log         *log.Helper
}

// NewMonthlyUseCase 创建月汇总 UseCase
func NewMonthlyUseCase(
	weeklyRepo WeeklyRepo,
	monthlyRepo MonthlyRepo,
	statusCache *StatusCache,
	tx Transaction,
	conf *SettlementConfig,
	logger log.Logger,
) *MonthlyUseCase {
	return &MonthlyUseCase{
		weeklyRepo:  weeklyRepo,
		monthlyRepo: monthlyRepo,
		statusCache: statusCache,
		tx:          tx,
		conf:        conf,
		log:         log.NewHelper(logger),
	}
}

// AggregateMonthly 汇总 ym 的全部周汇总，返回写入的行数
func (uc *MonthlyUseCase) AggregateMonthly(ctx context.Context, ym YearMonth) (int, error) {
	var written int
	err := uc.tx.ExecTx(ctx, func(ctx context.Context) error {
		weekly, err := uc.weeklyRepo.ListWeeklyByMonth(ctx, ym)
		if err != nil {
			return err
		}
		if len(weekly) == 0 {
			uc.log.Infof("no weekly settlement for %s", ym)
			return nil
		}
		statusID, err := uc.statusCache.StatusID(ctx, constants.StatusSettlementPending)
		if err != nil {
			return err
		}

		sums := newRollup()
		for _, w := range weekly {
			sums.add(w.HostBizName, w.PerformanceTitle, w.Amounts)
		}

		now := uc.conf.Now()
		rows := make([]*SettlementMonthly, 0, len(sums.sums))
		sums.each(func(k performanceKey, a Amounts) {
			rows = append(rows, &SettlementMonthly{
				ID:               uuid.New().String(),
				HostBizName:      k.HostBizName,
				PerformanceTitle: k.PerformanceTitle,
				Year:             ym.Year,
				Month:            int(ym.Month),
				StatusID:         statusID,
				CreatedAt:        now,
				UpdatedAt:        now,
				Amounts:          a,
			})
		})

		n, err := uc.monthlyRepo.UpsertMonthly(ctx, rows)
		if err != nil {
			return err
		}
		written = n
		uc.log.Infof("monthly settlement aggregated: %s, rows=%d", ym, n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
