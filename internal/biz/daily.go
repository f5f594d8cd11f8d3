package biz

import (
	"context"
	"sort"
	"time"

	"settlement-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// SettlementDaily 日汇总（host_biz_name, performance_title, year, month, day 唯一）
type SettlementDaily struct {
	ID               string
	HostBizName      string
	PerformanceTitle string
	Year             int
	Month            int
	Day              int
	Week             int // 所在月内周，供周汇总筛选
	StatusID         int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Amounts
}

// DailyRepo 日汇总数据层接口
type DailyRepo interface {
	// UpsertDaily 按唯一键写入，已存在的行覆盖金额
	UpsertDaily(ctx context.Context, rows []*SettlementDaily) (int, error)
	// ListDailyByWeek 某个月内周的全部日汇总
	ListDailyByWeek(ctx context.Context, key WeekKey) ([]*SettlementDaily, error)
}

// DailyUseCase 日汇总
type DailyUseCase struct {
	detailRepo  DetailRepo
	dailyRepo   DailyRepo
	statusCache *StatusCache
	tx          Transaction
	conf        *SettlementConfig
	log         *log.Helper
}

// NewDailyUseCase 创建日汇总 UseCase
func NewDailyUseCase(
	detailRepo DetailRepo,
	dailyRepo DailyRepo,
	statusCache *StatusCache,
	tx Transaction,
	conf *SettlementConfig,
	logger log.Logger,
) *DailyUseCase {
	return &DailyUseCase{
		detailRepo:  detailRepo,
		dailyRepo:   dailyRepo,
		statusCache: statusCache,
		tx:          tx,
		conf:        conf,
		log:         log.NewHelper(logger),
	}
}

type dailyBucket struct {
	performanceKey
	dayKey
}

// AggregateDaily 以全部明细重新计算日汇总（覆盖写，可重复执行），返回写入的桶数
func (uc *DailyUseCase) AggregateDaily(ctx context.Context) (int, error) {
	var written int
	err := uc.tx.ExecTx(ctx, func(ctx context.Context) error {
		statusID, err := uc.statusCache.StatusID(ctx, constants.StatusSettlementPending)
		if err != nil {
			return err
		}

		buckets := make(map[dailyBucket]*SettlementDaily)
		err = uc.detailRepo.ForEachDetail(ctx, uc.conf.BatchSize, func(batch []*SettlementDetail) error {
			for _, d := range batch {
				local := d.CreatedAt.In(uc.conf.Location)
				k := dailyBucket{
					performanceKey: performanceKey{HostBizName: d.HostBizName, PerformanceTitle: d.PerformanceTitle},
					dayKey:         dayKeyOf(local),
				}
				row, ok := buckets[k]
				if !ok {
					row = &SettlementDaily{
						HostBizName:      d.HostBizName,
						PerformanceTitle: d.PerformanceTitle,
						Year:             k.Year,
						Month:            k.Month,
						Day:              k.Day,
						Week:             WeekOfMonth(local),
					}
					buckets[k] = row
				}
				row.Amounts.Add(d.Amounts)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(buckets) == 0 {
			return nil
		}

		now := uc.conf.Now()
		rows := make([]*SettlementDaily, 0, len(buckets))
		for _, row := range buckets {
			row.ID = uuid.New().String()
			row.StatusID = statusID
			row.CreatedAt = now
			row.UpdatedAt = now
			rows = append(rows, row)
		}
		sortDaily(rows)

		n, err := uc.dailyRepo.UpsertDaily(ctx, rows)
		if err != nil {
			return err
		}
		written = n
		uc.log.Infof("daily settlement aggregated: buckets=%d", n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// sortDaily 固定写入顺序，多实例下加锁顺序一致
func sortDaily(rows []*SettlementDaily) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.HostBizName != b.HostBizName {
			return a.HostBizName < b.HostBizName
		}
		if a.PerformanceTitle != b.PerformanceTitle {
			return a.PerformanceTitle < b.PerformanceTitle
		}
		return DateSerial(a.Year, a.Month, a.Day) < DateSerial(b.Year, b.Month, b.Day)
	})
}
