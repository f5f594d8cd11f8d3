package data

import (
	"context"

	"settlement-service/internal/biz"
	"settlement-service/internal/constants"
	"settlement-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm/clause"
)

// dailyRepo 日汇总数据访问
type dailyRepo struct {
	data *Data
	log  *log.Helper
}

// NewDailyRepo 创建日汇总 repo（返回 biz.DailyRepo 接口）
func NewDailyRepo(data *Data, logger log.Logger) biz.DailyRepo {
	return &dailyRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// UpsertDaily 冲突时覆盖金额（不累加），status_id 与创建时间保持不变
func (r *dailyRepo) UpsertDaily(ctx context.Context, rows []*biz.SettlementDaily) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	models := make([]model.SettlementDaily, 0, len(rows))
	for _, d := range rows {
		models = append(models, model.SettlementDaily{
			ID:                d.ID,
			HostBizName:       d.HostBizName,
			PerformanceTitle:  d.PerformanceTitle,
			Year:              d.Year,
			Month:             d.Month,
			Day:               d.Day,
			Week:              d.Week,
			DailySalesAmount:  d.SalesAmount,
			DailyRefundAmount: d.RefundAmount,
			DailyGrossAmount:  d.GrossAmount,
			DailyCommission:   d.Commission,
			DailyNetAmount:    d.NetAmount,
			StatusID:          d.StatusID,
			DailyCreatedAt:    d.CreatedAt,
			UpdatedAt:         d.UpdatedAt,
		})
	}

	err := r.data.BatchDB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "host_biz_name"}, {Name: "performance_title"},
				{Name: "year"}, {Name: "month"}, {Name: "day"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"week",
				"daily_sales_amount", "daily_refund_amount", "daily_gross_amount",
				"daily_commission", "daily_net_amount",
				"updated_at",
			}),
		}).
		CreateInBatches(&models, constants.DefaultBatchSize).Error
	if err != nil {
		r.log.Errorf("UpsertDaily failed: count=%d, error=%v", len(models), err)
		return 0, err
	}
	return len(models), nil
}

// ListDailyByWeek 某月内周的全部日汇总
func (r *dailyRepo) ListDailyByWeek(ctx context.Context, key biz.WeekKey) ([]*biz.SettlementDaily, error) {
	var rows []model.SettlementDaily
	err := r.data.BatchDB(ctx).
		Where("year = ? AND month = ? AND week = ?", key.Year, key.Month, key.Week).
		Order("host_biz_name, performance_title, day").
		Find(&rows).Error
	if err != nil {
		r.log.Errorf("ListDailyByWeek failed: key=%+v, error=%v", key, err)
		return nil, err
	}
	return toDaily(rows), nil
}

func toDaily(rows []model.SettlementDaily) []*biz.SettlementDaily {
	out := make([]*biz.SettlementDaily, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		out = append(out, &biz.SettlementDaily{
			ID:               m.ID,
			HostBizName:      m.HostBizName,
			PerformanceTitle: m.PerformanceTitle,
			Year:             m.Year,
			Month:            m.Month,
			Day:              m.Day,
			Week:             m.Week,
			StatusID:         m.StatusID,
			CreatedAt:        m.DailyCreatedAt,
			UpdatedAt:        m.UpdatedAt,
			Amounts: biz.Amounts{
				SalesAmount:  m.DailySalesAmount,
				RefundAmount: m.DailyRefundAmount,
				GrossAmount:  m.DailyGrossAmount,
				Commission:   m.DailyCommission,
				NetAmount:    m.DailyNetAmount,
			},
		})
	}
	return out
}
