package data

import (
	"context"

	"settlement-service/internal/biz"
	"settlement-service/internal/constants"
	"settlement-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm/clause"
)

// weeklyRepo 周汇总数据访问
type weeklyRepo struct {
	data *Data
	log  *log.Helper
}

// NewWeeklyRepo 创建周汇总 repo（返回 biz.WeeklyRepo 接口）
func NewWeeklyRepo(data *Data, logger log.Logger) biz.WeeklyRepo {
	return &weeklyRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// UpsertWeekly 冲突时覆盖金额
func (r *weeklyRepo) UpsertWeekly(ctx context.Context, rows []*biz.SettlementWeekly) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	models := make([]model.SettlementWeekly, 0, len(rows))
	for _, w := range rows {
		models = append(models, model.SettlementWeekly{
			ID:                 w.ID,
			HostBizName:        w.HostBizName,
			PerformanceTitle:   w.PerformanceTitle,
			Year:               w.Year,
			Month:              w.Month,
			Week:               w.Week,
			WeeklySalesAmount:  w.SalesAmount,
			WeeklyRefundAmount: w.RefundAmount,
			WeeklyGrossAmount:  w.GrossAmount,
			WeeklyCommission:   w.Commission,
			WeeklyNetAmount:    w.NetAmount,
			StatusID:           w.StatusID,
			WeeklyCreatedAt:    w.CreatedAt,
			UpdatedAt:          w.UpdatedAt,
		})
	}

	err := r.data.BatchDB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "host_biz_name"}, {Name: "performance_title"},
				{Name: "year"}, {Name: "month"}, {Name: "week"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"weekly_sales_amount", "weekly_refund_amount", "weekly_gross_amount",
				"weekly_commission", "weekly_net_amount",
				"updated_at",
			}),
		}).
		CreateInBatches(&models, constants.DefaultBatchSize).Error
	if err != nil {
		r.log.Errorf("UpsertWeekly failed: count=%d, error=%v", len(models), err)
		return 0, err
	}
	return len(models), nil
}

// ListWeeklyByMonth 某月的全部周汇总
func (r *weeklyRepo) ListWeeklyByMonth(ctx context.Context, ym biz.YearMonth) ([]*biz.SettlementWeekly, error) {
	var rows []model.SettlementWeekly
	err := r.data.BatchDB(ctx).
		Where("year = ? AND month = ?", ym.Year, int(ym.Month)).
		Order("host_biz_name, performance_title, week").
		Find(&rows).Error
	if err != nil {
		r.log.Errorf("ListWeeklyByMonth failed: month=%s, error=%v", ym, err)
		return nil, err
	}
	return toWeekly(rows), nil
}

func toWeekly(rows []model.SettlementWeekly) []*biz.SettlementWeekly {
	out := make([]*biz.SettlementWeekly, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		out = append(out, &biz.SettlementWeekly{
			ID:               m.ID,
			HostBizName:      m.HostBizName,
			PerformanceTitle: m.PerformanceTitle,
			Year:             m.Year,
			Month:            m.Month,
			Week:             m.Week,
			StatusID:         m.StatusID,
			CreatedAt:        m.WeeklyCreatedAt,
			UpdatedAt:        m.UpdatedAt,
			Amounts: biz.Amounts{
				SalesAmount:  m.WeeklySalesAmount,
				RefundAmount: m.WeeklyRefundAmount,
				GrossAmount:  m.WeeklyGrossAmount,
				Commission:   m.WeeklyCommission,
				NetAmount:    m.WeeklyNetAmount,
			},
		})
	}
	return out
}
