package data

import (
	"context"

	"settlement-service/internal/biz"
	"settlement-service/internal/constants"
	"settlement-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm/clause"
)

// monthlyRepo 月汇总数据访问
type monthlyRepo struct {
	data *Data
	log  *log.Helper
}

// NewMonthlyRepo 创建月汇总 repo（返回 biz.MonthlyRepo 接口）
func NewMonthlyRepo(data *Data, logger log.Logger) biz.MonthlyRepo {
	return &monthlyRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// UpsertMonthly 冲突时覆盖金额
func (r *monthlyRepo) UpsertMonthly(ctx context.Context, rows []*biz.SettlementMonthly) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	models := make([]model.SettlementMonthly, 0, len(rows))
	for _, m := range rows {
		models = append(models, model.SettlementMonthly{
			ID:                  m.ID,
			HostBizName:         m.HostBizName,
			PerformanceTitle:    m.PerformanceTitle,
			Year:                m.Year,
			Month:               m.Month,
			MonthlySalesAmount:  m.SalesAmount,
			MonthlyRefundAmount: m.RefundAmount,
			MonthlyGrossAmount:  m.GrossAmount,
			MonthlyCommission:   m.Commission,
			MonthlyNetAmount:    m.NetAmount,
			StatusID:            m.StatusID,
			MonthlyCreatedAt:    m.CreatedAt,
			UpdatedAt:           m.UpdatedAt,
		})
	}

	err := r.data.BatchDB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "host_biz_name"}, {Name: "performance_title"},
				{Name: "year"}, {Name: "month"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"monthly_sales_amount", "monthly_refund_amount", "monthly_gross_amount",
				"monthly_commission", "monthly_net_amount",
				"updated_at",
			}),
		}).
		CreateInBatches(&models, constants.DefaultBatchSize).Error
	if err != nil {
		r.log.Errorf("UpsertMonthly failed: count=%d, error=%v", len(models), err)
		return 0, err
	}
	return len(models), nil
}

func toMonthly(rows []model.SettlementMonthly) []*biz.SettlementMonthly {
	out := make([]*biz.SettlementMonthly, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		out = append(out, &biz.SettlementMonthly{
			ID:               m.ID,
			HostBizName:      m.HostBizName,
			PerformanceTitle: m.PerformanceTitle,
			Year:             m.Year,
			Month:            m.Month,
			StatusID:         m.StatusID,
			CreatedAt:        m.MonthlyCreatedAt,
			UpdatedAt:        m.UpdatedAt,
			Amounts: biz.Amounts{
				SalesAmount:  m.MonthlySalesAmount,
				RefundAmount: m.MonthlyRefundAmount,
				GrossAmount:  m.MonthlyGrossAmount,
				Commission:   m.MonthlyCommission,
				NetAmount:    m.MonthlyNetAmount,
			},
		})
	}
	return out
}
