package data

import (
	"context"

	"settlement-service/internal/biz"
	"settlement-service/internal/constants"
	"settlement-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// detailRepo 结算明细数据访问
type detailRepo struct {
	data *Data
	log  *log.Helper
}

// NewDetailRepo 创建明细 repo（返回 biz.DetailRepo 接口）
func NewDetailRepo(data *Data, logger log.Logger) biz.DetailRepo {
	return &detailRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateDetails 批量写入明细，reservation_code 冲突的行跳过
func (r *detailRepo) CreateDetails(ctx context.Context, details []*biz.SettlementDetail) (int, error) {
	if len(details) == 0 {
		return 0, nil
	}

	rows := make([]model.SettlementDetail, 0, len(details))
	for _, d := range details {
		rows = append(rows, toDetailModel(d))
	}

	result := r.data.BatchDB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reservation_code"}},
			DoNothing: true,
		}).
		CreateInBatches(&rows, constants.DefaultBatchSize)
	if result.Error != nil {
		r.log.Errorf("CreateDetails failed: count=%d, error=%v", len(rows), result.Error)
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// ForEachDetail 按主键分批遍历全部明细
func (r *detailRepo) ForEachDetail(ctx context.Context, batchSize int, fn func([]*biz.SettlementDetail) error) error {
	if batchSize <= 0 {
		batchSize = constants.DefaultBatchSize
	}
	var rows []model.SettlementDetail
	return r.data.BatchDB(ctx).
		Model(&model.SettlementDetail{}).
		FindInBatches(&rows, batchSize, func(tx *gorm.DB, batch int) error {
			return fn(toDetails(rows))
		}).Error
}

func toDetailModel(d *biz.SettlementDetail) model.SettlementDetail {
	return model.SettlementDetail{
		ID:                 d.ID,
		HostID:             d.HostID,
		HostBizName:        d.HostBizName,
		PerformanceTitle:   d.PerformanceTitle,
		PerformanceEndAt:   d.PerformanceEndAt,
		ReservationCode:    d.ReservationCode,
		SalesAmount:        d.SalesAmount,
		RefundAmount:       d.RefundAmount,
		GrossAmount:        d.GrossAmount,
		ContractChargeRate: d.ContractChargeRate,
		Commission:         d.Commission,
		NetAmount:          d.NetAmount,
		StatusID:           d.StatusID,
		CreatedAt:          d.CreatedAt,
	}
}

func toDetails(rows []model.SettlementDetail) []*biz.SettlementDetail {
	out := make([]*biz.SettlementDetail, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		out = append(out, &biz.SettlementDetail{
			ID:                 m.ID,
			HostID:             m.HostID,
			HostBizName:        m.HostBizName,
			PerformanceTitle:   m.PerformanceTitle,
			PerformanceEndAt:   m.PerformanceEndAt,
			ReservationCode:    m.ReservationCode,
			ContractChargeRate: m.ContractChargeRate,
			StatusID:           m.StatusID,
			CreatedAt:          m.CreatedAt,
			Amounts: biz.Amounts{
				SalesAmount:  m.SalesAmount,
				RefundAmount: m.RefundAmount,
				GrossAmount:  m.GrossAmount,
				Commission:   m.Commission,
				NetAmount:    m.NetAmount,
			},
		})
	}
	return out
}
