package data

import (
	"context"
	"time"

	"settlement-service/internal/biz"
	"settlement-service/internal/constants"
	"settlement-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

// reservationRepo 预约数据访问（只读）
type reservationRepo struct {
	data *Data
	log  *log.Helper
}

// NewReservationRepo 创建预约 repo（返回 biz.ReservationRepo 接口）
func NewReservationRepo(data *Data, logger log.Logger) biz.ReservationRepo {
	return &reservationRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ListUnsettledReservations 已支付/已取消且没有结算明细的预约
func (r *reservationRepo) ListUnsettledReservations(ctx context.Context) ([]*biz.Reservation, error) {
	db := r.data.BatchDB(ctx)

	settled := db.Model(&model.SettlementDetail{}).
		Select("1").
		Where("settlement_detail.reservation_code = reservation.code")

	var rows []model.Reservation
	err := db.Model(&model.Reservation{}).
		Where("financial_status IN ?", []string{constants.FinancialStatusPaid, constants.FinancialStatusCancelled}).
		Where("NOT EXISTS (?)", settled).
		Order("id").
		Find(&rows).Error
	if err != nil {
		r.log.Errorf("ListUnsettledReservations failed: %v", err)
		return nil, err
	}

	out := make([]*biz.Reservation, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		out = append(out, &biz.Reservation{
			ID:               m.ID,
			Code:             m.Code,
			Price:            m.Price,
			HostID:           m.HostID,
			PerformanceTitle: m.PerformanceTitle,
			PerformanceEndAt: m.PerformanceEndAt,
			FinancialStatus:  m.FinancialStatus,
		})
	}
	return out, nil
}

// contractRepo 主办方合同数据访问（只读）
type contractRepo struct {
	data *Data
	log  *log.Helper
}

// NewContractRepo 创建合同 repo（返回 biz.ContractRepo 接口）
func NewContractRepo(data *Data, logger log.Logger) biz.ContractRepo {
	return &contractRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ListActiveContracts 每个主办方在 at 时刻已生效的最新有效合同
func (r *contractRepo) ListActiveContracts(ctx context.Context, hostIDs []int64, at time.Time) (map[int64]*biz.HostContract, error) {
	out := make(map[int64]*biz.HostContract, len(hostIDs))
	if len(hostIDs) == 0 {
		return out, nil
	}

	var rows []model.HostContract
	err := r.data.BatchDB(ctx).
		Where("host_id IN ? AND active = ? AND effective_from <= ?", hostIDs, true, at).
		Order("effective_from DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		r.log.Errorf("ListActiveContracts failed: %v", err)
		return nil, err
	}

	for i := range rows {
		m := &rows[i]
		if _, ok := out[m.HostID]; ok {
			continue
		}
		out[m.HostID] = &biz.HostContract{
			ID:            m.ID,
			HostID:        m.HostID,
			HostBizName:   m.HostBizName,
			ChargeRate:    m.ChargeRate,
			EffectiveFrom: m.EffectiveFrom,
		}
	}
	return out, nil
}
