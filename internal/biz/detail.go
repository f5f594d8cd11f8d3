package biz

import (
	"context"
	"sort"
	"time"

	"settlement-service/internal/constants"
	settlementErrors "settlement-service/internal/errors"
	"settlement-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reservation 预约（外部预约系统，只读）
type Reservation struct {
	ID               int64
	Code             string
	Price            int64
	HostID           int64
	PerformanceTitle string
	PerformanceEndAt time.Time
	FinancialStatus  string // PAID/CANCELLED
}

// HostContract 主办方合同（外部合同系统，只读）
type HostContract struct {
	ID            int64
	HostID        int64
	HostBizName   string
	ChargeRate    decimal.NullDecimal
	EffectiveFrom time.Time
}

// SettlementDetail 结算明细（每个预约一行，写入后不再修改）
type SettlementDetail struct {
	ID                 string
	HostID             int64
	HostBizName        string
	PerformanceTitle   string
	PerformanceEndAt   time.Time
	ReservationCode    string
	ContractChargeRate decimal.Decimal
	StatusID           int64
	CreatedAt          time.Time
	Amounts
}

// ReservationRepo 预约数据层接口
type ReservationRepo interface {
	// ListUnsettledReservations 已支付/已取消且尚未生成明细的预约
	ListUnsettledReservations(ctx context.Context) ([]*Reservation, error)
}

// ContractRepo 合同数据层接口
type ContractRepo interface {
	// ListActiveContracts 每个主办方在 at 时刻生效的最新合同
	ListActiveContracts(ctx context.Context, hostIDs []int64, at time.Time) (map[int64]*HostContract, error)
}

// DetailRepo 结算明细数据层接口
type DetailRepo interface {
	// CreateDetails 批量写入明细，reservation_code 已存在的行跳过，返回实际写入行数
	CreateDetails(ctx context.Context, details []*SettlementDetail) (int, error)
	// ForEachDetail 分批遍历全部明细
	ForEachDetail(ctx context.Context, batchSize int, fn func(batch []*SettlementDetail) error) error
}

// DetailUseCase 明细抽取
type DetailUseCase struct {
	reservationRepo ReservationRepo
	contractRepo    ContractRepo
	detailRepo      DetailRepo
	statusCache     *StatusCache
	tx              Transaction
	conf            *SettlementConfig
	log             *log.Helper
	metrics         *metrics.SettlementMetrics
}

// NewDetailUseCase 创建明细抽取 UseCase
func NewDetailUseCase(
	reservationRepo ReservationRepo,
	contractRepo ContractRepo,
	detailRepo DetailRepo,
	statusCache *StatusCache,
	tx Transaction,
	conf *SettlementConfig,
	logger log.Logger,
) *DetailUseCase {
	return &DetailUseCase{
		reservationRepo: reservationRepo,
		contractRepo:    contractRepo,
		detailRepo:      detailRepo,
		statusCache:     statusCache,
		tx:              tx,
		conf:            conf,
		log:             log.NewHelper(logger),
		metrics:         metrics.GetMetrics(),
	}
}

// ExtractSettlementDetails 为尚未结算的预约生成结算明细，返回新写入的行数
//
// 合同缺失或费率非法的预约跳过并记录日志，不影响同批其他预约；
// 整批在一个事务中写入，失败时全部回滚。
func (uc *DetailUseCase) ExtractSettlementDetails(ctx context.Context) (int, error) {
	var inserted int
	err := uc.tx.ExecTx(ctx, func(ctx context.Context) error {
		candidates, err := uc.reservationRepo.ListUnsettledReservations(ctx)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			uc.log.Infof("no unsettled reservations")
			return nil
		}

		now := uc.conf.Now()
		contracts, err := uc.contractRepo.ListActiveContracts(ctx, distinctHostIDs(candidates), now)
		if err != nil {
			return err
		}

		pendingID, err := uc.statusCache.StatusID(ctx, constants.StatusSettlementPending)
		if err != nil {
			return err
		}
		refundedID, err := uc.statusCache.StatusID(ctx, constants.StatusRefunded)
		if err != nil {
			return err
		}

		details := make([]*SettlementDetail, 0, len(candidates))
		skipped := 0
		for _, r := range candidates {
			d, err := uc.buildDetail(r, contracts[r.HostID], now)
			if err != nil {
				if !settlementErrors.IsDataError(err) {
					return err
				}
				skipped++
				uc.skip(r, err)
				continue
			}
			d.StatusID = pendingID
			if r.FinancialStatus == constants.FinancialStatusCancelled {
				d.StatusID = refundedID
			}
			details = append(details, d)
		}

		n, err := uc.detailRepo.CreateDetails(ctx, details)
		if err != nil {
			return err
		}
		inserted = n
		uc.log.Infof("settlement details extracted: candidates=%d, inserted=%d, skipped=%d", len(candidates), n, skipped)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (uc *DetailUseCase) buildDetail(r *Reservation, contract *HostContract, now time.Time) (*SettlementDetail, error) {
	if contract == nil {
		return nil, settlementErrors.ErrContractNotFound
	}
	if contract.ChargeRate.Valid && !uc.conf.IsAllowedRate(contract.ChargeRate.Decimal) {
		return nil, settlementErrors.ErrInvalidChargeRate
	}
	amounts, err := ComputeAmounts(r.Price, r.FinancialStatus, contract.ChargeRate, uc.conf.Rounding)
	if err != nil {
		return nil, err
	}
	return &SettlementDetail{
		ID:                 uuid.New().String(),
		HostID:             r.HostID,
		HostBizName:        contract.HostBizName,
		PerformanceTitle:   r.PerformanceTitle,
		PerformanceEndAt:   r.PerformanceEndAt,
		ReservationCode:    r.Code,
		ContractChargeRate: contract.ChargeRate.Decimal,
		CreatedAt:          now,
		Amounts:            amounts,
	}, nil
}

func (uc *DetailUseCase) skip(r *Reservation, err error) {
	reason := constants.SkipReasonInvalidChargeRate
	switch errors.Reason(err) {
	case settlementErrors.ReasonContractNotFound:
		reason = constants.SkipReasonContractNotFound
	case settlementErrors.ReasonNegativeCommission:
		reason = constants.SkipReasonNegativeCommission
	}
	uc.log.Warnf("skip reservation code=%s host_id=%d: %s", r.Code, r.HostID, reason)
	if uc.metrics != nil {
		uc.metrics.DetailSkippedTotal.WithLabelValues(reason).Inc()
	}
}

func distinctHostIDs(rs []*Reservation) []int64 {
	seen := make(map[int64]struct{}, len(rs))
	ids := make([]int64, 0, len(rs))
	for _, r := range rs {
		if _, ok := seen[r.HostID]; ok {
			continue
		}
		seen[r.HostID] = struct{}{}
		ids = append(ids, r.HostID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
