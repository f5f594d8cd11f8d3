package biz

import (
	"context"
	"time"

	"settlement-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// QueryFilter 查询条件
type QueryFilter struct {
	HostID           int64 // 仅明细
	HostBizName      string
	PerformanceTitle string
	StatusCode       string
	StatusID         int64 // 由 StatusCode 解析，0 表示不过滤
	From             *time.Time
	To               *time.Time // 闭区间
	Page             int
	PageSize         int
}

// Normalize 填充分页默认值
func (f *QueryFilter) Normalize() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = constants.DefaultPageSize
	}
	if f.PageSize > constants.MaxPageSize {
		f.PageSize = constants.MaxPageSize
	}
}

// Offset 分页偏移
func (f *QueryFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// UnsettledAmount 未结算金额
type UnsettledAmount struct {
	HostBizName string
	GrossAmount int64
	NetAmount   int64
	Count       int64
}

// SettlementQueryRepo 查询数据层接口（使用交互连接池，只读）
type SettlementQueryRepo interface {
	ListDetails(ctx context.Context, f *QueryFilter) ([]*SettlementDetail, int64, error)
	ListDaily(ctx context.Context, f *QueryFilter) ([]*SettlementDaily, int64, error)
	ListWeekly(ctx context.Context, f *QueryFilter) ([]*SettlementWeekly, int64, error)
	ListMonthly(ctx context.Context, f *QueryFilter) ([]*SettlementMonthly, int64, error)
	SumDetails(ctx context.Context, hostBizName string, statusID int64) (*UnsettledAmount, error)
	ForEachDetailChunk(ctx context.Context, f *QueryFilter, chunkSize int, fn func([]*SettlementDetail) error) error
}

// SettlementQueryUseCase 结算查询与导出
type SettlementQueryUseCase struct {
	repo        SettlementQueryRepo
	statusCache *StatusCache
	log         *log.Helper
}

// NewSettlementQueryUseCase 创建查询 UseCase
func NewSettlementQueryUseCase(repo SettlementQueryRepo, statusCache *StatusCache, logger log.Logger) *SettlementQueryUseCase {
	return &SettlementQueryUseCase{
		repo:        repo,
		statusCache: statusCache,
		log:         log.NewHelper(logger),
	}
}

func (uc *SettlementQueryUseCase) prepare(ctx context.Context, f QueryFilter) (*QueryFilter, error) {
	f.Normalize()
	f.StatusID = 0
	if f.StatusCode != "" {
		id, err := uc.statusCache.Lookup(ctx, f.StatusCode)
		if err != nil {
			return nil, err
		}
		f.StatusID = id
	}
	return &f, nil
}

// ListDetails 分页查询结算明细
func (uc *SettlementQueryUseCase) ListDetails(ctx context.Context, f QueryFilter) ([]*SettlementDetail, int64, error) {
	filter, err := uc.prepare(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return uc.repo.ListDetails(ctx, filter)
}

// ListDaily 分页查询日汇总
func (uc *SettlementQueryUseCase) ListDaily(ctx context.Context, f QueryFilter) ([]*SettlementDaily, int64, error) {
	filter, err := uc.prepare(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return uc.repo.ListDaily(ctx, filter)
}

// ListWeekly 分页查询周汇总
func (uc *SettlementQueryUseCase) ListWeekly(ctx context.Context, f QueryFilter) ([]*SettlementWeekly, int64, error) {
	filter, err := uc.prepare(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return uc.repo.ListWeekly(ctx, filter)
}

// ListMonthly 分页查询月汇总
func (uc *SettlementQueryUseCase) ListMonthly(ctx context.Context, f QueryFilter) ([]*SettlementMonthly, int64, error) {
	filter, err := uc.prepare(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return uc.repo.ListMonthly(ctx, filter)
}

// UnsettledAmount 主办方待结算金额（SETTLEMENT_PENDING 明细合计），hostBizName 为空时统计全部
func (uc *SettlementQueryUseCase) UnsettledAmount(ctx context.Context, hostBizName string) (*UnsettledAmount, error) {
	statusID, err := uc.statusCache.StatusID(ctx, constants.StatusSettlementPending)
	if err != nil {
		return nil, err
	}
	sum, err := uc.repo.SumDetails(ctx, hostBizName, statusID)
	if err != nil {
		return nil, err
	}
	sum.HostBizName = hostBizName
	return sum, nil
}

// ExportDetails 分块导出明细，不一次性加载全部数据
func (uc *SettlementQueryUseCase) ExportDetails(ctx context.Context, f QueryFilter, chunkSize int, fn func([]*SettlementDetail) error) error {
	filter, err := uc.prepare(ctx, f)
	if err != nil {
		return err
	}
	if chunkSize <= 0 {
		chunkSize = constants.DefaultBatchSize
	}
	return uc.repo.ForEachDetailChunk(ctx, filter, chunkSize, fn)
}
