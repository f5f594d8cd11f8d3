package data

import (
	"context"

	"settlement-service/internal/biz"
	"settlement-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// settlementQueryRepo 结算查询（交互连接池，只读）
type settlementQueryRepo struct {
	data *Data
	log  *log.Helper
}

// NewSettlementQueryRepo 创建查询 repo（返回 biz.SettlementQueryRepo 接口）
func NewSettlementQueryRepo(data *Data, logger log.Logger) biz.SettlementQueryRepo {
	return &settlementQueryRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// filterDetails 明细按 created_at 过滤日期区间
func filterDetails(db *gorm.DB, f *biz.QueryFilter) *gorm.DB {
	if f.HostID > 0 {
		db = db.Where("host_id = ?", f.HostID)
	}
	if f.HostBizName != "" {
		db = db.Where("host_biz_name = ?", f.HostBizName)
	}
	if f.PerformanceTitle != "" {
		db = db.Where("performance_title = ?", f.PerformanceTitle)
	}
	if f.StatusID > 0 {
		db = db.Where("status_id = ?", f.StatusID)
	}
	if f.From != nil {
		db = db.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("created_at <= ?", *f.To)
	}
	return db
}

// filterRollup 汇总表通用过滤，serialExpr 为桶日期的数值表达式
func filterRollup(db *gorm.DB, f *biz.QueryFilter, serialExpr string, serial func(y, m, d int) int) *gorm.DB {
	if f.HostBizName != "" {
		db = db.Where("host_biz_name = ?", f.HostBizName)
	}
	if f.PerformanceTitle != "" {
		db = db.Where("performance_title = ?", f.PerformanceTitle)
	}
	if f.StatusID > 0 {
		db = db.Where("status_id = ?", f.StatusID)
	}
	if f.From != nil {
		db = db.Where(serialExpr+" >= ?", serial(f.From.Year(), int(f.From.Month()), f.From.Day()))
	}
	if f.To != nil {
		db = db.Where(serialExpr+" <= ?", serial(f.To.Year(), int(f.To.Month()), f.To.Day()))
	}
	return db
}

const (
	daySerialExpr   = "(year * 10000 + month * 100 + day)"
	monthSerialExpr = "(year * 100 + month)"
)

func monthSerial(y, m, _ int) int {
	return y*100 + m
}

// page 统计总数后分页查询
func page[T any](db *gorm.DB, f *biz.QueryFilter, order string) ([]T, int64, error) {
	db = db.Session(&gorm.Session{})
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []T
	if total == 0 {
		return rows, 0, nil
	}
	if err := db.Order(order).Offset(f.Offset()).Limit(f.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListDetails 分页查询明细
func (r *settlementQueryRepo) ListDetails(ctx context.Context, f *biz.QueryFilter) ([]*biz.SettlementDetail, int64, error) {
	db := filterDetails(r.data.DB(ctx).Model(&model.SettlementDetail{}), f)
	rows, total, err := page[model.SettlementDetail](db, f, "created_at DESC, reservation_code")
	if err != nil {
		r.log.Errorf("ListDetails failed: %v", err)
		return nil, 0, err
	}
	return toDetails(rows), total, nil
}

// ListDaily 分页查询日汇总
func (r *settlementQueryRepo) ListDaily(ctx context.Context, f *biz.QueryFilter) ([]*biz.SettlementDaily, int64, error) {
	db := filterRollup(r.data.DB(ctx).Model(&model.SettlementDaily{}), f, daySerialExpr, biz.DateSerial)
	rows, total, err := page[model.SettlementDaily](db, f, "year DESC, month DESC, day DESC, host_biz_name, performance_title")
	if err != nil {
		r.log.Errorf("ListDaily failed: %v", err)
		return nil, 0, err
	}
	return toDaily(rows), total, nil
}

// ListWeekly 分页查询周汇总（日期区间按月粒度比较）
func (r *settlementQueryRepo) ListWeekly(ctx context.Context, f *biz.QueryFilter) ([]*biz.SettlementWeekly, int64, error) {
	db := filterRollup(r.data.DB(ctx).Model(&model.SettlementWeekly{}), f, monthSerialExpr, monthSerial)
	rows, total, err := page[model.SettlementWeekly](db, f, "year DESC, month DESC, week DESC, host_biz_name, performance_title")
	if err != nil {
		r.log.Errorf("ListWeekly failed: %v", err)
		return nil, 0, err
	}
	return toWeekly(rows), total, nil
}

// ListMonthly 分页查询月汇总
func (r *settlementQueryRepo) ListMonthly(ctx context.Context, f *biz.QueryFilter) ([]*biz.SettlementMonthly, int64, error) {
	db := filterRollup(r.data.DB(ctx).Model(&model.SettlementMonthly{}), f, monthSerialExpr, monthSerial)
	rows, total, err := page[model.SettlementMonthly](db, f, "year DESC, month DESC, host_biz_name, performance_title")
	if err != nil {
		r.log.Errorf("ListMonthly failed: %v", err)
		return nil, 0, err
	}
	return toMonthly(rows), total, nil
}

// SumDetails 按状态汇总明细金额
func (r *settlementQueryRepo) SumDetails(ctx context.Context, hostBizName string, statusID int64) (*biz.UnsettledAmount, error) {
	var sum struct {
		GrossAmount int64
		NetAmount   int64
		RowCount    int64
	}
	db := r.data.DB(ctx).Model(&model.SettlementDetail{}).
		Select("COALESCE(SUM(gross_amount), 0) AS gross_amount, COALESCE(SUM(net_amount), 0) AS net_amount, COUNT(*) AS row_count").
		Where("status_id = ?", statusID)
	if hostBizName != "" {
		db = db.Where("host_biz_name = ?", hostBizName)
	}
	if err := db.Scan(&sum).Error; err != nil {
		r.log.Errorf("SumDetails failed: host=%s, error=%v", hostBizName, err)
		return nil, err
	}
	return &biz.UnsettledAmount{
		GrossAmount: sum.GrossAmount,
		NetAmount:   sum.NetAmount,
		Count:       sum.RowCount,
	}, nil
}

// ForEachDetailChunk 按主键分块读取明细
func (r *settlementQueryRepo) ForEachDetailChunk(ctx context.Context, f *biz.QueryFilter, chunkSize int, fn func([]*biz.SettlementDetail) error) error {
	var rows []model.SettlementDetail
	err := filterDetails(r.data.DB(ctx).Model(&model.SettlementDetail{}), f).
		FindInBatches(&rows, chunkSize, func(tx *gorm.DB, batch int) error {
			return fn(toDetails(rows))
		}).Error
	if err != nil {
		r.log.Errorf("ForEachDetailChunk failed: %v", err)
	}
	return err
}
