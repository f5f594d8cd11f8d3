package biz

import (
	"context"

	"settlement-service/internal/constants"
	settlementErrors "settlement-service/internal/errors"
	"settlement-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/puzpuzpuz/xsync/v4"
)

// SettlementStatus 结算状态字典
type SettlementStatus struct {
	ID   int64
	Code string
	Name string
}

// StatusRepo 结算状态数据层接口
type StatusRepo interface {
	ListStatuses(ctx context.Context) ([]*SettlementStatus, error)
	// InvalidateStatuses 清除数据层的二级缓存
	InvalidateStatuses(ctx context.Context) error
}

// StatusCache 进程内状态编码 -> ID 缓存，未命中时失效并重新加载
type StatusCache struct {
	repo    StatusRepo
	ids     *xsync.Map[string, int64]
	log     *log.Helper
	metrics *metrics.SettlementMetrics
}

// NewStatusCache 创建状态缓存
func NewStatusCache(repo StatusRepo, logger log.Logger) *StatusCache {
	return &StatusCache{
		repo:    repo,
		ids:     xsync.NewMap[string, int64](),
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// knownStatusCodes 流水线与查询约定的状态编码
var knownStatusCodes = map[string]struct{}{
	constants.StatusSettlementPending:   {},
	constants.StatusSettlementCompleted: {},
	constants.StatusRefundRequested:     {},
	constants.StatusRefunded:            {},
}

// StatusID 根据状态编码获取状态 ID
func (c *StatusCache) StatusID(ctx context.Context, code string) (int64, error) {
	if id, ok := c.ids.Load(code); ok {
		c.observe("hit")
		return id, nil
	}
	c.observe("miss")
	return c.load(ctx, code, true)
}

// Lookup 解析查询参数中的状态编码
//
// 进程内缓存已加载时，未知编码直接返回 ErrStatusNotFound，不清除二级缓存也不重新加载。
func (c *StatusCache) Lookup(ctx context.Context, code string) (int64, error) {
	if id, ok := c.ids.Load(code); ok {
		c.observe("hit")
		return id, nil
	}
	c.observe("miss")
	_, known := knownStatusCodes[code]
	if !known && c.ids.Size() > 0 {
		return 0, statusNotFound(code)
	}
	return c.load(ctx, code, known)
}

func (c *StatusCache) load(ctx context.Context, code string, invalidate bool) (int64, error) {
	if invalidate {
		if err := c.repo.InvalidateStatuses(ctx); err != nil {
			c.log.Warnf("invalidate status cache failed: %v", err)
		}
	}
	if err := c.Reload(ctx); err != nil {
		return 0, err
	}
	if id, ok := c.ids.Load(code); ok {
		return id, nil
	}
	return 0, statusNotFound(code)
}

func statusNotFound(code string) error {
	return settlementErrors.ErrStatusNotFound.WithMetadata(map[string]string{"code": code})
}

// Reload 从数据层重新加载全部状态
func (c *StatusCache) Reload(ctx context.Context) error {
	statuses, err := c.repo.ListStatuses(ctx)
	if err != nil {
		return err
	}
	c.ids.Clear()
	for _, s := range statuses {
		c.ids.Store(s.Code, s.ID)
	}
	c.log.Debugf("status cache reloaded, size=%d", len(statuses))
	return nil
}

// Invalidate 清空进程内缓存
func (c *StatusCache) Invalidate() {
	c.ids.Clear()
}

func (c *StatusCache) observe(result string) {
	if c.metrics != nil {
		c.metrics.StatusCacheTotal.WithLabelValues(result).Inc()
	}
}
