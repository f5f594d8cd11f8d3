package data

import (
	"context"
	"encoding/json"
	"time"

	"settlement-service/internal/biz"
	"settlement-service/internal/constants"
	"settlement-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

const statusCacheTTL = 10 * time.Minute

// statusRepo 结算状态字典（Redis hash 二级缓存 + 数据库）
type statusRepo struct {
	data *Data
	log  *log.Helper
}

type statusCacheEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NewStatusRepo 创建状态 repo（返回 biz.StatusRepo 接口）
func NewStatusRepo(data *Data, logger log.Logger) biz.StatusRepo {
	return &statusRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ListStatuses 获取全部状态，优先读 Redis
func (r *statusRepo) ListStatuses(ctx context.Context) ([]*biz.SettlementStatus, error) {
	if cached := r.loadCache(ctx); len(cached) > 0 {
		return cached, nil
	}

	var rows []model.SettlementStatus
	if err := r.data.DB(ctx).Order("status_id").Find(&rows).Error; err != nil {
		r.log.Errorf("ListStatuses failed: %v", err)
		return nil, err
	}

	out := make([]*biz.SettlementStatus, 0, len(rows))
	for _, m := range rows {
		out = append(out, &biz.SettlementStatus{ID: m.StatusID, Code: m.Code, Name: m.Name})
	}
	r.storeCache(ctx, out)
	return out, nil
}

// InvalidateStatuses 删除 Redis 缓存
func (r *statusRepo) InvalidateStatuses(ctx context.Context) error {
	if r.data.rdb == nil {
		return nil
	}
	return r.data.rdb.Del(ctx, constants.RedisKeyStatus).Err()
}

func (r *statusRepo) loadCache(ctx context.Context) []*biz.SettlementStatus {
	if r.data.rdb == nil {
		return nil
	}
	vals, err := r.data.rdb.HGetAll(ctx, constants.RedisKeyStatus).Result()
	if err != nil {
		r.log.Warnf("load status cache failed: %v", err)
		return nil
	}
	out := make([]*biz.SettlementStatus, 0, len(vals))
	for code, v := range vals {
		var e statusCacheEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			// 缓存内容损坏，回源数据库
			return nil
		}
		out = append(out, &biz.SettlementStatus{ID: e.ID, Code: code, Name: e.Name})
	}
	return out
}

func (r *statusRepo) storeCache(ctx context.Context, statuses []*biz.SettlementStatus) {
	if r.data.rdb == nil || len(statuses) == 0 {
		return
	}
	fields := make(map[string]interface{}, len(statuses))
	for _, s := range statuses {
		b, _ := json.Marshal(statusCacheEntry{ID: s.ID, Name: s.Name})
		fields[s.Code] = string(b)
	}
	pipe := r.data.rdb.TxPipeline()
	pipe.HSet(ctx, constants.RedisKeyStatus, fields)
	pipe.Expire(ctx, constants.RedisKeyStatus, statusCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		// 缓存写入失败不影响主流程
		r.log.Warnf("store status cache failed: %v", err)
	}
}
