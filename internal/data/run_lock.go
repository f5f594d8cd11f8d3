package data

import (
	"context"
	"errors"
	"time"

	"settlement-service/internal/biz"
	"settlement-service/internal/constants"
	"settlement-service/internal/data/model"
	settlementErrors "settlement-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// runLock 流水线运行锁：配置了 Redis 时使用 redsync，否则使用数据库租约行
type runLock struct {
	data *Data
	rs   *redsync.Redsync
	log  *log.Helper
	now  func() time.Time
}

// NewRunLock 创建运行锁（返回 biz.RunLock 接口）
func NewRunLock(data *Data, logger log.Logger) biz.RunLock {
	l := &runLock{
		data: data,
		log:  log.NewHelper(logger),
		now:  time.Now,
	}
	if data.rdb != nil {
		l.rs = redsync.New(goredis.NewPool(data.rdb))
	}
	return l
}

// Acquire 获取运行锁，只尝试一次
func (l *runLock) Acquire(ctx context.Context, name string, ttl time.Duration) (biz.Unlocker, error) {
	if l.rs != nil {
		return l.acquireRedis(ctx, name, ttl)
	}
	return l.acquireLease(ctx, name, ttl)
}

func (l *runLock) acquireRedis(ctx context.Context, name string, ttl time.Duration) (biz.Unlocker, error) {
	mutex := l.rs.NewMutex(constants.RedisKeyPipelineLock+name, redsync.WithExpiry(ttl))
	if err := mutex.TryLockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, settlementErrors.ErrRunLockBusy.WithCause(err)
		}
		return nil, settlementErrors.ErrStorageUnavailable.WithCause(err)
	}
	return &redisUnlocker{mutex: mutex}, nil
}

type redisUnlocker struct {
	mutex *redsync.Mutex
}

func (u *redisUnlocker) Release(ctx context.Context) error {
	if _, err := u.mutex.UnlockContext(ctx); err != nil {
		return err
	}
	return nil
}

// acquireLease 租约行：行不存在时插入已过期的行，再以条件更新抢占
func (l *runLock) acquireLease(ctx context.Context, name string, ttl time.Duration) (biz.Unlocker, error) {
	db := l.data.batchDB.WithContext(ctx)
	now := l.now()

	seed := &model.SettlementJobLock{LockName: name, ExpiresAt: now.Add(-time.Second)}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, settlementErrors.ErrStorageUnavailable.WithCause(err)
	}

	holder := uuid.New().String()
	result := db.Model(&model.SettlementJobLock{}).
		Where("lock_name = ? AND expires_at < ?", name, now).
		Updates(map[string]interface{}{
			"holder":     holder,
			"expires_at": now.Add(ttl),
		})
	if result.Error != nil {
		return nil, settlementErrors.ErrStorageUnavailable.WithCause(result.Error)
	}
	if result.RowsAffected != 1 {
		return nil, settlementErrors.ErrRunLockBusy
	}
	return &leaseUnlocker{lock: l, name: name, holder: holder}, nil
}

type leaseUnlocker struct {
	lock   *runLock
	name   string
	holder string
}

// Release 仅释放自己持有的租约
func (u *leaseUnlocker) Release(ctx context.Context) error {
	return u.lock.data.batchDB.WithContext(ctx).
		Model(&model.SettlementJobLock{}).
		Where("lock_name = ? AND holder = ?", u.name, u.holder).
		Updates(map[string]interface{}{
			"holder":     "",
			"expires_at": u.lock.now().Add(-time.Second),
		}).Error
}
