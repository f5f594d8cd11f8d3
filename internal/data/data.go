package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"settlement-service/internal/biz"
	"settlement-service/internal/conf"
	"settlement-service/internal/constants"
	"settlement-service/internal/data/model"
	settlementErrors "settlement-service/internal/errors"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/google/wire"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewDB,
	NewBatchDB,
	NewRedis,
	NewProducer,
	NewData,
	NewTransaction,
	NewRunLock,
	NewReservationRepo,
	NewContractRepo,
	NewStatusRepo,
	NewDetailRepo,
	NewDailyRepo,
	NewWeeklyRepo,
	NewMonthlyRepo,
	NewSettlementQueryRepo,
	NewJobRunRepo,
	NewEventPublisher,
)

// BatchDB 流水线专用连接池，与查询使用的交互连接池隔离
type BatchDB struct {
	*gorm.DB
}

// Data 数据层结构体
type Data struct {
	db      *gorm.DB // 交互连接池（查询/导出）
	batchDB *gorm.DB // 批处理连接池（流水线步骤事务）
	rdb     *redis.Client
	mq      rocketmq.Producer
	topic   string
}

type contextTxKey struct{}

// OpenDB 按驱动打开数据库并设置连接池
func OpenDB(c *conf.Data_Database) (*gorm.DB, error) {
	if c == nil {
		return nil, fmt.Errorf("database config is nil")
	}

	var dialector gorm.Dialector
	switch strings.ToLower(c.Driver) {
	case "", "mysql":
		dialector = mysql.Open(c.Source)
	case "postgres":
		dialector = postgres.Open(c.Source)
	case "sqlite":
		// modernc.org/sqlite 纯 Go 驱动，注册名为 "sqlite"
		dialector = sqlite.Dialector{DriverName: "sqlite", DSN: c.Source}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if c.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(conf.ParseDuration(c.ConnMaxLifetime, time.Hour))
	return db, nil
}

// closeDB 关闭 gorm 底层连接池
func closeDB(db *gorm.DB, logger log.Logger, name string) func() {
	return func() {
		sqlDB, err := db.DB()
		if err != nil {
			return
		}
		if err := sqlDB.Close(); err != nil {
			log.NewHelper(logger).Errorf("failed to close %s: %v", name, err)
		}
	}
}

// NewDB 创建交互数据库连接
func NewDB(c *conf.Bootstrap, logger log.Logger) (*gorm.DB, func(), error) {
	if c.Data == nil || c.Data.Database == nil {
		return nil, nil, fmt.Errorf("database config is nil")
	}
	db, err := OpenDB(c.Data.Database)
	if err != nil {
		return nil, nil, err
	}
	cleanup := closeDB(db, logger, "database")
	if c.Data.Database.AutoMigrate {
		if err := Migrate(db); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return db, cleanup, nil
}

// NewBatchDB 创建批处理数据库连接，未单独配置时使用同一数据源的独立连接池
func NewBatchDB(c *conf.Bootstrap, logger log.Logger) (*BatchDB, func(), error) {
	if c.Data == nil || c.Data.Database == nil {
		return nil, nil, fmt.Errorf("database config is nil")
	}
	cfg := *c.Data.Database
	if b := c.Data.Batch; b != nil {
		if b.Driver != "" {
			cfg.Driver = b.Driver
		}
		if b.Source != "" {
			cfg.Source = b.Source
		}
		if b.MaxOpenConns > 0 {
			cfg.MaxOpenConns = b.MaxOpenConns
		}
		if b.MaxIdleConns > 0 {
			cfg.MaxIdleConns = b.MaxIdleConns
		}
		if b.ConnMaxLifetime != "" {
			cfg.ConnMaxLifetime = b.ConnMaxLifetime
		}
	}
	db, err := OpenDB(&cfg)
	if err != nil {
		return nil, nil, err
	}
	return &BatchDB{DB: db}, closeDB(db, logger, "batch database"), nil
}

// NewRedis 创建 Redis 连接，未配置时返回 nil（状态缓存只用进程内缓存，运行锁使用数据库租约）
func NewRedis(c *conf.Bootstrap, logger log.Logger) (*redis.Client, func(), error) {
	if c.Data == nil || c.Data.Redis == nil || c.Data.Redis.Addr == "" {
		return nil, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         c.Data.Redis.Addr,
		Password:     c.Data.Redis.Password,
		DB:           c.Data.Redis.Db,
		ReadTimeout:  conf.ParseDuration(c.Data.Redis.ReadTimeout, 3*time.Second),
		WriteTimeout: conf.ParseDuration(c.Data.Redis.WriteTimeout, 3*time.Second),
	})

	// 测试连接
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := rdb.Close(); err != nil {
			log.NewHelper(logger).Errorf("failed to close redis: %v", err)
		}
	}
	return rdb, cleanup, nil
}

// NewProducer 创建 RocketMQ 生产者，未启用时返回 nil
func NewProducer(c *conf.Bootstrap, logger log.Logger) (rocketmq.Producer, func(), error) {
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		return nil, func() {}, nil
	}
	mq := c.Data.Rocketmq
	p, err := rocketmq.NewProducer(
		producer.WithNsResolver(primitive.NewPassthroughResolver(mq.NameServers)),
		producer.WithGroupName(mq.GroupName),
		producer.WithRetry(mq.RetryTimes),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Start(); err != nil {
		return nil, nil, err
	}
	helper := log.NewHelper(logger)
	helper.Infof("rocketmq producer started, topic: %s", mq.Topic)
	cleanup := func() {
		if err := p.Shutdown(); err != nil {
			helper.Errorf("failed to shutdown rocketmq producer: %v", err)
		}
	}
	return p, cleanup, nil
}

// NewData 创建数据层实例，连接的关闭由各自的构造函数返回的 cleanup 负责
func NewData(c *conf.Bootstrap, logger log.Logger, db *gorm.DB, batch *BatchDB, rdb *redis.Client, mq rocketmq.Producer) (*Data, func(), error) {
	helper := log.NewHelper(logger)
	d := &Data{
		db:      db,
		batchDB: db,
		rdb:     rdb,
		mq:      mq,
	}
	if batch != nil && batch.DB != nil {
		d.batchDB = batch.DB
	}
	if c != nil && c.Data != nil && c.Data.Rocketmq != nil {
		d.topic = c.Data.Rocketmq.Topic
	}

	cleanup := func() {
		helper.Info("closing the data resources")
	}

	return d, cleanup, nil
}

// NewTransaction 事务（在批处理连接池上开启）
func NewTransaction(d *Data) biz.Transaction {
	return d
}

// ExecTx 在批处理连接池上执行事务，事务对象通过 ctx 传递
func (d *Data) ExecTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := d.batchDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, contextTxKey{}, tx))
	})
	return translateError(err)
}

// DB 交互连接（事务内返回事务对象）
func (d *Data) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(contextTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return d.db.WithContext(ctx)
}

// BatchDB 批处理连接（事务内返回事务对象）
func (d *Data) BatchDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(contextTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return d.batchDB.WithContext(ctx)
}

// translateError 将存储层错误映射为结算错误，业务错误与 ctx 错误原样返回
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return settlementErrors.Wrap(settlementErrors.ErrUpsertConflict, err)
	}
	return settlementErrors.Wrap(settlementErrors.ErrStorageUnavailable, err)
}

// Migrate 迁移流水线自有的表并写入状态字典
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.SettlementStatus{},
		&model.SettlementDetail{},
		&model.SettlementDaily{},
		&model.SettlementWeekly{},
		&model.SettlementMonthly{},
		&model.SettlementJobRun{},
		&model.SettlementJobLock{},
	); err != nil {
		return fmt.Errorf("auto migrate settlement tables: %w", err)
	}

	statuses := []model.SettlementStatus{
		{StatusID: 1, Code: constants.StatusSettlementPending, Name: "settlement pending"},
		{StatusID: 2, Code: constants.StatusSettlementCompleted, Name: "settlement completed"},
		{StatusID: 3, Code: constants.StatusRefundRequested, Name: "refund requested"},
		{StatusID: 4, Code: constants.StatusRefunded, Name: "refunded"},
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&statuses).Error; err != nil {
		return fmt.Errorf("seed settlement status: %w", err)
	}
	return nil
}
