package data

import (
	"context"
	"testing"
	"time"

	"settlement-service/internal/biz"
	"settlement-service/internal/conf"
	"settlement-service/internal/constants"
	"settlement-service/internal/data/model"
	settlementErrors "settlement-service/internal/errors"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, time.January, 6, 10, 0, 0, 0, time.UTC)

// newTestData 内存 SQLite，单连接保证同一个库
func newTestData(t *testing.T) (*Data, *gorm.DB) {
	t.Helper()
	db, err := OpenDB(&conf.Data_Database{Driver: "sqlite", Source: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, db.AutoMigrate(&model.Reservation{}, &model.HostContract{}))
	t.Cleanup(closeDB(db, log.DefaultLogger, "database"))

	d, cleanup, err := NewData(&conf.Bootstrap{}, log.DefaultLogger, db, &BatchDB{DB: db}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return d, db
}

func seedContract(t *testing.T, db *gorm.DB, hostID int64, name, rate string) {
	t.Helper()
	c := &model.HostContract{
		HostID:        hostID,
		HostBizName:   name,
		Active:        true,
		EffectiveFrom: testNow.AddDate(0, -1, 0),
	}
	if rate != "" {
		c.ChargeRate = decimal.NullDecimal{Decimal: decimal.RequireFromString(rate), Valid: true}
	}
	require.NoError(t, db.Create(c).Error)
}

func seedReservation(t *testing.T, db *gorm.DB, code string, hostID, price int64, status string) {
	t.Helper()
	require.NoError(t, db.Create(&model.Reservation{
		Code:             code,
		Price:            price,
		HostID:           hostID,
		PerformanceTitle: "Concert",
		PerformanceEndAt: testNow.AddDate(0, 0, 7),
		FinancialStatus:  status,
		CreatedAt:        testNow.AddDate(0, 0, -1),
	}).Error)
}

type pipeline struct {
	detail  *biz.DetailUseCase
	daily   *biz.DailyUseCase
	weekly  *biz.WeeklyUseCase
	monthly *biz.MonthlyUseCase
	query   *biz.SettlementQueryUseCase
	conf    *biz.SettlementConfig
}

func newPipeline(d *Data) *pipeline {
	logger := log.DefaultLogger
	cfg := &biz.SettlementConfig{
		Location:  time.UTC,
		Rounding:  biz.RoundingHalfUp,
		BatchSize: 2,
		Now:       func() time.Time { return testNow },
	}
	cache := biz.NewStatusCache(NewStatusRepo(d, logger), logger)
	tx := NewTransaction(d)
	detailRepo := NewDetailRepo(d, logger)
	dailyRepo := NewDailyRepo(d, logger)
	weeklyRepo := NewWeeklyRepo(d, logger)
	return &pipeline{
		detail:  biz.NewDetailUseCase(NewReservationRepo(d, logger), NewContractRepo(d, logger), detailRepo, cache, tx, cfg, logger),
		daily:   biz.NewDailyUseCase(detailRepo, dailyRepo, cache, tx, cfg, logger),
		weekly:  biz.NewWeeklyUseCase(dailyRepo, weeklyRepo, cache, tx, cfg, logger),
		monthly: biz.NewMonthlyUseCase(weeklyRepo, NewMonthlyRepo(d, logger), cache, tx, cfg, logger),
		query:   biz.NewSettlementQueryUseCase(NewSettlementQueryRepo(d, logger), cache, logger),
		conf:    cfg,
	}
}

func TestMigrateSeedsStatuses(t *testing.T) {
	d, db := newTestData(t)
	require.NoError(t, Migrate(db))

	statuses, err := NewStatusRepo(d, log.DefaultLogger).ListStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 4)
	require.Equal(t, constants.StatusSettlementPending, statuses[0].Code)
	require.Equal(t, int64(4), statuses[3].ID)
}

func TestNewDBCleanupClosesPools(t *testing.T) {
	c := &conf.Bootstrap{Data: &conf.Data{
		Database: &conf.Data_Database{Driver: "sqlite", Source: ":memory:", MaxOpenConns: 1, AutoMigrate: true},
	}}

	db, cleanup, err := NewDB(c, log.DefaultLogger)
	require.NoError(t, err)
	batch, cleanupBatch, err := NewBatchDB(c, log.DefaultLogger)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	batchSQL, err := batch.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
	require.NoError(t, batchSQL.Ping())

	// 后续构造失败时只调用已创建资源的 cleanup
	cleanupBatch()
	require.Error(t, batchSQL.Ping())
	require.NoError(t, sqlDB.Ping())
	cleanup()
	require.Error(t, sqlDB.Ping())
}

func TestNewDBMissingConfig(t *testing.T) {
	_, _, err := NewDB(&conf.Bootstrap{}, log.DefaultLogger)
	require.Error(t, err)
	_, _, err = NewBatchDB(&conf.Bootstrap{}, log.DefaultLogger)
	require.Error(t, err)

	rdb, cleanup, err := NewRedis(&conf.Bootstrap{}, log.DefaultLogger)
	require.NoError(t, err)
	require.Nil(t, rdb)
	cleanup()
}

func TestOpenDBUnsupportedDriver(t *testing.T) {
	_, err := OpenDB(&conf.Data_Database{Driver: "oracle"})
	require.Error(t, err)
}

func TestEndToEndSettlement(t *testing.T) {
	d, db := newTestData(t)
	p := newPipeline(d)
	ctx := context.Background()

	seedContract(t, db, 1, "Host A", "0.05")
	seedReservation(t, db, "R-001", 1, 20000, constants.FinancialStatusPaid)

	n, err := p.detail.ExtractSettlementDetails(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var detail model.SettlementDetail
	require.NoError(t, db.Where("reservation_code = ?", "R-001").First(&detail).Error)
	require.Equal(t, int64(20000), detail.GrossAmount)
	require.Equal(t, int64(1000), detail.Commission)
	require.Equal(t, int64(19000), detail.NetAmount)
	require.Equal(t, "Host A", detail.HostBizName)

	_, err = p.daily.AggregateDaily(ctx)
	require.NoError(t, err)

	seedReservation(t, db, "R-002", 1, 5000, constants.FinancialStatusPaid)
	seedReservation(t, db, "R-003", 1, 15000, constants.FinancialStatusPaid)

	n, err = p.detail.ExtractSettlementDetails(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	n, err = p.detail.ExtractSettlementDetails(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = p.daily.AggregateDaily(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var daily []model.SettlementDaily
	require.NoError(t, db.Find(&daily).Error)
	require.Len(t, daily, 1)
	require.Equal(t, 6, daily[0].Day)
	require.Equal(t, 2, daily[0].Week)
	require.Equal(t, int64(40000), daily[0].DailyGrossAmount)
	require.Equal(t, int64(2000), daily[0].DailyCommission)
	require.Equal(t, int64(38000), daily[0].DailyNetAmount)

	n, err = p.weekly.AggregateWeekly(ctx, testNow)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = p.monthly.AggregateMonthly(ctx, biz.YearMonthOf(testNow))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var monthly model.SettlementMonthly
	require.NoError(t, db.First(&monthly).Error)
	require.Equal(t, int64(40000), monthly.MonthlyGrossAmount)
	require.Equal(t, int64(38000), monthly.MonthlyNetAmount)

	unsettled, err := p.query.UnsettledAmount(ctx, "Host A")
	require.NoError(t, err)
	require.Equal(t, int64(40000), unsettled.GrossAmount)
	require.Equal(t, int64(38000), unsettled.NetAmount)
	require.Equal(t, int64(3), unsettled.Count)
}

func TestExtractSkipsAndRefunds(t *testing.T) {
	d, db := newTestData(t)
	p := newPipeline(d)
	ctx := context.Background()

	seedContract(t, db, 1, "Host A", "0.03")
	seedContract(t, db, 2, "Host B", "")
	seedReservation(t, db, "PAID", 1, 10000, constants.FinancialStatusPaid)
	seedReservation(t, db, "CANCELLED", 1, 10000, constants.FinancialStatusCancelled)
	seedReservation(t, db, "NULL-RATE", 2, 10000, constants.FinancialStatusPaid)
	seedReservation(t, db, "NO-CONTRACT", 3, 10000, constants.FinancialStatusPaid)
	seedReservation(t, db, "UNPAID", 1, 10000, "PENDING")

	n, err := p.detail.ExtractSettlementDetails(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	var refunded model.SettlementDetail
	require.NoError(t, db.Where("reservation_code = ?", "CANCELLED").First(&refunded).Error)
	require.Equal(t, int64(4), refunded.StatusID)
	require.Equal(t, int64(10000), refunded.RefundAmount)
	require.Zero(t, refunded.GrossAmount)
	require.Zero(t, refunded.Commission)
	require.Zero(t, refunded.NetAmount)

	var paid model.SettlementDetail
	require.NoError(t, db.Where("reservation_code = ?", "PAID").First(&paid).Error)
	require.Equal(t, int64(300), paid.Commission)
	require.Equal(t, int64(9700), paid.NetAmount)
	require.True(t, paid.ContractChargeRate.Equal(decimal.RequireFromString("0.03")))

	// 预约表本身不被修改
	var unpaid model.Reservation
	require.NoError(t, db.Where("code = ?", "UNPAID").First(&unpaid).Error)
	require.Equal(t, "PENDING", unpaid.FinancialStatus)
}

func TestLatestActiveContractWins(t *testing.T) {
	d, db := newTestData(t)
	ctx := context.Background()

	seedContract(t, db, 1, "Host A old", "0.05")
	require.NoError(t, db.Create(&model.HostContract{
		HostID: 1, HostBizName: "Host A", Active: true, EffectiveFrom: testNow.AddDate(0, 0, -1),
		ChargeRate: decimal.NullDecimal{Decimal: decimal.RequireFromString("0.03"), Valid: true},
	}).Error)
	require.NoError(t, db.Create(&model.HostContract{
		HostID: 1, HostBizName: "Host A future", Active: true, EffectiveFrom: testNow.AddDate(0, 0, 1),
		ChargeRate: decimal.NullDecimal{Decimal: decimal.RequireFromString("0.01"), Valid: true},
	}).Error)

	contracts, err := NewContractRepo(d, log.DefaultLogger).ListActiveContracts(ctx, []int64{1, 2}, testNow)
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	require.Equal(t, "Host A", contracts[1].HostBizName)
	require.True(t, contracts[1].ChargeRate.Decimal.Equal(decimal.RequireFromString("0.03")))
}

func TestCreateDetailsIgnoresDuplicateCode(t *testing.T) {
	d, _ := newTestData(t)
	repo := NewDetailRepo(d, log.DefaultLogger)
	ctx := context.Background()

	detail := &biz.SettlementDetail{
		ID:                 "d-1",
		HostID:             1,
		HostBizName:        "Host A",
		PerformanceTitle:   "Concert",
		PerformanceEndAt:   testNow,
		ReservationCode:    "R-001",
		ContractChargeRate: decimal.RequireFromString("0.05"),
		StatusID:           1,
		CreatedAt:          testNow,
		Amounts:            biz.Amounts{SalesAmount: 100, GrossAmount: 100, Commission: 5, NetAmount: 95},
	}
	n, err := repo.CreateDetails(ctx, []*biz.SettlementDetail{detail})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	dup := *detail
	dup.ID = "d-2"
	n, err = repo.CreateDetails(ctx, []*biz.SettlementDetail{&dup})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestUpsertDailyOverwrites(t *testing.T) {
	d, db := newTestData(t)
	repo := NewDailyRepo(d, log.DefaultLogger)
	ctx := context.Background()

	row := &biz.SettlementDaily{
		ID: "day-1", HostBizName: "Host A", PerformanceTitle: "Concert",
		Year: 2025, Month: 1, Day: 6, Week: 2, StatusID: 1,
		CreatedAt: testNow, UpdatedAt: testNow,
		Amounts: biz.Amounts{SalesAmount: 100, GrossAmount: 100, Commission: 5, NetAmount: 95},
	}
	_, err := repo.UpsertDaily(ctx, []*biz.SettlementDaily{row})
	require.NoError(t, err)

	// 下游修改状态后重新汇总，金额覆盖，状态保留
	require.NoError(t, db.Model(&model.SettlementDaily{}).Where("id = ?", "day-1").Update("status_id", 2).Error)

	again := *row
	again.ID = "day-2"
	again.StatusID = 1
	again.Amounts = biz.Amounts{SalesAmount: 300, GrossAmount: 300, Commission: 15, NetAmount: 285}
	_, err = repo.UpsertDaily(ctx, []*biz.SettlementDaily{&again})
	require.NoError(t, err)
	_, err = repo.UpsertDaily(ctx, []*biz.SettlementDaily{&again})
	require.NoError(t, err)

	var rows []model.SettlementDaily
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "day-1", rows[0].ID)
	require.Equal(t, int64(300), rows[0].DailyGrossAmount)
	require.Equal(t, int64(285), rows[0].DailyNetAmount)
	require.Equal(t, int64(2), rows[0].StatusID)

	week, err := repo.ListDailyByWeek(ctx, biz.WeekKey{Year: 2025, Month: 1, Week: 2})
	require.NoError(t, err)
	require.Len(t, week, 1)
	require.Equal(t, int64(300), week[0].GrossAmount)
}

func TestExecTxRollsBack(t *testing.T) {
	d, db := newTestData(t)
	repo := NewDetailRepo(d, log.DefaultLogger)

	err := d.ExecTx(context.Background(), func(ctx context.Context) error {
		_, err := repo.CreateDetails(ctx, []*biz.SettlementDetail{{
			ID: "d-1", HostBizName: "Host A", PerformanceTitle: "Concert", ReservationCode: "R-001",
			PerformanceEndAt: testNow, CreatedAt: testNow, StatusID: 1,
			ContractChargeRate: decimal.RequireFromString("0.05"),
		}})
		require.NoError(t, err)
		return context.DeadlineExceeded
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	var count int64
	require.NoError(t, db.Model(&model.SettlementDetail{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestTranslateError(t *testing.T) {
	require.Nil(t, translateError(nil))
	require.Equal(t, settlementErrors.ReasonUpsertConflict, errors.Reason(translateError(gorm.ErrDuplicatedKey)))
	require.Equal(t, settlementErrors.ReasonStorageUnavailable, errors.Reason(translateError(gorm.ErrInvalidDB)))
	require.Equal(t, settlementErrors.ReasonContractNotFound, errors.Reason(translateError(settlementErrors.ErrContractNotFound)))
	require.True(t, settlementErrors.IsRetryable(translateError(gorm.ErrInvalidDB)))
}
