package biz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func (u *testUseCases) addDetail(code, host, perf string, createdAt time.Time, gross, commission int64) {
	u.store.details = append(u.store.details, &SettlementDetail{
		ID:               code,
		HostBizName:      host,
		PerformanceTitle: perf,
		ReservationCode:  code,
		CreatedAt:        createdAt,
		StatusID:         1,
		Amounts: Amounts{
			SalesAmount: gross,
			GrossAmount: gross,
			Commission:  commission,
			NetAmount:   gross - commission,
		},
	})
}

func at(m time.Month, d, h int) time.Time {
	return time.Date(2025, m, d, h, 0, 0, 0, time.UTC)
}

// seedJanuary 2025-01：3日、4日属于第1周，6日属于第2周
func seedJanuary(u *testUseCases) {
	u.addDetail("D1", "Host A", "Concert", at(time.January, 3, 9), 10000, 500)
	u.addDetail("D2", "Host A", "Concert", at(time.January, 3, 18), 5000, 250)
	u.addDetail("D3", "Host A", "Concert", at(time.January, 4, 9), 15000, 750)
	u.addDetail("D4", "Host A", "Concert", at(time.January, 6, 9), 2000, 100)
	u.addDetail("D5", "Host A", "Musical", at(time.January, 6, 9), 3000, 90)
	u.addDetail("D6", "Host B", "Concert", at(time.January, 4, 9), 7000, 210)
	u.addDetail("D7", "Host A", "Concert", at(time.February, 2, 9), 9999, 300)
}

func TestAggregateDaily(t *testing.T) {
	u := newTestUseCases()
	seedJanuary(u)

	n, err := u.daily.AggregateDaily(context.Background())
	require.NoError(t, err)
	require.Equal(t, 6, n)

	jan3 := u.store.daily["Host A|Concert|2025|1|3"]
	require.NotNil(t, jan3)
	require.Equal(t, int64(15000), jan3.GrossAmount)
	require.Equal(t, int64(750), jan3.Commission)
	require.Equal(t, int64(14250), jan3.NetAmount)
	require.Equal(t, 1, jan3.Week)

	require.Equal(t, 2, u.store.daily["Host A|Musical|2025|1|6"].Week)
}

func TestAggregateDailyIdempotent(t *testing.T) {
	u := newTestUseCases()
	seedJanuary(u)

	_, err := u.daily.AggregateDaily(context.Background())
	require.NoError(t, err)
	first := make(map[string]Amounts)
	for k, v := range u.store.daily {
		first[k] = v.Amounts
	}

	_, err = u.daily.AggregateDaily(context.Background())
	require.NoError(t, err)
	require.Len(t, u.store.daily, len(first))
	for k, v := range u.store.daily {
		require.Equal(t, first[k], v.Amounts, k)
	}
}

func TestAggregateDailyUsesSettlementTimezone(t *testing.T) {
	u := newTestUseCases()
	u.conf.Location = time.FixedZone("KST", 9*60*60)
	// UTC 1月3日 16:00 = KST 1月4日 01:00
	u.addDetail("D1", "Host A", "Concert", at(time.January, 3, 16), 10000, 500)

	_, err := u.daily.AggregateDaily(context.Background())
	require.NoError(t, err)
	require.Contains(t, u.store.daily, "Host A|Concert|2025|1|4")
	require.NotContains(t, u.store.daily, "Host A|Concert|2025|1|3")
}

func TestAggregateDailyEmpty(t *testing.T) {
	u := newTestUseCases()

	n, err := u.daily.AggregateDaily(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRollupConservation(t *testing.T) {
	u := newTestUseCases()
	seedJanuary(u)
	ctx := context.Background()

	_, err := u.daily.AggregateDaily(ctx)
	require.NoError(t, err)

	n, err := u.weekly.AggregateWeekly(ctx, at(time.January, 4, 0))
	require.NoError(t, err)
	require.Equal(t, 2, n) // Host A/Concert, Host B/Concert
	n, err = u.weekly.AggregateWeekly(ctx, at(time.January, 6, 0))
	require.NoError(t, err)
	require.Equal(t, 2, n) // Host A/Concert, Host A/Musical

	week1 := u.store.weekly["Host A|Concert|2025|1|1"]
	require.NotNil(t, week1)
	require.Equal(t, int64(30000), week1.GrossAmount)
	require.Equal(t, int64(1500), week1.Commission)

	n, err = u.monthly.AggregateMonthly(ctx, YearMonth{Year: 2025, Month: time.January})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	jan := u.store.monthly["Host A|Concert|2025|1"]
	require.NotNil(t, jan)
	require.Equal(t, int64(32000), jan.GrossAmount)
	require.Equal(t, int64(1600), jan.Commission)
	require.Equal(t, int64(30400), jan.NetAmount)

	// detail -> monthly 总额守恒（仅1月）
	var detailGross, monthlyGross int64
	for _, d := range u.store.details {
		if d.CreatedAt.Month() == time.January {
			detailGross += d.GrossAmount
		}
	}
	for _, m := range u.store.monthly {
		monthlyGross += m.GrossAmount
	}
	require.Equal(t, detailGross, monthlyGross)
}

func TestAggregateWeeklyOverwritesOnRerun(t *testing.T) {
	u := newTestUseCases()
	seedJanuary(u)
	ctx := context.Background()

	_, err := u.daily.AggregateDaily(ctx)
	require.NoError(t, err)
	_, err = u.weekly.AggregateWeekly(ctx, at(time.January, 4, 0))
	require.NoError(t, err)

	// 迟到的明细在下一次运行时被计入，而不是重复累加
	u.addDetail("LATE", "Host A", "Concert", at(time.January, 4, 20), 1000, 50)
	_, err = u.daily.AggregateDaily(ctx)
	require.NoError(t, err)
	_, err = u.weekly.AggregateWeekly(ctx, at(time.January, 4, 0))
	require.NoError(t, err)
	_, err = u.weekly.AggregateWeekly(ctx, at(time.January, 4, 0))
	require.NoError(t, err)

	require.Equal(t, int64(31000), u.store.weekly["Host A|Concert|2025|1|1"].GrossAmount)
}

func TestAggregateWeeklyNoDaily(t *testing.T) {
	u := newTestUseCases()

	n, err := u.weekly.AggregateWeekly(context.Background(), at(time.March, 1, 0))
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = u.monthly.AggregateMonthly(context.Background(), YearMonth{Year: 2025, Month: time.March})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestEndToEndScenario(t *testing.T) {
	u := newTestUseCases()
	u.addContract(1, "Host A", "0.05")
	u.addReservation("R-001", 1, 20000, "PAID")
	ctx := context.Background()

	_, err := u.detail.ExtractSettlementDetails(ctx)
	require.NoError(t, err)
	_, err = u.daily.AggregateDaily(ctx)
	require.NoError(t, err)

	u.addReservation("R-002", 1, 5000, "PAID")
	u.addReservation("R-003", 1, 15000, "PAID")
	n, err := u.detail.ExtractSettlementDetails(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	_, err = u.daily.AggregateDaily(ctx)
	require.NoError(t, err)

	day := u.store.daily["Host A|Concert|2025|1|6"]
	require.NotNil(t, day)
	require.Equal(t, int64(40000), day.GrossAmount)
	require.Equal(t, int64(2000), day.Commission)
	require.Equal(t, int64(38000), day.NetAmount)
}
