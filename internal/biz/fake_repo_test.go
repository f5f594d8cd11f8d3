package biz

import (
	"context"
	"fmt"
	"sort"
	"time"

	"settlement-service/internal/constants"
)

// fakeStore 内存实现，覆盖 biz 层全部 Repo 接口
type fakeStore struct {
	reservations []*Reservation
	contracts    map[int64]*HostContract
	statuses     []*SettlementStatus
	details      []*SettlementDetail
	daily        map[string]*SettlementDaily
	weekly       map[string]*SettlementWeekly
	monthly      map[string]*SettlementMonthly

	listStatusCalls int
	invalidateCalls int
	createErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contracts: make(map[int64]*HostContract),
		statuses: []*SettlementStatus{
			{ID: 1, Code: constants.StatusSettlementPending, Name: "settlement pending"},
			{ID: 2, Code: constants.StatusSettlementCompleted, Name: "settlement completed"},
			{ID: 3, Code: constants.StatusRefundRequested, Name: "refund requested"},
			{ID: 4, Code: constants.StatusRefunded, Name: "refunded"},
		},
		daily:   make(map[string]*SettlementDaily),
		weekly:  make(map[string]*SettlementWeekly),
		monthly: make(map[string]*SettlementMonthly),
	}
}

type fakeTx struct {
	calls int
}

func (tx *fakeTx) ExecTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.calls++
	return fn(ctx)
}

func (s *fakeStore) ListUnsettledReservations(ctx context.Context) ([]*Reservation, error) {
	settled := make(map[string]bool, len(s.details))
	for _, d := range s.details {
		settled[d.ReservationCode] = true
	}
	var out []*Reservation
	for _, r := range s.reservations {
		if r.FinancialStatus != constants.FinancialStatusPaid && r.FinancialStatus != constants.FinancialStatusCancelled {
			continue
		}
		if settled[r.Code] {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeStore) ListActiveContracts(ctx context.Context, hostIDs []int64, at time.Time) (map[int64]*HostContract, error) {
	out := make(map[int64]*HostContract)
	for _, id := range hostIDs {
		if c, ok := s.contracts[id]; ok && !c.EffectiveFrom.After(at) {
			out[id] = c
		}
	}
	return out, nil
}

func (s *fakeStore) CreateDetails(ctx context.Context, details []*SettlementDetail) (int, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	existing := make(map[string]bool, len(s.details))
	for _, d := range s.details {
		existing[d.ReservationCode] = true
	}
	n := 0
	for _, d := range details {
		if existing[d.ReservationCode] {
			continue
		}
		existing[d.ReservationCode] = true
		s.details = append(s.details, d)
		n++
	}
	return n, nil
}

func (s *fakeStore) ForEachDetail(ctx context.Context, batchSize int, fn func([]*SettlementDetail) error) error {
	for i := 0; i < len(s.details); i += batchSize {
		end := i + batchSize
		if end > len(s.details) {
			end = len(s.details)
		}
		if err := fn(s.details[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) UpsertDaily(ctx context.Context, rows []*SettlementDaily) (int, error) {
	for _, r := range rows {
		k := fmt.Sprintf("%s|%s|%d|%d|%d", r.HostBizName, r.PerformanceTitle, r.Year, r.Month, r.Day)
		if old, ok := s.daily[k]; ok {
			old.Amounts = r.Amounts
			old.UpdatedAt = r.UpdatedAt
			continue
		}
		cp := *r
		s.daily[k] = &cp
	}
	return len(rows), nil
}

func (s *fakeStore) ListDailyByWeek(ctx context.Context, key WeekKey) ([]*SettlementDaily, error) {
	var out []*SettlementDaily
	for _, r := range s.daily {
		if r.Year == key.Year && r.Month == key.Month && r.Week == key.Week {
			out = append(out, r)
		}
	}
	sortDaily(out)
	return out, nil
}

func (s *fakeStore) UpsertWeekly(ctx context.Context, rows []*SettlementWeekly) (int, error) {
	for _, r := range rows {
		k := fmt.Sprintf("%s|%s|%d|%d|%d", r.HostBizName, r.PerformanceTitle, r.Year, r.Month, r.Week)
		if old, ok := s.weekly[k]; ok {
			old.Amounts = r.Amounts
			old.UpdatedAt = r.UpdatedAt
			continue
		}
		cp := *r
		s.weekly[k] = &cp
	}
	return len(rows), nil
}

func (s *fakeStore) ListWeeklyByMonth(ctx context.Context, ym YearMonth) ([]*SettlementWeekly, error) {
	var out []*SettlementWeekly
	for _, r := range s.weekly {
		if r.Year == ym.Year && r.Month == int(ym.Month) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out, nil
}

func (s *fakeStore) UpsertMonthly(ctx context.Context, rows []*SettlementMonthly) (int, error) {
	for _, r := range rows {
		k := fmt.Sprintf("%s|%s|%d|%d", r.HostBizName, r.PerformanceTitle, r.Year, r.Month)
		if old, ok := s.monthly[k]; ok {
			old.Amounts = r.Amounts
			old.UpdatedAt = r.UpdatedAt
			continue
		}
		cp := *r
		s.monthly[k] = &cp
	}
	return len(rows), nil
}

func (s *fakeStore) ListStatuses(ctx context.Context) ([]*SettlementStatus, error) {
	s.listStatusCalls++
	return s.statuses, nil
}

func (s *fakeStore) InvalidateStatuses(ctx context.Context) error {
	s.invalidateCalls++
	return nil
}
