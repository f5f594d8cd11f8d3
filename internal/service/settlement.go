package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"settlement-service/internal/biz"
	"settlement-service/internal/constants"
	settlementErrors "settlement-service/internal/errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/gorilla/mux"
)

// SettlementService 结算查询与导出（只读）
type SettlementService struct {
	uc   *biz.SettlementQueryUseCase
	jobs *biz.JobHistoryUseCase
	conf *biz.SettlementConfig
	log  *log.Helper
}

// NewSettlementService 创建 SettlementService
func NewSettlementService(uc *biz.SettlementQueryUseCase, jobs *biz.JobHistoryUseCase, conf *biz.SettlementConfig, logger log.Logger) *SettlementService {
	return &SettlementService{
		uc:   uc,
		jobs: jobs,
		conf: conf,
		log:  log.NewHelper(logger),
	}
}

// NewRouter 注册查询路由
//
//	GET /v1/settlements/details?host_id=&host_biz_name=&performance_title=&status=&from=&to=&page=&page_size=
//	GET /v1/settlements/details/export
//	GET /v1/settlements/{daily|weekly|monthly}
//	GET /v1/settlements/unsettled?host_biz_name=
//	GET /v1/jobs?pipeline=&limit=
func (s *SettlementService) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.HandleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1/settlements").Subrouter()
	v1.HandleFunc("/details/export", s.HandleExportDetails).Methods(http.MethodGet)
	v1.HandleFunc("/details", s.HandleListDetails).Methods(http.MethodGet)
	v1.HandleFunc("/daily", s.HandleListDaily).Methods(http.MethodGet)
	v1.HandleFunc("/weekly", s.HandleListWeekly).Methods(http.MethodGet)
	v1.HandleFunc("/monthly", s.HandleListMonthly).Methods(http.MethodGet)
	v1.HandleFunc("/unsettled", s.HandleUnsettled).Methods(http.MethodGet)
	r.HandleFunc("/v1/jobs", s.HandleListJobRuns).Methods(http.MethodGet)
	return r
}

type pagedResponse[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

type amountsView struct {
	SalesAmount  int64 `json:"sales_amount"`
	RefundAmount int64 `json:"refund_amount"`
	GrossAmount  int64 `json:"gross_amount"`
	Commission   int64 `json:"commission"`
	NetAmount    int64 `json:"net_amount"`
}

func toAmountsView(a biz.Amounts) amountsView {
	return amountsView{
		SalesAmount:  a.SalesAmount,
		RefundAmount: a.RefundAmount,
		GrossAmount:  a.GrossAmount,
		Commission:   a.Commission,
		NetAmount:    a.NetAmount,
	}
}

type detailView struct {
	ID                 string    `json:"id"`
	HostID             int64     `json:"host_id"`
	HostBizName        string    `json:"host_biz_name"`
	PerformanceTitle   string    `json:"performance_title"`
	PerformanceEndAt   time.Time `json:"performance_end_at"`
	ReservationCode    string    `json:"reservation_code"`
	ContractChargeRate string    `json:"contract_charge_rate"`
	StatusID           int64     `json:"status_id"`
	CreatedAt          time.Time `json:"created_at"`
	amountsView
}

type dailyView struct {
	ID               string    `json:"id"`
	HostBizName      string    `json:"host_biz_name"`
	PerformanceTitle string    `json:"performance_title"`
	Year             int       `json:"year"`
	Month            int       `json:"month"`
	Day              int       `json:"day"`
	Week             int       `json:"week"`
	StatusID         int64     `json:"status_id"`
	UpdatedAt        time.Time `json:"updated_at"`
	amountsView
}

type weeklyView struct {
	ID               string    `json:"id"`
	HostBizName      string    `json:"host_biz_name"`
	PerformanceTitle string    `json:"performance_title"`
	Year             int       `json:"year"`
	Month            int       `json:"month"`
	Week             int       `json:"week"`
	StatusID         int64     `json:"status_id"`
	UpdatedAt        time.Time `json:"updated_at"`
	amountsView
}

type monthlyView struct {
	ID               string    `json:"id"`
	HostBizName      string    `json:"host_biz_name"`
	PerformanceTitle string    `json:"performance_title"`
	Year             int       `json:"year"`
	Month            int       `json:"month"`
	StatusID         int64     `json:"status_id"`
	UpdatedAt        time.Time `json:"updated_at"`
	amountsView
}

type unsettledView struct {
	HostBizName string `json:"host_biz_name,omitempty"`
	GrossAmount int64  `json:"gross_amount"`
	NetAmount   int64  `json:"net_amount"`
	Count       int64  `json:"count"`
}

// HandleHealth 健康检查
func (s *SettlementService) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleListDetails 分页查询结算明细
func (s *SettlementService) HandleListDetails(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, total, err := s.uc.ListDetails(r.Context(), f)
	if err != nil {
		s.writeBizError(w, "ListDetails", err)
		return
	}
	items := make([]detailView, 0, len(rows))
	for _, d := range rows {
		items = append(items, detailView{
			ID:                 d.ID,
			HostID:             d.HostID,
			HostBizName:        d.HostBizName,
			PerformanceTitle:   d.PerformanceTitle,
			PerformanceEndAt:   d.PerformanceEndAt,
			ReservationCode:    d.ReservationCode,
			ContractChargeRate: d.ContractChargeRate.String(),
			StatusID:           d.StatusID,
			CreatedAt:          d.CreatedAt,
			amountsView:        toAmountsView(d.Amounts),
		})
	}
	writePage(w, items, total, f)
}

// HandleListDaily 分页查询日汇总
func (s *SettlementService) HandleListDaily(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, total, err := s.uc.ListDaily(r.Context(), f)
	if err != nil {
		s.writeBizError(w, "ListDaily", err)
		return
	}
	items := make([]dailyView, 0, len(rows))
	for _, d := range rows {
		items = append(items, dailyView{
			ID:               d.ID,
			HostBizName:      d.HostBizName,
			PerformanceTitle: d.PerformanceTitle,
			Year:             d.Year,
			Month:            d.Month,
			Day:              d.Day,
			Week:             d.Week,
			StatusID:         d.StatusID,
			UpdatedAt:        d.UpdatedAt,
			amountsView:      toAmountsView(d.Amounts),
		})
	}
	writePage(w, items, total, f)
}

// HandleListWeekly 分页查询周汇总
func (s *SettlementService) HandleListWeekly(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, total, err := s.uc.ListWeekly(r.Context(), f)
	if err != nil {
		s.writeBizError(w, "ListWeekly", err)
		return
	}
	items := make([]weeklyView, 0, len(rows))
	for _, d := range rows {
		items = append(items, weeklyView{
			ID:               d.ID,
			HostBizName:      d.HostBizName,
			PerformanceTitle: d.PerformanceTitle,
			Year:             d.Year,
			Month:            d.Month,
			Week:             d.Week,
			StatusID:         d.StatusID,
			UpdatedAt:        d.UpdatedAt,
			amountsView:      toAmountsView(d.Amounts),
		})
	}
	writePage(w, items, total, f)
}

// HandleListMonthly 分页查询月汇总
func (s *SettlementService) HandleListMonthly(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, total, err := s.uc.ListMonthly(r.Context(), f)
	if err != nil {
		s.writeBizError(w, "ListMonthly", err)
		return
	}
	items := make([]monthlyView, 0, len(rows))
	for _, d := range rows {
		items = append(items, monthlyView{
			ID:               d.ID,
			HostBizName:      d.HostBizName,
			PerformanceTitle: d.PerformanceTitle,
			Year:             d.Year,
			Month:            d.Month,
			StatusID:         d.StatusID,
			UpdatedAt:        d.UpdatedAt,
			amountsView:      toAmountsView(d.Amounts),
		})
	}
	writePage(w, items, total, f)
}

// HandleUnsettled 主办方待结算金额
func (s *SettlementService) HandleUnsettled(w http.ResponseWriter, r *http.Request) {
	sum, err := s.uc.UnsettledAmount(r.Context(), r.URL.Query().Get("host_biz_name"))
	if err != nil {
		s.writeBizError(w, "UnsettledAmount", err)
		return
	}
	writeJSON(w, http.StatusOK, unsettledView{
		HostBizName: sum.HostBizName,
		GrossAmount: sum.GrossAmount,
		NetAmount:   sum.NetAmount,
		Count:       sum.Count,
	})
}

type jobRunView struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Pipeline   string    `json:"pipeline"`
	Step       string    `json:"step"`
	Status     string    `json:"status"`
	Rows       int       `json:"rows"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// HandleListJobRuns 最近的流水线执行记录
func (s *SettlementService) HandleListJobRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.jobs.Recent(r.Context(), r.URL.Query().Get("pipeline"), limit)
	if err != nil {
		s.writeBizError(w, "ListJobRuns", err)
		return
	}
	items := make([]jobRunView, 0, len(runs))
	for _, j := range runs {
		items = append(items, jobRunView{
			ID:         j.ID,
			RunID:      j.RunID,
			Pipeline:   j.Pipeline,
			Step:       j.Step,
			Status:     j.Status,
			Rows:       j.Rows,
			Error:      j.Error,
			StartedAt:  j.StartedAt,
			FinishedAt: j.FinishedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// parseFilter 日期参数为结算时区的 YYYY-MM-DD，to 包含当天
func (s *SettlementService) parseFilter(r *http.Request) (biz.QueryFilter, error) {
	q := r.URL.Query()
	f := biz.QueryFilter{
		HostBizName:      q.Get("host_biz_name"),
		PerformanceTitle: q.Get("performance_title"),
		StatusCode:       q.Get("status"),
	}

	var err error
	if v := q.Get("host_id"); v != "" {
		if f.HostID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return f, fmt.Errorf("invalid host_id %q", v)
		}
	}
	if v := q.Get("page"); v != "" {
		if f.Page, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("invalid page %q", v)
		}
	}
	if v := q.Get("page_size"); v != "" {
		if f.PageSize, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("invalid page_size %q", v)
		}
	}
	if v := q.Get("from"); v != "" {
		from, err := time.ParseInLocation(constants.TimeFormatDate, v, s.conf.Location)
		if err != nil {
			return f, fmt.Errorf("invalid from %q, want %s", v, constants.TimeFormatDate)
		}
		f.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.ParseInLocation(constants.TimeFormatDate, v, s.conf.Location)
		if err != nil {
			return f, fmt.Errorf("invalid to %q, want %s", v, constants.TimeFormatDate)
		}
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.To = &end
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return f, fmt.Errorf("from must not be after to")
	}
	f.Normalize()
	return f, nil
}

func (s *SettlementService) writeBizError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch kerrors.Reason(err) {
	case settlementErrors.ReasonStatusNotFound:
		status = http.StatusBadRequest
	case settlementErrors.ReasonStorageUnavailable:
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.log.Errorf("%s failed: %v", op, err)
	}
	msg := err.Error()
	if ke := kerrors.FromError(err); ke != nil && ke.Message != "" {
		msg = ke.Message
	}
	writeError(w, status, msg)
}

func writePage[T any](w http.ResponseWriter, items []T, total int64, f biz.QueryFilter) {
	writeJSON(w, http.StatusOK, pagedResponse[T]{
		Items:    items,
		Total:    total,
		Page:     f.Page,
		PageSize: f.PageSize,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
