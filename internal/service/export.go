package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"settlement-service/internal/biz"
)

// 导出结束后通过 HTTP trailer 告知结果，中途失败时 CSV 末尾追加单列的中断行
const (
	ExportStatusTrailer = "X-Export-Status"
	ExportRowsTrailer   = "X-Export-Rows"

	ExportStatusComplete = "complete"
	ExportStatusAborted  = "aborted"

	exportAbortedRow = "# export aborted"
)

var detailCSVHeader = []string{
	"reservation_code",
	"host_id",
	"host_biz_name",
	"performance_title",
	"performance_end_at",
	"contract_charge_rate",
	"sales_amount",
	"refund_amount",
	"gross_amount",
	"commission",
	"net_amount",
	"status_id",
	"created_at",
}

// DetailCSVWriter 明细 CSV 流式写入
type DetailCSVWriter struct {
	w    *csv.Writer
	loc  *time.Location
	rows int
}

// NewDetailCSVWriter 写入表头，时间按 loc 输出
func NewDetailCSVWriter(w io.Writer, loc *time.Location) (*DetailCSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(detailCSVHeader); err != nil {
		return nil, err
	}
	return &DetailCSVWriter{w: cw, loc: loc}, nil
}

// WriteChunk 写入一批明细并刷新
func (d *DetailCSVWriter) WriteChunk(rows []*biz.SettlementDetail) error {
	for _, r := range rows {
		if err := d.w.Write([]string{
			r.ReservationCode,
			strconv.FormatInt(r.HostID, 10),
			r.HostBizName,
			r.PerformanceTitle,
			r.PerformanceEndAt.In(d.loc).Format(time.RFC3339),
			r.ContractChargeRate.String(),
			strconv.FormatInt(r.SalesAmount, 10),
			strconv.FormatInt(r.RefundAmount, 10),
			strconv.FormatInt(r.GrossAmount, 10),
			strconv.FormatInt(r.Commission, 10),
			strconv.FormatInt(r.NetAmount, 10),
			strconv.FormatInt(r.StatusID, 10),
			r.CreatedAt.In(d.loc).Format(time.RFC3339),
		}); err != nil {
			return err
		}
		d.rows++
	}
	d.w.Flush()
	return d.w.Error()
}

// Rows 已写入的明细行数（不含表头）
func (d *DetailCSVWriter) Rows() int {
	return d.rows
}

// Abort 追加中断行，列数与表头不一致，按表头校验列数的 CSV 解析会报错
func (d *DetailCSVWriter) Abort() error {
	if err := d.w.Write([]string{exportAbortedRow}); err != nil {
		return err
	}
	d.w.Flush()
	return d.w.Error()
}

// HandleExportDetails 按查询条件分块导出明细 CSV
func (s *SettlementService) HandleExportDetails(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.exportContext(r.Context())
	defer cancel()

	var (
		cw      *DetailCSVWriter
		started bool
	)
	start := func() error {
		started = true
		h := w.Header()
		h.Set("Content-Type", "text/csv; charset=utf-8")
		h.Set("Content-Disposition", `attachment; filename="settlement_details.csv"`)
		h.Set("Trailer", ExportStatusTrailer+", "+ExportRowsTrailer)
		w.WriteHeader(http.StatusOK)
		var err error
		cw, err = NewDetailCSVWriter(w, s.conf.Location)
		return err
	}

	err = s.uc.ExportDetails(ctx, f, s.conf.BatchSize, func(rows []*biz.SettlementDetail) error {
		if !started {
			if err := start(); err != nil {
				return err
			}
		}
		if err := cw.WriteChunk(rows); err != nil {
			return err
		}
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
		return nil
	})
	if err != nil && !started {
		s.writeBizError(w, "ExportDetails", err)
		return
	}
	if err == nil && !started {
		// 无数据时只输出表头
		if err = start(); err == nil {
			err = cw.WriteChunk(nil)
		}
	}

	status := ExportStatusComplete
	if err != nil {
		// 已开始输出，只能标记中断
		status = ExportStatusAborted
		s.log.Errorf("ExportDetails aborted: %v", err)
		if cw != nil {
			if aerr := cw.Abort(); aerr != nil {
				s.log.Warnf("ExportDetails write aborted row failed: %v", aerr)
			}
		}
	}
	w.Header().Set(ExportStatusTrailer, status)
	if cw != nil {
		w.Header().Set(ExportRowsTrailer, strconv.Itoa(cw.Rows()))
	}
}

// exportContext 导出不受 HTTP 服务器请求超时的约束，只在客户端断开或超过导出超时时取消
func (s *SettlementService) exportContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	var cancel context.CancelFunc
	if s.conf.ExportTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.conf.ExportTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	stop := context.AfterFunc(parent, func() {
		if errors.Is(parent.Err(), context.Canceled) {
			cancel()
		}
	})
	return ctx, func() {
		stop()
		cancel()
	}
}
