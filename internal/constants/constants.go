package constants

// 时间格式常量
const (
	// TimeFormatDate 日期格式 (YYYY-MM-DD)
	TimeFormatDate = "2006-01-02"
	// TimeFormatMonth 月份格式 (YYYY-MM)
	TimeFormatMonth = "2006-01"
)

// 预约财务状态（外部预约系统写入）
const (
	// FinancialStatusPaid 已支付
	FinancialStatusPaid = "PAID"
	// FinancialStatusCancelled 已取消（全额退款）
	FinancialStatusCancelled = "CANCELLED"
)

// 结算状态编码（settlement_status.code）
const (
	// StatusSettlementPending 待结算（尚未打款给主办方）
	StatusSettlementPending = "SETTLEMENT_PENDING"
	// StatusSettlementCompleted 已结算
	StatusSettlementCompleted = "SETTLEMENT_COMPLETED"
	// StatusRefundRequested 退款申请中
	StatusRefundRequested = "REFUND_REQUESTED"
	// StatusRefunded 已退款
	StatusRefunded = "REFUNDED"
)

// Redis Key 前缀常量
const (
	// RedisKeyStatus 结算状态缓存（hash: code -> status_id）
	RedisKeyStatus = "settlement:status"
	// RedisKeyPipelineLock 流水线运行锁 key 前缀
	RedisKeyPipelineLock = "settlement:lock:"
)

// 流水线与步骤名称
const (
	// PipelineDetailDaily 流水线 A：明细抽取 -> 日汇总
	PipelineDetailDaily = "detail-daily"
	// PipelineWeeklyMonthly 流水线 B：周汇总 -> 月汇总
	PipelineWeeklyMonthly = "weekly-monthly"

	StepExtractDetail    = "extract_detail"
	StepAggregateDaily   = "aggregate_daily"
	StepAggregateWeekly  = "aggregate_weekly"
	StepAggregateMonthly = "aggregate_monthly"
)

// 任务执行状态（settlement_job_run.status，也用作指标标签）
const (
	JobStatusSuccess = "success"
	JobStatusFailed  = "failed"
	JobStatusSkipped = "skipped"
)

// 跳过原因（指标标签）
const (
	SkipReasonContractNotFound   = "contract_not_found"
	SkipReasonInvalidChargeRate  = "invalid_charge_rate"
	SkipReasonNegativeCommission = "negative_commission"
)

// 分页默认值
const (
	DefaultPageSize = 20
	MaxPageSize     = 500
	// DefaultBatchSize 批量读写默认批大小
	DefaultBatchSize = 500
)
