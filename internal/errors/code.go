package errors

import (
	stderrors "errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// Settlement Service 错误定义
// 错误码格式：SSMMEE (6位数字)
//   SS: 服务标识，Settlement 固定为 21
//   MM: 模块标识
//   EE: 模块内错误序号
//
// 模块划分：
//   01: 数据错误（单行跳过，不影响批次）
//   02: 一致性错误（可重试）
//   03: 基础设施错误（可重试）
//   04: 调度错误

// 数据错误 (210100-210199)
const (
	// ErrCodeContractNotFound 主办方没有可用合同
	ErrCodeContractNotFound = 210101
	// ErrCodeInvalidChargeRate 手续费率为空、为负或不在允许列表中
	ErrCodeInvalidChargeRate = 210102
	// ErrCodeNegativeCommission 计算出的手续费为负
	ErrCodeNegativeCommission = 210103
	// ErrCodeStatusNotFound 结算状态编码不存在
	ErrCodeStatusNotFound = 210104
)

// 一致性错误 (210200-210299)
const (
	// ErrCodeUpsertConflict upsert 违反唯一约束（多实例竞争）
	ErrCodeUpsertConflict = 210201
)

// 基础设施错误 (210300-210399)
const (
	// ErrCodeStorageUnavailable 存储不可用
	ErrCodeStorageUnavailable = 210301
)

// 调度错误 (210400-210499)
const (
	// ErrCodeRunLockBusy 运行锁被占用
	ErrCodeRunLockBusy = 210401
	// ErrCodeStepTimeout 步骤超时
	ErrCodeStepTimeout = 210402
)

const (
	ReasonContractNotFound   = "CONTRACT_NOT_FOUND"
	ReasonInvalidChargeRate  = "INVALID_CHARGE_RATE"
	ReasonNegativeCommission = "NEGATIVE_COMMISSION"
	ReasonStatusNotFound     = "STATUS_NOT_FOUND"
	ReasonUpsertConflict     = "UPSERT_CONFLICT"
	ReasonStorageUnavailable = "STORAGE_UNAVAILABLE"
	ReasonRunLockBusy        = "RUN_LOCK_BUSY"
	ReasonStepTimeout        = "STEP_TIMEOUT"
)

var (
	ErrContractNotFound   = kerrors.New(ErrCodeContractNotFound, ReasonContractNotFound, "host has no active contract")
	ErrInvalidChargeRate  = kerrors.New(ErrCodeInvalidChargeRate, ReasonInvalidChargeRate, "contract charge rate is invalid")
	ErrNegativeCommission = kerrors.New(ErrCodeNegativeCommission, ReasonNegativeCommission, "computed commission is negative")
	ErrStatusNotFound     = kerrors.New(ErrCodeStatusNotFound, ReasonStatusNotFound, "settlement status not found")
	ErrUpsertConflict     = kerrors.New(ErrCodeUpsertConflict, ReasonUpsertConflict, "settlement upsert conflict")
	ErrStorageUnavailable = kerrors.New(ErrCodeStorageUnavailable, ReasonStorageUnavailable, "settlement storage unavailable")
	ErrRunLockBusy        = kerrors.New(ErrCodeRunLockBusy, ReasonRunLockBusy, "pipeline run lock is held by another run")
	ErrStepTimeout        = kerrors.New(ErrCodeStepTimeout, ReasonStepTimeout, "pipeline step exceeded its timeout")
)

// IsDataError 单行数据错误：跳过该行并记录，不中断批次
func IsDataError(err error) bool {
	switch kerrors.Reason(err) {
	case ReasonContractNotFound, ReasonInvalidChargeRate, ReasonNegativeCommission:
		return true
	}
	return false
}

// IsRetryable 一致性/基础设施/调度错误可在下一次调度时重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch kerrors.Reason(err) {
	case ReasonUpsertConflict, ReasonStorageUnavailable, ReasonRunLockBusy, ReasonStepTimeout:
		return true
	}
	return false
}

// Wrap 以 e 的错误码和原因包装底层错误
func Wrap(e *kerrors.Error, cause error) error {
	if cause == nil {
		return nil
	}
	var ke *kerrors.Error
	if stderrors.As(cause, &ke) && ke.Reason != "" {
		return cause
	}
	return e.WithCause(cause)
}
