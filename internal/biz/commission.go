package biz

import (
	"fmt"
	"strings"

	"settlement-service/internal/constants"
	settlementErrors "settlement-service/internal/errors"

	"github.com/shopspring/decimal"
)

// RoundingMode 手续费舍入方式（舍入到币种最小单位）
type RoundingMode string

const (
	RoundingHalfUp   RoundingMode = "half_up"
	RoundingHalfEven RoundingMode = "half_even"
	RoundingDown     RoundingMode = "down"
	RoundingUp       RoundingMode = "up"
)

// ParseRoundingMode 解析配置中的舍入方式，为空时默认 half_up
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch m := RoundingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return RoundingHalfUp, nil
	case RoundingHalfUp, RoundingHalfEven, RoundingDown, RoundingUp:
		return m, nil
	default:
		return "", fmt.Errorf("unknown rounding mode %q", s)
	}
}

// Round 将金额舍入到整数（最小单位）
func (m RoundingMode) Round(d decimal.Decimal) decimal.Decimal {
	switch m {
	case RoundingHalfEven:
		return d.RoundBank(0)
	case RoundingDown:
		return d.RoundDown(0)
	case RoundingUp:
		return d.RoundUp(0)
	default:
		return d.Round(0)
	}
}

// Amounts 结算金额（最小货币单位）
type Amounts struct {
	SalesAmount  int64
	RefundAmount int64
	GrossAmount  int64
	Commission   int64
	NetAmount    int64
}

// Add 累加金额
func (a *Amounts) Add(b Amounts) {
	a.SalesAmount += b.SalesAmount
	a.RefundAmount += b.RefundAmount
	a.GrossAmount += b.GrossAmount
	a.Commission += b.Commission
	a.NetAmount += b.NetAmount
}

// ComputeAmounts 根据预约价格、财务状态与合同费率计算结算金额
//
//	gross      = sales - refund
//	commission = round(gross * rate)
//	net        = gross - commission
func ComputeAmounts(price int64, financialStatus string, rate decimal.NullDecimal, mode RoundingMode) (Amounts, error) {
	if !rate.Valid || rate.Decimal.IsNegative() {
		return Amounts{}, settlementErrors.ErrInvalidChargeRate
	}

	a := Amounts{SalesAmount: price}
	if financialStatus == constants.FinancialStatusCancelled {
		a.RefundAmount = price
	}
	a.GrossAmount = a.SalesAmount - a.RefundAmount

	commission := mode.Round(decimal.NewFromInt(a.GrossAmount).Mul(rate.Decimal))
	if commission.IsNegative() {
		return Amounts{}, settlementErrors.ErrNegativeCommission
	}
	a.Commission = commission.IntPart()
	a.NetAmount = a.GrossAmount - a.Commission
	return a, nil
}
