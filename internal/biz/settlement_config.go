package biz

import (
	"fmt"
	"time"

	"settlement-service/internal/conf"
	"settlement-service/internal/constants"

	"github.com/shopspring/decimal"
)

// SettlementConfig 结算配置
type SettlementConfig struct {
	Location       *time.Location    // 结算时区（日/周/月划分均以此为准）
	Rounding       RoundingMode      // 手续费舍入方式
	AllowedRates   []decimal.Decimal // 允许的手续费率，为空表示不限制
	BatchSize      int               // 批量读写大小
	StepTimeout    time.Duration     // 单步骤超时
	RunLockTimeout time.Duration     // 运行锁过期时间
	ExportTimeout  time.Duration     // 明细导出超时
	TargetDate     *time.Time        // 周/月汇总的目标日期，为空时取结算时区的“昨天”

	// Now 当前时间，测试中可替换
	Now func() time.Time
}

// NewSettlementConfig 从配置创建 SettlementConfig
func NewSettlementConfig(c *conf.Bootstrap) (*SettlementConfig, error) {
	config := &SettlementConfig{
		Location:       time.UTC,
		Rounding:       RoundingHalfUp,
		BatchSize:      constants.DefaultBatchSize,
		StepTimeout:    30 * time.Minute,
		RunLockTimeout: time.Hour,
		ExportTimeout:  10 * time.Minute,
		Now:            time.Now,
	}
	if c == nil || c.Settlement == nil {
		return config, nil
	}
	s := c.Settlement

	if s.Timezone != "" {
		loc, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load settlement timezone %q: %w", s.Timezone, err)
		}
		config.Location = loc
	}

	mode, err := ParseRoundingMode(s.RoundingMode)
	if err != nil {
		return nil, err
	}
	config.Rounding = mode

	for _, r := range s.AllowedChargeRates {
		rate, err := decimal.NewFromString(r)
		if err != nil {
			return nil, fmt.Errorf("parse allowed charge rate %q: %w", r, err)
		}
		config.AllowedRates = append(config.AllowedRates, rate)
	}

	if s.BatchSize > 0 {
		config.BatchSize = s.BatchSize
	}
	config.StepTimeout = conf.ParseDuration(s.StepTimeout, config.StepTimeout)
	config.RunLockTimeout = conf.ParseDuration(s.RunLockTimeout, config.RunLockTimeout)
	config.ExportTimeout = conf.ParseDuration(s.ExportTimeout, config.ExportTimeout)

	if s.TargetDate != "" {
		t, err := time.ParseInLocation(constants.TimeFormatDate, s.TargetDate, config.Location)
		if err != nil {
			return nil, fmt.Errorf("parse target_date %q: %w", s.TargetDate, err)
		}
		config.TargetDate = &t
	}
	return config, nil
}

// IsAllowedRate 费率是否在允许列表中
func (c *SettlementConfig) IsAllowedRate(rate decimal.Decimal) bool {
	if len(c.AllowedRates) == 0 {
		return true
	}
	for _, r := range c.AllowedRates {
		if r.Equal(rate) {
			return true
		}
	}
	return false
}

// LocalNow 结算时区下的当前时间
func (c *SettlementConfig) LocalNow() time.Time {
	return c.Now().In(c.Location)
}

// TargetDay 周/月汇总的目标日期
func (c *SettlementConfig) TargetDay() time.Time {
	if c.TargetDate != nil {
		return *c.TargetDate
	}
	now := c.LocalNow()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.Location).AddDate(0, 0, -1)
}

// RecomputeFrom 流水线 B 的重算起点：目标日期上个月的 1 日
//
// 每次运行都重算上月与本月已到达的全部周和月，
// 某次运行失败或被跳过后，下一次运行会补齐遗漏的周/月汇总。
func (c *SettlementConfig) RecomputeFrom(target time.Time) time.Time {
	return MonthStart(target).AddDate(0, -1, 0)
}
