package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus 结算状态字典表
type SettlementStatus struct {
	StatusID int64  `gorm:"primaryKey;autoIncrement:false"`
	Code     string `gorm:"uniqueIndex;type:varchar(32);not null"`
	Name     string `gorm:"type:varchar(64);not null"`
}

// TableName 指定表名
func (SettlementStatus) TableName() string {
	return "settlement_status"
}

// SettlementDetail 结算明细表（只追加）
type SettlementDetail struct {
	ID                 string          `gorm:"primaryKey;type:varchar(36)"`
	HostID             int64           `gorm:"index;not null"`
	HostBizName        string          `gorm:"index;type:varchar(128);not null"`
	PerformanceTitle   string          `gorm:"type:varchar(255);not null"`
	PerformanceEndAt   time.Time       `gorm:"not null"`
	ReservationCode    string          `gorm:"uniqueIndex;type:varchar(64);not null"`
	SalesAmount        int64           `gorm:"not null;default:0"`
	RefundAmount       int64           `gorm:"not null;default:0"`
	GrossAmount        int64           `gorm:"not null;default:0"`
	ContractChargeRate decimal.Decimal `gorm:"type:decimal(6,4);not null"`
	Commission         int64           `gorm:"not null;default:0"`
	NetAmount          int64           `gorm:"not null;default:0"`
	StatusID           int64           `gorm:"index;not null"`
	CreatedAt          time.Time       `gorm:"index;autoCreateTime"`
}

// TableName 指定表名
func (SettlementDetail) TableName() string {
	return "settlement_detail"
}

// SettlementDaily 日汇总表
type SettlementDaily struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)"`
	HostBizName       string    `gorm:"uniqueIndex:uk_settlement_daily,priority:1;type:varchar(128);not null"`
	PerformanceTitle  string    `gorm:"uniqueIndex:uk_settlement_daily,priority:2;type:varchar(255);not null"`
	Year              int       `gorm:"uniqueIndex:uk_settlement_daily,priority:3;not null"`
	Month             int       `gorm:"uniqueIndex:uk_settlement_daily,priority:4;not null"`
	Day               int       `gorm:"uniqueIndex:uk_settlement_daily,priority:5;not null"`
	Week              int       `gorm:"not null"`
	DailySalesAmount  int64     `gorm:"not null;default:0"`
	DailyRefundAmount int64     `gorm:"not null;default:0"`
	DailyGrossAmount  int64     `gorm:"not null;default:0"`
	DailyCommission   int64     `gorm:"not null;default:0"`
	DailyNetAmount    int64     `gorm:"not null;default:0"`
	StatusID          int64     `gorm:"not null"`
	DailyCreatedAt    time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName 指定表名
func (SettlementDaily) TableName() string {
	return "settlement_daily"
}

// SettlementWeekly 周汇总表
type SettlementWeekly struct {
	ID                 string    `gorm:"primaryKey;type:varchar(36)"`
	HostBizName        string    `gorm:"uniqueIndex:uk_settlement_weekly,priority:1;type:varchar(128);not null"`
	PerformanceTitle   string    `gorm:"uniqueIndex:uk_settlement_weekly,priority:2;type:varchar(255);not null"`
	Year               int       `gorm:"uniqueIndex:uk_settlement_weekly,priority:3;not null"`
	Month              int       `gorm:"uniqueIndex:uk_settlement_weekly,priority:4;not null"`
	Week               int       `gorm:"uniqueIndex:uk_settlement_weekly,priority:5;not null"`
	WeeklySalesAmount  int64     `gorm:"not null;default:0"`
	WeeklyRefundAmount int64     `gorm:"not null;default:0"`
	WeeklyGrossAmount  int64     `gorm:"not null;default:0"`
	WeeklyCommission   int64     `gorm:"not null;default:0"`
	WeeklyNetAmount    int64     `gorm:"not null;default:0"`
	StatusID           int64     `gorm:"not null"`
	WeeklyCreatedAt    time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName 指定表名
func (SettlementWeekly) TableName() string {
	return "settlement_weekly"
}

// SettlementMonthly 月汇总表
type SettlementMonthly struct {
	ID                  string    `gorm:"primaryKey;type:varchar(36)"`
	HostBizName         string    `gorm:"uniqueIndex:uk_settlement_monthly,priority:1;type:varchar(128);not null"`
	PerformanceTitle    string    `gorm:"uniqueIndex:uk_settlement_monthly,priority:2;type:varchar(255);not null"`
	Year                int       `gorm:"uniqueIndex:uk_settlement_monthly,priority:3;not null"`
	Month               int       `gorm:"uniqueIndex:uk_settlement_monthly,priority:4;not null"`
	MonthlySalesAmount  int64     `gorm:"not null;default:0"`
	MonthlyRefundAmount int64     `gorm:"not null;default:0"`
	MonthlyGrossAmount  int64     `gorm:"not null;default:0"`
	MonthlyCommission   int64     `gorm:"not null;default:0"`
	MonthlyNetAmount    int64     `gorm:"not null;default:0"`
	StatusID            int64     `gorm:"not null"`
	MonthlyCreatedAt    time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}

// TableName 指定表名
func (SettlementMonthly) TableName() string {
	return "settlement_monthly"
}
