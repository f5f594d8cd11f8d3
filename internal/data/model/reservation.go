package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reservation 预约表（外部预约系统所有，只读）
type Reservation struct {
	ID               int64     `gorm:"primaryKey;autoIncrement"`
	Code             string    `gorm:"uniqueIndex;type:varchar(64);not null"`
	Price            int64     `gorm:"not null"`
	HostID           int64     `gorm:"index;not null"`
	PerformanceTitle string    `gorm:"type:varchar(255);not null"`
	PerformanceEndAt time.Time `gorm:"not null"`
	FinancialStatus  string    `gorm:"index;type:varchar(32);not null"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (Reservation) TableName() string {
	return "reservation"
}

// HostContract 主办方合同表（外部合同系统所有，只读）
type HostContract struct {
	ID            int64               `gorm:"primaryKey;autoIncrement"`
	HostID        int64               `gorm:"index;not null"`
	HostBizName   string              `gorm:"type:varchar(128);not null"`
	ChargeRate    decimal.NullDecimal `gorm:"type:decimal(6,4)"`
	Active        bool                `gorm:"not null;default:true"`
	EffectiveFrom time.Time           `gorm:"not null"`
}

// TableName 指定表名
func (HostContract) TableName() string {
	return "host_contract"
}
