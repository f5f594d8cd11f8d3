package model

import "time"

// SettlementJobRun 流水线步骤执行记录
type SettlementJobRun struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	RunID      string    `gorm:"index;type:varchar(36);not null"`
	Pipeline   string    `gorm:"index:idx_job_run_pipeline,priority:1;type:varchar(64);not null"`
	Step       string    `gorm:"type:varchar(64);not null"`
	Status     string    `gorm:"type:varchar(16);not null"`
	RowCount   int       `gorm:"not null;default:0"`
	Error      string    `gorm:"type:text"`
	StartedAt  time.Time `gorm:"index:idx_job_run_pipeline,priority:2;not null"`
	FinishedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (SettlementJobRun) TableName() string {
	return "settlement_job_run"
}

// SettlementJobLock 流水线运行锁（未配置 Redis 时使用的租约行）
type SettlementJobLock struct {
	LockName  string    `gorm:"primaryKey;type:varchar(64)"`
	Holder    string    `gorm:"type:varchar(64);not null;default:''"`
	ExpiresAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (SettlementJobLock) TableName() string {
	return "settlement_job_lock"
}
