package main

import (
	"settlement-service/internal/biz"
	"settlement-service/internal/task"

	"github.com/go-kratos/kratos/v2/transport/http"
)

// CronApp Cron 应用结构
type CronApp struct {
	scheduler     *task.Scheduler
	metricsServer *http.Server
	conf          *biz.SettlementConfig
}
