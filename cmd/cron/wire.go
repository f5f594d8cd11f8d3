//go:build wireinject
// +build wireinject

package main

import (
	"settlement-service/internal/biz"
	"settlement-service/internal/conf"
	"settlement-service/internal/data"
	"settlement-service/internal/server"
	"settlement-service/internal/task"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp 初始化应用
func wireApp(*conf.Bootstrap, log.Logger) (*CronApp, func(), error) {
	panic(wire.Build(
		data.ProviderSet,
		biz.ProviderSet,
		task.ProviderSet,
		server.NewMetricsServer,

		// App 结构
		wire.Struct(new(CronApp), "*"),
	))
}
