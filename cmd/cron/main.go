package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"settlement-service/internal/conf"

	"github.com/gaoyong06/go-pkg/logger"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	_ "go.uber.org/automaxprocs"
)

const shutdownTimeout = 30 * time.Second

var (
	flagconf string
	flagonce string
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
	flag.StringVar(&flagonce, "once", "", "run one pipeline and exit: a (detail-daily) or b (weekly-monthly)")
}

func newLogger(c *conf.Log) log.Logger {
	logConfig := &logger.Config{
		Level:         "info",
		Format:        "json",
		Output:        "stdout",
		FilePath:      "logs/settlement-cron.log",
		MaxSize:       100,
		MaxAge:        30,
		MaxBackups:    10,
		Compress:      true,
		EnableConsole: true,
	}
	if c != nil {
		if c.Level != "" {
			logConfig.Level = c.Level
		}
		if c.Format != "" {
			logConfig.Format = c.Format
		}
		if c.Output != "" {
			logConfig.Output = c.Output
		}
		if c.FilePath != "" {
			logConfig.FilePath = c.FilePath
		}
	}

	return log.With(logger.NewLogger(logConfig),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "settlement-cron",
	)
}

func main() {
	flag.Parse()

	// 初始化配置
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}

	loggerInstance := newLogger(bc.Log)
	logHelper := log.NewHelper(loggerInstance)

	// 初始化应用
	app, cleanup, err := wireApp(&bc, loggerInstance)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// 手动补跑：执行一次后退出
	if flagonce != "" {
		ctx, cancel := context.WithTimeout(context.Background(), app.conf.RunLockTimeout)
		results, err := app.scheduler.RunOnce(ctx, flagonce)
		cancel()
		for _, r := range results {
			logHelper.Infof("step %s: status=%s, rows=%d", r.Step, r.Status, r.Rows)
		}
		if err != nil {
			logHelper.Errorf("pipeline %s failed: %v", flagonce, err)
			cleanup()
			os.Exit(1)
		}
		return
	}

	if bc.Settlement != nil && bc.Settlement.MetricsAddr != "" {
		go func() {
			if err := app.metricsServer.Start(context.Background()); err != nil {
				logHelper.Errorf("metrics server stopped: %v", err)
			}
		}()
	}

	// 启动定时任务
	if err := app.scheduler.Start(context.Background()); err != nil {
		panic(err)
	}
	logHelper.Info("========================================")
	logHelper.Info("Settlement cron started successfully")
	logHelper.Info("========================================")

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logHelper.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = app.scheduler.Stop(ctx)
	if bc.Settlement != nil && bc.Settlement.MetricsAddr != "" {
		_ = app.metricsServer.Stop(ctx)
	}
}
