package server

import (
	"context"
	nethttp "net/http"

	"settlement-service/internal/conf"
	"settlement-service/internal/service"

	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPServer 创建 HTTP 服务器（结算查询、导出与 /metrics）
//
// server.http.timeout 作用于全部请求；明细导出在 handler 内脱离该超时，使用 settlement.export_timeout。
func NewHTTPServer(c *conf.Bootstrap, settlement *service.SettlementService) *http.Server {
	var opts []http.ServerOption
	if c.Server != nil && c.Server.Http != nil {
		if c.Server.Http.Network != "" {
			opts = append(opts, http.Network(c.Server.Http.Network))
		}
		if c.Server.Http.Addr != "" {
			opts = append(opts, http.Address(c.Server.Http.Addr))
		}
		if c.Server.Http.Timeout != "" {
			opts = append(opts, http.Timeout(conf.ParseDuration(c.Server.Http.Timeout, 0)))
		}
	}
	srv := http.NewServer(opts...)
	srv.Handle("/metrics", promhttp.Handler())
	srv.HandlePrefix("/", recoverHandler(settlement.NewRouter()))
	return srv
}

// recoverHandler http.Middleware 只作用于 srv.Route 注册的路由，
// 挂载的 mux 路由在外层套用 recovery 中间件，panic 时返回 500
func recoverHandler(next nethttp.Handler) nethttp.Handler {
	mw := recovery.Recovery()
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		h := mw(func(ctx context.Context, req any) (any, error) {
			next.ServeHTTP(w, r)
			return nil, nil
		})
		if _, err := h(r.Context(), r); err != nil {
			http.DefaultErrorEncoder(w, r, err)
		}
	})
}

// NewMetricsServer 调度进程只暴露 /metrics
func NewMetricsServer(c *conf.Bootstrap) *http.Server {
	var opts []http.ServerOption
	if c.Settlement != nil && c.Settlement.MetricsAddr != "" {
		opts = append(opts, http.Address(c.Settlement.MetricsAddr))
	}
	srv := http.NewServer(opts...)
	srv.Handle("/metrics", promhttp.Handler())
	return srv
}
