// Package metrics Prometheus 指标封装。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SnapshotBuildsTotal 快照构建次数，按结果分类
	SnapshotBuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_snapshot_builds_total",
		Help: "Total number of market snapshot build attempts by outcome",
	}, []string{"outcome"})

	// SnapshotBuildDuration 快照构建耗时分布
	SnapshotBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricing_snapshot_build_duration_seconds",
		Help:    "Duration of a full snapshot build cycle",
		Buckets: prometheus.DefBuckets,
	})

	// IVSolveFailuresTotal 隐波反解失败次数
	IVSolveFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricing_iv_solve_failures_total",
		Help: "Total number of implied volatility solve failures",
	})

	// FeedTicksTotal 行情流消息计数，按状态分类
	FeedTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_feed_ticks_total",
		Help: "Total number of feed messages by status",
	}, []string{"status"})

	// ScenarioGridDuration 情景网格估值耗时分布
	ScenarioGridDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricing_scenario_grid_duration_seconds",
		Help:    "Duration of a scenario grid valuation",
		Buckets: prometheus.DefBuckets,
	})

	// HTTPRequestsTotal HTTP 请求计数
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

// Handler 返回 /metrics 的 HTTP 处理器。
func Handler() http.Handler {
	return promhttp.Handler()
}
