// Package metrics 负责收集并暴露 Prometheus 指标。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 指标的结果标签
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Collector 是评论系统的指标集合。
// 所有方法都允许在 nil 接收者上调用，未启用指标时调用方无需判空。
type Collector struct {
	jobsDispatched  *prometheus.CounterVec
	jobsFinished    *prometheus.CounterVec
	jobsPanicked    *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	aggregateWrites *prometheus.CounterVec
	emailsSent      *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewCollector 创建 Collector 并注册到指定的注册表
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		jobsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anheyu_comment_jobs_dispatched_total",
			Help: "投递到任务队列的后台任务数",
		}, []string{"job", "mode"}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anheyu_comment_jobs_finished_total",
			Help: "执行完成的后台任务数",
		}, []string{"job"}),
		jobsPanicked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anheyu_comment_jobs_panicked_total",
			Help: "执行过程中发生 panic 的后台任务数",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "anheyu_comment_job_duration_seconds",
			Help:    "后台任务执行耗时（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		aggregateWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anheyu_comment_aggregate_writes_total",
			Help: "文章评论数回写次数",
		}, []string{"result"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anheyu_comment_emails_total",
			Help: "通知邮件发送次数",
		}, []string{"kind", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anheyu_comment_http_requests_total",
			Help: "HTTP 请求总数",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "anheyu_comment_http_request_duration_seconds",
			Help:    "HTTP 请求耗时（秒）",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		c.jobsDispatched,
		c.jobsFinished,
		c.jobsPanicked,
		c.jobDuration,
		c.aggregateWrites,
		c.emailsSent,
		c.httpRequests,
		c.httpDuration,
	)

	return c
}

// RecordJobDispatched 记录一次任务投递，mode 为 queued 或 overflow
func (c *Collector) RecordJobDispatched(job, mode string) {
	if c == nil {
		return
	}
	c.jobsDispatched.WithLabelValues(job, mode).Inc()
}

// RecordJobFinished 记录任务完成及耗时
func (c *Collector) RecordJobFinished(job string, duration time.Duration) {
	if c == nil {
		return
	}
	c.jobsFinished.WithLabelValues(job).Inc()
	c.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordJobPanic 记录任务 panic
func (c *Collector) RecordJobPanic(job string) {
	if c == nil {
		return
	}
	c.jobsPanicked.WithLabelValues(job).Inc()
}

// RecordAggregateWrite 记录一次文章评论数回写
func (c *Collector) RecordAggregateWrite(err error) {
	if c == nil {
		return
	}
	c.aggregateWrites.WithLabelValues(resultOf(err)).Inc()
}

// RecordEmail 记录一次邮件发送，kind 为 owner 或 reply
func (c *Collector) RecordEmail(kind string, err error) {
	if c == nil {
		return
	}
	c.emailsSent.WithLabelValues(kind, resultOf(err)).Inc()
}

// RecordHTTPRequest 记录一次 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func resultOf(err error) string {
	if err != nil {
		return ResultFailed
	}
	return ResultOK
}

// Handler 返回供 Prometheus 抓取的 HTTP 处理器
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
