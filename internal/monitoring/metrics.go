package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "infrasalama"

// Metrics 监控指标
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec

	// 表单指标
	SubmissionsTotal   *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	UploadRejections   *prometheus.CounterVec
	ResumeSize         prometheus.Histogram

	// 投递指标
	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec

	// 错误指标
	PanicsTotal prometheus.Counter

	SystemUptime prometheus.GaugeFunc
}

// NewMetrics 在独立的注册表上创建监控指标，同时注册 Go 运行时与进程指标
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := newMetrics(reg)
	m.registry = reg
	return m
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	started := time.Now()

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_size_bytes",
				Help:      "HTTP request size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "endpoint"},
		),

		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "form_submissions_total",
				Help:      "Form submissions by form and outcome",
			},
			[]string{"form", "outcome"},
		),

		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "form_validation_errors_total",
				Help:      "Validation errors by form and error code",
			},
			[]string{"form", "code"},
		),

		UploadRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_rejections_total",
				Help:      "Rejected uploads by reason",
			},
			[]string{"reason"},
		),

		ResumeSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resume_size_bytes",
				Help:      "Size of accepted resumes in bytes",
				Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 10),
			},
		),

		DispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mail_dispatch_total",
				Help:      "Mail dispatch attempts by endpoint, driver and status",
			},
			[]string{"endpoint", "driver", "status"},
		),

		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mail_dispatch_duration_seconds",
				Help:      "Mail dispatch duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint", "driver"},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panics_total",
				Help:      "Total number of recovered panics",
			},
		),

		SystemUptime: factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "uptime_seconds",
				Help:      "Process uptime in seconds",
			},
			func() float64 { return time.Since(started).Seconds() },
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, requestSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
}

// RecordSubmission 记录一次表单提交的结果
func (m *Metrics) RecordSubmission(form, outcome string) {
	m.SubmissionsTotal.WithLabelValues(form, outcome).Inc()
}

// RecordValidationError 记录校验错误
func (m *Metrics) RecordValidationError(form, code string) {
	m.ValidationFailures.WithLabelValues(form, code).Inc()
}

// RecordUploadRejection 记录上传被拒
func (m *Metrics) RecordUploadRejection(reason string) {
	m.UploadRejections.WithLabelValues(reason).Inc()
}

// RecordResumeSize 记录已接受简历的大小
func (m *Metrics) RecordResumeSize(size int64) {
	m.ResumeSize.Observe(float64(size))
}

// ObserveDispatch 记录投递结果，实现 mailer.Recorder
func (m *Metrics) ObserveDispatch(endpoint, driver, status string, duration time.Duration) {
	m.DispatchTotal.WithLabelValues(endpoint, driver, status).Inc()
	m.DispatchDuration.WithLabelValues(endpoint, driver).Observe(duration.Seconds())
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// Registry 指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
