package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 分类器调用延迟（毫秒）
	ClassifierCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_call_latency_ms",
			Help:    "Classifier gateway call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"model", "status"},
	)

	// 分类结果计数
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifications_total",
			Help: "Total number of classification records written",
		},
		[]string{"decided_by"},
	)

	// 批量分类大小
	BatchClassifiedCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_classified_count",
			Help:    "Number of messages classified per batch run",
			Buckets: prometheus.LinearBuckets(0, 2, 11), // 0 to 20
		},
	)

	// 批量分类耗时（秒）
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_classify_duration_seconds",
			Help:    "Batch classification run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// 永久删除释放的存储字节数
	StorageBytesReclaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storage_bytes_reclaimed_total",
			Help: "Total mailbox storage bytes reclaimed by permanent deletes",
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordClassifierCall 记录分类器调用延迟
func RecordClassifierCall(model, status string, duration time.Duration) {
	ClassifierCallLatency.WithLabelValues(model, status).Observe(float64(duration.Milliseconds()))
}

// IncrementClassification 增加分类计数
func IncrementClassification(decidedBy string) {
	ClassificationsTotal.WithLabelValues(decidedBy).Inc()
}

// RecordBatch 记录一次批量分类
func RecordBatch(classified int, duration time.Duration) {
	BatchClassifiedCount.Observe(float64(classified))
	BatchDuration.Observe(duration.Seconds())
}

// AddStorageReclaimed 记录释放的存储
func AddStorageReclaimed(bytes int64) {
	if bytes > 0 {
		StorageBytesReclaimed.Add(float64(bytes))
	}
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
