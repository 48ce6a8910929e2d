package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "appointment"
	subsystem = "intake"
)

// Fully qualified names read back by Snapshot.
const (
	requestsMetricName   = namespace + "_" + subsystem + "_requests_total"
	ocrLatencyMetricName = namespace + "_" + subsystem + "_ocr_latency_seconds"
)

// IntakeMetrics exposes counters/histograms for the intake flow.
type IntakeMetrics struct {
	requestsTotal   *prometheus.CounterVec
	reasonsTotal    *prometheus.CounterVec
	ocrLatency      *prometheus.HistogramVec
	ocrConfidence   *prometheus.HistogramVec
	pipelineLatency prometheus.Histogram
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total processed appointment requests",
		}, []string{"source", "status"}),
		reasonsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "clarification_reasons_total",
			Help:      "Reasons reported with clarification requests",
		}, []string{"reason"}),
		ocrLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ocr_latency_seconds",
			Help:      "Latency of OCR engine calls",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"engine", "status"}),
		ocrConfidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ocr_confidence",
			Help:      "Confidence reported by OCR engines",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"engine"}),
		pipelineLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pipeline_latency_seconds",
			Help:      "Latency of extraction, normalization and guardrails",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.reasonsTotal, m.ocrLatency, m.ocrConfidence, m.pipelineLatency)
	return m
}

func (m *IntakeMetrics) ObserveRequest(source, status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(source, status).Inc()
}

func (m *IntakeMetrics) ObserveReasons(reasons []string) {
	if m == nil {
		return
	}
	for _, r := range reasons {
		m.reasonsTotal.WithLabelValues(r).Inc()
	}
}

func (m *IntakeMetrics) ObserveOCR(engine string, elapsed time.Duration, confidence float64, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ocrLatency.WithLabelValues(engine, status).Observe(elapsed.Seconds())
	if err == nil {
		m.ocrConfidence.WithLabelValues(engine).Observe(confidence)
	}
}

func (m *IntakeMetrics) ObservePipeline(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pipelineLatency.Observe(elapsed.Seconds())
}
