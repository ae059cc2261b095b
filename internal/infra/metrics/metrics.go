// Package metrics collects per-run counters. A harvester run is a short-lived CLI process, so
// the registry is exported to a node_exporter textfile instead of being scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics methods are safe to call on a nil receiver.
type Metrics struct {
	reg *prometheus.Registry

	framesExtracted prometheus.Counter
	frameFailures   prometheus.Counter
	ocrImages       *prometheus.CounterVec
	questions       prometheus.Gauge
	stageDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		framesExtracted: f.NewCounter(prometheus.CounterOpts{
			Name: "harvester_frames_extracted_total",
			Help: "Frames decoded and written to disk",
		}),
		frameFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "harvester_frame_failures_total",
			Help: "Sample timestamps whose frame could not be decoded or written",
		}),
		ocrImages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_ocr_images_total",
			Help: "Images passed through OCR, by status",
		}, []string{"status"}),
		questions: f.NewGauge(prometheus.GaugeOpts{
			Name: "harvester_questions_merged",
			Help: "Questions in the last merged file",
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvester_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		}, []string{"stage"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) FrameExtracted() {
	if m == nil {
		return
	}
	m.framesExtracted.Inc()
}

func (m *Metrics) FrameFailed() {
	if m == nil {
		return
	}
	m.frameFailures.Inc()
}

func (m *Metrics) OCRImage(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.ocrImages.WithLabelValues(status).Inc()
}

func (m *Metrics) QuestionsMerged(n int) {
	if m == nil {
		return
	}
	m.questions.Set(float64(n))
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// WriteTextfile writes the registry in the text exposition format (atomically, via rename).
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
