package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"fcc-bootstrap/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	stepCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fcc_bootstrap_step_total",
			Help: "Bootstrap steps by outcome",
		},
		[]string{"step", "outcome"},
	)

	stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fcc_bootstrap_step_duration_seconds",
			Help:    "Duration of bootstrap steps",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"step"},
	)

	warningCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fcc_bootstrap_warnings_total",
			Help: "Non-fatal warnings by kind",
		},
		[]string{"kind"},
	)

	runMode = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fcc_bootstrap_run_mode",
			Help: "Mode of the latest run (1 for the active mode)",
		},
		[]string{"mode"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fcc_bootstrap_http_requests_total",
			Help: "Control API requests",
		},
		[]string{"path", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fcc_bootstrap_http_request_duration_seconds",
			Help:    "Control API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(stepCount)
	prometheus.MustRegister(stepDuration)
	prometheus.MustRegister(warningCount)
	prometheus.MustRegister(runMode)
	prometheus.MustRegister(httpRequests)
	prometheus.MustRegister(httpDuration)
}

const (
	OutcomeOK      = "ok"
	OutcomeWarning = "warning"
	OutcomeFatal   = "fatal"
	OutcomeSkipped = "skipped"
)

// ObserveStep 记录一个步骤的耗时与结果
func ObserveStep(step, outcome string, d time.Duration) {
	stepCount.WithLabelValues(step, outcome).Inc()
	if outcome != OutcomeSkipped {
		stepDuration.WithLabelValues(step).Observe(d.Seconds())
	}
}

func CountWarning(kind models.WarningKind) {
	warningCount.WithLabelValues(string(kind)).Inc()
}

func SetRunMode(mode models.Mode) {
	for _, m := range []models.Mode{models.ModeInstall, models.ModeRepair, models.ModeQuickLaunch} {
		v := 0.0
		if m == mode {
			v = 1
		}
		runMode.WithLabelValues(string(m)).Set(v)
	}
}

// ObserveRequest 记录一次控制接口请求
func ObserveRequest(path string, status int, d time.Duration) {
	httpRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(path).Observe(d.Seconds())
}

/**
 * Push bootstrap metrics to a Pushgateway
 * @param {string} addr - Pushgateway base URL
 * @param {string} job - Job label
 * @param {string} instance - Grouping label, usually the machine fingerprint prefix
 */
func PushMetrics(ctx context.Context, addr, job, instance string) error {
	if addr == "" {
		return nil
	}
	pusher := push.New(addr, job).
		Collector(stepCount).
		Collector(stepDuration).
		Collector(warningCount).
		Collector(runMode)
	if instance != "" {
		pusher = pusher.Grouping("instance", instance)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", addr, err)
	}
	return nil
}
