package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "airbnb_cleaner"

// 清洗运行指标
var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of cleaning runs",
		},
		[]string{"trigger", "status"}, // trigger: once/cron/watch
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Cleaning run duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Cleaning step duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"step"},
	)

	Rows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows",
			Help:      "Rows of the last cleaned table",
		},
		[]string{"table", "stage"}, // stage: in/out
	)

	Columns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "columns",
			Help:      "Columns of the last cleaned table",
		},
		[]string{"table", "stage"},
	)

	CellsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_total",
			Help:      "Cells coerced to missing or imputed",
		},
		[]string{"table", "action"}, // action: coerced/imputed/unmapped
	)

	RowsFilteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_filtered_total",
			Help:      "Rows removed by the outlier filter",
		},
		[]string{"table"},
	)

	LastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		},
	)
)

var registerOnce sync.Once

// Register 注册清洗指标和 HTTP 指标，可重复调用
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RunsTotal,
			RunDuration,
			StepDuration,
			Rows,
			Columns,
			CellsTotal,
			RowsFilteredTotal,
			LastSuccess,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}
