package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "zaehlerwerk_"

	resultSuccess = "success"
	resultError   = "error"

	tableRaw         = "raw"
	tableYearly      = "yearly"
	tableMonthly     = "monthly"
	tableConsumption = "consumption"
)

var (
	registerOnce sync.Once

	folderRuns       *prometheus.CounterVec
	folderRunLatency *prometheus.HistogramVec

	rowsExported  *prometheus.CounterVec
	parseFailures *prometheus.CounterVec
	resetsTotal   prometheus.Counter

	workbookBytes *prometheus.GaugeVec

	imagesPlaced prometheus.Counter
	imagesPruned prometheus.Counter
)

// Init registers export metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		folderRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "folder_runs_total",
				Help: "Total per-folder export runs by result",
			},
			[]string{"result"},
		)
		folderRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "folder_run_latency_seconds",
				Help:    "Per-folder export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		rowsExported = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rows_exported_total",
				Help: "Total exported rows by table",
			},
			[]string{"table"},
		)
		parseFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "parse_failures_total",
				Help: "Total readings with unparseable fields by reason",
			},
			[]string{"reason"},
		)
		resetsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "resets_detected_total",
				Help: "Total meter resets detected by the delta engine",
			},
		)

		workbookBytes = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "workbook_bytes",
				Help: "Size of the last written workbook per folder",
			},
			[]string{"folder"},
		)

		imagesPlaced = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "images_placed_total",
				Help: "Total reading photos placed into the visible tree",
			},
		)
		imagesPruned = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "images_pruned_total",
				Help: "Total stale photos removed from the visible tree",
			},
		)

		prometheus.MustRegister(
			folderRuns,
			folderRunLatency,
			rowsExported,
			parseFailures,
			resetsTotal,
			workbookBytes,
			imagesPlaced,
			imagesPruned,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveFolderRun records one per-folder export by result.
func ObserveFolderRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if folderRuns != nil {
		folderRuns.WithLabelValues(result).Inc()
	}
	if folderRunLatency != nil {
		folderRunLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddRowsExported increments the row counter for a table.
func AddRowsExported(table string, count int) {
	if count <= 0 {
		return
	}
	if table == "" {
		table = "unknown"
	}
	if rowsExported != nil {
		rowsExported.WithLabelValues(table).Add(float64(count))
	}
}

// IncParseFailure increments the parse failure counter.
func IncParseFailure(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if parseFailures != nil {
		parseFailures.WithLabelValues(reason).Inc()
	}
}

// AddResetsDetected increments the reset counter by count.
func AddResetsDetected(count int) {
	if count <= 0 {
		return
	}
	if resetsTotal != nil {
		resetsTotal.Add(float64(count))
	}
}

// SetWorkbookBytes records the size of a folder's last workbook.
func SetWorkbookBytes(folder string, size int) {
	if folder == "" || size < 0 {
		return
	}
	if workbookBytes != nil {
		workbookBytes.WithLabelValues(folder).Set(float64(size))
	}
}

// AddImagesPlaced increments the placed photo counter by count.
func AddImagesPlaced(count int) {
	if count <= 0 {
		return
	}
	if imagesPlaced != nil {
		imagesPlaced.Add(float64(count))
	}
}

// AddImagesPruned increments the pruned photo counter by count.
func AddImagesPruned(count int) {
	if count <= 0 {
		return
	}
	if imagesPruned != nil {
		imagesPruned.Add(float64(count))
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	TableRaw         = tableRaw
	TableYearly      = tableYearly
	TableMonthly     = tableMonthly
	TableConsumption = tableConsumption
)
