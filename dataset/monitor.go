package dataset

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Monitor 记录一次数据集生成的指标，使用独立 Registry，批处理结束后可写入 textfile。
//
//	giftkit_profiles_total{outcome="emitted|discarded"}
//	giftkit_rows_total{label="positive|negative"}
//	giftkit_catalog_rows_skipped_total
//	giftkit_profile_candidates
type Monitor struct {
	registry *prometheus.Registry

	Profiles       *prometheus.CounterVec
	Rows           *prometheus.CounterVec
	CatalogSkipped prometheus.Counter
	Candidates     prometheus.Histogram
}

// NewMonitor 创建监控
func NewMonitor() *Monitor {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Monitor{
		registry: reg,
		Profiles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "giftkit_profiles_total",
			Help: "Profiles processed, by outcome",
		}, []string{"outcome"}),
		Rows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "giftkit_rows_total",
			Help: "Dataset rows written, by label",
		}, []string{"label"}),
		CatalogSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "giftkit_catalog_rows_skipped_total",
			Help: "Catalog rows skipped while loading",
		}),
		Candidates: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "giftkit_profile_candidates",
			Help:    "Budget-eligible candidates per profile",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
}

// Registry 返回底层 Registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveProfile 记录单个 profile 的处理结果
func (m *Monitor) ObserveProfile(res *ProfileResult) {
	if m == nil || res == nil {
		return
	}
	m.Candidates.Observe(float64(res.Candidates))
	if res.Discarded {
		m.Profiles.WithLabelValues("discarded").Inc()
		return
	}
	m.Profiles.WithLabelValues("emitted").Inc()
}

// ObserveRow 记录写出的一行
func (m *Monitor) ObserveRow(label int) {
	if m == nil {
		return
	}
	if label == 1 {
		m.Rows.WithLabelValues("positive").Inc()
		return
	}
	m.Rows.WithLabelValues("negative").Inc()
}

// ObserveCatalogSkipped 记录目录加载时跳过的行数
func (m *Monitor) ObserveCatalogSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CatalogSkipped.Add(float64(n))
}

// WriteToTextfile 以 node_exporter textfile 格式写出所有指标。
func (m *Monitor) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
