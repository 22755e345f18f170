// Created by Yanjunhui

package nestedset

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 树变更指标；nil 时所有方法为空操作
// EN: Metrics holds the prometheus collectors for tree mutations. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Mutations      *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	CorrectedNodes *prometheus.CounterVec
}

// NewMetrics 创建并（若 reg 非 nil）注册指标
// EN: NewMetrics builds the collectors and registers them on reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monotree",
			Name:      "mutations_total",
			Help:      "Tree mutations by operation and result.",
		}, []string{"op", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "monotree",
			Name:      "mutation_duration_seconds",
			Help:      "Tree mutation latency including the transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"op"}),
		CorrectedNodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monotree",
			Name:      "corrected_nodes_total",
			Help:      "In-memory node instances adjusted after a committed mutation.",
		}, []string{"op"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.Mutations, m.Duration, m.CorrectedNodes} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = AsTreeError(err).CodeName
	}
	m.Mutations.WithLabelValues(op, result).Inc()
	m.Duration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) corrected(op string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.CorrectedNodes.WithLabelValues(op).Add(float64(n))
}
