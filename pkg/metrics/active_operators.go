package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type activeOperators struct {
	counter        prometheus.Gauge
	operatorsCache map[string]struct{}
	mu             sync.RWMutex
}

// Operators
const activeOperatorsPerDay = "active_operators_per_day"

var totalActiveOperatorsPerDayMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: wireline,
		Name:      activeOperatorsPerDay,
		Help:      "metrics to record the number of distinct operators submitting jobs per day",
	},
)

var ActiveOperatorsPerDay = &activeOperators{
	counter:        totalActiveOperatorsPerDayMetric,
	operatorsCache: make(map[string]struct{}),
}

func (o *activeOperators) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.operatorsCache = make(map[string]struct{})
	o.counter.Set(0)
}

func (o *activeOperators) Touch(operator string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.operatorsCache[operator]; exists {
		return
	}

	o.operatorsCache[operator] = struct{}{}
	o.counter.Inc()
}
