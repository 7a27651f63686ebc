package executor

import (
	"github.com/VictoriaMetrics/metrics"
)

// execMetrics are the metrics of one executor. Executors with the same prefix share them.
type execMetrics struct {
	batches   *metrics.Counter
	rounds    *metrics.Counter
	conflicts *metrics.Counter
	retries   *metrics.Counter
	failures  *metrics.Counter
	duration  *metrics.Histogram
}

func newExecMetrics(prefix string) *execMetrics {
	if prefix == "" {
		prefix = DefaultConfig().MetricsPrefix
	}
	name := func(n string) string {
		return prefix + "_" + n
	}

	return &execMetrics{
		batches:   metrics.GetOrCreateCounter(name("batches_total")),
		rounds:    metrics.GetOrCreateCounter(name("rounds_total")),
		conflicts: metrics.GetOrCreateCounter(name("conflicts_total")),
		retries:   metrics.GetOrCreateCounter(name("retries_total")),
		failures:  metrics.GetOrCreateCounter(name("failed_batches_total")),
		duration:  metrics.GetOrCreateHistogram(name("batch_duration_seconds")),
	}
}
