package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteCalculationsTotal counts quote comparison computations by outcome.
	QuoteCalculationsTotal *prometheus.CounterVec
	// QuotationsProcessedTotal counts reconciliation write-backs by outcome.
	QuotationsProcessedTotal *prometheus.CounterVec
	// QuoteLineItems records the number of line items per comparison.
	QuoteLineItems prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteCalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_calculations_total",
			Help:      "Count of quote comparison computations by result.",
		}, []string{"result"})
		QuotationsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotations_processed_total",
			Help:      "Count of quotation reconciliation write-backs by result.",
		}, []string{"result"})
		QuoteLineItems = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_line_items",
			Help:      "Distribution of line item counts per quote comparison.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		})
		reg.MustRegister(QuoteCalculationsTotal, QuotationsProcessedTotal, QuoteLineItems)
	})
}

// ObserveQuoteCalculation records one comparison outcome.
func ObserveQuoteCalculation(result string, lines int) {
	if QuoteCalculationsTotal != nil {
		QuoteCalculationsTotal.WithLabelValues(result).Inc()
	}
	if QuoteLineItems != nil && lines > 0 {
		QuoteLineItems.Observe(float64(lines))
	}
}
