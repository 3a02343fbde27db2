package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ScansTotal counts basket scan attempts by outcome.
	ScansTotal *prometheus.CounterVec
	// ScannedUnitsTotal counts units moved from the warehouse into baskets.
	ScannedUnitsTotal prometheus.Counter
	// BasketEmptiesTotal counts baskets returned to the warehouse.
	BasketEmptiesTotal prometheus.Counter
	// RestockedUnitsTotal counts units returned to the warehouse by emptied baskets.
	RestockedUnitsTotal prometheus.Counter
	// BasketTotal records the total of each basket when it is emptied.
	BasketTotal prometheus.Histogram
)

// Scan outcomes used as the result label of ScansTotal.
const (
	ScanResultOK         = "ok"
	ScanResultNotListed  = "not_listed"
	ScanResultOutOfStock = "out_of_stock"
	ScanResultInvalid    = "invalid"
	ScanResultError      = "error"
)

// MustRegisterDomainMetrics initialises and registers checkout Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_scans_total",
			Help:      "Count of basket scan attempts by outcome.",
		}, []string{"result"})
		ScannedUnitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_scanned_units_total",
			Help:      "Units moved from the warehouse into baskets.",
		})
		BasketEmptiesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_basket_empties_total",
			Help:      "Number of baskets emptied back into the warehouse.",
		})
		RestockedUnitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_restocked_units_total",
			Help:      "Units returned to the warehouse by emptied baskets.",
		})
		BasketTotal = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_basket_total",
			Help:      "Distribution of basket totals at the time the basket is emptied.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		})

		mustRegisterCollector(reg, ScansTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ScansTotal = v
			}
		})
		mustRegisterCollector(reg, ScannedUnitsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ScannedUnitsTotal = v
			}
		})
		mustRegisterCollector(reg, BasketEmptiesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				BasketEmptiesTotal = v
			}
		})
		mustRegisterCollector(reg, RestockedUnitsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				RestockedUnitsTotal = v
			}
		})
		mustRegisterCollector(reg, BasketTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				BasketTotal = v
			}
		})
	})
}

// RecordScan increments the scan counters when domain metrics are registered.
func RecordScan(result string, units int) {
	if ScansTotal != nil {
		ScansTotal.WithLabelValues(result).Inc()
	}
	if result == ScanResultOK && ScannedUnitsTotal != nil && units > 0 {
		ScannedUnitsTotal.Add(float64(units))
	}
}

// RecordEmpty increments the empty counters when domain metrics are registered.
func RecordEmpty(units int) {
	if BasketEmptiesTotal != nil {
		BasketEmptiesTotal.Inc()
	}
	if RestockedUnitsTotal != nil && units > 0 {
		RestockedUnitsTotal.Add(float64(units))
	}
}

// ObserveBasketTotal records the total of a basket being emptied.
func ObserveBasketTotal(total float64) {
	if BasketTotal != nil {
		BasketTotal.Observe(total)
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
