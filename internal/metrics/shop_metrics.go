package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/webshop/internal/domain"
)

const (
	// ResultPlaced — заказ успешно оформлен.
	ResultPlaced = "placed"
	// ResultRejected — оформление отклонено, изменения откатились.
	ResultRejected = "rejected"

	// SourceCache — ответ на чтение взят из кэша.
	SourceCache = "cache"
	// SourceStorage — ответ на чтение получен из хранилища.
	SourceStorage = "storage"
)

// ShopMetrics содержит метрики витрины и оформления заказов.
type ShopMetrics struct {
	placements        *prometheus.CounterVec
	placementDuration prometheus.Histogram
	linesPlaced       prometheus.Counter
	unitsPlaced       prometheus.Counter
	inFlight          prometheus.Gauge
	reads             *prometheus.CounterVec
}

// NewShopMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewShopMetrics() *ShopMetrics {
	return NewShopMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewShopMetricsWithRegisterer регистрирует метрики в заданном реестре.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewShopMetricsWithRegisterer(registerer prometheus.Registerer) *ShopMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ShopMetrics{
		placements: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webshop_order_placements_total",
			Help: "Total number of order placement attempts grouped by result and error kind.",
		}, []string{"result", "kind"})),
		placementDuration: register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "webshop_order_placement_duration_seconds",
			Help:    "Duration of the order placement transaction in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		})),
		linesPlaced: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webshop_order_lines_placed_total",
			Help: "Total number of order lines committed.",
		})),
		unitsPlaced: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webshop_article_units_placed_total",
			Help: "Total number of article units taken from stock by committed orders.",
		})),
		inFlight: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webshop_order_placements_in_flight",
			Help: "Number of order placements currently running.",
		})),
		reads: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webshop_read_requests_total",
			Help: "Total number of list requests grouped by resource and source.",
		}, []string{"resource", "source"})),
	}
}

func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(C)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", alreadyRegistered.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return collector
}

// PlacementStarted отмечает начало оформления заказа.
func (m *ShopMetrics) PlacementStarted() {
	m.inFlight.Inc()
}

// PlacementFinished фиксирует результат оформления заказа.
// lines и units учитываются только для успешных заказов.
func (m *ShopMetrics) PlacementFinished(err error, lines int, units int64, duration time.Duration) {
	m.inFlight.Dec()
	m.placementDuration.Observe(duration.Seconds())

	if err != nil {
		m.placements.WithLabelValues(ResultRejected, string(domain.KindOf(err))).Inc()
		return
	}
	m.placements.WithLabelValues(ResultPlaced, string(domain.ErrorKindNone)).Inc()
	m.linesPlaced.Add(float64(lines))
	m.unitsPlaced.Add(float64(units))
}

// RecordRead увеличивает счётчик запросов на чтение.
func (m *ShopMetrics) RecordRead(resource, source string) {
	m.reads.WithLabelValues(resource, source).Inc()
}
