package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProcessMetrics содержит метрики ядра оркестрации закупок.
type ProcessMetrics struct {
	// Счётчики жизненного цикла заявок
	requestsStarted   prometheus.Counter
	requestsCompleted prometheus.Counter
	requestsAborted   prometheus.Counter

	// Метрики fan-out/join
	fanoutInstances prometheus.Counter
	fanoutJoins     prometheus.Counter

	// Завершения задач по активностям
	taskCompletions *prometheus.CounterVec

	// Гистограмма времени жизни заявки от старта до конечного статуса
	requestDuration prometheus.Histogram

	// Счётчики событий outbox/timeline
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для заявок с незавершёнными задачами
	activeRequests prometheus.Gauge
}

// NewProcessMetrics создаёт новый экземпляр метрик в default registry.
func NewProcessMetrics() *ProcessMetrics {
	return newProcessMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newProcessMetricsWithRegisterer(registerer prometheus.Registerer) *ProcessMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ProcessMetrics{
		requestsStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "procurement_requests_started_total",
			Help: "Total number of procurement requests started",
		}),
		requestsCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "procurement_requests_completed_total",
			Help: "Total number of procurement requests completed with a selected supplier",
		}),
		requestsAborted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "procurement_requests_aborted_total",
			Help: "Total number of procurement requests aborted at review",
		}),
		fanoutInstances: registerCounter(registerer, prometheus.CounterOpts{
			Name: "procurement_fanout_instances_total",
			Help: "Total number of fan-out task instances spawned",
		}),
		fanoutJoins: registerCounter(registerer, prometheus.CounterOpts{
			Name: "procurement_fanout_joins_total",
			Help: "Total number of fan-out join barriers released",
		}),
		taskCompletions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "procurement_task_completions_total",
			Help: "Total number of human task completions grouped by activity",
		}, []string{"activity"}),
		requestDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "procurement_request_duration_seconds",
			Help:    "Time from request start to terminal status in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 10, 10),
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "procurement_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "procurement_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeRequests: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "procurement_active_requests",
			Help: "Number of requests currently waiting on human tasks",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordRequestStarted увеличивает счётчик запущенных заявок.
func (m *ProcessMetrics) RecordRequestStarted() {
	m.requestsStarted.Inc()
	m.activeRequests.Inc()
}

// RecordRequestCompleted фиксирует завершение заявки выбором поставщика.
func (m *ProcessMetrics) RecordRequestCompleted() {
	m.requestsCompleted.Inc()
	m.activeRequests.Dec()
}

// RecordRequestAborted фиксирует прерывание заявки на ревью.
func (m *ProcessMetrics) RecordRequestAborted() {
	m.requestsAborted.Inc()
	m.activeRequests.Dec()
}

// RecordFanOutSpawned увеличивает счётчик порождённых экземпляров fan-out.
func (m *ProcessMetrics) RecordFanOutSpawned(instances int) {
	m.fanoutInstances.Add(float64(instances))
}

// RecordFanOutJoined увеличивает счётчик сработавших join-барьеров.
func (m *ProcessMetrics) RecordFanOutJoined() {
	m.fanoutJoins.Inc()
}

// RecordTaskCompleted увеличивает счётчик завершений задач активности.
func (m *ProcessMetrics) RecordTaskCompleted(activity string) {
	m.taskCompletions.WithLabelValues(activity).Inc()
}

// RecordRequestDuration записывает время жизни заявки.
func (m *ProcessMetrics) RecordRequestDuration(duration time.Duration) {
	m.requestDuration.Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *ProcessMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *ProcessMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
