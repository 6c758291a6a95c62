package eventbus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StatsProvider — любая шина, умеющая отдавать счётчики.
// Экспортер не зависит от типа полезной нагрузки шины.
type StatsProvider interface {
	Name() string
	Stats() Stats
}

// MetricsExporter периодически переносит Stats шин в Prometheus.
// Counter растут на дельту между опросами.
type MetricsExporter struct {
	buses    []StatsProvider
	interval time.Duration
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu   sync.Mutex
	prev map[string]Stats

	dispatched    *prometheus.CounterVec
	canceled      *prometheus.CounterVec
	handled       *prometheus.CounterVec
	panics        *prometheus.CounterVec
	subscriptions *prometheus.GaugeVec
}

// NewMetricsExporter создаёт экспортер и регистрирует метрики в reg, но не запускает опрос
func NewMetricsExporter(reg prometheus.Registerer, interval time.Duration, buses ...StatsProvider) *MetricsExporter {
	if interval <= 0 {
		interval = time.Second
	}
	labels := []string{"bus"}
	me := &MetricsExporter{
		buses:    buses,
		interval: interval,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		prev:     make(map[string]Stats),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "events_dispatched_total",
			Help:      "Общее число разосланных событий.",
		}, labels),
		canceled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "events_canceled_total",
			Help:      "Событий, отменённых обработчиками.",
		}, labels),
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "handler_calls_total",
			Help:      "Успешных вызовов обработчиков.",
		}, labels),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "handler_panics_total",
			Help:      "Обработчиков, завершившихся паникой.",
		}, labels),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "eventbus",
			Name:      "subscriptions",
			Help:      "Количество активных подписок.",
		}, labels),
	}

	reg.MustRegister(me.dispatched, me.canceled, me.handled, me.panics, me.subscriptions)
	return me
}

// Start запускает периодический опрос в отдельной горутине
func (m *MetricsExporter) Start() {
	go m.loop()
}

// Stop останавливает опрос. Можно вызывать только после Start.
func (m *MetricsExporter) Stop() {
	m.stopOnce.Do(func() { close(m.quit) })
	<-m.done
}

func (m *MetricsExporter) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer close(m.done)

	for {
		select {
		case <-ticker.C:
			m.Collect()
		case <-m.quit:
			m.Collect()
			return
		}
	}
}

// Collect выполняет один опрос всех шин
func (m *MetricsExporter) Collect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, bus := range m.buses {
		name := bus.Name()
		stats := bus.Stats()
		prev := m.prev[name]

		// Для коррекции Counter храним прошлое значение и прибавляем дельту.
		addDelta(m.dispatched.WithLabelValues(name), stats.Dispatched, prev.Dispatched)
		addDelta(m.canceled.WithLabelValues(name), stats.Canceled, prev.Canceled)
		addDelta(m.handled.WithLabelValues(name), stats.Handled, prev.Handled)
		addDelta(m.panics.WithLabelValues(name), stats.Panics, prev.Panics)
		m.subscriptions.WithLabelValues(name).Set(float64(stats.Subscriptions))

		m.prev[name] = stats
	}
}

func addDelta(c prometheus.Counter, cur, prev uint64) {
	if cur > prev {
		c.Add(float64(cur - prev))
	}
}
