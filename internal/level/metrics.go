package level

import (
	"github.com/annel0/levelforge/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — Prometheus-метрики уровней.
// Счётчик изменений обновляется хуком OnChange, поэтому учитываются только
// фактические записи (повторная запись того же блока не считается).
type Metrics struct {
	blockChanges *prometheus.CounterVec
	loaded       prometheus.Gauge
	saves        *prometheus.CounterVec
}

// NewMetrics создаёт и регистрирует метрики уровней в reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		blockChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "level",
			Name:      "block_changes_total",
			Help:      "Число фактических изменений блоков по уровням.",
		}, []string{"level"}),
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "level",
			Name:      "loaded",
			Help:      "Количество загруженных уровней.",
		}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "level",
			Name:      "saves_total",
			Help:      "Сохранения уровней по результату.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.blockChanges, m.loaded, m.saves)
	return m
}

// Observe подключает счётчик изменений к уровню. Возвращает функцию отключения.
func (m *Metrics) Observe(l *Level) (remove func()) {
	counter := m.blockChanges.WithLabelValues(l.Name)
	return l.OnChange(func(*Level, vec.Vec3S, byte, Viewer) {
		counter.Inc()
	})
}

func (m *Metrics) setLoaded(n int) {
	if m == nil {
		return
	}
	m.loaded.Set(float64(n))
}

func (m *Metrics) saveResult(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.saves.WithLabelValues("error").Inc()
		return
	}
	m.saves.WithLabelValues("ok").Inc()
}
