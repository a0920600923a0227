package observability

import (
	"time"

	"github.com/annel0/voxel-builder/internal/storage"
	"github.com/annel0/voxel-builder/internal/world"
	"github.com/prometheus/client_golang/prometheus"
)

// EditorMetrics Prometheus-метрики редактора:
//   - editor_changes_total{kind,source}: применённые изменения хранилища
//   - editor_blocks: текущее число блоков
//   - editor_strokes_total: зафиксированные штрихи
//   - editor_history_total{action}: undo/redo
//   - editor_save_duration_seconds{slot_kind}, editor_save_errors_total
type EditorMetrics struct {
	changes     *prometheus.CounterVec
	blocks      prometheus.Gauge
	strokes     prometheus.Counter
	history     *prometheus.CounterVec
	saveLatency *prometheus.HistogramVec
	saveErrors  prometheus.Counter
}

// NewEditorMetrics создаёт метрики и регистрирует их в reg
func NewEditorMetrics(reg prometheus.Registerer) *EditorMetrics {
	m := &EditorMetrics{
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editor",
			Name:      "changes_total",
			Help:      "Применённые изменения хранилища блоков.",
		}, []string{"kind", "source"}),
		blocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "editor",
			Name:      "blocks",
			Help:      "Текущее число блоков в мире.",
		}),
		strokes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "editor",
			Name:      "strokes_total",
			Help:      "Зафиксированные в истории штрихи.",
		}),
		history: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editor",
			Name:      "history_total",
			Help:      "Выполненные отмены и повторы.",
		}, []string{"action"}),
		saveLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "editor",
			Name:      "save_duration_seconds",
			Help:      "Длительность сохранения слота.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"slot_kind"}),
		saveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "editor",
			Name:      "save_errors_total",
			Help:      "Неудачные сохранения слотов.",
		}),
	}

	reg.MustRegister(m.changes, m.blocks, m.strokes, m.history, m.saveLatency, m.saveErrors)
	return m
}

// ObserveChange учитывает изменение хранилища, blocks содержит размер хранилища после изменения
func (m *EditorMetrics) ObserveChange(c world.Change, blocks int) {
	m.changes.WithLabelValues(c.Kind.String(), c.Source.String()).Inc()
	m.blocks.Set(float64(blocks))
}

// ObserveStroke учитывает закрытый непустой штрих
func (m *EditorMetrics) ObserveStroke() {
	m.strokes.Inc()
}

// ObserveHistory учитывает undo или redo
func (m *EditorMetrics) ObserveHistory(action string) {
	m.history.WithLabelValues(action).Inc()
}

// ObserveSave реализует storage.SaveObserver
func (m *EditorMetrics) ObserveSave(slot string, d time.Duration, err error) {
	kind := "manual"
	if slot == storage.AutosaveSlot {
		kind = "autosave"
	}
	m.saveLatency.WithLabelValues(kind).Observe(d.Seconds())
	if err != nil {
		m.saveErrors.Inc()
	}
}
