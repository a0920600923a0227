// Package app собирает редактор, контроллер инструментов и выбор пользователя
// в одну сессию документа. Все обращения к миру идут через мьютекс сессии.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/voxel-builder/internal/config"
	"github.com/annel0/voxel-builder/internal/eventbus"
	"github.com/annel0/voxel-builder/internal/geometry"
	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/annel0/voxel-builder/internal/observability"
	"github.com/annel0/voxel-builder/internal/snapshot"
	"github.com/annel0/voxel-builder/internal/storage"
	"github.com/annel0/voxel-builder/internal/tools"
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world"
	"github.com/annel0/voxel-builder/internal/world/block"
)

// ErrInvalidSelection возвращается при попытке установить некорректный выбор
var ErrInvalidSelection = errors.New("invalid selection")

// Действия истории в событиях history
const (
	HistoryStroke = "stroke"
	HistoryUndo   = "undo"
	HistoryRedo   = "redo"
	HistoryLoad   = "load"
)

// EventSource имя источника событий сессии в шине
const EventSource = "editor"

// HistoryState состояние истории для клиента
type HistoryState struct {
	Past     int    `json:"past"`
	Future   int    `json:"future"`
	Capacity int    `json:"capacity"`
	CanUndo  bool   `json:"can_undo"`
	CanRedo  bool   `json:"can_redo"`
	InStroke bool   `json:"in_stroke"`
	Version  uint64 `json:"version"`
}

// Stats сводка по документу
type Stats struct {
	Blocks    int          `json:"blocks"`
	History   HistoryState `json:"history"`
	LineStart *vec.Vec3    `json:"line_start,omitempty"`
}

// Session один редактируемый документ
type Session struct {
	mu         sync.Mutex
	editor     *world.Editor
	tracked    *trackedEditor
	selection  *tools.SelectionState
	controller *tools.Controller

	forwarder *eventbus.Forwarder
	metrics   *observability.EditorMetrics
	sinks     []func(world.Change)
	clock     tools.Clock
	logger    *logging.Logger
}

// Option настраивает Session
type Option func(*Session)

// WithEventBus публикует изменения в шину событий
func WithEventBus(bus eventbus.EventBus) Option {
	return func(s *Session) {
		if bus != nil {
			s.forwarder = eventbus.NewForwarder(bus, EventSource)
		}
	}
}

// WithMetrics подключает Prometheus-метрики редактора
func WithMetrics(m *observability.EditorMetrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithChangeSink добавляет получателя изменений (например, websocket-хаб).
// Получатель вызывается под мьютексом сессии и не должен блокироваться.
func WithChangeSink(fn func(world.Change)) Option {
	return func(s *Session) { s.sinks = append(s.sinks, fn) }
}

// WithClock подменяет часы контроллера
func WithClock(c tools.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// NewSession создаёт сессию по конфигурации
func NewSession(cfg *config.Config, opts ...Option) *Session {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Session{logger: logging.GetEditorLogger()}
	for _, opt := range opts {
		opt(s)
	}

	s.editor = world.NewEditor(
		world.WithHistoryCapacity(cfg.Editor.HistoryCapacity),
		world.WithLogger(s.logger),
	)
	s.editor.Subscribe(s.onChange)
	s.tracked = &trackedEditor{Editor: s.editor, session: s}

	s.selection = tools.NewSelectionState(tools.DefaultSelection())
	s.controller = tools.NewController(s.tracked, s.selection, tools.Options{
		DragThreshold: cfg.Brush.DragThresholdPx,
		Cooldown:      time.Duration(cfg.Brush.CooldownMs) * time.Millisecond,
		Limits:        LimitsFromConfig(cfg.Regions),
		Clock:         s.clock,
		Logger:        s.logger,
	})

	if g := cfg.Editor.Ground; g.Enabled {
		n := world.FillGround(s.editor, g.Radius, g.Y, block.Type(g.Type))
		s.logger.Info("🌱 Стартовый слой: %d блоков %s на y=%d", n, g.Type, g.Y)
	}

	return s
}

// LimitsFromConfig переводит секцию regions в ограничения геометрии
func LimitsFromConfig(r config.RegionsConfig) geometry.Limits {
	return geometry.Limits{
		ConnectedMax:  r.ConnectedMax,
		LocalMax:      r.LocalMax,
		LocalDistance: r.LocalDistance,
		RayLength:     r.RayLength,
		AlignedMax:    r.AlignedMax,
		FillMax:       r.FillMax,
	}
}

// onChange рассылает изменение редактора; вызывается под s.mu в потоке писателя
func (s *Session) onChange(c world.Change) {
	if s.metrics != nil {
		s.metrics.ObserveChange(c, s.editor.Len())
	}
	if s.forwarder != nil {
		s.forwarder.OnChange(c)
	}
	for _, sink := range s.sinks {
		sink(c)
	}
}

// onHistory сообщает об изменении стеков истории
func (s *Session) onHistory(action string) {
	if s.metrics != nil {
		switch action {
		case HistoryStroke:
			s.metrics.ObserveStroke()
		case HistoryUndo, HistoryRedo:
			s.metrics.ObserveHistory(action)
		}
	}
	if s.forwarder != nil {
		past, future := s.editor.HistoryDepth()
		s.forwarder.OnHistory(eventbus.HistoryChanged{
			Action:  action,
			Past:    past,
			Future:  future,
			Version: s.editor.Version(),
		})
	}
}

// Click обрабатывает одиночный клик текущим инструментом
func (s *Session) Click(ev tools.PointerEvent) tools.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.HandleToolClick(ev)
}

// PointerDown начинает жест кистью
func (s *Session) PointerDown(ev tools.PointerEvent) tools.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.PointerDown(ev)
}

// PointerMove продолжает жест кистью
func (s *Session) PointerMove(ev tools.PointerEvent) tools.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.PointerMove(ev)
}

// PointerUp завершает жест кистью
func (s *Session) PointerUp(ev tools.PointerEvent) tools.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.PointerUp(ev)
}

// Cancel сбрасывает незавершённые жесты
func (s *Session) Cancel() tools.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.Cancel()
}

// Undo отменяет последнюю запись истории. Незавершённые жесты сбрасываются:
// открытый штрих кистью закрывается и дальнейшие движения указателя игнорируются.
func (s *Session) Undo() (bool, HistoryState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.controller.Cancel()
	s.tracked.EndStroke()
	ok := s.editor.Undo()
	if ok {
		s.onHistory(HistoryUndo)
	}
	return ok, s.historyLocked()
}

// Redo повторяет последнюю отменённую запись, сбрасывая незавершённые жесты
func (s *Session) Redo() (bool, HistoryState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.controller.Cancel()
	s.tracked.EndStroke()
	ok := s.editor.Redo()
	if ok {
		s.onHistory(HistoryRedo)
	}
	return ok, s.historyLocked()
}

// History возвращает состояние истории
func (s *Session) History() HistoryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLocked()
}

func (s *Session) historyLocked() HistoryState {
	past, future := s.editor.HistoryDepth()
	return HistoryState{
		Past:     past,
		Future:   future,
		Capacity: s.editor.HistoryCapacity(),
		CanUndo:  s.editor.CanUndo(),
		CanRedo:  s.editor.CanRedo(),
		InStroke: s.editor.InStroke(),
		Version:  s.editor.Version(),
	}
}

// Stats возвращает сводку по документу
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Blocks: s.editor.Len(), History: s.historyLocked()}
	if p, ok := s.controller.LineStart(); ok {
		st.LineStart = &p
	}
	return st
}

// Selection возвращает текущий выбор
func (s *Session) Selection() tools.Selection {
	return s.selection.Current()
}

// SetSelection проверяет и заменяет выбор. Незавершённая линия сбрасывается при смене инструмента.
func (s *Session) SetSelection(sel tools.Selection) error {
	if err := ValidateSelection(sel); err != nil {
		return err
	}
	sel.Block = sel.Block.Normalized()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selection.Current().Tool != sel.Tool {
		s.controller.Cancel()
	}
	s.selection.Set(sel)
	return nil
}

// ValidateSelection проверяет поля выбора
func ValidateSelection(sel tools.Selection) error {
	if !sel.Tool.Valid() {
		return fmt.Errorf("%w: unknown tool %q", ErrInvalidSelection, sel.Tool)
	}
	if err := sel.Block.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	if !sel.MirrorAxis.Valid() {
		return fmt.Errorf("%w: unknown mirror axis %q", ErrInvalidSelection, sel.MirrorAxis)
	}
	if !sel.AlignMode.Valid() {
		return fmt.Errorf("%w: unknown align mode %q", ErrInvalidSelection, sel.AlignMode)
	}
	return nil
}

// Block возвращает блок в ячейке
func (s *Session) Block(pos vec.Vec3) (block.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Block(pos)
}

// Version реализует storage.Capturer
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Version()
}

// Capture реализует storage.Capturer
func (s *Session) Capture() snapshot.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot.Take(s.editor)
}

// LoadSnapshot проверяет и загружает снимок. При ошибке мир не меняется.
// Незавершённые жесты сбрасываются.
func (s *Session) LoadSnapshot(snap snapshot.Snapshot, merge bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.controller.Cancel()
	n, err := snapshot.Load(s.editor, snap, snapshot.Options{Merge: merge})
	if err != nil {
		return 0, err
	}
	s.onHistory(HistoryLoad)
	s.logger.Info("📂 Загружен снимок: %d блоков (merge=%v)", n, merge)
	return n, nil
}

// SaveSlot сохраняет текущий мир в слот
func (s *Session) SaveSlot(ctx context.Context, m *storage.SaveManager, name string) (storage.SlotInfo, error) {
	return m.SaveSlot(ctx, name, s.Capture())
}

// LoadSlot читает слот вне блокировки и загружает его в мир
func (s *Session) LoadSlot(ctx context.Context, m *storage.SaveManager, name string, merge bool) (int, error) {
	snap, _, err := m.ReadSlot(ctx, name)
	if err != nil {
		return 0, err
	}
	return s.LoadSnapshot(snap, merge)
}

// trackedEditor отмечает закрытие непустых штрихов
type trackedEditor struct {
	*world.Editor
	session *Session
}

// EndStroke закрывает штрих и сообщает о нём, если в нём были операции
func (e *trackedEditor) EndStroke() int {
	n := e.Editor.EndStroke()
	if n > 0 {
		e.session.onHistory(HistoryStroke)
	}
	return n
}
