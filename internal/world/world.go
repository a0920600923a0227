package world

import (
	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world/block"
)

// Editor объединяет хранилище блоков и историю правок одного документа.
// Экземпляр создаётся на сессию и передаётся по ссылке; глобальных синглтонов нет.
//
// Editor не потокобезопасен: все вызовы должны идти из одного писателя
// (см. app.Session, которая сериализует доступ мьютексом).
type Editor struct {
	store     *Store
	history   *History
	version   uint64
	listeners []listenerEntry
	nextID    int
	logger    *logging.Logger
}

type listenerEntry struct {
	id int
	fn Listener
}

// Option настраивает Editor
type Option func(*Editor)

// WithHistoryCapacity задаёт ёмкость стеков истории
func WithHistoryCapacity(capacity int) Option {
	return func(e *Editor) {
		e.history = NewHistory(capacity)
	}
}

// WithLogger задаёт логгер редактора
func WithLogger(l *logging.Logger) Option {
	return func(e *Editor) {
		e.logger = l
	}
}

// NewEditor создаёт пустой редактор
func NewEditor(opts ...Option) *Editor {
	e := &Editor{
		store:   NewStore(),
		history: NewHistory(DefaultHistoryCapacity),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe регистрирует слушателя изменений и возвращает функцию отписки
func (e *Editor) Subscribe(l Listener) func() {
	id := e.nextID
	e.nextID++
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: l})
	return func() {
		for i, le := range e.listeners {
			if le.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// Version возвращает монотонный счётчик применённых изменений
func (e *Editor) Version() uint64 {
	return e.version
}

// HasBlock проверяет занятость ячейки
func (e *Editor) HasBlock(pos vec.Vec3) bool {
	return e.store.Has(pos)
}

// Block возвращает блок в ячейке
func (e *Editor) Block(pos vec.Vec3) (block.Block, bool) {
	return e.store.Block(pos)
}

// Len возвращает число блоков
func (e *Editor) Len() int {
	return e.store.Len()
}

// Range обходит все блоки
func (e *Editor) Range(fn func(pos vec.Vec3, b block.Block) bool) {
	e.store.Range(fn)
}

// Keys возвращает отсортированные ключи занятых ячеек
func (e *Editor) Keys() []vec.Key {
	return e.store.Keys()
}

// SetBlockSilent ставит блок без записи в историю (массовое заполнение)
func (e *Editor) SetBlockSilent(pos vec.Vec3, b block.Block) bool {
	if !e.store.SetSilent(pos, b) {
		return false
	}
	stored, _ := e.store.Block(pos)
	e.emit(Change{Kind: ChangePlaced, Source: SourceSilent, Pos: pos, Block: stored})
	return true
}

// RemoveBlockSilent удаляет блок без записи в историю
func (e *Editor) RemoveBlockSilent(pos vec.Vec3) bool {
	prev, ok := e.store.RemoveSilent(pos)
	if !ok {
		return false
	}
	e.emit(Change{Kind: ChangeRemoved, Source: SourceSilent, Pos: pos, Block: prev})
	return true
}

// SetBlock ставит блок с записью в историю. Занятая ячейка не перезаписывается:
// вызов ничего не делает и историю не трогает.
func (e *Editor) SetBlock(pos vec.Vec3, b block.Block) bool {
	if !e.store.SetSilent(pos, b) {
		return false
	}
	stored, _ := e.store.Block(pos)
	e.history.Record(PlaceOp{Key: pos.Key(), Block: stored})
	e.emit(Change{Kind: ChangePlaced, Source: SourceEdit, Pos: pos, Block: stored})
	return true
}

// RemoveBlock удаляет блок с записью в историю, сохраняя прежнее значение целиком
func (e *Editor) RemoveBlock(pos vec.Vec3) bool {
	prev, ok := e.store.RemoveSilent(pos)
	if !ok {
		return false
	}
	e.history.Record(RemoveOp{Key: pos.Key(), Prev: prev})
	e.emit(Change{Kind: ChangeRemoved, Source: SourceEdit, Pos: pos, Block: prev})
	return true
}

// BeginStroke открывает штрих. Уже открытый штрих фиксируется отдельной записью.
func (e *Editor) BeginStroke() {
	if e.history.BeginStroke() && e.logger != nil {
		e.logger.Warn("BeginStroke при открытом штрихе: предыдущий штрих зафиксирован")
	}
}

// EndStroke закрывает штрих и возвращает число записанных операций
func (e *Editor) EndStroke() int {
	return e.history.EndStroke()
}

// InStroke возвращает true, пока штрих открыт
func (e *Editor) InStroke() bool {
	return e.history.InStroke()
}

// Undo отменяет последнюю запись истории. Операции штриха откатываются в обратном порядке.
// Открытый штрих предварительно закрывается. Возвращает false, если отменять нечего.
func (e *Editor) Undo() bool {
	e.history.EndStroke()
	entry, ok := e.history.popPast()
	if !ok {
		return false
	}

	switch en := entry.(type) {
	case SingleEntry:
		e.revert(en.Op)
	case StrokeEntry:
		for i := len(en.Steps) - 1; i >= 0; i-- {
			e.revert(en.Steps[i])
		}
	}
	return true
}

// Redo повторяет последнюю отменённую запись. Операции применяются в прямом порядке.
func (e *Editor) Redo() bool {
	e.history.EndStroke()
	entry, ok := e.history.popFuture()
	if !ok {
		return false
	}

	switch en := entry.(type) {
	case SingleEntry:
		e.reapply(en.Op)
	case StrokeEntry:
		for _, op := range en.Steps {
			e.reapply(op)
		}
	}
	return true
}

// CanUndo проверяет наличие записей для отмены
func (e *Editor) CanUndo() bool {
	return e.history.CanUndo()
}

// CanRedo проверяет наличие записей для повтора
func (e *Editor) CanRedo() bool {
	return e.history.CanRedo()
}

// HistoryDepth возвращает глубины стеков past и future
func (e *Editor) HistoryDepth() (past, future int) {
	return e.history.PastLen(), e.history.FutureLen()
}

// HistoryCapacity возвращает ёмкость стеков истории
func (e *Editor) HistoryCapacity() int {
	return e.history.Capacity()
}

// Placement блок с позицией для пакетной загрузки
type Placement struct {
	Pos   vec.Vec3
	Block block.Block
}

// Load загружает блоки пакетом без записи в историю.
// Без merge хранилище и история очищаются; с merge блоки ложатся поверх,
// занятые ячейки не перезаписываются. Возвращает число поставленных блоков.
func (e *Editor) Load(items []Placement, merge bool) int {
	kind := ChangeBulk
	if !merge {
		e.store.Clear()
		e.history.Reset()
		kind = ChangeReset
	}

	placed := 0
	for _, it := range items {
		if e.store.SetSilent(it.Pos, it.Block) {
			placed++
		}
	}

	e.emit(Change{Kind: kind, Source: SourceLoad, Count: placed})
	return placed
}

// Clear очищает хранилище и историю
func (e *Editor) Clear() {
	e.Load(nil, false)
}

// revert применяет обратную операцию
func (e *Editor) revert(op Op) {
	switch o := op.(type) {
	case PlaceOp:
		pos := vec.DecodeKey(o.Key)
		if prev, ok := e.store.RemoveSilent(pos); ok {
			e.emit(Change{Kind: ChangeRemoved, Source: SourceUndo, Pos: pos, Block: prev})
		}
	case RemoveOp:
		pos := vec.DecodeKey(o.Key)
		if e.store.SetSilent(pos, o.Prev) {
			e.emit(Change{Kind: ChangePlaced, Source: SourceUndo, Pos: pos, Block: o.Prev})
		}
	}
}

// reapply повторно применяет операцию
func (e *Editor) reapply(op Op) {
	switch o := op.(type) {
	case PlaceOp:
		pos := vec.DecodeKey(o.Key)
		if e.store.SetSilent(pos, o.Block) {
			e.emit(Change{Kind: ChangePlaced, Source: SourceRedo, Pos: pos, Block: o.Block})
		}
	case RemoveOp:
		pos := vec.DecodeKey(o.Key)
		if prev, ok := e.store.RemoveSilent(pos); ok {
			e.emit(Change{Kind: ChangeRemoved, Source: SourceRedo, Pos: pos, Block: prev})
		}
	}
}

// emit увеличивает версию и уведомляет слушателей
func (e *Editor) emit(c Change) {
	e.version++
	c.Version = e.version
	for _, le := range e.listeners {
		le.fn(c)
	}
}
