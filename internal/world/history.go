package world

import (
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world/block"
)

// DefaultHistoryCapacity ёмкость стеков истории по умолчанию
const DefaultHistoryCapacity = 500

// Op обратимая операция истории: PlaceOp или RemoveOp
type Op interface {
	OpKey() vec.Key
	isOp()
}

// PlaceOp установка блока. Отмена удаляет блок, повтор ставит снова.
type PlaceOp struct {
	Key   vec.Key
	Block block.Block
}

// RemoveOp удаление блока. Prev хранит полное прежнее значение для точного восстановления.
type RemoveOp struct {
	Key  vec.Key
	Prev block.Block
}

func (o PlaceOp) OpKey() vec.Key  { return o.Key }
func (o RemoveOp) OpKey() vec.Key { return o.Key }
func (PlaceOp) isOp()             {}
func (RemoveOp) isOp()            {}

// Entry запись в стеке истории: одиночная операция или штрих
type Entry interface {
	Ops() []Op
	isEntry()
}

// SingleEntry одиночная операция, выполненная вне штриха
type SingleEntry struct {
	Op Op
}

// StrokeEntry группа операций, отменяемая и повторяемая целиком
type StrokeEntry struct {
	Steps []Op
}

func (e SingleEntry) Ops() []Op { return []Op{e.Op} }
func (e StrokeEntry) Ops() []Op { return e.Steps }
func (SingleEntry) isEntry()    {}
func (StrokeEntry) isEntry()    {}

// History хранит стеки past/future и буфер открытого штриха.
//
// Состояния: Idle (current == nil) и Recording (current != nil).
// Оба стека ограничены одной ёмкостью; при переполнении вытесняется самая старая запись.
type History struct {
	past     []Entry
	future   []Entry
	current  []Op
	capacity int
}

// NewHistory создаёт историю заданной ёмкости (<= 0 означает DefaultHistoryCapacity)
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity}
}

// Capacity возвращает ёмкость стеков
func (h *History) Capacity() int {
	return h.capacity
}

// InStroke возвращает true в состоянии Recording
func (h *History) InStroke() bool {
	return h.current != nil
}

// BeginStroke открывает штрих. Если штрих уже открыт, он сначала фиксируется
// отдельной записью (как EndStroke), затем открывается новый. Возвращает true,
// если был зафиксирован непустой предыдущий штрих.
func (h *History) BeginStroke() bool {
	flushed := false
	if h.current != nil {
		flushed = h.EndStroke() > 0
	}
	h.current = make([]Op, 0, 8)
	return flushed
}

// EndStroke закрывает штрих. Непустой штрих попадает в past и очищает future;
// пустой отбрасывается. Возвращает число операций в штрихе.
func (h *History) EndStroke() int {
	if h.current == nil {
		return 0
	}
	ops := h.current
	h.current = nil
	if len(ops) == 0 {
		return 0
	}
	h.past = pushBounded(h.past, StrokeEntry{Steps: ops}, h.capacity)
	h.future = nil
	return len(ops)
}

// Record записывает применённую операцию: в буфер штриха (Recording)
// или сразу в past с очисткой future (Idle).
func (h *History) Record(op Op) {
	if h.current != nil {
		h.current = append(h.current, op)
		return
	}
	h.past = pushBounded(h.past, SingleEntry{Op: op}, h.capacity)
	h.future = nil
}

// CanUndo проверяет наличие записей для отмены
func (h *History) CanUndo() bool {
	return len(h.past) > 0
}

// CanRedo проверяет наличие записей для повтора
func (h *History) CanRedo() bool {
	return len(h.future) > 0
}

// PastLen возвращает глубину стека отмены
func (h *History) PastLen() int {
	return len(h.past)
}

// FutureLen возвращает глубину стека повтора
func (h *History) FutureLen() int {
	return len(h.future)
}

// Reset очищает оба стека и открытый штрих
func (h *History) Reset() {
	h.past = nil
	h.future = nil
	h.current = nil
}

// popPast снимает последнюю запись past и переносит её в future
func (h *History) popPast() (Entry, bool) {
	if len(h.past) == 0 {
		return nil, false
	}
	entry := h.past[len(h.past)-1]
	h.past[len(h.past)-1] = nil
	h.past = h.past[:len(h.past)-1]
	h.future = pushBounded(h.future, entry, h.capacity)
	return entry, true
}

// popFuture снимает последнюю запись future и переносит её в past
func (h *History) popFuture() (Entry, bool) {
	if len(h.future) == 0 {
		return nil, false
	}
	entry := h.future[len(h.future)-1]
	h.future[len(h.future)-1] = nil
	h.future = h.future[:len(h.future)-1]
	h.past = pushBounded(h.past, entry, h.capacity)
	return entry, true
}

// pushBounded добавляет запись и вытесняет самые старые сверх ёмкости
func pushBounded(stack []Entry, e Entry, capacity int) []Entry {
	stack = append(stack, e)
	if over := len(stack) - capacity; over > 0 {
		copy(stack, stack[over:])
		for i := len(stack) - over; i < len(stack); i++ {
			stack[i] = nil
		}
		stack = stack[:len(stack)-over]
	}
	return stack
}
