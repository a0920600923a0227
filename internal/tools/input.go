package tools

import (
	"time"

	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// Tool активный инструмент
type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolLine   Tool = "line"
	ToolCopy   Tool = "copy"
	ToolFill   Tool = "fill"
	ToolMirror Tool = "mirror"
)

// Valid проверяет название инструмента
func (t Tool) Valid() bool {
	switch t {
	case ToolBrush, ToolLine, ToolCopy, ToolFill, ToolMirror:
		return true
	}
	return false
}

// Button кнопка указателя
type Button int

const (
	ButtonPrimary   Button = iota // ЛКМ: поставить
	ButtonSecondary               // ПКМ: убрать / отменить / переключить ось
)

// Modifiers зажатые модификаторы
type Modifiers struct {
	Precision bool `json:"precision"` // Ctrl: непрерывный штрих кистью
	Shift     bool `json:"shift"`
}

// Hit результат луча из камеры: ячейка и нормаль грани, в которую попали
type Hit struct {
	Pos    vec.Vec3   `json:"pos"`
	Normal mgl64.Vec3 `json:"normal"`
}

// PointerEvent событие указателя, уже переведённое внешним слоем ввода в координаты решётки
type PointerEvent struct {
	Button    Button
	Screen    mgl64.Vec2 // Экранные координаты в пикселях
	Modifiers Modifiers
	Hit       *Hit      // nil, если луч ни во что не попал
	At        time.Time // Нулевое значение: берётся время контроллера
}

// Action что сделал инструмент
type Action string

const (
	ActionNone       Action = "none"
	ActionPlace      Action = "place"
	ActionRemove     Action = "remove"
	ActionStroke     Action = "stroke"
	ActionLineStart  Action = "line_start"
	ActionLine       Action = "line"
	ActionCopy       Action = "copy"
	ActionFill       Action = "fill"
	ActionMirror     Action = "mirror"
	ActionMirrorAxis Action = "mirror_axis"
	ActionCancel     Action = "cancel"
)

// Result итог действия. Неудача инструмента выражается нулевым Affected, а не ошибкой.
type Result struct {
	Action   Action `json:"action"`
	Affected int    `json:"affected"`
	Pending  bool   `json:"pending"` // Жест начат, но ещё не завершён (линия, штрих кистью)
}
