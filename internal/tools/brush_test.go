package tools

import (
	"testing"
	"time"

	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func pointer(btn Button, x, y float64, hit vec.Vec3, at time.Time) PointerEvent {
	return PointerEvent{
		Button: btn,
		Screen: mgl64.Vec2{x, y},
		Hit:    &Hit{Pos: hit, Normal: normalUp},
		At:     at,
	}
}

func precise(ev PointerEvent) PointerEvent {
	ev.Modifiers.Precision = true
	return ev
}

func TestBrush_ClickPlaces(t *testing.T) {
	ctl, ed, _ := setup(ToolBrush)

	res := ctl.PointerDown(pointer(ButtonPrimary, 100, 100, p(0, 0, 0), t0))
	assert.True(t, res.Pending)
	assert.Equal(t, 0, ed.Len(), "без модификатора действие ждёт отпускания")

	res = ctl.PointerUp(pointer(ButtonPrimary, 102, 101, p(0, 0, 0), t0.Add(30*time.Millisecond)))
	assert.Equal(t, ActionPlace, res.Action)
	assert.Equal(t, 1, res.Affected)
	assert.True(t, ed.HasBlock(p(0, 1, 0)))

	past, _ := ed.HistoryDepth()
	assert.Equal(t, 1, past, "одиночный клик записывается одним штрихом")
}

func TestBrush_DragIsNotAClick(t *testing.T) {
	ctl, ed, _ := setup(ToolBrush)

	ctl.PointerDown(pointer(ButtonPrimary, 100, 100, p(0, 0, 0), t0))
	res := ctl.PointerMove(pointer(ButtonPrimary, 110, 100, p(0, 0, 0), t0))
	assert.False(t, res.Pending)

	res = ctl.PointerUp(pointer(ButtonPrimary, 100, 100, p(0, 0, 0), t0.Add(time.Second)))
	assert.Equal(t, ActionNone, res.Action, "сдвиг больше порога отменяет клик даже при возврате")
	assert.Equal(t, 0, ed.Len())
}

func TestBrush_ThresholdOnUp(t *testing.T) {
	ctl, ed, _ := setup(ToolBrush)

	ctl.PointerDown(pointer(ButtonPrimary, 0, 0, p(0, 0, 0), t0))
	res := ctl.PointerUp(pointer(ButtonPrimary, 0, 4, p(0, 0, 0), t0))
	assert.Equal(t, ActionPlace, res.Action, "сдвиг ровно 4px ещё считается кликом")

	ctl.PointerDown(pointer(ButtonPrimary, 0, 0, p(5, 0, 0), t0.Add(time.Second)))
	res = ctl.PointerUp(pointer(ButtonPrimary, 5, 0, p(5, 0, 0), t0.Add(time.Second)))
	assert.Equal(t, ActionNone, res.Action)
	assert.Equal(t, 1, ed.Len())
}

func TestBrush_Cooldown(t *testing.T) {
	ctl, ed, _ := setup(ToolBrush)

	fire := func(x int, at time.Time) Result {
		ctl.PointerDown(pointer(ButtonPrimary, 0, 0, p(x, 0, 0), at))
		return ctl.PointerUp(pointer(ButtonPrimary, 0, 0, p(x, 0, 0), at))
	}

	assert.Equal(t, 1, fire(0, t0).Affected)
	assert.Equal(t, ActionNone, fire(1, t0.Add(50*time.Millisecond)).Action, "слишком быстро после прошлого клика")
	assert.Equal(t, 1, fire(2, t0.Add(120*time.Millisecond)).Affected)
	assert.Equal(t, 2, ed.Len())
}

func TestBrush_SecondaryClickRemoves(t *testing.T) {
	ctl, ed, _ := setup(ToolBrush)
	seed(ed, block.Stone, p(0, 0, 0))

	ctl.PointerDown(pointer(ButtonSecondary, 0, 0, p(0, 0, 0), t0))
	res := ctl.PointerUp(pointer(ButtonSecondary, 0, 0, p(0, 0, 0), t0))
	assert.Equal(t, ActionRemove, res.Action)
	assert.False(t, ed.HasBlock(p(0, 0, 0)))

	assert.True(t, ed.Undo())
	assert.True(t, ed.HasBlock(p(0, 0, 0)))
}

func TestBrush_PrecisionStroke(t *testing.T) {
	ctl, ed, _ := setup(ToolBrush)

	res := ctl.PointerDown(precise(pointer(ButtonPrimary, 0, 0, p(0, 0, 0), t0)))
	assert.Equal(t, ActionStroke, res.Action)
	assert.Equal(t, 1, res.Affected)
	assert.True(t, ed.InStroke())

	res = ctl.PointerMove(precise(pointer(ButtonPrimary, 1, 0, p(0, 0, 0), t0)))
	assert.Zero(t, res.Affected, "та же ячейка подряд пропускается")

	ctl.PointerMove(precise(pointer(ButtonPrimary, 30, 0, p(1, 0, 0), t0)))
	ctl.PointerMove(precise(pointer(ButtonPrimary, 60, 0, p(2, 0, 0), t0)))

	res = ctl.PointerUp(precise(pointer(ButtonPrimary, 60, 0, p(2, 0, 0), t0)))
	assert.Equal(t, ActionStroke, res.Action)
	assert.Equal(t, 3, res.Affected)
	assert.False(t, ed.InStroke())

	assert.True(t, ed.Undo())
	assert.Equal(t, 0, ed.Len(), "весь штрих отменяется одним вызовом")
	assert.False(t, ed.CanUndo())
}

func TestBrush_PrecisionEraseStroke(t *testing.T) {
	ctl, ed, _ := setup(ToolBrush)
	seed(ed, block.Dirt, p(0, 0, 0), p(1, 0, 0), p(2, 0, 0))

	ctl.PointerDown(precise(pointer(ButtonSecondary, 0, 0, p(0, 0, 0), t0)))
	ctl.PointerMove(precise(pointer(ButtonSecondary, 10, 0, p(1, 0, 0), t0)))
	ctl.PointerMove(precise(pointer(ButtonSecondary, 20, 0, p(2, 0, 0), t0)))
	res := ctl.PointerUp(precise(pointer(ButtonSecondary, 20, 0, p(2, 0, 0), t0)))

	assert.Equal(t, 3, res.Affected)
	assert.Equal(t, 0, ed.Len())

	assert.True(t, ed.Undo())
	assert.Equal(t, 3, ed.Len())
}

func TestBrush_IgnoredForOtherTools(t *testing.T) {
	ctl, ed, _ := setup(ToolLine)

	res := ctl.PointerDown(pointer(ButtonPrimary, 0, 0, p(0, 0, 0), t0))
	assert.Equal(t, ActionNone, res.Action)
	res = ctl.PointerUp(pointer(ButtonPrimary, 0, 0, p(0, 0, 0), t0))
	assert.Equal(t, ActionNone, res.Action)
	assert.Equal(t, 0, ed.Len())
}

func TestCancel_ClosesPrecisionStroke(t *testing.T) {
	ctl, ed, _ := setup(ToolBrush)

	ctl.PointerDown(precise(pointer(ButtonPrimary, 0, 0, p(0, 0, 0), t0)))
	res := ctl.Cancel()
	assert.Equal(t, ActionCancel, res.Action)
	assert.False(t, ed.InStroke())
	assert.True(t, ed.CanUndo(), "уже применённые ячейки штриха остаются в истории")

	assert.Equal(t, ActionNone, ctl.Cancel().Action)
}
