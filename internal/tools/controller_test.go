package tools

import (
	"testing"
	"time"

	"github.com/annel0/voxel-builder/internal/geometry"
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world"
	"github.com/annel0/voxel-builder/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	normalUp    = mgl64.Vec3{0, 1, 0}
	normalSouth = mgl64.Vec3{0, 0, 1}
	t0          = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func p(x, y, z int) vec.Vec3 { return vec.Vec3{X: x, Y: y, Z: z} }

func setup(tool Tool) (*Controller, *world.Editor, *SelectionState) {
	ed := world.NewEditor()
	sel := DefaultSelection()
	sel.Tool = tool
	state := NewSelectionState(sel)
	ctl := NewController(ed, state, Options{Clock: func() time.Time { return t0 }})
	return ctl, ed, state
}

func click(pos vec.Vec3, normal mgl64.Vec3) PointerEvent {
	return PointerEvent{Button: ButtonPrimary, Hit: &Hit{Pos: pos, Normal: normal}}
}

func seed(ed *world.Editor, t block.Type, points ...vec.Vec3) {
	for _, pt := range points {
		ed.SetBlockSilent(pt, block.New(t))
	}
}

func TestLineTool_TwoClicks(t *testing.T) {
	ctl, ed, _ := setup(ToolLine)

	res := ctl.HandleToolClick(click(p(0, 0, 0), normalUp))
	assert.Equal(t, ActionLineStart, res.Action)
	assert.True(t, res.Pending)
	start, ok := ctl.LineStart()
	require.True(t, ok)
	assert.Equal(t, p(0, 1, 0), start)
	assert.Equal(t, 0, ed.Len(), "первый клик ничего не ставит")

	res = ctl.HandleToolClick(click(p(3, 0, 0), normalUp))
	assert.Equal(t, ActionLine, res.Action)
	assert.Equal(t, 4, res.Affected)
	for x := 0; x <= 3; x++ {
		assert.True(t, ed.HasBlock(p(x, 1, 0)))
	}
	_, ok = ctl.LineStart()
	assert.False(t, ok)

	assert.True(t, ed.Undo())
	assert.Equal(t, 0, ed.Len(), "одна отмена снимает всю линию")
	assert.False(t, ed.CanUndo())
}

func TestLineTool_SkipsOccupied(t *testing.T) {
	ctl, ed, _ := setup(ToolLine)
	seed(ed, block.Glass, p(2, 1, 0))

	ctl.HandleToolClick(click(p(0, 0, 0), normalUp))
	res := ctl.HandleToolClick(click(p(3, 0, 0), normalUp))

	assert.Equal(t, 3, res.Affected)
	b, _ := ed.Block(p(2, 1, 0))
	assert.Equal(t, block.Glass, b.Type)
}

func TestLineTool_CancelLeavesNoTrace(t *testing.T) {
	ctl, ed, _ := setup(ToolLine)

	ctl.HandleToolClick(click(p(0, 0, 0), normalUp))
	res := ctl.HandleToolClick(PointerEvent{Button: ButtonSecondary})
	assert.Equal(t, ActionCancel, res.Action)

	_, ok := ctl.LineStart()
	assert.False(t, ok)
	assert.Equal(t, 0, ed.Len())
	assert.False(t, ed.CanUndo())

	// Следующий клик снова начинает линию
	res = ctl.HandleToolClick(click(p(5, 0, 0), normalUp))
	assert.Equal(t, ActionLineStart, res.Action)
}

func TestCopyTool(t *testing.T) {
	ctl, ed, _ := setup(ToolCopy)
	seed(ed, block.Stone, p(0, 0, 0), p(1, 0, 0), p(2, 0, 0))

	res := ctl.HandleToolClick(click(p(0, 0, 0), normalSouth))
	assert.Equal(t, ActionCopy, res.Action)
	assert.Equal(t, 3, res.Affected)
	for x := 0; x <= 2; x++ {
		b, ok := ed.Block(p(x, 0, 1))
		require.True(t, ok)
		assert.Equal(t, block.Stone, b.Type)
	}

	assert.True(t, ed.Undo())
	assert.Equal(t, 3, ed.Len())
	assert.False(t, ed.CanUndo())
}

func TestCopyTool_OnlyEmptyTargetsAndOverride(t *testing.T) {
	ctl, ed, state := setup(ToolCopy)
	seed(ed, block.Stone, p(0, 0, 0), p(1, 0, 0), p(2, 0, 0))
	seed(ed, block.Sand, p(1, 0, 1))

	sel := state.Current()
	sel.OverrideType = block.Glass
	state.Set(sel)

	res := ctl.HandleToolClick(click(p(0, 0, 0), normalSouth))
	assert.Equal(t, 2, res.Affected)

	b, _ := ed.Block(p(1, 0, 1))
	assert.Equal(t, block.Sand, b.Type, "занятая цель не перезаписывается")
	b, _ = ed.Block(p(2, 0, 1))
	assert.Equal(t, block.Glass, b.Type)
}

func TestCopyTool_NoSource(t *testing.T) {
	ctl, ed, _ := setup(ToolCopy)

	res := ctl.HandleToolClick(click(p(0, 0, 0), normalUp))
	assert.Equal(t, ActionCopy, res.Action)
	assert.Zero(t, res.Affected)
	assert.False(t, ed.CanUndo())
}

func TestCopyTool_VerticalMode(t *testing.T) {
	ctl, ed, state := setup(ToolCopy)
	seed(ed, block.Brick, p(0, 0, 0), p(0, 1, 0), p(0, 2, 0), p(1, 0, 0))

	sel := state.Current()
	sel.AlignMode = geometry.AlignVertical
	state.Set(sel)

	res := ctl.HandleToolClick(click(p(0, 0, 0), mgl64.Vec3{-1, 0, 0}))
	assert.Equal(t, 3, res.Affected)
	for y := 0; y <= 2; y++ {
		assert.True(t, ed.HasBlock(p(-1, y, 0)))
	}
}

func TestFillTool(t *testing.T) {
	ctl, ed, state := setup(ToolFill)
	seed(ed, block.Stone, p(0, 0, 0), p(1, 0, 0), p(2, 0, 0), p(3, 0, 0), p(4, 0, 0))
	seed(ed, block.Glass, p(5, 0, 0))

	sel := state.Current()
	sel.Block = block.New(block.Dirt)
	state.Set(sel)

	res := ctl.HandleToolClick(click(p(0, 0, 0), normalUp))
	assert.Equal(t, ActionFill, res.Action)
	assert.Equal(t, 5, res.Affected)
	for x := 0; x <= 4; x++ {
		b, _ := ed.Block(p(x, 0, 0))
		assert.Equal(t, block.Dirt, b.Type)
	}
	b, _ := ed.Block(p(5, 0, 0))
	assert.Equal(t, block.Glass, b.Type)

	assert.True(t, ed.Undo())
	for x := 0; x <= 4; x++ {
		b, _ := ed.Block(p(x, 0, 0))
		assert.Equal(t, block.Stone, b.Type, "одна отмена возвращает весь регион")
	}
	assert.False(t, ed.CanUndo())
}

func TestFillTool_CapAndNoop(t *testing.T) {
	ed := world.NewEditor()
	sel := DefaultSelection()
	sel.Tool = ToolFill
	sel.Block = block.New(block.Sand)
	lim := geometry.DefaultLimits()
	lim.FillMax = 2
	ctl := NewController(ed, NewSelectionState(sel), Options{Limits: lim})
	seed(ed, block.Stone, p(0, 0, 0), p(1, 0, 0), p(2, 0, 0))

	res := ctl.HandleToolClick(click(p(0, 0, 0), normalUp))
	assert.Equal(t, 2, res.Affected)

	// Регион уже того же материала: ничего не меняется, история не растёт
	past, _ := ed.HistoryDepth()
	res = ctl.HandleToolClick(click(p(0, 0, 0), normalUp))
	assert.Zero(t, res.Affected)
	after, _ := ed.HistoryDepth()
	assert.Equal(t, past, after)
}

func TestMirrorTool(t *testing.T) {
	ctl, ed, state := setup(ToolMirror)

	res := ctl.HandleToolClick(click(p(2, 0, 0), normalUp))
	assert.Equal(t, ActionMirror, res.Action)
	assert.Equal(t, 2, res.Affected)
	assert.True(t, ed.HasBlock(p(2, 1, 0)))
	assert.True(t, ed.HasBlock(p(-2, 1, 0)))

	assert.True(t, ed.Undo())
	assert.Equal(t, 0, ed.Len())

	res = ctl.HandleToolClick(PointerEvent{Button: ButtonSecondary})
	assert.Equal(t, ActionMirrorAxis, res.Action)
	assert.Equal(t, geometry.AxisZ, state.Current().MirrorAxis)
	assert.Equal(t, 0, ed.Len())

	res = ctl.HandleToolClick(click(p(1, 0, 3), normalUp))
	assert.Equal(t, 2, res.Affected)
	assert.True(t, ed.HasBlock(p(1, 1, -3)))
}

func TestMirrorTool_OnCenterLine(t *testing.T) {
	ctl, ed, _ := setup(ToolMirror)

	res := ctl.HandleToolClick(click(p(0, 0, 5), normalUp))
	assert.Equal(t, 1, res.Affected, "точка на оси отражается сама в себя")
	assert.Equal(t, 1, ed.Len())
}

func TestBrushClickViaHandleToolClick(t *testing.T) {
	ctl, ed, _ := setup(ToolBrush)
	seed(ed, block.Stone, p(0, 0, 0))

	res := ctl.HandleToolClick(click(p(0, 0, 0), normalUp))
	assert.Equal(t, ActionPlace, res.Action)
	assert.Equal(t, 1, res.Affected)
	assert.True(t, ed.HasBlock(p(0, 1, 0)))

	res = ctl.HandleToolClick(PointerEvent{Button: ButtonSecondary, Hit: &Hit{Pos: p(0, 0, 0), Normal: normalUp}})
	assert.Equal(t, ActionRemove, res.Action)
	assert.Equal(t, 1, res.Affected)
	assert.False(t, ed.HasBlock(p(0, 0, 0)))
}

func TestPlacedBlocksAreOriented(t *testing.T) {
	ctl, ed, state := setup(ToolBrush)
	seed(ed, block.Stone, p(1, 1, 0))

	sel := state.Current()
	sel.Block = block.Block{Type: block.Wood, Variant: block.VariantFence}
	state.Set(sel)

	ctl.HandleToolClick(click(p(0, 0, 0), normalUp))
	b, ok := ed.Block(p(0, 1, 0))
	require.True(t, ok)
	assert.Equal(t, block.ConnectEast, b.Mask)
	assert.Equal(t, 90, b.Rotation.Y)
}
