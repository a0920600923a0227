package app

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/annel0/voxel-builder/internal/config"
	"github.com/annel0/voxel-builder/internal/eventbus"
	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/annel0/voxel-builder/internal/observability"
	"github.com/annel0/voxel-builder/internal/snapshot"
	"github.com/annel0/voxel-builder/internal/storage"
	"github.com/annel0/voxel-builder/internal/tools"
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world"
	"github.com/annel0/voxel-builder/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetLogDir("")
	os.Exit(m.Run())
}

var up = mgl64.Vec3{0, 1, 0}

func clickAt(x, y, z int) tools.PointerEvent {
	return tools.PointerEvent{
		Button: tools.ButtonPrimary,
		Hit:    &tools.Hit{Pos: vec.Vec3{X: x, Y: y, Z: z}, Normal: up},
	}
}

func TestNewSession_Ground(t *testing.T) {
	cfg := config.Default()
	cfg.Editor.Ground = config.GroundConfig{Enabled: true, Radius: 1, Y: -1, Type: "grass"}

	s := NewSession(cfg)
	st := s.Stats()
	assert.Equal(t, 9, st.Blocks)
	assert.False(t, st.History.CanUndo, "стартовый слой не попадает в историю")

	b, ok := s.Block(vec.Vec3{X: 1, Y: -1, Z: -1})
	require.True(t, ok)
	assert.Equal(t, block.Grass, b.Type)
}

func TestSession_ClickUndoRedo(t *testing.T) {
	s := NewSession(nil)

	res := s.Click(clickAt(0, 0, 0))
	assert.Equal(t, tools.ActionPlace, res.Action)
	assert.Equal(t, 1, res.Affected)

	h := s.History()
	assert.Equal(t, 1, h.Past)
	assert.True(t, h.CanUndo)
	assert.Equal(t, config.Default().Editor.HistoryCapacity, h.Capacity)

	ok, h := s.Undo()
	assert.True(t, ok)
	assert.Equal(t, 0, h.Past)
	assert.Equal(t, 1, h.Future)
	_, placed := s.Block(vec.Vec3{Y: 1})
	assert.False(t, placed)

	ok, _ = s.Redo()
	assert.True(t, ok)
	_, placed = s.Block(vec.Vec3{Y: 1})
	assert.True(t, placed)

	ok, _ = s.Redo()
	assert.False(t, ok, "повторять нечего")
}

func TestSession_UndoClosesPrecisionStroke(t *testing.T) {
	s := NewSession(nil)

	down := clickAt(0, 0, 0)
	down.Modifiers.Precision = true
	s.PointerDown(down)
	s.PointerMove(clickAt(1, 0, 0))
	assert.True(t, s.History().InStroke)

	ok, h := s.Undo()
	assert.True(t, ok)
	assert.False(t, h.InStroke)
	assert.Equal(t, 0, s.Stats().Blocks, "весь штрих отменён одной операцией")

	// Жест прерван: продолжение перетаскивания ничего не ставит и не пишет в историю
	for x := 2; x <= 4; x++ {
		res := s.PointerMove(clickAt(x, 0, 0))
		assert.Equal(t, tools.ActionNone, res.Action)
	}
	res := s.PointerUp(clickAt(4, 0, 0))
	assert.Equal(t, tools.ActionNone, res.Action)
	assert.Zero(t, res.Affected)

	h = s.History()
	assert.Equal(t, 0, h.Past)
	assert.Equal(t, 1, h.Future, "отменённый штрих остаётся одной записью для redo")
	assert.False(t, h.InStroke)
	assert.Equal(t, 0, s.Stats().Blocks)

	ok, h = s.Redo()
	assert.True(t, ok)
	assert.Equal(t, 1, h.Past)
	assert.Equal(t, 2, s.Stats().Blocks, "redo возвращает обе ячейки штриха")
}

func TestSession_RedoCancelsOpenStroke(t *testing.T) {
	s := NewSession(nil)

	s.Click(clickAt(5, 0, 5))
	s.Undo()

	down := clickAt(0, 0, 0)
	down.Modifiers.Precision = true
	s.PointerDown(down)
	s.PointerMove(clickAt(1, 0, 0))

	// Новый штрих очистил future, redo нечего повторять, но жест всё равно закрыт
	ok, h := s.Redo()
	assert.False(t, ok)
	assert.False(t, h.InStroke)
	assert.Equal(t, 1, h.Past, "два шага кисти записаны одним штрихом")

	s.PointerMove(clickAt(2, 0, 0))
	s.PointerUp(clickAt(3, 0, 0))
	assert.Equal(t, 1, s.History().Past)
	assert.Equal(t, 2, s.Stats().Blocks)
}

func TestSession_SetSelection(t *testing.T) {
	s := NewSession(nil)

	sel := tools.DefaultSelection()
	sel.Tool = tools.ToolLine
	sel.Block = block.Block{Type: block.Brick, Rotation: block.Rotation{Y: -90}}
	require.NoError(t, s.SetSelection(sel))

	got := s.Selection()
	assert.Equal(t, tools.ToolLine, got.Tool)
	assert.Equal(t, block.VariantBlock, got.Block.Variant)
	assert.Equal(t, 270, got.Block.Rotation.Y)

	s.Click(clickAt(0, 0, 0))
	require.NotNil(t, s.Stats().LineStart)

	// Смена инструмента сбрасывает незавершённую линию
	sel.Tool = tools.ToolBrush
	require.NoError(t, s.SetSelection(sel))
	assert.Nil(t, s.Stats().LineStart)

	bad := []tools.Selection{
		{Tool: "hammer", Block: block.New(block.Stone), MirrorAxis: "x", AlignMode: "full"},
		{Tool: tools.ToolBrush, Block: block.Block{}, MirrorAxis: "x", AlignMode: "full"},
		{Tool: tools.ToolBrush, Block: block.New(block.Stone), MirrorAxis: "y", AlignMode: "full"},
		{Tool: tools.ToolBrush, Block: block.New(block.Stone), MirrorAxis: "x", AlignMode: "diagonal"},
	}
	for _, b := range bad {
		assert.ErrorIs(t, s.SetSelection(b), ErrInvalidSelection)
	}
	assert.Equal(t, tools.ToolBrush, s.Selection().Tool)
}

func TestSession_LoadSnapshot(t *testing.T) {
	s := NewSession(nil)
	s.Click(clickAt(0, 0, 0))
	before := s.Version()

	_, err := s.LoadSnapshot(snapshot.Snapshot{Version: 2, Blocks: []snapshot.Entry{}}, false)
	assert.ErrorIs(t, err, snapshot.ErrInvalidSnapshot)
	assert.Equal(t, before, s.Version(), "неверный снимок не меняет мир")

	src := world.NewEditor()
	src.SetBlock(vec.Vec3{X: 5}, block.New(block.Sand))
	src.SetBlock(vec.Vec3{X: 6}, block.New(block.Sand))

	n, err := s.LoadSnapshot(snapshot.Take(src), true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, s.Stats().Blocks)

	n, err = s.LoadSnapshot(snapshot.Take(src), false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	st := s.Stats()
	assert.Equal(t, 2, st.Blocks)
	assert.False(t, st.History.CanUndo, "замена сбрасывает историю")
}

func TestSession_Slots(t *testing.T) {
	ctx := context.Background()
	m := storage.NewSaveManager(storage.NewMemorySlotStore())

	s := NewSession(nil)
	s.Click(clickAt(0, 0, 0))
	s.Click(clickAt(3, 0, 0))

	info, err := s.SaveSlot(ctx, m, "tower")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Blocks)

	other := NewSession(nil)
	n, err := other.LoadSlot(ctx, m, "tower", false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, s.Capture(), other.Capture())

	_, err = other.LoadSlot(ctx, m, "missing", false)
	assert.ErrorIs(t, err, storage.ErrSlotNotFound)

	saved, err := m.Autosave(ctx, s)
	require.NoError(t, err)
	assert.True(t, saved)
	saved, err = m.Autosave(ctx, s)
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestSession_FanOut(t *testing.T) {
	bus := eventbus.NewMemoryBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var actions []string
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.TypeHistory}}, func(_ context.Context, ev *eventbus.Envelope) {
		var h eventbus.HistoryChanged
		if eventbus.DecodePayload(ev, &h) == nil {
			mu.Lock()
			actions = append(actions, h.Action)
			mu.Unlock()
		}
	})
	require.NoError(t, err)

	var sunk []world.Change
	s := NewSession(nil,
		WithEventBus(bus),
		WithMetrics(observability.NewEditorMetrics(prometheus.NewRegistry())),
		WithChangeSink(func(c world.Change) { sunk = append(sunk, c) }),
	)

	sel := tools.DefaultSelection()
	sel.Tool = tools.ToolLine
	require.NoError(t, s.SetSelection(sel))
	s.Click(clickAt(0, 0, 0))
	s.Click(clickAt(2, 0, 0))
	s.Undo()

	assert.Len(t, sunk, 6, "три постановки и три отмены")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(actions) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{HistoryStroke, HistoryUndo}, actions)
}

func TestSession_ConcurrentClicks(t *testing.T) {
	s := NewSession(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(x int) {
			defer wg.Done()
			s.Click(clickAt(x*2, 0, 0))
			s.Stats()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, s.Stats().Blocks)
	assert.Equal(t, 20, s.History().Past)
}
