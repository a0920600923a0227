// Package tools переводит события указателя в детерминированные правки мира.
// Каждое действие, изменившее хотя бы одну ячейку, обёрнуто ровно в один штрих истории,
// поэтому одна отмена возвращает всю линию, копию или заливку целиком.
package tools

import (
	"time"

	"github.com/annel0/voxel-builder/internal/connectivity"
	"github.com/annel0/voxel-builder/internal/geometry"
	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world/block"
)

// Editor то, что контроллеру нужно от редактора мира
type Editor interface {
	geometry.BlockReader
	HasBlock(pos vec.Vec3) bool
	SetBlock(pos vec.Vec3, b block.Block) bool
	RemoveBlock(pos vec.Vec3) bool
	BeginStroke()
	EndStroke() int
	InStroke() bool
}

// Clock возвращает текущее время (подменяется в тестах)
type Clock func() time.Time

// Значения по умолчанию для защиты клика от перетаскивания
const (
	DefaultDragThreshold = 4.0
	DefaultCooldown      = 120 * time.Millisecond
)

// Options настройки контроллера
type Options struct {
	DragThreshold float64 // Максимальный сдвиг указателя для клика, px
	Cooldown      time.Duration
	Limits        geometry.Limits
	Clock         Clock
	Logger        *logging.Logger
}

// DefaultOptions возвращает настройки по умолчанию
func DefaultOptions() Options {
	return Options{
		DragThreshold: DefaultDragThreshold,
		Cooldown:      DefaultCooldown,
		Limits:        geometry.DefaultLimits(),
		Clock:         time.Now,
	}
}

// Controller хранит состояние жестов и применяет инструменты к редактору.
// Не потокобезопасен: вызывающий сериализует доступ вместе с доступом к редактору.
type Controller struct {
	editor    Editor
	selection SelectionSource
	opts      Options
	logger    *logging.Logger

	lineStart *vec.Vec3
	gesture   *gesture
	lastFire  time.Time
}

// NewController создаёт контроллер. Нулевые поля opts заменяются значениями по умолчанию.
func NewController(ed Editor, sel SelectionSource, opts Options) *Controller {
	def := DefaultOptions()
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = def.DragThreshold
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = def.Cooldown
	}
	if opts.Limits == (geometry.Limits{}) {
		opts.Limits = def.Limits
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}

	return &Controller{
		editor:    ed,
		selection: sel,
		opts:      opts,
		logger:    opts.Logger,
	}
}

// LineStart возвращает начало линии, если первая точка уже выбрана
func (c *Controller) LineStart() (vec.Vec3, bool) {
	if c.lineStart == nil {
		return vec.Vec3{}, false
	}
	return *c.lineStart, true
}

// Cancel сбрасывает незавершённые жесты без изменения мира.
// Непрерывный штрих кистью к этому моменту уже применён и просто закрывается.
func (c *Controller) Cancel() Result {
	pending := c.lineStart != nil || c.gesture != nil
	c.lineStart = nil
	if c.gesture != nil && c.gesture.continuous {
		c.editor.EndStroke()
	}
	c.gesture = nil

	if !pending {
		return Result{Action: ActionNone}
	}
	return Result{Action: ActionCancel}
}

// ToggleMirrorAxis переключает ось отражения x <-> z
func (c *Controller) ToggleMirrorAxis() geometry.Axis {
	axis := c.selection.Current().MirrorAxis.Toggle()
	c.selection.SetMirrorAxis(axis)
	return axis
}

// HandleToolClick обрабатывает одиночный клик текущим инструментом
func (c *Controller) HandleToolClick(ev PointerEvent) Result {
	sel := c.selection.Current()

	switch sel.Tool {
	case ToolLine:
		return c.clickLine(ev, sel)
	case ToolCopy:
		return c.clickCopy(ev, sel)
	case ToolFill:
		return c.clickFill(ev, sel)
	case ToolMirror:
		return c.clickMirror(ev, sel)
	default:
		if ev.Hit == nil {
			return Result{Action: ActionNone}
		}
		return c.single(ev.Button, *ev.Hit, sel)
	}
}

func (c *Controller) clickLine(ev PointerEvent, sel Selection) Result {
	if ev.Button == ButtonSecondary {
		return c.Cancel()
	}
	if ev.Hit == nil {
		return Result{Action: ActionNone, Pending: c.lineStart != nil}
	}

	target := Adjacent(*ev.Hit)
	if c.lineStart == nil {
		c.lineStart = &target
		return Result{Action: ActionLineStart, Pending: true}
	}

	start := *c.lineStart
	c.lineStart = nil

	placed := c.inStroke(func() int {
		n := 0
		for _, pos := range geometry.Line3D(start, target) {
			if c.place(pos, sel.Block) {
				n++
			}
		}
		return n
	})

	c.debug("линия %v -> %v: поставлено %d", start, target, placed)
	return Result{Action: ActionLine, Affected: placed}
}

func (c *Controller) clickCopy(ev PointerEvent, sel Selection) Result {
	if ev.Button != ButtonPrimary || ev.Hit == nil {
		return Result{Action: ActionNone}
	}

	hit := *ev.Hit
	src := geometry.Aligned(hit.Pos, c.editor, sel.AlignMode, c.opts.Limits)
	if len(src) == 0 {
		return Result{Action: ActionCopy}
	}
	dir := geometry.FaceDirection(hit.Normal)
	targets := geometry.CopyPositions(src, hit.Normal, sel.AlignMode)

	placed := c.inStroke(func() int {
		n := 0
		for _, pos := range targets {
			if c.editor.HasBlock(pos) {
				continue
			}
			b, ok := c.editor.Block(pos.Sub(dir))
			if !ok {
				continue
			}
			if sel.OverrideType != "" {
				b.Type = sel.OverrideType
			}
			if c.editor.SetBlock(pos, b) {
				n++
			}
		}
		return n
	})

	c.debug("копия от %v (%s): источник %d, поставлено %d", hit.Pos, sel.AlignMode, len(src), placed)
	return Result{Action: ActionCopy, Affected: placed}
}

func (c *Controller) clickFill(ev PointerEvent, sel Selection) Result {
	if ev.Button != ButtonPrimary || ev.Hit == nil {
		return Result{Action: ActionNone}
	}

	region := geometry.Connected(ev.Hit.Pos, c.editor, c.opts.Limits.FillMax)
	want := sel.Block.Normalized()

	painted := c.inStroke(func() int {
		n := 0
		for _, pos := range region {
			cur, ok := c.editor.Block(pos)
			if !ok || cur.SameKind(want) {
				continue
			}
			c.editor.RemoveBlock(pos)
			if c.place(pos, want) {
				n++
			}
		}
		return n
	})

	c.debug("заливка от %v: регион %d, перекрашено %d", ev.Hit.Pos, len(region), painted)
	return Result{Action: ActionFill, Affected: painted}
}

func (c *Controller) clickMirror(ev PointerEvent, sel Selection) Result {
	if ev.Button == ButtonSecondary {
		c.ToggleMirrorAxis()
		return Result{Action: ActionMirrorAxis}
	}
	if ev.Hit == nil {
		return Result{Action: ActionNone}
	}

	target := Adjacent(*ev.Hit)
	points := append([]vec.Vec3{target}, geometry.Mirror([]vec.Vec3{target}, sel.MirrorAxis, sel.MirrorCenter)...)

	placed := c.inStroke(func() int {
		n := 0
		for _, pos := range points {
			if c.place(pos, sel.Block) {
				n++
			}
		}
		return n
	})
	return Result{Action: ActionMirror, Affected: placed}
}

// single ставит или убирает один блок в собственном штрихе
func (c *Controller) single(btn Button, hit Hit, sel Selection) Result {
	if btn == ButtonSecondary {
		n := c.inStroke(func() int {
			if c.editor.RemoveBlock(hit.Pos) {
				return 1
			}
			return 0
		})
		return Result{Action: ActionRemove, Affected: n}
	}

	n := c.inStroke(func() int {
		if c.place(Adjacent(hit), sel.Block) {
			return 1
		}
		return 0
	})
	return Result{Action: ActionPlace, Affected: n}
}

// place ставит блок с формой, выведенной из соседей
func (c *Controller) place(pos vec.Vec3, b block.Block) bool {
	return c.editor.SetBlock(pos, connectivity.Orient(c.editor, pos, b))
}

// inStroke выполняет fn внутри одного штриха. Пустой штрих в историю не попадает.
func (c *Controller) inStroke(fn func() int) int {
	c.editor.BeginStroke()
	n := fn()
	c.editor.EndStroke()
	return n
}

func (c *Controller) now(ev PointerEvent) time.Time {
	if !ev.At.IsZero() {
		return ev.At
	}
	return c.opts.Clock()
}

func (c *Controller) debug(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(format, args...)
	}
}

// Adjacent возвращает ячейку рядом с гранью, в которую попал луч
func Adjacent(hit Hit) vec.Vec3 {
	return hit.Pos.Add(geometry.FaceDirection(hit.Normal))
}
