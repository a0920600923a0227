package tools

import (
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// gesture состояние жеста кистью между нажатием и отпусканием
type gesture struct {
	button     Button
	start      mgl64.Vec2
	hit        *Hit
	dragged    bool
	continuous bool
	lastKey    vec.Key
	hasLast    bool
	affected   int
}

// PointerDown начинает жест кистью.
// С модификатором точности открывается непрерывный штрих и первая ячейка применяется сразу;
// без него действие откладывается до PointerUp и проходит проверку клик/перетаскивание.
func (c *Controller) PointerDown(ev PointerEvent) Result {
	sel := c.selection.Current()
	if sel.Tool != ToolBrush {
		return Result{Action: ActionNone}
	}
	if c.gesture != nil {
		c.Cancel()
	}

	g := &gesture{button: ev.Button, start: ev.Screen, hit: ev.Hit}
	c.gesture = g

	if !ev.Modifiers.Precision {
		return Result{Action: ActionNone, Pending: true}
	}

	g.continuous = true
	c.editor.BeginStroke()
	n := c.strokeAt(g, ev.Hit, sel)
	return Result{Action: ActionStroke, Affected: n, Pending: true}
}

// PointerMove продолжает жест
func (c *Controller) PointerMove(ev PointerEvent) Result {
	g := c.gesture
	if g == nil {
		return Result{Action: ActionNone}
	}

	if g.continuous {
		n := c.strokeAt(g, ev.Hit, c.selection.Current())
		return Result{Action: ActionStroke, Affected: n, Pending: true}
	}

	if ev.Screen.Sub(g.start).Len() > c.opts.DragThreshold {
		g.dragged = true
	}
	return Result{Action: ActionNone, Pending: !g.dragged}
}

// PointerUp завершает жест. Непрерывный штрих закрывается; одиночный клик срабатывает,
// только если указатель почти не сдвинулся и с прошлого действия прошло не меньше Cooldown.
func (c *Controller) PointerUp(ev PointerEvent) Result {
	g := c.gesture
	if g == nil {
		return Result{Action: ActionNone}
	}
	c.gesture = nil
	sel := c.selection.Current()

	if g.continuous {
		c.strokeAt(g, ev.Hit, sel)
		c.editor.EndStroke()
		c.lastFire = c.now(ev)
		return Result{Action: ActionStroke, Affected: g.affected}
	}

	if g.dragged || ev.Screen.Sub(g.start).Len() > c.opts.DragThreshold {
		return Result{Action: ActionNone}
	}

	now := c.now(ev)
	if !c.lastFire.IsZero() && now.Sub(c.lastFire) < c.opts.Cooldown {
		c.debug("клик отброшен: прошло %v", now.Sub(c.lastFire))
		return Result{Action: ActionNone}
	}

	hit := ev.Hit
	if hit == nil {
		hit = g.hit
	}
	if hit == nil {
		return Result{Action: ActionNone}
	}

	c.lastFire = now
	return c.single(g.button, *hit, sel)
}

// strokeAt применяет кисть к ячейке внутри открытого штриха.
// Одна и та же ячейка подряд не обрабатывается дважды.
func (c *Controller) strokeAt(g *gesture, hit *Hit, sel Selection) int {
	if hit == nil {
		return 0
	}

	target := hit.Pos
	if g.button == ButtonPrimary {
		target = Adjacent(*hit)
	}
	key := target.Key()
	if g.hasLast && key == g.lastKey {
		return 0
	}
	g.lastKey, g.hasLast = key, true

	var ok bool
	if g.button == ButtonSecondary {
		ok = c.editor.RemoveBlock(target)
	} else {
		ok = c.place(target, sel.Block)
	}
	if !ok {
		return 0
	}
	g.affected++
	return 1
}
