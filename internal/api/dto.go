package api

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-builder/internal/app"
	"github.com/annel0/voxel-builder/internal/geometry"
	"github.com/annel0/voxel-builder/internal/snapshot"
	"github.com/annel0/voxel-builder/internal/tools"
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
)

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

var errBadPointer = errors.New("invalid pointer event")

// HitRequest попадание луча. Ячейку можно задать координатами или ключом "x,y,z".
type HitRequest struct {
	Pos    *vec.Vec3  `json:"pos,omitempty"`
	Key    string     `json:"key,omitempty"`
	Normal [3]float64 `json:"normal"`
}

// PointerRequest событие указателя от фронтенда
type PointerRequest struct {
	Button    string          `json:"button"` // primary | secondary, по умолчанию primary
	Screen    [2]float64      `json:"screen"`
	Modifiers tools.Modifiers `json:"modifiers"`
	Hit       *HitRequest     `json:"hit,omitempty"`
}

// Event переводит запрос в событие контроллера
func (r PointerRequest) Event() (tools.PointerEvent, error) {
	ev := tools.PointerEvent{
		Screen:    mgl64.Vec2{r.Screen[0], r.Screen[1]},
		Modifiers: r.Modifiers,
	}

	switch r.Button {
	case "", "primary":
		ev.Button = tools.ButtonPrimary
	case "secondary":
		ev.Button = tools.ButtonSecondary
	default:
		return ev, fmt.Errorf("%w: unknown button %q", errBadPointer, r.Button)
	}

	if r.Hit == nil {
		return ev, nil
	}

	var pos vec.Vec3
	switch {
	case r.Hit.Key != "":
		p, err := vec.ParseKey(r.Hit.Key)
		if err != nil {
			return ev, fmt.Errorf("%w: %v", errBadPointer, err)
		}
		pos = p
	case r.Hit.Pos != nil:
		pos = *r.Hit.Pos
	default:
		return ev, fmt.Errorf("%w: hit without pos or key", errBadPointer)
	}

	normal := mgl64.Vec3(r.Hit.Normal)
	if normal.Len() == 0 {
		return ev, fmt.Errorf("%w: zero hit normal", errBadPointer)
	}
	ev.Hit = &tools.Hit{Pos: pos, Normal: normal}
	return ev, nil
}

// ToolResponse результат действия инструмента и состояние истории после него
type ToolResponse struct {
	Result  tools.Result     `json:"result"`
	History app.HistoryState `json:"history"`
}

// HistoryResponse ответ на undo/redo
type HistoryResponse struct {
	Applied bool             `json:"applied"`
	History app.HistoryState `json:"history"`
}

// SelectionDTO выбор в формате API; блок записывается как в снимке
type SelectionDTO struct {
	Tool         tools.Tool         `json:"tool"`
	Block        snapshot.BlockData `json:"block"`
	MirrorAxis   geometry.Axis      `json:"mirror_axis"`
	MirrorCenter int                `json:"mirror_center"`
	AlignMode    geometry.AlignMode `json:"align_mode"`
	OverrideType block.Type         `json:"override_type,omitempty"`
}

// NewSelectionDTO переводит выбор в формат API
func NewSelectionDTO(sel tools.Selection) SelectionDTO {
	return SelectionDTO{
		Tool:         sel.Tool,
		Block:        snapshot.FromBlock(sel.Block),
		MirrorAxis:   sel.MirrorAxis,
		MirrorCenter: sel.MirrorCenter,
		AlignMode:    sel.AlignMode,
		OverrideType: sel.OverrideType,
	}
}

// Selection восстанавливает выбор
func (d SelectionDTO) Selection() tools.Selection {
	return tools.Selection{
		Tool:         d.Tool,
		Block:        d.Block.Block(),
		MirrorAxis:   d.MirrorAxis,
		MirrorCenter: d.MirrorCenter,
		AlignMode:    d.AlignMode,
		OverrideType: d.OverrideType,
	}
}

// BlockResponse блок в ячейке
type BlockResponse struct {
	Key   vec.Key            `json:"key"`
	Pos   vec.Vec3           `json:"pos"`
	Block snapshot.BlockData `json:"block"`
}

// LoadResponse итог загрузки снимка или слота
type LoadResponse struct {
	Loaded  int              `json:"loaded"`
	Merge   bool             `json:"merge"`
	History app.HistoryState `json:"history"`
}
