package tools

import (
	"sync"

	"github.com/annel0/voxel-builder/internal/geometry"
	"github.com/annel0/voxel-builder/internal/world/block"
)

// Selection текущие настройки пользователя, которые инструменты читают в момент вызова
type Selection struct {
	Tool         Tool               `json:"tool"`
	Block        block.Block        `json:"block"`
	MirrorAxis   geometry.Axis      `json:"mirror_axis"`
	MirrorCenter int                `json:"mirror_center"`
	AlignMode    geometry.AlignMode `json:"align_mode"`
	OverrideType block.Type         `json:"override_type,omitempty"` // Материал копии вместо исходного
}

// DefaultSelection возвращает выбор по умолчанию: кисть, каменный куб, ось x
func DefaultSelection() Selection {
	return Selection{
		Tool:       ToolBrush,
		Block:      block.New(block.Stone),
		MirrorAxis: geometry.AxisX,
		AlignMode:  geometry.AlignFull,
	}
}

// SelectionSource источник выбора. Контроллер не владеет выбором, только читает его
// и переключает ось отражения по ПКМ.
type SelectionSource interface {
	Current() Selection
	SetMirrorAxis(axis geometry.Axis)
}

// SelectionState потокобезопасное хранилище выбора
type SelectionState struct {
	mu  sync.RWMutex
	sel Selection
}

// NewSelectionState создаёт хранилище с начальным выбором
func NewSelectionState(initial Selection) *SelectionState {
	return &SelectionState{sel: initial}
}

// Current возвращает копию текущего выбора
func (s *SelectionState) Current() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sel
}

// Set заменяет выбор целиком
func (s *SelectionState) Set(sel Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = sel
}

// SetMirrorAxis меняет ось отражения
func (s *SelectionState) SetMirrorAxis(axis geometry.Axis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.MirrorAxis = axis
}
