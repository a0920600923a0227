package block

import "fmt"

// Variant форма блока
type Variant string

const (
	VariantBlock  Variant = "block"
	VariantStairs Variant = "stairs"
	VariantSlab   Variant = "slab"
	VariantFence  Variant = "fence"
	VariantPanel  Variant = "panel"
	VariantGrate  Variant = "grate"
)

// Valid проверяет, что вариант известен (пустая строка означает block)
func (v Variant) Valid() bool {
	switch v {
	case "", VariantBlock, VariantStairs, VariantSlab, VariantFence, VariantPanel, VariantGrate:
		return true
	}
	return false
}

// Connects возвращает true для вариантов, соединяющихся с соседями (забор, панель, решётка)
func (v Variant) Connects() bool {
	return v == VariantFence || v == VariantPanel || v == VariantGrate
}

// StairShape форма угла лестницы
type StairShape string

const (
	StairStraight   StairShape = "straight"
	StairInnerLeft  StairShape = "inner_left"
	StairInnerRight StairShape = "inner_right"
)

// Valid проверяет форму лестницы (пустая строка: форма не задана)
func (s StairShape) Valid() bool {
	switch s {
	case "", StairStraight, StairInnerLeft, StairInnerRight:
		return true
	}
	return false
}

// ConnectionMask битовая маска соединений с горизонтальными соседями
type ConnectionMask uint8

const (
	ConnectNorth ConnectionMask = 1 << iota
	ConnectEast
	ConnectSouth
	ConnectWest
)

// Has проверяет наличие соединения
func (m ConnectionMask) Has(dir ConnectionMask) bool {
	return m&dir != 0
}

// Count возвращает число соединений
func (m ConnectionMask) Count() int {
	n := 0
	for _, d := range []ConnectionMask{ConnectNorth, ConnectEast, ConnectSouth, ConnectWest} {
		if m.Has(d) {
			n++
		}
	}
	return n
}

// Rotation поворот в градусах, кратный 90
type Rotation struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// IsZero возвращает true для поворота по умолчанию
func (r Rotation) IsZero() bool {
	return r.X == 0 && r.Y == 0 && r.Z == 0
}

// Normalize приводит углы к диапазону [0, 360)
func (r Rotation) Normalize() Rotation {
	return Rotation{X: normDeg(r.X), Y: normDeg(r.Y), Z: normDeg(r.Z)}
}

// Valid проверяет кратность 90 градусам
func (r Rotation) Valid() bool {
	return r.X%90 == 0 && r.Y%90 == 0 && r.Z%90 == 0
}

func normDeg(d int) int {
	d %= 360
	if d < 0 {
		d += 360
	}
	return d
}

// Block значение, хранимое в занятой ячейке.
// Изменения всегда целиком: частичное обновление полей не поддерживается.
type Block struct {
	Type     Type           // Материал
	Variant  Variant        // Форма блока
	Rotation Rotation       // Поворот
	Shape    StairShape     // Угол лестницы (только для stairs)
	Mask     ConnectionMask // Соединения (только для fence/panel/grate)
}

// New создаёт блок-куб указанного материала
func New(t Type) Block {
	return Block{Type: t, Variant: VariantBlock}
}

// Normalized возвращает каноническую форму: пустой вариант становится block,
// поворот приводится к [0,360), параметры чужих вариантов сбрасываются.
func (b Block) Normalized() Block {
	if b.Variant == "" {
		b.Variant = VariantBlock
	}
	b.Rotation = b.Rotation.Normalize()
	if b.Variant != VariantStairs {
		b.Shape = ""
	}
	if !b.Variant.Connects() {
		b.Mask = 0
	}
	return b
}

// Validate проверяет поля блока, пришедшего из внешнего источника
func (b Block) Validate() error {
	if b.Type == "" {
		return fmt.Errorf("block type is empty")
	}
	if !b.Variant.Valid() {
		return fmt.Errorf("unknown variant %q", b.Variant)
	}
	if !b.Rotation.Valid() {
		return fmt.Errorf("rotation %+v is not a multiple of 90", b.Rotation)
	}
	if !b.Shape.Valid() {
		return fmt.Errorf("unknown stair shape %q", b.Shape)
	}
	if b.Mask > ConnectNorth|ConnectEast|ConnectSouth|ConnectWest {
		return fmt.Errorf("connection mask %d out of range", b.Mask)
	}
	return nil
}

// SameKind проверяет совпадение материала и варианта (правило совместимости соседей)
func (b Block) SameKind(other Block) bool {
	return b.Type == other.Type && b.Normalized().Variant == other.Normalized().Variant
}
