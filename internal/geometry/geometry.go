// Package geometry содержит чистые функции над решёткой: растеризацию отрезков,
// поиск связных и выровненных регионов, перенос региона по нормали грани и отражение.
//
// Функции не изменяют хранилище и детерминированы при одинаковых входных данных.
package geometry

import (
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world/block"
)

// BlockReader доступ на чтение к хранилищу блоков
type BlockReader interface {
	Block(pos vec.Vec3) (block.Block, bool)
}

// Limits именованные ограничения региональных алгоритмов
type Limits struct {
	ConnectedMax  int // Предел полной заливки Connected
	LocalMax      int // Предел локальной заливки ConnectedLocal
	LocalDistance int // Манхэттенский радиус локальной заливки и проб Aligned
	RayLength     int // Длина лучей в режиме AlignFull
	AlignedMax    int // Предел результата Aligned
	FillMax       int // Предел инструмента заливки
}

// Значения по умолчанию
const (
	DefaultConnectedMax  = 200
	DefaultLocalMax      = 50
	DefaultLocalDistance = 8
	DefaultRayLength     = 3
	DefaultAlignedMax    = 100
	DefaultFillMax       = 200
)

// DefaultLimits возвращает ограничения по умолчанию
func DefaultLimits() Limits {
	return Limits{
		ConnectedMax:  DefaultConnectedMax,
		LocalMax:      DefaultLocalMax,
		LocalDistance: DefaultLocalDistance,
		RayLength:     DefaultRayLength,
		AlignedMax:    DefaultAlignedMax,
		FillMax:       DefaultFillMax,
	}
}

// AlignMode режим поиска выровненного региона
type AlignMode string

const (
	AlignFull       AlignMode = "full"
	AlignVertical   AlignMode = "vertical"
	AlignHorizontal AlignMode = "horizontal"
)

// Valid проверяет режим (пустая строка означает full)
func (m AlignMode) Valid() bool {
	switch m {
	case "", AlignFull, AlignVertical, AlignHorizontal:
		return true
	}
	return false
}

// Axis ось отражения
type Axis string

const (
	AxisX Axis = "x"
	AxisZ Axis = "z"
)

// Toggle переключает ось x <-> z
func (a Axis) Toggle() Axis {
	if a == AxisX {
		return AxisZ
	}
	return AxisX
}

// Valid проверяет ось
func (a Axis) Valid() bool {
	return a == AxisX || a == AxisZ
}

// Line3D растеризует отрезок между двумя узлами решётки (3D Брезенхем).
// Ведущая ось имеет наибольшую разность, при равенстве приоритет x > y > z.
// Оба конца включены, точек ровно max(|dx|,|dy|,|dz|)+1, дубликатов нет.
func Line3D(a, b vec.Vec3) []vec.Vec3 {
	dx, dy, dz := abs(b.X-a.X), abs(b.Y-a.Y), abs(b.Z-a.Z)
	sx, sy, sz := sign(b.X-a.X), sign(b.Y-a.Y), sign(b.Z-a.Z)

	n := max(dx, dy, dz)
	points := make([]vec.Vec3, 0, n+1)
	cur := a
	points = append(points, cur)

	switch {
	case dx >= dy && dx >= dz:
		e1, e2 := 2*dy-dx, 2*dz-dx
		for cur.X != b.X {
			cur.X += sx
			if e1 >= 0 {
				cur.Y += sy
				e1 -= 2 * dx
			}
			if e2 >= 0 {
				cur.Z += sz
				e2 -= 2 * dx
			}
			e1 += 2 * dy
			e2 += 2 * dz
			points = append(points, cur)
		}
	case dy >= dz:
		e1, e2 := 2*dx-dy, 2*dz-dy
		for cur.Y != b.Y {
			cur.Y += sy
			if e1 >= 0 {
				cur.X += sx
				e1 -= 2 * dy
			}
			if e2 >= 0 {
				cur.Z += sz
				e2 -= 2 * dy
			}
			e1 += 2 * dx
			e2 += 2 * dz
			points = append(points, cur)
		}
	default:
		e1, e2 := 2*dy-dz, 2*dx-dz
		for cur.Z != b.Z {
			cur.Z += sz
			if e1 >= 0 {
				cur.Y += sy
				e1 -= 2 * dz
			}
			if e2 >= 0 {
				cur.X += sx
				e2 -= 2 * dz
			}
			e1 += 2 * dy
			e2 += 2 * dx
			points = append(points, cur)
		}
	}

	return points
}

// Mirror отражает точки относительно линии center по оси x или z: coord' = 2*center - coord.
// Остальные координаты сохраняются.
func Mirror(points []vec.Vec3, axis Axis, center int) []vec.Vec3 {
	out := make([]vec.Vec3, len(points))
	for i, pt := range points {
		switch axis {
		case AxisX:
			pt.X = 2*center - pt.X
		case AxisZ:
			pt.Z = 2*center - pt.Z
		}
		out[i] = pt
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
