// Package connectivity вычисляет форму и поворот блока по четырём горизонтальным соседям
// в момент установки. Уже стоящие соседи не пересчитываются.
package connectivity

import (
	"github.com/annel0/voxel-builder/internal/geometry"
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world/block"
)

// Поворот вокруг Y для каждого направления: север 0, восток 90, юг 180, запад 270
var sides = [4]struct {
	dir vec.Vec3
	bit block.ConnectionMask
	yaw int
}{
	{vec.North, block.ConnectNorth, 0},
	{vec.East, block.ConnectEast, 90},
	{vec.South, block.ConnectSouth, 180},
	{vec.West, block.ConnectWest, 270},
}

// Compatible проверяет, соединяется ли блок b с соседом n:
// тот же материал и вариант, либо сосед является обычным кубом.
func Compatible(b, n block.Block) bool {
	if n.Normalized().Variant == block.VariantBlock {
		return true
	}
	return b.SameKind(n)
}

// Mask возвращает маску совместимых соседей блока b, который стоит (или будет стоять) в pos
func Mask(r geometry.BlockReader, pos vec.Vec3, b block.Block) block.ConnectionMask {
	var m block.ConnectionMask
	for _, s := range sides {
		n, ok := r.Block(pos.Add(s.dir))
		if ok && Compatible(b, n) {
			m |= s.bit
		}
	}
	return m
}

// Orient возвращает блок с формой и поворотом, выведенными из соседей.
// Для вариантов без соединений блок возвращается в нормализованном виде без изменений.
func Orient(r geometry.BlockReader, pos vec.Vec3, b block.Block) block.Block {
	b = b.Normalized()

	switch {
	case b.Variant == block.VariantStairs:
		return orientStairs(b, Mask(r, pos, b))
	case b.Variant.Connects():
		return orientConnector(b, Mask(r, pos, b))
	default:
		return b
	}
}

// canonicalYaw поворот одиночных и неоднозначных блоков
const canonicalYaw = 0

func orientStairs(b block.Block, m block.ConnectionMask) block.Block {
	b.Shape = block.StairStraight
	b.Rotation.Y = canonicalYaw

	switch m.Count() {
	case 1:
		for _, s := range sides {
			if m.Has(s.bit) {
				b.Rotation.Y = s.yaw
			}
		}
	case 2:
		switch m {
		case block.ConnectNorth | block.ConnectSouth:
			b.Rotation.Y = 0
		case block.ConnectEast | block.ConnectWest:
			b.Rotation.Y = 90
		default:
			b.Shape, b.Rotation.Y = corner(m)
		}
	}
	// 0 или 3+ соединений: прямая лестница с поворотом canonicalYaw
	return b
}

// corner определяет внутренний угол для пары перпендикулярных соседей.
// Лестница смотрит на первого соседа в порядке N, E, S, W; второй сосед справа даёт inner_right.
func corner(m block.ConnectionMask) (block.StairShape, int) {
	for i, s := range sides {
		if !m.Has(s.bit) {
			continue
		}
		right := sides[(i+1)%4]
		if m.Has(right.bit) {
			return block.StairInnerRight, s.yaw
		}
		return block.StairInnerLeft, s.yaw
	}
	return block.StairStraight, 0
}

func orientConnector(b block.Block, m block.ConnectionMask) block.Block {
	b.Mask = m

	ns := m.Has(block.ConnectNorth) || m.Has(block.ConnectSouth)
	ew := m.Has(block.ConnectEast) || m.Has(block.ConnectWest)
	switch {
	case ns && !ew:
		b.Rotation.Y = 0
	case ew && !ns:
		b.Rotation.Y = 90
	default:
		// Перекрёстки и одиночные блоки: соединения рисуются по маске
		b.Rotation.Y = canonicalYaw
	}
	return b
}
