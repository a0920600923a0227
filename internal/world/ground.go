package world

import (
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world/block"
)

// FillGround заливает плоский квадрат (2*radius+1)^2 на высоте y без записи в историю.
// Уже занятые ячейки не трогаются. Возвращает число поставленных блоков.
func FillGround(e *Editor, radius, y int, t block.Type) int {
	if radius < 0 {
		return 0
	}

	items := make([]Placement, 0, (2*radius+1)*(2*radius+1))
	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			items = append(items, Placement{
				Pos:   vec.Vec3{X: x, Y: y, Z: z},
				Block: block.New(t),
			})
		}
	}

	return e.Load(items, true)
}
