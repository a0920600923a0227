package geometry

import (
	"math"
	"sort"

	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
)

// Connected возвращает связную (по граням) область блоков того же материала, что и start.
// Обход в ширину, не более maxBlocks позиций. Для пустого start результат пуст.
func Connected(start vec.Vec3, r BlockReader, maxBlocks int) []vec.Vec3 {
	return flood(start, r, maxBlocks, -1)
}

// ConnectedLocal Connected с ограничением манхэттенского расстояния от start
func ConnectedLocal(start vec.Vec3, r BlockReader, maxDistance, maxBlocks int) []vec.Vec3 {
	return flood(start, r, maxBlocks, maxDistance)
}

// flood BFS по 6-соседству; maxDistance < 0 отключает ограничение расстояния
func flood(start vec.Vec3, r BlockReader, maxBlocks, maxDistance int) []vec.Vec3 {
	if maxBlocks <= 0 {
		return nil
	}
	origin, ok := r.Block(start)
	if !ok {
		return nil
	}

	result := []vec.Vec3{start}
	visited := map[vec.Key]struct{}{start.Key(): {}}
	queue := []vec.Vec3{start}

	for len(queue) > 0 && len(result) < maxBlocks {
		cur := queue[0]
		queue = queue[1:]

		for _, n := range cur.Neighbors6() {
			key := n.Key()
			if _, seen := visited[key]; seen {
				continue
			}
			visited[key] = struct{}{}

			if maxDistance >= 0 && n.Manhattan(start) > maxDistance {
				continue
			}
			b, ok := r.Block(n)
			if !ok || b.Type != origin.Type {
				continue
			}

			result = append(result, n)
			if len(result) >= maxBlocks {
				break
			}
			queue = append(queue, n)
		}
	}

	return result
}

// Aligned собирает регион для копирования:
//   - AlignVertical: столбец (x,z) start, y в пределах LocalDistance, все блоки того же материала;
//   - AlignHorizontal: слой y start, квадрат со стороной 2*LocalDistance+1;
//   - AlignFull: локальная заливка плюс блоки того же материала, найденные лучами
//     длиной RayLength по шести осям от каждой найденной ячейки.
//
// Результат без дубликатов, не более AlignedMax позиций, ближайшие к start идут первыми.
func Aligned(start vec.Vec3, r BlockReader, mode AlignMode, lim Limits) []vec.Vec3 {
	origin, ok := r.Block(start)
	if !ok || lim.AlignedMax <= 0 {
		return nil
	}

	switch mode {
	case AlignVertical:
		return probeColumn(start, origin.Type, r, lim.LocalDistance, lim.AlignedMax)
	case AlignHorizontal:
		return probeLayer(start, origin.Type, r, lim.LocalDistance, lim.AlignedMax)
	default:
		return alignedFull(start, origin.Type, r, lim)
	}
}

// probeColumn проверяет столбец от start наружу: 0, +1, -1, +2, -2, ...
func probeColumn(start vec.Vec3, t block.Type, r BlockReader, maxDistance, maxBlocks int) []vec.Vec3 {
	out := make([]vec.Vec3, 0, 2*maxDistance+1)
	try := func(pos vec.Vec3) {
		if b, ok := r.Block(pos); ok && b.Type == t {
			out = append(out, pos)
		}
	}

	try(start)
	for d := 1; d <= maxDistance && len(out) < maxBlocks; d++ {
		try(vec.Vec3{X: start.X, Y: start.Y + d, Z: start.Z})
		try(vec.Vec3{X: start.X, Y: start.Y - d, Z: start.Z})
	}
	return capTo(out, maxBlocks)
}

// probeLayer проверяет квадрат слоя, упорядоченный по расстоянию от start
func probeLayer(start vec.Vec3, t block.Type, r BlockReader, maxDistance, maxBlocks int) []vec.Vec3 {
	var out []vec.Vec3
	for x := start.X - maxDistance; x <= start.X+maxDistance; x++ {
		for z := start.Z - maxDistance; z <= start.Z+maxDistance; z++ {
			pos := vec.Vec3{X: x, Y: start.Y, Z: z}
			if b, ok := r.Block(pos); ok && b.Type == t {
				out = append(out, pos)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Manhattan(start), out[j].Manhattan(start)
		if di != dj {
			return di < dj
		}
		return out[i].Less(out[j])
	})
	return capTo(out, maxBlocks)
}

func alignedFull(start vec.Vec3, t block.Type, r BlockReader, lim Limits) []vec.Vec3 {
	blob := ConnectedLocal(start, r, lim.LocalDistance, lim.LocalMax)

	seen := make(map[vec.Key]struct{}, len(blob))
	out := make([]vec.Vec3, 0, len(blob))
	add := func(pos vec.Vec3) {
		key := pos.Key()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, pos)
	}

	for _, pos := range blob {
		add(pos)
	}
	for _, pos := range blob {
		for _, dir := range vec.Directions6 {
			for step := 1; step <= lim.RayLength; step++ {
				probe := pos.Add(dir.Scale(step))
				if b, ok := r.Block(probe); ok && b.Type == t {
					add(probe)
				}
			}
		}
	}

	return capTo(out, lim.AlignedMax)
}

// FaceDirection округляет нормаль грани до ближайшего единичного осевого вектора.
// При равных компонентах приоритет x > y > z; нулевая нормаль даёт нулевой вектор.
func FaceDirection(normal mgl64.Vec3) vec.Vec3 {
	ax, ay, az := math.Abs(normal.X()), math.Abs(normal.Y()), math.Abs(normal.Z())
	switch {
	case ax == 0 && ay == 0 && az == 0:
		return vec.Vec3{}
	case ax >= ay && ax >= az:
		return vec.Vec3{X: signf(normal.X())}
	case ay >= az:
		return vec.Vec3{Y: signf(normal.Y())}
	default:
		return vec.Vec3{Z: signf(normal.Z())}
	}
}

// CopyPositions переносит исходные ячейки на один шаг по нормали грани.
// В режимах vertical/horizontal сначала оставляются только ячейки столбца/слоя первой исходной ячейки.
func CopyPositions(src []vec.Vec3, normal mgl64.Vec3, mode AlignMode) []vec.Vec3 {
	if len(src) == 0 {
		return nil
	}
	dir := FaceDirection(normal)
	first := src[0]

	out := make([]vec.Vec3, 0, len(src))
	for _, pos := range src {
		switch mode {
		case AlignVertical:
			if pos.X != first.X || pos.Z != first.Z {
				continue
			}
		case AlignHorizontal:
			if pos.Y != first.Y {
				continue
			}
		}
		out = append(out, pos.Add(dir))
	}
	return out
}

func capTo(points []vec.Vec3, n int) []vec.Vec3 {
	if len(points) > n {
		return points[:n]
	}
	return points
}

func signf(f float64) int {
	if f < 0 {
		return -1
	}
	return 1
}
