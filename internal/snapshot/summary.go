package snapshot

import (
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world/block"
)

// Summary сводка по содержимому снимка
type Summary struct {
	Blocks    int                   `json:"blocks"`
	ByType    map[block.Type]int    `json:"by_type"`
	ByVariant map[block.Variant]int `json:"by_variant"`
	Min       *vec.Vec3             `json:"min,omitempty"` // nil для пустого снимка
	Max       *vec.Vec3             `json:"max,omitempty"`
}

// Summarize считает блоки по материалу и форме и находит ограничивающий параллелепипед.
// Записи с некорректным ключом пропускаются.
func Summarize(snap Snapshot) Summary {
	s := Summary{
		ByType:    make(map[block.Type]int),
		ByVariant: make(map[block.Variant]int),
	}

	var lo, hi vec.Vec3
	for _, e := range snap.Blocks {
		pos, err := vec.ParseKey(string(e.Key))
		if err != nil {
			continue
		}
		if s.Blocks == 0 {
			lo, hi = pos, pos
		} else {
			lo = vec.Vec3{X: min(lo.X, pos.X), Y: min(lo.Y, pos.Y), Z: min(lo.Z, pos.Z)}
			hi = vec.Vec3{X: max(hi.X, pos.X), Y: max(hi.Y, pos.Y), Z: max(hi.Z, pos.Z)}
		}
		s.Blocks++

		b := e.Block.Block().Normalized()
		s.ByType[b.Type]++
		s.ByVariant[b.Variant]++
	}

	if s.Blocks > 0 {
		s.Min, s.Max = &lo, &hi
	}
	return s
}
