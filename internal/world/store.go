package world

import (
	"sort"

	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world/block"
)

// Store разреженное хранилище блоков: ключ присутствует тогда и только тогда,
// когда ячейка занята. Надгробий и заглушек нет.
//
// Store не потокобезопасен: писатель один (Editor), синхронизация делается на уровне сессии.
type Store struct {
	blocks map[vec.Key]block.Block
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{blocks: make(map[vec.Key]block.Block)}
}

// Has проверяет занятость ячейки
func (s *Store) Has(pos vec.Vec3) bool {
	_, exists := s.blocks[pos.Key()]
	return exists
}

// Block возвращает блок в ячейке
func (s *Store) Block(pos vec.Vec3) (block.Block, bool) {
	b, exists := s.blocks[pos.Key()]
	return b, exists
}

// SetSilent кладёт блок в пустую ячейку без записи в историю.
// Занятая ячейка не перезаписывается: возвращается false.
func (s *Store) SetSilent(pos vec.Vec3, b block.Block) bool {
	key := pos.Key()
	if _, exists := s.blocks[key]; exists {
		return false
	}
	s.blocks[key] = b.Normalized()
	return true
}

// RemoveSilent удаляет блок без записи в историю и возвращает удалённое значение
func (s *Store) RemoveSilent(pos vec.Vec3) (block.Block, bool) {
	key := pos.Key()
	prev, exists := s.blocks[key]
	if !exists {
		return block.Block{}, false
	}
	delete(s.blocks, key)
	return prev, true
}

// Len возвращает число занятых ячеек
func (s *Store) Len() int {
	return len(s.blocks)
}

// Range обходит блоки в произвольном порядке; fn возвращает false для остановки
func (s *Store) Range(fn func(pos vec.Vec3, b block.Block) bool) {
	for key, b := range s.blocks {
		if !fn(vec.DecodeKey(key), b) {
			return
		}
	}
}

// Keys возвращает ключи, отсортированные лексикографически
func (s *Store) Keys() []vec.Key {
	keys := make([]vec.Key, 0, len(s.blocks))
	for key := range s.blocks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clear удаляет все блоки
func (s *Store) Clear() {
	s.blocks = make(map[vec.Key]block.Block)
}
