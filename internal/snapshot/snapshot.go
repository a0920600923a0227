// Package snapshot сериализует содержимое хранилища блоков в версионированный плоский массив
// и обратно. Формат:
//
//	{ "version": 1, "blocks": [ ["x,y,z", {"type": "stone", "variant": "stairs", ...}], ... ] }
//
// Импорт сначала проверяет весь снимок и только потом меняет мир.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world"
	"github.com/annel0/voxel-builder/internal/world/block"
)

// Version единственная поддерживаемая версия формата
const Version = 1

// ErrInvalidSnapshot возвращается для повреждённого снимка или неподдерживаемой версии
var ErrInvalidSnapshot = errors.New("invalid or unsupported snapshot")

// BlockData блок в формате снимка. Значения по умолчанию опускаются.
type BlockData struct {
	Type     block.Type           `json:"type"`
	Variant  block.Variant        `json:"variant,omitempty"`
	Rotation *block.Rotation      `json:"rotation,omitempty"`
	Shape    block.StairShape     `json:"shape,omitempty"`
	Mask     block.ConnectionMask `json:"mask,omitempty"`
}

// FromBlock переводит блок в формат снимка
func FromBlock(b block.Block) BlockData {
	b = b.Normalized()
	d := BlockData{Type: b.Type, Shape: b.Shape, Mask: b.Mask}
	if b.Variant != block.VariantBlock {
		d.Variant = b.Variant
	}
	if !b.Rotation.IsZero() {
		rot := b.Rotation
		d.Rotation = &rot
	}
	return d
}

// Block восстанавливает блок из формата снимка
func (d BlockData) Block() block.Block {
	b := block.Block{Type: d.Type, Variant: d.Variant, Shape: d.Shape, Mask: d.Mask}
	if d.Rotation != nil {
		b.Rotation = *d.Rotation
	}
	return b
}

// Entry пара [ключ, блок]; в JSON записывается массивом из двух элементов
type Entry struct {
	Key   vec.Key
	Block BlockData
}

// MarshalJSON записывает запись как ["x,y,z", {...}]
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{string(e.Key), e.Block})
}

// UnmarshalJSON читает запись из массива из двух элементов
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("entry must have 2 elements, got %d", len(raw))
	}

	var key string
	if err := json.Unmarshal(raw[0], &key); err != nil {
		return fmt.Errorf("entry key: %w", err)
	}
	var bd BlockData
	if err := json.Unmarshal(raw[1], &bd); err != nil {
		return fmt.Errorf("entry block: %w", err)
	}

	e.Key = vec.Key(key)
	e.Block = bd
	return nil
}

// Snapshot снимок мира. Blocks == nil означает, что массив блоков отсутствовал во входных данных.
type Snapshot struct {
	Version int     `json:"version"`
	Blocks  []Entry `json:"blocks"`
}

// Source то, из чего снимается снимок (world.Editor, world.Store)
type Source interface {
	Keys() []vec.Key
	Block(pos vec.Vec3) (block.Block, bool)
}

// Take снимает текущее содержимое хранилища. Записи упорядочены по ключу.
func Take(src Source) Snapshot {
	keys := src.Keys()
	snap := Snapshot{Version: Version, Blocks: make([]Entry, 0, len(keys))}
	for _, key := range keys {
		b, ok := src.Block(vec.DecodeKey(key))
		if !ok {
			continue
		}
		snap.Blocks = append(snap.Blocks, Entry{Key: key, Block: FromBlock(b)})
	}
	return snap
}

// Validate проверяет снимок целиком и возвращает блоки, готовые к загрузке
func (s Snapshot) Validate() ([]world.Placement, error) {
	if s.Version != Version {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidSnapshot, s.Version)
	}
	if s.Blocks == nil {
		return nil, fmt.Errorf("%w: missing blocks array", ErrInvalidSnapshot)
	}

	items := make([]world.Placement, 0, len(s.Blocks))
	for i, e := range s.Blocks {
		pos, err := vec.ParseKey(string(e.Key))
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidSnapshot, i, err)
		}
		b := e.Block.Block()
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s): %v", ErrInvalidSnapshot, i, e.Key, err)
		}
		items = append(items, world.Placement{Pos: pos, Block: b})
	}
	return items, nil
}

// Options режим импорта
type Options struct {
	Merge bool // false: мир и история очищаются; true: блоки ложатся поверх без перезаписи
}

// Load проверяет снимок и загружает его в редактор. При ошибке редактор не меняется.
// Возвращает число поставленных блоков.
func Load(ed *world.Editor, snap Snapshot, opts Options) (int, error) {
	items, err := snap.Validate()
	if err != nil {
		return 0, err
	}
	return ed.Load(items, opts.Merge), nil
}

// Encode записывает снимок в JSON
func Encode(snap Snapshot) ([]byte, error) {
	if snap.Blocks == nil {
		snap.Blocks = []Entry{}
	}
	return json.Marshal(snap)
}

// Decode проверяет JSON по схеме, разбирает и проверяет снимок
func Decode(data []byte) (Snapshot, error) {
	if err := CheckSchema(data); err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if _, err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
